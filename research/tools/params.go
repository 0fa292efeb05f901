package tools

import (
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// rawSchemas defines the PARAMS shape accepted for each tool name, per
// spec.md §4.2 step 3 / §7: a decision PARAMS block that fails schema
// validation is handled identically to an unparsable PARAMS block.
var rawSchemas = map[string]string{
	"web_search": `{
		"type": "object",
		"properties": {"query": {"type": "string", "minLength": 1}},
		"required": ["query"],
		"additionalProperties": false
	}`,
	"terminal_execute": `{
		"type": "object",
		"properties": {"command": {"type": "string", "minLength": 1}},
		"required": ["command"],
		"additionalProperties": false
	}`,
	"file_read": `{
		"type": "object",
		"properties": {
			"path": {"type": "string", "minLength": 1},
			"start_line": {"type": "integer", "minimum": 1},
			"end_line": {"type": "integer", "minimum": 1}
		},
		"required": ["path"],
		"additionalProperties": false
	}`,
	"knowledge": `{
		"type": "object",
		"properties": {"answer": {"type": "string", "minLength": 1}},
		"required": ["answer"],
		"additionalProperties": false
	}`,
}

var schemas map[string]*jsonschema.Schema

func init() {
	compiler := jsonschema.NewCompiler()
	schemas = make(map[string]*jsonschema.Schema, len(rawSchemas))
	for name, raw := range rawSchemas {
		url := name + ".json"
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(raw))
		if err != nil {
			panic("tools: invalid embedded schema for " + name + ": " + err.Error())
		}
		if err := compiler.AddResource(url, doc); err != nil {
			panic("tools: cannot register schema for " + name + ": " + err.Error())
		}
		sch, err := compiler.Compile(url)
		if err != nil {
			panic("tools: cannot compile schema for " + name + ": " + err.Error())
		}
		schemas[name] = sch
	}
}

// ValidateParams checks params against the registered JSON Schema for tool.
// An unknown tool name is itself a validation failure.
func ValidateParams(tool string, params map[string]any) error {
	sch, ok := schemas[tool]
	if !ok {
		return Errorf("unknown tool %q", tool)
	}
	if err := sch.Validate(params); err != nil {
		return NewWithCause("params failed schema validation", err)
	}
	return nil
}
