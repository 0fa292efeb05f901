package tools

import "context"

// Knowledge lets the model answer a step directly from its own reasoning
// without invoking an external tool. It performs no I/O: the PARAMS answer
// text is the findings text, verbatim.
type Knowledge struct{}

func (k *Knowledge) Name() string { return "knowledge" }

func (k *Knowledge) Execute(ctx context.Context, params map[string]any) (string, *ToolError) {
	if err := ValidateParams(k.Name(), params); err != nil {
		return "", FromError(err)
	}
	answer, _ := params["answer"].(string)
	return answer, nil
}
