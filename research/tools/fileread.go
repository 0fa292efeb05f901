package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileRead reads a text file (optionally a line range) from under Root,
// prefixing each returned line with its 1-indexed line number, matching
// the `%4d | ` formatting spec.md's reference file-reading tool uses.
type FileRead struct {
	// Root bounds every read path; resolved paths escaping Root are denied.
	Root string
	// MaxBytes truncates the formatted output beyond this size. Zero uses
	// 64KiB.
	MaxBytes int
}

func (f *FileRead) Name() string { return "file_read" }

func (f *FileRead) Execute(ctx context.Context, params map[string]any) (string, *ToolError) {
	if err := ValidateParams(f.Name(), params); err != nil {
		return "", FromError(err)
	}
	path, _ := params["path"].(string)

	resolved, rerr := f.resolve(path)
	if rerr != nil {
		return "", rerr
	}

	info, statErr := os.Stat(resolved)
	switch {
	case os.IsNotExist(statErr):
		return "", ErrorfKind(KindNotFound, "file not found: %s", path)
	case statErr != nil:
		return "", NewWithCause("failed to stat file", statErr)
	case info.IsDir():
		return "", ErrorfKind(KindNotAFile, "path is a directory, not a file: %s", path)
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return "", NewWithCause("failed to read file", err)
	}

	text := strings.ToValidUTF8(string(data), "�")
	lines := strings.Split(text, "\n")
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}

	start, end := 1, len(lines)
	if v, ok := params["start_line"]; ok {
		start = int(v.(float64))
	}
	if v, ok := params["end_line"]; ok {
		end = int(v.(float64))
	}
	if start < 1 {
		start = 1
	}
	if end > len(lines) {
		end = len(lines)
	}
	if start > end {
		return "", Errorf("start_line %d is after end_line %d", start, end)
	}

	var sb strings.Builder
	for i := start; i <= end; i++ {
		fmt.Fprintf(&sb, "%4d | %s\n", i, lines[i-1])
	}

	out := sb.String()
	maxBytes := f.MaxBytes
	if maxBytes <= 0 {
		maxBytes = 64 * 1024
	}
	if len(out) > maxBytes {
		out = out[:maxBytes] + "\n... output truncated, file contains more ..."
	}
	return out, nil
}

// resolve joins path under Root and rejects any result that escapes it,
// guarding against "../" traversal out of the sandboxed workspace.
func (f *FileRead) resolve(path string) (string, *ToolError) {
	root := f.Root
	if root == "" {
		root = "."
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", NewWithCause("failed to resolve root directory", err)
	}
	joined := filepath.Join(absRoot, path)
	rel, err := filepath.Rel(absRoot, joined)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", Errorf("path %q escapes the allowed workspace", path)
	}
	return joined, nil
}
