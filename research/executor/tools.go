package executor

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"regexp"
	"strconv"
	"time"

	"github.com/clearlane/deepresearch/research"
)

// prepareTerminal is the terminal_prepare node, per spec.md §4.2 step 4:
// computes the command's correlation hash and suspends the driver for
// human approval.
func prepareTerminal(state *research.RunState, params map[string]any, deps research.Deps) {
	command, _ := params["command"].(string)
	hash := md5.Sum([]byte(command))

	timeout := deps.Settings.TerminalTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if v, ok := params["timeout"]; ok {
		if seconds, ok := v.(float64); ok && seconds > 0 {
			timeout = time.Duration(seconds) * time.Second
		}
	}

	state.PendingTerminal = &research.PendingTerminal{
		Command: command,
		Hash:    hex.EncodeToString(hash[:]),
		Timeout: timeout,
	}
	state.Phase = research.PhaseAwaitingTerminal
}

// runTerminal is the terminal_execute node, invoked from Resume once
// approval is granted.
func runTerminal(ctx context.Context, state *research.RunState, deps research.Deps, command string) {
	adapter, ok := deps.Tools.Lookup("terminal_execute")
	params := map[string]any{"command": command}
	if !ok {
		accumulateToolResult(state, "terminal_execute", params, "", toolFailure("no terminal_execute adapter registered"))
		return
	}
	out, toolErr := adapter.Execute(ctx, params)
	accumulateToolResult(state, "terminal_execute", params, out, toolErr)
}

// pathRangeRe matches the file_read params shorthand "path:start-end" or
// "path:start", per spec.md §4.2 step 4 / §8 "File-read honors path:10-20,
// with start_line=end_line=10 when only path:10".
var pathRangeRe = regexp.MustCompile(`^(.+):(\d+)(?:-(\d+))?$`)

func runFileRead(ctx context.Context, state *research.RunState, deps research.Deps, decision research.Decision) {
	params := normalizeFileReadParams(decision.Params)
	adapter, ok := deps.Tools.Lookup("file_read")
	if !ok {
		accumulateToolResult(state, "read_file", params, "", toolFailure("no file_read adapter registered"))
		return
	}
	out, toolErr := adapter.Execute(ctx, params)
	accumulateToolResult(state, "read_file", params, out, toolErr)
}

func normalizeFileReadParams(params map[string]any) map[string]any {
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = v
	}
	path, _ := out["path"].(string)
	if m := pathRangeRe.FindStringSubmatch(path); m != nil {
		out["path"] = m[1]
		start, _ := strconv.Atoi(m[2])
		end := start
		if m[3] != "" {
			end, _ = strconv.Atoi(m[3])
		}
		out["start_line"] = float64(start)
		out["end_line"] = float64(end)
	}
	return out
}

func runKnowledge(ctx context.Context, state *research.RunState, deps research.Deps, decision research.Decision) {
	adapter, ok := deps.Tools.Lookup("knowledge")
	if !ok {
		accumulateToolResult(state, "knowledge", decision.Params, "", toolFailure("no knowledge adapter registered"))
		return
	}
	out, toolErr := adapter.Execute(ctx, decision.Params)
	accumulateToolResult(state, "knowledge", decision.Params, out, toolErr)
}
