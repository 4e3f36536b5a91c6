package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/gliderlab/planact/tools"
)

// ExecuteToolCall runs one tool call and returns the tool Message to
// append. Every failure is contained here and becomes ToolFailureContent.
func (a *Agent) ExecuteToolCall(ctx context.Context, sess *Session, rec ToolCallRecord) Message {
	sess.Channel.ToolStart(rec)
	log.Printf("[TOOL] session=%s call_tool input: id=%s name=%s args=%s", sess.ID, rec.ID, rec.Name, rec.Arguments)

	output, err := a.callTool(ctx, rec)
	if err != nil {
		log.Printf("[ERROR] session=%s call_tool error: id=%s name=%s args=%q: %v", sess.ID, rec.ID, rec.Name, rec.Arguments, err)
		sess.Channel.ToolEnd(rec, ToolFailureContent, err)
		return NewToolMessage(rec, ToolFailureContent)
	}

	output = TruncateToolOutput(output, a.cfg.Truncation)
	log.Printf("[TOOL] session=%s call_tool output: id=%s name=%s bytes=%d", sess.ID, rec.ID, rec.Name, len(output))
	sess.Channel.ToolEnd(rec, output, nil)
	return NewToolMessage(rec, output)
}

func (a *Agent) callTool(ctx context.Context, rec ToolCallRecord) (output string, err error) {
	tool, ok := a.cfg.Registry.Get(rec.Name)
	if !ok {
		return "", fmt.Errorf("unknown tool %q", rec.Name)
	}
	args, err := parseArgs(rec.Arguments)
	if err != nil {
		return "", err
	}

	// Only declared arguments reach the tool.
	filtered := make(map[string]any, len(args))
	for _, k := range tools.ParamKeys(tool) {
		if v, ok := args[k]; ok {
			filtered[k] = v
		}
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool panic: %v", r)
		}
	}()
	return tool.Execute(ctx, filtered)
}

func parseArgs(argsJSON string) (map[string]any, error) {
	if strings.TrimSpace(argsJSON) == "" {
		argsJSON = "{}"
	}
	var args map[string]any
	if err := json.Unmarshal([]byte(argsJSON), &args); err != nil {
		return nil, fmt.Errorf("parse tool arguments: %w", err)
	}
	if args == nil {
		return nil, errors.New("parse tool arguments: not an object")
	}
	return args, nil
}
