package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ExecTool runs short shell snippets for computational tasks. The
// orchestrator treats it as the execute_code capability; sandboxing is
// the host's problem, policy rules gate the obvious footguns.
type ExecTool struct {
	Timeout time.Duration
}

func NewExecTool() *ExecTool {
	return &ExecTool{Timeout: 60 * time.Second}
}

func (e *ExecTool) Name() string {
	return "execute_code"
}

func (e *ExecTool) Description() string {
	return "Execute a shell command or short script and return its combined output. Use for calculations and data processing."
}

func (e *ExecTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The shell command or script to execute",
			},
		},
		"required": []string{"command"},
	}
}

func (e *ExecTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if args.Command == "" {
		return "Error: empty command", nil
	}

	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	cmd := exec.CommandContext(runCtx, "bash", "-c", args.Command)
	output, err := cmd.CombinedOutput()

	result := strings.TrimSpace(string(output))
	if result == "" {
		result = "(no output)"
	}
	if err != nil {
		// Execution errors go back to the model as observations, not
		// up the call stack.
		return fmt.Sprintf("Command failed with error: %v\nOutput: %s", err, result), nil
	}
	return result, nil
}
