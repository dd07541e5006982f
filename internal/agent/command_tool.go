package agent

import (
	"context"
	"encoding/json"
	"time"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/executor"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

const (
	defaultCommandTimeout = 60
	// maxCommandTimeout caps the timeout the model may ask for (5 minutes)
	maxCommandTimeout = 300
)

// CommandRunner runs a parsed pipeline with its output captured.
// *executor.Executor implements it.
type CommandRunner interface {
	RunCapture(ctx context.Context, p *syntax.Pipeline) (executor.Capture, error)
}

// ExecuteCommandTool hands a command line to the shell's own pipeline
// engine: the same tokenizer, expander, builder and executor used for
// typed input.
type ExecuteCommandTool struct {
	Runner CommandRunner
	// Vars resolves $NAME during expansion. May be nil.
	Vars syntax.Lookup
}

// commandResult is the JSON document returned to the model.
type commandResult struct {
	ExitCode int    `json:"exit_code"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
}

func (t *ExecuteCommandTool) Name() string {
	return "execute_command"
}

func (t *ExecuteCommandTool) Description() string {
	return "Run a command line in the shell and return its exit code, stdout and stderr. Pipes (|) and redirections (<, >, >>) work; globbing, command substitution and control flow do not. The command runs without a terminal and with empty stdin."
}

func (t *ExecuteCommandTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"command": map[string]any{
				"type":        "string",
				"description": "The command line to execute.",
			},
			"timeout": map[string]any{
				"type":        "integer",
				"description": "Timeout in seconds (default: 60).",
				"default":     defaultCommandTimeout,
			},
		},
		"required": []string{"command"},
	}
}

func (t *ExecuteCommandTool) Permission() permissions.Level {
	return permissions.LevelExecute
}

func (t *ExecuteCommandTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	line, ok := stringArg(input, "command")
	if !ok {
		return "", aerr.ToolInvalidInput(t.Name(), "command is required")
	}

	p, err := syntax.Parse(line, t.Vars)
	if err != nil {
		return "", err
	}
	if p == nil {
		return "", aerr.ToolInvalidInput(t.Name(), "command is empty")
	}
	if err := checkPipelineSafety(p); err != nil {
		return "", aerr.ToolExecutionFailed(t.Name(), err)
	}

	timeout := defaultCommandTimeout
	if tv, ok := input["timeout"].(float64); ok && tv > 0 {
		timeout = int(tv)
	}
	if timeout > maxCommandTimeout {
		timeout = maxCommandTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, time.Duration(timeout)*time.Second)
	defer cancel()

	capture, err := t.Runner.RunCapture(ctx, p)
	// Stage failures such as command-not-found still produce a status and
	// stderr, which is what the model needs to adapt.
	if err != nil && capture.Stderr == "" {
		capture.Stderr = aerr.GetUserMessage(err)
	}

	data, err := json.Marshal(commandResult{
		ExitCode: capture.Status,
		Stdout:   truncateOutput(capture.Stdout),
		Stderr:   truncateOutput(capture.Stderr),
	})
	if err != nil {
		return "", aerr.ToolExecutionFailed(t.Name(), err)
	}
	return string(data), nil
}
