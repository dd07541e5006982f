package agent

import (
	"context"
	"time"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/llm"
	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
)

// ToolExecutor runs the tool calls of one model response, in order, and
// turns each into a transcript entry. Tool failures become error results
// for the model; they never end the loop.
type ToolExecutor struct {
	tools  *Registry
	policy *permissions.Policy
	log    *logging.Logger
}

// NewToolExecutor creates a new ToolExecutor. A nil policy allows every call.
func NewToolExecutor(registry *Registry, policy *permissions.Policy) *ToolExecutor {
	if policy == nil {
		policy = permissions.NewPolicy(permissions.ModeAuto, nil)
	}
	return &ToolExecutor{
		tools:  registry,
		policy: policy,
		log:    logging.Global().WithPrefix("agent"),
	}
}

// Execute runs calls sequentially and returns one tool turn per call,
// tagged with exchange.
func (te *ToolExecutor) Execute(ctx context.Context, calls []llm.ToolCall, exchange int, out Output) []llm.Turn {
	turns := make([]llm.Turn, 0, len(calls))
	for _, call := range calls {
		result, isErr := te.executeOne(ctx, call, out)
		turns = append(turns, llm.ToolTurn(call, result, isErr, exchange))
	}
	return turns
}

func (te *ToolExecutor) executeOne(ctx context.Context, call llm.ToolCall, out Output) (string, bool) {
	metrics := logging.Global().Metrics()
	description := describeCall(call.Name, call.Input)

	tool, ok := te.tools.Get(call.Name)
	if !ok {
		err := aerr.ToolNotFound(call.Name)
		te.log.Warn("unsupported tool", logging.ToolName(call.Name))
		te.log.Event(logging.EventToolError, logging.ToolName(call.Name), logging.Error(err))
		metrics.RecordToolCall(call.Name, 0, err)
		return te.fail(call.Name, err, out)
	}

	allowed, err := te.policy.Check(call.Name, tool.Permission(), description)
	if err != nil {
		te.log.Warn("permission prompt failed", logging.ToolName(call.Name), logging.Error(err))
		return te.fail(call.Name, aerr.ToolDenied(call.Name), out)
	}
	if !allowed {
		te.log.Info("tool denied", logging.ToolName(call.Name))
		te.log.Event(logging.EventToolDenied, logging.ToolName(call.Name))
		metrics.RecordToolDenied(call.Name)
		return te.fail(call.Name, aerr.ToolDenied(call.Name), out)
	}

	out.ToolCall(call.Name, description)
	te.log.Debug("executing tool", logging.ToolName(call.Name), logging.F("input", call.Input))
	te.log.Event(logging.EventToolStart, logging.ToolName(call.Name), logging.F("description", description))

	start := time.Now()
	result, err := tool.Execute(ctx, call.Input)
	metrics.RecordToolCall(call.Name, time.Since(start), err)
	if err != nil {
		te.log.Event(logging.EventToolError, logging.ToolName(call.Name), logging.Error(err), logging.DurationSince(start))
		return te.fail(call.Name, err, out)
	}

	result = truncateOutput(result)
	te.log.Event(logging.EventToolComplete, logging.ToolName(call.Name), logging.F("bytes", len(result)), logging.DurationSince(start))
	out.ToolResult(call.Name, result, false)
	return result, false
}

func (te *ToolExecutor) fail(name string, err error, out Output) (string, bool) {
	msg := "Error: " + aerr.GetUserMessage(err)
	out.ToolResult(name, msg, true)
	return msg, true
}
