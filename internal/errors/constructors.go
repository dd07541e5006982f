package errors

import "fmt"

// Syntax creates an error for a line that could not be parsed into a pipeline.
// col is the 1-based byte column where the problem was detected, or 0 when unknown.
func Syntax(msg string, col int) *AishError {
	if col > 0 {
		msg = fmt.Sprintf("%s (column %d)", msg, col)
	}
	return &AishError{
		Category: CategorySyntax,
		Code:     "syntax_error",
		Message:  msg,
	}
}

// CommandNotFound creates an error for a stage whose command does not resolve.
func CommandNotFound(name string) *AishError {
	return &AishError{
		Category: CategorySpawn,
		Code:     "command_not_found",
		Message:  fmt.Sprintf("%s: command not found", name),
	}
}

// SpawnFailed creates an error for a stage the OS refused to start.
// Resource exhaustion (EAGAIN, ENOMEM) is retryable.
func SpawnFailed(name string, cause error) *AishError {
	return &AishError{
		Category:  CategorySpawn,
		Code:      "spawn_failed",
		Message:   fmt.Sprintf("%s: cannot execute", name),
		Retryable: isTemporary(cause),
		Cause:     cause,
	}
}

// RedirectionFailed creates an error for a redirection target that cannot be opened.
func RedirectionFailed(path string, cause error) *AishError {
	return &AishError{
		Category: CategoryRedirection,
		Code:     "redirection_failed",
		Message:  fmt.Sprintf("%s: cannot open", path),
		Cause:    cause,
	}
}

// ToolNotFound creates an error for a tool name the loop does not support.
func ToolNotFound(name string) *AishError {
	return &AishError{
		Category: CategoryTool,
		Code:     "tool_not_found",
		Message:  fmt.Sprintf("unsupported tool %q", name),
	}
}

// ToolInvalidInput creates an error for a tool call with missing or malformed arguments.
func ToolInvalidInput(name, detail string) *AishError {
	return &AishError{
		Category: CategoryTool,
		Code:     "tool_invalid_input",
		Message:  fmt.Sprintf("tool %q: %s", name, detail),
	}
}

// ToolExecutionFailed creates an error for when a tool execution fails.
// Retryability depends on the underlying cause.
func ToolExecutionFailed(name string, cause error) *AishError {
	return &AishError{
		Category:  CategoryTool,
		Code:      "tool_execution_failed",
		Message:   fmt.Sprintf("tool %q execution failed", name),
		Retryable: IsRetryable(cause),
		Cause:     cause,
	}
}

// ToolDenied creates an error for a tool call the user declined.
func ToolDenied(name string) *AishError {
	return &AishError{
		Category: CategoryTool,
		Code:     "tool_denied",
		Message:  fmt.Sprintf("tool %q was declined by the user", name),
	}
}

// ContextNotFound creates an error for a read_file path that does not resolve.
func ContextNotFound(path string) *AishError {
	return &AishError{
		Category: CategoryContext,
		Code:     "context_not_found",
		Message:  fmt.Sprintf("%s: no such file", path),
	}
}

// ContextReadFailed creates an error for an I/O failure while loading a file.
func ContextReadFailed(path string, cause error) *AishError {
	return &AishError{
		Category: CategoryContext,
		Code:     "context_read_failed",
		Message:  fmt.Sprintf("%s: read failed", path),
		Cause:    cause,
	}
}

// LLMUnavailable creates an error for when no model client is configured.
func LLMUnavailable(cause error) *AishError {
	return &AishError{
		Category: CategoryLLM,
		Code:     "llm_unavailable",
		Message:  "model client is unavailable (set ANTHROPIC_API_KEY)",
		Cause:    cause,
	}
}

// LLMRequestFailed creates an error for when an LLM request fails.
func LLMRequestFailed(cause error) *AishError {
	return &AishError{
		Category:  CategoryLLM,
		Code:      "llm_request_failed",
		Message:   "LLM request failed",
		Retryable: true,
		Cause:     cause,
	}
}

// LLMMalformedResponse creates an error for a response with neither text nor tool calls.
func LLMMalformedResponse(detail string) *AishError {
	return &AishError{
		Category: CategoryLLM,
		Code:     "llm_malformed_response",
		Message:  fmt.Sprintf("malformed model response: %s", detail),
	}
}

// MaxIterationsReached creates an error for when the agent loop exceeds its iteration limit.
func MaxIterationsReached(iterations int) *AishError {
	return &AishError{
		Category: CategoryLoop,
		Code:     "max_iterations_reached",
		Message:  fmt.Sprintf("agent loop exceeded %d iterations", iterations),
	}
}

// TokenBudgetExhausted creates an error for when the session token limit is spent.
func TokenBudgetExhausted(used, max int) *AishError {
	return &AishError{
		Category: CategoryLoop,
		Code:     "token_budget_exhausted",
		Message:  fmt.Sprintf("session token limit reached: %d/%d tokens used", used, max),
	}
}

// ConfigLoadFailed creates an error for when configuration loading fails.
func ConfigLoadFailed(path string, cause error) *AishError {
	return &AishError{
		Category: CategoryConfig,
		Code:     "config_load_failed",
		Message:  fmt.Sprintf("failed to load config from %q", path),
		Cause:    cause,
	}
}

// ConfigInvalid creates an error for a configuration that fails validation.
func ConfigInvalid(cause error) *AishError {
	return &AishError{
		Category: CategoryConfig,
		Code:     "config_invalid",
		Message:  "invalid configuration",
		Cause:    cause,
	}
}
