package logging

// Event types for structured logging.
// These constants define the event names used in JSONL traces.
const (
	// Session events
	EventSessionStart = "session.start"
	EventSessionEnd   = "session.end"

	// Pipeline and job events
	EventPipelineStart = "pipeline.start"
	EventPipelineEnd   = "pipeline.end"
	EventStageSpawn    = "stage.spawn"
	EventStageError    = "stage.error"
	EventJobRegister   = "job.register"
	EventJobTransition = "job.transition"

	// Script events
	EventScriptBlock = "script.block"
	EventScriptHalt  = "script.halt"

	// Agent events
	EventAgentState         = "agent.state"
	EventAgentQueryStart    = "agent.query.start"
	EventAgentQueryComplete = "agent.query.complete"

	// Context events
	EventContextAdd   = "context.add"
	EventContextClear = "context.clear"

	// LLM events
	EventLLMRequest  = "llm.request"
	EventLLMResponse = "llm.response"
	EventLLMError    = "llm.error"

	// Tool events
	EventToolStart    = "tool.start"
	EventToolComplete = "tool.complete"
	EventToolDenied   = "tool.denied"
	EventToolError    = "tool.error"

	// Error events
	EventError = "error"
)
