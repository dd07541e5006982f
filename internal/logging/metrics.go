package logging

import (
	"sync"
	"time"
)

// ToolMetrics tracks metrics for a single agent tool.
type ToolMetrics struct {
	Calls     int           `json:"calls"`
	Errors    int           `json:"errors"`
	TotalTime time.Duration `json:"total_time_ms"`
	Denied    int           `json:"denied"`
}

// LLMMetrics tracks metrics for model exchanges.
type LLMMetrics struct {
	Requests     int `json:"requests"`
	Errors       int `json:"errors"`
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// ShellMetrics tracks pipeline and job activity.
type ShellMetrics struct {
	Pipelines    int `json:"pipelines"`
	Stages       int `json:"stages"`
	StageErrors  int `json:"stage_errors"`
	SyntaxErrors int `json:"syntax_errors"`
	JobsLaunched int `json:"jobs_launched"`
}

// Metrics collects runtime metrics for a session.
type Metrics struct {
	mu sync.Mutex

	SessionStart time.Time `json:"session_start"`
	SessionEnd   time.Time `json:"session_end,omitempty"`

	// Instructions handed to the agent loop, and how many ended Failed.
	Instructions       int `json:"instructions"`
	InstructionsFailed int `json:"instructions_failed"`

	Shell ShellMetrics            `json:"shell"`
	Tools map[string]*ToolMetrics `json:"tools"`
	LLM   LLMMetrics              `json:"llm"`
}

// NewMetrics creates a new metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{
		SessionStart: time.Now(),
		Tools:        make(map[string]*ToolMetrics),
	}
}

// RecordPipeline records one executed pipeline and how many of its stages
// failed to spawn.
func (m *Metrics) RecordPipeline(stages, stageErrors int, background bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Shell.Pipelines++
	m.Shell.Stages += stages
	m.Shell.StageErrors += stageErrors
	if background {
		m.Shell.JobsLaunched++
	}
}

// RecordSyntaxError records a line rejected by the parser.
func (m *Metrics) RecordSyntaxError() {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Shell.SyntaxErrors++
}

// RecordInstruction records one agent loop run.
func (m *Metrics) RecordInstruction(failed bool) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Instructions++
	if failed {
		m.InstructionsFailed++
	}
}

// RecordToolCall records a tool call.
func (m *Metrics) RecordToolCall(name string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	tool := m.getOrCreateTool(name)
	tool.Calls++
	tool.TotalTime += duration
	if err != nil {
		tool.Errors++
	}
}

// RecordToolDenied records a tool call declined by the user.
func (m *Metrics) RecordToolDenied(name string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.getOrCreateTool(name).Denied++
}

// RecordLLMRequest records a model exchange.
func (m *Metrics) RecordLLMRequest(inputTokens, outputTokens int, err error) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.LLM.Requests++
	m.LLM.InputTokens += inputTokens
	m.LLM.OutputTokens += outputTokens
	if err != nil {
		m.LLM.Errors++
	}
}

func (m *Metrics) getOrCreateTool(name string) *ToolMetrics {
	if m.Tools[name] == nil {
		m.Tools[name] = &ToolMetrics{}
	}
	return m.Tools[name]
}

// GetSnapshot returns a flat copy of the current metrics for serialization.
func (m *Metrics) GetSnapshot() map[string]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.SessionEnd = time.Now()

	toolCalls, toolErrors, toolDenied := 0, 0, 0
	for _, t := range m.Tools {
		toolCalls += t.Calls
		toolErrors += t.Errors
		toolDenied += t.Denied
	}

	return map[string]any{
		"session_duration_ms": m.SessionEnd.Sub(m.SessionStart).Milliseconds(),
		"pipelines_total":     m.Shell.Pipelines,
		"stages_total":        m.Shell.Stages,
		"stage_errors_total":  m.Shell.StageErrors,
		"syntax_errors_total": m.Shell.SyntaxErrors,
		"jobs_launched_total": m.Shell.JobsLaunched,
		"instructions_total":  m.Instructions,
		"instructions_failed": m.InstructionsFailed,
		"tool_calls_total":    toolCalls,
		"tool_errors_total":   toolErrors,
		"tool_denied_total":   toolDenied,
		"llm_requests_total":  m.LLM.Requests,
		"llm_errors_total":    m.LLM.Errors,
		"llm_input_tokens":    m.LLM.InputTokens,
		"llm_output_tokens":   m.LLM.OutputTokens,
	}
}
