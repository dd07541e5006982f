package llm

import (
	"context"
	"sync"

	"github.com/google/uuid"
)

// MockLLMClient implements LLMClient for testing.
type MockLLMClient struct {
	// Injectable behavior
	ChatFunc func(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error)

	// Responses are returned in order when ChatFunc is nil. Once they run
	// out the mock answers "mock response".
	Responses []*Response

	model string
	mu    sync.Mutex

	// Call recording
	ChatCalls []ChatCall
}

// ChatCall records the arguments of a Chat invocation.
type ChatCall struct {
	Turns        []Turn
	Tools        []ToolDefinition
	SystemPrompt string
}

// NewMockLLMClient creates a mock client with sensible defaults.
func NewMockLLMClient() *MockLLMClient {
	return &MockLLMClient{
		model: "mock-model",
	}
}

// Chat calls the injected ChatFunc, pops a scripted response, or returns
// a default answer.
func (m *MockLLMClient) Chat(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
	m.mu.Lock()
	m.ChatCalls = append(m.ChatCalls, ChatCall{
		Turns:        append([]Turn(nil), turns...),
		Tools:        tools,
		SystemPrompt: systemPrompt,
	})
	var scripted *Response
	if m.ChatFunc == nil && len(m.Responses) > 0 {
		scripted = m.Responses[0]
		m.Responses = m.Responses[1:]
	}
	m.mu.Unlock()

	if m.ChatFunc != nil {
		return m.ChatFunc(ctx, turns, tools, systemPrompt)
	}
	if scripted != nil {
		return scripted, nil
	}
	return &Response{
		Content:    "mock response",
		StopReason: "end_turn",
	}, nil
}

// SetModel sets the model name.
func (m *MockLLMClient) SetModel(model string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.model = model
}

// GetModel returns the current model name.
func (m *MockLLMClient) GetModel() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.model
}

// CallCount returns how many exchanges were made.
func (m *MockLLMClient) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ChatCalls)
}

// ToolUse builds a response that requests a single tool call with a
// fresh call ID.
func ToolUse(name string, input map[string]any) *Response {
	return &Response{
		ToolCalls: []ToolCall{{
			ID:    "toolu_" + uuid.NewString(),
			Name:  name,
			Input: input,
		}},
		StopReason: "tool_use",
	}
}

// Answer builds a final text response.
func Answer(text string) *Response {
	return &Response{Content: text, StopReason: "end_turn"}
}
