package llm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/abdul-hamid-achik/aish/internal/config"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

func fastRetryConfig(retries int) config.RateLimitConfig {
	return config.RateLimitConfig{
		MaxRetries: retries,
		BaseDelay:  10 * time.Millisecond,
		MaxDelay:   50 * time.Millisecond,
	}
}

func TestResilientClient_SuccessfulChat(t *testing.T) {
	mock := NewMockLLMClient()
	rc := NewResilientClient(mock, fastRetryConfig(3))

	resp, err := rc.Chat(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "mock response" {
		t.Errorf("expected 'mock response', got %q", resp.Content)
	}
	if len(mock.ChatCalls) != 1 {
		t.Errorf("expected 1 call, got %d", len(mock.ChatCalls))
	}
}

func TestResilientClient_RetriesOnRetryableError(t *testing.T) {
	mock := NewMockLLMClient()
	callCount := 0
	mock.ChatFunc = func(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
		callCount++
		if callCount < 3 {
			return nil, aerr.LLMRequestFailed(errors.New("temporary error"))
		}
		return &Response{Content: "recovered"}, nil
	}

	rc := NewResilientClient(mock, fastRetryConfig(3))

	resp, err := rc.Chat(context.Background(), nil, nil, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Content != "recovered" {
		t.Errorf("expected 'recovered', got %q", resp.Content)
	}
	if callCount != 3 {
		t.Errorf("expected 3 calls, got %d", callCount)
	}
}

func TestResilientClient_DoesNotRetry(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "non-retryable", err: aerr.LLMMalformedResponse("empty")},
		{name: "rate limited", err: aerr.LLMRequestFailed(errors.New("429 Too Many Requests"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := NewMockLLMClient()
			mock.ChatFunc = func(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
				return nil, tt.err
			}

			rc := NewResilientClient(mock, fastRetryConfig(3))
			_, err := rc.Chat(context.Background(), nil, nil, "")
			if !errors.Is(err, tt.err) {
				t.Fatalf("error = %v, want %v", err, tt.err)
			}
			if len(mock.ChatCalls) != 1 {
				t.Errorf("expected 1 call (no retry), got %d", len(mock.ChatCalls))
			}
		})
	}
}

func TestResilientClient_CircuitBreakerOpens(t *testing.T) {
	mock := NewMockLLMClient()
	mock.ChatFunc = func(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
		return nil, aerr.LLMRequestFailed(errors.New("always fail"))
	}

	rc := NewResilientClient(mock, fastRetryConfig(0))
	rc.maxRetries = 0

	// 5 failures open the circuit
	for i := 0; i < 5; i++ {
		_, _ = rc.Chat(context.Background(), nil, nil, "")
	}

	_, err := rc.Chat(context.Background(), nil, nil, "")
	if !errors.Is(err, aerr.LLMUnavailable(nil)) {
		t.Fatalf("expected unavailable error from open circuit, got %v", err)
	}
	if rc.Breaker().State() != CircuitOpen {
		t.Errorf("breaker state = %s, want open", rc.Breaker().State())
	}
	if len(mock.ChatCalls) != 5 {
		t.Errorf("expected 5 calls, got %d", len(mock.ChatCalls))
	}
}

func TestResilientClient_ContextCancellation(t *testing.T) {
	mock := NewMockLLMClient()
	mock.ChatFunc = func(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
		return nil, aerr.LLMRequestFailed(errors.New("fail"))
	}

	rc := NewResilientClient(mock, config.RateLimitConfig{
		MaxRetries: 5,
		BaseDelay:  1 * time.Second,
		MaxDelay:   5 * time.Second,
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if _, err := rc.Chat(ctx, nil, nil, ""); err == nil {
		t.Fatal("expected error")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Error("cancelled context should not wait for backoff")
	}
}

func TestResilientClient_DelegatesModelOps(t *testing.T) {
	mock := NewMockLLMClient()
	rc := NewResilientClient(mock, config.RateLimitConfig{})

	rc.SetModel("test-model")
	if rc.GetModel() != "test-model" {
		t.Errorf("expected 'test-model', got %q", rc.GetModel())
	}
}

func TestResilientClient_DefaultConfig(t *testing.T) {
	rc := NewResilientClient(NewMockLLMClient(), config.RateLimitConfig{})
	if rc.maxRetries != 3 {
		t.Errorf("expected default maxRetries 3, got %d", rc.maxRetries)
	}
	if rc.baseDelay != 1*time.Second {
		t.Errorf("expected default baseDelay 1s, got %v", rc.baseDelay)
	}
	if rc.maxDelay != 30*time.Second {
		t.Errorf("expected default maxDelay 30s, got %v", rc.maxDelay)
	}
}

func TestResilientClient_BackoffCalculation(t *testing.T) {
	rc := &ResilientClient{
		baseDelay: 100 * time.Millisecond,
		maxDelay:  1 * time.Second,
	}

	d0 := rc.backoff(0)
	if d0 < 50*time.Millisecond || d0 > 100*time.Millisecond {
		t.Errorf("attempt 0 backoff out of range: %v", d0)
	}

	d3 := rc.backoff(3)
	if d3 > 1*time.Second {
		t.Errorf("attempt 3 backoff should be capped at 1s, got %v", d3)
	}
}
