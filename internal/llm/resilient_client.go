package llm

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/abdul-hamid-achik/aish/internal/config"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// errCircuitOpen is the cause attached when the breaker rejects a request.
var errCircuitOpen = errors.New("circuit breaker open after repeated failures")

// ResilientClient wraps an LLMClient with retry logic and circuit breaking.
// Rate limit errors are left to RateLimitedClient.
type ResilientClient struct {
	inner      LLMClient
	cb         *CircuitBreaker
	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
	log        *logging.Logger
}

// NewResilientClient wraps the given client with resilience features.
func NewResilientClient(inner LLMClient, cfg config.RateLimitConfig) *ResilientClient {
	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	baseDelay := cfg.BaseDelay
	if baseDelay <= 0 {
		baseDelay = 1 * time.Second
	}
	maxDelay := cfg.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 30 * time.Second
	}
	return &ResilientClient{
		inner:      inner,
		cb:         NewCircuitBreaker(5, 30*time.Second),
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		maxDelay:   maxDelay,
		log:        logging.Global().WithPrefix("llm"),
	}
}

// Chat sends a request with retry and circuit breaker protection.
func (rc *ResilientClient) Chat(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= rc.maxRetries; attempt++ {
		if !rc.cb.Allow() {
			rc.log.Warn("circuit open, request rejected")
			return nil, aerr.LLMUnavailable(errCircuitOpen)
		}

		resp, err := rc.inner.Chat(ctx, turns, tools, systemPrompt)
		if err == nil {
			rc.cb.RecordSuccess()
			return resp, nil
		}

		lastErr = err
		if isRateLimitError(err) {
			return nil, err
		}

		rc.cb.RecordFailure()
		if !aerr.IsRetryable(err) {
			return nil, err
		}
		if attempt == rc.maxRetries || ctx.Err() != nil {
			break
		}

		delay := rc.backoff(attempt)
		rc.log.Debug("retrying model request", logging.F("attempt", attempt+1), logging.Duration(delay), logging.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}
	return nil, lastErr
}

// SetModel delegates to the inner client.
func (rc *ResilientClient) SetModel(model string) {
	rc.inner.SetModel(model)
}

// GetModel delegates to the inner client.
func (rc *ResilientClient) GetModel() string {
	return rc.inner.GetModel()
}

// Breaker exposes the circuit breaker for status display.
func (rc *ResilientClient) Breaker() *CircuitBreaker {
	return rc.cb
}

// backoff calculates the delay for the given attempt using exponential backoff with jitter.
func (rc *ResilientClient) backoff(attempt int) time.Duration {
	delay := rc.baseDelay * (1 << uint(attempt))
	if delay > rc.maxDelay {
		delay = rc.maxDelay
	}
	// 50-100% of the calculated delay
	jitter := time.Duration(rand.Int64N(int64(delay/2) + 1))
	return delay/2 + jitter
}
