package llm

import (
	"context"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/abdul-hamid-achik/aish/internal/config"
	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// estimateTurns estimates the request size of a transcript for pacing.
func estimateTurns(turns []Turn) int {
	total := 0
	for _, t := range turns {
		// ~4 tokens of structure per turn
		total += 4
		total += contextstore.EstimateTokens(t.Text)
		if t.Kind == TurnTool {
			total += contextstore.EstimateTokens(t.Result) + 20
		}
	}
	return total
}

// WaitInfo contains information about a rate limit wait
type WaitInfo struct {
	Duration    time.Duration // How long to wait
	Reason      string        // Why we're waiting (e.g., "token bucket cooldown" or "API returned 429")
	Attempt     int           // Current attempt number (1-based, 0 if not a retry)
	MaxAttempts int           // Maximum number of attempts (0 if not a retry)
}

// WaitCallback is called when the client needs to wait due to rate limiting.
// It should block for the specified duration or until context is cancelled.
// If nil, the default time.After behavior is used.
type WaitCallback func(ctx context.Context, info WaitInfo) error

// TokenBucket implements a token bucket rate limiter
type TokenBucket struct {
	limiter *rate.Limiter
	mu      sync.Mutex
	onWait  WaitCallback
	log     *logging.Logger
}

// NewTokenBucket creates a new token bucket rate limiter.
// tokensPerMinute is converted to tokens per second for the limiter.
func NewTokenBucket(tokensPerMinute int) *TokenBucket {
	tokensPerSecond := float64(tokensPerMinute) / 60.0
	// Burst allows ten seconds worth of tokens
	burstSize := tokensPerMinute / 6
	if burstSize < 1000 {
		burstSize = 1000
	}

	return &TokenBucket{
		limiter: rate.NewLimiter(rate.Limit(tokensPerSecond), burstSize),
		log:     logging.Global().WithPrefix("llm"),
	}
}

// SetWaitCallback sets a callback to be invoked when waiting for tokens
func (tb *TokenBucket) SetWaitCallback(cb WaitCallback) {
	tb.mu.Lock()
	defer tb.mu.Unlock()
	tb.onWait = cb
}

// Wait blocks until the specified number of tokens are available
func (tb *TokenBucket) Wait(ctx context.Context, tokens int) error {
	tb.mu.Lock()
	onWait := tb.onWait
	tb.mu.Unlock()

	reservation := tb.limiter.ReserveN(time.Now(), tokens)
	if !reservation.OK() {
		tb.log.Debug("request exceeds burst size", logging.Tokens(tokens))
		return nil
	}

	delay := reservation.Delay()
	if delay <= 0 {
		return nil
	}
	tb.log.Debug("rate limit wait", logging.Duration(delay), logging.Tokens(tokens))

	if onWait != nil {
		if err := onWait(ctx, WaitInfo{Duration: delay, Reason: "token bucket cooldown"}); err != nil {
			reservation.Cancel()
			return err
		}
		return nil
	}

	select {
	case <-time.After(delay):
		return nil
	case <-ctx.Done():
		reservation.Cancel()
		return ctx.Err()
	}
}

// RateLimitedClient paces requests with a token bucket and retries
// requests the API rejected with 429.
type RateLimitedClient struct {
	inner       LLMClient
	tokenBucket *TokenBucket
	cfg         config.RateLimitConfig
	onWait      WaitCallback
	log         *logging.Logger
}

// NewRateLimitedClient creates a new rate-limited client wrapper
func NewRateLimitedClient(inner LLMClient, cfg config.RateLimitConfig) *RateLimitedClient {
	return &RateLimitedClient{
		inner:       inner,
		tokenBucket: NewTokenBucket(cfg.TokensPerMinute),
		cfg:         cfg,
		log:         logging.Global().WithPrefix("llm"),
	}
}

// SetWaitCallback sets a callback to be invoked when waiting due to rate limiting.
// The callback is called both for token bucket waits and API 429 retry waits.
func (c *RateLimitedClient) SetWaitCallback(cb WaitCallback) {
	c.onWait = cb
	c.tokenBucket.SetWaitCallback(cb)
}

// SetModel delegates to the inner client.
func (c *RateLimitedClient) SetModel(model string) {
	c.inner.SetModel(model)
}

// GetModel delegates to the inner client.
func (c *RateLimitedClient) GetModel() string {
	return c.inner.GetModel()
}

// Chat sends the transcript with rate limiting and returns the response
func (c *RateLimitedClient) Chat(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error) {
	estimatedTokens := estimateTurns(turns)
	estimatedTokens += contextstore.EstimateTokens(systemPrompt)
	// ~100 tokens per tool definition
	estimatedTokens += len(tools) * 100

	if err := c.tokenBucket.Wait(ctx, estimatedTokens); err != nil {
		return nil, err
	}

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			c.log.Debug("retrying after rate limit", logging.F("attempt", attempt), logging.F("max_attempts", c.cfg.MaxRetries), logging.Duration(delay))

			if err := c.wait(ctx, WaitInfo{
				Duration:    delay,
				Reason:      "API returned 429",
				Attempt:     attempt,
				MaxAttempts: c.cfg.MaxRetries,
			}); err != nil {
				return nil, err
			}
		}

		resp, err := c.inner.Chat(ctx, turns, tools, systemPrompt)
		if err == nil {
			return resp, nil
		}

		lastErr = err
		if !isRateLimitError(err) {
			return nil, err
		}
		c.log.Warn("rate limit hit", logging.F("attempt", attempt+1), logging.F("max_attempts", c.cfg.MaxRetries+1), logging.Error(err))
	}

	return nil, lastErr
}

func (c *RateLimitedClient) wait(ctx context.Context, info WaitInfo) error {
	if c.onWait != nil {
		return c.onWait(ctx, info)
	}
	select {
	case <-time.After(info.Duration):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// calculateBackoff calculates the backoff delay for a retry attempt
// using exponential backoff with jitter.
func (c *RateLimitedClient) calculateBackoff(attempt int) time.Duration {
	backoff := float64(c.cfg.BaseDelay) * math.Pow(2, float64(attempt-1))

	// 0-25% jitter
	jitter := backoff * 0.25 * rand.Float64()
	backoff += jitter

	if backoff > float64(c.cfg.MaxDelay) {
		backoff = float64(c.cfg.MaxDelay)
	}

	return time.Duration(backoff)
}

// isRateLimitError checks if an error is a rate limit (429) error
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "Rate limit") ||
		strings.Contains(errStr, "too many requests") ||
		strings.Contains(errStr, "Too Many Requests")
}
