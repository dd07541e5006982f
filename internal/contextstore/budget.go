package contextstore

import "fmt"

// DefaultTokenLimit is the session maximum when none is configured.
const DefaultTokenLimit = 200000

// Budget is the running model usage for a session.
type Budget struct {
	Input  int
	Output int
	Limit  int
}

// Used returns input plus output tokens.
func (b Budget) Used() int {
	return b.Input + b.Output
}

// Remaining returns the tokens left before Limit, never negative.
func (b Budget) Remaining() int {
	if b.Limit <= 0 {
		return 0
	}
	if r := b.Limit - b.Used(); r > 0 {
		return r
	}
	return 0
}

// Exhausted reports whether the session maximum has been reached.
// A zero limit never exhausts.
func (b Budget) Exhausted() bool {
	return b.Limit > 0 && b.Used() >= b.Limit
}

// Percent returns usage as a percentage of Limit.
func (b Budget) Percent() float64 {
	if b.Limit <= 0 {
		return 0
	}
	return float64(b.Used()) / float64(b.Limit) * 100
}

// Indicator renders the budget as "12K/200K TOK".
func (b Budget) Indicator() string {
	return fmt.Sprintf("%s/%s TOK", formatTokens(b.Used()), formatTokens(b.Limit))
}

func formatTokens(n int) string {
	if n >= 1000 {
		return fmt.Sprintf("%dK", n/1000)
	}
	return fmt.Sprintf("%d", n)
}

// EstimateTokens approximates the token count of text: four characters
// per token plus a 20% margin.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	base := len(text) / 4
	return base + base/5
}
