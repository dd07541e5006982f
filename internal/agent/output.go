package agent

import "github.com/abdul-hamid-achik/aish/internal/contextstore"

// Output receives the loop's progress for display.
type Output interface {
	// Thinking is called with true before a model exchange and false after.
	Thinking(active bool)
	// Text shows model text that accompanies tool calls.
	Text(text string)
	ToolCall(name, description string)
	ToolResult(name, result string, isError bool)
	// Usage shows the running used/limit indicator after each exchange.
	Usage(b contextstore.Budget)
	// Answer shows the final answer on Done.
	Answer(text string)
	// Failed reports the reason the loop ended in Failed.
	Failed(err error)
}

// NopOutput discards everything.
type NopOutput struct{}

func (NopOutput) Thinking(bool)                   {}
func (NopOutput) Text(string)                     {}
func (NopOutput) ToolCall(string, string)         {}
func (NopOutput) ToolResult(string, string, bool) {}
func (NopOutput) Usage(contextstore.Budget)       {}
func (NopOutput) Answer(string)                   {}
func (NopOutput) Failed(error)                    {}
