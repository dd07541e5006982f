package llm

import "context"

// TurnKind tags a ConversationTurn.
type TurnKind int

const (
	// TurnUser is a natural-language instruction.
	TurnUser TurnKind = iota
	// TurnAnswer is text produced by the model.
	TurnAnswer
	// TurnTool is one tool invocation together with its result.
	TurnTool
)

func (k TurnKind) String() string {
	switch k {
	case TurnUser:
		return "user"
	case TurnAnswer:
		return "answer"
	case TurnTool:
		return "tool"
	default:
		return "unknown"
	}
}

// ToolCall represents a tool call from the model.
type ToolCall struct {
	ID    string
	Name  string
	Input map[string]any
}

// Turn is one entry of the append-only transcript sent to the model.
type Turn struct {
	Kind TurnKind
	// Text is the instruction for TurnUser and the model's text for TurnAnswer.
	Text string
	// Call and Result are set for TurnTool.
	Call    *ToolCall
	Result  string
	IsError bool
	// Exchange numbers the model response an answer or tool turn came
	// from, so that clients can rebuild the provider's message grouping.
	Exchange int
}

// UserTurn returns an instruction turn.
func UserTurn(text string) Turn {
	return Turn{Kind: TurnUser, Text: text}
}

// AnswerTurn returns a model text turn from exchange.
func AnswerTurn(text string, exchange int) Turn {
	return Turn{Kind: TurnAnswer, Text: text, Exchange: exchange}
}

// ToolTurn returns a tool invocation turn with its result.
func ToolTurn(call ToolCall, result string, isError bool, exchange int) Turn {
	c := call
	return Turn{Kind: TurnTool, Call: &c, Result: result, IsError: isError, Exchange: exchange}
}

// Usage is the token usage reported for one exchange.
type Usage struct {
	InputTokens  int
	OutputTokens int
}

// Total returns input plus output tokens.
func (u Usage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// Response represents a model response: either tool calls, final text,
// or both.
type Response struct {
	Content    string
	ToolCalls  []ToolCall
	StopReason string
	Usage      Usage
}

// ToolDefinition defines a tool for the model.
type ToolDefinition struct {
	Name        string
	Description string
	InputSchema map[string]any
}

// LLMClient performs one request/response exchange with a model.
type LLMClient interface {
	Chat(ctx context.Context, turns []Turn, tools []ToolDefinition, systemPrompt string) (*Response, error)
	SetModel(model string)
	GetModel() string
}
