// Package agent drives natural-language instructions through the model
// client as an explicit state machine, dispatching the model's tool calls
// against the context store and the shell's executor.
package agent

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/llm"
	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
)

// DefaultMaxIterations caps model exchanges per instruction.
const DefaultMaxIterations = 10

// Config holds agent configuration
type Config struct {
	// LLM may be nil; every Run then fails with an unavailable error.
	LLM    llm.LLMClient
	Tools  *Registry
	Policy *permissions.Policy
	Store  *contextstore.Store
	Output Output
	// MaxIterations caps model exchanges per instruction.
	MaxIterations int
	// KeepTranscript carries the conversation over to the next Run.
	KeepTranscript bool
}

// Outcome is the terminal result of one Run.
type Outcome struct {
	State      State
	Answer     string
	Iterations int
	Budget     contextstore.Budget
	Err        error
}

// Agent runs the tool-calling loop. Run is not safe for concurrent use;
// the dispatcher feeds one instruction at a time.
type Agent struct {
	llm            llm.LLMClient
	tools          *Registry
	toolExecutor   *ToolExecutor
	store          *contextstore.Store
	output         Output
	maxIterations  int
	keepTranscript bool
	log            *logging.Logger

	mu         sync.Mutex
	transcript []llm.Turn
	exchange   int
}

// New creates an agent.
func New(cfg Config) *Agent {
	if cfg.Tools == nil {
		cfg.Tools = NewRegistry()
	}
	if cfg.Output == nil {
		cfg.Output = NopOutput{}
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultMaxIterations
	}
	if cfg.Store == nil {
		cfg.Store = contextstore.New(contextstore.Options{})
	}
	return &Agent{
		llm:            cfg.LLM,
		tools:          cfg.Tools,
		toolExecutor:   NewToolExecutor(cfg.Tools, cfg.Policy),
		store:          cfg.Store,
		output:         cfg.Output,
		maxIterations:  cfg.MaxIterations,
		keepTranscript: cfg.KeepTranscript,
		log:            logging.Global().WithPrefix("agent"),
	}
}

// Available reports whether a model client is configured.
func (a *Agent) Available() bool {
	return a.llm != nil
}

// Store returns the context store the tools operate on.
func (a *Agent) Store() *contextstore.Store {
	return a.store
}

// Transcript returns a copy of the kept conversation.
func (a *Agent) Transcript() []llm.Turn {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]llm.Turn(nil), a.transcript...)
}

// ClearHistory forgets the kept conversation.
func (a *Agent) ClearHistory() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.transcript = nil
}

// run is the state of one Run invocation.
type run struct {
	state      State
	turns      []llm.Turn
	pending    []llm.ToolCall
	exchange   int
	iterations int
	answer     string
	err        error
}

// Run drives one instruction to Done or Failed. It blocks for the whole
// loop; the model exchange is its only suspension point.
func (a *Agent) Run(ctx context.Context, instruction string) Outcome {
	a.mu.Lock()
	r := &run{state: Dispatching, exchange: a.exchange}
	if a.keepTranscript {
		r.turns = append(r.turns, a.transcript...)
	}
	a.mu.Unlock()

	start := time.Now()
	a.log.BeginInstruction()
	defer a.log.EndInstruction()
	a.log.Info("instruction received", logging.F("chars", len(instruction)))
	a.log.Event(logging.EventAgentQueryStart, logging.F("chars", len(instruction)))
	r.turns = append(r.turns, llm.UserTurn(instruction))

	for !r.state.Terminal() {
		switch r.state {
		case Dispatching:
			if a.llm == nil {
				a.fail(r, aerr.LLMUnavailable(nil))
				continue
			}
			a.transition(r, AwaitingModel)
		case AwaitingModel:
			a.awaitModel(ctx, r)
		case ExecutingTools:
			calls := r.pending
			r.pending = nil
			r.turns = append(r.turns, a.toolExecutor.Execute(ctx, calls, r.exchange, a.output)...)
			a.transition(r, AwaitingModel)
		}
	}

	a.mu.Lock()
	a.exchange = r.exchange
	if a.keepTranscript {
		a.transcript = r.turns
	}
	a.mu.Unlock()

	out := Outcome{
		State:      r.state,
		Answer:     r.answer,
		Iterations: r.iterations,
		Budget:     a.store.Budget(),
		Err:        r.err,
	}

	logging.Global().Metrics().RecordInstruction(r.state == Failed)
	a.log.Event(logging.EventAgentQueryComplete,
		logging.F("state", r.state.String()),
		logging.Iteration(r.iterations),
		logging.Tokens(out.Budget.Used()),
		logging.DurationSince(start))

	if r.state == Done {
		a.output.Answer(r.answer)
		a.output.Usage(out.Budget)
	} else {
		a.output.Failed(r.err)
	}
	return out
}

// awaitModel performs one exchange and picks the next state from the response.
func (a *Agent) awaitModel(ctx context.Context, r *run) {
	budget := a.store.Budget()
	if budget.Exhausted() {
		a.fail(r, aerr.TokenBudgetExhausted(budget.Used(), budget.Limit))
		return
	}

	r.iterations++
	a.log.Debug("model exchange", logging.Iteration(r.iterations), logging.F("max_iterations", a.maxIterations), logging.Count(len(r.turns)))

	a.output.Thinking(true)
	resp, err := a.llm.Chat(ctx, r.turns, a.tools.Definitions(), buildSystemPrompt(a.store))
	a.output.Thinking(false)
	if err != nil {
		a.fail(r, err)
		return
	}

	budget = a.store.RecordUsage(resp.Usage.InputTokens, resp.Usage.OutputTokens)

	if resp.Content == "" && len(resp.ToolCalls) == 0 {
		a.fail(r, aerr.LLMMalformedResponse(fmt.Sprintf("no text and no tool calls (stop reason %q)", resp.StopReason)))
		return
	}

	// the indicator for the final exchange is shown with the answer
	if len(resp.ToolCalls) == 0 {
		r.exchange++
		r.turns = append(r.turns, llm.AnswerTurn(resp.Content, r.exchange))
		r.answer = resp.Content
		a.transition(r, Done)
		return
	}

	a.output.Usage(budget)
	if r.iterations >= a.maxIterations {
		a.fail(r, aerr.MaxIterationsReached(a.maxIterations))
		return
	}

	r.exchange++
	if resp.Content != "" {
		a.output.Text(resp.Content)
		r.turns = append(r.turns, llm.AnswerTurn(resp.Content, r.exchange))
	}
	r.pending = resp.ToolCalls
	a.transition(r, ExecutingTools)
}

func (a *Agent) fail(r *run, err error) {
	r.err = err
	a.log.Warn("instruction failed", logging.Error(err), logging.Iteration(r.iterations))
	a.transition(r, Failed)
}

func (a *Agent) transition(r *run, to State) {
	from := r.state
	if !canTransition(from, to) {
		// A bug in the loop, not a runtime condition.
		panic(fmt.Sprintf("agent: illegal transition %s -> %s", from, to))
	}
	r.state = to
	a.log.Debug("state transition", logging.From(from.String()), logging.To(to.String()))
	a.log.Event(logging.EventAgentState, logging.From(from.String()), logging.To(to.String()), logging.Iteration(r.iterations))
}
