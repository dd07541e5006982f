// Package permissions decides whether a tool call requested by the model
// may run.
package permissions

import (
	"fmt"
	"strings"
	"sync"
)

// Level is the kind of effect a tool has.
type Level int

const (
	LevelRead    Level = 0 // Reads files into the context store
	LevelContext Level = 1 // Mutates the context store only
	LevelExecute Level = 2 // Runs a shell command
)

func (l Level) String() string {
	switch l {
	case LevelRead:
		return "read"
	case LevelContext:
		return "context"
	case LevelExecute:
		return "execute"
	default:
		return "unknown"
	}
}

// Mode defines the permission checking mode
type Mode int

const (
	ModeAsk    Mode = iota // Prompt for execute, approve everything else
	ModeAuto               // Approve everything automatically
	ModeStrict             // Prompt for everything
)

func (m Mode) String() string {
	switch m {
	case ModeAsk:
		return "ask"
	case ModeAuto:
		return "auto"
	case ModeStrict:
		return "strict"
	default:
		return "unknown"
	}
}

// Decision represents a permission decision
type Decision int

const (
	DecisionAllow       Decision = iota // Allow this time
	DecisionAlwaysAllow                 // Always allow this tool
	DecisionDeny                        // Deny this time
	DecisionNeverAllow                  // Never allow this tool
)

// Prompter asks the user about one tool call and returns the raw answer.
type Prompter interface {
	Ask(toolName string, level Level, description string) (string, error)
}

// Policy manages permission checking
type Policy struct {
	mode     Mode
	prompter Prompter
	cache    map[string]Decision
	cacheMu  sync.RWMutex
}

// NewPolicy creates a new permission policy. A nil prompter denies every
// call that would need a prompt.
func NewPolicy(mode Mode, prompter Prompter) *Policy {
	return &Policy{
		mode:     mode,
		prompter: prompter,
		cache:    make(map[string]Decision),
	}
}

// Check checks if a tool execution is allowed
func (p *Policy) Check(toolName string, level Level, description string) (bool, error) {
	if p.mode == ModeAuto {
		return true, nil
	}

	if decision, ok := p.GetCachedDecision(toolName); ok {
		switch decision {
		case DecisionAlwaysAllow:
			return true, nil
		case DecisionNeverAllow:
			return false, nil
		}
	}

	if p.mode == ModeAsk && level < LevelExecute {
		return true, nil
	}

	return p.promptUser(toolName, level, description)
}

// promptUser asks the user for permission
func (p *Policy) promptUser(toolName string, level Level, description string) (bool, error) {
	if p.prompter == nil {
		return false, nil
	}

	response, err := p.prompter.Ask(toolName, level, description)
	if err != nil {
		return false, fmt.Errorf("failed to read response: %w", err)
	}

	switch strings.ToLower(strings.TrimSpace(response)) {
	case "y", "yes":
		return true, nil
	case "a", "always":
		p.CacheDecision(toolName, DecisionAlwaysAllow)
		return true, nil
	case "v", "never":
		p.CacheDecision(toolName, DecisionNeverAllow)
		return false, nil
	default:
		// n, no, and anything unrecognized
		return false, nil
	}
}

// GetMode returns the current permission mode
func (p *Policy) GetMode() Mode {
	return p.mode
}

// SetMode changes the permission mode
func (p *Policy) SetMode(mode Mode) {
	p.mode = mode
}

// CacheDecision remembers a decision for toolName.
func (p *Policy) CacheDecision(toolName string, d Decision) {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache[toolName] = d
}

// ClearCache clears all cached decisions
func (p *Policy) ClearCache() {
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.cache = make(map[string]Decision)
}

// GetCachedDecision returns a cached decision if it exists
func (p *Policy) GetCachedDecision(toolName string) (Decision, bool) {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	decision, ok := p.cache[toolName]
	return decision, ok
}
