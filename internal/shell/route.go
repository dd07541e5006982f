package shell

import (
	"context"
	"strings"

	"github.com/abdul-hamid-achik/aish/internal/logging"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

// Route says where an input line goes.
type Route int

const (
	// RouteShell runs the line as a pipeline.
	RouteShell Route = iota
	// RouteForced is a line prefixed with '!', run as a pipeline without it.
	RouteForced
	// RouteInstruction hands the line to the agent.
	RouteInstruction
)

func (r Route) String() string {
	switch r {
	case RouteShell:
		return "shell"
	case RouteForced:
		return "forced"
	case RouteInstruction:
		return "instruction"
	default:
		return "unknown"
	}
}

// Field returns the route as a log field.
func (r Route) Field() logging.Field {
	return logging.F("route", r.String())
}

// Route classifies a line. A line runs as a pipeline when its first word
// is a builtin, contains a '/', or resolves on PATH. Anything else is an
// instruction when a model client is configured. Prose that does not even
// tokenize, such as "what's here", is an instruction too.
func (in *Interpreter) Route(line string) Route {
	line = strings.TrimSpace(line)
	if strings.HasPrefix(line, "!") {
		return RouteForced
	}
	if !in.AgentAvailable() {
		return RouteShell
	}

	tokens, err := syntax.Tokenize(line)
	if err != nil {
		return RouteInstruction
	}
	if len(tokens) == 0 || tokens[0].Kind != syntax.Word {
		return RouteShell
	}
	words := syntax.Expand(tokens[:1], in)
	if len(words) == 0 {
		return RouteShell
	}

	name := words[0].Text()
	if in.builtins.Has(name) || strings.Contains(name, "/") {
		return RouteShell
	}
	if _, err := in.exec.LookPath(name); err == nil {
		return RouteShell
	}
	return RouteInstruction
}

// Handle routes and runs one input line and returns its status.
func (in *Interpreter) Handle(ctx context.Context, line string) int {
	line = strings.TrimSpace(line)
	if line == "" {
		return in.lastStatus
	}

	route := in.Route(line)
	in.log.Debug("routing line", route.Field(), logging.Command(line))
	switch route {
	case RouteForced:
		status, _ := in.ExecLine(ctx, strings.TrimSpace(line[1:]))
		return status
	case RouteInstruction:
		in.Instruct(ctx, line)
		return in.lastStatus
	default:
		status, _ := in.ExecLine(ctx, line)
		return status
	}
}
