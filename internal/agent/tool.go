package agent

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	"github.com/abdul-hamid-achik/aish/internal/llm"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

// maxToolOutput bounds any single tool result sent back to the model.
const maxToolOutput = 50000

// Tool defines the interface all tools must implement
type Tool interface {
	Name() string
	Description() string
	InputSchema() map[string]any
	Execute(ctx context.Context, input map[string]any) (string, error)
	Permission() permissions.Level
}

// Registry manages available tools. Definitions are reported in
// registration order so the request sent to the model is stable.
type Registry struct {
	tools map[string]Tool
	order []string
	mu    sync.RWMutex
}

// NewRegistry creates an empty tool registry.
func NewRegistry() *Registry {
	return &Registry{
		tools: make(map[string]Tool),
	}
}

// Register adds a tool to the registry, replacing one with the same name.
func (r *Registry) Register(tool Tool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tools[tool.Name()]; !ok {
		r.order = append(r.order, tool.Name())
	}
	r.tools[tool.Name()] = tool
}

// Get returns a tool by name
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// List returns all registered tools in registration order.
func (r *Registry) List() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		tools = append(tools, r.tools[name])
	}
	return tools
}

// Definitions returns tool definitions for the model.
func (r *Registry) Definitions() []llm.ToolDefinition {
	tools := r.List()
	defs := make([]llm.ToolDefinition, 0, len(tools))
	for _, t := range tools {
		defs = append(defs, llm.ToolDefinition{
			Name:        t.Name(),
			Description: t.Description(),
			InputSchema: t.InputSchema(),
		})
	}
	return defs
}

// stringArg returns the first non-empty string found under keys.
func stringArg(input map[string]any, keys ...string) (string, bool) {
	for _, k := range keys {
		if s, ok := input[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

func truncateOutput(s string) string {
	if len(s) > maxToolOutput {
		return s[:maxToolOutput] + "\n... (output truncated)"
	}
	return s
}

// describeCall creates a human-readable description of a tool call.
func describeCall(name string, input map[string]any) string {
	switch name {
	case "read_file":
		if path, ok := stringArg(input, "path", "filename"); ok {
			return fmt.Sprintf("Read %s", path)
		}
	case "add_to_context":
		if label, ok := stringArg(input, "label"); ok {
			return fmt.Sprintf("Note %s", label)
		}
		return "Add note"
	case "clear_context":
		return "Clear context"
	case "execute_command":
		if cmd, ok := stringArg(input, "command"); ok {
			cmd = strings.TrimSpace(cmd)
			if len(cmd) > 50 {
				cmd = cmd[:50] + "..."
			}
			return fmt.Sprintf("Run: %s", cmd)
		}
	}
	return name
}

// NewDefaultRegistry registers the context tools and, when runner is
// non-nil, execute_command.
func NewDefaultRegistry(store *contextstore.Store, runner CommandRunner, vars syntax.Lookup) *Registry {
	r := NewRegistry()
	r.Register(&ReadFileTool{Store: store})
	r.Register(&AddToContextTool{Store: store})
	r.Register(&ClearContextTool{Store: store})
	if runner != nil {
		r.Register(&ExecuteCommandTool{Runner: runner, Vars: vars})
	}
	return r
}
