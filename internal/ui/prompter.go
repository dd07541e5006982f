package ui

import (
	"github.com/abdul-hamid-achik/aish/internal/permissions"
)

// Confirmer asks the user to approve tool calls.
type Confirmer struct {
	output *Output
	input  LineReader
}

// NewConfirmer returns a permissions.Prompter reading answers from input.
func NewConfirmer(output *Output, input LineReader) *Confirmer {
	return &Confirmer{output: output, input: input}
}

// Ask shows the pending call and reads y/n/a/v.
func (c *Confirmer) Ask(toolName string, level permissions.Level, description string) (string, error) {
	c.output.PermissionPrompt(toolName, level, description)
	return c.input.Ask("  allow? [y]es / [n]o / [a]lways / ne[v]er: ")
}
