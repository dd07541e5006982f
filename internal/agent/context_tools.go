package agent

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/permissions"
)

// ReadFileTool loads a file into the context store. The content itself
// reaches the model through the system prompt, so the result only
// acknowledges the load.
type ReadFileTool struct {
	Store *contextstore.Store
}

func (t *ReadFileTool) Name() string {
	return "read_file"
}

func (t *ReadFileTool) Description() string {
	return "Load a file into the working context. Its full content is shown in the <context> section of the system prompt on the next turn. Reading a path that is already loaded and unchanged adds nothing."
}

func (t *ReadFileTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"path": map[string]any{
				"type":        "string",
				"description": "The path to the file to read (relative or absolute).",
			},
		},
		"required": []string{"path"},
	}
}

func (t *ReadFileTool) Permission() permissions.Level {
	return permissions.LevelRead
}

func (t *ReadFileTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	path, ok := stringArg(input, "path", "filename")
	if !ok {
		return "", aerr.ToolInvalidInput(t.Name(), "path is required")
	}

	entry, changed, err := t.Store.ReadFile(path)
	if err != nil {
		return "", err
	}
	if !changed {
		return fmt.Sprintf("%s is already in context and has not changed", entry.Key), nil
	}
	return fmt.Sprintf("Loaded %s into context (%d bytes, ~%d tokens)", entry.Key, entry.Bytes, entry.Tokens), nil
}

// AddToContextTool stores a labelled note.
type AddToContextTool struct {
	Store *contextstore.Store
	notes atomic.Int64
}

func (t *AddToContextTool) Name() string {
	return "add_to_context"
}

func (t *AddToContextTool) Description() string {
	return "Save a note in the working context under a label. A note with the same label is replaced."
}

func (t *AddToContextTool) InputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"label": map[string]any{
				"type":        "string",
				"description": "Short key for the note. Defaults to note-N.",
			},
			"text": map[string]any{
				"type":        "string",
				"description": "The note content.",
			},
		},
		"required": []string{"text"},
	}
}

func (t *AddToContextTool) Permission() permissions.Level {
	return permissions.LevelContext
}

func (t *AddToContextTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	text, ok := stringArg(input, "text", "content")
	if !ok {
		return "", aerr.ToolInvalidInput(t.Name(), "text is required")
	}
	label, ok := stringArg(input, "label")
	if !ok {
		label = fmt.Sprintf("note-%d", t.notes.Add(1))
	}

	entry, err := t.Store.Add(label, text)
	if err != nil {
		return "", aerr.ToolInvalidInput(t.Name(), err.Error())
	}
	return fmt.Sprintf("Added note %q to context (~%d tokens)", entry.Key, entry.Tokens), nil
}

// ClearContextTool empties the context store and resets token counts.
type ClearContextTool struct {
	Store *contextstore.Store
}

func (t *ClearContextTool) Name() string {
	return "clear_context"
}

func (t *ClearContextTool) Description() string {
	return "Remove every file and note from the working context and reset the token counters."
}

func (t *ClearContextTool) InputSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

func (t *ClearContextTool) Permission() permissions.Level {
	return permissions.LevelContext
}

func (t *ClearContextTool) Execute(ctx context.Context, input map[string]any) (string, error) {
	n := t.Store.Clear()
	return fmt.Sprintf("Context cleared (%d entries removed)", n), nil
}
