package script

import (
	"fmt"
	"strings"
)

// Kind tags a Block.
type Kind int

const (
	// Comment is documentation: shown, never executed.
	Comment Kind = iota
	// Code is an executable shell block, run line by line.
	Code
	// Instruction is prose handed to the agent loop as one instruction.
	Instruction
)

func (k Kind) String() string {
	switch k {
	case Comment:
		return "comment"
	case Code:
		return "code"
	case Instruction:
		return "instruction"
	default:
		return "unknown"
	}
}

// Block is one classified unit of a script, in document order.
type Block struct {
	Kind Kind
	// Lang is the fence language tag of a Code block, possibly empty.
	Lang string
	// Text is markdown for a Comment, the body for Code, and the
	// instruction for an Instruction.
	Text string
	// Line is the 1-based source line the block starts on.
	Line int
}

// String renders the block on one line for fixtures and traces.
func (b Block) String() string {
	if b.Kind == Code {
		return fmt.Sprintf("%s lang=%q %q", b.Kind, b.Lang, b.Text)
	}
	return fmt.Sprintf("%s %q", b.Kind, b.Text)
}

// Lines returns the non-blank lines of a Code block with their source
// line numbers.
func (b Block) Lines() []Line {
	var out []Line
	for i, l := range strings.Split(b.Text, "\n") {
		if strings.TrimSpace(l) == "" {
			continue
		}
		out = append(out, Line{Text: strings.TrimRight(l, " \t\r"), Number: b.Line + i})
	}
	return out
}

// Line is one command line of a Code block.
type Line struct {
	Text   string
	Number int
}
