// Package syntax turns a command line into a Pipeline: tokenizing with
// quote and escape awareness, expanding $NAME references, and grouping the
// result into stages with their redirections.
package syntax

import "strings"

// Kind tags a token as a word or a structural operator.
type Kind int

const (
	Word Kind = iota
	Pipe
	RedirectIn
	RedirectOut
	RedirectAppend
	Background
)

// String returns the operator spelling, or "word".
func (k Kind) String() string {
	switch k {
	case Pipe:
		return "|"
	case RedirectIn:
		return "<"
	case RedirectOut:
		return ">"
	case RedirectAppend:
		return ">>"
	case Background:
		return "&"
	default:
		return "word"
	}
}

// IsRedirect reports whether k opens a file for a stage.
func (k Kind) IsRedirect() bool {
	return k == RedirectIn || k == RedirectOut || k == RedirectAppend
}

// Segment is a run of word text sharing one quoting context.
type Segment struct {
	Text string
	// Literal text came from single quotes or a backslash escape and is
	// never expanded.
	Literal bool
}

// Token is one lexical unit of a command line.
type Token struct {
	Kind     Kind
	Segments []Segment
	// Quoted is set when any part of the word was quoted or escaped, so an
	// empty result still counts as an argument.
	Quoted bool
	// Pos is the 1-based byte column where the token starts.
	Pos int
}

// Text returns the word text with quoting removed, or the operator spelling.
func (t Token) Text() string {
	if t.Kind != Word {
		return t.Kind.String()
	}
	if len(t.Segments) == 1 {
		return t.Segments[0].Text
	}
	var sb strings.Builder
	for _, s := range t.Segments {
		sb.WriteString(s.Text)
	}
	return sb.String()
}
