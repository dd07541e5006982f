package syntax

import (
	"fmt"
	"strings"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

// Parse tokenizes, expands and builds line. A nil pipeline with a nil
// error means the line held no command (blank or comment only).
func Parse(line string, vars Lookup) (*Pipeline, error) {
	tokens, err := Tokenize(line)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, nil
	}
	return Build(Expand(tokens, vars), strings.TrimSpace(line))
}

// Build groups expanded tokens into a Pipeline.
//
// The stream is split on | into stages. Inside a stage each redirection
// operator must be followed by its target word; the remaining words form
// argv in order. A stage without argv is a syntax error, as is a & that is
// not the last token or a second redirection of the same stream.
func Build(tokens []Token, source string) (*Pipeline, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	p := &Pipeline{Source: source}

	if last := tokens[len(tokens)-1]; last.Kind == Background {
		p.Background = true
		tokens = tokens[:len(tokens)-1]
	}

	cur := Stage{}
	// pos of the token that opened the current stage, for error columns
	stagePos := 1
	if len(tokens) > 0 {
		stagePos = tokens[0].Pos
	}

	finish := func(pos int) error {
		if len(cur.Argv) == 0 {
			return aerr.Syntax("missing command", pos)
		}
		cur.Index = len(p.Stages)
		p.Stages = append(p.Stages, cur)
		cur = Stage{}
		return nil
	}

	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		switch {
		case t.Kind == Word:
			cur.Argv = append(cur.Argv, t.Text())
		case t.Kind == Pipe:
			if err := finish(stagePos); err != nil {
				return nil, err
			}
			if i+1 < len(tokens) {
				stagePos = tokens[i+1].Pos
			} else {
				stagePos = t.Pos + 1
			}
		case t.Kind.IsRedirect():
			if i+1 >= len(tokens) || tokens[i+1].Kind != Word {
				return nil, aerr.Syntax(fmt.Sprintf("missing redirection target after `%s'", t.Kind), t.Pos)
			}
			r := redirectionFor(t.Kind, tokens[i+1].Text())
			if _, dup := cur.Redirect(r.Stream); dup {
				return nil, aerr.Syntax(fmt.Sprintf("duplicate %s redirection", streamName(r.Stream)), t.Pos)
			}
			cur.Redirections = append(cur.Redirections, r)
			i++
		case t.Kind == Background:
			return nil, aerr.Syntax("unexpected `&'", t.Pos)
		}
	}

	if err := finish(stagePos); err != nil {
		return nil, err
	}
	return p, nil
}

func redirectionFor(kind Kind, target string) Redirection {
	switch kind {
	case RedirectIn:
		return Redirection{Target: target, Mode: ModeRead, Stream: Stdin}
	case RedirectAppend:
		return Redirection{Target: target, Mode: ModeAppend, Stream: Stdout}
	default:
		return Redirection{Target: target, Mode: ModeTruncate, Stream: Stdout}
	}
}

func streamName(s Stream) string {
	if s == Stdin {
		return "input"
	}
	return "output"
}
