package syntax

import "strings"

// Mode is how a redirection target is opened.
type Mode int

const (
	ModeRead Mode = iota
	ModeTruncate
	ModeAppend
)

// Stream is the standard descriptor a redirection replaces.
type Stream int

const (
	Stdin Stream = iota
	Stdout
)

// Redirection replaces one standard stream of a stage with a file.
type Redirection struct {
	Target string
	Mode   Mode
	Stream Stream
}

// Operator returns the redirection's spelling.
func (r Redirection) Operator() string {
	switch r.Mode {
	case ModeAppend:
		return ">>"
	case ModeTruncate:
		return ">"
	default:
		return "<"
	}
}

// Stage is one command of a pipeline.
type Stage struct {
	Index        int
	Argv         []string
	Redirections []Redirection
}

// Name returns argv[0].
func (s Stage) Name() string {
	return s.Argv[0]
}

// Redirect returns the stage's redirection for stream, if any.
func (s Stage) Redirect(stream Stream) (Redirection, bool) {
	for _, r := range s.Redirections {
		if r.Stream == stream {
			return r, true
		}
	}
	return Redirection{}, false
}

// Pipeline is one or more stages connected left to right.
type Pipeline struct {
	Stages     []Stage
	Background bool
	// Source is the line the pipeline was parsed from, for job display.
	Source string
}

// String returns the canonical form of the pipeline. Every word is quoted
// so that parsing the result with no variables set yields the same
// stages and background flag.
func (p *Pipeline) String() string {
	var sb strings.Builder
	for i, st := range p.Stages {
		if i > 0 {
			sb.WriteString(" | ")
		}
		sb.WriteString(st.String())
	}
	if p.Background {
		sb.WriteString(" &")
	}
	return sb.String()
}

// String returns the canonical form of one stage.
func (s Stage) String() string {
	parts := make([]string, 0, len(s.Argv)+2*len(s.Redirections))
	for _, a := range s.Argv {
		parts = append(parts, Quote(a))
	}
	for _, r := range s.Redirections {
		parts = append(parts, r.Operator(), Quote(r.Target))
	}
	return strings.Join(parts, " ")
}

// Quote returns s as a single shell word. Words made only of safe
// characters are returned unchanged; anything else is single-quoted.
func Quote(s string) string {
	if s == "" {
		return "''"
	}
	safe := true
	for i := 0; i < len(s); i++ {
		if !isSafeWordByte(s[i]) {
			safe = false
			break
		}
	}
	if safe {
		return s
	}
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func isSafeWordByte(c byte) bool {
	if isNameChar(c) {
		return true
	}
	switch c {
	case '@', '%', '+', '=', ':', ',', '.', '/', '-':
		return true
	}
	return false
}
