package syntax

import "strings"

// Lookup resolves a variable name for expansion.
type Lookup interface {
	Lookup(name string) (string, bool)
}

// LookupFunc adapts a plain function to Lookup.
type LookupFunc func(name string) (string, bool)

// Lookup calls f(name).
func (f LookupFunc) Lookup(name string) (string, bool) {
	return f(name)
}

// Expand substitutes $NAME and ${NAME} in every word token using vars.
// Unset names expand to the empty string. Text produced by a substitution
// is not scanned again. Literal segments pass through untouched.
//
// An unquoted word that expands to nothing is dropped, the way `echo $UNSET x`
// passes a single argument. A quoted empty word ("") is kept.
func Expand(tokens []Token, vars Lookup) []Token {
	out := make([]Token, 0, len(tokens))
	for _, t := range tokens {
		if t.Kind != Word {
			out = append(out, t)
			continue
		}

		var sb strings.Builder
		for _, seg := range t.Segments {
			if seg.Literal {
				sb.WriteString(seg.Text)
				continue
			}
			expandInto(&sb, seg.Text, vars)
		}

		text := sb.String()
		if text == "" && !t.Quoted {
			continue
		}
		out = append(out, Token{
			Kind:     Word,
			Segments: []Segment{{Text: text, Literal: true}},
			Quoted:   t.Quoted,
			Pos:      t.Pos,
		})
	}
	return out
}

// ExpandString expands references in s as if it were one unquoted segment.
func ExpandString(s string, vars Lookup) string {
	var sb strings.Builder
	expandInto(&sb, s, vars)
	return sb.String()
}

func expandInto(sb *strings.Builder, s string, vars Lookup) {
	for i := 0; i < len(s); i++ {
		if s[i] != '$' || i+1 >= len(s) {
			sb.WriteByte(s[i])
			continue
		}

		next := s[i+1]
		switch {
		case next == '{':
			end := strings.IndexByte(s[i+2:], '}')
			name := ""
			if end >= 0 {
				name = s[i+2 : i+2+end]
			}
			if end < 0 || !(isName(name) || isSpecial(name)) {
				// not a reference; keep the text as written
				sb.WriteByte('$')
				continue
			}
			sb.WriteString(lookup(vars, name))
			i += end + 2
		case next == '?' || next == '$' || isDigit(next):
			sb.WriteString(lookup(vars, s[i+1:i+2]))
			i++
		case isNameStart(next):
			j := i + 2
			for j < len(s) && isNameChar(s[j]) {
				j++
			}
			sb.WriteString(lookup(vars, s[i+1:j]))
			i = j - 1
		default:
			sb.WriteByte('$')
		}
	}
}

func lookup(vars Lookup, name string) string {
	if vars == nil {
		return ""
	}
	v, _ := vars.Lookup(name)
	return v
}

// IsName reports whether s is a valid variable name.
func IsName(s string) bool {
	return isName(s)
}

func isName(s string) bool {
	if s == "" || !isNameStart(s[0]) {
		return false
	}
	for i := 1; i < len(s); i++ {
		if !isNameChar(s[i]) {
			return false
		}
	}
	return true
}

func isSpecial(s string) bool {
	return s == "?" || s == "$" || len(s) == 1 && isDigit(s[0])
}

func isNameStart(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

func isNameChar(c byte) bool {
	return isNameStart(c) || isDigit(c)
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
