package syntax

import (
	"unicode/utf8"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

// Tokenize splits a raw line into words and operators.
//
// Single quotes keep their contents verbatim. Double quotes keep their
// contents verbatim except that \" \\ \$ and \` are unescaped, and $
// references are left for Expand. Outside quotes a backslash makes the next
// character literal and an unquoted # at the start of a word begins a
// comment. The operators | < > >> & are only recognized outside quotes.
func Tokenize(line string) ([]Token, error) {
	l := &lexer{src: line}
	if err := l.run(); err != nil {
		return nil, err
	}
	return l.tokens, nil
}

type lexer struct {
	src    string
	tokens []Token

	// word under construction
	inWord   bool
	quoted   bool
	start    int
	segments []Segment
}

func (l *lexer) run() error {
	for i := 0; i < len(l.src); i++ {
		c := l.src[i]
		switch c {
		case ' ', '\t', '\n', '\r':
			l.endWord()
		case '#':
			if !l.inWord {
				return nil
			}
			l.appendText("#", false)
		case '\\':
			if i+1 >= len(l.src) {
				return aerr.Syntax("unexpected end of line after backslash", i+1)
			}
			_, size := utf8.DecodeRuneInString(l.src[i+1:])
			l.begin(i)
			l.quoted = true
			l.appendText(l.src[i+1:i+1+size], true)
			i += size
		case '\'':
			end := indexByteFrom(l.src, i+1, '\'')
			if end < 0 {
				return aerr.Syntax("unterminated single quote", i+1)
			}
			l.begin(i)
			l.quoted = true
			l.appendText(l.src[i+1:end], true)
			i = end
		case '"':
			l.begin(i)
			l.quoted = true
			end, err := l.doubleQuoted(i)
			if err != nil {
				return err
			}
			i = end
		case '|':
			l.emitOp(Pipe, i)
		case '<':
			l.emitOp(RedirectIn, i)
		case '>':
			if i+1 < len(l.src) && l.src[i+1] == '>' {
				l.emitOp(RedirectAppend, i)
				i++
			} else {
				l.emitOp(RedirectOut, i)
			}
		case '&':
			l.emitOp(Background, i)
		default:
			l.begin(i)
			l.appendText(l.src[i:i+1], false)
		}
	}
	l.endWord()
	return nil
}

// doubleQuoted consumes a "..." span opening at src[open] and returns the
// index of the closing quote.
func (l *lexer) doubleQuoted(open int) (int, error) {
	for i := open + 1; i < len(l.src); i++ {
		c := l.src[i]
		switch {
		case c == '"':
			return i, nil
		case c == '\\' && i+1 < len(l.src) && isDoubleQuoteEscape(l.src[i+1]):
			l.appendText(l.src[i+1:i+2], true)
			i++
		default:
			l.appendText(l.src[i:i+1], false)
		}
	}
	return 0, aerr.Syntax("unterminated double quote", open+1)
}

func isDoubleQuoteEscape(c byte) bool {
	return c == '"' || c == '\\' || c == '$' || c == '`'
}

func (l *lexer) begin(i int) {
	if !l.inWord {
		l.inWord = true
		l.start = i
	}
}

// appendText extends the current word, merging runs with the same quoting.
func (l *lexer) appendText(text string, literal bool) {
	if n := len(l.segments); n > 0 && l.segments[n-1].Literal == literal {
		l.segments[n-1].Text += text
		return
	}
	l.segments = append(l.segments, Segment{Text: text, Literal: literal})
}

func (l *lexer) endWord() {
	if !l.inWord {
		return
	}
	segs := l.segments
	if len(segs) == 0 {
		// "" or '' on its own
		segs = []Segment{{Literal: true}}
	}
	l.tokens = append(l.tokens, Token{
		Kind:     Word,
		Segments: segs,
		Quoted:   l.quoted,
		Pos:      l.start + 1,
	})
	l.inWord = false
	l.quoted = false
	l.segments = nil
}

func (l *lexer) emitOp(kind Kind, i int) {
	l.endWord()
	l.tokens = append(l.tokens, Token{Kind: kind, Pos: i + 1})
}

func indexByteFrom(s string, from int, c byte) int {
	for i := from; i < len(s); i++ {
		if s[i] == c {
			return i
		}
	}
	return -1
}
