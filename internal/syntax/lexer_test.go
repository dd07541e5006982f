package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

// shape renders tokens as "word" texts and operator spellings.
func shape(tokens []Token) []string {
	out := make([]string, len(tokens))
	for i, t := range tokens {
		if t.Kind == Word {
			out[i] = "w:" + t.Text()
		} else {
			out[i] = t.Kind.String()
		}
	}
	return out
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name string
		line string
		want []string
	}{
		{"simple", "ls -la /tmp", []string{"w:ls", "w:-la", "w:/tmp"}},
		{"extra whitespace", "  echo \t hi  ", []string{"w:echo", "w:hi"}},
		{"pipe without spaces", "a|b", []string{"w:a", "|", "w:b"}},
		{"redirections", "sort < in > out", []string{"w:sort", "<", "w:in", ">", "w:out"}},
		{"append", "echo x >>log", []string{"w:echo", "w:x", ">>", "w:log"}},
		{"background", "sleep 5 &", []string{"w:sleep", "w:5", "&"}},
		{"double quotes keep spaces", `echo "a b"`, []string{"w:echo", "w:a b"}},
		{"single quotes keep operators", `echo 'a | b > c &'`, []string{"w:echo", "w:a | b > c &"}},
		{"double quotes keep operators", `echo "x|y"`, []string{"w:echo", "w:x|y"}},
		{"adjacent quoting", `pre"mid"'post'`, []string{"w:premidpost"}},
		{"escaped space", `touch my\ file`, []string{"w:touch", "w:my file"}},
		{"escaped operator", `echo a\|b`, []string{"w:echo", "w:a|b"}},
		{"escape in double quotes", `echo "say \"hi\" \\ \n"`, []string{"w:echo", `w:say "hi" \ \n`}},
		{"empty quotes are a word", `printf '' ""`, []string{"w:printf", "w:", "w:"}},
		{"comment", "ls # list files", []string{"w:ls"}},
		{"hash inside word", "echo a#b", []string{"w:echo", "w:a#b"}},
		{"only comment", "# nothing here", []string{}},
		{"unicode", "echo héllo wörld", []string{"w:echo", "w:héllo", "w:wörld"}},
		{"escaped multibyte", `echo \é`, []string{"w:echo", "w:é"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.want, shape(tokens))
		})
	}
}

func TestTokenizeQuotingMetadata(t *testing.T) {
	tokens, err := Tokenize(`'$HOME' "$HOME" \$HOME $HOME`)
	require.NoError(t, err)
	require.Len(t, tokens, 4)

	assert.Equal(t, []Segment{{Text: "$HOME", Literal: true}}, tokens[0].Segments)
	assert.Equal(t, []Segment{{Text: "$HOME", Literal: false}}, tokens[1].Segments)
	assert.Equal(t, []Segment{{Text: "$", Literal: true}, {Text: "HOME", Literal: false}}, tokens[2].Segments)
	assert.False(t, tokens[3].Quoted)
	assert.True(t, tokens[0].Quoted && tokens[1].Quoted && tokens[2].Quoted)

	assert.Equal(t, 1, tokens[0].Pos)
	assert.Equal(t, 9, tokens[1].Pos)
}

func TestTokenizeErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		msg  string
	}{
		{"unterminated single", "echo 'abc", "unterminated single quote (column 6)"},
		{"unterminated double", `echo "abc`, "unterminated double quote (column 6)"},
		{"trailing backslash", `echo abc\`, "unexpected end of line after backslash (column 9)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tokens, err := Tokenize(tt.line)
			require.Error(t, err)
			assert.Nil(t, tokens)
			assert.True(t, aerr.IsCategory(err, aerr.CategorySyntax))
			assert.Equal(t, tt.msg, aerr.GetUserMessage(err))
		})
	}
}
