package syntax

import (
	"testing"

	"github.com/anmitsu/go-shlex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

func TestParse(t *testing.T) {
	env := vars(map[string]string{"OUT": "result.txt"})

	tests := []struct {
		name string
		line string
		want *Pipeline
	}{
		{
			name: "single stage",
			line: "ls -l",
			want: &Pipeline{Stages: []Stage{{Index: 0, Argv: []string{"ls", "-l"}}}},
		},
		{
			name: "two stages",
			line: `echo "a b" | wc -w`,
			want: &Pipeline{Stages: []Stage{
				{Index: 0, Argv: []string{"echo", "a b"}},
				{Index: 1, Argv: []string{"wc", "-w"}},
			}},
		},
		{
			name: "redirections anywhere in the stage",
			line: "< in.txt sort -r > $OUT",
			want: &Pipeline{Stages: []Stage{{
				Index: 0,
				Argv:  []string{"sort", "-r"},
				Redirections: []Redirection{
					{Target: "in.txt", Mode: ModeRead, Stream: Stdin},
					{Target: "result.txt", Mode: ModeTruncate, Stream: Stdout},
				},
			}}},
		},
		{
			name: "append in the middle of a pipeline",
			line: "cat a >> log | wc",
			want: &Pipeline{Stages: []Stage{
				{Index: 0, Argv: []string{"cat", "a"}, Redirections: []Redirection{
					{Target: "log", Mode: ModeAppend, Stream: Stdout},
				}},
				{Index: 1, Argv: []string{"wc"}},
			}},
		},
		{
			name: "background",
			line: "sleep 5 &",
			want: &Pipeline{Background: true, Stages: []Stage{{Index: 0, Argv: []string{"sleep", "5"}}}},
		},
		{
			name: "quoted operators stay words",
			line: `grep '|' file "&"`,
			want: &Pipeline{Stages: []Stage{{Index: 0, Argv: []string{"grep", "|", "file", "&"}}}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.line, env)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.want.Stages, got.Stages)
			assert.Equal(t, tt.want.Background, got.Background)
			assert.Equal(t, tt.line, got.Source)
		})
	}
}

func TestParseEmpty(t *testing.T) {
	for _, line := range []string{"", "   ", "# just a comment", "$UNSET"} {
		p, err := Parse(line, nil)
		assert.NoError(t, err, line)
		assert.Nil(t, p, line)
	}
}

func TestParseSyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		line string
		msg  string
	}{
		{"leading pipe", "| wc", "missing command (column 1)"},
		{"trailing pipe", "ls |", "missing command (column 5)"},
		{"empty between pipes", "ls | | wc", "missing command (column 6)"},
		{"only background", "&", "missing command (column 1)"},
		{"redirection without command", "> out.txt", "missing command (column 1)"},
		{"background not last", "sleep 1 & echo hi", "unexpected `&' (column 9)"},
		{"double background", "sleep 1 & &", "unexpected `&' (column 9)"},
		{"missing target", "echo hi >", "missing redirection target after `>' (column 9)"},
		{"target is operator", "cat < | wc", "missing redirection target after `<' (column 5)"},
		{"unset target", "echo hi > $NOPE", "missing redirection target after `>' (column 9)"},
		{"duplicate output", "echo hi > a >> b", "duplicate output redirection (column 13)"},
		{"duplicate input", "cat < a < b", "duplicate input redirection (column 9)"},
		{"unterminated quote", `echo "oops`, "unterminated double quote (column 6)"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(tt.line, nil)
			require.Error(t, err)
			assert.Nil(t, p)
			assert.True(t, aerr.IsCategory(err, aerr.CategorySyntax), "got %v", err)
			assert.Equal(t, tt.msg, aerr.GetUserMessage(err))
		})
	}
}

func TestCanonicalRoundTrip(t *testing.T) {
	env := vars(map[string]string{"HOME": "/home/ada", "Q": `it's "quoted"`})

	lines := []string{
		"ls",
		`echo "a b" | wc -w`,
		"sort < in.txt > out.txt",
		"cat a >> 'log file' | grep -v '#' | wc -l &",
		`echo $HOME "$Q" 'single $HOME'`,
		`printf '' "" x`,
		`echo a\|b c\&d`,
		`echo "tab	inside" 'new
line'`,
		"echo héllo | tr a-z A-Z",
	}

	for _, line := range lines {
		t.Run(line, func(t *testing.T) {
			first, err := Parse(line, env)
			require.NoError(t, err)

			canonical := first.String()
			second, err := Parse(canonical, nil)
			require.NoError(t, err, "canonical form %q must parse", canonical)

			assert.Equal(t, first.Stages, second.Stages)
			assert.Equal(t, first.Background, second.Background)
			assert.Equal(t, canonical, second.String(), "serialization must be stable")
		})
	}
}

// The canonical form of a stage must split into the same words with an
// independent POSIX splitter. go-shlex drops empty words, so '' arguments
// are left to TestCanonicalRoundTrip.
func TestCanonicalFormMatchesPosixSplitting(t *testing.T) {
	argvs := [][]string{
		{"echo", "a b"},
		{"grep", "-e", "it's"},
		{"printf", "%s\n"},
		{"awk", "{print $1}"},
		{"touch", "#notacomment"},
	}

	for _, argv := range argvs {
		st := Stage{Argv: argv}
		words, err := shlex.Split(st.String(), true)
		require.NoError(t, err)
		assert.Equal(t, argv, words, "serialized as %q", st.String())
	}
}

func TestQuote(t *testing.T) {
	tests := map[string]string{
		"plain":     "plain",
		"a/b.c-d":   "a/b.c-d",
		"":          "''",
		"a b":       "'a b'",
		"it's":      `'it'\''s'`,
		"$HOME":     "'$HOME'",
		"x|y":       "'x|y'",
		"#comment":  "'#comment'",
		"key=value": "key=value",
	}
	for in, want := range tests {
		assert.Equal(t, want, Quote(in), in)
	}
}

func TestStageRedirect(t *testing.T) {
	p, err := Parse("sort < a > b", nil)
	require.NoError(t, err)

	in, ok := p.Stages[0].Redirect(Stdin)
	require.True(t, ok)
	assert.Equal(t, "a", in.Target)

	out, ok := p.Stages[0].Redirect(Stdout)
	require.True(t, ok)
	assert.Equal(t, ModeTruncate, out.Mode)
	assert.Equal(t, "sort", p.Stages[0].Name())
}
