package script

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderBlocks(blocks []Block) []byte {
	var sb strings.Builder
	for _, b := range blocks {
		sb.WriteString(b.String())
		sb.WriteString("\n")
	}
	return []byte(sb.String())
}

func TestParse_Golden(t *testing.T) {
	g := goldie.New(
		t,
		goldie.WithFixtureDir(filepath.Join("testdata", "golden")),
		goldie.WithDiffEngine(goldie.ColoredDiff),
	)

	for _, name := range []string{"literate", "mixed"} {
		t.Run(name, func(t *testing.T) {
			src, err := os.ReadFile(filepath.Join("testdata", name+".md"))
			require.NoError(t, err)

			g.Assert(t, name, renderBlocks(Parse(src, DefaultOptions())))
		})
	}
}

func TestParse_DocumentOrder(t *testing.T) {
	src := "# Setup\n\n```sh\nmkdir -p build\n```\n\nlist the build directory contents\n\n```sh\nls build\n```\n"
	blocks := Parse([]byte(src), DefaultOptions())

	require.Len(t, blocks, 4)
	kinds := []Kind{blocks[0].Kind, blocks[1].Kind, blocks[2].Kind, blocks[3].Kind}
	assert.Equal(t, []Kind{Comment, Code, Instruction, Code}, kinds)
}

func TestParse_LineNumbers(t *testing.T) {
	src := "# Title\n\nrun the tests please\n\n```sh\necho one\n\necho two\n```\n"
	blocks := Parse([]byte(src), DefaultOptions())
	require.Len(t, blocks, 3)

	assert.Equal(t, 1, blocks[0].Line)
	assert.Equal(t, 3, blocks[1].Line)
	assert.Equal(t, 6, blocks[2].Line)

	lines := blocks[2].Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, Line{Text: "echo one", Number: 6}, lines[0])
	assert.Equal(t, Line{Text: "echo two", Number: 8}, lines[1])
}

func TestParse_InstructionThreshold(t *testing.T) {
	tests := []struct {
		name     string
		minWords int
		text     string
		want     Kind
	}{
		{"single word under default", 0, "Done.", Comment},
		{"two words at default", 0, "Build it.", Instruction},
		{"raised threshold", 4, "Build it now.", Comment},
		{"meets raised threshold", 4, "Build it right now.", Instruction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := DefaultOptions()
			opts.MinInstructionWords = tt.minWords
			blocks := Parse([]byte(tt.text+"\n"), opts)
			require.Len(t, blocks, 1)
			assert.Equal(t, tt.want, blocks[0].Kind)
		})
	}
}

func TestParse_ShellLanguages(t *testing.T) {
	tests := []struct {
		lang string
		want Kind
	}{
		{"", Code},
		{"sh", Code},
		{"bash", Code},
		{"Zsh", Code},
		{"console", Code},
		{"go", Comment},
		{"json", Comment},
	}

	for _, tt := range tests {
		t.Run("lang="+tt.lang, func(t *testing.T) {
			src := "```" + tt.lang + "\necho hi\n```\n"
			blocks := Parse([]byte(src), DefaultOptions())
			require.Len(t, blocks, 1)
			assert.Equal(t, tt.want, blocks[0].Kind)
		})
	}
}

func TestParse_CustomShellLanguages(t *testing.T) {
	opts := Options{ShellLanguages: []string{"fish"}}
	blocks := Parse([]byte("```fish\nset x 1\n```\n\n```sh\necho\n```\n"), opts)
	require.Len(t, blocks, 2)
	assert.Equal(t, Code, blocks[0].Kind)
	assert.Equal(t, Comment, blocks[1].Kind)
}

func TestParse_SkipsEmpty(t *testing.T) {
	assert.Empty(t, Parse([]byte(""), DefaultOptions()))
	assert.Empty(t, Parse([]byte("---\n\n```sh\n```\n"), DefaultOptions()))
}

func TestIsLiterate(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"deploy.md", true},
		{"NOTES.MD", true},
		{"run.markdown", true},
		{"task.aish", true},
		{"build.sh", false},
		{"script", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, IsLiterate(tt.name), tt.name)
	}
}

func TestPlain(t *testing.T) {
	blocks := Plain([]byte("echo a\necho b\n"))
	require.Len(t, blocks, 1)
	assert.Equal(t, Code, blocks[0].Kind)
	assert.Len(t, blocks[0].Lines(), 2)
}
