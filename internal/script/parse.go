package script

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Options controls block classification.
type Options struct {
	// ShellLanguages are fence tags treated as executable. An untagged
	// fence is always executable.
	ShellLanguages []string
	// MinInstructionWords is the word count from which a paragraph is an
	// instruction rather than a comment.
	MinInstructionWords int
}

// DefaultOptions returns the classification defaults.
func DefaultOptions() Options {
	return Options{
		ShellLanguages:      []string{"sh", "bash", "shell", "aish", "zsh", "console"},
		MinInstructionWords: 2,
	}
}

// IsLiterate reports whether a script file is a markdown document rather
// than a plain shell script.
func IsLiterate(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".md", ".markdown", ".aish":
		return true
	}
	return false
}

// Plain wraps a plain shell script as a single Code block.
func Plain(src []byte) []Block {
	return []Block{{Kind: Code, Lang: "sh", Text: string(src), Line: 1}}
}

// Parse classifies a markdown document into blocks in document order.
//
// Headings, block quotes, HTML and fences tagged with a non-shell
// language are comments. Untagged fences, shell-tagged fences and
// indented code are code. A paragraph with at least MinInstructionWords
// words is an instruction, a shorter one is a comment. A list is an
// instruction as a whole.
func Parse(src []byte, opts Options) []Block {
	if opts.MinInstructionWords <= 0 {
		opts.MinInstructionWords = DefaultOptions().MinInstructionWords
	}
	shell := make(map[string]bool, len(opts.ShellLanguages))
	for _, l := range opts.ShellLanguages {
		shell[strings.ToLower(l)] = true
	}

	p := &parser{src: src, shell: shell, opts: opts}
	doc := goldmark.New().Parser().Parse(text.NewReader(src))
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		p.block(n)
	}
	return p.blocks
}

type parser struct {
	src    []byte
	shell  map[string]bool
	opts   Options
	blocks []Block
}

func (p *parser) emit(b Block) {
	if strings.TrimSpace(b.Text) == "" {
		return
	}
	p.blocks = append(p.blocks, b)
}

func (p *parser) block(n ast.Node) {
	switch n := n.(type) {
	case *ast.Heading:
		p.emit(Block{
			Kind: Comment,
			Text: strings.Repeat("#", n.Level) + " " + p.inline(n),
			Line: p.line(n),
		})

	case *ast.FencedCodeBlock:
		lang := string(n.Language(p.src))
		body := p.raw(n)
		line := p.line(n)
		if n.Info != nil {
			line = p.lineAt(n.Info.Segment.Start) + 1
		}
		if lang == "" || p.shell[strings.ToLower(lang)] {
			p.emit(Block{Kind: Code, Lang: lang, Text: body, Line: line})
			return
		}
		p.emit(Block{Kind: Comment, Text: "```" + lang + "\n" + body + "```", Line: line - 1})

	case *ast.CodeBlock:
		p.emit(Block{Kind: Code, Text: p.raw(n), Line: p.line(n)})

	case *ast.Paragraph:
		txt := p.inline(n)
		kind := Comment
		if len(strings.Fields(txt)) >= p.opts.MinInstructionWords {
			kind = Instruction
		}
		p.emit(Block{Kind: kind, Text: txt, Line: p.line(n)})

	case *ast.List:
		var sb strings.Builder
		p.list(&sb, n, "")
		p.emit(Block{Kind: Instruction, Text: strings.TrimRight(sb.String(), "\n"), Line: p.firstLine(n)})

	case *ast.Blockquote:
		var sb strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			sb.WriteString("> " + p.inline(c) + "\n")
		}
		p.emit(Block{Kind: Comment, Text: strings.TrimRight(sb.String(), "\n"), Line: p.firstLine(n)})

	case *ast.HTMLBlock:
		html := p.raw(n)
		if n.HasClosure() {
			html += string(n.ClosureLine.Value(p.src))
		}
		p.emit(Block{Kind: Comment, Text: strings.TrimRight(html, "\n"), Line: p.line(n)})

	case *ast.ThematicBreak:
		// separators carry nothing
	}
}

// list renders list items as "- item" / "1. item" lines, nesting by indent.
func (p *parser) list(sb *strings.Builder, l *ast.List, indent string) {
	num := l.Start
	for item := l.FirstChild(); item != nil; item = item.NextSibling() {
		marker := "- "
		if l.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		first := true
		for c := item.FirstChild(); c != nil; c = c.NextSibling() {
			if sub, ok := c.(*ast.List); ok {
				p.list(sb, sub, indent+"  ")
				continue
			}
			prefix := indent + "  "
			if first {
				prefix = indent + marker
				first = false
			}
			sb.WriteString(prefix + p.inline(c) + "\n")
		}
	}
}

// inline returns the source text of a leaf block's lines joined by
// newlines, inline markup left as written.
func (p *parser) inline(n ast.Node) string {
	lines := n.Lines()
	parts := make([]string, 0, lines.Len())
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		parts = append(parts, strings.TrimSpace(string(seg.Value(p.src))))
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// raw returns a code block's lines verbatim.
func (p *parser) raw(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(p.src))
	}
	return buf.String()
}

// line returns the source line of a leaf block's first segment.
func (p *parser) line(n ast.Node) int {
	if n.Lines().Len() == 0 {
		return 0
	}
	return p.lineAt(n.Lines().At(0).Start)
}

// firstLine finds the first leaf descendant with a position.
func (p *parser) firstLine(n ast.Node) int {
	if n.Lines().Len() > 0 {
		return p.line(n)
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if l := p.firstLine(c); l > 0 {
			return l
		}
	}
	return 0
}

func (p *parser) lineAt(offset int) int {
	if offset > len(p.src) {
		offset = len(p.src)
	}
	return bytes.Count(p.src[:offset], []byte("\n")) + 1
}
