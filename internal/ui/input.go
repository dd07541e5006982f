package ui

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/abiosoft/readline"
	"golang.org/x/term"
)

// ErrInterrupt is returned by ReadLine when the user pressed Ctrl+C.
var ErrInterrupt = readline.ErrInterrupt

// LineReader supplies raw input lines to the interpreter.
type LineReader interface {
	// ReadLine returns the next line without its newline. It returns
	// io.EOF at end of input and ErrInterrupt on Ctrl+C.
	ReadLine() (string, error)
	SetPrompt(prompt string)
	// Ask shows prompt and reads one answer.
	Ask(prompt string) (string, error)
	Close() error
}

// NewLineReader returns a readline editor when stdin is a terminal and a
// plain buffered reader otherwise.
func NewLineReader(prompt string) (LineReader, error) {
	if term.IsTerminal(int(os.Stdin.Fd())) {
		return NewLineEditor(prompt)
	}
	return NewPlainReader(os.Stdin, nil), nil
}

// LineEditor is an interactive line editor with in-memory history.
type LineEditor struct {
	rl     *readline.Instance
	prompt string
}

// NewLineEditor creates an editor on the process's terminal.
func NewLineEditor(prompt string) (*LineEditor, error) {
	cfg := &readline.Config{
		Prompt:          prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
		HistoryLimit:    1000,
	}
	if err := cfg.Init(); err != nil {
		return nil, err
	}
	rl, err := readline.NewEx(cfg)
	if err != nil {
		return nil, err
	}
	return &LineEditor{rl: rl, prompt: prompt}, nil
}

// ReadLine reads one edited line.
func (e *LineEditor) ReadLine() (string, error) {
	line, err := e.rl.Readline()
	if err != nil {
		return "", err
	}
	return line, nil
}

// SetPrompt changes the prompt for the next ReadLine.
func (e *LineEditor) SetPrompt(prompt string) {
	e.prompt = prompt
	e.rl.SetPrompt(prompt)
}

// Ask reads one answer under a temporary prompt.
func (e *LineEditor) Ask(prompt string) (string, error) {
	e.rl.SetPrompt(prompt)
	defer e.rl.SetPrompt(e.prompt)
	line, err := e.rl.Readline()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close restores the terminal.
func (e *LineEditor) Close() error {
	return e.rl.Close()
}

// PlainReader reads lines from a non-terminal input such as a pipe.
type PlainReader struct {
	reader *bufio.Reader
	out    io.Writer
	prompt string
}

// NewPlainReader reads from r. Prompts go to out; a nil out prints none.
func NewPlainReader(r io.Reader, out io.Writer) *PlainReader {
	return &PlainReader{reader: bufio.NewReader(r), out: out}
}

// ReadLine reads a single line of input
func (h *PlainReader) ReadLine() (string, error) {
	if h.out != nil && h.prompt != "" {
		fmt.Fprint(h.out, h.prompt)
	}
	line, err := h.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) && line != "" {
			return strings.TrimRight(line, "\r"), nil
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// SetPrompt sets the prompt printed before each line.
func (h *PlainReader) SetPrompt(prompt string) {
	h.prompt = prompt
}

// Ask prints prompt and reads a trimmed answer.
func (h *PlainReader) Ask(prompt string) (string, error) {
	if h.out != nil {
		fmt.Fprint(h.out, prompt)
	}
	line, err := h.reader.ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// Close is a no-op.
func (h *PlainReader) Close() error {
	return nil
}
