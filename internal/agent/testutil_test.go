package agent

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/spf13/afero"

	"github.com/abdul-hamid-achik/aish/internal/contextstore"
	"github.com/abdul-hamid-achik/aish/internal/executor"
	"github.com/abdul-hamid-achik/aish/internal/llm"
	"github.com/abdul-hamid-achik/aish/internal/syntax"
)

// recordingOutput implements Output and keeps every call as a line.
type recordingOutput struct {
	mu     sync.Mutex
	events []string
}

func (o *recordingOutput) add(format string, args ...any) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, fmt.Sprintf(format, args...))
}

func (o *recordingOutput) Thinking(bool)                     {}
func (o *recordingOutput) Text(text string)                  { o.add("text:%s", text) }
func (o *recordingOutput) ToolCall(name, description string) { o.add("call:%s:%s", name, description) }
func (o *recordingOutput) Usage(b contextstore.Budget)       { o.add("usage:%s", b.Indicator()) }
func (o *recordingOutput) Answer(text string)                { o.add("answer:%s", text) }
func (o *recordingOutput) Failed(err error)                  { o.add("failed:%v", err) }

func (o *recordingOutput) ToolResult(name, result string, isError bool) {
	tag := "ok"
	if isError {
		tag = "err"
	}
	o.add("result:%s:%s:%s", name, tag, result)
}

func (o *recordingOutput) lines() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

// fakeRunner implements CommandRunner with a canned capture.
type fakeRunner struct {
	capture executor.Capture
	err     error
	ran     []*syntax.Pipeline
}

func (r *fakeRunner) RunCapture(ctx context.Context, p *syntax.Pipeline) (executor.Capture, error) {
	r.ran = append(r.ran, p)
	return r.capture, r.err
}

type testAgent struct {
	*Agent
	mock   *llm.MockLLMClient
	fs     afero.Fs
	out    *recordingOutput
	runner *fakeRunner
}

// newTestAgent creates an Agent wired with mock dependencies for testing.
func newTestAgent(t *testing.T, files map[string]string, responses ...*llm.Response) *testAgent {
	t.Helper()

	fs := afero.NewMemMapFs()
	for name, content := range files {
		if err := afero.WriteFile(fs, name, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	store := contextstore.New(contextstore.Options{Fs: fs, TokenLimit: 200000})
	mock := llm.NewMockLLMClient()
	mock.Responses = responses
	out := &recordingOutput{}
	runner := &fakeRunner{}

	a := New(Config{
		LLM:           mock,
		Tools:         NewDefaultRegistry(store, runner, nil),
		Store:         store,
		Output:        out,
		MaxIterations: 5,
	})
	return &testAgent{Agent: a, mock: mock, fs: fs, out: out, runner: runner}
}

// withUsage sets token usage on a response.
func withUsage(r *llm.Response, in, out int) *llm.Response {
	r.Usage = llm.Usage{InputTokens: in, OutputTokens: out}
	return r
}
