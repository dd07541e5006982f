package script

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/aish/internal/agent"
	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

// recorder stands in for the shell, the agent and the display at once.
type recorder struct {
	events   []string
	statuses map[string]int
	syntax   string
	failOn   string
}

func (r *recorder) ExecLine(_ context.Context, line string) (int, error) {
	r.events = append(r.events, "exec:"+line)
	if line == "exit 4" {
		return 4, ErrExit
	}
	if line == r.syntax {
		return StatusSyntax, aerr.Syntax("unexpected '|'", 1)
	}
	return r.statuses[line], nil
}

func (r *recorder) Run(_ context.Context, instruction string) agent.Outcome {
	r.events = append(r.events, "agent:"+instruction)
	if instruction == r.failOn {
		return agent.Outcome{State: agent.Failed, Err: aerr.MaxIterationsReached(3)}
	}
	return agent.Outcome{State: agent.Done, Answer: "ok"}
}

func (r *recorder) Comment(md string) {
	r.events = append(r.events, "comment:"+md)
}

func (r *recorder) Command(_, line string) {
	r.events = append(r.events, "echo:"+line)
}

func TestDispatcher_DocumentOrder(t *testing.T) {
	rec := &recorder{}
	blocks := []Block{
		{Kind: Comment, Text: "# Setup"},
		{Kind: Code, Lang: "sh", Text: "mkdir -p build\ntouch build/a\n"},
		{Kind: Instruction, Text: "list the build directory"},
		{Kind: Code, Lang: "sh", Text: "ls build\n"},
	}

	res := NewDispatcher(rec, rec, rec, DispatcherOptions{}).Run(context.Background(), blocks)

	assert.False(t, res.Halted)
	assert.Equal(t, -1, res.Block)
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, []string{
		"comment:# Setup",
		"exec:mkdir -p build",
		"exec:touch build/a",
		"agent:list the build directory",
		"exec:ls build",
	}, rec.events)
}

func TestDispatcher_Echo(t *testing.T) {
	rec := &recorder{}
	blocks := []Block{{Kind: Code, Lang: "bash", Text: "echo a\n\necho b\n"}}

	NewDispatcher(rec, rec, rec, DispatcherOptions{Echo: true}).Run(context.Background(), blocks)

	assert.Equal(t, []string{"echo:echo a", "exec:echo a", "echo:echo b", "exec:echo b"}, rec.events)
}

func TestDispatcher_SyntaxErrorHalts(t *testing.T) {
	rec := &recorder{syntax: "ls |"}
	blocks := []Block{
		{Kind: Code, Text: "echo first\nls |\necho never\n"},
		{Kind: Instruction, Text: "never reached here"},
	}

	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(context.Background(), blocks)

	assert.True(t, res.Halted)
	assert.Equal(t, StatusSyntax, res.Status)
	assert.Equal(t, 0, res.Block)
	assert.True(t, aerr.IsCategory(res.Err, aerr.CategorySyntax))
	assert.Equal(t, []string{"exec:echo first", "exec:ls |"}, rec.events)
}

func TestDispatcher_FailingCommandContinues(t *testing.T) {
	rec := &recorder{statuses: map[string]int{"false": 1, "missing": 127}}
	blocks := []Block{
		{Kind: Code, Text: "false\nmissing\n"},
		{Kind: Code, Text: "true\n"},
	}

	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(context.Background(), blocks)

	assert.False(t, res.Halted)
	assert.Equal(t, 0, res.Status)
	assert.Equal(t, []string{"exec:false", "exec:missing", "exec:true"}, rec.events)
}

func TestDispatcher_LastStatus(t *testing.T) {
	rec := &recorder{statuses: map[string]int{"grep x": 1}}
	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(context.Background(), []Block{{Kind: Code, Text: "grep x\n"}})
	assert.Equal(t, 1, res.Status)
}

func TestDispatcher_AgentFailureHalts(t *testing.T) {
	rec := &recorder{failOn: "summarize everything"}
	blocks := []Block{
		{Kind: Instruction, Text: "summarize everything"},
		{Kind: Code, Text: "echo after\n"},
	}

	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(context.Background(), blocks)

	assert.True(t, res.Halted)
	assert.Equal(t, StatusAgentFailed, res.Status)
	assert.Equal(t, 0, res.Block)
	assert.ErrorIs(t, res.Err, aerr.MaxIterationsReached(0))
	assert.Equal(t, []string{"agent:summarize everything"}, rec.events)
}

func TestDispatcher_NoAgent(t *testing.T) {
	rec := &recorder{}
	res := NewDispatcher(rec, nil, nil, DispatcherOptions{}).Run(context.Background(), []Block{
		{Kind: Code, Text: "echo hi\n"},
		{Kind: Instruction, Text: "explain the output"},
	})

	require.True(t, res.Halted)
	assert.Equal(t, StatusAgentFailed, res.Status)
	assert.Equal(t, 1, res.Block)
	assert.True(t, aerr.IsCategory(res.Err, aerr.CategoryLLM))
}

func TestDispatcher_CancelledContext(t *testing.T) {
	rec := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(ctx, []Block{{Kind: Code, Text: "echo hi\n"}})

	assert.True(t, res.Halted)
	assert.ErrorIs(t, res.Err, context.Canceled)
	assert.Empty(t, rec.events)
}

func TestDispatcher_ExitStopsScript(t *testing.T) {
	rec := &recorder{}
	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(context.Background(), []Block{
		{Kind: Code, Text: "echo before\nexit 4\necho after\n"},
		{Kind: Instruction, Text: "never reached here"},
	})

	assert.True(t, res.Halted)
	assert.Equal(t, 4, res.Status)
	assert.NoError(t, res.Err)
	assert.Equal(t, []string{"exec:echo before", "exec:exit 4"}, rec.events)
}

func TestInstructionFunc(t *testing.T) {
	var got string
	f := InstructionFunc(func(_ context.Context, instruction string) agent.Outcome {
		got = instruction
		return agent.Outcome{State: agent.Done}
	})
	res := NewDispatcher(&recorder{}, f, nil, DispatcherOptions{}).Run(context.Background(), []Block{{Kind: Instruction, Text: "check the logs"}})
	assert.False(t, res.Halted)
	assert.Equal(t, "check the logs", got)
}

// jobRecorder also reports background jobs between lines.
type jobRecorder struct {
	recorder
}

func (r *jobRecorder) ReportJobs() {
	r.events = append(r.events, "jobs")
}

func TestDispatcher_ReportsJobsBetweenLines(t *testing.T) {
	rec := &jobRecorder{}
	res := NewDispatcher(rec, rec, nil, DispatcherOptions{}).Run(context.Background(), []Block{
		{Kind: Code, Text: "sleep 1 &\necho after\n"},
		{Kind: Comment, Text: "notes"},
		{Kind: Instruction, Text: "summarize the output"},
	})

	assert.False(t, res.Halted)
	assert.Equal(t, []string{
		"jobs", "exec:sleep 1 &",
		"jobs", "exec:echo after",
		"jobs", "agent:summarize the output",
	}, rec.events)
}

// killRunner cancels the script while its line runs, as SIGINT does.
type killRunner struct {
	cancel context.CancelFunc
	lines  int
}

func (k *killRunner) ExecLine(_ context.Context, _ string) (int, error) {
	k.lines++
	k.cancel()
	return 137, nil
}

func TestDispatcher_CancelledDuringLastLine(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	runner := &killRunner{cancel: cancel}

	res := NewDispatcher(runner, &recorder{}, nil, DispatcherOptions{}).Run(ctx, []Block{
		{Kind: Code, Text: "sleep 30\n"},
	})

	assert.Equal(t, 1, runner.lines)
	require.True(t, res.Halted)
	assert.Equal(t, 0, res.Block)
	assert.ErrorIs(t, res.Err, context.Canceled)
}
