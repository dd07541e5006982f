package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestConfigFromEnv(t *testing.T) {
	t.Setenv("AISH_DEBUG", "")
	t.Setenv("AISH_DEBUG_LLM", "")
	t.Setenv("AISH_DEBUG_DIR", "")
	t.Setenv("AISH_LOG_LEVEL", "")

	cfg := ConfigFromEnv()
	if cfg.Level != LevelWarn {
		t.Errorf("expected default level Warn, got %s", cfg.Level)
	}
	if cfg.DebugMode {
		t.Error("expected DebugMode false by default")
	}
	if cfg.DebugDir != DefaultDebugDir {
		t.Errorf("expected default debug dir %s, got %s", DefaultDebugDir, cfg.DebugDir)
	}

	t.Setenv("AISH_DEBUG", "1")
	cfg = ConfigFromEnv()
	if !cfg.DebugMode {
		t.Error("expected DebugMode true when AISH_DEBUG=1")
	}
	if cfg.Level != LevelDebug {
		t.Errorf("expected level Debug when AISH_DEBUG=1, got %s", cfg.Level)
	}

	t.Setenv("AISH_DEBUG_LLM", "1")
	if !ConfigFromEnv().DebugLLM {
		t.Error("expected DebugLLM true when AISH_DEBUG_LLM=1")
	}

	t.Setenv("AISH_DEBUG_DIR", "/custom/debug")
	if got := ConfigFromEnv().DebugDir; got != "/custom/debug" {
		t.Errorf("expected custom debug dir, got %s", got)
	}

	// An explicit level wins over the debug default.
	t.Setenv("AISH_LOG_LEVEL", "error")
	if got := ConfigFromEnv().Level; got != LevelError {
		t.Errorf("expected level Error, got %s", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected Level
	}{
		{"debug", LevelDebug},
		{"DEBUG", LevelDebug},
		{"info", LevelInfo},
		{"warn", LevelWarn},
		{"warning", LevelWarn},
		{"error", LevelError},
		{"ERROR", LevelError},
		{"unknown", LevelWarn},
		{"", LevelWarn},
	}

	for _, tt := range tests {
		if got := ParseLevel(tt.input); got != tt.expected {
			t.Errorf("ParseLevel(%q) = %s, want %s", tt.input, got, tt.expected)
		}
	}
}

func TestConsoleWriter(t *testing.T) {
	var buf bytes.Buffer
	cw := NewConsoleWriter(LevelInfo)
	cw.SetOutput(&buf)

	cw.Write(LevelDebug, "", "debug message")
	if buf.Len() > 0 {
		t.Error("debug message should be filtered at Info level")
	}

	cw.Write(LevelInfo, "", "info message")
	if !strings.Contains(buf.String(), "info message") {
		t.Error("info message should be logged")
	}
	if !strings.Contains(buf.String(), "INFO") {
		t.Error("level should appear in output")
	}

	buf.Reset()
	cw.Write(LevelWarn, "exec", "stage failed", Command("frob | wc"), Status(127))
	output := buf.String()
	for _, want := range []string{"[exec]", `command="frob | wc"`, "status=127"} {
		if !strings.Contains(output, want) {
			t.Errorf("output %q should contain %q", output, want)
		}
	}
	if strings.Contains(output, "\x1b[") {
		t.Error("output to a buffer must not be colored")
	}

	cw.SetLevel(LevelDebug)
	buf.Reset()
	cw.Write(LevelDebug, "", "debug after level change")
	if !strings.Contains(buf.String(), "debug after level change") {
		t.Error("debug should be logged after level change")
	}
}

func TestFileWriter(t *testing.T) {
	logDir := filepath.Join(t.TempDir(), "logs")
	fw := NewFileWriter(logDir)

	if err := fw.Write(LevelInfo, "jobs", "job done", JobID(1)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	logPath := fw.GetPath()
	if logPath == "" {
		t.Fatal("log path should not be empty")
	}
	if _, err := os.Lstat(filepath.Join(logDir, "latest.log")); err != nil {
		t.Errorf("latest.log symlink should exist: %v", err)
	}

	content, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	if !strings.Contains(string(content), "[jobs] job done job=1") {
		t.Errorf("log file should contain message, got %q", content)
	}

	if err := fw.Close(); err != nil {
		t.Errorf("Close failed: %v", err)
	}
	content, _ = os.ReadFile(logPath)
	if !strings.Contains(string(content), "Session ended") {
		t.Error("log should contain session end message")
	}
}

func TestFileWriterDisabled(t *testing.T) {
	fw := NewFileWriter("")
	if err := fw.Write(LevelError, "", "dropped"); err != nil {
		t.Fatalf("Write with no log dir should be a no-op, got %v", err)
	}
	if fw.GetPath() != "" {
		t.Error("no file should be created without a log dir")
	}
}

func TestTracer(t *testing.T) {
	tmpDir := t.TempDir()

	off, err := NewTracer(tmpDir, false, true)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}
	if off.IsEnabled() || off.Path() != "" {
		t.Error("tracer should be inert when debugMode=false")
	}
	if !strings.HasPrefix(off.Session(), "sess_") {
		t.Errorf("session id should be set even when off, got %q", off.Session())
	}
	off.Event("ignored")
	off.Payload("ex_1", "request", map[string]any{"x": 1})
	if err := off.Close(nil); err != nil {
		t.Errorf("Close on inert tracer = %v", err)
	}

	tracer, err := NewTracer(tmpDir, true, false)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	tracer.Event(EventJobRegister, JobID(1), Pgid(4242), Command("sleep 5 &"))
	ins := tracer.BeginInstruction()
	ex := tracer.BeginExchange()
	tracer.EventWithData(EventAgentState, map[string]any{"iteration": 1, "to": "ignored"},
		From("AwaitingModel"), To("ExecutingTools"))
	tracer.EndInstruction()

	if err := tracer.Close(map[string]any{"pipelines_total": 1}); err != nil {
		t.Errorf("Close failed: %v", err)
	}

	content, err := os.ReadFile(tracer.Path())
	if err != nil {
		t.Fatalf("failed to read trace file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 4 {
		t.Fatalf("expected 4 records (start, two events, end), got %d", len(lines))
	}

	records := make([]Record, len(lines))
	for i, line := range lines {
		if err := json.Unmarshal([]byte(line), &records[i]); err != nil {
			t.Fatalf("record %d: %v", i, err)
		}
		if records[i].Seq != i+1 {
			t.Errorf("record %d has seq %d", i, records[i].Seq)
		}
	}

	if records[1].Instruction != "" {
		t.Error("records before BeginInstruction must not carry an instruction id")
	}
	state := records[2]
	if state.Event != EventAgentState || state.Instruction != ins || state.Exchange != ex {
		t.Errorf("agent state record = %+v, want instruction %s exchange %s", state, ins, ex)
	}
	if state.Data["to"] != "ExecutingTools" {
		t.Errorf("fields should win over data, data = %v", state.Data)
	}
	end := records[3]
	if end.Event != EventSessionEnd || end.Instruction != "" || end.Data["pipelines_total"] != float64(1) {
		t.Errorf("session end record = %+v", end)
	}

	if _, err := os.Lstat(filepath.Join(tmpDir, "latest.jsonl")); err != nil {
		t.Errorf("latest.jsonl symlink should exist: %v", err)
	}
}

func TestTracerPayloads(t *testing.T) {
	tmpDir := t.TempDir()
	tracer, err := NewTracer(tmpDir, true, true)
	if err != nil {
		t.Fatalf("NewTracer failed: %v", err)
	}

	ex := tracer.BeginExchange()
	if !strings.HasPrefix(ex, "ex_") || ex == tracer.BeginExchange() {
		t.Errorf("exchange ids should be prefixed and unique, got %s", ex)
	}
	tracer.Payload(ex, "request", map[string]any{"model": "m"})
	tracer.Payload(ex, "response", map[string]any{"stop_reason": "end_turn"})
	if err := tracer.Close(nil); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	path := strings.TrimSuffix(tracer.Path(), ".jsonl") + ".payloads.jsonl"
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read payload file: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(content)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 payloads, got %d", len(lines))
	}
	var p Payload
	if err := json.Unmarshal([]byte(lines[1]), &p); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if p.Exchange != ex || p.Direction != "response" || p.Body["stop_reason"] != "end_turn" {
		t.Errorf("payload = %+v", p)
	}
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordPipeline(2, 0, false)
	m.RecordPipeline(1, 1, true)
	m.RecordSyntaxError()
	m.RecordInstruction(false)
	m.RecordInstruction(true)
	m.RecordToolCall("read_file", 50*time.Millisecond, nil)
	m.RecordToolCall("read_file", 30*time.Millisecond, errors.New("no such file"))
	m.RecordToolDenied("execute_command")
	m.RecordLLMRequest(500, 200, nil)
	m.RecordLLMRequest(600, 300, nil)

	snap := m.GetSnapshot()
	checks := map[string]int{
		"pipelines_total":     2,
		"stages_total":        3,
		"stage_errors_total":  1,
		"syntax_errors_total": 1,
		"jobs_launched_total": 1,
		"instructions_total":  2,
		"instructions_failed": 1,
		"tool_calls_total":    2,
		"tool_errors_total":   1,
		"tool_denied_total":   1,
		"llm_requests_total":  2,
		"llm_input_tokens":    1100,
		"llm_output_tokens":   500,
	}
	for key, want := range checks {
		if got := snap[key]; got != want {
			t.Errorf("%s = %v, want %d", key, got, want)
		}
	}

	var nilMetrics *Metrics
	nilMetrics.RecordPipeline(1, 0, false) // must not panic
}

func TestFields(t *testing.T) {
	if f := F("key", "value"); f.Key != "key" || f.Value != "value" {
		t.Error("F() should create field correctly")
	}
	if Duration(100*time.Millisecond).Value != int64(100) {
		t.Error("Duration should convert to milliseconds")
	}
	if Pgid(7).Key != "pgid" || JobID(3).Key != "job" {
		t.Error("process fields should have correct keys")
	}

	c := Command(strings.Repeat("x", 300))
	if len(c.Value.(string)) != 200 || !strings.HasSuffix(c.Value.(string), "...") {
		t.Errorf("long commands should be truncated to 200 bytes, got %d", len(c.Value.(string)))
	}

	if Error(nil).Value != nil {
		t.Error("Error(nil) should have nil value")
	}
	if got := Error(os.ErrNotExist).Value; got != "file does not exist" {
		t.Errorf("Error should extract error string, got %v", got)
	}
}

func TestLoggerIntegration(t *testing.T) {
	tmpDir := t.TempDir()
	logger, err := New(Config{
		Level:     LevelDebug,
		DebugMode: true,
		DebugDir:  tmpDir,
		LogDir:    filepath.Join(tmpDir, "logs"),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer logger.Close()

	var buf bytes.Buffer
	logger.console.SetOutput(&buf)

	if !strings.HasPrefix(logger.Session(), "sess_") {
		t.Errorf("session id should be set, got %q", logger.Session())
	}
	if !logger.IsDebugEnabled() || !logger.IsTracingEnabled() {
		t.Error("debug and tracing should be enabled")
	}

	exec := logger.WithPrefix("exec")
	exec.Info("pipeline started", Stages(2))
	if !strings.Contains(buf.String(), "[exec] pipeline started stages=2") {
		t.Errorf("prefixed output missing, got %q", buf.String())
	}

	buf.Reset()
	logger.Info("no prefix")
	if strings.Contains(buf.String(), "[exec]") {
		t.Error("prefix must not leak into the parent logger")
	}

	if logger.Metrics() == nil || exec.Metrics() != logger.Metrics() {
		t.Error("prefixed loggers should share the session metrics")
	}
}

func TestNilLogger(t *testing.T) {
	var l *Logger
	l.Info("ignored")
	l.Event(EventError)
	if !strings.HasPrefix(l.BeginInstruction(), "ins_") {
		t.Error("nil logger should still hand out instruction ids")
	}
	l.EndInstruction()
	if l.WithPrefix("x") != nil {
		t.Error("WithPrefix on nil logger should stay nil")
	}
	if err := l.Close(); err != nil {
		t.Errorf("Close on nil logger = %v", err)
	}
}

func TestGlobalLogger(t *testing.T) {
	if Global() != nil {
		t.Error("Global should be nil before Init")
	}

	tmpDir := t.TempDir()
	logger, err := Init(Config{
		Level:    LevelInfo,
		LogDir:   filepath.Join(tmpDir, "logs"),
		DebugDir: tmpDir,
	})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	defer func() { _ = Close() }()

	if Global() != logger {
		t.Error("Global should return initialized logger")
	}

	Global().WithPrefix("shell").Warn("via global")

	_ = Close()
	if Global() != nil {
		t.Error("Global should be nil after Close")
	}
}
