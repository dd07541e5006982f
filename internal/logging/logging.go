// Package logging is aish's diagnostic output. Nothing here writes to the
// user's terminal streams except warnings on stderr; command output stays
// clean.
//
// Three sinks share one session:
//   - console (stderr), filtered by level, default warn
//   - a session log under ~/.aish/logs, every level, created on first write
//   - a JSONL trace under the debug dir when AISH_DEBUG=1, where records are
//     tagged with the instruction and model exchange they belong to
//
// Components take a prefixed child of the global logger:
//
//	log := logging.Global().WithPrefix("exec")
//	log.Debug("stage spawned", logging.Pid(pid), logging.Command(argv0))
//	log.Event(logging.EventStageSpawn, logging.Pid(pid))
//
// A nil *Logger discards everything, so code runs unchanged before Init and
// in tests.
package logging

import (
	"sync"
)

// sink is the state every prefixed Logger of a session shares.
type sink struct {
	config  Config
	console *ConsoleWriter
	file    *FileWriter
	tracer  *Tracer
	metrics *Metrics
}

// Logger writes to the session's sinks under a component prefix.
type Logger struct {
	*sink
	prefix string
}

var (
	globalMu     sync.RWMutex
	globalLogger *Logger
)

// Init builds the session logger and installs it as Global.
func Init(cfg Config) (*Logger, error) {
	l, err := New(cfg)
	if err != nil {
		return nil, err
	}
	globalMu.Lock()
	globalLogger = l
	globalMu.Unlock()
	return l, nil
}

// New builds a session logger without installing it.
func New(cfg Config) (*Logger, error) {
	level := cfg.Level
	if cfg.Verbose || cfg.DebugMode {
		level = LevelDebug
	}

	tracer, err := NewTracer(cfg.DebugDir, cfg.DebugMode, cfg.DebugLLM)
	if err != nil {
		return nil, err
	}

	return &Logger{sink: &sink{
		config:  cfg,
		console: NewConsoleWriter(level),
		file:    NewFileWriter(cfg.LogDir),
		tracer:  tracer,
		metrics: NewMetrics(),
	}}, nil
}

// Global returns the logger installed by Init, or nil.
func Global() *Logger {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return globalLogger
}

// Close closes the global logger and uninstalls it.
func Close() error {
	globalMu.Lock()
	l := globalLogger
	globalLogger = nil
	globalMu.Unlock()
	return l.Close()
}

// WithPrefix returns a logger for one component, shown as [prefix].
func (l *Logger) WithPrefix(prefix string) *Logger {
	if l == nil {
		return nil
	}
	return &Logger{sink: l.sink, prefix: prefix}
}

func (l *Logger) Debug(msg string, fields ...Field) {
	l.log(LevelDebug, msg, fields)
}

func (l *Logger) Info(msg string, fields ...Field) {
	l.log(LevelInfo, msg, fields)
}

func (l *Logger) Warn(msg string, fields ...Field) {
	l.log(LevelWarn, msg, fields)
}

func (l *Logger) Error(msg string, fields ...Field) {
	l.log(LevelError, msg, fields)
}

func (l *Logger) log(level Level, msg string, fields []Field) {
	if l == nil {
		return
	}
	l.console.Write(level, l.prefix, msg, fields...)
	_ = l.file.Write(level, l.prefix, msg, fields...)
}

// Event writes a trace record. It costs nothing when tracing is off.
func (l *Logger) Event(event string, fields ...Field) {
	if l == nil {
		return
	}
	l.tracer.Event(event, fields...)
}

// BeginInstruction starts tagging trace records with a new instruction id.
func (l *Logger) BeginInstruction() string {
	if l == nil {
		return newID("ins_")
	}
	return l.tracer.BeginInstruction()
}

// EndInstruction stops tagging trace records with the instruction id.
func (l *Logger) EndInstruction() {
	if l == nil {
		return
	}
	l.tracer.EndInstruction()
}

// BeginExchange starts tagging trace records with a new model exchange id.
func (l *Logger) BeginExchange() string {
	if l == nil {
		return newID("ex_")
	}
	return l.tracer.BeginExchange()
}

// Payload records a full model request or response (AISH_DEBUG_LLM=1).
func (l *Logger) Payload(exchange, direction string, body map[string]any) {
	if l == nil {
		return
	}
	l.tracer.Payload(exchange, direction, body)
}

// PayloadsEnabled reports whether Payload writes anything, so callers can
// skip building large bodies.
func (l *Logger) PayloadsEnabled() bool {
	return l != nil && l.tracer != nil && l.tracer.payloads
}

// Metrics returns the session counters.
func (l *Logger) Metrics() *Metrics {
	if l == nil {
		return nil
	}
	return l.metrics
}

// Session returns the session id.
func (l *Logger) Session() string {
	if l == nil {
		return ""
	}
	return l.tracer.Session()
}

// IsDebugEnabled reports whether debug lines reach the console.
func (l *Logger) IsDebugEnabled() bool {
	return l != nil && l.console.Enabled(LevelDebug)
}

// IsTracingEnabled reports whether trace records are written.
func (l *Logger) IsTracingEnabled() bool {
	return l != nil && l.tracer.IsEnabled()
}

// Close ends the session: the metrics snapshot becomes the session.end
// trace record, then the files are closed.
func (l *Logger) Close() error {
	if l == nil {
		return nil
	}
	ferr := l.file.Close()
	terr := l.tracer.Close(l.metrics.GetSnapshot())
	if ferr != nil {
		return ferr
	}
	return terr
}
