package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Record is one line of a session trace.
type Record struct {
	Time        string         `json:"ts"`
	Seq         int            `json:"seq"`
	Event       string         `json:"event"`
	Session     string         `json:"session"`
	Instruction string         `json:"instruction,omitempty"`
	Exchange    string         `json:"exchange,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
}

// Payload is one full model request or response, written to the payload
// file when AISH_DEBUG_LLM=1.
type Payload struct {
	Time     string `json:"ts"`
	Session  string `json:"session"`
	Exchange string `json:"exchange"`
	// Direction is "request" or "response".
	Direction string         `json:"direction"`
	Body      map[string]any `json:"body"`
}

// Tracer writes a session's events as JSONL. Records carry the id of the
// instruction and model exchange they belong to, so one instruction's
// pipelines, tool calls and state changes can be grepped out together.
// A Tracer created with debug off discards everything.
type Tracer struct {
	mu       sync.Mutex
	session  string
	enabled  bool
	payloads bool
	seq      int

	instruction string
	exchange    string

	events  *json.Encoder
	bodies  *json.Encoder
	closers []io.Closer
	path    string
}

// NewTracer opens <dir>/<timestamp>_<pid>.jsonl and points dir/latest.jsonl
// at it. With payloads set, full model traffic goes to a sibling
// .payloads.jsonl file.
func NewTracer(dir string, debugMode, payloads bool) (*Tracer, error) {
	t := &Tracer{
		session:  newID("sess_"),
		enabled:  debugMode,
		payloads: debugMode && payloads,
	}
	if !debugMode {
		return t, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	base := fmt.Sprintf("%s_%d", time.Now().Format("2006-01-02_15-04-05"), os.Getpid())

	t.path = filepath.Join(dir, base+".jsonl")
	events, err := openTraceFile(t.path)
	if err != nil {
		return nil, err
	}
	t.events = json.NewEncoder(events)
	t.closers = append(t.closers, events)

	if t.payloads {
		bodies, err := openTraceFile(filepath.Join(dir, base+".payloads.jsonl"))
		if err != nil {
			_ = events.Close()
			return nil, err
		}
		t.bodies = json.NewEncoder(bodies)
		t.closers = append(t.closers, bodies)
	}

	latest := filepath.Join(dir, "latest.jsonl")
	_ = os.Remove(latest)
	_ = os.Symlink(t.path, latest)

	t.write(EventSessionStart, map[string]any{"pid": os.Getpid(), "payloads": t.payloads})
	return t, nil
}

func openTraceFile(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}
	return f, nil
}

// IsEnabled reports whether records are being written.
func (t *Tracer) IsEnabled() bool {
	return t != nil && t.enabled
}

// Session returns the session id, set even when tracing is off.
func (t *Tracer) Session() string {
	if t == nil {
		return ""
	}
	return t.session
}

// Path returns the trace file, or "" when tracing is off.
func (t *Tracer) Path() string {
	if t == nil {
		return ""
	}
	return t.path
}

// BeginInstruction tags subsequent records with a fresh instruction id.
func (t *Tracer) BeginInstruction() string {
	id := newID("ins_")
	if t == nil {
		return id
	}
	t.mu.Lock()
	t.instruction, t.exchange = id, ""
	t.mu.Unlock()
	return id
}

// EndInstruction stops tagging records with the instruction id.
func (t *Tracer) EndInstruction() {
	if t == nil {
		return
	}
	t.mu.Lock()
	t.instruction, t.exchange = "", ""
	t.mu.Unlock()
}

// BeginExchange tags subsequent records with a fresh model exchange id.
func (t *Tracer) BeginExchange() string {
	id := newID("ex_")
	if t == nil {
		return id
	}
	t.mu.Lock()
	t.exchange = id
	t.mu.Unlock()
	return id
}

// Event writes one record built from fields.
func (t *Tracer) Event(event string, fields ...Field) {
	if !t.IsEnabled() {
		return
	}
	t.write(event, fieldsToMap(fields))
}

// EventWithData writes one record; fields win over data on key clashes.
func (t *Tracer) EventWithData(event string, data map[string]any, fields ...Field) {
	if !t.IsEnabled() {
		return
	}
	merged := make(map[string]any, len(data)+len(fields))
	for k, v := range data {
		merged[k] = v
	}
	for _, f := range fields {
		merged[f.Key] = f.Value
	}
	t.write(event, merged)
}

// Payload writes a full model request or response.
func (t *Tracer) Payload(exchange, direction string, body map[string]any) {
	if t == nil || !t.payloads {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.bodies == nil {
		return
	}
	_ = t.bodies.Encode(Payload{
		Time:      time.Now().UTC().Format(time.RFC3339Nano),
		Session:   t.session,
		Exchange:  exchange,
		Direction: direction,
		Body:      body,
	})
}

func (t *Tracer) write(event string, data map[string]any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.events == nil {
		return
	}
	t.seq++
	_ = t.events.Encode(Record{
		Time:        time.Now().UTC().Format(time.RFC3339Nano),
		Seq:         t.seq,
		Event:       event,
		Session:     t.session,
		Instruction: t.instruction,
		Exchange:    t.exchange,
		Data:        data,
	})
}

// Close writes summary as the session.end record and closes the files.
func (t *Tracer) Close(summary map[string]any) error {
	if !t.IsEnabled() {
		return nil
	}
	t.write(EventSessionEnd, summary)

	t.mu.Lock()
	defer t.mu.Unlock()
	var first error
	for _, c := range t.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	t.closers = nil
	t.events, t.bodies = nil, nil
	return first
}

func newID(prefix string) string {
	return prefix + uuid.NewString()
}
