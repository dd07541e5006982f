// Package contextstore holds the agent's working memory: loaded files,
// free-form notes and the session's token accounting.
package contextstore

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
	"github.com/abdul-hamid-achik/aish/internal/logging"
)

// DefaultMaxFileBytes caps a single read_file.
const DefaultMaxFileBytes = 1 << 20

// Kind tells file entries from notes.
type Kind int

const (
	KindFile Kind = iota
	KindNote
)

func (k Kind) String() string {
	if k == KindNote {
		return "note"
	}
	return "file"
}

// Entry is one keyed item of context.
type Entry struct {
	Key     string
	Kind    Kind
	Content string
	Bytes   int
	Tokens  int
}

// Options configures a Store.
type Options struct {
	// Fs is the filesystem read_file reads from. Defaults to the OS.
	Fs afero.Fs
	// TokenLimit is the session maximum for model usage.
	TokenLimit int
	// MaxFileBytes caps read_file. Zero uses DefaultMaxFileBytes.
	MaxFileBytes int64
}

// Store is the Context Store. Entries keep the order of their first
// insertion; replacing an entry keeps its position.
type Store struct {
	mu       sync.RWMutex
	fs       afero.Fs
	maxBytes int64
	entries  []*Entry
	index    map[string]int
	budget   Budget
	log      *logging.Logger
}

// New creates an empty store.
func New(opts Options) *Store {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.TokenLimit <= 0 {
		opts.TokenLimit = DefaultTokenLimit
	}
	if opts.MaxFileBytes <= 0 {
		opts.MaxFileBytes = DefaultMaxFileBytes
	}
	return &Store{
		fs:       opts.Fs,
		maxBytes: opts.MaxFileBytes,
		index:    make(map[string]int),
		budget:   Budget{Limit: opts.TokenLimit},
		log:      logging.Global().WithPrefix("context"),
	}
}

// ReadFile loads path verbatim under its cleaned path. Reading the same
// path again replaces the entry; changed is false when the content is
// identical to what is already held.
func (s *Store) ReadFile(path string) (entry Entry, changed bool, err error) {
	key := filepath.Clean(path)

	info, err := s.fs.Stat(key)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Entry{}, false, aerr.ContextNotFound(path)
		}
		return Entry{}, false, aerr.ContextReadFailed(path, err)
	}
	if info.IsDir() {
		return Entry{}, false, aerr.ContextReadFailed(path, fmt.Errorf("is a directory"))
	}
	if info.Size() > s.maxBytes {
		return Entry{}, false, aerr.ContextReadFailed(path, fmt.Errorf("file is %d bytes, limit is %d", info.Size(), s.maxBytes))
	}

	data, err := afero.ReadFile(s.fs, key)
	if err != nil {
		return Entry{}, false, aerr.ContextReadFailed(path, err)
	}

	e := newEntry(key, KindFile, string(data))
	changed = s.put(e)

	s.log.Debug("file loaded", logging.Path(key), logging.F("bytes", e.Bytes), logging.Tokens(e.Tokens), logging.F("changed", changed))
	s.log.Event(logging.EventContextAdd, logging.Path(key), logging.Tokens(e.Tokens))
	return *e, changed, nil
}

// Add stores text under label, replacing an existing entry with that label.
func (s *Store) Add(label, text string) (Entry, error) {
	label = strings.TrimSpace(label)
	if label == "" {
		return Entry{}, fmt.Errorf("label is required")
	}

	e := newEntry(label, KindNote, text)
	s.put(e)

	s.log.Debug("note added", logging.F("label", label), logging.Tokens(e.Tokens))
	s.log.Event(logging.EventContextAdd, logging.F("label", label), logging.Tokens(e.Tokens))
	return *e, nil
}

// Clear removes every entry and resets the token counters.
func (s *Store) Clear() int {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = nil
	s.index = make(map[string]int)
	s.budget.Input, s.budget.Output = 0, 0
	s.mu.Unlock()

	s.log.Debug("context cleared", logging.Count(n))
	s.log.Event(logging.EventContextClear, logging.Count(n))
	return n
}

// Get returns the entry stored under key.
func (s *Store) Get(key string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[key]
	if !ok {
		i, ok = s.index[filepath.Clean(key)]
	}
	if !ok {
		return Entry{}, false
	}
	return *s.entries[i], true
}

// Entries returns copies of all entries in order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Entry, 0, len(s.entries))
	for _, e := range s.entries {
		out = append(out, *e)
	}
	return out
}

// Len returns the number of entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Tokens returns the estimated size of all entries.
func (s *Store) Tokens() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, e := range s.entries {
		total += e.Tokens
	}
	return total
}

// RecordUsage adds one model exchange's usage to the budget.
func (s *Store) RecordUsage(input, output int) Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budget.Input += input
	s.budget.Output += output
	return s.budget
}

// Budget returns the current token budget.
func (s *Store) Budget() Budget {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.budget
}

// Render formats the entries for the system prompt, or "" when empty.
func (s *Store) Render() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.entries) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("<context>\n")
	for _, e := range s.entries {
		attr := "path"
		if e.Kind == KindNote {
			attr = "label"
		}
		fmt.Fprintf(&sb, "<%s %s=%q>\n", e.Kind, attr, e.Key)
		sb.WriteString(e.Content)
		if !strings.HasSuffix(e.Content, "\n") {
			sb.WriteByte('\n')
		}
		fmt.Fprintf(&sb, "</%s>\n", e.Kind)
	}
	sb.WriteString("</context>")
	return sb.String()
}

// put inserts or replaces e and reports whether the content changed.
func (s *Store) put(e *Entry) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.index[e.Key]; ok {
		old := s.entries[i]
		s.entries[i] = e
		return old.Content != e.Content || old.Kind != e.Kind
	}
	s.index[e.Key] = len(s.entries)
	s.entries = append(s.entries, e)
	return true
}

func newEntry(key string, kind Kind, content string) *Entry {
	return &Entry{
		Key:     key,
		Kind:    kind,
		Content: content,
		Bytes:   len(content),
		Tokens:  EstimateTokens(content),
	}
}
