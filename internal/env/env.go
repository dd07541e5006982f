// Package env holds the shell's variable table.
package env

import (
	"sort"
	"strings"
)

// DefaultPath is used when the inherited environment has no PATH.
const DefaultPath = "/usr/local/bin:/usr/bin:/bin:/usr/sbin:/sbin"

// Table maps variable names to values. It is owned by one interpreter and
// is not safe for concurrent mutation.
type Table struct {
	vars map[string]string
}

// New returns an empty table.
func New() *Table {
	return &Table{vars: make(map[string]string)}
}

// FromEnviron builds a table from KEY=VALUE pairs such as os.Environ().
// Entries without '=' are set to the empty string.
func FromEnviron(environ []string) *Table {
	t := New()
	for _, e := range environ {
		key, value, _ := strings.Cut(e, "=")
		if key == "" {
			continue
		}
		t.vars[key] = value
	}
	if _, ok := t.vars["PATH"]; !ok {
		t.vars["PATH"] = DefaultPath
	}
	return t
}

// Get returns the value of name, or "" when unset.
func (t *Table) Get(name string) string {
	return t.vars[name]
}

// Lookup returns the value of name and whether it is set.
func (t *Table) Lookup(name string) (string, bool) {
	v, ok := t.vars[name]
	return v, ok
}

// Set assigns value to name.
func (t *Table) Set(name, value string) {
	t.vars[name] = value
}

// Unset removes name. Removing an unset name is a no-op.
func (t *Table) Unset(name string) {
	delete(t.vars, name)
}

// Len returns the number of variables.
func (t *Table) Len() int {
	return len(t.vars)
}

// Names returns all variable names, sorted.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.vars))
	for k := range t.vars {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// Environ returns KEY=VALUE pairs sorted by key, for child processes.
func (t *Table) Environ() []string {
	names := t.Names()
	out := make([]string, len(names))
	for i, k := range names {
		out[i] = k + "=" + t.vars[k]
	}
	return out
}

// Clone returns an independent copy.
func (t *Table) Clone() *Table {
	c := &Table{vars: make(map[string]string, len(t.vars))}
	for k, v := range t.vars {
		c.vars[k] = v
	}
	return c
}
