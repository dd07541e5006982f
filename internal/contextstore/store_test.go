package contextstore

import (
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	aerr "github.com/abdul-hamid-achik/aish/internal/errors"
)

func newStore(t *testing.T, files map[string]string) (*Store, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	for path, content := range files {
		require.NoError(t, afero.WriteFile(fs, path, []byte(content), 0o644))
	}
	return New(Options{Fs: fs, TokenLimit: 1000}), fs
}

func TestReadFile(t *testing.T) {
	content := `{"database": {"host": "db.internal", "port": 5432}}`
	s, _ := newStore(t, map[string]string{"/work/config.json": content})

	e, changed, err := s.ReadFile("/work/./config.json")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "/work/config.json", e.Key)
	assert.Equal(t, KindFile, e.Kind)
	assert.Equal(t, content, e.Content)
	assert.Equal(t, len(content), e.Bytes)
	assert.Equal(t, EstimateTokens(content), e.Tokens)
	assert.Equal(t, 1, s.Len())
}

func TestReadFileTwiceReplacesEntry(t *testing.T) {
	s, fs := newStore(t, map[string]string{
		"/a.txt": "first",
		"/b.txt": "other",
	})

	_, _, err := s.ReadFile("/a.txt")
	require.NoError(t, err)
	_, _, err = s.ReadFile("/b.txt")
	require.NoError(t, err)

	_, changed, err := s.ReadFile("/a.txt")
	require.NoError(t, err)
	assert.False(t, changed, "identical content")

	require.NoError(t, afero.WriteFile(fs, "/a.txt", []byte("second"), 0o644))
	e, changed, err := s.ReadFile("/a.txt")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "second", e.Content)

	entries := s.Entries()
	require.Len(t, entries, 2)
	assert.Equal(t, "/a.txt", entries[0].Key, "replacement keeps position")
	assert.Equal(t, "second", entries[0].Content)
}

func TestReadFileErrors(t *testing.T) {
	s, fs := newStore(t, nil)
	require.NoError(t, fs.MkdirAll("/dir", 0o755))

	_, _, err := s.ReadFile("/missing.txt")
	require.Error(t, err)
	assert.True(t, aerr.IsCategory(err, aerr.CategoryContext))
	assert.ErrorIs(t, err, aerr.ContextNotFound(""))

	_, _, err = s.ReadFile("/dir")
	require.Error(t, err)
	assert.ErrorIs(t, err, aerr.ContextReadFailed("", nil))

	assert.Zero(t, s.Len(), "failures leave the store untouched")
}

func TestReadFileSizeLimit(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/big", []byte(strings.Repeat("x", 64)), 0o644))
	s := New(Options{Fs: fs, MaxFileBytes: 16})

	_, _, err := s.ReadFile("/big")
	assert.ErrorIs(t, err, aerr.ContextReadFailed("", nil))
}

func TestAddReplacesByLabel(t *testing.T) {
	s, _ := newStore(t, nil)

	_, err := s.Add("plan", "step one")
	require.NoError(t, err)
	_, err = s.Add("plan", "step two")
	require.NoError(t, err)

	e, ok := s.Get("plan")
	require.True(t, ok)
	assert.Equal(t, KindNote, e.Kind)
	assert.Equal(t, "step two", e.Content)
	assert.Equal(t, 1, s.Len())

	_, err = s.Add("  ", "x")
	assert.Error(t, err)
}

func TestClearThenReadResetsCounters(t *testing.T) {
	s, fs := newStore(t, map[string]string{"/notes.md": strings.Repeat("old ", 100)})

	_, _, err := s.ReadFile("/notes.md")
	require.NoError(t, err)
	_, err = s.Add("extra", strings.Repeat("y", 400))
	require.NoError(t, err)
	s.RecordUsage(300, 50)
	require.Equal(t, 350, s.Budget().Used())

	assert.Equal(t, 2, s.Clear())
	assert.Zero(t, s.Len())
	assert.Zero(t, s.Tokens())
	assert.Zero(t, s.Budget().Used())
	assert.Equal(t, 1000, s.Budget().Limit, "limit survives a clear")

	fresh := "fresh content"
	require.NoError(t, afero.WriteFile(fs, "/notes.md", []byte(fresh), 0o644))
	e, changed, err := s.ReadFile("/notes.md")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, fresh, e.Content)
	assert.Equal(t, EstimateTokens(fresh), s.Tokens())
}

func TestRender(t *testing.T) {
	s, _ := newStore(t, map[string]string{"/app/main.go": "package main\n"})
	assert.Empty(t, s.Render())

	_, _, err := s.ReadFile("/app/main.go")
	require.NoError(t, err)
	_, err = s.Add("todo", "ship it")
	require.NoError(t, err)

	want := "<context>\n" +
		"<file path=\"/app/main.go\">\npackage main\n</file>\n" +
		"<note label=\"todo\">\nship it\n</note>\n" +
		"</context>"
	assert.Equal(t, want, s.Render())
}

func TestBudget(t *testing.T) {
	tests := []struct {
		name      string
		budget    Budget
		indicator string
		exhausted bool
		remaining int
	}{
		{"empty", Budget{Limit: 200000}, "0/200K TOK", false, 200000},
		{"thousands", Budget{Input: 11000, Output: 1500, Limit: 200000}, "12K/200K TOK", false, 187500},
		{"small", Budget{Input: 400, Output: 20, Limit: 900}, "420/900 TOK", false, 480},
		{"at limit", Budget{Input: 900, Output: 100, Limit: 1000}, "1K/1K TOK", true, 0},
		{"past limit", Budget{Input: 2000, Limit: 1000}, "2K/1K TOK", true, 0},
		{"no limit", Budget{Input: 5}, "5/0 TOK", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.indicator, tt.budget.Indicator())
			assert.Equal(t, tt.exhausted, tt.budget.Exhausted())
			assert.Equal(t, tt.remaining, tt.budget.Remaining())
		})
	}
}

func TestEstimateTokens(t *testing.T) {
	assert.Zero(t, EstimateTokens(""))
	assert.Equal(t, 0, EstimateTokens("abc"))
	assert.Equal(t, 120, EstimateTokens(strings.Repeat("a", 400)))
}
