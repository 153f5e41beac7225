package ignore

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		want   rule
		wantOK bool
	}{
		{"empty line", "", rule{}, false},
		{"whitespace only", "   ", rule{}, false},
		{"comment", "# this is a comment", rule{}, false},
		{"negation skipped", "!important.txt", rule{}, false},
		{"simple file glob", "*.log", rule{glob: "**/*.log"}, true},
		{"simple name", "drafts", rule{glob: "**/drafts"}, true},
		{"directory with slash", "drafts/", rule{glob: "**/drafts", dirOnly: true}, true},
		{"nested path is anchored", "notes/old", rule{glob: "notes/old"}, true},
		{"leading slash anchors", "/scratch.txt", rule{glob: "scratch.txt"}, true},
		{"double star kept", "**/build", rule{glob: "**/build"}, true},
		{"trailing CR trimmed", "*.tmp\r", rule{glob: "**/*.tmp"}, true},
		{"lone slash", "/", rule{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := parseLine(tt.line)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRoot(t *testing.T) {
	root := t.TempDir()
	content := "# drafts are private\ndrafts/\n\n*.bak\n!keep.bak\n"
	require.NoError(t, os.WriteFile(filepath.Join(root, DefaultIgnoreFile), []byte(content), 0o644))

	lines, err := NewParser(DefaultIgnoreFile).ParseRoot(root)
	require.NoError(t, err)
	assert.Len(t, lines, 5)

	m, err := NewMatcher(lines)
	require.NoError(t, err)
	assert.Equal(t, 2, m.Len())
}

func TestParseRoot_Missing(t *testing.T) {
	lines, err := NewParser(DefaultIgnoreFile).ParseRoot(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = NewParser(DefaultIgnoreFile).ParseRoot(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Empty(t, lines)

	lines, err = NewParser("").ParseRoot(t.TempDir())
	require.NoError(t, err)
	assert.Nil(t, lines)
}

func TestMatcher_Match(t *testing.T) {
	m, err := NewMatcher(
		[]string{"drafts/", "*.bak"},
		[]string{"notes/private", "*.bak"},
	)
	require.NoError(t, err)
	assert.Equal(t, 3, m.Len(), "duplicates are dropped")

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"a.txt", false, false},
		{"old.bak", false, true},
		{"sub/old.bak", false, true},
		{"drafts", true, true},
		{"drafts", false, false},
		{"drafts/essay.txt", false, true},
		{"sub/drafts/essay.txt", false, true},
		{"notes/private/x.txt", false, true},
		{"other/notes/private/x.txt", false, false},
		{"notes/public.txt", false, false},
		{".", true, false},
	}

	for _, tt := range tests {
		t.Run(tt.rel, func(t *testing.T) {
			assert.Equal(t, tt.want, m.Match(tt.rel, tt.isDir))
		})
	}
}

func TestMatcher_NilAndEmpty(t *testing.T) {
	var m *Matcher
	assert.False(t, m.Match("a.txt", false))
	assert.Equal(t, 0, m.Len())

	empty, err := NewMatcher()
	require.NoError(t, err)
	assert.False(t, empty.Match("a.txt", false))
}

func TestNewMatcher_InvalidPattern(t *testing.T) {
	_, err := NewMatcher([]string{"[unclosed"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid exclude pattern")
}
