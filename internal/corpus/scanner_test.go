package corpus

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/studydocs/internal/ignore"
)

func newTestScanner(t *testing.T, root string, exclude ...string) *Scanner {
	t.Helper()
	s, err := NewSandbox(root)
	require.NoError(t, err)
	m, err := ignore.NewMatcher(exclude)
	require.NoError(t, err)
	return NewScanner(s, m, nil)
}

func relPaths(docs []Document) []string {
	out := make([]string, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.RelPath)
	}
	return out
}

func TestScanner_List(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{
		"a.txt":                "a",
		"week1/notes.md":       "notes",
		"week1/deep/more.txt":  "more",
		".hidden.txt":          "hidden",
		".git/config":          "git",
		"week1/.cache/tmp.txt": "cache",
		"week2/.draft.md":      "draft",
	})

	docs, err := newTestScanner(t, root).List(context.Background())
	require.NoError(t, err)

	assert.ElementsMatch(t, []string{"a.txt", "week1/notes.md", "week1/deep/more.txt"}, relPaths(docs))
	for _, d := range docs {
		assert.Equal(t, filepath.Join(root, filepath.FromSlash(d.RelPath)), d.AbsPath)
	}
}

func TestScanner_List_MissingRoot(t *testing.T) {
	docs, err := newTestScanner(t, filepath.Join(t.TempDir(), "absent")).List(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, docs)
	assert.Empty(t, docs)
}

func TestScanner_List_RootIsFile(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"file.txt": "x"})

	docs, err := newTestScanner(t, filepath.Join(dir, "file.txt")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestScanner_List_HiddenRoot(t *testing.T) {
	root := filepath.Join(canonicalTempDir(t), ".studydocs")
	writeFiles(t, root, map[string]string{"a.txt": "a"})

	docs, err := newTestScanner(t, root).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, relPaths(docs))
}

func TestScanner_List_Exclude(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{
		"a.txt":             "a",
		"b.log":             "b",
		"drafts/c.md":       "c",
		"week1/drafts/d.md": "d",
		"week1/e.md":        "e",
	})

	docs, err := newTestScanner(t, root, "*.log", "drafts/").List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a.txt", "week1/e.md"}, relPaths(docs))
}

func TestScanner_Skipped(t *testing.T) {
	s := newTestScanner(t, canonicalTempDir(t), "*.log", "drafts/")

	tests := []struct {
		rel   string
		isDir bool
		want  bool
	}{
		{"notes.md", false, false},
		{"debug.log", false, true},
		{"drafts", true, true},
		{"drafts", false, false},
		{".git", true, true},
		{"week1/.cache/x.md", false, true},
		{"week1", true, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, s.Skipped(tt.rel, tt.isDir), "%s (dir=%v)", tt.rel, tt.isDir)
	}
}

func TestScanner_List_Symlinks(t *testing.T) {
	dir := canonicalTempDir(t)
	root := filepath.Join(dir, "docs")
	writeFiles(t, root, map[string]string{"notes/a.md": "a"})
	writeFiles(t, dir, map[string]string{"secret.txt": "secret"})

	require.NoError(t, os.Symlink(filepath.Join(dir, "secret.txt"), filepath.Join(root, "leak.txt")))
	require.NoError(t, os.Symlink(filepath.Join(root, "notes", "a.md"), filepath.Join(root, "alias.md")))
	require.NoError(t, os.Symlink(filepath.Join(root, "notes"), filepath.Join(root, "dirlink")))
	require.NoError(t, os.Symlink(filepath.Join(root, "missing"), filepath.Join(root, "dangling")))

	docs, err := newTestScanner(t, root).List(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"notes/a.md", "alias.md"}, relPaths(docs))
}

func TestScanner_List_UnreadableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission checks do not apply to root")
	}

	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{
		"a.txt":        "a",
		"locked/b.txt": "b",
	})
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	docs, err := newTestScanner(t, root).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, relPaths(docs))
}

func TestScanner_Walk_Stop(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"a.txt": "a", "b.txt": "b", "c.txt": "c"})

	var seen int
	err := newTestScanner(t, root).Walk(context.Background(), func(Document) error {
		seen++
		return ErrStopWalk
	})
	require.NoError(t, err)
	assert.Equal(t, 1, seen)
}

func TestScanner_Walk_CallbackError(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"a.txt": "a"})

	boom := errors.New("boom")
	err := newTestScanner(t, root).Walk(context.Background(), func(Document) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestScanner_Walk_Cancelled(t *testing.T) {
	root := canonicalTempDir(t)
	writeFiles(t, root, map[string]string{"a.txt": "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestScanner(t, root).List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, isHidden(".a"))
	assert.True(t, isHidden("x/.a/b.txt"))
	assert.False(t, isHidden("x/a.b/c.txt"))
	assert.False(t, isHidden("notes.md"))
}
