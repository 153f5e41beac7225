package watch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitTimeout = 5 * time.Second

func startWatcher(t *testing.T, root string, filter Filter) *Watcher {
	t.Helper()
	w, err := New(root, filter, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(w.Stop)
	return w
}

// waitFor reads events until one matches op and path, returning everything
// seen before it.
func waitFor(t *testing.T, w *Watcher, op Op, path string) []Event {
	t.Helper()
	var seen []Event
	deadline := time.After(waitTimeout)
	for {
		select {
		case ev, ok := <-w.Events():
			require.True(t, ok, "events channel closed while waiting for %s %s", op, path)
			if ev.Op == op && ev.Path == path {
				return seen
			}
			seen = append(seen, ev)
		case <-deadline:
			t.Fatalf("timed out waiting for %s %s, saw %v", op, path, seen)
			return nil
		}
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestOp_String(t *testing.T) {
	assert.Equal(t, "created", Created.String())
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unknown", Op(42).String())
}

func TestWatcher_Lifecycle(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, nil)

	path := filepath.Join(root, "notes.md")
	writeFile(t, path, "first")
	waitFor(t, w, Created, "notes.md")

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString(" second")
	require.NoError(t, err)
	require.NoError(t, f.Close())
	waitFor(t, w, Modified, "notes.md")

	require.NoError(t, os.Remove(path))
	waitFor(t, w, Removed, "notes.md")
}

func TestWatcher_FilterSkipsPaths(t *testing.T) {
	root := t.TempDir()
	filter := FilterFunc(func(rel string, _ bool) bool {
		return strings.HasPrefix(rel, ".") || strings.HasSuffix(rel, ".tmp")
	})
	w := startWatcher(t, root, filter)

	writeFile(t, filepath.Join(root, ".hidden.md"), "h")
	writeFile(t, filepath.Join(root, "scratch.tmp"), "s")
	writeFile(t, filepath.Join(root, "visible.md"), "v")

	for _, ev := range waitFor(t, w, Created, "visible.md") {
		assert.NotEqual(t, ".hidden.md", ev.Path)
		assert.NotEqual(t, "scratch.tmp", ev.Path)
	}
}

func TestWatcher_InitialTree(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "week1", "day1", "a.md"), "a")
	writeFile(t, filepath.Join(root, "drafts", "b.md"), "b")

	filter := FilterFunc(func(rel string, isDir bool) bool {
		return isDir && rel == "drafts"
	})
	w := startWatcher(t, root, filter)

	assert.True(t, w.Watching("week1"))
	assert.True(t, w.Watching("week1/day1"))
	assert.False(t, w.Watching("drafts"))

	writeFile(t, filepath.Join(root, "drafts", "c.md"), "c")
	writeFile(t, filepath.Join(root, "week1", "day1", "d.md"), "d")
	for _, ev := range waitFor(t, w, Created, "week1/day1/d.md") {
		assert.NotEqual(t, "drafts/c.md", ev.Path)
	}
}

func TestWatcher_NewDirectory(t *testing.T) {
	root := t.TempDir()
	w := startWatcher(t, root, nil)

	require.NoError(t, os.Mkdir(filepath.Join(root, "week2"), 0o755))
	waitFor(t, w, Created, "week2")
	assert.True(t, w.Watching("week2"))

	writeFile(t, filepath.Join(root, "week2", "review.md"), "r")
	waitFor(t, w, Created, "week2/review.md")

	require.NoError(t, os.RemoveAll(filepath.Join(root, "week2")))
	waitFor(t, w, Removed, "week2")
	assert.False(t, w.Watching("week2"))
}

func TestWatcher_MissingRoot(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	assert.Error(t, w.Start(context.Background()))
}

func TestWatcher_RootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file.md")
	writeFile(t, path, "x")

	w, err := New(path, nil, nil)
	require.NoError(t, err)
	defer w.Stop()

	err = w.Start(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestWatcher_StopClosesEvents(t *testing.T) {
	w := startWatcher(t, t.TempDir(), nil)

	w.Stop()
	w.Stop()

	select {
	case _, ok := <-w.Events():
		assert.False(t, ok)
	case <-time.After(waitTimeout):
		t.Fatal("events channel not closed after Stop")
	}
}

func TestWatcher_ContextCancelClosesEvents(t *testing.T) {
	w, err := New(t.TempDir(), nil, nil)
	require.NoError(t, err)
	t.Cleanup(w.Stop)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	assert.Eventually(t, func() bool {
		select {
		case _, ok := <-w.Events():
			return !ok
		default:
			return false
		}
	}, waitTimeout, 10*time.Millisecond)
}

func TestWatcher_Metrics(t *testing.T) {
	m := NewMetrics()
	assert.Same(t, m, NewMetrics())

	created := m.EventsTotal.WithLabelValues(Created.String())
	before := testutil.ToFloat64(created)

	root := t.TempDir()
	w := startWatcher(t, root, nil)
	writeFile(t, filepath.Join(root, "counted.md"), "c")
	waitFor(t, w, Created, "counted.md")

	assert.Eventually(t, func() bool {
		return testutil.ToFloat64(created) >= before+1
	}, waitTimeout, 10*time.Millisecond)
}
