package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/studydocs/internal/config"
	"github.com/fyrsmithlabs/studydocs/internal/corpus"
	"github.com/fyrsmithlabs/studydocs/internal/watch"
)

func newDocsDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"week1/notes.md":  "Mitochondria is the powerhouse of the cell.",
		"week2/review.md": "Review: cell division and mitosis.",
		".hidden.md":      "mitochondria secret",
	}
	for name, content := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	}
	return dir
}

// execute runs the root command with args and returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	return executeIn(t, t.TempDir(), args...)
}

// executeIn is execute with HOME set to home.
func executeIn(t *testing.T, home string, args ...string) (string, string, error) {
	t.Helper()
	t.Setenv("HOME", home)

	configPath, rootOverride, logLevel = "", "", ""
	jsonOutput, readMaxChars, searchMaxResults = false, 0, 0
	transportFlag, portFlag, watchFlag = "", 0, false

	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(append(args, "--log-level", "error"))
	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCmd_Subcommands(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
		assert.NotEmpty(t, c.Short, "command %s should have a short description", c.Name())
	}
	for _, want := range []string{"list", "read", "search", "serve", "tools", "watch", "version"} {
		assert.True(t, names[want], "missing command %s", want)
	}
}

func TestVersionCmd(t *testing.T) {
	out, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    dev")
}

func TestListCmd(t *testing.T) {
	dir := newDocsDir(t)

	out, _, err := execute(t, "list", "--root", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"week1/notes.md", "week2/review.md"}, strings.Fields(out))
}

func TestListCmd_JSON(t *testing.T) {
	dir := newDocsDir(t)

	out, _, err := execute(t, "list", "--root", dir, "--json")
	require.NoError(t, err)

	var got struct {
		Documents []string `json:"documents"`
		Count     int      `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, 2, got.Count)
	assert.ElementsMatch(t, []string{"week1/notes.md", "week2/review.md"}, got.Documents)
}

func TestListCmd_ConfigFile(t *testing.T) {
	dir := newDocsDir(t)
	home := t.TempDir()
	cfgDir := filepath.Join(home, ".config", "studydocs")
	require.NoError(t, os.MkdirAll(cfgDir, 0o700))

	cfgPath := filepath.Join(cfgDir, "config.toml")
	content := "[docs]\nroot = \"" + filepath.ToSlash(dir) + "\"\nexclude = [\"week2/\"]\n"
	require.NoError(t, os.WriteFile(cfgPath, []byte(content), 0o600))

	out, _, err := executeIn(t, home, "list", "--config", cfgPath)
	require.NoError(t, err)
	assert.Equal(t, []string{"week1/notes.md"}, strings.Fields(out))
}

func TestReadCmd(t *testing.T) {
	dir := newDocsDir(t)

	out, _, err := execute(t, "read", "week1/notes.md", "--root", dir)
	require.NoError(t, err)
	assert.Equal(t, "Mitochondria is the powerhouse of the cell.\n", out)
}

func TestReadCmd_Truncated(t *testing.T) {
	dir := newDocsDir(t)

	out, _, err := execute(t, "read", "week1/notes.md", "--root", dir, "--max-chars", "12", "--json")
	require.NoError(t, err)

	var got readOutput
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "ok", got.Status)
	assert.True(t, got.Truncated)
	assert.Equal(t, "Mitochondria"+corpus.TruncationMarker, got.Content)
}

func TestReadCmd_NotFound(t *testing.T) {
	dir := newDocsDir(t)

	out, errOut, err := execute(t, "read", "missing.md", "--root", dir)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Contains(t, errOut, "file not found: missing.md")
}

func TestReadCmd_AccessDenied(t *testing.T) {
	dir := newDocsDir(t)

	_, _, err := execute(t, "read", "../outside.md", "--root", dir)
	require.Error(t, err)
	assert.True(t, errors.Is(err, corpus.ErrAccessDenied))
}

func TestSearchCmd(t *testing.T) {
	dir := newDocsDir(t)

	out, _, err := execute(t, "search", "MITOCHONDRIA", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 matches for 'MITOCHONDRIA'")
	assert.Contains(t, out, "week1/notes.md")
	assert.NotContains(t, out, ".hidden.md")
}

func TestSearchCmd_JoinsArgs(t *testing.T) {
	dir := newDocsDir(t)

	out, _, err := execute(t, "search", "cell", "division", "--root", dir, "--json")
	require.NoError(t, err)

	var got struct {
		Query   string                `json:"query"`
		Results []corpus.SearchResult `json:"results"`
		Count   int                   `json:"count"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "cell division", got.Query)
	require.Equal(t, 1, got.Count)
	assert.Equal(t, "week2/review.md", got.Results[0].Path)
}

func TestSearchCmd_EmptyQuery(t *testing.T) {
	_, _, err := execute(t, "search", "", "--root", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query must not be empty")
}

func TestSearchCmd_WhitespaceQuery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "spaced.md"), []byte("double  space"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "single.md"), []byte("single space"), 0o644))

	out, _, err := execute(t, "search", "  ", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Found 1 matches for '  '")
	assert.Contains(t, out, "spaced.md")
	assert.NotContains(t, out, "single.md")
}

func TestSearchCmd_QuotedQuery(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "krebs.md"), []byte("Krebs' cycle"), 0o644))

	out, _, err := execute(t, "search", "krebs'", "--root", dir)
	require.NoError(t, err)
	assert.Contains(t, out, `Found 1 matches for 'krebs\''`)
}

func TestToolsCmd(t *testing.T) {
	out, _, err := execute(t, "tools", "--root", newDocsDir(t))
	require.NoError(t, err)
	for _, name := range []string{"list_documents", "read_document", "search_documents"} {
		assert.Contains(t, out, name)
	}
}

func TestServeCmd_InvalidTransport(t *testing.T) {
	_, _, err := execute(t, "serve", "--root", t.TempDir(), "--transport", "carrier-pigeon")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "server.transport")
}

func TestServe_HTTP(t *testing.T) {
	cfg := config.Default()
	cfg.Docs.Root = newDocsDir(t)
	cfg.Docs.Watch = true
	cfg.Server.Transport = config.TransportHTTP
	cfg.Logging.Level = "error"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := newApp(ctx, cfg)
	require.NoError(t, err)
	defer a.Close(context.Background())

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	errCh := make(chan error, 1)
	go func() {
		errCh <- serve(ctx, a, ln)
	}()

	healthURL := "http://" + ln.Addr().String() + "/health"
	assert.Eventually(t, func() bool {
		resp, err := http.Get(healthURL)
		if err != nil {
			return false
		}
		defer resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	cancel()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down in time")
	}
}

func TestFormatChange(t *testing.T) {
	at := time.Date(2024, 5, 1, 9, 30, 15, 0, time.UTC)

	line := formatChange(watch.Event{Op: watch.Created, Path: "week1/notes.md", Time: at})
	assert.Contains(t, line, "09:30:15")
	assert.Contains(t, line, "created")
	assert.True(t, strings.HasSuffix(line, "week1/notes.md"))

	line = formatChange(watch.Event{Op: watch.Removed, Path: "week2", Dir: true, Time: at})
	assert.Contains(t, line, "removed")
	assert.True(t, strings.HasSuffix(line, "week2/"))
}

func TestPrintChanges(t *testing.T) {
	events := make(chan watch.Event, 2)
	events <- watch.Event{Op: watch.Created, Path: "a.md", Time: time.Now()}
	events <- watch.Event{Op: watch.Modified, Path: "a.md", Time: time.Now()}
	close(events)

	var out bytes.Buffer
	printChanges(context.Background(), &out, events)

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], "created")
	assert.Contains(t, lines[1], "modified")
}

func TestPrintChanges_ContextDone(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan struct{})
	go func() {
		printChanges(ctx, &bytes.Buffer{}, make(chan watch.Event))
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("printChanges did not return after cancel")
	}
}
