package config

import (
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 8000, cfg.Docs.MaxChars)
	assert.Equal(t, 10, cfg.Docs.MaxResults)
	assert.Equal(t, 80, cfg.Docs.SnippetRadius)
	assert.Equal(t, TransportStdio, cfg.Server.Transport)
	assert.False(t, cfg.Telemetry.Enabled)
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "empty root",
			mutate:  func(c *Config) { c.Docs.Root = " " },
			wantErr: "docs.root is required",
		},
		{
			name:    "negative max chars",
			mutate:  func(c *Config) { c.Docs.MaxChars = -1 },
			wantErr: "docs.max_chars must be positive",
		},
		{
			name:    "zero max results",
			mutate:  func(c *Config) { c.Docs.MaxResults = 0 },
			wantErr: "docs.max_results must be positive",
		},
		{
			name:    "zero snippet radius",
			mutate:  func(c *Config) { c.Docs.SnippetRadius = 0 },
			wantErr: "docs.snippet_radius must be positive",
		},
		{
			name:    "unknown transport",
			mutate:  func(c *Config) { c.Server.Transport = "websocket" },
			wantErr: "server.transport must be",
		},
		{
			name: "bad port with http",
			mutate: func(c *Config) {
				c.Server.Transport = TransportHTTP
				c.Server.HTTPPort = 0
			},
			wantErr: "invalid server port",
		},
		{
			name:    "zero shutdown timeout",
			mutate:  func(c *Config) { c.Server.ShutdownTimeout = 0 },
			wantErr: "shutdown timeout must be positive",
		},
		{
			name:    "negative rate limit",
			mutate:  func(c *Config) { c.Server.RateLimit = -1 },
			wantErr: "server.rate_limit",
		},
		{
			name:    "negative rate burst",
			mutate:  func(c *Config) { c.Server.RateBurst = -2 },
			wantErr: "server.rate_burst",
		},
		{
			name:    "sample rate out of range",
			mutate:  func(c *Config) { c.Telemetry.SampleRate = 1.5 },
			wantErr: "telemetry.sample_rate",
		},
		{
			name:   "bad port ignored with stdio",
			mutate: func(c *Config) { c.Server.HTTPPort = 0 },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_Validate_JoinsErrors(t *testing.T) {
	cfg := Default()
	cfg.Docs.Root = ""
	cfg.Docs.MaxChars = 0

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "docs.root is required")
	assert.Contains(t, err.Error(), "docs.max_chars must be positive")
}

func TestExpandPath(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	got, err := ExpandPath("~/StudyDocs")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "StudyDocs"), got)

	got, err = ExpandPath("~")
	require.NoError(t, err)
	assert.Equal(t, home, got)

	got, err = ExpandPath("/abs/path")
	require.NoError(t, err)
	assert.Equal(t, "/abs/path", got)

	got, err = ExpandPath("~other/docs")
	require.NoError(t, err)
	assert.Equal(t, "~other/docs", got)
}

func TestDuration(t *testing.T) {
	var d Duration
	require.NoError(t, d.UnmarshalText([]byte("1m30s")))
	assert.Equal(t, 90*time.Second, d.Duration())

	assert.Error(t, d.UnmarshalText([]byte("-5s")))
	assert.Error(t, d.UnmarshalText([]byte("soon")))

	text, err := d.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "1m30s", string(text))

	b, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"1m30s"`, string(b))
}
