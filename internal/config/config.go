// Package config provides configuration loading for studydocs.
//
// Configuration is assembled from built-in defaults, an optional YAML file and
// STUDYDOCS_* environment variables, in increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Transport names accepted by server.transport.
const (
	TransportStdio = "stdio"
	TransportHTTP  = "http"
)

// Config holds the complete studydocs configuration.
type Config struct {
	Docs      DocsConfig      `koanf:"docs"`
	Server    ServerConfig    `koanf:"server"`
	Logging   LoggingConfig   `koanf:"logging"`
	Telemetry TelemetryConfig `koanf:"telemetry"`
}

// DocsConfig describes the document corpus.
type DocsConfig struct {
	Root          string   `koanf:"root"`
	MaxChars      int      `koanf:"max_chars"`
	MaxResults    int      `koanf:"max_results"`
	SnippetRadius int      `koanf:"snippet_radius"`
	Exclude       []string `koanf:"exclude"`
	IgnoreFile    string   `koanf:"ignore_file"`
	Watch         bool     `koanf:"watch"`
}

// ServerConfig holds MCP server and HTTP transport configuration.
type ServerConfig struct {
	Name            string   `koanf:"name"`
	Transport       string   `koanf:"transport"`
	HTTPHost        string   `koanf:"http_host"`
	HTTPPort        int      `koanf:"http_port"`
	ShutdownTimeout Duration `koanf:"shutdown_timeout"`

	// RateLimit is the per-client request rate (requests/second) for the
	// HTTP transport. Zero disables limiting.
	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`
}

// LoggingConfig holds the user-facing logging knobs.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	// OTEL also ships logs to the telemetry collector when telemetry is
	// enabled.
	OTEL bool `koanf:"otel"`
}

// TelemetryConfig holds OpenTelemetry export settings.
type TelemetryConfig struct {
	Enabled     bool    `koanf:"enabled"`
	Endpoint    string  `koanf:"endpoint"`
	Protocol    string  `koanf:"protocol"`
	ServiceName string  `koanf:"service_name"`
	Insecure    bool    `koanf:"insecure"`
	SampleRate  float64 `koanf:"sample_rate"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Docs: DocsConfig{
			Root:          "~/StudyDocs",
			MaxChars:      8000,
			MaxResults:    10,
			SnippetRadius: 80,
			IgnoreFile:    ".docsignore",
		},
		Server: ServerConfig{
			Name:            "studydocs",
			Transport:       TransportStdio,
			HTTPHost:        "localhost",
			HTTPPort:        9191,
			ShutdownTimeout: Duration(10 * time.Second),
			RateLimit:       20,
			RateBurst:       40,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			OTEL:   true,
		},
		Telemetry: TelemetryConfig{
			Enabled:     false,
			Endpoint:    "localhost:4317",
			Protocol:    "grpc",
			ServiceName: "studydocs",
			Insecure:    true,
			SampleRate:  1.0,
		},
	}
}

// Validate validates the configuration.
//
// Returns an error if:
//   - the docs root is empty
//   - any docs limit is not positive
//   - the transport is unknown
//   - the HTTP port is not between 1 and 65535 (http transport only)
//   - the rate limit or burst is negative
//   - the shutdown timeout is not positive
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Docs.Root) == "" {
		errs = append(errs, errors.New("docs.root is required"))
	}
	if c.Docs.MaxChars <= 0 {
		errs = append(errs, fmt.Errorf("docs.max_chars must be positive, got %d", c.Docs.MaxChars))
	}
	if c.Docs.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("docs.max_results must be positive, got %d", c.Docs.MaxResults))
	}
	if c.Docs.SnippetRadius <= 0 {
		errs = append(errs, fmt.Errorf("docs.snippet_radius must be positive, got %d", c.Docs.SnippetRadius))
	}

	switch c.Server.Transport {
	case TransportStdio:
	case TransportHTTP:
		if c.Server.HTTPPort < 1 || c.Server.HTTPPort > 65535 {
			errs = append(errs, fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.HTTPPort))
		}
	default:
		errs = append(errs, fmt.Errorf("server.transport must be %q or %q, got %q",
			TransportStdio, TransportHTTP, c.Server.Transport))
	}

	if c.Server.RateLimit < 0 {
		errs = append(errs, fmt.Errorf("server.rate_limit must not be negative, got %f", c.Server.RateLimit))
	}
	if c.Server.RateBurst < 0 {
		errs = append(errs, fmt.Errorf("server.rate_burst must not be negative, got %d", c.Server.RateBurst))
	}

	if c.Server.ShutdownTimeout.Duration() <= 0 {
		errs = append(errs, errors.New("shutdown timeout must be positive"))
	}

	if c.Telemetry.SampleRate < 0 || c.Telemetry.SampleRate > 1 {
		errs = append(errs, fmt.Errorf("telemetry.sample_rate must be between 0 and 1, got %f", c.Telemetry.SampleRate))
	}

	return errors.Join(errs...)
}

// ExpandPath replaces a leading "~" with the user's home directory.
func ExpandPath(p string) (string, error) {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, strings.TrimPrefix(p, "~")), nil
}
