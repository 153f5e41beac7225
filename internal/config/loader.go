package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

const (
	maxConfigFileSize = 1024 * 1024 // 1MB

	// EnvPrefix prefixes every environment variable read by Load.
	EnvPrefix = "STUDYDOCS_"
)

// DefaultPath returns ~/.config/studydocs/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".config", "studydocs", "config.yaml"), nil
}

// Load loads configuration from a YAML or TOML file, then overrides it with
// environment variables. Files ending in .toml are parsed as TOML.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (STUDYDOCS_DOCS_ROOT, STUDYDOCS_SERVER_HTTP_PORT, etc.)
//  2. Config file (~/.config/studydocs/config.yaml)
//  3. Built-in defaults
//
// An empty configPath selects the default path. A missing file is not an error.
//
// # Security Considerations
//
// The file must live under ~/.config/studydocs/ or /etc/studydocs/, have 0600
// or 0400 permissions and be at most 1MB.
//
// # Environment Variable Mapping
//
// The prefix is stripped and the remainder is split on its first underscore:
//
//	STUDYDOCS_DOCS_ROOT        -> docs.root
//	STUDYDOCS_DOCS_MAX_CHARS   -> docs.max_chars
//	STUDYDOCS_SERVER_TRANSPORT -> server.transport
//
// STUDYDOCS_DOCS_EXCLUDE takes a comma-separated list.
func Load(configPath string) (*Config, error) {
	k := koanf.New(".")

	if configPath == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		configPath = p
	}

	if err := validateConfigPath(configPath); err != nil {
		return nil, fmt.Errorf("config path validation failed: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		// Validate through the open descriptor to avoid a TOCTOU race.
		f, err := os.Open(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to open config file: %w", err)
		}
		defer f.Close()

		info, err := f.Stat()
		if err != nil {
			return nil, fmt.Errorf("failed to stat config file: %w", err)
		}

		if err := validateConfigFileProperties(info); err != nil {
			return nil, fmt.Errorf("config file validation failed: %w", err)
		}

		content, err := io.ReadAll(f)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := k.Load(rawbytes.Provider(content), parserFor(configPath)); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.ProviderWithValue(EnvPrefix, ".", envTransform), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	// Unmarshal over the defaults so absent keys keep their default values.
	cfg := Default()
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// envTransform maps STUDYDOCS_SECTION_FIELD_NAME to section.field_name.
func envTransform(key, value string) (string, interface{}) {
	lower := strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
	parts := strings.SplitN(lower, "_", 2)
	if len(parts) == 1 {
		return lower, value
	}

	path := parts[0] + "." + parts[1]
	if path == "docs.exclude" {
		return path, splitList(value)
	}
	return path, value
}

func splitList(value string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// validateConfigPath checks if path is in allowed directories.
// This validation runs even if the file doesn't exist yet.
func validateConfigPath(path string) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	// Follow symlinks so a link cannot point out of the allowed directories.
	resolvedPath, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		resolvedPath = absPath
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}

	allowedDirs := []string{
		filepath.Join(home, ".config", "studydocs"),
		"/etc/studydocs",
	}

	for _, dir := range allowedDirs {
		if isWithin(dir, resolvedPath) || isWithin(dir, absPath) {
			return nil
		}
	}

	return fmt.Errorf("config file must be in ~/.config/studydocs/ or /etc/studydocs/")
}

// isWithin reports whether p is strictly below dir.
func isWithin(dir, p string) bool {
	rel, err := filepath.Rel(dir, p)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// validateConfigFileProperties checks file permissions and size.
// Takes FileInfo from an already-opened file descriptor to avoid TOCTOU race.
func validateConfigFileProperties(info os.FileInfo) error {
	if info.IsDir() {
		return fmt.Errorf("config path is a directory")
	}

	// Skip on Windows (different permission model)
	if runtime.GOOS != "windows" {
		perm := info.Mode().Perm()
		if perm != 0600 && perm != 0400 {
			return fmt.Errorf("insecure config file permissions: %v (expected 0600 or 0400)", perm)
		}
	}

	if info.Size() > maxConfigFileSize {
		return fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxConfigFileSize)
	}

	return nil
}

// applyDefaults restores defaults for values explicitly set to zero.
func applyDefaults(cfg *Config) {
	if cfg.Docs.MaxChars == 0 {
		cfg.Docs.MaxChars = 8000
	}
	if cfg.Docs.MaxResults == 0 {
		cfg.Docs.MaxResults = 10
	}
	if cfg.Docs.SnippetRadius == 0 {
		cfg.Docs.SnippetRadius = 80
	}
	if cfg.Server.Name == "" {
		cfg.Server.Name = "studydocs"
	}
	if cfg.Server.Transport == "" {
		cfg.Server.Transport = TransportStdio
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = Duration(10 * time.Second)
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
}
