// Package ignore provides gitignore-style exclusion rules for the document corpus.
package ignore

import (
	"bufio"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultIgnoreFile is the ignore file read from the corpus root.
const DefaultIgnoreFile = ".docsignore"

// Parser reads gitignore-style files from a corpus root.
type Parser struct {
	// IgnoreFile is the file name looked up in the root. Empty disables it.
	IgnoreFile string
}

// NewParser creates a new ignore file parser.
func NewParser(ignoreFile string) *Parser {
	return &Parser{IgnoreFile: ignoreFile}
}

// ParseRoot reads the ignore file from root and returns its patterns.
// A missing file (or missing root) yields no patterns.
func (p *Parser) ParseRoot(root string) ([]string, error) {
	if p.IgnoreFile == "" {
		return nil, nil
	}

	file, err := os.Open(filepath.Join(root, p.IgnoreFile))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission) {
			return nil, nil
		}
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", p.IgnoreFile, err)
	}

	return lines, nil
}

// rule is a compiled exclusion pattern.
type rule struct {
	glob    string
	dirOnly bool
}

// Matcher reports whether corpus-relative paths are excluded.
// The zero value and a nil *Matcher exclude nothing.
type Matcher struct {
	rules []rule
}

// NewMatcher compiles gitignore-style lines into a Matcher.
// Comments, blank lines and negations are skipped; duplicates are dropped.
func NewMatcher(lines ...[]string) (*Matcher, error) {
	seen := make(map[rule]bool)
	m := &Matcher{}

	for _, group := range lines {
		for _, line := range group {
			r, ok := parseLine(line)
			if !ok || seen[r] {
				continue
			}
			if !doublestar.ValidatePattern(r.glob) {
				return nil, fmt.Errorf("invalid exclude pattern %q", line)
			}
			seen[r] = true
			m.rules = append(m.rules, r)
		}
	}

	return m, nil
}

// Len returns the number of compiled rules.
func (m *Matcher) Len() int {
	if m == nil {
		return 0
	}
	return len(m.rules)
}

// Match reports whether rel (slash-separated, relative to the root) is excluded,
// either directly or through one of its parent directories.
func (m *Matcher) Match(rel string, isDir bool) bool {
	if m == nil || len(m.rules) == 0 {
		return false
	}

	rel = strings.Trim(path.Clean(filepath.ToSlash(rel)), "/")
	if rel == "." || rel == "" {
		return false
	}

	if m.matchOne(rel, isDir) {
		return true
	}
	for dir := path.Dir(rel); dir != "." && dir != "/"; dir = path.Dir(dir) {
		if m.matchOne(dir, true) {
			return true
		}
	}
	return false
}

func (m *Matcher) matchOne(name string, isDir bool) bool {
	for _, r := range m.rules {
		if r.dirOnly && !isDir {
			continue
		}
		// Patterns are validated in NewMatcher.
		if ok, _ := doublestar.Match(r.glob, name); ok {
			return true
		}
	}
	return false
}

// parseLine converts a single gitignore line into a rule.
func parseLine(line string) (rule, bool) {
	line = strings.TrimRight(line, " \t\r")

	if line == "" || strings.HasPrefix(line, "#") {
		return rule{}, false
	}

	// Negation is not supported.
	if strings.HasPrefix(line, "!") {
		return rule{}, false
	}

	r := rule{dirOnly: strings.HasSuffix(line, "/")}
	pattern := strings.TrimSuffix(line, "/")

	// A slash anywhere but the end anchors the pattern at the root.
	anchored := strings.Contains(pattern, "/")
	pattern = strings.TrimPrefix(pattern, "/")
	if pattern == "" {
		return rule{}, false
	}

	if !anchored && !strings.HasPrefix(pattern, "**/") {
		pattern = "**/" + pattern
	}
	r.glob = pattern

	return r, true
}
