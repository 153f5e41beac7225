package corpus

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"syscall"
)

// Sandbox confines path resolution to a fixed root directory.
type Sandbox struct {
	root string
}

// NewSandbox creates a sandbox rooted at root.
//
// The root is made absolute and its symlinks are evaluated once here. The
// directory does not have to exist: a missing root behaves as an empty corpus.
func NewSandbox(root string) (*Sandbox, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("corpus root cannot be empty")
	}

	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	canonical, err := canonicalize(abs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve root %q: %w", root, err)
	}

	return &Sandbox{root: canonical}, nil
}

// Root returns the canonical root directory.
func (s *Sandbox) Root() string {
	return s.root
}

// Resolve canonicalizes candidate and checks that it stays within the root.
//
// Relative candidates are joined onto the root; absolute candidates are taken
// as-is. The returned path is equal to the root or a descendant of it, but may
// not exist. Any failure wraps ErrAccessDenied.
//
// ".." segments are cleaned lexically before symlinks are evaluated, so
// "link/../x" names root/x even when link points elsewhere. This can only
// narrow the result toward the root, never escape it.
func (s *Sandbox) Resolve(candidate string) (string, error) {
	target := filepath.FromSlash(candidate)
	if filepath.IsAbs(target) {
		target = filepath.Clean(target)
	} else {
		target = filepath.Join(s.root, target)
	}

	resolved, err := canonicalize(target)
	if err != nil {
		// Containment cannot be proven for paths we cannot resolve.
		return "", fmt.Errorf("%w: %s: %v", ErrAccessDenied, candidate, err)
	}

	if !s.Contains(resolved) {
		return "", fmt.Errorf("%w: %s", ErrAccessDenied, candidate)
	}

	return resolved, nil
}

// Contains reports whether the canonical path p is the root or below it.
func (s *Sandbox) Contains(p string) bool {
	if p == s.root {
		return true
	}

	rel, err := filepath.Rel(s.root, p)
	if err != nil || filepath.IsAbs(rel) {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Relative returns p relative to the root using forward slashes.
func (s *Sandbox) Relative(p string) (string, error) {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return "", err
	}
	return filepath.ToSlash(rel), nil
}

// canonicalize evaluates symlinks on the longest existing prefix of the
// absolute, cleaned path p and appends the non-existing remainder.
func canonicalize(p string) (string, error) {
	resolved, err := filepath.EvalSymlinks(p)
	if err == nil {
		return resolved, nil
	}
	if !isNotExist(err) {
		return "", err
	}

	parent := filepath.Dir(p)
	if parent == p {
		return p, nil
	}

	resolvedParent, err := canonicalize(parent)
	if err != nil {
		return "", err
	}
	return filepath.Join(resolvedParent, filepath.Base(p)), nil
}

// isNotExist treats "a path component is not a directory" like a missing path.
func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ENOTDIR)
}
