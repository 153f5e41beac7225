package corpus

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/studydocs/internal/ignore"
)

// hiddenPrefix marks hidden files and directories.
const hiddenPrefix = "."

// Document is an eligible file under the corpus root.
type Document struct {
	// AbsPath is the absolute path on disk.
	AbsPath string
	// RelPath is the slash-separated path relative to the root.
	RelPath string
}

// Scanner enumerates documents under the sandbox root.
type Scanner struct {
	sandbox *Sandbox
	exclude *ignore.Matcher
	logger  *zap.Logger
}

// NewScanner creates a scanner. exclude may be nil.
func NewScanner(sandbox *Sandbox, exclude *ignore.Matcher, logger *zap.Logger) *Scanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		sandbox: sandbox,
		exclude: exclude,
		logger:  logger,
	}
}

// List returns every document under the root. A missing root yields an
// empty slice. Order is not part of the contract.
func (s *Scanner) List(ctx context.Context) ([]Document, error) {
	docs := make([]Document, 0)
	err := s.Walk(ctx, func(doc Document) error {
		docs = append(docs, doc)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return docs, nil
}

// Walk calls fn for each document under the root.
//
// Hidden entries (any segment starting with ".") and excluded entries are
// skipped, hidden directories are not descended into. Unreadable entries are
// skipped. If fn returns ErrStopWalk the walk ends and Walk returns nil; any
// other error from fn, or a cancelled context, ends the walk with that error.
func (s *Scanner) Walk(ctx context.Context, fn func(Document) error) error {
	root := s.sandbox.Root()

	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		// No corpus configured.
		return nil
	}

	err = filepath.WalkDir(root, func(p string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		if p == root {
			if walkErr != nil {
				s.logger.Debug("corpus root unreadable", zap.String("root", root), zap.Error(walkErr))
				return fs.SkipDir
			}
			return nil
		}

		if walkErr != nil {
			s.logger.Debug("skipping unreadable entry",
				zap.String("path", p),
				zap.Error(walkErr))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		rel, err := s.sandbox.Relative(p)
		if err != nil {
			return nil
		}

		if s.Skipped(rel, d.IsDir()) {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if d.IsDir() {
			return nil
		}

		if !s.isRegularFile(p, d) {
			return nil
		}

		return fn(Document{AbsPath: p, RelPath: rel})
	})

	if errors.Is(err, ErrStopWalk) {
		return nil
	}
	return err
}

// Skipped reports whether the slash-separated rel is hidden or excluded.
// A skipped directory hides everything below it.
func (s *Scanner) Skipped(rel string, isDir bool) bool {
	return isHidden(rel) || s.exclude.Match(rel, isDir)
}

// isRegularFile reports whether the entry is a regular file. Symlinks are
// followed only when their target is a regular file inside the root.
func (s *Scanner) isRegularFile(p string, d fs.DirEntry) bool {
	if d.Type().IsRegular() {
		return true
	}
	if d.Type()&fs.ModeSymlink == 0 {
		return false
	}

	target, err := filepath.EvalSymlinks(p)
	if err != nil || !s.sandbox.Contains(target) {
		return false
	}
	info, err := os.Stat(target)
	return err == nil && info.Mode().IsRegular()
}

// isHidden reports whether any segment of the slash-separated rel is hidden.
func isHidden(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if strings.HasPrefix(part, hiddenPrefix) {
			return true
		}
	}
	return false
}
