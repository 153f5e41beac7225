package corpus

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"github.com/fyrsmithlabs/studydocs/internal/config"
	"github.com/fyrsmithlabs/studydocs/internal/ignore"
)

// Config configures a Corpus. Zero values select the package defaults.
type Config struct {
	// Root is the corpus directory. A leading "~" is expanded.
	Root string

	// MaxChars is the default read budget in characters.
	MaxChars int

	// MaxResults is the default search result limit.
	MaxResults int

	// SnippetRadius is the number of characters kept on each side of a match.
	SnippetRadius int

	// Exclude holds gitignore-style patterns removed from list and search.
	Exclude []string

	// IgnoreFile names a pattern file read from the root. Defaults to
	// ignore.DefaultIgnoreFile.
	IgnoreFile string
}

// Corpus is the read-only document collection under a single root.
//
// A Corpus holds only immutable configuration and is safe for concurrent use.
type Corpus struct {
	sandbox  *Sandbox
	scanner  *Scanner
	reader   *Reader
	searcher *Searcher
	logger   *zap.Logger
}

// New creates a Corpus from cfg.
func New(cfg Config, logger *zap.Logger) (*Corpus, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("corpus")

	root, err := config.ExpandPath(cfg.Root)
	if err != nil {
		return nil, err
	}

	sandbox, err := NewSandbox(root)
	if err != nil {
		return nil, err
	}

	ignoreFile := cfg.IgnoreFile
	if ignoreFile == "" {
		ignoreFile = ignore.DefaultIgnoreFile
	}

	filePatterns, err := ignore.NewParser(ignoreFile).ParseRoot(sandbox.Root())
	if err != nil {
		return nil, fmt.Errorf("failed to read ignore file: %w", err)
	}

	exclude, err := ignore.NewMatcher(cfg.Exclude, filePatterns)
	if err != nil {
		return nil, err
	}

	radius := cfg.SnippetRadius
	if radius <= 0 {
		radius = DefaultSnippetRadius
	}

	scanner := NewScanner(sandbox, exclude, logger)

	logger.Debug("corpus ready",
		zap.String("root", sandbox.Root()),
		zap.Int("exclude_patterns", exclude.Len()))

	return &Corpus{
		sandbox:  sandbox,
		scanner:  scanner,
		reader:   NewReader(sandbox, cfg.MaxChars, logger),
		searcher: NewSearcher(scanner, cfg.MaxResults, radius, logger),
		logger:   logger,
	}, nil
}

// Root returns the canonical corpus root.
func (c *Corpus) Root() string {
	return c.sandbox.Root()
}

// RootExists reports whether the root is an existing directory.
func (c *Corpus) RootExists() bool {
	info, err := os.Stat(c.sandbox.Root())
	return err == nil && info.IsDir()
}

// Skipped reports whether rel (slash-separated, relative to the root) is
// hidden or excluded from discovery.
func (c *Corpus) Skipped(rel string, isDir bool) bool {
	return c.scanner.Skipped(rel, isDir)
}

// List returns the relative, slash-separated paths of every document.
func (c *Corpus) List(ctx context.Context) ([]string, error) {
	docs, err := c.scanner.List(ctx)
	if err != nil {
		return nil, err
	}

	paths := make([]string, 0, len(docs))
	for _, doc := range docs {
		paths = append(paths, doc.RelPath)
	}
	return paths, nil
}

// Read returns the document at relativePath. See Reader.Read.
func (c *Corpus) Read(ctx context.Context, relativePath string, maxChars int) (ReadResult, error) {
	return c.reader.Read(ctx, relativePath, maxChars)
}

// Search returns documents matching query. See Searcher.Search.
func (c *Corpus) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	return c.searcher.Search(ctx, query, maxResults)
}
