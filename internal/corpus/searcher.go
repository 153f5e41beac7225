package corpus

import (
	"context"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultMaxResults bounds the number of search results.
	DefaultMaxResults = 10

	// DefaultSnippetRadius is the number of characters kept on each side of
	// the match start.
	DefaultSnippetRadius = 80
)

// SearchResult is a single match: one per document at most.
type SearchResult struct {
	Path    string `json:"path"`
	Snippet string `json:"snippet"`
}

// Searcher scans the corpus for case-insensitive substring matches.
type Searcher struct {
	scanner    *Scanner
	maxResults int
	radius     int
	logger     *zap.Logger

	// read loads a document's text; readText outside tests.
	read func(path string) (string, error)
}

// NewSearcher creates a searcher. maxResults <= 0 selects DefaultMaxResults
// and radius < 0 selects DefaultSnippetRadius.
func NewSearcher(scanner *Scanner, maxResults, radius int, logger *zap.Logger) *Searcher {
	if maxResults <= 0 {
		maxResults = DefaultMaxResults
	}
	if radius < 0 {
		radius = DefaultSnippetRadius
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Searcher{
		scanner:    scanner,
		maxResults: maxResults,
		radius:     radius,
		logger:     logger,
		read:       readText,
	}
}

// Search returns up to maxResults documents containing query, each with a
// snippet around its first match. maxResults <= 0 selects the searcher
// default. Scanning stops as soon as the limit is reached. Files that cannot
// be read are skipped; only context cancellation is reported as an error.
func (s *Searcher) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if maxResults <= 0 {
		maxResults = s.maxResults
	}

	needle := lowerRunes(query)
	results := make([]SearchResult, 0)

	err := s.scanner.Walk(ctx, func(doc Document) error {
		text, err := s.read(doc.AbsPath)
		if err != nil {
			s.logger.Debug("skipping unreadable document",
				zap.String("path", doc.RelPath),
				zap.Error(err))
			return nil
		}

		snippet, ok := s.snippet(text, needle)
		if !ok {
			return nil
		}

		results = append(results, SearchResult{Path: doc.RelPath, Snippet: snippet})
		if len(results) >= maxResults {
			return ErrStopWalk
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return results, nil
}

// snippet finds the first occurrence of needle (already lowered) in text and
// returns the surrounding characters with line breaks flattened to spaces.
func (s *Searcher) snippet(text, needle string) (string, bool) {
	haystack := lowerRunes(text)
	idx := strings.Index(haystack, needle)
	if idx < 0 {
		return "", false
	}

	// lowerRunes maps rune for rune, so character offsets carry over.
	start := utf8.RuneCountInString(haystack[:idx])
	runes := []rune(text)

	from := max(0, start-s.radius)
	to := min(len(runes), start+s.radius)

	return flattenLines(string(runes[from:to])), true
}

// lowerRunes lowercases s one rune at a time, preserving its length in runes.
func lowerRunes(s string) string {
	return strings.Map(unicode.ToLower, s)
}

var lineBreaks = strings.NewReplacer("\n", " ", "\r", " ")

func flattenLines(s string) string {
	return lineBreaks.Replace(s)
}
