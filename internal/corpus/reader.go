package corpus

import (
	"context"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"
)

// DefaultMaxChars is the character budget for a single read.
const DefaultMaxChars = 8000

// TruncationMarker is appended to content cut at the character budget.
const TruncationMarker = "\n\n...[truncated]..."

// unreadableMessage is reported for files that cannot be read as text.
const unreadableMessage = "this file is not readable as text."

// ReadStatus tags the outcome of a read.
type ReadStatus int

const (
	// StatusOK means Content holds the (possibly truncated) document text.
	StatusOK ReadStatus = iota
	// StatusNotFound means nothing exists at the requested path.
	StatusNotFound
	// StatusUnreadable means the path exists but could not be read as text.
	StatusUnreadable
)

// String returns the wire name of the status.
func (s ReadStatus) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusNotFound:
		return "not_found"
	case StatusUnreadable:
		return "unreadable"
	default:
		return fmt.Sprintf("ReadStatus(%d)", int(s))
	}
}

// ReadResult is the outcome of reading a document.
type ReadResult struct {
	// Path is the path as requested by the caller.
	Path string
	// Status tags the result.
	Status ReadStatus
	// Content is the document text when Status is StatusOK.
	Content string
	// Truncated is true when Content was cut at the character budget.
	Truncated bool
}

// Message renders the result as the text shown to the agent.
func (r ReadResult) Message() string {
	switch r.Status {
	case StatusOK:
		return r.Content
	case StatusNotFound:
		return "file not found: " + r.Path
	default:
		return unreadableMessage
	}
}

// Reader loads documents as text through the sandbox.
type Reader struct {
	sandbox  *Sandbox
	maxChars int
	logger   *zap.Logger
}

// NewReader creates a reader. maxChars <= 0 selects DefaultMaxChars.
func NewReader(sandbox *Sandbox, maxChars int, logger *zap.Logger) *Reader {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reader{
		sandbox:  sandbox,
		maxChars: maxChars,
		logger:   logger,
	}
}

// Read returns the text of the document at relativePath.
//
// maxChars <= 0 selects the reader default. The only error returned is one
// wrapping ErrAccessDenied (or the context error); missing and unreadable
// files are reported through the result status.
func (r *Reader) Read(ctx context.Context, relativePath string, maxChars int) (ReadResult, error) {
	if err := ctx.Err(); err != nil {
		return ReadResult{}, err
	}
	if maxChars <= 0 {
		maxChars = r.maxChars
	}

	resolved, err := r.sandbox.Resolve(relativePath)
	if err != nil {
		return ReadResult{}, err
	}

	result := ReadResult{Path: relativePath}

	if _, err := os.Stat(resolved); err != nil {
		if isNotExist(err) {
			result.Status = StatusNotFound
			return result, nil
		}
		r.logger.Debug("document stat failed", zap.String("path", relativePath), zap.Error(err))
		result.Status = StatusUnreadable
		return result, nil
	}

	text, err := readText(resolved)
	if err != nil {
		r.logger.Debug("document not readable", zap.String("path", relativePath), zap.Error(err))
		result.Status = StatusUnreadable
		return result, nil
	}

	result.Status = StatusOK
	result.Content, result.Truncated = truncateChars(text, maxChars)
	return result, nil
}

// readText reads and lossily decodes the file at p.
func readText(p string) (string, error) {
	b, err := os.ReadFile(p)
	if err != nil {
		return "", err
	}
	return decodeText(b)
}

// truncateChars keeps the first n characters of text and appends the
// truncation marker when anything was cut.
func truncateChars(text string, n int) (string, bool) {
	if utf8.RuneCountInString(text) <= n {
		return text, false
	}

	count := 0
	for i := range text {
		if count == n {
			return text[:i] + TruncationMarker, true
		}
		count++
	}
	return text, false
}
