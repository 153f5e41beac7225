package mcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/studydocs/internal/corpus"
	"github.com/fyrsmithlabs/studydocs/internal/logging"
)

// Tool names.
const (
	ToolListDocuments   = "list_documents"
	ToolReadDocument    = "read_document"
	ToolSearchDocuments = "search_documents"
)

func (s *Server) registerTools() {
	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolListDocuments,
		Description: "List every readable document in the study documents folder. Returns paths relative to the folder.",
	}, s.listDocuments)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolReadDocument,
		Description: "Read a document by its path relative to the study documents folder. Long documents are truncated.",
	}, s.readDocument)

	mcp.AddTool(s.mcp, &mcp.Tool{
		Name:        ToolSearchDocuments,
		Description: "Find documents containing a phrase (case-insensitive). Returns each matching path with a snippet around the first match.",
	}, s.searchDocuments)
}

// invoke runs fn with a request id, a span and tool metrics.
func (s *Server) invoke(ctx context.Context, tool string, fn func(context.Context, trace.Span) error) error {
	start := time.Now()
	ctx = logging.WithRequestID(ctx, uuid.NewString())
	ctx = logging.WithTool(ctx, tool)
	ctx, span := s.tracer.Start(ctx, "mcp."+tool, trace.WithAttributes(attribute.String("mcp.tool", tool)))
	defer span.End()

	s.metrics.IncrementActive(ctx, tool)
	err := fn(ctx, span)
	s.metrics.DecrementActive(ctx, tool)

	elapsed := time.Since(start)
	s.metrics.RecordInvocation(ctx, tool, elapsed, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn(ctx, "tool failed", zap.Duration("duration", elapsed), zap.Error(err))
		return err
	}
	s.logger.Info(ctx, "tool completed", zap.Duration("duration", elapsed))
	return nil
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// ===== list_documents =====

type listDocumentsInput struct{}

type listDocumentsOutput struct {
	Documents []string `json:"documents" jsonschema:"Document paths relative to the documents folder"`
	Count     int      `json:"count" jsonschema:"Number of documents"`
}

func (s *Server) listDocuments(ctx context.Context, _ *mcp.CallToolRequest, _ listDocumentsInput) (*mcp.CallToolResult, listDocumentsOutput, error) {
	var out listDocumentsOutput
	err := s.invoke(ctx, ToolListDocuments, func(ctx context.Context, span trace.Span) error {
		docs, err := s.docs.List(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}
		if docs == nil {
			docs = []string{}
		}
		out = listDocumentsOutput{Documents: docs, Count: len(docs)}
		span.SetAttributes(attribute.Int("docs.count", out.Count))
		return nil
	})
	if err != nil {
		return nil, listDocumentsOutput{}, err
	}
	return textResult(formatList(out)), out, nil
}

func formatList(out listDocumentsOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d documents", out.Count)
	for _, d := range out.Documents {
		b.WriteString("\n")
		b.WriteString(d)
	}
	return b.String()
}

// ===== read_document =====

type readDocumentInput struct {
	Path     string `json:"path" jsonschema:"Document path relative to the documents folder"`
	MaxChars int    `json:"max_chars,omitempty" jsonschema:"Maximum characters to return (default 8000)"`
}

type readDocumentOutput struct {
	Path      string `json:"path" jsonschema:"Requested path"`
	Status    string `json:"status" jsonschema:"ok, not_found or unreadable"`
	Content   string `json:"content" jsonschema:"Document text, or a short message when the document could not be read"`
	Truncated bool   `json:"truncated" jsonschema:"True when content was cut at max_chars"`
}

func (s *Server) readDocument(ctx context.Context, _ *mcp.CallToolRequest, in readDocumentInput) (*mcp.CallToolResult, readDocumentOutput, error) {
	var out readDocumentOutput
	err := s.invoke(ctx, ToolReadDocument, func(ctx context.Context, span trace.Span) error {
		span.SetAttributes(attribute.String("doc.path", in.Path))
		res, err := s.docs.Read(ctx, in.Path, in.MaxChars)
		if err != nil {
			return err
		}
		out = readDocumentOutput{
			Path:      res.Path,
			Status:    res.Status.String(),
			Content:   res.Message(),
			Truncated: res.Truncated,
		}
		span.SetAttributes(
			attribute.String("doc.status", out.Status),
			attribute.Bool("doc.truncated", out.Truncated),
		)
		return nil
	})
	if err != nil {
		return nil, readDocumentOutput{}, err
	}
	return textResult(out.Content), out, nil
}

// ===== search_documents =====

type searchDocumentsInput struct {
	Query      string `json:"query" jsonschema:"Phrase to search for"`
	MaxResults int    `json:"max_results,omitempty" jsonschema:"Maximum matching documents to return (default 10)"`
}

type searchDocumentsOutput struct {
	Query   string                `json:"query" jsonschema:"The query searched for"`
	Results []corpus.SearchResult `json:"results" jsonschema:"Matching documents with snippets"`
	Count   int                   `json:"count" jsonschema:"Number of results"`
}

func (s *Server) searchDocuments(ctx context.Context, _ *mcp.CallToolRequest, in searchDocumentsInput) (*mcp.CallToolResult, searchDocumentsOutput, error) {
	var out searchDocumentsOutput
	err := s.invoke(ctx, ToolSearchDocuments, func(ctx context.Context, span trace.Span) error {
		if in.Query == "" {
			return fmt.Errorf("%w: query must not be empty", ErrInvalidInput)
		}
		results, err := s.docs.Search(ctx, in.Query, in.MaxResults)
		if err != nil {
			return fmt.Errorf("searching documents: %w", err)
		}
		if results == nil {
			results = []corpus.SearchResult{}
		}
		out = searchDocumentsOutput{Query: in.Query, Results: results, Count: len(results)}
		span.SetAttributes(attribute.Int("search.results", out.Count))
		return nil
	})
	if err != nil {
		return nil, searchDocumentsOutput{}, err
	}
	return textResult(formatSearch(out)), out, nil
}

func formatSearch(out searchDocumentsOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d matches for '%s'", out.Count, quoteQuery(out.Query))
	for _, r := range out.Results {
		fmt.Fprintf(&b, "\n\n%s\n%s", r.Path, r.Snippet)
	}
	return b.String()
}

// quoteQuery escapes backslashes and single quotes so the query reads
// unambiguously inside '...'.
func quoteQuery(q string) string {
	return queryEscaper.Replace(q)
}

var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)
