package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.opentelemetry.io/otel/trace"

	"github.com/fyrsmithlabs/studydocs/internal/corpus"
	"github.com/fyrsmithlabs/studydocs/internal/logging"
	"github.com/fyrsmithlabs/studydocs/internal/telemetry"
)

// Instructions is sent to clients during initialization.
const Instructions = `This server gives read-only access to a folder of study documents.

Use list_documents to see which documents exist, read_document to load one by
its relative path, and search_documents to find documents containing a phrase.
Search is a case-insensitive substring match and returns a short snippet around
the first match in each document. Paths outside the documents folder are
rejected.`

// Corpus is the document store the tools operate on.
type Corpus interface {
	Root() string
	List(ctx context.Context) ([]string, error)
	Read(ctx context.Context, relativePath string, maxChars int) (corpus.ReadResult, error)
	Search(ctx context.Context, query string, maxResults int) ([]corpus.SearchResult, error)
}

// Config configures the MCP server.
type Config struct {
	// Name is the implementation name reported to clients.
	Name string

	// Version is the implementation version reported to clients.
	Version string
}

// DefaultConfig returns the default server identity.
func DefaultConfig() *Config {
	return &Config{
		Name:    "studydocs",
		Version: "dev",
	}
}

// Server registers the document tools on an MCP server.
type Server struct {
	mcp     *mcp.Server
	docs    Corpus
	logger  *logging.Logger
	tracer  trace.Tracer
	metrics *Metrics
}

// NewServer creates an MCP server backed by docs. A nil tel uses the global
// OpenTelemetry providers.
func NewServer(cfg *Config, docs Corpus, logger *logging.Logger, tel *telemetry.Telemetry) (*Server, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if docs == nil {
		return nil, errors.New("corpus is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logger.Named("mcp")

	s := &Server{
		mcp: mcp.NewServer(
			&mcp.Implementation{Name: cfg.Name, Version: cfg.Version},
			&mcp.ServerOptions{Instructions: Instructions},
		),
		docs:    docs,
		logger:  logger,
		tracer:  tel.Tracer(instrumentationName),
		metrics: NewMetrics(tel.Meter(instrumentationName), logger),
	}
	s.registerTools()

	return s, nil
}

// MCPServer returns the underlying go-sdk server.
func (s *Server) MCPServer() *mcp.Server {
	return s.mcp
}

// Run serves MCP on stdin/stdout until ctx is cancelled or the client
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.logger.Info(ctx, "starting MCP server on stdio transport")
	if err := s.mcp.Run(ctx, &mcp.StdioTransport{}); err != nil {
		return fmt.Errorf("server run failed: %w", err)
	}
	return nil
}

// HTTPHandler serves MCP over the streamable HTTP transport.
func (s *Server) HTTPHandler() http.Handler {
	return mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return s.mcp
	}, nil)
}

// ListTools connects an in-memory client and returns the registered tools.
func (s *Server) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := s.mcp.Connect(ctx, serverTransport, nil)
	if err != nil {
		return nil, fmt.Errorf("connecting server session: %w", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "studydocs-inspect"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		_ = serverSession.Close()
		return nil, fmt.Errorf("connecting client session: %w", err)
	}

	res, err := clientSession.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		_ = clientSession.Close()
		_ = serverSession.Close()
		return nil, fmt.Errorf("listing tools: %w", err)
	}
	if err := clientSession.Close(); err != nil {
		return nil, err
	}
	if err := serverSession.Wait(); err != nil {
		return nil, err
	}
	return res.Tools, nil
}
