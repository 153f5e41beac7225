package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/studydocs/internal/corpus"
)

var (
	// jsonOutput prints machine-readable output
	jsonOutput bool
	// readMaxChars overrides docs.max_chars for one read
	readMaxChars int
	// searchMaxResults overrides docs.max_results for one search
	searchMaxResults int
)

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(readCmd)
	rootCmd.AddCommand(searchCmd)

	for _, c := range []*cobra.Command{listCmd, readCmd, searchCmd} {
		c.Flags().BoolVar(&jsonOutput, "json", false, "print JSON")
	}
	readCmd.Flags().IntVar(&readMaxChars, "max-chars", 0, "maximum characters to print (default docs.max_chars)")
	searchCmd.Flags().IntVar(&searchMaxResults, "max-results", 0, "maximum documents to return (default docs.max_results)")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents in the folder",
	Long: `List every readable document in the documents folder.

Hidden files and paths matched by docs.exclude or the ignore file are left out.

Examples:
  studydocs list
  studydocs list --root ~/Biology --json`,
	Args: cobra.NoArgs,
	RunE: runList,
}

var readCmd = &cobra.Command{
	Use:   "read <path>",
	Short: "Print a document",
	Long: `Print a document by its path relative to the documents folder.

Long documents are truncated. Paths outside the folder are rejected with a
non-zero exit status.

Examples:
  studydocs read week1/notes.md
  studydocs read week1/notes.md --max-chars 500`,
	Args: cobra.ExactArgs(1),
	RunE: runRead,
}

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find documents containing a phrase",
	Long: `Find documents containing a phrase, ignoring case.

Each match is printed with a snippet around its first occurrence. Multiple
arguments are joined with spaces.

Examples:
  studydocs search mitochondria
  studydocs search cell division --max-results 3 --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func runList(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		docs, err := a.docs.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list documents: %w", err)
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, map[string]interface{}{
				"documents": docs,
				"count":     len(docs),
			})
		}
		for _, d := range docs {
			fmt.Fprintln(out, d)
		}
		return nil
	})
}

// readOutput matches the read_document tool output.
type readOutput struct {
	Path      string `json:"path"`
	Status    string `json:"status"`
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
}

func runRead(cmd *cobra.Command, args []string) error {
	return withApp(cmd, func(ctx context.Context, a *app) error {
		res, err := a.docs.Read(ctx, args[0], readMaxChars)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, readOutput{
				Path:      res.Path,
				Status:    res.Status.String(),
				Content:   res.Message(),
				Truncated: res.Truncated,
			})
		}
		if res.Status != corpus.StatusOK {
			fmt.Fprintln(cmd.ErrOrStderr(), res.Message())
			return nil
		}
		fmt.Fprintln(out, res.Content)
		return nil
	})
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.Join(args, " ")
	if query == "" {
		return fmt.Errorf("query must not be empty")
	}

	return withApp(cmd, func(ctx context.Context, a *app) error {
		results, err := a.docs.Search(ctx, query, searchMaxResults)
		if err != nil {
			return fmt.Errorf("failed to search documents: %w", err)
		}
		if results == nil {
			results = []corpus.SearchResult{}
		}

		out := cmd.OutOrStdout()
		if jsonOutput {
			return writeJSON(out, map[string]interface{}{
				"query":   query,
				"results": results,
				"count":   len(results),
			})
		}
		fmt.Fprintf(out, "Found %d matches for '%s'\n", len(results), queryEscaper.Replace(query))
		for _, r := range results {
			fmt.Fprintf(out, "\n%s\n%s\n", r.Path, r.Snippet)
		}
		return nil
	})
}

// queryEscaper keeps a query unambiguous inside '...'.
var queryEscaper = strings.NewReplacer(`\`, `\\`, `'`, `\'`)

func writeJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
