package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"cabinetquote/internal/bootstrap"
	"cabinetquote/internal/knowledge"
	"cabinetquote/internal/rag"
)

var (
	searchText string
	searchTopK int
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Show the past quotes nearest to a query",
	Long: `Embed the query the same way the server does and print the nearest quotes
with their L2 distance.

Examples:
  quotekb search -q "kitchen renovation, oak, soft-close"
  quotekb search -q "media unit" -k 5 --json`,
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchText, "query", "q", "", "search query (required)")
	searchCmd.Flags().IntVarP(&searchTopK, "top-k", "k", 0, "number of results (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output as JSON")
	_ = searchCmd.MarkFlagRequired("query")
}

func runSearch(cmd *cobra.Command, args []string) error {
	kb, err := knowledge.Load(cfg.Knowledge.IndexPath, cfg.Knowledge.CorpusPath)
	if err != nil {
		return fmt.Errorf("no knowledge base found, run 'quotekb build' first: %w", err)
	}
	embedder, err := bootstrap.NewEmbedder(cfg)
	if err != nil {
		return err
	}

	retriever := rag.NewRetriever(embedder, kb, nil, cfg.Knowledge.TopK)
	matches, err := retriever.Search(context.Background(), searchText, searchTopK)
	if err != nil {
		return err
	}
	return printMatches(os.Stdout, matches, searchJSON)
}

func printMatches(w io.Writer, matches []rag.Match, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No quotes in the knowledge base.")
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(w, "%d. [distance %.4f] #%d %s\n", i+1, m.Distance, m.Position, firstLine(m.Text))
		fmt.Fprintf(w, "   %s\n\n", preview(m.Text, 150))
	}
	return nil
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return line
}

func preview(text string, limit int) string {
	_, body, found := strings.Cut(text, "\n\n")
	if !found {
		body = text
	}
	body = strings.Join(strings.Fields(body), " ")
	if r := []rune(body); len(r) > limit {
		body = string(r[:limit]) + "..."
	}
	return body
}
