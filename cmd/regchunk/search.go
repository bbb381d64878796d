package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/regchunk/pkg/store"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search indexed chunks",
		Long: `Search indexed chunks by keyword (full-text, ranked by bm25) or by
semantic similarity of embeddings.

Examples:
  regchunk search "suspensão do fornecimento"
  regchunk search "prazo para religação" --mode semantic --limit 5`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, _ := cmd.Flags().GetString("mode")
			limit, _ := cmd.Flags().GetInt("limit")
			format, _ := cmd.Flags().GetString("format")
			query := strings.Join(args, " ")

			a, err := loadApp()
			if err != nil {
				return err
			}
			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()

			var hits []*store.Hit
			switch mode {
			case "keyword":
				hits, err = index.SearchText(cmd.Context(), query, limit)
			case "semantic":
				embedder, embedErr := a.embedder()
				if embedErr != nil {
					return embedErr
				}
				vectors, embedErr := embedder.Embed(cmd.Context(), []string{query})
				if embedErr != nil {
					return fmt.Errorf("failed to embed query: %w", embedErr)
				}
				hits, err = index.SearchVector(cmd.Context(), embedder.Model(), vectors[0], limit)
			default:
				return fmt.Errorf("unknown mode: %s (use keyword or semantic)", mode)
			}
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}

			if format == "json" {
				if hits == nil {
					hits = []*store.Hit{}
				}
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				encoder.SetEscapeHTML(false)
				return encoder.Encode(hits)
			}
			return writeHits(os.Stdout, hits)
		},
	}

	cmd.Flags().StringP("mode", "m", "keyword", "Search mode (keyword, semantic)")
	cmd.Flags().IntP("limit", "n", 10, "Maximum number of results")
	cmd.Flags().StringP("format", "f", "table", "Output format (table, json)")

	return cmd
}

func writeHits(w io.Writer, hits []*store.Hit) error {
	if len(hits) == 0 {
		_, err := fmt.Fprintln(w, "No results.")
		return err
	}
	for i, hit := range hits {
		location := hit.Chunk.ID
		if hit.Chunk.Context != "" {
			location += " [" + hit.Chunk.Context + "]"
		}
		if hit.Chunk.Page > 0 {
			location += fmt.Sprintf(" p.%d", hit.Chunk.Page)
		}
		fmt.Fprintf(w, "%2d. %.4f  %s  %s\n", i+1, hit.Score, hit.DocumentID, location)
		fmt.Fprintf(w, "    %s\n\n", truncateString(hit.Chunk.Body(), 200))
	}
	return nil
}

func askCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask QUESTION",
		Short: "Answer a question from indexed documents",
		Long: `Answer a question using only the chunks most similar to it. Needs an
OpenAI API key (embedding.api_key or OPENAI_API_KEY).

Example:
  regchunk ask "Qual o prazo para religação após o pagamento?"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			question := strings.Join(args, " ")

			a, err := loadApp()
			if err != nil {
				return err
			}
			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()

			embedder, err := a.embedder()
			if err != nil {
				return err
			}
			answerer := a.answerer(embedder, index)
			if answerer == nil {
				return fmt.Errorf("ask needs an OpenAI API key (set OPENAI_API_KEY or embedding.api_key)")
			}

			ans, err := answerer.Ask(cmd.Context(), question)
			if err != nil {
				return err
			}

			fmt.Println(ans.Text)
			if len(ans.Sources) > 0 {
				fmt.Printf("\nFontes (%d trechos):\n", ans.ContextUsed)
				for _, source := range ans.Sources {
					fmt.Printf("  - %s\n", source)
				}
			}
			return nil
		},
	}

	return cmd
}

// truncateString shortens s to at most maxLen runes, ending in "...".
func truncateString(s string, maxLen int) string {
	s = strings.Join(strings.Fields(s), " ")
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
