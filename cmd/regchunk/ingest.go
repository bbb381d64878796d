package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/embed"
	"github.com/coolbeans/regchunk/pkg/library"
	"github.com/coolbeans/regchunk/pkg/store"
)

func ingestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Chunk a document into the library and index it",
		Long: `Chunk a document, store it in the library and index its chunks for
search. Chunks are embedded unless --no-embed is given.

Adding an ID that is already in the library keeps the stored chunks;
use --force to chunk the source again.

Examples:
  regchunk ingest --source REN1000.pdf
  regchunk ingest --source lei-8987.txt --id lei-8987 --force`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			documentID, _ := cmd.Flags().GetString("id")
			documentName, _ := cmd.Flags().GetString("name")
			asPDF, _ := cmd.Flags().GetBool("pdf")
			force, _ := cmd.Flags().GetBool("force")
			noEmbed, _ := cmd.Flags().GetBool("no-embed")

			if sourcePath == "" {
				return fmt.Errorf("--source flag is required")
			}
			if documentID == "" {
				documentID = library.DeriveDocumentID(sourcePath)
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			reg, err := a.registry()
			if err != nil {
				return err
			}

			lib, err := library.OpenOrInit(a.cfg.Library.Path, a.pipeline(reg))
			if err != nil {
				return fmt.Errorf("failed to open library: %w", err)
			}

			fmt.Printf("Ingesting document: %s\n", documentID)
			entry, err := lib.AddFile(cmd.Context(), sourcePath, documentID, asPDF, library.AddOptions{
				Name:  documentName,
				Force: force,
			})
			if err != nil {
				return fmt.Errorf("failed to add document: %w", err)
			}
			if entry.Status != library.StatusReady {
				return fmt.Errorf("document %s is %s: %s", entry.ID, entry.Status, entry.Error)
			}

			chunks, err := lib.LoadChunks(entry.ID)
			if err != nil {
				return err
			}

			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()

			doc := store.Document{ID: entry.ID, Name: entry.Name, Kind: entry.Kind}
			if err := index.ReplaceDocument(cmd.Context(), doc, chunks); err != nil {
				return fmt.Errorf("failed to index document: %w", err)
			}

			fmt.Printf("  Kind: %s\n", entry.Kind)
			fmt.Printf("  Chunks: %d\n", len(chunks))
			if entry.Stats != nil {
				fmt.Printf("  Elements: %d (%d duplicates, %d revoked)\n",
					entry.Stats.Elements, entry.Stats.Duplicates, entry.Stats.Revoked)
			}

			if noEmbed {
				return nil
			}
			embedder, err := a.embedder()
			if err != nil {
				return err
			}
			if err := embedChunks(cmd.Context(), index, embedder, entry.ID, chunks); err != nil {
				return err
			}
			fmt.Printf("  Embeddings: %d (%s)\n", len(chunks), embedder.Model())
			return nil
		},
	}

	cmd.Flags().StringP("source", "s", "", "Source document path")
	cmd.Flags().String("id", "", "Document identifier (derived from filename if omitted)")
	cmd.Flags().String("name", "", "Human-readable name (default: file name)")
	cmd.Flags().Bool("pdf", false, "Treat the source as a PDF regardless of extension")
	cmd.Flags().Bool("force", false, "Chunk again and replace an existing document")
	cmd.Flags().Bool("no-embed", false, "Index for keyword search only")

	return cmd
}

// embedChunks embeds the text of every chunk and stores the vectors.
func embedChunks(ctx context.Context, index *store.Store, embedder embed.Embedder, documentID string, chunks []chunk.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("failed to embed chunks: %w", err)
	}

	embeddings := make([]store.Embedding, len(chunks))
	for i, c := range chunks {
		embeddings[i] = store.Embedding{ChunkID: c.ID, Vector: vectors[i]}
	}
	if err := index.PutEmbeddings(ctx, documentID, embedder.Model(), embeddings); err != nil {
		return fmt.Errorf("failed to store embeddings: %w", err)
	}
	return nil
}
