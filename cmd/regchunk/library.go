package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/regchunk/pkg/library"
	"github.com/coolbeans/regchunk/pkg/store"
)

func libraryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "library",
		Short: "Manage the document library",
		Long: `Manage the on-disk library of chunked documents.

The library keeps each document's source text, chunks and run metadata,
so documents can be re-indexed without chunking them again.

Examples:
  regchunk library init
  regchunk library list
  regchunk library status
  regchunk library show ren-1000
  regchunk library chunks ren-1000 --format txt
  regchunk library source ren-1000
  regchunk library remove ren-1000`,
	}

	cmd.AddCommand(libraryInitCmd())
	cmd.AddCommand(libraryListCmd())
	cmd.AddCommand(libraryStatusCmd())
	cmd.AddCommand(libraryShowCmd())
	cmd.AddCommand(libraryRemoveCmd())
	cmd.AddCommand(libraryChunksCmd())
	cmd.AddCommand(librarySourceCmd())

	return cmd
}

func libraryInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Initialize a new document library",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}

			lib, err := library.Init(a.cfg.Library.Path, nil)
			if err != nil {
				return fmt.Errorf("failed to initialize library: %w", err)
			}

			fmt.Printf("Library initialized at: %s\n", lib.Path())
			fmt.Println("\nNext steps:")
			fmt.Println("  regchunk ingest --source path/to/norm.pdf")
			return nil
		},
	}
}

func libraryListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List all documents in the library",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatStr, _ := cmd.Flags().GetString("format")
			kind, _ := cmd.Flags().GetString("kind")

			a, err := loadApp()
			if err != nil {
				return err
			}
			lib, err := a.openLibrary(nil)
			if err != nil {
				return err
			}

			docs := lib.ListDocuments()
			if kind != "" {
				filtered := make([]*library.DocumentEntry, 0)
				for _, entry := range docs {
					if string(entry.Kind) == kind {
						filtered = append(filtered, entry)
					}
				}
				docs = filtered
			}

			if formatStr == "json" {
				return printJSON(docs)
			}

			if len(docs) == 0 {
				fmt.Println("Library is empty. Run 'regchunk ingest --source <file>' to add documents.")
				return nil
			}

			fmt.Printf("%-24s %-28s %-8s %-10s %8s %8s %8s\n",
				"ID", "NAME", "KIND", "STATUS", "ELEMENTS", "CHUNKS", "PARTIAL")
			fmt.Println(strings.Repeat("-", 100))

			for _, entry := range docs {
				elements, chunks, partial := 0, 0, 0
				if entry.Stats != nil {
					elements = entry.Stats.Elements
					chunks = entry.Stats.Chunks
					partial = entry.Stats.PartialChunks
				}
				name := entry.Name
				if name == "" {
					name = entry.ID
				}
				fmt.Printf("%-24s %-28s %-8s %-10s %8d %8d %8d\n",
					truncateString(entry.ID, 24),
					truncateString(name, 28),
					entry.Kind,
					entry.Status,
					elements,
					chunks,
					partial,
				)
			}

			fmt.Printf("\n%d document(s)\n", len(docs))
			return nil
		},
	}

	cmd.Flags().StringP("format", "f", "table", "Output format (table, json)")
	cmd.Flags().String("kind", "", "Filter by document kind (legal, generic)")

	return cmd
}

func libraryStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show library statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			lib, err := a.openLibrary(nil)
			if err != nil {
				return err
			}

			stats := lib.Stats()
			fmt.Printf("Library: %s\n\n", lib.Path())
			fmt.Printf("  Documents:     %d\n", stats.TotalDocuments)
			fmt.Printf("  Elements:      %d\n", stats.TotalElements)
			fmt.Printf("  Chunks:        %d\n", stats.TotalChunks)
			fmt.Printf("  Partial:       %d\n", stats.PartialChunks)
			fmt.Printf("  Source size:   %s\n", formatBytes(stats.TotalSourceSize))

			printCounts("By kind", stats.ByKind)
			printCounts("By status", stats.ByStatus)

			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()
			indexStats, err := index.Stats(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("\nIndex: %s\n\n", a.cfg.Store.Path)
			fmt.Printf("  Documents:     %d\n", indexStats.Documents)
			fmt.Printf("  Chunks:        %d\n", indexStats.Chunks)
			fmt.Printf("  Embeddings:    %d\n", indexStats.Embeddings)
			fmt.Printf("  Size:          %s\n", formatBytes(int(indexStats.DBSizeBytes)))
			return nil
		},
	}
}

func libraryShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a document's entry and run metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			lib, err := a.openLibrary(nil)
			if err != nil {
				return err
			}

			entry := lib.GetDocument(args[0])
			if entry == nil {
				return fmt.Errorf("%w: %s", library.ErrDocumentNotFound, args[0])
			}

			out := struct {
				Entry    *library.DocumentEntry    `json:"entry"`
				Metadata *library.DocumentMetadata `json:"metadata,omitempty"`
				Indexed  *store.Document           `json:"indexed,omitempty"`
			}{Entry: entry}
			if entry.Status == library.StatusReady {
				out.Metadata, err = lib.LoadMetadata(entry.ID)
				if err != nil {
					return err
				}
			}

			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()
			out.Indexed, err = index.GetDocument(cmd.Context(), entry.ID)
			if err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			return printJSON(out)
		},
	}
}

func libraryRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Remove a document from the library and the index",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			documentID := args[0]

			a, err := loadApp()
			if err != nil {
				return err
			}
			lib, err := a.openLibrary(nil)
			if err != nil {
				return err
			}
			if err := lib.RemoveDocument(documentID); err != nil {
				return fmt.Errorf("failed to remove document: %w", err)
			}

			index, err := a.openStore()
			if err != nil {
				return err
			}
			defer index.Close()
			if err := index.DeleteDocument(cmd.Context(), documentID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return fmt.Errorf("failed to remove document from index: %w", err)
			}

			fmt.Printf("Removed document: %s\n", documentID)
			return nil
		},
	}
}

func libraryChunksCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunks ID",
		Short: "Print a document's stored chunks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			a, err := loadApp()
			if err != nil {
				return err
			}
			lib, err := a.openLibrary(nil)
			if err != nil {
				return err
			}

			chunks, err := lib.LoadChunks(args[0])
			if err != nil {
				return err
			}
			return writeChunks(os.Stdout, chunks, format)
		},
	}

	cmd.Flags().StringP("format", "f", "json", "Output format (json, jsonl, txt)")

	return cmd
}

func librarySourceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "source ID",
		Short: "Print a document's stored source text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp()
			if err != nil {
				return err
			}
			lib, err := a.openLibrary(nil)
			if err != nil {
				return err
			}

			source, err := lib.LoadSource(args[0])
			if err != nil {
				return err
			}
			_, err = os.Stdout.Write(source)
			return err
		},
	}
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}

func printCounts(title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Printf("\n  %s:\n", title)
	for _, k := range keys {
		fmt.Printf("    %-12s %d\n", k, counts[k])
	}
}

func formatBytes(n int) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := unit, 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGT"[exp])
}
