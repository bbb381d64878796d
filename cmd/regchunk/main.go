package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

var cfgFile string

func main() {
	// A missing .env is fine; the environment may already carry the keys.
	_ = godotenv.Load()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "regchunk",
		Short: "Hierarchy-aware chunking of Brazilian normative documents",
		Long: `regchunk turns the text of Brazilian normative documents (resolutions,
laws, decrees) into retrieval chunks that keep their place in the
document hierarchy.

It can:
  - Chunk plain text or PDF documents into JSON, JSONL or a text report
  - Keep a library of chunked documents on disk
  - Index chunks in SQLite for keyword and semantic search
  - Answer questions from indexed chunks
  - Serve chunking and search as MCP tools over stdio`,
		Version:       version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./regchunk.yaml or ~/.regchunk/config.yaml)")

	rootCmd.AddCommand(chunkCmd())
	rootCmd.AddCommand(extractCmd())
	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(askCmd())
	rootCmd.AddCommand(libraryCmd())
	rootCmd.AddCommand(patternsCmd())
	rootCmd.AddCommand(configCmd())
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(versionCmd())

	return rootCmd
}
