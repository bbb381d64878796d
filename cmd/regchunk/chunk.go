package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/coolbeans/regchunk/pkg/chunk"
	"github.com/coolbeans/regchunk/pkg/library"
	"github.com/coolbeans/regchunk/pkg/pdftext"
	"github.com/coolbeans/regchunk/pkg/pipeline"
)

func chunkCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chunk [FILE...]",
		Short: "Chunk normative documents",
		Long: `Chunk a normative document and write its chunks.

PDF files (by extension or with --pdf) are extracted page by page first.
Files given as arguments are chunked concurrently, each into
<output-dir>/<id>.<format>.

Formats:
  json   a JSON array of chunks (default)
  jsonl  one chunk per line
  txt    the consolidated chunk report for manual inspection

Examples:
  regchunk chunk --source REN1000.txt --output chunks.json
  regchunk chunk --source REN1000.pdf --format txt
  regchunk chunk --source lei.txt --format jsonl --max-chunk-size 800
  regchunk chunk normas/*.pdf --output-dir chunks --workers 4`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			asPDF, _ := cmd.Flags().GetBool("pdf")
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			maxChunkSize, _ := cmd.Flags().GetInt("max-chunk-size")
			outputDir, _ := cmd.Flags().GetString("output-dir")
			workers, _ := cmd.Flags().GetInt("workers")

			if sourcePath == "" && len(args) == 0 {
				return fmt.Errorf("--source flag or at least one FILE is required")
			}
			if len(args) > 0 && outputDir == "" {
				return fmt.Errorf("--output-dir is required when chunking several files")
			}

			a, err := loadApp()
			if err != nil {
				return err
			}
			if maxChunkSize > 0 {
				a.cfg.Chunking.MaxChunkSize = maxChunkSize
			}

			reg, err := a.registry()
			if err != nil {
				return err
			}
			p := a.pipeline(reg)

			if len(args) > 0 {
				return chunkBatch(cmd.Context(), p, args, asPDF, format, outputDir, workers)
			}

			sourceText, err := library.ReadSource(cmd.Context(), sourcePath, asPDF)
			if err != nil {
				return err
			}

			res, err := p.Run(cmd.Context(), library.DeriveDocumentID(sourcePath), string(sourceText))
			if err != nil {
				return fmt.Errorf("failed to chunk %s: %w", sourcePath, err)
			}

			err = writeOutput(output, func(w io.Writer) error {
				return writeChunks(w, res.Chunks, format)
			})
			if err != nil {
				return err
			}

			if output != "" {
				fmt.Fprintf(os.Stderr, "Wrote %d chunks (%s, %d partial) to %s\n",
					res.Stats.Chunks, res.Kind, res.Stats.PartialChunks, output)
			}
			return nil
		},
	}

	cmd.Flags().StringP("source", "s", "", "Source document path")
	cmd.Flags().Bool("pdf", false, "Treat the source as a PDF regardless of extension")
	cmd.Flags().StringP("format", "f", "json", "Output format (json, jsonl, txt)")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")
	cmd.Flags().Int("max-chunk-size", 0, "Largest chunk body in characters (default from config)")
	cmd.Flags().String("output-dir", "", "Directory for per-file output when chunking several files")
	cmd.Flags().Int("workers", 0, "Concurrent documents when chunking several files (default: GOMAXPROCS)")

	return cmd
}

func extractCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract the text of a PDF with page markers",
		Long: `Extract the plain text of a PDF. Each page starts with a [[PAGINA:n]]
line; a page that continues the previous sentence is glued to it.

Example:
  regchunk extract --source REN1000.pdf --output REN1000.txt`,
		RunE: func(cmd *cobra.Command, args []string) error {
			sourcePath, _ := cmd.Flags().GetString("source")
			output, _ := cmd.Flags().GetString("output")

			if sourcePath == "" {
				return fmt.Errorf("--source flag is required")
			}

			extraction, err := pdftext.Extract(cmd.Context(), sourcePath)
			if err != nil {
				return err
			}

			err = writeOutput(output, func(w io.Writer) error {
				_, err := io.WriteString(w, extraction.Text+"\n")
				return err
			})
			if err != nil {
				return err
			}

			if output != "" {
				fmt.Fprintf(os.Stderr, "Extracted %d pages to %s\n", len(extraction.Pages), output)
			}
			return nil
		},
	}

	cmd.Flags().StringP("source", "s", "", "Source PDF path")
	cmd.Flags().StringP("output", "o", "", "Output file (default: stdout)")

	return cmd
}

// chunkBatch chunks every file in paths and writes one output file per
// document into outputDir. Failures are reported per file.
func chunkBatch(ctx context.Context, p *pipeline.Pipeline, paths []string, asPDF bool, format, outputDir string, workers int) error {
	ext, err := formatExtension(format)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	inputs := make([]pipeline.Input, 0, len(paths))
	seen := make(map[string]bool, len(paths))
	failed := 0
	for _, path := range paths {
		sourceText, err := library.ReadSource(ctx, path, asPDF)
		if err != nil {
			fmt.Printf("  [FAIL] %-24s %v\n", path, err)
			failed++
			continue
		}
		name := uniqueName(seen, library.DeriveDocumentID(path))
		inputs = append(inputs, pipeline.Input{Name: name, Text: string(sourceText)})
	}

	for _, r := range p.RunBatch(ctx, inputs, workers) {
		if r.Err != nil {
			fmt.Printf("  [FAIL] %-24s %v\n", r.Name, r.Err)
			failed++
			continue
		}
		output := filepath.Join(outputDir, r.Name+ext)
		err := writeOutput(output, func(w io.Writer) error {
			return writeChunks(w, r.Result.Chunks, format)
		})
		if err != nil {
			return err
		}
		fmt.Printf("  [OK]   %-24s %4d chunks  %s\n", r.Name, r.Result.Stats.Chunks, output)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed", failed, len(paths))
	}
	return nil
}

// uniqueName returns id, or id with the first free "-N" suffix when another
// input already took it, and marks the result as taken.
func uniqueName(seen map[string]bool, id string) string {
	name := id
	for n := 2; seen[name]; n++ {
		name = fmt.Sprintf("%s-%d", id, n)
	}
	seen[name] = true
	return name
}

func formatExtension(format string) (string, error) {
	switch strings.ToLower(format) {
	case "json", "":
		return ".json", nil
	case "jsonl":
		return ".jsonl", nil
	case "txt", "text":
		return ".txt", nil
	default:
		return "", fmt.Errorf("unknown format: %s (use json, jsonl or txt)", format)
	}
}

// writeChunks writes chunks in one of the chunk output formats.
func writeChunks(w io.Writer, chunks []chunk.Chunk, format string) error {
	switch strings.ToLower(format) {
	case "json", "":
		if chunks == nil {
			chunks = []chunk.Chunk{}
		}
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		encoder.SetEscapeHTML(false)
		return encoder.Encode(chunks)
	case "jsonl":
		encoder := json.NewEncoder(w)
		encoder.SetEscapeHTML(false)
		for _, c := range chunks {
			if err := encoder.Encode(c); err != nil {
				return err
			}
		}
		return nil
	case "txt", "text":
		return chunk.WriteReport(w, chunks)
	default:
		return fmt.Errorf("unknown format: %s (use json, jsonl or txt)", format)
	}
}

// writeOutput runs write against the named file, or stdout when path is "".
func writeOutput(path string, write func(io.Writer) error) error {
	if path == "" {
		return write(os.Stdout)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
