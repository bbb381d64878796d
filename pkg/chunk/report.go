package chunk

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteReport writes the consolidated plain-text inspection report, one
// block per chunk.
func WriteReport(w io.Writer, chunks []Chunk) error {
	bw := bufio.NewWriter(w)
	rule := strings.Repeat("=", 80)
	thin := strings.Repeat("-", 80)

	fmt.Fprintln(bw, "RELATÓRIO DE CHUNKS CONSOLIDADO")
	fmt.Fprintln(bw, rule)
	for _, c := range chunks {
		fmt.Fprintf(bw, "\nCHUNK %s | PÁG: %d | TIPO: %s\n", c.ID, c.Page, c.Type)
		fmt.Fprintf(bw, "CONTEXTO: %s\n", c.Context)
		fmt.Fprintln(bw, thin)
		fmt.Fprintln(bw, c.Text)
	}
	return bw.Flush()
}
