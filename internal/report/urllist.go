package report

import (
	"bufio"
	"io"
	"slices"

	"github.com/nao1215/sitemapcrawl/internal/model"
)

// URLListWriter writes the collected URLs one per line in lexicographic
// order. This is the primary output of a run.
type URLListWriter struct {
	baseWriter
}

// NewURLListWriter creates a URLListWriter that outputs to the given writer.
func NewURLListWriter(output io.Writer) *URLListWriter {
	return &URLListWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs report.URLs. An empty URL set writes nothing.
func (w *URLListWriter) Write(report *model.RunReport) (int, error) {
	return w.WriteURLs(report.URLs)
}

// WriteURLs outputs urls sorted, one per line. The slice is not modified.
func (w *URLListWriter) WriteURLs(urls []string) (int, error) {
	sorted := slices.Clone(urls)
	slices.Sort(sorted)

	bw := bufio.NewWriter(w.output)
	var total int
	for _, u := range sorted {
		n, err := bw.WriteString(u + "\n")
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, bw.Flush()
}
