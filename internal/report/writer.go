package report

import (
	"fmt"
	"io"

	"github.com/nao1215/sitemapcrawl/internal/config"
	"github.com/nao1215/sitemapcrawl/internal/model"
)

// Writer defines the interface for report output.
type Writer interface {
	// Write outputs the report to the configured destination.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.RunReport) (int, error)
}

// MultiWriter writes to multiple Writers simultaneously.
// This is useful for outputting to both terminal and file.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write outputs the report to all configured Writers.
// Stops on first error encountered.
func (m *MultiWriter) Write(report *model.RunReport) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.Write(report)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// NewSummaryWriter returns the summary writer for a --summary-format value.
func NewSummaryWriter(format string, output io.Writer, outputName, version string) (Writer, error) {
	switch format {
	case config.SummaryFormatText, "":
		return NewSimpleWriter(output, WithOutputName(outputName)), nil
	case config.SummaryFormatJSON:
		return NewJSONWriter(output, version, WithPrettyPrint()), nil
	case config.SummaryFormatMarkdown:
		return NewMarkdownWriter(output, version), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrInvalidSummaryFormat, format)
	}
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}
