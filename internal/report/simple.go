package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/model"
)

// SimpleWriter outputs the human-readable run summary.
type SimpleWriter struct {
	baseWriter

	// outputName is where the URL list went, shown in the summary line.
	outputName string

	// verbose adds the per-reason skip counts and settings.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithOutputName sets the destination name printed in the summary.
func WithOutputName(name string) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.outputName = name
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
		outputName: "stdout",
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs the run summary.
func (w *SimpleWriter) Write(report *model.RunReport) (int, error) {
	var sb strings.Builder
	summary := report.Summary()

	sb.WriteString(fmt.Sprintf("[+] Done. %d URLs written to %s\n", summary.URLsCollected, w.outputName))
	sb.WriteString(fmt.Sprintf("[+] %d sitemap files checked", summary.SitemapsChecked))
	if summary.SitemapsFailed > 0 {
		sb.WriteString(fmt.Sprintf(" (%d failed)", summary.SitemapsFailed))
	}
	sb.WriteString("\n")

	if summary.Capped {
		sb.WriteString("[!] URL limit reached, remaining sitemaps were not fetched\n")
	}
	if summary.Cancelled {
		sb.WriteString("[!] Interrupted, results are partial\n")
	}

	if w.verbose {
		w.writeDetails(&sb, report, summary)
	}

	for _, rec := range report.FailedSitemaps() {
		sb.WriteString(fmt.Sprintf("[-] %s: %s\n", rec.URL, rec.Error))
	}

	return w.output.Write([]byte(sb.String()))
}

func (w *SimpleWriter) writeDetails(sb *strings.Builder, report *model.RunReport, summary model.RunSummary) {
	sb.WriteString(fmt.Sprintf("    Run ID:        %s\n", summary.RunID))
	sb.WriteString(fmt.Sprintf("    Seeds:         %d", len(report.Seeds)))
	if len(report.RobotsSeeds) > 0 {
		sb.WriteString(fmt.Sprintf(" (+%d from robots.txt)", len(report.RobotsSeeds)))
	}
	sb.WriteString("\n")
	sb.WriteString(fmt.Sprintf("    Deepest layer: %d\n", summary.DeepestLayer))
	sb.WriteString(fmt.Sprintf("    Duration:      %s\n", summary.Duration.Round(time.Millisecond)))

	reasons := make([]string, 0, len(report.Skipped))
	for reason := range report.Skipped {
		reasons = append(reasons, reason)
	}
	slices.Sort(reasons)
	for _, reason := range reasons {
		sb.WriteString(fmt.Sprintf("    Skipped (%s): %d\n", reason, report.Skipped[reason]))
	}
}
