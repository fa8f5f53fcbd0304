package report

import (
	"io"
	"slices"
	"strconv"
	"time"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
	"github.com/nao1215/sitemapcrawl/internal/model"
)

// MarkdownWriter outputs the run summary in Markdown format.
type MarkdownWriter struct {
	baseWriter

	version string
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer, version string) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}
}

// Write outputs the run summary in Markdown format.
func (w *MarkdownWriter) Write(report *model.RunReport) (int, error) {
	md := markdown.NewMarkdown(w.output)
	summary := report.Summary()

	w.writeHeader(md, report, summary)
	w.writeSitemaps(md, report, summary)
	w.writeSkipped(md, report)
	w.writeFailures(md, report)
	w.writeFooter(md)

	return len(md.String()), md.Build()
}

// writeHeader writes the run information table.
func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.RunReport, summary model.RunSummary) {
	md.H1("Sitemap Crawl Report")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Run ID", "`" + summary.RunID + "`"},
			{"Started", report.StartedAt.Format("2006-01-02 15:04:05 MST")},
			{"Duration", summary.Duration.Round(time.Millisecond).String()},
			{"Seeds", strconv.Itoa(len(report.AllSeeds()))},
			{"URLs Collected", strconv.Itoa(summary.URLsCollected)},
			{"Sitemaps Checked", strconv.Itoa(summary.SitemapsChecked)},
			{"Deepest Layer", strconv.Itoa(summary.DeepestLayer)},
			{"Status", statusText(summary)},
		},
	})
	md.PlainText("")

	switch {
	case summary.Cancelled:
		md.Warningf("The run was interrupted. Results are partial.")
		md.PlainText("")
	case summary.Capped:
		md.Note("The URL limit was reached. Remaining sitemaps were not fetched.")
		md.PlainText("")
	}
}

func statusText(summary model.RunSummary) string {
	switch {
	case summary.Cancelled:
		return "Interrupted"
	case summary.Capped:
		return "Complete (URL limit reached)"
	default:
		return "Complete"
	}
}

// writeSitemaps writes the per-status counts and a pie chart of them.
func (w *MarkdownWriter) writeSitemaps(md *markdown.Markdown, report *model.RunReport, summary model.RunSummary) {
	md.H2("Sitemaps")
	md.PlainText("")

	counts := map[model.SitemapStatus]int{}
	for _, rec := range report.Sitemaps {
		counts[rec.Status]++
	}

	statuses := []model.SitemapStatus{model.StatusFetched, model.StatusFailed, model.StatusCancelled}
	rows := make([][]string, 0, len(statuses))
	for _, s := range statuses {
		rows = append(rows, []string{s.String(), strconv.Itoa(counts[s])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Status", "Count"},
		Rows:   rows,
	})
	md.PlainText("")

	if summary.SitemapsChecked == 0 {
		return
	}

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Sitemap Outcomes"),
		piechart.WithShowData(true),
	)
	for _, s := range statuses {
		if counts[s] > 0 {
			chart.LabelAndIntValue(s.String(), uint64(counts[s]))
		}
	}
	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

// writeSkipped writes the skip counts by reason.
func (w *MarkdownWriter) writeSkipped(md *markdown.Markdown, report *model.RunReport) {
	if len(report.Skipped) == 0 {
		return
	}

	md.H2("Skipped Tasks")
	md.PlainText("")

	reasons := make([]string, 0, len(report.Skipped))
	for reason := range report.Skipped {
		reasons = append(reasons, reason)
	}
	slices.Sort(reasons)

	rows := make([][]string, 0, len(reasons))
	for _, reason := range reasons {
		rows = append(rows, []string{reason, strconv.Itoa(report.Skipped[reason])})
	}
	md.Table(markdown.TableSet{
		Header: []string{"Reason", "Count"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFailures writes a table of the sitemaps that could not be processed.
func (w *MarkdownWriter) writeFailures(md *markdown.Markdown, report *model.RunReport) {
	failed := report.FailedSitemaps()
	if len(failed) == 0 {
		return
	}

	md.H2("Failed Sitemaps")
	md.PlainText("")

	rows := make([][]string, len(failed))
	for i, rec := range failed {
		rows[i] = []string{
			"`" + rec.URL + "`",
			strconv.Itoa(rec.Depth),
			strconv.Itoa(rec.Attempts),
			truncateString(rec.Error, 80),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"URL", "Depth", "Attempts", "Error"},
		Rows:   rows,
	})
	md.PlainText("")
}

// writeFooter writes the report footer.
func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by sitemapcrawl %s*", w.version)
}

// truncateString truncates a string to maxLen characters with ellipsis.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
