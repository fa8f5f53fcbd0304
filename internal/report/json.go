package report

import (
	"io"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/nao1215/sitemapcrawl/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// JSONWriter outputs the run summary in JSON format.
type JSONWriter struct {
	baseWriter

	version string

	// indent is the number of spaces per nesting level.
	// Zero writes compact output.
	indent int

	// full adds every sitemap record and the URL list.
	full bool
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output indented by spaces per level.
// jsoniter only supports space indentation without a line prefix.
func WithIndent(spaces int) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = max(spaces, 0)
	}
}

// WithPrettyPrint enables pretty-printed JSON with two-space indentation.
func WithPrettyPrint() JSONWriterOption {
	return WithIndent(2)
}

// WithFullReport includes every sitemap record and the collected URLs.
func WithFullReport() JSONWriterOption {
	return func(w *JSONWriter) {
		w.full = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, version string, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
		version:    version,
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// JSONReport is the document written by JSONWriter.
type JSONReport struct {
	// Version is the sitemapcrawl version that produced the report.
	Version string `json:"version"`

	Summary model.RunSummary `json:"summary"`

	Seeds       []string `json:"seeds"`
	RobotsSeeds []string `json:"robots_seeds,omitempty"`

	Skipped map[string]int `json:"skipped,omitempty"`

	// Failed lists the sitemaps that could not be processed.
	Failed []model.SitemapRecord `json:"failed,omitempty"`

	// Sitemaps and URLs are only set by WithFullReport.
	Sitemaps []model.SitemapRecord `json:"sitemaps,omitempty"`
	URLs     []string              `json:"urls,omitempty"`
}

// NewJSONReport builds the JSON document for a run.
func NewJSONReport(report *model.RunReport, version string, full bool) *JSONReport {
	doc := &JSONReport{
		Version:     version,
		Summary:     report.Summary(),
		Seeds:       report.Seeds,
		RobotsSeeds: report.RobotsSeeds,
		Skipped:     report.Skipped,
		Failed:      report.FailedSitemaps(),
	}
	if full {
		doc.Sitemaps = report.Sitemaps
		doc.URLs = report.URLs
	}
	return doc
}

// Write outputs the report in JSON format.
func (w *JSONWriter) Write(report *model.RunReport) (int, error) {
	return w.writeJSON(NewJSONReport(report, w.version, w.full))
}

// writeJSON marshals the given value to JSON and writes it to the output.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var data []byte
	var err error

	if w.indent > 0 {
		data, err = json.MarshalIndent(v, "", strings.Repeat(" ", w.indent))
	} else {
		data, err = json.Marshal(v)
	}

	if err != nil {
		return 0, err
	}

	// Add trailing newline for better terminal output
	data = append(data, '\n')

	return w.output.Write(data)
}
