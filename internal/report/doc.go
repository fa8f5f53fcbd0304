// Package report writes the results of a crawl run.
//
// This package contains writers for different output formats:
//   - URLListWriter: the collected URLs, sorted, one per line
//   - SimpleWriter: human-readable run summary for the terminal
//   - JSONWriter: the run summary as JSON for tool integration
//   - MarkdownWriter: the run summary as Markdown tables
//
// Writers implement the Writer interface, allowing them to be used
// interchangeably and composed for multi-format output.
package report
