package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/config"
	"github.com/nao1215/sitemapcrawl/internal/database"
	"github.com/nao1215/sitemapcrawl/internal/report"
	"github.com/spf13/cobra"
)

const historyDateFormat = "2006-01-02 15:04:05"

// NewHistoryCmd creates the history command.
// It reads earlier runs back from the archive.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List archived runs and print their URLs again",
		Long: `History shows the runs recorded by 'sitemapcrawl crawl'.

Without flags the most recent runs are listed. A run can be selected by
any unambiguous prefix of its ID; its URLs are printed one per line, the
same way the crawl wrote them.

Examples:
  # List the last 20 runs
  sitemapcrawl history

  # Print the URLs of a run
  sitemapcrawl history --run 3f2a9c

  # Print a Markdown summary of a run instead of its URLs
  sitemapcrawl history --run 3f2a9c --summary-format markdown

  # Show how one sitemap fared across runs
  sitemapcrawl history --sitemap https://example.com/sitemap.xml`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().IntP("limit", "n", 20,
		"Number of runs to list (0 = all)")
	cmd.Flags().StringP("run", "r", "",
		"Run ID or ID prefix to print")
	cmd.Flags().String("summary-format", "",
		"With --run, print a summary (text, json or markdown) instead of URLs")
	cmd.Flags().String("sitemap", "",
		"Show the archived outcomes of one sitemap URL")
	cmd.Flags().String("db-dir", config.XDGDataDir(),
		"Directory of the run archive")

	return cmd
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dbDir, err := flags.GetString("db-dir")
	if err != nil {
		return err
	}
	runID, err := flags.GetString("run")
	if err != nil {
		return err
	}
	summaryFormat, err := flags.GetString("summary-format")
	if err != nil {
		return err
	}
	sitemapURL, err := flags.GetString("sitemap")
	if err != nil {
		return err
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}

	if runID != "" && sitemapURL != "" {
		return errors.New("--run and --sitemap cannot be used together")
	}

	out := cmd.OutOrStdout()

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(dbDir, opts)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintln(out, "No archived runs found.")
			fmt.Fprintln(out, "\nUse 'sitemapcrawl crawl' to record a run.")
			return nil
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	switch {
	case runID != "":
		return printRun(ctx, db, out, runID, summaryFormat)
	case sitemapURL != "":
		return printSitemapHistory(ctx, db, out, sitemapURL)
	default:
		return listRuns(ctx, db, out, limit)
	}
}

// listRuns prints the most recent runs as a table.
func listRuns(ctx context.Context, db *database.CrawlDB, out io.Writer, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Fprintln(out, "No archived runs found.")
		fmt.Fprintln(out, "\nUse 'sitemapcrawl crawl' to record a run.")
		return nil
	}

	fmt.Fprintf(out, "Archived runs (%d):\n\n", len(runs))
	fmt.Fprintf(out, "  %-8s  %-19s  %8s  %8s  %6s  %s\n", "ID", "Started", "URLs", "Sitemaps", "Failed", "Notes")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, meta := range runs {
		fmt.Fprintf(out, "  %-8s  %-19s  %8d  %8d  %6d  %s\n",
			shortID(meta.ID),
			meta.StartedAt.Local().Format(historyDateFormat),
			meta.URLCount,
			meta.SitemapCount,
			meta.FailedSitemaps,
			runNotes(meta),
		)
	}
	fmt.Fprintln(out, "\nUse 'sitemapcrawl history --run <id>' to print the URLs of a run.")

	return nil
}

// runNotes describes how a run ended, or "" for a normal finish.
func runNotes(meta database.RunMetadata) string {
	var notes []string
	if meta.Capped {
		notes = append(notes, "capped")
	}
	if meta.Cancelled {
		notes = append(notes, "interrupted")
	}
	if !meta.FinishedAt.IsZero() && !meta.StartedAt.IsZero() {
		notes = append(notes, meta.FinishedAt.Sub(meta.StartedAt).Round(time.Millisecond).String())
	}
	return strings.Join(notes, ", ")
}

// printRun prints the URLs of one run, or its summary when format is set.
func printRun(ctx context.Context, db *database.CrawlDB, out io.Writer, prefix, format string) error {
	id, err := db.ResolveRunID(ctx, prefix)
	if err != nil {
		return fmt.Errorf("%w: %s", err, prefix)
	}

	if format == "" {
		urls, err := db.RunURLs(ctx, id)
		if err != nil {
			return err
		}
		_, err = report.NewURLListWriter(out).WriteURLs(urls)
		return err
	}

	rep, err := db.GetRun(ctx, id)
	if err != nil {
		return err
	}
	w, err := report.NewSummaryWriter(format, out, "archive", getVersion())
	if err != nil {
		return err
	}
	_, err = w.Write(rep)
	return err
}

// printSitemapHistory prints every archived outcome of one sitemap URL.
func printSitemapHistory(ctx context.Context, db *database.CrawlDB, out io.Writer, sitemapURL string) error {
	history, err := db.GetSitemapHistory(ctx, sitemapURL)
	if err != nil {
		return err
	}

	if len(history) == 0 {
		fmt.Fprintf(out, "No archived runs fetched %s\n", sitemapURL)
		return nil
	}

	fmt.Fprintf(out, "History for %s (%d runs):\n\n", sitemapURL, len(history))
	fmt.Fprintf(out, "  %-8s  %-19s  %-9s  %6s  %6s  %s\n", "Run", "Started", "Status", "URLs", "Added", "Error")
	fmt.Fprintln(out, "  "+strings.Repeat("-", 70))

	for _, h := range history {
		fmt.Fprintf(out, "  %-8s  %-19s  %-9s  %6d  %6d  %s\n",
			shortID(h.RunID),
			h.StartedAt.Local().Format(historyDateFormat),
			h.Status,
			h.URLCount,
			h.Added,
			h.Error,
		)
	}

	return nil
}

// shortID returns the first 8 characters of a run ID.
func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
