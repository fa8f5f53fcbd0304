package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/config"
	"github.com/nao1215/sitemapcrawl/internal/crawler"
	"github.com/nao1215/sitemapcrawl/internal/database"
	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/model"
	"github.com/nao1215/sitemapcrawl/internal/report"
	"github.com/nao1215/sitemapcrawl/internal/seed"
)

// SeedStep reads the root sitemap URLs from the input file.
// A run without seeds is fatal.
type SeedStep struct {
	path string
}

// NewSeedStep creates a step that reads seeds from path.
func NewSeedStep(path string) *SeedStep {
	return &SeedStep{path: path}
}

// Name returns the step name.
func (s *SeedStep) Name() string {
	return "seed"
}

// Do reads the input file into report.Seeds.
func (s *SeedStep) Do(_ context.Context, rep *model.RunReport) error {
	seeds, err := seed.ReadFile(s.path)
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return fmt.Errorf("%w: %s", config.ErrNoSitemaps, s.path)
	}
	rep.Seeds = seeds
	return nil
}

// RobotsStep adds the sitemaps announced in robots.txt of every seed host.
type RobotsStep struct {
	fetcher fetch.Fetcher
	logger  *slog.Logger
}

// NewRobotsStep creates a robots.txt discovery step.
func NewRobotsStep(fetcher fetch.Fetcher, logger *slog.Logger) *RobotsStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &RobotsStep{fetcher: fetcher, logger: logger}
}

// Name returns the step name.
func (s *RobotsStep) Name() string {
	return "robots"
}

// Do fills report.RobotsSeeds. Unreachable robots.txt files are ignored.
func (s *RobotsStep) Do(ctx context.Context, rep *model.RunReport) error {
	found, err := seed.Discover(ctx, s.fetcher, rep.Seeds, s.logger)
	rep.RobotsSeeds = found
	if len(found) > 0 {
		s.logger.Debug("sitemaps found in robots.txt", "count", len(found))
	}
	// Discover only fails on cancellation, which Execute reports itself.
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("robots.txt discovery failed: %w", err)
	}
	return nil
}

// CrawlStep runs the scheduler over all seeds and copies the result into
// the report.
type CrawlStep struct {
	scheduler *crawler.Scheduler
	settings  model.RunSettings
}

// NewCrawlStep creates a crawl step. settings are recorded in the report.
func NewCrawlStep(scheduler *crawler.Scheduler, settings model.RunSettings) *CrawlStep {
	return &CrawlStep{scheduler: scheduler, settings: settings}
}

// Name returns the step name.
func (s *CrawlStep) Name() string {
	return "crawl"
}

// Do crawls. An interrupted crawl keeps its partial result and is not an
// error; the pipeline sees the cancelled context itself.
func (s *CrawlStep) Do(ctx context.Context, rep *model.RunReport) error {
	rep.Settings = s.settings

	result, err := s.scheduler.Run(ctx, rep.AllSeeds())
	rep.FinishedAt = time.Now()
	if result == nil {
		return err
	}

	rep.URLs = result.URLs
	rep.Sitemaps = result.Sitemaps
	rep.Capped = result.Capped
	rep.DeepestLayer = result.DeepestLayer
	rep.Cancelled = result.Cancelled
	if rep.Skipped == nil {
		rep.Skipped = make(map[string]int, len(result.Skipped))
	}
	for reason, n := range result.Skipped {
		rep.Skipped[reason.String()] += n
	}
	return nil
}

// OutputStep writes the collected URL list, to a file when a path is set
// and to the given writer otherwise.
type OutputStep struct {
	path   string
	stdout io.Writer
}

// NewOutputStep creates an output step. An empty path writes to stdout.
func NewOutputStep(path string, stdout io.Writer) *OutputStep {
	return &OutputStep{path: path, stdout: stdout}
}

// Name returns the step name.
func (s *OutputStep) Name() string {
	return "output"
}

// RunsAfterCancel reports true: partial results are still written.
func (s *OutputStep) RunsAfterCancel() bool {
	return true
}

// Do writes report.URLs.
func (s *OutputStep) Do(_ context.Context, rep *model.RunReport) error {
	if s.path == "" {
		if _, err := report.NewURLListWriter(s.stdout).Write(rep); err != nil {
			return fmt.Errorf("failed to write URLs: %w", err)
		}
		return nil
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(filepath.Clean(s.path), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}

	if _, err := report.NewURLListWriter(f).Write(rep); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write URLs: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close output file: %w", err)
	}
	return nil
}

// SummaryStep prints the end-of-run summary.
type SummaryStep struct {
	writer report.Writer
}

// NewSummaryStep creates a summary step that writes through w.
func NewSummaryStep(w report.Writer) *SummaryStep {
	return &SummaryStep{writer: w}
}

// Name returns the step name.
func (s *SummaryStep) Name() string {
	return "summary"
}

// RunsAfterCancel reports true.
func (s *SummaryStep) RunsAfterCancel() bool {
	return true
}

// Do writes the summary.
func (s *SummaryStep) Do(_ context.Context, rep *model.RunReport) error {
	if rep.FinishedAt.IsZero() {
		rep.FinishedAt = time.Now()
	}
	if _, err := s.writer.Write(rep); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

// RunArchive stores finished runs. *database.CrawlDB implements it.
type RunArchive interface {
	SaveRun(ctx context.Context, rep *model.RunReport) error
}

var _ RunArchive = (*database.CrawlDB)(nil)

// ArchiveStep saves the run to the archive.
type ArchiveStep struct {
	archive RunArchive
	logger  *slog.Logger
}

// NewArchiveStep creates an archive step.
func NewArchiveStep(archive RunArchive, logger *slog.Logger) *ArchiveStep {
	if logger == nil {
		logger = slog.Default()
	}
	return &ArchiveStep{archive: archive, logger: logger}
}

// Name returns the step name.
func (s *ArchiveStep) Name() string {
	return "archive"
}

// RunsAfterCancel reports true: interrupted runs are archived too.
func (s *ArchiveStep) RunsAfterCancel() bool {
	return true
}

// Do saves the run.
func (s *ArchiveStep) Do(ctx context.Context, rep *model.RunReport) error {
	if rep.FinishedAt.IsZero() {
		rep.FinishedAt = time.Now()
	}
	if err := s.archive.SaveRun(ctx, rep); err != nil {
		return fmt.Errorf("failed to archive run %s: %w", rep.ID, err)
	}
	s.logger.Debug("run archived", "run", rep.ID, "urls", len(rep.URLs))
	return nil
}
