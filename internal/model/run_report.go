package model

import (
	"sort"
	"time"
)

// RunSettings records the limits a run was started with.
type RunSettings struct {
	MaxDepth int           `json:"max_depth"`
	MaxURLs  int           `json:"max_urls"`
	Timeout  time.Duration `json:"timeout"`
	Delay    time.Duration `json:"delay"`
	Retries  int           `json:"retries"`
	Workers  int           `json:"workers"`
}

// SitemapRecord is what happened to one claimed sitemap document.
type SitemapRecord struct {
	URL    string        `json:"url"`
	Depth  int           `json:"depth"`
	Parent string        `json:"parent,omitempty"`
	Status SitemapStatus `json:"status"`

	// URLCount is the number of leaf URLs listed in the document,
	// including ones rejected as duplicates or over the cap.
	URLCount int `json:"url_count"`

	// NestedCount is the number of nested sitemap references listed.
	NestedCount int `json:"nested_count"`

	// Added is the number of listed URLs the run accepted. It is lower
	// than URLCount for duplicates and for URLs past the cap.
	Added int `json:"added"`

	// Attempts is the number of fetch attempts made.
	Attempts int `json:"attempts"`

	// Error holds the failure cause when Status is StatusFailed.
	Error string `json:"error,omitempty"`
}

// RunReport is everything recorded about one crawl run.
// The pipeline steps fill it in order: seeds, crawl, output, archive.
type RunReport struct {
	// ID is a UUID identifying the run in the archive.
	ID string `json:"id"`

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`

	Settings RunSettings `json:"settings"`

	// Seeds are the root sitemap URLs, in input order.
	Seeds []string `json:"seeds"`

	// RobotsSeeds are the seeds added from robots.txt Sitemap lines.
	RobotsSeeds []string `json:"robots_seeds,omitempty"`

	// URLs are the collected leaf URLs, sorted.
	URLs []string `json:"-"`

	// Sitemaps lists every claimed sitemap in dispatch order, layer by layer.
	Sitemaps []SitemapRecord `json:"sitemaps"`

	// Skipped counts dropped tasks by SkipReason name.
	Skipped map[string]int `json:"skipped,omitempty"`

	// Capped is true when the URL cap was reached.
	Capped bool `json:"capped"`

	// DeepestLayer is the deepest layer that was dispatched.
	DeepestLayer int `json:"deepest_layer"`

	// Cancelled is true when the run was interrupted.
	Cancelled bool `json:"cancelled"`

	// Steps names the pipeline steps that ran, in order.
	Steps []string `json:"steps,omitempty"`
}

// NewRunReport creates an empty report for a run with the given ID.
func NewRunReport(id string) *RunReport {
	return &RunReport{
		ID:        id,
		StartedAt: time.Now(),
		Skipped:   make(map[string]int),
	}
}

// AllSeeds returns the input seeds followed by robots.txt seeds.
func (r *RunReport) AllSeeds() []string {
	seeds := make([]string, 0, len(r.Seeds)+len(r.RobotsSeeds))
	seeds = append(seeds, r.Seeds...)
	return append(seeds, r.RobotsSeeds...)
}

// FailedSitemaps returns the records of sitemaps that could not be processed,
// ordered by URL.
func (r *RunReport) FailedSitemaps() []SitemapRecord {
	var failed []SitemapRecord
	for _, rec := range r.Sitemaps {
		if rec.Status == StatusFailed {
			failed = append(failed, rec)
		}
	}
	sort.Slice(failed, func(i, j int) bool { return failed[i].URL < failed[j].URL })
	return failed
}

// Summary condenses the report into the end-of-run counters.
func (r *RunReport) Summary() RunSummary {
	s := RunSummary{
		RunID:           r.ID,
		URLsCollected:   len(r.URLs),
		SitemapsChecked: len(r.Sitemaps),
		Capped:          r.Capped,
		DeepestLayer:    r.DeepestLayer,
		Cancelled:       r.Cancelled,
	}
	for _, rec := range r.Sitemaps {
		if rec.Status == StatusFailed {
			s.SitemapsFailed++
		}
	}
	for _, n := range r.Skipped {
		s.TasksSkipped += n
	}
	if !r.FinishedAt.IsZero() {
		s.Duration = r.FinishedAt.Sub(r.StartedAt)
	}
	return s
}

// RunSummary holds the counters printed at the end of a run.
type RunSummary struct {
	RunID           string        `json:"run_id"`
	URLsCollected   int           `json:"urls_collected"`
	SitemapsChecked int           `json:"sitemaps_checked"`
	SitemapsFailed  int           `json:"sitemaps_failed"`
	TasksSkipped    int           `json:"tasks_skipped"`
	Capped          bool          `json:"capped"`
	DeepestLayer    int           `json:"deepest_layer"`
	Cancelled       bool          `json:"cancelled"`
	Duration        time.Duration `json:"duration"`
}
