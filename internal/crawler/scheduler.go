package crawler

import (
	"context"
	"log/slog"
	"net/url"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/config"
	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/model"
	"github.com/nao1215/sitemapcrawl/internal/registry"
	"github.com/nao1215/sitemapcrawl/internal/sitemap"
	"golang.org/x/sync/errgroup"
)

// Observer receives progress events from a running Scheduler.
// Methods are called from the scheduler goroutine and from workers, so
// implementations must be safe for concurrent use.
type Observer interface {
	// LayerStarted is called before a layer is dispatched with the number
	// of candidate tasks in it.
	LayerStarted(depth, candidates int)

	// TaskSkipped is called for a candidate that was not dispatched.
	TaskSkipped(task model.SitemapTask, reason model.SkipReason)

	// TaskFinished is called when a dispatched task completes.
	TaskFinished(record model.SitemapRecord)
}

// Scheduler runs bounded, deduplicated sitemap crawls.
// A Scheduler holds no per-run state and may run several crawls, one
// after another or concurrently.
type Scheduler struct {
	fetcher fetch.Fetcher

	// maxDepth is the deepest layer that is dispatched. Roots are depth 0.
	maxDepth int

	// maxURLs caps the number of distinct leaf URLs collected per run.
	maxURLs int

	// workers bounds concurrent fetches within a layer.
	workers int

	retries     int
	delay       time.Duration
	maxBodySize int64

	// depthLimit returns the depth limit for sitemaps on a host.
	// It can only lower maxDepth.
	depthLimit func(host string) int

	observer Observer
	logger   *slog.Logger
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithMaxDepth sets the deepest sitemap layer that is fetched.
// 0 fetches only the root sitemaps.
func WithMaxDepth(depth int) Option {
	return func(s *Scheduler) {
		s.maxDepth = depth
	}
}

// WithMaxURLs sets the cap on collected leaf URLs. Zero or less means no cap.
func WithMaxURLs(n int) Option {
	return func(s *Scheduler) {
		s.maxURLs = n
	}
}

// WithWorkers sets the number of concurrent fetches.
func WithWorkers(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithRetries sets the number of attempts per sitemap.
func WithRetries(n int) Option {
	return func(s *Scheduler) {
		s.retries = n
	}
}

// WithDelay sets the delay slept before every fetch attempt.
func WithDelay(d time.Duration) Option {
	return func(s *Scheduler) {
		s.delay = d
	}
}

// WithMaxBodySize sets the largest decompressed sitemap accepted.
func WithMaxBodySize(n int64) Option {
	return func(s *Scheduler) {
		s.maxBodySize = n
	}
}

// WithDepthLimit sets a per-host depth limit. Values above the global
// maximum depth are ignored.
func WithDepthLimit(fn func(host string) int) Option {
	return func(s *Scheduler) {
		s.depthLimit = fn
	}
}

// WithObserver registers progress hooks.
func WithObserver(o Observer) Option {
	return func(s *Scheduler) {
		s.observer = o
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Scheduler) {
		s.logger = logger
	}
}

// NewScheduler creates a Scheduler that fetches through fetcher.
func NewScheduler(fetcher fetch.Fetcher, opts ...Option) *Scheduler {
	s := &Scheduler{
		fetcher:     fetcher,
		maxDepth:    config.DefaultMaxDepth,
		maxURLs:     config.DefaultMaxURLs,
		workers:     config.DefaultWorkers,
		retries:     config.DefaultRetries,
		delay:       config.DefaultDelay,
		maxBodySize: config.DefaultMaxBodySize,
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// Result is the outcome of one crawl run.
type Result struct {
	// URLs are the collected leaf URLs, sorted and unique.
	URLs []string

	// Sitemaps has one record per dispatched sitemap, in dispatch order.
	Sitemaps []model.SitemapRecord

	// Skipped counts candidates that were not dispatched, by reason.
	Skipped map[model.SkipReason]int

	// Capped is true when the URL cap was reached.
	Capped bool

	// DeepestLayer is the deepest layer with at least one dispatched task,
	// or -1 when nothing was dispatched.
	DeepestLayer int

	// Cancelled is true when ctx was cancelled before the crawl finished.
	Cancelled bool
}

// Run crawls from the given root sitemap URLs.
//
// Every call uses fresh deduplication state, so repeated runs over the same
// input are independent. Failures of individual sitemaps are logged and
// recorded in the result, never returned. The returned error is non-nil
// only when ctx was cancelled; the result then holds everything collected
// up to that point.
func (s *Scheduler) Run(ctx context.Context, seeds []string) (*Result, error) {
	reg := registry.New(s.maxURLs)
	retrier := NewRetrier(s.fetcher, s.retries, s.delay, s.maxBodySize, s.logger)

	result := &Result{
		Skipped:      make(map[model.SkipReason]int),
		DeepestLayer: -1,
	}

	frontier := make([]model.SitemapTask, 0, len(seeds))
	for _, seed := range seeds {
		frontier = append(frontier, model.SitemapTask{URL: seed})
	}

	for depth := 0; len(frontier) > 0; depth++ {
		if ctx.Err() != nil {
			break
		}

		if s.observer != nil {
			s.observer.LayerStarted(depth, len(frontier))
		}
		s.logger.Debug("starting layer", "depth", depth, "candidates", len(frontier))

		records, next := s.runLayer(ctx, frontier, reg, retrier, result)
		if len(records) > 0 {
			result.DeepestLayer = depth
		}
		result.Sitemaps = append(result.Sitemaps, records...)
		frontier = next
	}

	result.URLs = reg.URLs()
	result.Capped = reg.Full()

	if err := ctx.Err(); err != nil {
		result.Cancelled = true
		return result, err
	}
	return result, nil
}

// runLayer dispatches the tasks of one layer and waits for all of them.
// It returns the records of dispatched tasks and the next frontier, both
// in the order of the input tasks.
func (s *Scheduler) runLayer(
	ctx context.Context,
	layer []model.SitemapTask,
	reg *registry.Registry,
	retrier *Retrier,
	result *Result,
) ([]model.SitemapRecord, []model.SitemapTask) {
	records := make([]*model.SitemapRecord, len(layer))
	results := make([]model.CrawlResult, len(layer))

	var g errgroup.Group
	g.SetLimit(s.workers)

	for i, task := range layer {
		if ctx.Err() != nil {
			break
		}
		if reason, ok := s.admit(task, reg); !ok {
			result.Skipped[reason]++
			s.logger.Debug("skipping sitemap", "url", task.URL, "depth", task.Depth, "reason", reason.String())
			if s.observer != nil {
				s.observer.TaskSkipped(task, reason)
			}
			continue
		}

		// Go blocks while all workers are busy, so admit above always sees
		// the registry as of the latest finished task.
		g.Go(func() error {
			rec, res := s.process(ctx, task, reg, retrier)
			records[i] = &rec
			results[i] = res
			if s.observer != nil {
				s.observer.TaskFinished(rec)
			}
			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return errors

	var done []model.SitemapRecord
	var next []model.SitemapTask
	for i := range layer {
		if records[i] != nil {
			done = append(done, *records[i])
		}
		next = append(next, results[i].Nested...)
	}
	return done, next
}

// admit decides whether task is dispatched. The claim is taken last so a
// task dropped for depth or capacity does not use up its URL.
func (s *Scheduler) admit(task model.SitemapTask, reg *registry.Registry) (model.SkipReason, bool) {
	if task.Depth > s.depthLimitFor(task.URL) {
		return model.SkipDepthExceeded, false
	}
	if reg.Full() {
		return model.SkipCapacityExhausted, false
	}
	if !reg.TryClaimSitemap(task.URL) {
		return model.SkipDuplicate, false
	}
	return 0, true
}

func (s *Scheduler) depthLimitFor(rawURL string) int {
	if s.depthLimit == nil {
		return s.maxDepth
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return s.maxDepth
	}
	if limit := s.depthLimit(u.Hostname()); limit < s.maxDepth {
		return limit
	}
	return s.maxDepth
}

// process runs one dispatched task and records its leaf URLs. The
// returned CrawlResult is empty when the document could not be decoded.
func (s *Scheduler) process(
	ctx context.Context,
	task model.SitemapTask,
	reg *registry.Registry,
	retrier *Retrier,
) (model.SitemapRecord, model.CrawlResult) {
	rec := model.SitemapRecord{URL: task.URL, Depth: task.Depth, Parent: task.Parent}

	doc, attempts, err := retrier.Do(ctx, task.URL)
	rec.Attempts = attempts
	if err != nil {
		rec.Error = err.Error()
		if ctx.Err() != nil {
			rec.Status = model.StatusCancelled
			return rec, model.CrawlResult{}
		}
		rec.Status = model.StatusFailed
		s.logger.Warn("sitemap failed",
			"url", task.URL,
			"depth", task.Depth,
			"attempts", attempts,
			"kind", failureKind(err),
			"error", err)
		return rec, model.CrawlResult{}
	}

	res := newCrawlResult(task, doc)

	rec.Status = model.StatusFetched
	rec.URLCount = len(res.LeafURLs)
	rec.NestedCount = len(res.Nested)
	rec.Added = addURLs(reg, res.LeafURLs)

	s.logger.Debug("sitemap fetched",
		"url", task.URL,
		"depth", task.Depth,
		"urls", rec.URLCount,
		"added", rec.Added,
		"nested", rec.NestedCount)

	return rec, res
}

// newCrawlResult turns a decoded document into the leaf URLs and the child
// tasks one layer below task.
func newCrawlResult(task model.SitemapTask, doc *sitemap.Document) model.CrawlResult {
	res := model.CrawlResult{
		LeafURLs: doc.URLs,
		Nested:   make([]model.SitemapTask, 0, len(doc.Sitemaps)),
	}
	for _, ref := range doc.Sitemaps {
		res.Nested = append(res.Nested, task.Child(ref))
	}
	return res
}

// addURLs offers urls to the registry and returns how many were accepted.
// It stops at the first rejection after the registry is full.
func addURLs(reg *registry.Registry, urls []string) int {
	added := 0
	for _, u := range urls {
		if reg.TryAddURL(u) {
			added++
			continue
		}
		if reg.Full() {
			break
		}
	}
	return added
}
