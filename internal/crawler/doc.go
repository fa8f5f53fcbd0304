// Package crawler discovers every URL reachable from a set of root sitemaps.
//
// # Architecture
//
// The Scheduler runs a layered breadth-first crawl. Layer 0 holds the root
// sitemaps. Each layer is dispatched to a bounded worker pool and fully
// resolved before the next layer, built from the nested sitemap references
// found in the current one, is started.
//
// Per-run state lives in a registry.Registry created by each Run call, so
// a sitemap is fetched at most once and a leaf URL is recorded at most once
// even when many workers discover it at the same time. The URL cap is
// enforced by the registry at insertion time and is never exceeded.
//
// # Components
//
//   - Scheduler: the layer loop, dispatch rules and worker pool
//   - Retrier: fetch, decompress and parse with a fixed attempt budget
//   - Observer: optional hooks used for progress reporting
//
// # Failure handling
//
// Transport and decompression failures are retried after the configured
// delay. Parse failures are final. A failing sitemap only loses its own
// subtree; the run always finishes with whatever was collected.
//
// # Usage
//
//	s := crawler.NewScheduler(fetcher, crawler.WithMaxDepth(3), crawler.WithWorkers(8))
//	result, err := s.Run(ctx, []string{"https://example.com/sitemap.xml"})
package crawler
