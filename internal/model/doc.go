// Package model defines the data structures shared by the crawler, the
// run pipeline, the run archive and the report writers.
//
// This package contains the following main types:
//   - SitemapTask: one sitemap document to fetch at a given depth
//   - CrawlResult: the decoded content of one sitemap document
//   - RunReport: everything recorded about one crawl run
//   - RunSummary: the counters printed at the end of a run
//
// Keeping them here avoids import cycles between crawler, pipeline,
// database and report.
package model
