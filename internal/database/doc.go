// Package database archives finished crawl runs in SQLite.
//
// Each run is stored with its settings, seeds, per-sitemap outcomes and
// collected URLs so that the history command can list past runs and print
// their URL feeds again. The archive is write-once per run and is never
// used to resume a crawl.
package database
