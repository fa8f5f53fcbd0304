package config

import "errors"

// Configuration validation errors returned by Config.Validate.
// Callers match them with errors.Is.
var (
	// ErrNoInput is returned when no input file of root sitemaps is given.
	ErrNoInput = errors.New("no input specified: use --input to point at a file of sitemap URLs")

	// ErrNoSitemaps is returned when the input file holds no line that looks
	// like a sitemap reference.
	ErrNoSitemaps = errors.New("no sitemap URLs found in input")

	// ErrInvalidMaxDepth is returned when the maximum depth is negative.
	ErrInvalidMaxDepth = errors.New("invalid max depth: must be non-negative")

	// ErrInvalidMaxURLs is returned when the URL cap is not positive.
	ErrInvalidMaxURLs = errors.New("invalid max urls: must be positive")

	// ErrInvalidTimeout is returned when the timeout is not positive.
	ErrInvalidTimeout = errors.New("invalid timeout: must be positive")

	// ErrInvalidDelay is returned when the delay is negative.
	// Use 0 for no delay between requests.
	ErrInvalidDelay = errors.New("invalid delay: must be non-negative")

	// ErrInvalidRetries is returned when the retry count is not positive.
	ErrInvalidRetries = errors.New("invalid retries: must be positive")

	// ErrInvalidWorkers is returned when the worker count is not positive.
	ErrInvalidWorkers = errors.New("invalid threads: must be positive")

	// ErrInvalidMaxBodySize is returned when the max body size is negative.
	ErrInvalidMaxBodySize = errors.New("invalid max body size: must be non-negative")

	// ErrInvalidSummaryFormat is returned for an unknown --summary-format value.
	ErrInvalidSummaryFormat = errors.New("invalid summary format: must be text, json or markdown")
)
