package model

// SitemapStatus is the outcome of processing one claimed sitemap document.
type SitemapStatus int

const (
	// StatusFetched means the document was fetched and decoded.
	StatusFetched SitemapStatus = iota

	// StatusFailed means every attempt failed or the document was malformed.
	StatusFailed

	// StatusCancelled means the run was cancelled before the task finished.
	StatusCancelled
)

// String returns the lowercase name used in reports and the archive.
func (s SitemapStatus) String() string {
	switch s {
	case StatusFetched:
		return "fetched"
	case StatusFailed:
		return "failed"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name in JSON output.
func (s SitemapStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText decodes a status written by MarshalText.
func (s *SitemapStatus) UnmarshalText(text []byte) error {
	*s = ParseSitemapStatus(string(text))
	return nil
}

// ParseSitemapStatus converts the archive representation back to a status.
func ParseSitemapStatus(s string) SitemapStatus {
	switch s {
	case "fetched":
		return StatusFetched
	case "failed":
		return StatusFailed
	case "cancelled":
		return StatusCancelled
	default:
		return StatusFailed
	}
}

// SkipReason explains why a task was dropped without being fetched.
// None of these are errors; they are normal termination conditions.
type SkipReason int

const (
	// SkipDuplicate means the sitemap was already claimed in this run.
	SkipDuplicate SkipReason = iota

	// SkipDepthExceeded means the task is deeper than the depth limit.
	SkipDepthExceeded

	// SkipCapacityExhausted means the URL cap was reached before dispatch.
	SkipCapacityExhausted
)

// String returns the name used in logs and reports.
func (r SkipReason) String() string {
	switch r {
	case SkipDuplicate:
		return "duplicate"
	case SkipDepthExceeded:
		return "depth_exceeded"
	case SkipCapacityExhausted:
		return "capacity_exhausted"
	default:
		return "unknown"
	}
}
