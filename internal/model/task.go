package model

// SitemapTask is one sitemap document waiting to be fetched.
// Tasks are values; a task is consumed by exactly one worker.
type SitemapTask struct {
	// URL is the absolute URL of the sitemap document.
	URL string `json:"url"`

	// Depth is the nesting level. Root sitemaps from the input are depth 0.
	Depth int `json:"depth"`

	// Parent is the sitemap index that referenced this document.
	// Empty for root sitemaps.
	Parent string `json:"parent,omitempty"`
}

// Child returns the task for a sitemap referenced by t.
func (t SitemapTask) Child(url string) SitemapTask {
	return SitemapTask{URL: url, Depth: t.Depth + 1, Parent: t.URL}
}

// CrawlResult is the decoded content of one sitemap document.
type CrawlResult struct {
	// LeafURLs are the page URLs listed in <url><loc> entries.
	LeafURLs []string

	// Nested are the sitemaps listed in <sitemap><loc> entries,
	// already one level deeper than the task that produced them.
	Nested []SitemapTask
}
