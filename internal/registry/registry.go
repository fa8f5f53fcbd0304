package registry

import (
	"sort"
	"sync"
)

// Registry is the per-run deduplication state.
// A Registry must not be shared between runs.
type Registry struct {
	mu       sync.Mutex
	sitemaps map[string]struct{}
	urls     map[string]struct{}
	maxURLs  int
}

// New creates a Registry that accepts at most maxURLs leaf URLs.
// maxURLs <= 0 means no limit.
func New(maxURLs int) *Registry {
	return &Registry{
		sitemaps: make(map[string]struct{}),
		urls:     make(map[string]struct{}),
		maxURLs:  maxURLs,
	}
}

// TryClaimSitemap reports whether url was claimed by this call.
// Exactly one caller wins for a given URL over the life of the Registry.
func (r *Registry) TryClaimSitemap(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sitemaps[url]; ok {
		return false
	}
	r.sitemaps[url] = struct{}{}
	return true
}

// TryAddURL records url if it is new and the cap has not been reached.
// The check and the insert happen under one lock, so the number of
// recorded URLs never exceeds the cap.
func (r *Registry) TryAddURL(url string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.urls[url]; ok {
		return false
	}
	if r.maxURLs > 0 && len(r.urls) >= r.maxURLs {
		return false
	}
	r.urls[url] = struct{}{}
	return true
}

// Full reports whether the URL cap has been reached.
func (r *Registry) Full() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.maxURLs > 0 && len(r.urls) >= r.maxURLs
}

// URLCount returns the number of recorded leaf URLs.
func (r *Registry) URLCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.urls)
}

// SitemapCount returns the number of claimed sitemap documents.
func (r *Registry) SitemapCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sitemaps)
}

// URLs returns a sorted copy of the recorded leaf URLs.
func (r *Registry) URLs() []string {
	r.mu.Lock()
	urls := make([]string, 0, len(r.urls))
	for u := range r.urls {
		urls = append(urls, u)
	}
	r.mu.Unlock()

	sort.Strings(urls)
	return urls
}
