package model

import (
	"testing"
	"time"
)

func TestSitemapTaskChild(t *testing.T) {
	t.Parallel()

	root := SitemapTask{URL: "https://example.com/sitemap.xml"}
	child := root.Child("https://example.com/sitemap-posts.xml")

	if child.Depth != 1 {
		t.Errorf("expected depth 1, got %d", child.Depth)
	}
	if child.Parent != root.URL {
		t.Errorf("expected parent %q, got %q", root.URL, child.Parent)
	}
	if root.Depth != 0 {
		t.Error("Child must not modify the receiver")
	}
}

func TestSitemapStatusString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		status SitemapStatus
		want   string
	}{
		{StatusFetched, "fetched"},
		{StatusFailed, "failed"},
		{StatusCancelled, "cancelled"},
		{SitemapStatus(99), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := tt.status.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
			if tt.want != "unknown" && ParseSitemapStatus(tt.want) != tt.status {
				t.Errorf("ParseSitemapStatus(%q) did not round trip", tt.want)
			}
		})
	}
}

func TestSkipReasonString(t *testing.T) {
	t.Parallel()

	tests := []struct {
		reason SkipReason
		want   string
	}{
		{SkipDuplicate, "duplicate"},
		{SkipDepthExceeded, "depth_exceeded"},
		{SkipCapacityExhausted, "capacity_exhausted"},
		{SkipReason(42), "unknown"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			if got := tt.reason.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRunReportSummary(t *testing.T) {
	t.Parallel()

	r := NewRunReport("run-1")
	r.StartedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r.FinishedAt = r.StartedAt.Add(3 * time.Second)
	r.URLs = []string{"https://example.com/a", "https://example.com/b"}
	r.Sitemaps = []SitemapRecord{
		{URL: "https://example.com/z.xml", Status: StatusFailed, Error: "boom"},
		{URL: "https://example.com/sitemap.xml", Status: StatusFetched},
		{URL: "https://example.com/a.xml", Status: StatusFailed, Error: "bad xml"},
	}
	r.Skipped["duplicate"] = 2
	r.Skipped["depth_exceeded"] = 1
	r.Capped = true

	s := r.Summary()
	if s.URLsCollected != 2 {
		t.Errorf("expected 2 URLs, got %d", s.URLsCollected)
	}
	if s.SitemapsChecked != 3 {
		t.Errorf("expected 3 sitemaps checked, got %d", s.SitemapsChecked)
	}
	if s.SitemapsFailed != 2 {
		t.Errorf("expected 2 failures, got %d", s.SitemapsFailed)
	}
	if s.TasksSkipped != 3 {
		t.Errorf("expected 3 skipped, got %d", s.TasksSkipped)
	}
	if !s.Capped {
		t.Error("expected capped")
	}
	if s.Duration != 3*time.Second {
		t.Errorf("expected 3s, got %v", s.Duration)
	}

	failed := r.FailedSitemaps()
	if len(failed) != 2 || failed[0].URL != "https://example.com/a.xml" {
		t.Errorf("expected failures sorted by URL, got %+v", failed)
	}
}

func TestRunReportAllSeeds(t *testing.T) {
	t.Parallel()

	r := NewRunReport("run-2")
	r.Seeds = []string{"https://a.example/sitemap.xml"}
	r.RobotsSeeds = []string{"https://b.example/sitemap.xml"}

	seeds := r.AllSeeds()
	if len(seeds) != 2 || seeds[1] != "https://b.example/sitemap.xml" {
		t.Errorf("unexpected seeds %v", seeds)
	}
}
