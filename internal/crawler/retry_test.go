package crawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/sitemap"
)

func TestRetrierDo(t *testing.T) {
	t.Parallel()

	t.Run("success on first attempt", func(t *testing.T) {
		t.Parallel()

		f := newMockFetcher()
		f.set(rootURL, urlset(pageA))

		doc, attempts, err := NewRetrier(f, 3, 0, 0, discardLogger()).Do(context.Background(), rootURL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
		if len(doc.URLs) != 1 {
			t.Errorf("expected 1 URL, got %v", doc.URLs)
		}
	})

	t.Run("exhaustion wraps the last error", func(t *testing.T) {
		t.Parallel()

		f := newMockFetcher()
		f.fail(rootURL, http.StatusServiceUnavailable)

		_, attempts, err := NewRetrier(f, 3, 0, 0, discardLogger()).Do(context.Background(), rootURL)
		if !errors.Is(err, ErrFetchExhausted) {
			t.Fatalf("expected ErrFetchExhausted, got %v", err)
		}
		var se *fetch.StatusError
		if !errors.As(err, &se) || se.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("expected last status error to be kept, got %v", err)
		}
		if attempts != 3 || f.count(rootURL) != 3 {
			t.Errorf("expected 3 attempts, got %d (fetches %d)", attempts, f.count(rootURL))
		}
	})

	t.Run("retries below one still make one attempt", func(t *testing.T) {
		t.Parallel()

		f := newMockFetcher()
		f.fail(rootURL, http.StatusBadGateway)

		_, _, err := NewRetrier(f, 0, 0, 0, discardLogger()).Do(context.Background(), rootURL)
		if !errors.Is(err, ErrFetchExhausted) {
			t.Fatalf("expected ErrFetchExhausted, got %v", err)
		}
		if f.count(rootURL) != 1 {
			t.Errorf("expected 1 fetch, got %d", f.count(rootURL))
		}
	})

	t.Run("parse failure is terminal", func(t *testing.T) {
		t.Parallel()

		f := newMockFetcher()
		f.set(rootURL, "not a sitemap")

		_, attempts, err := NewRetrier(f, 5, 0, 0, discardLogger()).Do(context.Background(), rootURL)
		var pe *sitemap.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("expected ParseError, got %v", err)
		}
		if errors.Is(err, ErrFetchExhausted) {
			t.Error("parse failure must not be reported as exhaustion")
		}
		if attempts != 1 {
			t.Errorf("expected 1 attempt, got %d", attempts)
		}
	})

	t.Run("decompression failure is retried", func(t *testing.T) {
		t.Parallel()

		gz := "https://example.com/sitemap.xml.gz"
		f := newMockFetcher()
		f.set(gz, "\x1f\x8bbroken")

		_, attempts, err := NewRetrier(f, 2, 0, 0, discardLogger()).Do(context.Background(), gz)
		var de *sitemap.DecompressError
		if !errors.As(err, &de) {
			t.Fatalf("expected DecompressError, got %v", err)
		}
		if attempts != 2 {
			t.Errorf("expected 2 attempts, got %d", attempts)
		}
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		t.Parallel()

		var hits atomic.Int32
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			if hits.Add(1) < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_, _ = fmt.Fprint(w, urlset(pageA))
		}))
		defer server.Close()

		hf, err := fetch.NewHTTPFetcher()
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		doc, attempts, err := NewRetrier(hf, 3, 0, 0, discardLogger()).Do(context.Background(), server.URL+"/sitemap.xml")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if attempts != 3 {
			t.Errorf("expected success on attempt 3, got %d", attempts)
		}
		if len(doc.URLs) != 1 {
			t.Errorf("expected 1 URL, got %v", doc.URLs)
		}
	})

	t.Run("delay is slept before every attempt", func(t *testing.T) {
		t.Parallel()

		f := newMockFetcher()
		f.fail(rootURL, http.StatusInternalServerError)

		const delay = 20 * time.Millisecond
		start := time.Now()
		_, _, _ = NewRetrier(f, 3, delay, 0, discardLogger()).Do(context.Background(), rootURL)
		if elapsed := time.Since(start); elapsed < 3*delay {
			t.Errorf("expected at least %v, took %v", 3*delay, elapsed)
		}
	})

	t.Run("cancellation during delay stops the loop", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := newMockFetcher()
		f.set(rootURL, urlset(pageA))

		_, attempts, err := NewRetrier(f, 3, time.Hour, 0, discardLogger()).Do(ctx, rootURL)
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		if attempts != 0 || f.count(rootURL) != 0 {
			t.Errorf("expected no attempts, got %d", attempts)
		}
	})
}

func TestIsRetryable(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"transport", &fetch.TransportError{URL: "u", Err: errors.New("connection reset")}, true},
		{"status", &fetch.TransportError{URL: "u", Err: &fetch.StatusError{StatusCode: 500}}, true},
		{"decompress", &sitemap.DecompressError{URL: "u", Encoding: "gzip", Err: errors.New("bad header")}, true},
		{"parse", &sitemap.ParseError{URL: "u", Err: sitemap.ErrNoRootElement}, false},
		{"wrapped parse", fmt.Errorf("attempt: %w", &sitemap.ParseError{URL: "u", Err: errors.New("x")}), false},
		{"cancelled", context.Canceled, false},
		{"unexpected", errors.New("something else"), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestExhaustedError(t *testing.T) {
	t.Parallel()

	last := &fetch.TransportError{URL: rootURL, Err: &fetch.StatusError{StatusCode: 500}}
	err := error(&ExhaustedError{URL: rootURL, Attempts: 2, Last: last})

	if !errors.Is(err, ErrFetchExhausted) {
		t.Error("expected errors.Is to match ErrFetchExhausted")
	}
	var te *fetch.TransportError
	if !errors.As(err, &te) {
		t.Error("expected errors.As to reach the last transport error")
	}
	if failureKind(err) != "exhausted" {
		t.Errorf("expected kind exhausted, got %q", failureKind(err))
	}
}
