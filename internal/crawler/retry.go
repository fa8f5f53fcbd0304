package crawler

import (
	"context"
	"log/slog"
	"time"

	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/sitemap"
)

// Retrier fetches and decodes one sitemap with a fixed attempt budget.
type Retrier struct {
	fetcher     fetch.Fetcher
	retries     int
	delay       time.Duration
	maxBodySize int64
	logger      *slog.Logger
}

// NewRetrier creates a Retrier. retries below 1 is treated as 1.
func NewRetrier(fetcher fetch.Fetcher, retries int, delay time.Duration, maxBodySize int64, logger *slog.Logger) *Retrier {
	if retries < 1 {
		retries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Retrier{
		fetcher:     fetcher,
		retries:     retries,
		delay:       delay,
		maxBodySize: maxBodySize,
		logger:      logger,
	}
}

// Do runs up to the configured number of attempts for rawURL and returns
// the decoded document with the number of attempts made.
//
// The delay is slept before every attempt, the first one included.
// A parse failure ends the loop at once. Cancelling ctx ends it at the
// next delay or inside the pending request.
func (r *Retrier) Do(ctx context.Context, rawURL string) (*sitemap.Document, int, error) {
	var lastErr error

	for attempt := 1; attempt <= r.retries; attempt++ {
		if err := sleepWithContext(ctx, r.delay); err != nil {
			return nil, attempt - 1, err
		}

		doc, err := r.attempt(ctx, rawURL)
		if err == nil {
			return doc, attempt, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, attempt, ctxErr
		}
		if !IsRetryable(err) {
			return nil, attempt, err
		}

		lastErr = err
		r.logger.Debug("sitemap attempt failed",
			"url", rawURL,
			"attempt", attempt,
			"retries", r.retries,
			"kind", failureKind(err),
			"error", err)
	}

	return nil, r.retries, &ExhaustedError{URL: rawURL, Attempts: r.retries, Last: lastErr}
}

func (r *Retrier) attempt(ctx context.Context, rawURL string) (*sitemap.Document, error) {
	resp, err := r.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return sitemap.Decode(resp.URL, resp.Header, resp.Body, r.maxBodySize)
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
