package crawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/sitemap"
)

// ErrFetchExhausted is matched by errors.Is for a sitemap whose every
// attempt failed with a retryable error.
var ErrFetchExhausted = errors.New("fetch exhausted")

// ExhaustedError is returned when the attempt budget ran out.
// Last is the error of the final attempt.
type ExhaustedError struct {
	URL      string
	Attempts int
	Last     error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %s after %d attempts: %v", ErrFetchExhausted, e.URL, e.Attempts, e.Last)
}

// Is reports whether target is ErrFetchExhausted.
func (e *ExhaustedError) Is(target error) bool {
	return target == ErrFetchExhausted
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// IsRetryable reports whether another attempt may succeed after err.
//
// Parse failures and context cancellation are final. Transport and
// decompression failures are retried, and so is anything unexpected.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var pe *sitemap.ParseError
	return !errors.As(err, &pe)
}

// failureKind names the failure class for log attributes.
func failureKind(err error) string {
	var (
		pe *sitemap.ParseError
		te *fetch.TransportError
		de *sitemap.DecompressError
	)
	switch {
	case errors.Is(err, ErrFetchExhausted):
		return "exhausted"
	case errors.As(err, &pe):
		return "parse"
	case errors.As(err, &te):
		return "transport"
	case errors.As(err, &de):
		return "decompress"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	default:
		return "unexpected"
	}
}
