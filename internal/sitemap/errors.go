package sitemap

import (
	"errors"
	"fmt"
)

var (
	// ErrNoRootElement is returned for input without any XML element,
	// such as an empty body or plain text.
	ErrNoRootElement = errors.New("document has no root element")

	// ErrDocumentTooLarge is returned when the decompressed document is
	// larger than the configured limit.
	ErrDocumentTooLarge = errors.New("document exceeds size limit")
)

// DecompressError reports a body that claimed or looked compressed but
// could not be decompressed.
type DecompressError struct {
	URL      string
	Encoding string
	Err      error
}

func (e *DecompressError) Error() string {
	return fmt.Sprintf("failed to decompress %s (%s): %v", e.URL, e.Encoding, e.Err)
}

func (e *DecompressError) Unwrap() error {
	return e.Err
}

// ParseError reports a document that is not a usable sitemap.
// Err keeps the parser diagnostic.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("failed to parse %s: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
