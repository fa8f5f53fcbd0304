package sitemap

import (
	"bytes"
	"errors"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

// maxGzipLayers bounds how many gzip layers are removed. A .gz file served
// with Content-Encoding: gzip arrives wrapped twice.
const maxGzipLayers = 2

// Decompress returns the XML bytes of a sitemap response.
//
// Brotli is used when Content-Encoding says br. Gzip is used when the body
// starts with the gzip magic bytes, when the URL path ends in .gz, or when
// the headers declare gzip. A body that is declared gzip but is already
// plain XML is returned as is. limit bounds the decompressed size; zero
// disables the check.
func Decompress(rawURL string, header http.Header, body []byte, limit int64) ([]byte, error) {
	if hasEncoding(header, "br") {
		out, err := readLimited(brotli.NewReader(bytes.NewReader(body)), limit)
		if err != nil {
			return nil, wrapDecompressError(rawURL, "br", err)
		}
		return out, nil
	}

	data := body
	for layer := 0; layer < maxGzipLayers; layer++ {
		magic := isGzip(data)
		if !magic {
			if layer > 0 || !declaresGzip(rawURL, header) || looksLikeXML(data) {
				return data, nil
			}
		}

		zr, err := gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, wrapDecompressError(rawURL, "gzip", err)
		}
		out, err := readLimited(zr, limit)
		_ = zr.Close()
		if err != nil {
			return nil, wrapDecompressError(rawURL, "gzip", err)
		}
		data = out
	}

	return data, nil
}

func wrapDecompressError(rawURL, encoding string, err error) error {
	if errors.Is(err, ErrDocumentTooLarge) {
		return &ParseError{URL: rawURL, Err: err}
	}
	return &DecompressError{URL: rawURL, Encoding: encoding, Err: err}
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	if limit <= 0 {
		return io.ReadAll(r)
	}
	out, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(out)) > limit {
		return nil, ErrDocumentTooLarge
	}
	return out, nil
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1f && data[1] == 0x8b
}

// declaresGzip reports whether the URL or the response headers say the
// body is gzip, regardless of its actual bytes.
func declaresGzip(rawURL string, header http.Header) bool {
	if u, err := url.Parse(rawURL); err == nil && strings.HasSuffix(strings.ToLower(u.Path), ".gz") {
		return true
	}
	if hasEncoding(header, "gzip") {
		return true
	}
	if header == nil {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(header.Get("Content-Type"))
	if err != nil {
		return false
	}
	switch mediaType {
	case "application/gzip", "application/x-gzip", "application/x-gunzip", "application/gzipped":
		return true
	}
	return false
}

func hasEncoding(header http.Header, encoding string) bool {
	if header == nil {
		return false
	}
	for _, v := range header.Values("Content-Encoding") {
		for part := range strings.SplitSeq(v, ",") {
			if strings.EqualFold(strings.TrimSpace(part), encoding) {
				return true
			}
		}
	}
	return false
}

func looksLikeXML(data []byte) bool {
	trimmed := bytes.TrimLeft(data, "\xef\xbb\xbf \t\r\n")
	return len(trimmed) > 0 && trimmed[0] == '<'
}
