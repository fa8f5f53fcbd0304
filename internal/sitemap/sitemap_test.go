package sitemap

import (
	"bytes"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
)

const urlsetXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc> https://example.com/a </loc><lastmod>2024-01-01</lastmod></url>
  <url><loc>https://example.com/b#section</loc></url>
  <url><loc></loc></url>
  <url><priority>0.5</priority></url>
</urlset>`

const indexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://example.com/sitemap-posts.xml</loc></sitemap>
  <sitemap><loc>/sitemap-pages.xml.gz</loc></sitemap>
</sitemapindex>`

func gzipBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func brotliBytes(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	bw := brotli.NewWriter(&buf)
	if _, err := bw.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := bw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("urlset collects leaf URLs", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("https://example.com/sitemap.xml", []byte(urlsetXML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Root != "urlset" {
			t.Errorf("expected root urlset, got %q", doc.Root)
		}
		want := []string{"https://example.com/a", "https://example.com/b"}
		if strings.Join(doc.URLs, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, doc.URLs)
		}
		if doc.IsIndex() {
			t.Error("urlset must not be an index")
		}
	})

	t.Run("sitemapindex collects nested references", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("https://example.com/sitemap_index.xml", []byte(indexXML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := []string{"https://example.com/sitemap-posts.xml", "https://example.com/sitemap-pages.xml.gz"}
		if strings.Join(doc.Sitemaps, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, doc.Sitemaps)
		}
		if len(doc.URLs) != 0 {
			t.Errorf("expected no leaf URLs, got %v", doc.URLs)
		}
	})

	t.Run("namespace is detected from the root", func(t *testing.T) {
		t.Parallel()

		data := `<urlset xmlns="http://www.google.com/schemas/sitemap/0.84"><url><loc>https://example.com/old</loc></url></urlset>`
		doc, err := Parse("https://example.com/sitemap.xml", []byte(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Namespace != "http://www.google.com/schemas/sitemap/0.84" {
			t.Errorf("unexpected namespace %q", doc.Namespace)
		}
		if len(doc.URLs) != 1 {
			t.Errorf("expected 1 URL, got %v", doc.URLs)
		}
	})

	t.Run("unnamespaced document", func(t *testing.T) {
		t.Parallel()

		data := `<urlset><url><loc>https://example.com/plain</loc></url></urlset>`
		doc, err := Parse("https://example.com/sitemap.xml", []byte(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.URLs) != 1 || doc.URLs[0] != "https://example.com/plain" {
			t.Errorf("unexpected URLs %v", doc.URLs)
		}
	})

	t.Run("elements in a foreign namespace are ignored", func(t *testing.T) {
		t.Parallel()

		data := `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9" xmlns:x="urn:other">
<x:url><x:loc>https://example.com/foreign</x:loc></x:url>
<url><loc>https://example.com/mine</loc></url>
</urlset>`
		doc, err := Parse("https://example.com/sitemap.xml", []byte(data))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.URLs) != 1 || doc.URLs[0] != "https://example.com/mine" {
			t.Errorf("unexpected URLs %v", doc.URLs)
		}
	})

	t.Run("empty root is valid", func(t *testing.T) {
		t.Parallel()

		doc, err := Parse("https://example.com/sitemap.xml", []byte(`<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"></urlset>`))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(doc.URLs) != 0 || len(doc.Sitemaps) != 0 {
			t.Errorf("expected empty document, got %+v", doc)
		}
	})

	errorTests := []struct {
		name string
		data string
	}{
		{"empty body", ""},
		{"plain text", "this is not xml"},
		{"truncated document", `<urlset><url><loc>https://example.com/a</loc>`},
		{"mismatched tags", `<urlset><url></urlset></url>`},
	}

	for _, tt := range errorTests {
		t.Run(tt.name+" is a parse error", func(t *testing.T) {
			t.Parallel()

			_, err := Parse("https://example.com/bad.xml", []byte(tt.data))
			var pe *ParseError
			if !errors.As(err, &pe) {
				t.Fatalf("expected ParseError, got %v", err)
			}
			if pe.URL != "https://example.com/bad.xml" {
				t.Errorf("expected URL in error, got %q", pe.URL)
			}
		})
	}

	t.Run("no root element wraps ErrNoRootElement", func(t *testing.T) {
		t.Parallel()

		_, err := Parse("https://example.com/empty.xml", []byte(`<?xml version="1.0"?>`))
		if !errors.Is(err, ErrNoRootElement) {
			t.Errorf("expected ErrNoRootElement, got %v", err)
		}
	})
}

func TestDecompress(t *testing.T) {
	t.Parallel()

	plain := []byte(urlsetXML)

	t.Run("plain body is returned unchanged", func(t *testing.T) {
		t.Parallel()

		out, err := Decompress("https://example.com/sitemap.xml", nil, plain, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(out, plain) {
			t.Error("expected body to be unchanged")
		}
	})

	t.Run("gzip magic is detected without hints", func(t *testing.T) {
		t.Parallel()

		out, err := Decompress("https://example.com/sitemap", nil, gzipBytes(t, plain), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(out, plain) {
			t.Error("expected decompressed body")
		}
	})

	t.Run("double gzip is unwrapped", func(t *testing.T) {
		t.Parallel()

		header := http.Header{"Content-Encoding": {"gzip"}}
		body := gzipBytes(t, gzipBytes(t, plain))
		out, err := Decompress("https://example.com/sitemap.xml.gz", header, body, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(out, plain) {
			t.Error("expected both layers to be removed")
		}
	})

	t.Run("gz suffix with plain XML body is accepted", func(t *testing.T) {
		t.Parallel()

		out, err := Decompress("https://example.com/sitemap.xml.gz", nil, plain, 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(out, plain) {
			t.Error("expected body to be unchanged")
		}
	})

	t.Run("declared gzip with garbage body fails", func(t *testing.T) {
		t.Parallel()

		header := http.Header{"Content-Type": {"application/x-gzip"}}
		_, err := Decompress("https://example.com/sitemap", header, []byte("garbage"), 0)
		var de *DecompressError
		if !errors.As(err, &de) {
			t.Fatalf("expected DecompressError, got %v", err)
		}
		if de.Encoding != "gzip" {
			t.Errorf("expected gzip encoding, got %q", de.Encoding)
		}
	})

	t.Run("truncated gzip stream fails", func(t *testing.T) {
		t.Parallel()

		body := gzipBytes(t, plain)
		_, err := Decompress("https://example.com/sitemap.xml.gz", nil, body[:len(body)/2], 0)
		var de *DecompressError
		if !errors.As(err, &de) {
			t.Fatalf("expected DecompressError, got %v", err)
		}
	})

	t.Run("brotli content encoding", func(t *testing.T) {
		t.Parallel()

		header := http.Header{"Content-Encoding": {"br"}}
		out, err := Decompress("https://example.com/sitemap.xml", header, brotliBytes(t, plain), 0)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !bytes.Equal(out, plain) {
			t.Error("expected decompressed body")
		}
	})

	t.Run("size limit is enforced", func(t *testing.T) {
		t.Parallel()

		_, err := Decompress("https://example.com/sitemap.xml.gz", nil, gzipBytes(t, plain), 16)
		if !errors.Is(err, ErrDocumentTooLarge) {
			t.Errorf("expected ErrDocumentTooLarge, got %v", err)
		}
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Errorf("expected oversized document to be a ParseError, got %T", err)
		}
	})
}

func TestDecode(t *testing.T) {
	t.Parallel()

	doc, err := Decode("https://example.com/sitemap_index.xml.gz", nil, gzipBytes(t, []byte(indexXML)), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(doc.Sitemaps) != 2 {
		t.Errorf("expected 2 nested sitemaps, got %v", doc.Sitemaps)
	}
}
