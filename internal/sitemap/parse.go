package sitemap

import (
	"bytes"
	"net/http"
	"net/url"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Document is the content of one sitemap document.
type Document struct {
	// Root is the local name of the root element, usually "urlset" or
	// "sitemapindex".
	Root string

	// Namespace is the namespace URI of the root element. Entries are only
	// collected from elements in this namespace.
	Namespace string

	// URLs are the <url><loc> values, resolved and in document order.
	URLs []string

	// Sitemaps are the <sitemap><loc> values, resolved and in document order.
	Sitemaps []string
}

// IsIndex reports whether the document references other sitemaps.
func (d *Document) IsIndex() bool {
	return len(d.Sitemaps) > 0
}

// Parse reads sitemap XML fetched from rawURL.
//
// The namespace is taken from the root element rather than assumed to be
// the sitemaps.org one, so unnamespaced and legacy Google namespaces parse
// too. Relative loc values are resolved against rawURL and fragments are
// dropped. Empty loc values are skipped. A well-formed document without
// entries is valid and yields an empty Document.
func Parse(rawURL string, data []byte) (*Document, error) {
	tree, err := xmlquery.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{URL: rawURL, Err: err}
	}

	root := rootElement(tree)
	if root == nil {
		return nil, &ParseError{URL: rawURL, Err: ErrNoRootElement}
	}

	base, _ := url.Parse(rawURL) //nolint:errcheck // a nil base keeps loc values unresolved
	doc := &Document{Root: root.Data, Namespace: root.NamespaceURI}

	for child := root.FirstChild; child != nil; child = child.NextSibling {
		if !isElement(child, "", doc.Namespace) {
			continue
		}
		switch child.Data {
		case "url":
			if loc, ok := locOf(child, doc.Namespace, base); ok {
				doc.URLs = append(doc.URLs, loc)
			}
		case "sitemap":
			if loc, ok := locOf(child, doc.Namespace, base); ok {
				doc.Sitemaps = append(doc.Sitemaps, loc)
			}
		}
	}

	return doc, nil
}

// Decode runs Decompress and Parse on a response body.
func Decode(rawURL string, header http.Header, body []byte, limit int64) (*Document, error) {
	data, err := Decompress(rawURL, header, body, limit)
	if err != nil {
		return nil, err
	}
	return Parse(rawURL, data)
}

func rootElement(tree *xmlquery.Node) *xmlquery.Node {
	for n := tree.FirstChild; n != nil; n = n.NextSibling {
		if n.Type == xmlquery.ElementNode {
			return n
		}
	}
	return nil
}

// isElement reports whether n is an element in namespace ns, and, when
// name is not empty, has that local name.
func isElement(n *xmlquery.Node, name, ns string) bool {
	if n.Type != xmlquery.ElementNode || n.NamespaceURI != ns {
		return false
	}
	return name == "" || n.Data == name
}

func locOf(entry *xmlquery.Node, ns string, base *url.URL) (string, bool) {
	for n := entry.FirstChild; n != nil; n = n.NextSibling {
		if !isElement(n, "loc", ns) {
			continue
		}
		return resolveLocation(base, n.InnerText())
	}
	return "", false
}

func resolveLocation(base *url.URL, loc string) (string, bool) {
	trimmed := strings.TrimSpace(loc)
	if trimmed == "" {
		return "", false
	}
	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", false
	}
	if !parsed.IsAbs() && base != nil {
		parsed = base.ResolveReference(parsed)
	}
	parsed.Fragment = ""
	return parsed.String(), true
}
