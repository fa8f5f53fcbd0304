package seed

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"regexp"
	"strings"
)

// sitemapPathPattern matches paths that end like an XML sitemap,
// compressed or not.
var sitemapPathPattern = regexp.MustCompile(`(?i)\.xml(\.gz)?$`)

// IsSitemapRef reports whether line looks like a sitemap URL: an absolute
// http(s) URL whose path ends in .xml or .xml.gz, or whose path mentions
// "sitemap" (e.g. /sitemap.php, /sitemap_index).
func IsSitemapRef(line string) bool {
	u, err := url.Parse(line)
	if err != nil || u.Host == "" {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return sitemapPathPattern.MatchString(u.Path) || strings.Contains(strings.ToLower(u.Path), "sitemap")
}

// Parse returns the sitemap references in r, in input order.
// Lines are trimmed; blank lines, # comments and lines that do not look
// like sitemap references are ignored. Duplicates are kept.
func Parse(r io.Reader) ([]string, error) {
	var seeds []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if IsSitemapRef(line) {
			seeds = append(seeds, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return seeds, nil
}

// ReadFile reads the sitemap references listed in the file at path.
func ReadFile(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided input path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open input file: %w", err)
	}
	defer f.Close()

	seeds, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return seeds, nil
}
