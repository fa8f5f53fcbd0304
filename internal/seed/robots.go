package seed

import (
	"context"
	"log/slog"
	"net/url"
	"strings"

	"github.com/nao1215/sitemapcrawl/internal/fetch"
	"github.com/nao1215/sitemapcrawl/internal/sitemap"
	"github.com/temoto/robotstxt"
)

// maxRobotsSize is the largest decoded robots.txt that is read. Crawlers
// commonly stop at 500 KiB.
const maxRobotsSize = 500 * 1024

// Discover fetches /robots.txt once per distinct scheme and host among
// seeds and returns the Sitemap entries not already in seeds, in order.
//
// A host whose robots.txt is missing or unreadable contributes nothing.
// Only cancellation of ctx is returned as an error.
func Discover(ctx context.Context, fetcher fetch.Fetcher, seeds []string, logger *slog.Logger) ([]string, error) {
	if logger == nil {
		logger = slog.Default()
	}

	known := make(map[string]struct{}, len(seeds))
	for _, s := range seeds {
		known[s] = struct{}{}
	}

	var found []string
	checked := make(map[string]struct{})
	for _, s := range seeds {
		u, err := url.Parse(s)
		if err != nil || u.Host == "" {
			continue
		}
		base := &url.URL{Scheme: u.Scheme, Host: u.Host}
		if _, ok := checked[base.String()]; ok {
			continue
		}
		checked[base.String()] = struct{}{}

		if err := ctx.Err(); err != nil {
			return found, err
		}

		robotsURL := base.ResolveReference(&url.URL{Path: "/robots.txt"}).String()
		resp, err := fetcher.Fetch(ctx, robotsURL)
		if err != nil {
			logger.Debug("robots.txt unavailable", "url", robotsURL, "error", err)
			continue
		}

		// The fetcher asks for gzip and br and leaves the body encoded.
		body, err := sitemap.Decompress(robotsURL, resp.Header, resp.Body, maxRobotsSize)
		if err != nil {
			logger.Debug("undecodable robots.txt", "url", robotsURL, "error", err)
			continue
		}

		data, err := robotstxt.FromBytes(body)
		if err != nil {
			logger.Debug("invalid robots.txt", "url", robotsURL, "error", err)
			continue
		}

		for _, loc := range data.Sitemaps {
			ref, err := url.Parse(strings.TrimSpace(loc))
			if err != nil {
				logger.Debug("invalid sitemap URL in robots.txt", "url", robotsURL, "sitemap", loc, "error", err)
				continue
			}
			if !ref.IsAbs() {
				ref = base.ResolveReference(ref)
			}
			ref.Fragment = ""

			s := ref.String()
			if _, ok := known[s]; ok {
				continue
			}
			known[s] = struct{}{}
			found = append(found, s)
		}
	}

	return found, ctx.Err()
}
