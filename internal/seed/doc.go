// Package seed reads the list of root sitemap URLs a crawl starts from,
// and optionally discovers more from robots.txt Sitemap lines.
package seed
