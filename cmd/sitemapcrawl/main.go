// Package main provides the entry point for the sitemapcrawl CLI.
//
// sitemapcrawl expands a list of root sitemaps, following nested sitemap
// indexes breadth first, into the sorted set of page URLs they announce.
//
// Usage:
//
//	sitemapcrawl crawl -i sitemaps.txt -o urls.txt
//	sitemapcrawl history
//
// See --help for all available options.
package main

func main() {
	Execute()
}
