// Package registry tracks, for one crawl run, which sitemap documents have
// been claimed and which leaf URLs have been collected.
//
// Every mutation is an atomic check-and-insert so that concurrent workers
// cannot fetch a sitemap twice, record a URL twice, or push the URL count
// past its cap.
package registry
