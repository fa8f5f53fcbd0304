// Package fetch performs the single HTTP GET behind every sitemap attempt.
//
// An HTTPFetcher sends browser-like headers, applies per-host settings from
// the .sitemapcrawl file, optionally dials through a SOCKS5 proxy, and
// returns the raw body without decoding it. Any failure to obtain a 2xx
// response is reported as a *TransportError.
package fetch
