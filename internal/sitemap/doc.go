// Package sitemap turns a fetched sitemap response into leaf URLs and
// nested sitemap references.
//
// Decoding happens in two stages. Decompress undoes gzip or brotli
// encoding, detected from the body's magic bytes, the URL suffix and the
// response headers. Parse reads the XML, takes the namespace from the root
// element, and collects <url><loc> and <sitemap><loc> entries that are
// direct children of the root.
//
// Failures in the two stages are reported as different error types because
// callers retry a DecompressError but never a ParseError.
package sitemap
