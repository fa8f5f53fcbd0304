// Package pipeline runs a crawl as an ordered list of steps.
//
// A run reads its seeds, optionally adds sitemaps announced in robots.txt,
// crawls, writes the URL list, prints a summary and archives the run.
// Each stage is a Step that receives the shared model.RunReport and fills
// in its part.
//
// Steps that report results implement Finalizer so that they still run
// after the context is cancelled; an interrupted crawl therefore still
// writes the URLs it collected.
package pipeline
