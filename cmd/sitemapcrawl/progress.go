package main

import (
	"fmt"
	"io"
	"os"

	"github.com/nao1215/sitemapcrawl/internal/crawler"
	"github.com/nao1215/sitemapcrawl/internal/model"
	"github.com/schollz/progressbar/v3"
	"golang.org/x/term"
)

// progressObserver draws one progress bar per crawl layer.
// progressbar guards its own state, so worker callbacks need no lock.
type progressObserver struct {
	bar *progressbar.ProgressBar
}

var _ crawler.Observer = (*progressObserver)(nil)

func newProgressObserver(w io.Writer) *progressObserver {
	return &progressObserver{
		bar: progressbar.NewOptions(-1,
			progressbar.OptionSetWriter(w),
			progressbar.OptionSetDescription("layer 0"),
			progressbar.OptionShowCount(),
			progressbar.OptionShowIts(),
			progressbar.OptionSetItsString("sitemaps"),
			progressbar.OptionSetWidth(40),
			progressbar.OptionClearOnFinish(),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "=",
				SaucerHead:    ">",
				SaucerPadding: " ",
				BarStart:      "[",
				BarEnd:        "]",
			}),
		),
	}
}

// LayerStarted resets the bar to the size of the new layer.
func (p *progressObserver) LayerStarted(depth, candidates int) {
	p.bar.Reset()
	p.bar.ChangeMax(candidates)
	p.bar.Describe(fmt.Sprintf("layer %d", depth))
}

// TaskSkipped counts a dropped candidate as done.
func (p *progressObserver) TaskSkipped(model.SitemapTask, model.SkipReason) {
	_ = p.bar.Add(1)
}

// TaskFinished counts a finished sitemap.
func (p *progressObserver) TaskFinished(model.SitemapRecord) {
	_ = p.bar.Add(1)
}

// Finish clears the bar.
func (p *progressObserver) Finish() {
	_ = p.bar.Finish()
}

// stderrIsTerminal reports whether a progress bar would be visible.
func stderrIsTerminal() bool {
	return term.IsTerminal(int(os.Stderr.Fd())) //nolint:gosec // fd fits in int
}
