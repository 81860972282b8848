package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/spintar/internal/stats"
)

// plainPresenter prints one line per archived member when verbose, and a
// progress line every interval when progress is on.
type plainPresenter struct {
	w        io.Writer
	stats    *stats.Collector
	verbose  bool
	progress bool
	interval time.Duration
}

func (p *plainPresenter) Run(events <-chan Event) error {
	secTicker := time.NewTicker(time.Second)
	defer secTicker.Stop()

	var progressC <-chan time.Time
	if p.progress {
		progressTicker := time.NewTicker(p.interval)
		defer progressTicker.Stop()
		progressC = progressTicker.C
	}

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handleEvent(ev)
		case <-secTicker.C:
			p.stats.Tick()
		case <-progressC:
			p.printProgress()
		}
	}
}

func (p *plainPresenter) handleEvent(ev Event) {
	if !p.verbose {
		return
	}
	if line, ok := feedLine(ev); ok {
		fmt.Fprintln(p.w, line)
	}
}

func (p *plainPresenter) printProgress() {
	snap := p.stats.Snapshot()
	fmt.Fprintf(p.w, "progress: %s files  %s  %s  errors %d\n",
		FormatCount(snap.FilesArchived+snap.LinksArchived),
		FormatBytes(snap.BytesArchived),
		FormatRate(p.stats.RollingSpeed(10)),
		snap.FilesFailed,
	)
}

func (p *plainPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}

// feedLine formats a verbose listing line in the style of tar -v.
// Failures are reported through the logger, not the feed.
func feedLine(ev Event) (string, bool) {
	switch ev.Type {
	case EntryArchived:
		return ev.Path, true
	case LinkArchived:
		return ev.Path + " link to " + ev.Target, true
	default:
		return "", false
	}
}
