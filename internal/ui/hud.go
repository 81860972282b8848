package ui

import (
	"fmt"
	"io"
	"time"

	"github.com/bamsammich/spintar/internal/stats"
)

// ANSI escape sequences.
const (
	ansiDim       = "\033[2m"
	ansiReset     = "\033[0m"
	ansiClearLine = "\r\033[K"
)

const (
	sparklineWidth = 20
	hudMinInterval = 50 * time.Millisecond // don't redraw faster than this
)

// statusPresenter keeps a single status line at the bottom of the terminal
// and scrolls the verbose feed above it.
type statusPresenter struct {
	w       io.Writer
	stats   *stats.Collector
	verbose bool
	width   int

	drawn    bool
	lastDraw time.Time
}

func (p *statusPresenter) Run(events <-chan Event) error {
	// Fire the first tick quickly to seed the throughput ring, then settle
	// to once a second.
	secTicker := time.NewTicker(250 * time.Millisecond)
	defer secTicker.Stop()
	firstTickDone := false

	// Redraw while a large file keeps events from flowing.
	redrawTicker := time.NewTicker(200 * time.Millisecond)
	defer redrawTicker.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				p.clear()
				return nil
			}
			p.handleEvent(ev)
		case <-redrawTicker.C:
			p.draw()
		case <-secTicker.C:
			p.stats.Tick()
			if !firstTickDone {
				firstTickDone = true
				secTicker.Reset(time.Second)
			}
		}
	}
}

func (p *statusPresenter) handleEvent(ev Event) {
	if p.verbose {
		if line, ok := feedLine(ev); ok {
			p.clear()
			fmt.Fprintln(p.w, line)
			p.draw()
			return
		}
	}
	if time.Since(p.lastDraw) >= hudMinInterval {
		p.draw()
	}
}

func (p *statusPresenter) draw() {
	fmt.Fprint(p.w, ansiClearLine+p.statusLine())
	p.drawn = true
	p.lastDraw = time.Now()
}

func (p *statusPresenter) clear() {
	if !p.drawn {
		return
	}
	fmt.Fprint(p.w, ansiClearLine)
	p.drawn = false
}

func (p *statusPresenter) statusLine() string {
	snap := p.stats.Snapshot()
	spark := Sparkline(p.stats.SparklineData(sparklineWidth), sparklineWidth)
	line := fmt.Sprintf("%s  %s  %s files  %s  %s/s",
		spark,
		FormatRate(p.stats.RollingSpeed(10)),
		FormatCount(snap.FilesArchived+snap.LinksArchived),
		FormatBytes(snap.BytesArchived),
		FormatCount(int64(p.stats.RollingFilesPerSec(5))),
	)
	if snap.FilesFailed > 0 {
		line += fmt.Sprintf("  errors %d", snap.FilesFailed)
	}
	line += fmt.Sprintf("  %s%s%s", ansiDim, FormatDuration(snap.Elapsed), ansiReset)
	return truncLine(line, p.width)
}

func (p *statusPresenter) Summary() string {
	return completionSummary(p.stats.Snapshot())
}

// truncLine cuts s to at most width runes. ANSI sequences count toward the
// width, which only ever makes the line shorter than the terminal.
func truncLine(s string, width int) string {
	if width <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-1]) + ansiReset
}
