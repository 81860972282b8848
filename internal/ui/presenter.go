// Package ui renders archive progress on stderr and wires up logging.
// Nothing here ever writes to stdout, which may carry the archive.
package ui

import (
	"cmp"
	"io"
	"time"

	"github.com/bamsammich/spintar/internal/stats"
)

// DefaultInterval is how often the plain presenter prints a progress line.
const DefaultInterval = 5 * time.Second

// Presenter consumes events and displays progress.
type Presenter interface {
	// Run consumes events until the channel closes. Blocks until done.
	Run(events <-chan Event) error
	// Summary returns the final summary line.
	Summary() string
}

// Config configures a Presenter.
type Config struct {
	ErrWriter io.Writer
	Stats     *stats.Collector
	IsTTY     bool
	Quiet     bool
	Verbose   bool // list every archived member
	Progress  bool // periodic progress (status line on a TTY)
	Interval  time.Duration
	Width     int
}

// NewPresenter creates the appropriate presenter based on configuration.
//
//nolint:ireturn // factory function returns interface by design
func NewPresenter(cfg Config) Presenter {
	if cfg.Quiet {
		return &quietPresenter{}
	}
	if cfg.IsTTY && cfg.Progress {
		return &statusPresenter{
			w:       cfg.ErrWriter,
			stats:   cfg.Stats,
			verbose: cfg.Verbose,
			width:   cfg.Width,
		}
	}
	return &plainPresenter{
		w:        cfg.ErrWriter,
		stats:    cfg.Stats,
		verbose:  cfg.Verbose,
		progress: cfg.Progress,
		interval: cmp.Or(cfg.Interval, DefaultInterval),
	}
}
