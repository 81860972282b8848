// Package engine drives a single archive run: walk, read ahead, emit.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"golang.org/x/time/rate"

	"github.com/bamsammich/spintar/internal/archive"
	"github.com/bamsammich/spintar/internal/event"
	"github.com/bamsammich/spintar/internal/readahead"
	"github.com/bamsammich/spintar/internal/stats"
	"github.com/bamsammich/spintar/internal/walk"
)

// Filter selects leaves and prunes directories during the walk.
type Filter interface {
	Keep(c walk.Candidate) bool
	Descend(c walk.Candidate) bool
}

// Config describes an archive run.
type Config struct {
	Roots      []string // starting directories; the working directory when empty
	Order      walk.Order
	BatchSize  int // leaves sorted together; 0 means walk.DefaultBatchSize
	Out        io.Writer
	Filter     Filter // optional
	ReadAhead  int    // files opened ahead of the emitter
	Prefetch   int64  // WILLNEED bytes per file; 0 means the whole file
	Dropbehind bool
	BWLimit    int64    // read bytes per second; 0 means unlimited
	Skip       []string // absolute paths never archived, such as the output file

	Events chan<- event.Event // optional; never closed by Run
	Stats  *stats.Collector   // optional
}

// Result is the outcome of an archive run.
type Result struct {
	Stats  stats.Snapshot
	Digest string // hex BLAKE3 of the emitted stream
	Err    error  // fatal error; per-entry failures are only counted
}

// Run archives every regular file under cfg.Roots to cfg.Out, blocking
// until done. Per-entry failures are logged and skipped. Result.Err is set
// only when the output cannot be trusted: a bad configuration, a write
// error or cancellation.
func Run(ctx context.Context, cfg Config) Result {
	collector := cfg.Stats
	if collector == nil {
		collector = stats.NewCollector()
	}

	roots, err := resolveRoots(cfg.Roots)
	if err != nil {
		return Result{Err: err}
	}

	w := walk.New()
	w.SetOrder(cfg.Order)
	w.SetBatchSize(cfg.BatchSize)
	w.SetPrefilter(func(c walk.Candidate) bool {
		if !c.Type.IsRegular() {
			return false
		}
		if slices.Contains(cfg.Skip, c.Path) {
			slog.Info("skipping archive output", "path", c.Path)
			return false
		}
		return cfg.Filter == nil || cfg.Filter.Keep(c)
	})
	if cfg.Filter != nil {
		w.SetDirFilter(cfg.Filter.Descend)
	}
	for _, root := range roots {
		if err := w.AddRoot(root); err != nil {
			return Result{Err: err}
		}
	}

	var limiter *rate.Limiter
	if cfg.BWLimit > 0 {
		limiter = readahead.NewBWLimiter(cfg.BWLimit)
	}
	stage := readahead.New(readahead.SourceFunc(func() (readahead.Item, error) {
		e, err := w.Next()
		return readahead.Item{Path: e.Path, Root: e.Root}, err
	}), readahead.Config{
		Depth:    cfg.ReadAhead,
		Prefetch: cfg.Prefetch,
		Limiter:  limiter,
	})
	stage.SetDropbehind(cfg.Dropbehind)
	defer stage.Close()

	r := &run{
		ctx:   ctx,
		norm:  archive.NewNormalizer(roots...),
		links: archive.NewLinkTable(),
		em:    archive.NewEmitter(cfg.Out),
		stats: collector,
		evs:   cfg.Events,
	}

	slog.Debug("archive started",
		"roots", roots,
		"order", cfg.Order.String(),
		"readahead", cfg.ReadAhead,
		"dropbehind", cfg.Dropbehind,
	)
	r.emit(event.Event{Type: event.RunStarted})

	runErr := r.loop(stage)
	if runErr == nil {
		runErr = r.em.Close()
	}
	collector.SetBytesWritten(r.em.Written())
	r.emit(event.Event{Type: event.RunFinished, Size: r.em.Written(), Error: runErr})
	slog.Debug("archive finished",
		"bytes", r.em.Written(),
		"hardlinked_inodes", r.links.Len(),
		"error", runErr,
	)

	res := Result{Stats: collector.Snapshot(), Err: runErr}
	if runErr == nil {
		res.Digest = r.em.Digest()
	}
	return res
}

// run holds the single-consumer state of one archive run.
type run struct {
	ctx   context.Context //nolint:containedctx // scoped to one Run call
	norm  *archive.Normalizer
	links *archive.LinkTable
	em    *archive.Emitter
	stats *stats.Collector
	evs   chan<- event.Event
}

func (r *run) loop(stage *readahead.Stage) error {
	for {
		entry, err := stage.Next(r.ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if ctxErr := r.ctx.Err(); ctxErr != nil {
			if entry != nil {
				_ = entry.Close()
			}
			return fmt.Errorf("interrupted: %w", ctxErr)
		}
		if err != nil {
			r.fail(failedPath(err), err)
			continue
		}

		if err := r.archive(entry); err != nil {
			return err
		}
		r.stats.SetBytesWritten(r.em.Written())
	}
}

// archive emits one entry and closes it. Only fatal errors are returned.
func (r *run) archive(entry *readahead.OpenedEntry) error {
	name := r.norm.StripUnder(entry.Root, entry.Path)
	meta := archive.Meta{
		Mode: entry.Info.Mode(),
		UID:  entry.Stat.UID,
		GID:  entry.Stat.GID,
		Size: entry.Info.Size(),
	}

	key := archive.DevIno{Dev: entry.Stat.Dev, Ino: entry.Stat.Ino}
	if target, link := r.links.Resolve(key, entry.Stat.Nlink, name); link {
		err := r.em.WriteLink(name, meta, target)
		closeEntry(entry)
		if err != nil {
			return err
		}
		r.stats.AddLinksArchived(1)
		r.emit(event.Event{Type: event.LinkArchived, Path: name, Target: target})
		return nil
	}

	err := r.em.WriteData(name, meta, entry)
	closeEntry(entry)

	var readErr *archive.ReadError
	switch {
	case errors.As(err, &readErr):
		r.fail(entry.Path, readErr)
		return nil
	case err != nil:
		return err
	}
	r.stats.AddFilesArchived(1)
	r.stats.AddBytesArchived(meta.Size)
	r.emit(event.Event{Type: event.EntryArchived, Path: name, Size: meta.Size})
	return nil
}

func (r *run) fail(path string, err error) {
	r.stats.AddFilesFailed(1)
	slog.Warn("skipping entry", "path", path, "error", err)
	r.emit(event.Event{Type: event.EntryFailed, Path: path, Error: err})
}

func (r *run) emit(ev event.Event) {
	if r.evs == nil {
		return
	}
	ev.Timestamp = time.Now()
	select {
	case r.evs <- ev:
	case <-r.ctx.Done():
	}
}

func closeEntry(entry *readahead.OpenedEntry) {
	if err := entry.Close(); err != nil {
		slog.Debug("close failed", "path", entry.Path, "error", err)
	}
}

// resolveRoots makes every root absolute, defaulting to the working
// directory.
func resolveRoots(roots []string) ([]string, error) {
	if len(roots) == 0 {
		wd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		return []string{wd}, nil
	}
	abs := make([]string, 0, len(roots))
	for _, root := range roots {
		p, err := filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("resolve root %s: %w", root, err)
		}
		abs = append(abs, p)
	}
	return abs, nil
}

// failedPath extracts the path a per-entry error is about, if it carries one.
func failedPath(err error) string {
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return pathErr.Path
	}
	return ""
}
