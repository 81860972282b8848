// Package readahead opens files ahead of the consumer so that disk
// latency overlaps with archive emission.
//
// Paths are pulled from a Source in order and opened on background
// goroutines. Results come back out of Next in exactly the order the
// Source produced them, with per-entry failures in their place.
package readahead

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/time/rate"

	"github.com/bamsammich/spintar/internal/platform"
)

const (
	// DefaultDepth is the number of entries opened ahead of the consumer.
	DefaultDepth = 32
	// DefaultPrefetch is the WILLNEED window issued for each opened file.
	DefaultPrefetch = 1 << 20
)

// ErrNotRegular is returned for a path that is no longer a regular file
// by the time it is opened.
var ErrNotRegular = errors.New("not a regular file")

// Item is one file to open. Root is carried through to the opened entry
// untouched.
type Item struct {
	Path string
	Root string
}

// Source yields items in order. It returns io.EOF when exhausted; any
// other error is reported for that position and pulling continues.
type Source interface {
	Next() (Item, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func() (Item, error)

// Next calls f.
func (f SourceFunc) Next() (Item, error) { return f() }

// Config controls prefetching.
type Config struct {
	Depth    int           // entries in flight; default DefaultDepth
	Prefetch int64         // WILLNEED bytes per file; 0 means the whole file
	Limiter  *rate.Limiter // optional aggregate read limit
}

type result struct {
	entry *OpenedEntry
	err   error
}

// Stage is the read-ahead pipeline. Next must be called from a single
// goroutine.
type Stage struct {
	src        Source
	cfg        Config
	dropbehind bool

	start  sync.Once
	ctx    context.Context //nolint:containedctx // lifetime of background opens
	cancel context.CancelFunc
	slots  chan chan result
	done   chan struct{}
}

// New wraps src. Prefetching starts on the first call to Next.
func New(src Source, cfg Config) *Stage {
	if cfg.Depth <= 0 {
		cfg.Depth = DefaultDepth
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Stage{
		src:    src,
		cfg:    cfg,
		ctx:    ctx,
		cancel: cancel,
		slots:  make(chan chan result, cfg.Depth),
		done:   make(chan struct{}),
	}
}

// SetDropbehind makes every handed-out entry drop its cached pages on
// Close. It has no effect once Next has been called.
func (s *Stage) SetDropbehind(on bool) {
	s.dropbehind = on
}

// Next blocks until the next entry in source order is ready. It returns
// io.EOF when the source is exhausted. Other errors concern one entry only.
func (s *Stage) Next(ctx context.Context) (*OpenedEntry, error) {
	s.start.Do(func() { go s.dispatch() })

	var slot chan result
	var ok bool
	select {
	case slot, ok = <-s.slots:
		if !ok {
			return nil, io.EOF
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case res := <-slot:
		return res.entry, res.err
	case <-ctx.Done():
		// The open may still complete; hand the slot to the cleanup path.
		go func() { closeResult(<-slot) }()
		return nil, ctx.Err()
	}
}

// Close stops prefetching and releases every entry that was opened but
// never returned by Next. It blocks until background work has stopped.
func (s *Stage) Close() error {
	s.start.Do(func() { close(s.done); close(s.slots) })
	s.cancel()
	for slot := range s.slots {
		closeResult(<-slot)
	}
	<-s.done
	return nil
}

// dispatch pulls paths from the source and starts one open per path. The
// slots channel is buffered to Depth, which bounds the number of opened
// files waiting for the consumer.
func (s *Stage) dispatch() {
	defer close(s.done)
	defer close(s.slots)

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		item, err := s.src.Next()
		if errors.Is(err, io.EOF) {
			return
		}

		slot := make(chan result, 1)
		select {
		case s.slots <- slot:
		case <-s.ctx.Done():
			return
		}

		if err != nil {
			slot <- result{err: err}
			continue
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			entry, err := s.open(item)
			slot <- result{entry: entry, err: err}
		}()
	}
}

func (s *Stage) open(item Item) (*OpenedEntry, error) {
	path := item.Path
	if err := s.ctx.Err(); err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}

	st, _ := platform.StatOf(info)
	if st.Nlink == 0 {
		st.Nlink = 1
	}

	// Advisory only; filesystems without readahead support just ignore it.
	_ = platform.AdviseWillNeed(f, s.cfg.Prefetch) //nolint:errcheck // advisory

	entry := &OpenedEntry{
		Path:       path,
		Root:       item.Root,
		Info:       info,
		Stat:       st,
		file:       f,
		r:          f,
		dropbehind: s.dropbehind,
	}
	if s.cfg.Limiter != nil {
		entry.r = &rateLimitedReader{r: f, limiter: s.cfg.Limiter, ctx: s.ctx}
	}
	return entry, nil
}

func closeResult(res result) {
	if res.entry != nil {
		_ = res.entry.Close()
	}
}
