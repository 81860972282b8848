// Package walk enumerates directory trees in an order meant to keep a
// spinning disk's head moving in one direction.
//
// Directories are read from a queue ordered by inode number. Leaves are
// gathered into batches spanning one or more directories and each batch
// is sorted according to the configured Order before it is yielded.
package walk

import (
	"cmp"
	"container/heap"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/bamsammich/spintar/internal/platform"
)

// DefaultBatchSize is the number of leaves gathered before a batch is
// sorted and released.
const DefaultBatchSize = 4096

// ErrNotDir is returned by AddRoot for a starting point that is not a directory.
var ErrNotDir = errors.New("not a directory")

// Entry is a single leaf yielded by the walker.
type Entry struct {
	Path string      // absolute path
	Root string      // absolute starting point the entry was found under
	Type fs.FileMode // type bits; zero for regular files
}

// Candidate describes a directory entry offered to a Prefilter.
type Candidate struct {
	Path string      // absolute path
	Rel  string      // slash-separated path relative to its root
	Type fs.FileMode // type bits; zero for regular files
	Size int64
}

// Prefilter reports whether a candidate should be kept.
type Prefilter func(c Candidate) bool

type leaf struct {
	entry Entry
	dev   uint64
	ino   uint64
	key   uint64
	seq   int
}

type dir struct {
	path string
	root string
	dev  uint64
	ino  uint64
	seq  int
}

// Walker yields leaves under its roots one at a time. It is not safe for
// concurrent use.
type Walker struct {
	order     Order
	prefilter Prefilter
	dirFilter Prefilter
	batchSize int
	pending   dirQueue
	ready     []leaf
	errs      []error
	seq       int

	noExtents map[uint64]bool // devices without FIEMAP support
}

// New returns a walker with the default order and batch size.
func New() *Walker {
	w := &Walker{
		batchSize: DefaultBatchSize,
		noExtents: make(map[uint64]bool),
	}
	w.pending.order = &w.order
	return w
}

// SetOrder selects the leaf order. It must be called before AddRoot.
func (w *Walker) SetOrder(o Order) { w.order = o }

// SetPrefilter installs the predicate applied to every non-directory entry.
func (w *Walker) SetPrefilter(p Prefilter) { w.prefilter = p }

// SetDirFilter installs the predicate that decides whether a subdirectory
// is descended into. Roots are always descended.
func (w *Walker) SetDirFilter(p Prefilter) { w.dirFilter = p }

// SetBatchSize changes the leaf batch size. Values below 1 are ignored.
func (w *Walker) SetBatchSize(n int) {
	if n > 0 {
		w.batchSize = n
	}
}

// AddRoot queues a starting directory. The path is made absolute.
func (w *Walker) AddRoot(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve root %s: %w", path, err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		return fmt.Errorf("root %s: %w", path, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("root %s: %w", path, ErrNotDir)
	}
	st, _ := platform.StatOf(info)
	w.seq++
	heap.Push(&w.pending, dir{path: abs, root: abs, dev: st.Dev, ino: st.Ino, seq: w.seq})
	return nil
}

// Next returns the next leaf. Errors other than io.EOF concern a single
// directory or entry; the walk can continue by calling Next again.
func (w *Walker) Next() (Entry, error) {
	for {
		if len(w.errs) > 0 {
			err := w.errs[0]
			w.errs = w.errs[1:]
			return Entry{}, err
		}
		if len(w.ready) > 0 {
			l := w.ready[0]
			w.ready[0] = leaf{}
			w.ready = w.ready[1:]
			return l.entry, nil
		}
		if w.pending.Len() == 0 {
			return Entry{}, io.EOF
		}
		w.fill()
	}
}

// fill reads whole directories until a batch is full, then sorts it.
func (w *Walker) fill() {
	var batch []leaf
	for w.pending.Len() > 0 && len(batch) < w.batchSize {
		d := heap.Pop(&w.pending).(dir) //nolint:forcetypeassert // queue only holds dir
		batch = w.readDir(d, batch)
	}
	w.sortBatch(batch)
	w.ready = batch
}

func (w *Walker) readDir(d dir, batch []leaf) []leaf {
	f, err := os.Open(d.path)
	if err != nil {
		w.errs = append(w.errs, fmt.Errorf("open dir %s: %w", d.path, err))
		return batch
	}
	defer f.Close()

	entries, err := f.ReadDir(-1)
	if err != nil {
		// Keep whatever was listed before the failure.
		w.errs = append(w.errs, fmt.Errorf("readdir %s: %w", d.path, err))
	}

	for _, de := range entries {
		path := filepath.Join(d.path, de.Name())
		rel, err := filepath.Rel(d.root, path)
		if err != nil {
			w.errs = append(w.errs, fmt.Errorf("rel path for %s: %w", path, err))
			continue
		}
		rel = filepath.ToSlash(rel)

		info, err := de.Info()
		if err != nil {
			w.errs = append(w.errs, fmt.Errorf("lstat %s: %w", path, err))
			continue
		}
		st, _ := platform.StatOf(info)
		typ := de.Type()

		if typ.IsDir() {
			if w.dirFilter != nil && !w.dirFilter(Candidate{Path: path, Rel: rel, Type: typ}) {
				continue
			}
			w.seq++
			heap.Push(&w.pending, dir{path: path, root: d.root, dev: st.Dev, ino: st.Ino, seq: w.seq})
			continue
		}

		c := Candidate{Path: path, Rel: rel, Type: typ, Size: info.Size()}
		if w.prefilter != nil && !w.prefilter(c) {
			continue
		}
		w.seq++
		batch = append(batch, leaf{
			entry: Entry{Path: path, Root: d.root, Type: typ},
			dev:   st.Dev,
			ino:   st.Ino,
			seq:   w.seq,
		})
	}
	return batch
}

func (w *Walker) sortBatch(batch []leaf) {
	switch w.order {
	case OrderDentry:
		return
	case OrderContent:
		if w.assignExtents(batch) {
			slices.SortFunc(batch, func(a, b leaf) int {
				return cmp.Or(
					cmp.Compare(a.dev, b.dev),
					cmp.Compare(a.key, b.key),
					cmp.Compare(a.seq, b.seq),
				)
			})
			return
		}
	}
	slices.SortFunc(batch, byInode)
}

// assignExtents fills in each leaf's physical offset. It returns false
// when any leaf lives on a filesystem that cannot map extents, in which
// case the batch falls back to inode order.
func (w *Walker) assignExtents(batch []leaf) bool {
	for i := range batch {
		if w.noExtents[batch[i].dev] {
			return false
		}
		off, err := platform.PhysicalOffset(batch[i].entry.Path)
		switch {
		case err == nil:
			batch[i].key = off
		case errors.Is(err, errors.ErrUnsupported):
			w.noExtents[batch[i].dev] = true
			return false
		default:
			// Empty files and entries that vanished sort first; the
			// read-ahead stage reports anything that is really broken.
			batch[i].key = 0
		}
	}
	return true
}

func byInode(a, b leaf) int {
	return cmp.Or(
		cmp.Compare(a.dev, b.dev),
		cmp.Compare(a.ino, b.ino),
		cmp.Compare(a.seq, b.seq),
	)
}

// dirQueue is a heap of pending directories. With OrderDentry it pops in
// discovery order, otherwise by (device, inode).
type dirQueue struct {
	dirs  []dir
	order *Order
}

func (q *dirQueue) Len() int { return len(q.dirs) }

func (q *dirQueue) Less(i, j int) bool {
	a, b := q.dirs[i], q.dirs[j]
	if *q.order == OrderDentry {
		return a.seq < b.seq
	}
	return cmp.Or(
		cmp.Compare(a.dev, b.dev),
		cmp.Compare(a.ino, b.ino),
		cmp.Compare(a.seq, b.seq),
	) < 0
}

func (q *dirQueue) Swap(i, j int) { q.dirs[i], q.dirs[j] = q.dirs[j], q.dirs[i] }

func (q *dirQueue) Push(x any) { q.dirs = append(q.dirs, x.(dir)) } //nolint:forcetypeassert // only dir is pushed

func (q *dirQueue) Pop() any {
	old := q.dirs
	n := len(old)
	d := old[n-1]
	old[n-1] = dir{}
	q.dirs = old[:n-1]
	return d
}
