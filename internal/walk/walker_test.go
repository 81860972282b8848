package walk

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func regularOnly(c Candidate) bool { return c.Type.IsRegular() }

// drain pulls every entry from w, collecting per-entry errors separately.
func drain(t *testing.T, w *Walker) ([]string, []error) {
	t.Helper()
	var paths []string
	var errs []error
	for {
		e, err := w.Next()
		if errors.Is(err, io.EOF) {
			return paths, errs
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		paths = append(paths, e.Path)
	}
}

func writeTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, f)
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(f), 0o644))
	}
}

func TestWalker_YieldsEveryRegularFile(t *testing.T) {
	for _, order := range []Order{OrderContent, OrderInode, OrderDentry} {
		t.Run(order.String(), func(t *testing.T) {
			root := t.TempDir()
			writeTree(t, root, "a", "b", "sub/c", "sub/deep/d")
			require.NoError(t, os.Symlink("a", filepath.Join(root, "link")))

			w := New()
			w.SetOrder(order)
			w.SetPrefilter(regularOnly)
			require.NoError(t, w.AddRoot(root))

			paths, errs := drain(t, w)
			require.Empty(t, errs)

			sort.Strings(paths)
			assert.Equal(t, []string{
				filepath.Join(root, "a"),
				filepath.Join(root, "b"),
				filepath.Join(root, "sub", "c"),
				filepath.Join(root, "sub", "deep", "d"),
			}, paths)
		})
	}
}

func TestWalker_InodeOrderWithinBatch(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "z", "y", "x", "w", "v")

	w := New()
	w.SetOrder(OrderInode)
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot(root))

	paths, errs := drain(t, w)
	require.Empty(t, errs)
	require.Len(t, paths, 5)

	var inodes []uint64
	for _, p := range paths {
		info, err := os.Lstat(p)
		require.NoError(t, err)
		st, ok := info.Sys().(*syscall.Stat_t)
		if !ok {
			t.Skip("no inode numbers on this platform")
		}
		inodes = append(inodes, st.Ino)
	}
	assert.True(t, sort.SliceIsSorted(inodes, func(i, j int) bool { return inodes[i] < inodes[j] }),
		"inodes not ascending: %v", inodes)
}

func TestWalker_DentryOrderMatchesReaddir(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "one", "two", "three", "four")

	f, err := os.Open(root)
	require.NoError(t, err)
	names, err := f.Readdirnames(-1)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	w := New()
	w.SetOrder(OrderDentry)
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot(root))

	paths, errs := drain(t, w)
	require.Empty(t, errs)

	var got []string
	for _, p := range paths {
		got = append(got, filepath.Base(p))
	}
	assert.Equal(t, names, got)
}

func TestWalker_PrefilterSeesRelativePaths(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "keep.txt", "drop.log", "sub/keep2.txt")

	var seen []string
	w := New()
	w.SetPrefilter(func(c Candidate) bool {
		seen = append(seen, c.Rel)
		return filepath.Ext(c.Rel) != ".log"
	})
	require.NoError(t, w.AddRoot(root))

	paths, errs := drain(t, w)
	require.Empty(t, errs)
	assert.Len(t, paths, 2)
	assert.ElementsMatch(t, []string{"keep.txt", "drop.log", "sub/keep2.txt"}, seen)
}

func TestWalker_DirFilterPrunes(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a", "build/out.o", "src/main.c")

	w := New()
	w.SetPrefilter(regularOnly)
	w.SetDirFilter(func(c Candidate) bool { return c.Rel != "build" })
	require.NoError(t, w.AddRoot(root))

	paths, errs := drain(t, w)
	require.Empty(t, errs)
	sort.Strings(paths)
	assert.Equal(t, []string{filepath.Join(root, "a"), filepath.Join(root, "src", "main.c")}, paths)
}

func TestWalker_MultipleRoots(t *testing.T) {
	base := t.TempDir()
	r1 := filepath.Join(base, "r1")
	r2 := filepath.Join(base, "r2")
	writeTree(t, r1, "a")
	writeTree(t, r2, "b", "c")

	w := New()
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot(r1))
	require.NoError(t, w.AddRoot(r2))

	paths, errs := drain(t, w)
	require.Empty(t, errs)
	assert.Len(t, paths, 3)
}

func TestWalker_EntryRoot(t *testing.T) {
	outer := t.TempDir()
	inner := filepath.Join(outer, "sub")
	writeTree(t, outer, "y", "sub/x")

	w := New()
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot(outer))
	require.NoError(t, w.AddRoot(inner))

	var got []string
	for {
		e, err := w.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		rel, err := filepath.Rel(e.Root, e.Path)
		require.NoError(t, err)
		got = append(got, filepath.ToSlash(rel))
	}
	assert.ElementsMatch(t, []string{"y", "sub/x", "x"}, got)
}

func TestWalker_SmallBatches(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a", "b", "d1/c", "d2/d", "d3/e")

	w := New()
	w.SetBatchSize(1)
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot(root))

	paths, errs := drain(t, w)
	require.Empty(t, errs)
	assert.Len(t, paths, 5)
}

func TestWalker_AddRootErrors(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	w := New()
	assert.ErrorIs(t, w.AddRoot(file), ErrNotDir)
	assert.ErrorIs(t, w.AddRoot(filepath.Join(dir, "missing")), os.ErrNotExist)
}

func TestWalker_RelativeRootIsMadeAbsolute(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, "a")
	t.Chdir(root)

	w := New()
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot("."))

	paths, errs := drain(t, w)
	require.Empty(t, errs)
	require.Len(t, paths, 1)
	assert.True(t, filepath.IsAbs(paths[0]))
}

func TestWalker_UnreadableDirIsReportedAndSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	root := t.TempDir()
	writeTree(t, root, "a", "locked/b")
	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0o000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0o755) })

	w := New()
	w.SetPrefilter(regularOnly)
	require.NoError(t, w.AddRoot(root))

	paths, errs := drain(t, w)
	assert.Equal(t, []string{filepath.Join(root, "a")}, paths)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], os.ErrPermission)
	assert.Contains(t, errs[0].Error(), "locked")
}

func TestWalker_EmptyRoot(t *testing.T) {
	w := New()
	require.NoError(t, w.AddRoot(t.TempDir()))
	_, err := w.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = w.Next()
	assert.ErrorIs(t, err, io.EOF)
}
