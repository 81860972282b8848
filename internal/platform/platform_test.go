package platform

import (
	"bytes"
	"crypto/rand"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatOf_Hardlink(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("stat fields only extracted on linux and darwin")
	}
	dir := t.TempDir()
	a := filepath.Join(dir, "a")
	b := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(a, []byte("X"), 0o644))
	require.NoError(t, os.Link(a, b))

	infoA, err := os.Lstat(a)
	require.NoError(t, err)
	infoB, err := os.Lstat(b)
	require.NoError(t, err)

	stA, ok := StatOf(infoA)
	require.True(t, ok)
	stB, ok := StatOf(infoB)
	require.True(t, ok)

	assert.Equal(t, uint64(2), stA.Nlink)
	assert.Equal(t, stA.Dev, stB.Dev)
	assert.Equal(t, stA.Ino, stB.Ino)
	assert.Equal(t, uint32(os.Getuid()), stA.UID) //nolint:gosec // test uid fits
}

func TestAdvise(t *testing.T) {
	path := filepath.Join(t.TempDir(), "f")
	require.NoError(t, os.WriteFile(path, bytes.Repeat([]byte("a"), 8192), 0o644))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	assert.NoError(t, AdviseWillNeed(f, 4096))
	assert.NoError(t, AdviseWillNeed(f, 0))
	assert.NoError(t, AdviseDontNeed(f))
}

func TestPhysicalOffset_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := PhysicalOffset(path)
	require.Error(t, err)
	assert.True(t,
		errors.Is(err, ErrNoExtents) || errors.Is(err, errors.ErrUnsupported),
		"unexpected error: %v", err)
}

func TestPhysicalOffset_DataFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data")
	data := make([]byte, 64*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)
	f, err := os.Create(path)
	require.NoError(t, err)
	_, err = f.Write(data)
	require.NoError(t, err)
	require.NoError(t, f.Sync()) // force allocation on delayed-allocation filesystems
	require.NoError(t, f.Close())

	_, err = PhysicalOffset(path)
	if errors.Is(err, errors.ErrUnsupported) || errors.Is(err, ErrNoExtents) {
		t.Skipf("extent mapping not available here: %v", err)
	}
	assert.NoError(t, err)
}

func TestPhysicalOffset_Missing(t *testing.T) {
	_, err := PhysicalOffset(filepath.Join(t.TempDir(), "nope"))
	if runtime.GOOS != "linux" {
		assert.ErrorIs(t, err, errors.ErrUnsupported)
		return
	}
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestCopyBuffered(t *testing.T) {
	data := make([]byte, 3*BufferSize+17)
	_, err := rand.Read(data)
	require.NoError(t, err)

	var out bytes.Buffer
	n, err := CopyBuffered(&out, bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, int64(len(data)), n)
	assert.Equal(t, data, out.Bytes())
}
