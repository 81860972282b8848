//go:build linux

package platform

import (
	"os"

	"golang.org/x/sys/unix"
)

// AdviseWillNeed asks the kernel to start reading the first length bytes
// of f into the page cache. A length of 0 covers the whole file.
//
//nolint:gosec // G115: fd values are small non-negative integers
func AdviseWillNeed(f *os.File, length int64) error {
	return unix.Fadvise(int(f.Fd()), 0, length, unix.FADV_WILLNEED)
}

// AdviseDontNeed drops f's cached pages. Only pages belonging to f are
// affected; dirty pages are left for writeback.
//
//nolint:gosec // G115: fd values are small non-negative integers
func AdviseDontNeed(f *os.File) error {
	return unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
}
