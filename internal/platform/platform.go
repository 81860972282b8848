// Package platform wraps the OS-specific pieces spintar relies on: page-cache
// advice, physical extent lookup and stat field extraction.
package platform

import (
	"errors"
	"io/fs"
)

// ErrNoExtents is returned by PhysicalOffset when a file has no mapped data
// extents (empty, fully sparse, or stored inline in the inode).
var ErrNoExtents = errors.New("no mapped extents")

// Stat holds the stat fields the archiver needs beyond fs.FileInfo.
type Stat struct {
	Dev   uint64
	Ino   uint64
	Nlink uint64
	UID   uint32
	GID   uint32
}

// StatOf extracts Stat from info. ok is false when the platform's
// Sys() value is not a *syscall.Stat_t.
func StatOf(info fs.FileInfo) (Stat, bool) {
	return statOf(info)
}
