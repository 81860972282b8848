//go:build darwin

package platform

import (
	"io/fs"
	"syscall"
)

func statOf(info fs.FileInfo) (Stat, bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return Stat{}, false
	}
	return Stat{
		Dev:   uint64(st.Dev), //nolint:gosec // G115: dev_t is int32 on darwin, always non-negative
		Ino:   st.Ino,
		Nlink: uint64(st.Nlink),
		UID:   st.Uid,
		GID:   st.Gid,
	}, true
}
