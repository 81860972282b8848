//go:build linux

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
		Dev:   st.Dev,
		Ino:   st.Ino,
		Nlink: uint64(st.Nlink), //nolint:unconvert // uint32 on some arches
		UID:   st.Uid,
		GID:   st.Gid,
	}, true
}
