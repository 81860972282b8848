//go:build linux

package platform

import (
	"errors"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// fsIocFiemap is _IOWR('f', 11, struct fiemap).
const fsIocFiemap = 0xC020660B

// fiemap mirrors struct fiemap from <linux/fiemap.h> with room for one extent.
type fiemap struct {
	start         uint64
	length        uint64
	flags         uint32
	mappedExtents uint32
	extentCount   uint32
	reserved      uint32
	extent        fiemapExtent
}

type fiemapExtent struct {
	logical    uint64
	physical   uint64
	length     uint64
	reserved64 [2]uint64
	flags      uint32
	reserved   [3]uint32
}

// PhysicalOffset returns the on-disk byte offset of the first data extent
// of the file at path. It returns errors.ErrUnsupported when the filesystem
// cannot map extents and ErrNoExtents when the file has none.
func PhysicalOffset(path string) (uint64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	req := fiemap{
		length:      ^uint64(0),
		extentCount: 1,
	}
	_, _, errno := unix.Syscall(
		unix.SYS_IOCTL,
		f.Fd(),
		fsIocFiemap,
		uintptr(unsafe.Pointer(&req)), //nolint:gosec // G103: ioctl argument
	)
	if errno != 0 {
		if errors.Is(errno, unix.EOPNOTSUPP) || errors.Is(errno, unix.ENOTTY) ||
			errors.Is(errno, unix.EINVAL) {
			return 0, errors.ErrUnsupported
		}
		return 0, fmt.Errorf("fiemap %s: %w", path, errno)
	}
	if req.mappedExtents == 0 {
		return 0, ErrNoExtents
	}
	return req.extent.physical, nil
}
