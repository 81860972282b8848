//go:build !linux

package platform

import "errors"

// PhysicalOffset is unsupported outside Linux.
func PhysicalOffset(_ string) (uint64, error) {
	return 0, errors.ErrUnsupported
}
