//go:build !linux

package platform

import "os"

// AdviseWillNeed is a no-op on platforms without posix_fadvise.
func AdviseWillNeed(_ *os.File, _ int64) error { return nil }

// AdviseDontNeed is a no-op on platforms without posix_fadvise.
func AdviseDontNeed(_ *os.File) error { return nil }
