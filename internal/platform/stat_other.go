//go:build !linux && !darwin

package platform

import "io/fs"

func statOf(_ fs.FileInfo) (Stat, bool) {
	return Stat{}, false
}
