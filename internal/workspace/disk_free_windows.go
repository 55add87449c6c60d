//go:build windows

package workspace

import (
	"os"

	"golang.org/x/sys/windows"
)

// DiskUsage returns the total size of the volume holding path and the bytes
// available to the caller. Both are 0 if they cannot be read.
func DiskUsage(path string) (total, free int64) {
	stat, err := os.Stat(path)
	if err != nil || !stat.IsDir() {
		return 0, 0
	}

	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0
	}

	var freeBytes, totalBytes, totalFreeBytes uint64
	if err := windows.GetDiskFreeSpaceEx(ptr, &freeBytes, &totalBytes, &totalFreeBytes); err != nil {
		return 0, 0
	}

	return int64(totalBytes), int64(freeBytes)
}
