//go:build !windows

package workspace

import (
	"os"

	"golang.org/x/sys/unix"
)

// DiskUsage returns the total size of the filesystem holding path and the
// bytes available to unprivileged users. Both are 0 if they cannot be read.
func DiskUsage(path string) (total, free int64) {
	stat, err := os.Stat(path)
	if err != nil || !stat.IsDir() {
		return 0, 0
	}

	var fs unix.Statfs_t
	if err := unix.Statfs(path, &fs); err != nil {
		return 0, 0
	}

	return int64(fs.Blocks) * int64(fs.Bsize), int64(fs.Bavail) * int64(fs.Bsize)
}
