// Package workspace manages the download root and the per-message working
// directories beneath it.
package workspace

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/iconidentify/tokgrabba/internal/domain"
)

// Root is the shared download directory.
type Root struct {
	dir    string
	logger *slog.Logger
}

// New creates a Root at dir. Call Prepare before creating working directories.
func New(dir string, logger *slog.Logger) *Root {
	if logger == nil {
		logger = slog.Default()
	}
	return &Root{dir: dir, logger: logger}
}

// Dir returns the root path.
func (r *Root) Dir() string {
	return r.dir
}

// Prepare ensures the root exists and removes everything left inside it.
// Entries found here belong to runs that never finished and are not reused.
func (r *Root) Prepare() error {
	if err := os.MkdirAll(r.dir, 0755); err != nil {
		return fmt.Errorf("create download root %s: %w", r.dir, err)
	}

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return fmt.Errorf("read download root: %w", err)
	}

	for _, e := range entries {
		path := filepath.Join(r.dir, e.Name())
		if err := os.RemoveAll(path); err != nil {
			return fmt.Errorf("purge %s: %w", path, err)
		}
		r.logger.Info("purged leftover working directory", "path", path)
	}

	r.logger.Info("download root ready",
		"path", r.dir,
		"free", humanize.Bytes(uint64(max(FreeSpace(r.dir), 0))),
	)
	return nil
}

// Dir is the private working directory of one run.
type Dir struct {
	Path string
}

// Join returns a path inside the working directory.
func (d Dir) Join(name string) string {
	return filepath.Join(d.Path, name)
}

// Create makes the working directory for id. It fails with
// domain.ErrWorkdirExists if one is already present, so two runs can never
// share a directory.
func (r *Root) Create(id domain.MessageID) (Dir, error) {
	name := filepath.Base(filepath.Clean(string(id)))
	if name == "." || name == string(filepath.Separator) || name == "" {
		return Dir{}, fmt.Errorf("invalid working directory name %q", id)
	}

	path := filepath.Join(r.dir, name)
	if err := os.Mkdir(path, 0755); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return Dir{}, fmt.Errorf("%w: %s", domain.ErrWorkdirExists, path)
		}
		return Dir{}, fmt.Errorf("create working directory %s: %w", path, err)
	}
	return Dir{Path: path}, nil
}

// Remove deletes the working directory and everything in it.
func (r *Root) Remove(d Dir) error {
	if d.Path == "" {
		return nil
	}
	if err := os.RemoveAll(d.Path); err != nil {
		return fmt.Errorf("remove working directory %s: %w", d.Path, err)
	}
	return nil
}

// Entries returns the names currently under the root.
func (r *Root) Entries() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

// FreeSpace returns the bytes available on the filesystem holding path.
func FreeSpace(path string) int64 {
	_, free := DiskUsage(path)
	return free
}
