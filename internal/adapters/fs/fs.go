// Package fs implements the filesystem port over afero.
package fs

import (
	"errors"
	"fmt"
	"io"
	iofs "io/fs"
	"path/filepath"
	"sort"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/cespare/xxhash/v2"
	"github.com/spf13/afero"
	"go.trai.ch/trove/internal/core/domain"
	"go.trai.ch/trove/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.FileSystem = (*FileSystem)(nil)

// FileSystem implements ports.FileSystem on top of an afero.Fs.
type FileSystem struct {
	fs afero.Fs
}

// New creates a FileSystem backed by the operating system.
func New() *FileSystem {
	return NewWithFs(afero.NewOsFs())
}

// NewWithFs creates a FileSystem backed by the given afero.Fs.
func NewWithFs(fs afero.Fs) *FileSystem {
	return &FileSystem{fs: fs}
}

// Fs returns the underlying afero.Fs.
func (f *FileSystem) Fs() afero.Fs {
	return f.fs
}

// Exists reports whether path exists.
func (f *FileSystem) Exists(path string) (bool, error) {
	ok, err := afero.Exists(f.fs, path)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, domain.ErrFileStatFailed.Error()), "path", path)
	}
	return ok, nil
}

// Stat returns file info for path.
// A missing path yields an error matching fs.ErrNotExist.
func (f *FileSystem) Stat(path string) (iofs.FileInfo, error) {
	info, err := f.fs.Stat(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrFileStatFailed.Error()), "path", path)
	}
	return info, nil
}

// ModTime returns the modification time of path.
func (f *FileSystem) ModTime(path string) (time.Time, error) {
	info, err := f.Stat(path)
	if err != nil {
		return time.Time{}, err
	}
	return info.ModTime(), nil
}

// ReadFile returns the content of path.
func (f *FileSystem) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(f.fs, path)
}

// ReadDir returns the entries of the directory at path, sorted by name.
func (f *FileSystem) ReadDir(path string) ([]iofs.FileInfo, error) {
	infos, err := afero.ReadDir(f.fs, path)
	if err != nil {
		return nil, err
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name() < infos[j].Name() })
	return infos, nil
}

// Glob returns the files under root matching the doublestar pattern, as sorted absolute paths.
// A missing root yields no matches.
func (f *FileSystem) Glob(root, pattern string) ([]string, error) {
	fsys := afero.NewIOFS(afero.NewBasePathFs(f.fs, root))

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		if errors.Is(err, doublestar.ErrBadPattern) {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrDiscoveryFailed.Error()), "pattern", pattern)
		}
		return nil, zerr.With(zerr.Wrap(err, domain.ErrDiscoveryFailed.Error()), "root", root)
	}

	paths := make([]string, 0, len(matches))
	for _, match := range matches {
		paths = append(paths, filepath.Join(root, filepath.FromSlash(match)))
	}
	sort.Strings(paths)
	return paths, nil
}

// Digest returns the hex xxhash64 of the content of path.
func (f *FileSystem) Digest(path string) (string, error) {
	file, err := f.fs.Open(path)
	if err != nil {
		return "", zerr.With(zerr.Wrap(err, "failed to open file"), "path", path)
	}
	defer file.Close() //nolint:errcheck // Best effort close in defer

	hasher := xxhash.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", zerr.With(zerr.Wrap(err, domain.ErrFileHashFailed.Error()), "path", path)
	}

	return fmt.Sprintf("%016x", hasher.Sum64()), nil
}
