package ports

import (
	"io/fs"
	"time"
)

// FileSystem is the filesystem surface the core needs.
//
//go:generate mockgen -source=filesystem.go -destination=mocks/mock_filesystem.go -package=mocks
type FileSystem interface {
	// Exists reports whether path exists.
	Exists(path string) (bool, error)

	// Stat returns file info for path.
	Stat(path string) (fs.FileInfo, error)

	// ModTime returns the modification time of path.
	ModTime(path string) (time.Time, error)

	// ReadFile returns the content of path.
	ReadFile(path string) ([]byte, error)

	// ReadDir returns the entries of the directory at path, sorted by name.
	ReadDir(path string) ([]fs.FileInfo, error)

	// Glob returns the files under root matching the doublestar pattern, as sorted absolute paths.
	Glob(root, pattern string) ([]string, error)

	// Digest returns the hex xxhash64 of the content of path.
	Digest(path string) (string, error)
}
