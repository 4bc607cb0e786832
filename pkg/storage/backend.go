package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrReadOnly is returned by sources that cannot be written to
var ErrReadOnly = errors.New("storage is read-only")

// FileInfo represents metadata about a file
type FileInfo struct {
	// Path is the full path on the backend (OS path locally, POSIX remotely)
	Path string

	// RelativePath is the path relative to the backend root
	RelativePath string

	Size        int64
	ModTime     time.Time
	IsDir       bool
	Permissions uint32
}

// Source is a backend files can be listed and read from.
// Implementations include the local filesystem and SFTP servers.
type Source interface {
	// ReadDir returns the entries of a single directory, sorted by name.
	// A missing directory yields an error matching fs.ErrNotExist.
	ReadDir(ctx context.Context, dir string) ([]FileInfo, error)

	// List returns all files and directories below dir recursively
	List(ctx context.Context, dir string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// Close releases any resources held by the backend
	Close() error
}

// Backend is a writable Source
type Backend interface {
	Source

	// Write creates or overwrites a file with the given content. Content is
	// staged and moved into place only once fully written, so a failed
	// transfer never leaves a truncated file behind. A negative size skips
	// the length check. If metadata is provided, timestamps and permissions
	// are preserved.
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Delete removes a file or directory
	Delete(ctx context.Context, path string) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error
}
