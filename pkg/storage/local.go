package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// StagingDir is the hidden directory below the root where writes are staged
const StagingDir = ".versync"

// Local is a filesystem-based storage backend
type Local struct {
	fs       afero.Fs
	rootPath string
}

// NewLocal creates a new local filesystem backend
func NewLocal(rootPath string) (*Local, error) {
	return NewLocalFs(afero.NewOsFs(), rootPath)
}

// NewLocalFs creates a local backend on top of an arbitrary afero filesystem
func NewLocalFs(fs afero.Fs, rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := fs.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	return &Local{fs: fs, rootPath: absPath}, nil
}

// Root returns the absolute root directory
func (l *Local) Root() string {
	return l.rootPath
}

// resolve maps a root-relative or absolute path below the root to a full path
func (l *Local) resolve(path string) string {
	if filepath.IsAbs(path) && (path == l.rootPath || strings.HasPrefix(path, l.rootPath+string(filepath.Separator))) {
		return filepath.Clean(path)
	}
	return filepath.Join(l.rootPath, path)
}

func (l *Local) fileInfo(fullPath string, info os.FileInfo) (FileInfo, error) {
	relPath, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		return FileInfo{}, err
	}
	return FileInfo{
		Path:         fullPath,
		RelativePath: relPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		Permissions:  uint32(info.Mode().Perm()),
	}, nil
}

// ReadDir returns the entries of a single directory
func (l *Local) ReadDir(ctx context.Context, dir string) ([]FileInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fullPath := l.resolve(dir)
	entries, err := afero.ReadDir(l.fs, fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		fi, err := l.fileInfo(filepath.Join(fullPath, e.Name()), e)
		if err != nil {
			return nil, err
		}
		files = append(files, fi)
	}

	return files, nil
}

// List returns all files in the directory recursively
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	fullPath := l.resolve(path)
	var files []FileInfo

	err := afero.Walk(l.fs, fullPath, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		// Check context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if p == fullPath {
			return nil
		}
		if info.IsDir() && info.Name() == StagingDir {
			return filepath.SkipDir
		}

		fi, err := l.fileInfo(p, info)
		if err != nil {
			return err
		}
		files = append(files, fi)

		return nil
	})

	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	file, err := l.fs.Open(l.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write stages the content below StagingDir and renames it into place
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := l.resolve(path)

	// Ensure parent and staging directories exist
	if err := l.fs.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	staging := filepath.Join(l.rootPath, StagingDir)
	if err := l.fs.MkdirAll(staging, 0755); err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}

	tmp, err := afero.TempFile(l.fs, staging, filepath.Base(fullPath)+".*")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = l.fs.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmp, reader)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	if size >= 0 && written != size {
		return fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written)
	}

	if err := l.fs.Rename(tmpPath, fullPath); err != nil {
		return fmt.Errorf("failed to move file into place: %w", err)
	}
	committed = true

	// Preserve metadata if provided
	if metadata != nil {
		if !metadata.ModTime.IsZero() {
			if err := l.fs.Chtimes(fullPath, metadata.ModTime, metadata.ModTime); err != nil {
				return fmt.Errorf("failed to set modification time: %w", err)
			}
		}

		if metadata.Permissions != 0 {
			if err := l.fs.Chmod(fullPath, os.FileMode(metadata.Permissions)); err != nil {
				return fmt.Errorf("failed to set permissions: %w", err)
			}
		}
	}

	return nil
}

// Delete removes a file or directory
func (l *Local) Delete(ctx context.Context, path string) error {
	fullPath := l.resolve(path)
	if fullPath == l.rootPath {
		return fmt.Errorf("refusing to delete backend root: %s", fullPath)
	}

	if err := l.fs.RemoveAll(fullPath); err != nil {
		return fmt.Errorf("failed to delete: %w", err)
	}

	return nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	ok, err := afero.Exists(l.fs, l.resolve(path))
	if err != nil {
		return false, fmt.Errorf("failed to check existence: %w", err)
	}
	return ok, nil
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := l.resolve(path)

	info, err := l.fs.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	fi, err := l.fileInfo(fullPath, info)
	if err != nil {
		return nil, err
	}
	return &fi, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	if err := l.fs.MkdirAll(l.resolve(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}
