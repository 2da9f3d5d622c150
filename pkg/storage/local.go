package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
)

// tempPrefix marks in-flight copies; a crashed run may leave these behind
const tempPrefix = ".mediasync-tmp-"

// Local is a filesystem-based storage backend
type Local struct {
	rootPath string
}

// NewLocal creates a new local filesystem backend
func NewLocal(rootPath string) (*Local, error) {
	absPath, err := filepath.Abs(rootPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	info, err := os.Stat(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to access path: %w", err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", absPath)
	}

	// WalkDir does not descend into a symlinked root, so resolve it here
	resolved, err := filepath.EvalSymlinks(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve path: %w", err)
	}

	return &Local{rootPath: resolved}, nil
}

// Root returns the absolute root path
func (l *Local) Root() string {
	return l.rootPath
}

// Walk lazily yields every entry under path
func (l *Local) Walk(ctx context.Context, path string) iter.Seq2[FileInfo, error] {
	return func(yield func(FileInfo, error) bool) {
		fullPath := filepath.Join(l.rootPath, path)

		filepath.WalkDir(fullPath, func(p string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				yield(FileInfo{Path: p}, err)
				return filepath.SkipAll
			}

			relPath, err := filepath.Rel(l.rootPath, p)
			if err != nil {
				relPath = p
			}

			if walkErr != nil {
				if !yield(FileInfo{Path: p, RelativePath: relPath}, walkErr) {
					return filepath.SkipAll
				}
				if d != nil && d.IsDir() && p != fullPath {
					return filepath.SkipDir
				}
				return nil
			}

			info, err := d.Info()
			if err != nil {
				if !yield(FileInfo{Path: p, RelativePath: relPath}, err) {
					return filepath.SkipAll
				}
				return nil
			}

			if !yield(toFileInfo(p, relPath, info), nil) {
				return filepath.SkipAll
			}
			return nil
		})
	}
}

// List returns all files in the directory recursively
func (l *Local) List(ctx context.Context, path string) ([]FileInfo, error) {
	var files []FileInfo
	for info, err := range l.Walk(ctx, path) {
		if err != nil {
			return nil, fmt.Errorf("failed to list files: %w", err)
		}
		files = append(files, info)
	}
	return files, nil
}

// Read opens a file for reading
func (l *Local) Read(ctx context.Context, path string) (io.ReadCloser, error) {
	fullPath := filepath.Join(l.rootPath, path)

	file, err := os.Open(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	return file, nil
}

// Write creates a new file and refuses to clobber an existing one
func (l *Local) Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := filepath.Join(l.rootPath, path)

	tmpPath, err := l.writeTemp(ctx, fullPath, reader, size, metadata)
	if err != nil {
		return err
	}
	defer os.Remove(tmpPath)

	// A hard link publishes the file only if the name is still free.
	// Filesystems without hard links (FAT, exFAT) fall back to a checked rename.
	if err := os.Link(tmpPath, fullPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("failed to create file: %w", err)
		}
		if _, statErr := os.Lstat(fullPath); statErr == nil {
			return fmt.Errorf("failed to create file: %w", fs.ErrExist)
		}
		if err := os.Rename(tmpPath, fullPath); err != nil {
			return fmt.Errorf("failed to publish file: %w", err)
		}
	}

	return nil
}

// Replace creates or overwrites a file
func (l *Local) Replace(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error {
	fullPath := filepath.Join(l.rootPath, path)

	tmpPath, err := l.writeTemp(ctx, fullPath, reader, size, metadata)
	if err != nil {
		return err
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("failed to publish file: %w", err)
	}

	return nil
}

// writeTemp streams reader into a temp file beside fullPath and returns its path
func (l *Local) writeTemp(ctx context.Context, fullPath string, reader io.Reader, size int64, metadata *FileInfo) (string, error) {
	// Directories are created up front by the caller; only the leaf is ensured here
	dir := filepath.Dir(fullPath)
	if err := os.Mkdir(dir, 0755); err != nil && !errors.Is(err, fs.ErrExist) {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	file, err := os.CreateTemp(dir, tempPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	tmpPath := file.Name()

	fail := func(err error) (string, error) {
		file.Close()
		os.Remove(tmpPath)
		return "", err
	}

	written, err := io.Copy(file, contextReader{ctx: ctx, r: reader})
	if err != nil {
		return fail(fmt.Errorf("failed to write file: %w", err))
	}

	if written != size {
		return fail(fmt.Errorf("incomplete write: expected %d bytes, wrote %d", size, written))
	}

	if err := file.Sync(); err != nil {
		return fail(fmt.Errorf("failed to flush file: %w", err))
	}

	if err := file.Close(); err != nil {
		os.Remove(tmpPath)
		return "", fmt.Errorf("failed to close file: %w", err)
	}

	// Preserve metadata if provided
	if metadata != nil {
		if metadata.Permissions != 0 {
			if err := os.Chmod(tmpPath, os.FileMode(metadata.Permissions)); err != nil {
				os.Remove(tmpPath)
				return "", fmt.Errorf("failed to set permissions: %w", err)
			}
		}

		if !metadata.ModTime.IsZero() {
			if err := os.Chtimes(tmpPath, metadata.ModTime, metadata.ModTime); err != nil {
				os.Remove(tmpPath)
				return "", fmt.Errorf("failed to set modification time: %w", err)
			}
		}
	}

	return tmpPath, nil
}

// Exists checks if a file or directory exists
func (l *Local) Exists(ctx context.Context, path string) (bool, error) {
	fullPath := filepath.Join(l.rootPath, path)

	_, err := os.Stat(fullPath)
	if err == nil {
		return true, nil
	}
	if os.IsNotExist(err) {
		return false, nil
	}
	return false, fmt.Errorf("failed to check existence: %w", err)
}

// Stat returns file metadata
func (l *Local) Stat(ctx context.Context, path string) (*FileInfo, error) {
	fullPath := filepath.Join(l.rootPath, path)

	info, err := os.Stat(fullPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	relPath, err := filepath.Rel(l.rootPath, fullPath)
	if err != nil {
		return nil, err
	}

	fi := toFileInfo(fullPath, relPath, info)
	return &fi, nil
}

// MkdirAll creates a directory and all necessary parents
func (l *Local) MkdirAll(ctx context.Context, path string) error {
	fullPath := filepath.Join(l.rootPath, path)

	err := os.MkdirAll(fullPath, 0755)
	if err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

// Close releases resources (no-op for local filesystem)
func (l *Local) Close() error {
	return nil
}

// IsTempFile reports whether name is an in-flight copy left by the backend
func IsTempFile(name string) bool {
	base := filepath.Base(name)
	return len(base) > len(tempPrefix) && base[:len(tempPrefix)] == tempPrefix
}

func toFileInfo(p, relPath string, info fs.FileInfo) FileInfo {
	return FileInfo{
		Path:         p,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
		IsRegular:    info.Mode().IsRegular(),
		Permissions:  uint32(info.Mode().Perm()),
		RelativePath: relPath,
	}
}

// contextReader stops a copy once ctx is done
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
