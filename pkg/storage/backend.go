package storage

import (
	"context"
	"io"
	"iter"
	"time"
)

// FileInfo represents metadata about a file
type FileInfo struct {
	Path         string
	Size         int64
	ModTime      time.Time
	IsDir        bool
	IsRegular    bool
	Permissions  uint32
	RelativePath string
}

// Backend defines the interface for storage operations.
// All paths are relative to the backend root.
type Backend interface {
	// Root returns the absolute root path of the backend
	Root() string

	// Walk lazily yields every entry under path, the root itself included.
	// The sequence is single-pass; a walk error for an entry is yielded
	// alongside it and the entry's subtree is skipped.
	Walk(ctx context.Context, path string) iter.Seq2[FileInfo, error]

	// List returns all entries under path recursively
	List(ctx context.Context, path string) ([]FileInfo, error)

	// Read opens a file for reading
	Read(ctx context.Context, path string) (io.ReadCloser, error)

	// Write creates a new file with the given content. It fails with an
	// error matching fs.ErrExist when the file is already present.
	// If metadata is provided, attempts to preserve timestamps and permissions
	Write(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Replace creates or overwrites a file with the given content
	Replace(ctx context.Context, path string, reader io.Reader, size int64, metadata *FileInfo) error

	// Exists checks if a file or directory exists
	Exists(ctx context.Context, path string) (bool, error)

	// Stat returns file metadata
	Stat(ctx context.Context, path string) (*FileInfo, error)

	// MkdirAll creates a directory and all necessary parents
	MkdirAll(ctx context.Context, path string) error

	// Close releases any resources held by the backend
	Close() error
}
