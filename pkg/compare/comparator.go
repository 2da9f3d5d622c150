package compare

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// Comparison holds the result of comparing two files
type Comparison struct {
	RelativePath string
	Result       models.Outcome
	Reason       string
}

// Comparator defines the interface for file verification strategies.
// The same relative path is looked up on both backends.
type Comparator interface {
	// Compare compares the file at relPath on both sides.
	// Result is either models.OutcomeSame or models.OutcomeDifferent;
	// an error means the comparison itself could not be completed.
	Compare(ctx context.Context, source, dest storage.Backend, relPath string) (*Comparison, error)

	// Name returns the name of the comparison method
	Name() string
}

// Preparer is implemented by comparators that need a pass over the whole
// tree before the first Compare call
type Preparer interface {
	Prepare(ctx context.Context, source, dest storage.Backend, relPaths []string) error
}

// Invalidator is implemented by comparators that cache destination state.
// The engine calls Invalidate after it writes a destination file.
type Invalidator interface {
	Invalidate(relPath string)
}

// New builds the comparator for a method
func New(method models.ComparisonMethod, bufferSize int) (Comparator, error) {
	switch method {
	case models.CompareByteSize:
		// Fast: sizes only, no content read
		return NewSizeComparator(), nil

	case models.CompareContentDiff:
		// Thorough: byte-by-byte, reports the first differing offset
		return NewContentComparator(bufferSize), nil

	case models.CompareHashManifest:
		// Tree-wide MD5 manifests, hashed once per file
		return NewManifestComparator(bufferSize), nil

	case models.CompareSHA256:
		// Strongest: SHA-256 of every file on both sides
		return NewChecksumComparator(bufferSize), nil
	}
	return nil, fmt.Errorf("unsupported comparison method: %s (use: size, diff, manifest, sha256)", method)
}

func same(relPath, reason string) *Comparison {
	return &Comparison{RelativePath: relPath, Result: models.OutcomeSame, Reason: reason}
}

func different(relPath, reason string) *Comparison {
	return &Comparison{RelativePath: relPath, Result: models.OutcomeDifferent, Reason: reason}
}

// statPair stats both sides; a missing destination is reported as a Different comparison
func statPair(ctx context.Context, source, dest storage.Backend, relPath string) (*storage.FileInfo, *storage.FileInfo, *Comparison, error) {
	sourceInfo, err := source.Stat(ctx, relPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to stat source: %w", err)
	}

	destExists, err := dest.Exists(ctx, relPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to check destination existence: %w", err)
	}
	if !destExists {
		return nil, nil, different(relPath, "destination file does not exist"), nil
	}

	destInfo, err := dest.Stat(ctx, relPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to stat destination: %w", err)
	}

	return sourceInfo, destInfo, nil, nil
}
