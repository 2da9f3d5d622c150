package compare

import (
	"context"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/storage"
)

// SizeComparator compares files by size only.
// Same-size corruption goes undetected.
type SizeComparator struct{}

// NewSizeComparator creates a new size comparator
func NewSizeComparator() *SizeComparator {
	return &SizeComparator{}
}

// Compare compares two files by size
func (c *SizeComparator) Compare(ctx context.Context, source, dest storage.Backend, relPath string) (*Comparison, error) {
	sourceInfo, destInfo, missing, err := statPair(ctx, source, dest, relPath)
	if err != nil || missing != nil {
		return missing, err
	}

	if sourceInfo.Size != destInfo.Size {
		return different(relPath, fmt.Sprintf("size mismatch: source=%d, dest=%d", sourceInfo.Size, destInfo.Size)), nil
	}

	return same(relPath, "sizes match"), nil
}

// Name returns the comparator name
func (c *SizeComparator) Name() string {
	return "size"
}
