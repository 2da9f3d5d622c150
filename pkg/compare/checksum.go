package compare

import (
	"context"
	"crypto/sha256"
	"fmt"

	"github.com/sdejongh/mediasync/pkg/storage"
)

// Partial hashing configuration
const (
	// Minimum file size to enable partial hashing (1MB)
	partialHashThreshold = 1 * 1024 * 1024
	// Size of partial hash to compute (256KB)
	partialHashSize = 256 * 1024
)

// ChecksumComparator compares files using SHA-256
type ChecksumComparator struct {
	digester
	enablePartialHash bool
}

// NewChecksumComparator creates a new SHA-256 comparator
func NewChecksumComparator(bufferSize int) *ChecksumComparator {
	return &ChecksumComparator{
		digester: digester{
			newHash:    sha256.New,
			bufferPool: newBufferPool(bufferSize),
		},
		enablePartialHash: true,
	}
}

// SetPartialHashEnabled enables or disables the leading-block early exit
func (c *ChecksumComparator) SetPartialHashEnabled(enabled bool) {
	c.enablePartialHash = enabled
}

// Compare compares two files using SHA-256
func (c *ChecksumComparator) Compare(ctx context.Context, source, dest storage.Backend, relPath string) (*Comparison, error) {
	sourceInfo, destInfo, missing, err := statPair(ctx, source, dest, relPath)
	if err != nil || missing != nil {
		return missing, err
	}

	if sourceInfo.Size != destInfo.Size {
		return different(relPath, fmt.Sprintf("size mismatch: source=%d, dest=%d", sourceInfo.Size, destInfo.Size)), nil
	}

	// Large files: hash the leading block first for quick rejection
	if c.enablePartialHash && sourceInfo.Size >= partialHashThreshold {
		sourcePartial, destPartial, err := c.digestPair(ctx, source, dest, relPath, partialHashSize)
		if err != nil {
			return nil, fmt.Errorf("failed to compute partial hash: %w", err)
		}
		if sourcePartial != destPartial {
			return different(relPath, "sha256 of leading block differs"), nil
		}
	}

	sourceHash, destHash, err := c.digestPair(ctx, source, dest, relPath, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to compute hash: %w", err)
	}

	if sourceHash != destHash {
		return different(relPath, fmt.Sprintf("sha256 mismatch: source=%s, dest=%s", sourceHash, destHash)), nil
	}

	return same(relPath, "sha256 "+sourceHash), nil
}

// Name returns the comparator name
func (c *ChecksumComparator) Name() string {
	return "sha256"
}
