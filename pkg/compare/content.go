package compare

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/sdejongh/mediasync/pkg/storage"
)

// ContentComparator compares files byte-by-byte.
// It stops at the first differing block and reports the exact offset.
type ContentComparator struct {
	bufferSize int
	bufferPool *sync.Pool
}

// NewContentComparator creates a new byte-by-byte comparator
func NewContentComparator(bufferSize int) *ContentComparator {
	return &ContentComparator{
		bufferSize: normalizeBufferSize(bufferSize),
		bufferPool: newBufferPool(bufferSize),
	}
}

// Compare compares two files byte-by-byte
func (c *ContentComparator) Compare(ctx context.Context, source, dest storage.Backend, relPath string) (*Comparison, error) {
	sourceInfo, destInfo, missing, err := statPair(ctx, source, dest, relPath)
	if err != nil || missing != nil {
		return missing, err
	}

	// Quick check: if sizes differ, files are different
	if sourceInfo.Size != destInfo.Size {
		return different(relPath, fmt.Sprintf("size mismatch: source=%d, dest=%d", sourceInfo.Size, destInfo.Size)), nil
	}

	sourceReader, err := source.Read(ctx, relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file: %w", err)
	}
	defer sourceReader.Close()

	destReader, err := dest.Read(ctx, relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open destination file: %w", err)
	}
	defer destReader.Close()

	sourceBufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(sourceBufPtr)
	sourceBuf := *sourceBufPtr

	destBufPtr := c.bufferPool.Get().(*[]byte)
	defer c.bufferPool.Put(destBufPtr)
	destBuf := *destBufPtr

	var offset int64
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		sourceN, sourceErr := io.ReadFull(sourceReader, sourceBuf)
		destN, destErr := io.ReadFull(destReader, destBuf)

		if sourceErr != nil && !isEOF(sourceErr) {
			return nil, fmt.Errorf("failed to read source: %w", sourceErr)
		}
		if destErr != nil && !isEOF(destErr) {
			return nil, fmt.Errorf("failed to read destination: %w", destErr)
		}

		n := min(sourceN, destN)
		if !bytes.Equal(sourceBuf[:n], destBuf[:n]) {
			for i := 0; i < n; i++ {
				if sourceBuf[i] != destBuf[i] {
					return different(relPath, fmt.Sprintf("content differs at byte offset %d", offset+int64(i))), nil
				}
			}
		}
		offset += int64(n)

		if sourceN != destN {
			// One side grew or shrank after the size check
			return different(relPath, fmt.Sprintf("length differs after byte offset %d", offset)), nil
		}

		if isEOF(sourceErr) || isEOF(destErr) {
			if isEOF(sourceErr) != isEOF(destErr) {
				return different(relPath, fmt.Sprintf("length differs after byte offset %d", offset)), nil
			}
			break
		}
	}

	return same(relPath, fmt.Sprintf("content matches (%d bytes)", offset)), nil
}

// Name returns the comparator name
func (c *ContentComparator) Name() string {
	return "diff"
}

func isEOF(err error) bool {
	return errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF)
}
