package compare

import (
	"context"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"sync"

	"github.com/sdejongh/mediasync/pkg/storage"
)

const minBufferSize = 4096

func normalizeBufferSize(size int) int {
	if size < minBufferSize {
		return minBufferSize
	}
	return size
}

func newBufferPool(size int) *sync.Pool {
	size = normalizeBufferSize(size)
	return &sync.Pool{
		New: func() interface{} {
			buf := make([]byte, size)
			return &buf
		},
	}
}

// digester streams files through a hash with pooled buffers
type digester struct {
	newHash    func() hash.Hash
	bufferPool *sync.Pool
}

// digest hashes the file at path. limit > 0 hashes only the first limit bytes.
func (d *digester) digest(ctx context.Context, backend storage.Backend, path string, limit int64) (string, error) {
	reader, err := backend.Read(ctx, path)
	if err != nil {
		return "", fmt.Errorf("failed to open file: %w", err)
	}
	defer reader.Close()

	var src io.Reader = reader
	if limit > 0 {
		src = io.LimitReader(reader, limit)
	}

	bufPtr := d.bufferPool.Get().(*[]byte)
	defer d.bufferPool.Put(bufPtr)

	hasher := d.newHash()
	if _, err := io.CopyBuffer(hasher, ctxReader{ctx: ctx, r: src}, *bufPtr); err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// digestPair hashes the same path on both backends in parallel
func (d *digester) digestPair(ctx context.Context, source, dest storage.Backend, path string, limit int64) (string, string, error) {
	var sourceHash, destHash string
	var sourceErr, destErr error
	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		sourceHash, sourceErr = d.digest(ctx, source, path, limit)
	}()
	go func() {
		defer wg.Done()
		destHash, destErr = d.digest(ctx, dest, path, limit)
	}()
	wg.Wait()

	if sourceErr != nil {
		return "", "", fmt.Errorf("source: %w", sourceErr)
	}
	if destErr != nil {
		return "", "", fmt.Errorf("destination: %w", destErr)
	}
	return sourceHash, destHash, nil
}

type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
