package ratelimit

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewLimiter tests the Limiter constructor
func TestNewLimiter(t *testing.T) {
	t.Run("ValidBytesPerSecond", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		require.NotNil(t, limiter)
		assert.Equal(t, int64(1024*1024), limiter.Rate())
	})

	t.Run("Unlimited", func(t *testing.T) {
		assert.Nil(t, NewLimiter(0))
		assert.Nil(t, NewLimiter(-100))

		var none *Limiter
		assert.Equal(t, int64(0), none.Rate())
	})

	t.Run("SmallRateKeepsMinimumBucket", func(t *testing.T) {
		limiter := NewLimiter(1000)
		require.NotNil(t, limiter)
		assert.Equal(t, int64(65536), limiter.bucketSize)
	})

	t.Run("LargeRateBucketIsOneSecond", func(t *testing.T) {
		limiter := NewLimiter(100 * 1024 * 1024)
		require.NotNil(t, limiter)
		assert.Equal(t, int64(100*1024*1024), limiter.bucketSize)
	})
}

// TestParseBandwidth tests human-readable bandwidth parsing
func TestParseBandwidth(t *testing.T) {
	tests := []struct {
		input   string
		want    int64
		wantErr bool
	}{
		{"", 0, false},
		{"0", 0, false},
		{"1024", 1024, false},
		{"10M", 10 * 1000 * 1000, false},
		{"10MB", 10 * 1000 * 1000, false},
		{"512KiB", 512 * 1024, false},
		{"1.5GB", 1500 * 1000 * 1000, false},
		{"10MB/s", 10 * 1000 * 1000, false},
		{" 2MiB ", 2 * 1024 * 1024, false},
		{"fast", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseBandwidth(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// TestNewReader tests the Reader constructor
func TestNewReader(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		reader := NewReader(context.Background(), strings.NewReader("test content"), NewLimiter(1024*1024))
		_, ok := reader.(*Reader)
		assert.True(t, ok)
	})

	t.Run("NilLimiter", func(t *testing.T) {
		base := strings.NewReader("test content")
		assert.Same(t, base, NewReader(context.Background(), base, nil))
	})
}

// TestReaderRead tests the Read method
func TestReaderRead(t *testing.T) {
	t.Run("ReadsEverything", func(t *testing.T) {
		content := []byte("0123456789abcdef")
		reader := NewReader(context.Background(), bytes.NewReader(content), NewLimiter(1024*1024))

		got, err := io.ReadAll(reader)
		require.NoError(t, err)
		assert.Equal(t, content, got)
	})

	t.Run("ContextCancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		reader := NewReader(ctx, bytes.NewReader(make([]byte, 1024)), NewLimiter(1024*1024))
		_, err := reader.Read(make([]byte, 100))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("CancelWhileWaiting", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = 0
		limiter.lastUpdate = time.Now()

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		reader := NewReader(ctx, bytes.NewReader(make([]byte, 65536)), limiter)
		start := time.Now()
		_, err := reader.Read(make([]byte, 65536))
		assert.ErrorIs(t, err, context.DeadlineExceeded)
		assert.Less(t, time.Since(start), 5*time.Second)
	})
}

// TestReadCloser tests the ReadCloser wrapper
func TestReadCloser(t *testing.T) {
	t.Run("WithLimiter", func(t *testing.T) {
		rc := NewReadCloser(context.Background(), io.NopCloser(strings.NewReader("test content")), NewLimiter(1024*1024))
		_, ok := rc.(*ReadCloser)
		require.True(t, ok)

		got, err := io.ReadAll(rc)
		require.NoError(t, err)
		assert.Equal(t, "test content", string(got))
		assert.NoError(t, rc.Close())
	})

	t.Run("NilLimiter", func(t *testing.T) {
		base := io.NopCloser(strings.NewReader("test content"))
		assert.Equal(t, base, NewReadCloser(context.Background(), base, nil))
	})
}

// TestRateLimiting tests that an empty bucket slows reads down
func TestRateLimiting(t *testing.T) {
	limiter := NewLimiter(100000) // bucket 100000 bytes
	limiter.tokens = 0
	limiter.lastUpdate = time.Now()

	reader := NewReader(context.Background(), bytes.NewReader(make([]byte, 5000)), limiter)

	start := time.Now()
	_, err := io.ReadAll(reader)
	require.NoError(t, err)

	// 5000 bytes at 100000 B/s need about 50ms
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

// TestTokenBucket tests the token bucket algorithm
func TestTokenBucket(t *testing.T) {
	t.Run("InitialTokens", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		assert.Equal(t, limiter.bucketSize, limiter.tokens)
	})

	t.Run("ConsumeTokens", func(t *testing.T) {
		limiter := NewLimiter(1024 * 1024)
		initial := limiter.tokens
		limiter.consumeTokens(1000)
		assert.Equal(t, initial-1000, limiter.tokens)
	})

	t.Run("ConsumeMoreThanAvailable", func(t *testing.T) {
		limiter := NewLimiter(1024)
		limiter.tokens = 100
		limiter.consumeTokens(200)
		assert.Equal(t, int64(0), limiter.tokens)
	})

	t.Run("RefillTokens", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = 0
		limiter.lastUpdate = time.Now().Add(-100 * time.Millisecond)

		limiter.refillTokens()
		assert.InDelta(t, 100, limiter.tokens, 50)
	})

	t.Run("RefillCapped", func(t *testing.T) {
		limiter := NewLimiter(1000)
		limiter.tokens = limiter.bucketSize - 10
		limiter.lastUpdate = time.Now().Add(-1 * time.Second)

		limiter.refillTokens()
		assert.Equal(t, limiter.bucketSize, limiter.tokens)
	})
}

// BenchmarkRateLimitedRead benchmarks rate-limited reading
func BenchmarkRateLimitedRead(b *testing.B) {
	content := make([]byte, 1024*1024)
	limiter := NewLimiter(100 * 1024 * 1024)
	ctx := context.Background()
	buf := make([]byte, 64*1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		reader := NewReader(ctx, bytes.NewReader(content), limiter)
		if _, err := io.CopyBuffer(io.Discard, reader, buf); err != nil {
			b.Fatalf("copy error = %v", err)
		}
	}
}
