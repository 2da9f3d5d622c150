package compare

import (
	"context"
	"crypto/md5"
	"fmt"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sdejongh/mediasync/pkg/storage"
)

// ManifestEntry is one line of a content manifest
type ManifestEntry struct {
	Path   string
	Digest string
}

// String formats the entry the way md5sum does
func (e ManifestEntry) String() string {
	return e.Digest + "  " + filepath.ToSlash(e.Path)
}

// manifest maps relative paths to hex digests
type manifest struct {
	mu      sync.RWMutex
	entries map[string]string
}

func newManifest() *manifest {
	return &manifest{entries: make(map[string]string)}
}

func (m *manifest) get(path string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	d, ok := m.entries[path]
	return d, ok
}

func (m *manifest) set(path, digest string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[path] = digest
}

func (m *manifest) drop(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, path)
}

func (m *manifest) sorted() []ManifestEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]ManifestEntry, 0, len(m.entries))
	for p, d := range m.entries {
		out = append(out, ManifestEntry{Path: p, Digest: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

// ManifestComparator compares files through MD5 manifests of both trees.
// Prepare hashes the whole source tree and every destination file that
// already exists; Compare is then a lookup. Destination files written during
// the run are invalidated and re-hashed on their next Compare.
type ManifestComparator struct {
	digester
	source *manifest
	dest   *manifest
}

// NewManifestComparator creates a new manifest comparator
func NewManifestComparator(bufferSize int) *ManifestComparator {
	return &ManifestComparator{
		digester: digester{
			newHash:    md5.New,
			bufferPool: newBufferPool(bufferSize),
		},
		source: newManifest(),
		dest:   newManifest(),
	}
}

// Prepare materialises the source manifest and the pre-existing destination manifest.
// Files that cannot be hashed here are retried, and reported, by Compare.
func (c *ManifestComparator) Prepare(ctx context.Context, source, dest storage.Backend, relPaths []string) error {
	for _, p := range relPaths {
		if err := ctx.Err(); err != nil {
			return err
		}

		if d, err := c.digest(ctx, source, p, 0); err == nil {
			c.source.set(p, d)
		}

		exists, err := dest.Exists(ctx, p)
		if err != nil || !exists {
			continue
		}
		if d, err := c.digest(ctx, dest, p, 0); err == nil {
			c.dest.set(p, d)
		}
	}
	return nil
}

// Invalidate forgets the destination digest for relPath
func (c *ManifestComparator) Invalidate(relPath string) {
	c.dest.drop(relPath)
}

// Compare looks both digests up, hashing on demand when an entry is absent
func (c *ManifestComparator) Compare(ctx context.Context, source, dest storage.Backend, relPath string) (*Comparison, error) {
	exists, err := dest.Exists(ctx, relPath)
	if err != nil {
		return nil, fmt.Errorf("failed to check destination existence: %w", err)
	}
	if !exists {
		c.dest.drop(relPath)
		return different(relPath, "destination file does not exist"), nil
	}

	sourceDigest, err := c.lookup(ctx, c.source, source, relPath)
	if err != nil {
		return nil, fmt.Errorf("source manifest: %w", err)
	}
	destDigest, err := c.lookup(ctx, c.dest, dest, relPath)
	if err != nil {
		return nil, fmt.Errorf("destination manifest: %w", err)
	}

	if sourceDigest != destDigest {
		return different(relPath, fmt.Sprintf("md5 mismatch: source=%s, dest=%s", sourceDigest, destDigest)), nil
	}
	return same(relPath, "md5 "+sourceDigest), nil
}

func (c *ManifestComparator) lookup(ctx context.Context, m *manifest, backend storage.Backend, relPath string) (string, error) {
	if d, ok := m.get(relPath); ok {
		return d, nil
	}
	d, err := c.digest(ctx, backend, relPath, 0)
	if err != nil {
		return "", err
	}
	m.set(relPath, d)
	return d, nil
}

// Manifests returns both manifests sorted by path
func (c *ManifestComparator) Manifests() (source, dest []ManifestEntry) {
	return c.source.sorted(), c.dest.sorted()
}

// Name returns the comparator name
func (c *ManifestComparator) Name() string {
	return "manifest"
}
