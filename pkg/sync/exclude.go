package sync

import (
	"path/filepath"
	"strings"
)

// excludeMatcher decides which source entries a run ignores.
// Patterns support:
//   - basename globs: *.tmp, Thumbs.db
//   - directory patterns: .git/, @eaDir/
//   - path globs: cache/*
//   - any-depth patterns: **/.thumbnails
type excludeMatcher struct {
	patterns []string
}

func newExcludeMatcher(patterns []string) *excludeMatcher {
	m := &excludeMatcher{}
	for _, p := range patterns {
		p = strings.TrimSpace(filepath.ToSlash(p))
		if p != "" {
			m.patterns = append(m.patterns, p)
		}
	}
	return m
}

// empty reports whether nothing is excluded
func (m *excludeMatcher) empty() bool {
	return len(m.patterns) == 0
}

// match reports whether an entry is excluded. Directory patterns only
// match directory components, so "cache/" never excludes a file named cache.
func (m *excludeMatcher) match(relativePath string, isDir bool) bool {
	if m.empty() || relativePath == "." {
		return false
	}
	path := filepath.ToSlash(relativePath)

	dirs := strings.Split(path, "/")
	if !isDir {
		dirs = dirs[:len(dirs)-1]
	}

	for _, pattern := range m.patterns {
		if dir, ok := strings.CutSuffix(pattern, "/"); ok {
			for _, part := range dirs {
				if matchGlob(part, dir) {
					return true
				}
			}
			continue
		}
		if matchPattern(path, pattern) {
			return true
		}
	}
	return false
}

func matchPattern(path, pattern string) bool {
	base := filepath.Base(path)

	// **/pattern matches at any depth
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok {
		if matchGlob(base, rest) || path == rest || strings.HasSuffix(path, "/"+rest) {
			return true
		}
		matched, _ := filepath.Match(rest, path)
		return matched
	}

	if strings.Contains(pattern, "/") {
		matched, _ := filepath.Match(pattern, path)
		return matched
	}

	return matchGlob(base, pattern)
}

// matchGlob performs glob matching on a single path component
func matchGlob(name, pattern string) bool {
	matched, _ := filepath.Match(pattern, name)
	return matched
}
