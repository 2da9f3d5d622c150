package models

import (
	"path/filepath"
	"sort"
	"sync"
)

// Counts is a snapshot of outcome counters for a directory or a whole run
type Counts struct {
	Seen       int `json:"seen"`
	Same       int `json:"same"`
	Different  int `json:"different"`
	Missing    int `json:"missing"`
	CopyFailed int `json:"copy_failed"`
}

// Add accounts one outcome
func (c *Counts) Add(o Outcome) {
	c.Seen++
	switch o {
	case OutcomeSame:
		c.Same++
	case OutcomeDifferent:
		c.Different++
	case OutcomeMissing:
		c.Missing++
	case OutcomeCopyFailed:
		c.CopyFailed++
	}
}

// Balanced reports whether every seen file has exactly one outcome
func (c Counts) Balanced() bool {
	return c.Same+c.Different+c.Missing+c.CopyFailed == c.Seen
}

// Clean reports whether every seen file verified as Same
func (c Counts) Clean() bool {
	return c.Seen == c.Same
}

// DirOf returns the slash-separated directory of a relative path, "." for the root
func DirOf(relativePath string) string {
	return filepath.ToSlash(filepath.Dir(relativePath))
}

type dirState struct {
	expected int
	counts   Counts
}

// DirProgress is returned by RunCounters.Record
type DirProgress struct {
	// Processed is the number of files recorded so far across the run
	Processed int
	// Dir is the directory the recorded file belongs to
	Dir string
	// DirDone is true when this record completed the directory
	DirDone bool
	// DirCounts holds the directory counters at the time of the record
	DirCounts Counts
}

// RunCounters tracks per-directory and global counters for a run.
// It is safe for concurrent use.
type RunCounters struct {
	mu    sync.Mutex
	total Counts
	dirs  map[string]*dirState
}

// NewRunCounters creates empty counters
func NewRunCounters() *RunCounters {
	return &RunCounters{dirs: make(map[string]*dirState)}
}

// Expect registers one pending file under dir
func (r *RunCounters) Expect(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.state(dir).expected++
}

// Record accounts an outcome for a file under dir
func (r *RunCounters) Record(dir string, o Outcome) DirProgress {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.total.Add(o)
	st := r.state(dir)
	st.counts.Add(o)

	return DirProgress{
		Processed: r.total.Seen,
		Dir:       dir,
		DirDone:   st.expected > 0 && st.counts.Seen == st.expected,
		DirCounts: st.counts,
	}
}

// Total returns the global counters
func (r *RunCounters) Total() Counts {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

// Directories returns a copy of the per-directory counters
func (r *RunCounters) Directories() map[string]Counts {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Counts, len(r.dirs))
	for dir, st := range r.dirs {
		out[dir] = st.counts
	}
	return out
}

// SortedDirs returns the directory keys in lexical order
func SortedDirs(dirs map[string]Counts) []string {
	keys := make([]string, 0, len(dirs))
	for k := range dirs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (r *RunCounters) state(dir string) *dirState {
	st, ok := r.dirs[dir]
	if !ok {
		st = &dirState{}
		r.dirs[dir] = st
	}
	return st
}
