package models

import (
	"time"
)

// RunSummary is the immutable result of a run
type RunSummary struct {
	// Operation details
	RunID      string
	SourcePath string
	DestPath   string
	Strategy   ComparisonMethod
	VerifyOnly bool
	Overwrite  bool

	// Timing
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration

	// Counts holds the global outcome counters
	Counts Counts

	// Directories holds per-directory outcome counters keyed by slash-separated relative path
	Directories map[string]Counts

	// Directory creation
	DirsScanned int
	DirsCreated int
	DirsFailed  []string

	// ScanErrors lists source entries the walk could not read
	ScanErrors []string

	// Transfer
	FilesCopied   int
	FilesReplaced int
	BytesCopied   int64

	// Output logs
	MainLog     string
	DiffLog     string
	CopyFailLog string
	Manifests   []string

	// Cancelled is true when the run stopped before every file was processed
	Cancelled bool
}

// RunStatus represents the overall result
type RunStatus string

const (
	// StatusClean indicates every file verified as Same
	StatusClean RunStatus = "clean"
	// StatusAttention indicates some files differ, are missing, failed to copy
	// or could not be read from the source
	StatusAttention RunStatus = "attention"
	// StatusCancelled indicates the run was interrupted
	StatusCancelled RunStatus = "cancelled"
)

// Status derives the overall status from the counters
func (s *RunSummary) Status() RunStatus {
	if s.Cancelled {
		return StatusCancelled
	}
	if s.Counts.Clean() && len(s.ScanErrors) == 0 {
		return StatusClean
	}
	return StatusAttention
}
