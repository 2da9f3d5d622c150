package models

import (
	"fmt"
	"strings"
	"time"
)

// ComparisonMethod selects the verification strategy for a run
type ComparisonMethod string

const (
	// CompareByteSize compares file sizes only
	CompareByteSize ComparisonMethod = "size"
	// CompareContentDiff compares byte-by-byte
	CompareContentDiff ComparisonMethod = "diff"
	// CompareHashManifest compares whole-tree MD5 manifests
	CompareHashManifest ComparisonMethod = "manifest"
	// CompareSHA256 compares per-file SHA-256 checksums
	CompareSHA256 ComparisonMethod = "sha256"
)

// ComparisonMethods lists the supported methods in display order
var ComparisonMethods = []ComparisonMethod{
	CompareByteSize,
	CompareContentDiff,
	CompareHashManifest,
	CompareSHA256,
}

// ParseComparisonMethod resolves a method name or one of its aliases
func ParseComparisonMethod(s string) (ComparisonMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "size", "bytesize":
		return CompareByteSize, nil
	case "diff", "content", "binary":
		return CompareContentDiff, nil
	case "manifest", "hashdeep", "md5":
		return CompareHashManifest, nil
	case "sha256", "checksum", "hash":
		return CompareSHA256, nil
	}
	return "", &ValidationError{
		Field:   "comparison",
		Message: fmt.Sprintf("unknown method %q (valid: size, diff, manifest, sha256)", s),
	}
}

// SyncOperation represents a sync-verify run configuration
type SyncOperation struct {
	ID               string
	SourcePath       string
	DestPath         string
	ComparisonMethod ComparisonMethod

	// VerifyOnly disables directory creation and copies; absent files become Missing
	VerifyOnly bool
	// Overwrite replaces existing files that verify as Different
	Overwrite bool

	ExcludePatterns []string

	// ProgressInterval is the number of processed files between progress notifications
	ProgressInterval   int
	NotifyPerDirectory bool
	NotifyTimeout      time.Duration

	// WriteManifest persists manifests next to the run logs (manifest strategy only)
	WriteManifest bool

	MaxWorkers     int
	BandwidthLimit int64 // bytes per second, 0 = unlimited
	BufferSize     int

	// LogDir is where the run logs are created
	LogDir    string
	CreatedAt time.Time
}

// Validate checks if the operation configuration is valid
func (op *SyncOperation) Validate() error {
	if op.SourcePath == "" {
		return &ValidationError{Field: "SourcePath", Message: "source path is required"}
	}
	if op.DestPath == "" {
		return &ValidationError{Field: "DestPath", Message: "destination path is required"}
	}
	if _, err := ParseComparisonMethod(string(op.ComparisonMethod)); err != nil {
		return err
	}
	if op.ProgressInterval < 1 {
		return &ValidationError{Field: "ProgressInterval", Message: "progress interval must be a positive number of files"}
	}
	if op.MaxWorkers < 1 {
		return &ValidationError{Field: "MaxWorkers", Message: "max workers must be at least 1"}
	}
	if op.BufferSize < 1024 {
		return &ValidationError{Field: "BufferSize", Message: "buffer size must be at least 1024 bytes"}
	}
	if op.BandwidthLimit < 0 {
		return &ValidationError{Field: "BandwidthLimit", Message: "bandwidth limit cannot be negative"}
	}
	if op.LogDir == "" {
		return &ValidationError{Field: "LogDir", Message: "log directory is required"}
	}
	if op.VerifyOnly && op.Overwrite {
		return &ValidationError{Field: "Overwrite", Message: "overwrite cannot be combined with verify-only"}
	}
	return nil
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}
