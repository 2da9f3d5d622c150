package models

// Outcome is the per-file classification produced by a run
type Outcome string

const (
	// OutcomeSame indicates source and destination match under the selected strategy
	OutcomeSame Outcome = "Same"
	// OutcomeDifferent indicates the destination exists but does not match the source
	OutcomeDifferent Outcome = "Different"
	// OutcomeMissing indicates the destination file is absent and no copy was attempted
	OutcomeMissing Outcome = "Missing"
	// OutcomeCopyFailed indicates the copy into the destination failed
	OutcomeCopyFailed Outcome = "CopyFailed"
)

// Valid reports whether o is one of the known outcomes
func (o Outcome) Valid() bool {
	switch o {
	case OutcomeSame, OutcomeDifferent, OutcomeMissing, OutcomeCopyFailed:
		return true
	}
	return false
}

// FileRecord is one file under consideration during a run
type FileRecord struct {
	// RelativePath is the path relative to both roots
	RelativePath string

	// SourcePath is the absolute path in the source tree
	SourcePath string

	// DestPath is the absolute path in the destination tree
	DestPath string

	// Size is the source size in bytes at scan time
	Size int64
}

// Dir returns the directory portion of the relative path ("." for the root)
func (r FileRecord) Dir() string {
	return DirOf(r.RelativePath)
}
