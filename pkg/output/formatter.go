package output

import (
	"io"

	"github.com/sdejongh/mediasync/pkg/models"
)

// Progress update types
const (
	UpdateFileStart    = "file_start"
	UpdateFileComplete = "file_complete"
	UpdateDirComplete  = "dir_complete"
)

// ProgressUpdate represents a progress notification during a run
type ProgressUpdate struct {
	Type        string // one of the Update* constants
	FilePath    string // relative file path, or directory for UpdateDirComplete
	Outcome     models.Outcome
	Copied      bool // the file was written to the destination
	TotalBytes  int64
	CurrentFile int // files processed so far, including this one
	TotalFiles  int
	DirCounts   models.Counts // set for UpdateDirComplete
	Error       error
}

// Formatter renders a run for the terminal or for scripts.
// Implementations include human-readable, progress bar, and JSON formatters.
type Formatter interface {
	// Start initializes the formatter for a new run
	// maxWorkers indicates the number of parallel workers for display purposes
	Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error

	// Progress reports progress during the run
	Progress(update ProgressUpdate) error

	// Complete finalizes output and displays the summary
	Complete(summary *models.RunSummary) error

	// Error reports a fatal error
	Error(err error) error

	// Name returns the formatter name
	Name() string
}
