package output

import (
	"encoding/json"
	"io"
	"os"
	"time"

	"github.com/sdejongh/mediasync/pkg/models"
)

// JSONFormatter prints a single JSON document at the end of a run
type JSONFormatter struct {
	writer io.Writer
}

// JSONSummary is the document printed by JSONFormatter
type JSONSummary struct {
	RunID       string                   `json:"run_id"`
	Status      string                   `json:"status"`
	Source      string                   `json:"source"`
	Destination string                   `json:"destination"`
	Strategy    string                   `json:"strategy"`
	VerifyOnly  bool                     `json:"verify_only"`
	Overwrite   bool                     `json:"overwrite"`
	StartTime   time.Time                `json:"start_time"`
	EndTime     time.Time                `json:"end_time"`
	Duration    string                   `json:"duration"`
	DurationMs  int64                    `json:"duration_ms"`
	Counts      models.Counts            `json:"counts"`
	Directories map[string]models.Counts `json:"directories,omitempty"`
	Transfer    JSONTransferData         `json:"transfer"`
	DirsFailed  []string                 `json:"dirs_failed,omitempty"`
	ScanErrors  []string                 `json:"scan_errors,omitempty"`
	Logs        JSONLogsData             `json:"logs"`
	Cancelled   bool                     `json:"cancelled,omitempty"`
}

// JSONTransferData represents transfer statistics
type JSONTransferData struct {
	FilesCopied   int   `json:"files_copied"`
	FilesReplaced int   `json:"files_replaced"`
	BytesCopied   int64 `json:"bytes_copied"`
	DirsScanned   int   `json:"dirs_scanned"`
	DirsCreated   int   `json:"dirs_created"`
	AverageSpeed  int64 `json:"average_speed_bytes_per_sec,omitempty"`
}

// JSONLogsData lists the run log files
type JSONLogsData struct {
	Main      string   `json:"main"`
	Diff      string   `json:"diff"`
	CopyFail  string   `json:"copy_fail"`
	Manifests []string `json:"manifests,omitempty"`
}

// NewJSONFormatter creates a new JSON formatter
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Start initializes the formatter
func (f *JSONFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	return nil
}

// Progress is silent to keep the output parseable
func (f *JSONFormatter) Progress(update ProgressUpdate) error {
	return nil
}

// Complete prints the summary document
func (f *JSONFormatter) Complete(s *models.RunSummary) error {
	if f.writer == nil {
		f.writer = os.Stdout
	}

	var avgSpeed int64
	if s.Duration.Seconds() > 0 {
		avgSpeed = int64(float64(s.BytesCopied) / s.Duration.Seconds())
	}

	doc := JSONSummary{
		RunID:       s.RunID,
		Status:      string(s.Status()),
		Source:      s.SourcePath,
		Destination: s.DestPath,
		Strategy:    string(s.Strategy),
		VerifyOnly:  s.VerifyOnly,
		Overwrite:   s.Overwrite,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Duration:    s.Duration.Round(time.Millisecond).String(),
		DurationMs:  s.Duration.Milliseconds(),
		Counts:      s.Counts,
		Directories: s.Directories,
		Transfer: JSONTransferData{
			FilesCopied:   s.FilesCopied,
			FilesReplaced: s.FilesReplaced,
			BytesCopied:   s.BytesCopied,
			DirsScanned:   s.DirsScanned,
			DirsCreated:   s.DirsCreated,
			AverageSpeed:  avgSpeed,
		},
		DirsFailed: s.DirsFailed,
		ScanErrors: s.ScanErrors,
		Logs: JSONLogsData{
			Main:      s.MainLog,
			Diff:      s.DiffLog,
			CopyFail:  s.CopyFailLog,
			Manifests: s.Manifests,
		},
		Cancelled: s.Cancelled,
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(doc)
}

// Error prints a fatal error as its own document; Complete is never reached after it
func (f *JSONFormatter) Error(err error) error {
	w := f.writer
	if w == nil {
		w = os.Stdout
	}
	return json.NewEncoder(w).Encode(map[string]string{"status": "error", "error": err.Error()})
}

// Name returns the formatter name
func (f *JSONFormatter) Name() string {
	return "json"
}
