package sync

import (
	"time"

	"github.com/sdejongh/mediasync/pkg/models"
)

// TaskStatus represents the status of a file task in the pipeline
type TaskStatus string

const (
	// TaskPending indicates the task is waiting to be processed
	TaskPending TaskStatus = "pending"
	// TaskProcessing indicates the task is currently being processed by a worker
	TaskProcessing TaskStatus = "processing"
	// TaskCompleted indicates the task has an outcome
	TaskCompleted TaskStatus = "completed"
)

// TaskAction records what the worker did to the destination
type TaskAction string

const (
	// ActionNone means the destination file was only verified
	ActionNone TaskAction = ""
	// ActionCopied means the file was absent and has been copied
	ActionCopied TaskAction = "copied"
	// ActionReplaced means a differing file was overwritten
	ActionReplaced TaskAction = "replaced"
)

// FileTask is one source file travelling through the pipeline
type FileTask struct {
	models.FileRecord

	// ModTime is the modification time from the source scan
	ModTime time.Time

	// Status tracks the current state of this task
	Status TaskStatus

	// Outcome is set once the task completes
	Outcome models.Outcome

	// Action indicates what was written to the destination
	Action TaskAction

	// Reason is the comparator's explanation, if any
	Reason string

	// Error holds the copy or verification error behind a non-Same outcome
	Error error

	// ProcessingDuration tracks how long the worker spent on this task
	ProcessingDuration time.Duration

	// WorkerID identifies which worker processed this task
	WorkerID int
}

// NewFileTask creates a task for a scanned file
func NewFileTask(record models.FileRecord, modTime time.Time) *FileTask {
	return &FileTask{
		FileRecord: record,
		ModTime:    modTime,
		Status:     TaskPending,
	}
}

// MarkProcessing marks the task as being processed by a worker
func (t *FileTask) MarkProcessing(workerID int) {
	t.Status = TaskProcessing
	t.WorkerID = workerID
}

// Complete records the final outcome
func (t *FileTask) Complete(outcome models.Outcome, reason string, err error, duration time.Duration) {
	t.Status = TaskCompleted
	t.Outcome = outcome
	t.Reason = reason
	t.Error = err
	t.ProcessingDuration = duration
}
