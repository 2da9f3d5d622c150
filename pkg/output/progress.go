package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/cheggaaa/pb/v3"
	"golang.org/x/term"

	"github.com/sdejongh/mediasync/pkg/models"
)

const progressTemplate pb.ProgressBarTemplate = `{{counters . }} {{bar . "[" "=" ">" " " "]"}} {{percent . }} {{string . "tally"}} {{etime . }}`

// ProgressFormatter shows a live progress bar and prints the summary at the end
type ProgressFormatter struct {
	writer     io.Writer
	totalFiles int
	colors     palette

	mu     sync.Mutex
	bar    *pb.ProgressBar
	counts models.Counts
}

// NewProgressFormatter creates a new progress bar formatter
func NewProgressFormatter(color bool) *ProgressFormatter {
	return &ProgressFormatter{colors: newPalette(color)}
}

// Start draws the bar
func (f *ProgressFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	if writer == nil {
		writer = os.Stdout
	}
	f.writer = writer
	f.totalFiles = totalFiles

	bar := progressTemplate.New(totalFiles)
	bar.SetWriter(writer)
	if file, ok := writer.(*os.File); ok {
		if width, _, err := term.GetSize(int(file.Fd())); err == nil && width > 0 {
			bar.SetWidth(width)
		}
	}
	bar.Set("tally", f.tally())
	f.bar = bar.Start()
	return nil
}

// Progress advances the bar on each completed file
func (f *ProgressFormatter) Progress(update ProgressUpdate) error {
	if update.Type != UpdateFileComplete {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar == nil {
		return nil
	}
	f.counts.Add(update.Outcome)
	f.bar.Set("tally", f.tally())
	f.bar.Increment()
	return nil
}

func (f *ProgressFormatter) tally() string {
	c := f.counts
	s := fmt.Sprintf("same %d, diff %d", c.Same, c.Different)
	if c.Missing > 0 {
		s += fmt.Sprintf(", missing %d", c.Missing)
	}
	if c.CopyFailed > 0 {
		s += fmt.Sprintf(", failed %d", c.CopyFailed)
	}
	return s
}

// Complete stops the bar and prints the summary
func (f *ProgressFormatter) Complete(summary *models.RunSummary) error {
	f.stop()
	if f.writer == nil {
		f.writer = io.Discard
	}
	writeSummary(f.writer, summary, f.colors, false)
	return nil
}

// Error stops the bar and prints the error
func (f *ProgressFormatter) Error(err error) error {
	f.stop()
	w := f.writer
	if w == nil {
		w = os.Stderr
	}
	fmt.Fprintf(w, "%s %v\n", f.colors.failed.Sprint("Error:"), err)
	return nil
}

func (f *ProgressFormatter) stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bar != nil {
		f.bar.Finish()
		f.bar = nil
	}
}

// Name returns the formatter name
func (f *ProgressFormatter) Name() string {
	return "progress"
}
