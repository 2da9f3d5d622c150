package output

import (
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"github.com/sdejongh/mediasync/pkg/models"
)

// palette colours outcomes; every colour is disabled for plain writers
type palette struct {
	same, different, missing, failed, header, dim *color.Color
}

func newPalette(enabled bool) palette {
	p := palette{
		same:      color.New(color.FgGreen),
		different: color.New(color.FgYellow),
		missing:   color.New(color.FgMagenta),
		failed:    color.New(color.FgRed, color.Bold),
		header:    color.New(color.Bold),
		dim:       color.New(color.Faint),
	}
	for _, c := range []*color.Color{p.same, p.different, p.missing, p.failed, p.header, p.dim} {
		if enabled {
			c.EnableColor()
		} else {
			c.DisableColor()
		}
	}
	return p
}

func (p palette) outcome(o models.Outcome) *color.Color {
	switch o {
	case models.OutcomeSame:
		return p.same
	case models.OutcomeDifferent:
		return p.different
	case models.OutcomeMissing:
		return p.missing
	default:
		return p.failed
	}
}

// HumanFormatter prints one line per noteworthy file and a final summary
type HumanFormatter struct {
	mu         sync.Mutex
	writer     io.Writer
	totalFiles int
	totalBytes int64
	verbose    bool
	colors     palette
}

// NewHumanFormatter creates a new human-readable formatter.
// verbose prints Same files too; color enables ANSI colours.
func NewHumanFormatter(verbose, color bool) *HumanFormatter {
	return &HumanFormatter{verbose: verbose, colors: newPalette(color)}
}

// Start initializes the formatter
func (f *HumanFormatter) Start(writer io.Writer, totalFiles int, totalBytes int64, maxWorkers int) error {
	f.writer = writer
	f.totalFiles = totalFiles
	f.totalBytes = totalBytes

	if writer != nil {
		fmt.Fprintf(writer, "Processing %s files, %s total", humanize.Comma(int64(totalFiles)), humanize.IBytes(uint64(totalBytes)))
		if maxWorkers > 1 {
			fmt.Fprintf(writer, " with %d workers", maxWorkers)
		}
		fmt.Fprintln(writer)
	}
	return nil
}

// Progress reports progress during the run
func (f *HumanFormatter) Progress(update ProgressUpdate) error {
	if f.writer == nil {
		return nil
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	switch update.Type {
	case UpdateFileComplete:
		if update.Outcome == models.OutcomeSame && !f.verbose {
			return nil
		}
		line := fmt.Sprintf("[%d/%d] %s: %s", update.CurrentFile, f.totalFiles,
			f.colors.outcome(update.Outcome).Sprint(update.Outcome), update.FilePath)
		if update.Copied {
			line += f.colors.dim.Sprint(" (copied)")
		}
		if update.Error != nil {
			line += f.colors.dim.Sprintf(" (%v)", update.Error)
		}
		fmt.Fprintln(f.writer, line)

	case UpdateDirComplete:
		if f.verbose {
			fmt.Fprintf(f.writer, "%s %s\n", f.colors.header.Sprint("Directory"), DirectoryLine(update.FilePath, update.DirCounts))
		}
	}
	return nil
}

// Complete displays the summary
func (f *HumanFormatter) Complete(summary *models.RunSummary) error {
	if f.writer == nil {
		f.writer = io.Discard
	}
	writeSummary(f.writer, summary, f.colors, f.verbose)
	return nil
}

// Error reports an error
func (f *HumanFormatter) Error(err error) error {
	if f.writer != nil {
		fmt.Fprintf(f.writer, "%s %v\n", f.colors.failed.Sprint("Error:"), err)
	}
	return nil
}

// Name returns the formatter name
func (f *HumanFormatter) Name() string {
	return "human"
}

// DirectoryLine renders per-directory counters, e.g. "photos/2024: 12 files, 11 same, 1 different, 0 copy failed"
func DirectoryLine(dir string, c models.Counts) string {
	line := fmt.Sprintf("%s: %d files, %d same, %d different", dir, c.Seen, c.Same, c.Different)
	if c.Missing > 0 {
		line += fmt.Sprintf(", %d missing", c.Missing)
	}
	return line + fmt.Sprintf(", %d copy failed", c.CopyFailed)
}

func writeSummary(w io.Writer, s *models.RunSummary, colors palette, verbose bool) {
	title := "Sync"
	if s.VerifyOnly {
		title = "Verification"
	}

	fmt.Fprintln(w)
	if s.Cancelled {
		fmt.Fprintf(w, "%s interrupted after %s\n", title, formatDuration(s.Duration))
	} else {
		fmt.Fprintf(w, "%s completed in %s\n", title, formatDuration(s.Duration))
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, colors.header.Sprint("Summary:"))
	fmt.Fprintf(w, "  Source:        %s\n", s.SourcePath)
	fmt.Fprintf(w, "  Destination:   %s\n", s.DestPath)
	fmt.Fprintf(w, "  Verification:  %s\n", s.Strategy)
	fmt.Fprintln(w)

	c := s.Counts
	fmt.Fprintf(w, "  Files seen:    %s\n", humanize.Comma(int64(c.Seen)))
	fmt.Fprintf(w, "  %s          %d\n", colors.same.Sprint("Same:"), c.Same)
	fmt.Fprintf(w, "  %s     %d\n", colors.different.Sprint("Different:"), c.Different)
	if s.VerifyOnly {
		fmt.Fprintf(w, "  %s       %d\n", colors.missing.Sprint("Missing:"), c.Missing)
	} else {
		fmt.Fprintf(w, "  %s   %d\n", colors.failed.Sprint("Copy failed:"), c.CopyFailed)
	}

	if !s.VerifyOnly {
		fmt.Fprintln(w)
		fmt.Fprintf(w, "  Copied:        %d files, %s\n", s.FilesCopied, humanize.IBytes(uint64(s.BytesCopied)))
		if s.Overwrite {
			fmt.Fprintf(w, "  Replaced:      %d files\n", s.FilesReplaced)
		}
		fmt.Fprintf(w, "  Dirs created:  %d of %d\n", s.DirsCreated, s.DirsScanned)
		if s.Duration > 0 && s.BytesCopied > 0 {
			speed := float64(s.BytesCopied) / s.Duration.Seconds()
			fmt.Fprintf(w, "  Average speed: %s/s\n", humanize.IBytes(uint64(speed)))
		}
	}

	if len(s.DirsFailed) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colors.failed.Sprint("Directories that could not be created:"))
		for _, d := range s.DirsFailed {
			fmt.Fprintf(w, "  %s\n", d)
		}
	}

	if len(s.ScanErrors) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colors.failed.Sprint("Unreadable source entries:"))
		for _, e := range s.ScanErrors {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	if verbose && len(s.Directories) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, colors.header.Sprint("Directories:"))
		for _, dir := range models.SortedDirs(s.Directories) {
			fmt.Fprintf(w, "  %s\n", DirectoryLine(dir, s.Directories[dir]))
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, colors.header.Sprint("Logs:"))
	fmt.Fprintf(w, "  Main:          %s\n", s.MainLog)
	fmt.Fprintf(w, "  Differences:   %s\n", s.DiffLog)
	fmt.Fprintf(w, "  Copy failures: %s\n", s.CopyFailLog)
	manifests := append([]string(nil), s.Manifests...)
	sort.Strings(manifests)
	for _, m := range manifests {
		fmt.Fprintf(w, "  Manifest:      %s\n", m)
	}

	fmt.Fprintln(w)
	status := s.Status()
	statusColor := colors.same
	if status != models.StatusClean {
		statusColor = colors.different
	}
	fmt.Fprintf(w, "Status: %s\n", statusColor.Sprint(status))
}

// formatDuration formats duration in human-readable format
func formatDuration(d time.Duration) string {
	if d < time.Second {
		return d.Round(time.Millisecond).String()
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	}
	return fmt.Sprintf("%dh%dm", int(d.Hours()), int(d.Minutes())%60)
}
