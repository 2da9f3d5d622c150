package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sdejongh/mediasync/pkg/compare"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/notify"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/runlog"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// Clock abstracts time retrieval so runs are deterministic in tests
type Clock interface {
	Now() time.Time
}

// RealClock returns the actual current time
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

// Log name prefixes
const (
	SyncLogPrefix   = "mediasync"
	VerifyLogPrefix = "mediasync-verify"
)

// Engine mirrors a source tree into a destination and verifies every file
type Engine struct {
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	notifier   notify.Notifier
	operation  *models.SyncOperation
	clock      Clock
	out        io.Writer

	// Backend constructors, replaceable in tests
	openSource func(root string) (storage.Backend, error)
	openDest   func(root string) (storage.Backend, error)
}

// NewEngine creates a new sync engine. A nil logger, notifier or formatter disables that output.
func NewEngine(
	operation *models.SyncOperation,
	comparator compare.Comparator,
	formatter output.Formatter,
	logger logging.Logger,
	notifier notify.Notifier,
) *Engine {
	if logger == nil {
		logger = logging.NewNullLogger()
	}
	if notifier == nil {
		notifier = notify.Null{}
	}

	return &Engine{
		comparator: comparator,
		formatter:  formatter,
		logger:     logger,
		notifier:   notify.WithTimeout(notifier, operation.NotifyTimeout),
		operation:  operation,
		clock:      RealClock{},
		out:        os.Stdout,
		openSource: func(root string) (storage.Backend, error) { return storage.NewLocal(root) },
		openDest:   func(root string) (storage.Backend, error) { return storage.NewLocal(root) },
	}
}

// SetClock replaces the clock used for timestamps and log names
func (e *Engine) SetClock(c Clock) {
	e.clock = c
}

// SetOutput sets where the formatter writes
func (e *Engine) SetOutput(w io.Writer) {
	e.out = w
}

// Run executes the operation. Fatal conditions (invalid or empty source,
// uncreatable destination, unusable log directory) return an error before any
// file is processed. Otherwise a summary is always returned.
func (e *Engine) Run(ctx context.Context) (*models.RunSummary, error) {
	op := e.operation
	if err := op.Validate(); err != nil {
		return nil, err
	}

	runID := op.ID
	if runID == "" {
		runID = uuid.New().String()
	}
	startTime := e.clock.Now()
	logger := e.logger.WithFields(logging.Fields{"run_id": runID})

	logger.Info(ctx, "Starting run", logging.Fields{
		"source":      op.SourcePath,
		"dest":        op.DestPath,
		"strategy":    string(op.ComparisonMethod),
		"verify_only": op.VerifyOnly,
		"overwrite":   op.Overwrite,
		"max_workers": op.MaxWorkers,
	})

	// Phase 1: enumerate the source before touching the destination
	source, err := e.openSource(op.SourcePath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrInvalidSource, err)
	}
	defer source.Close()

	tree, err := scanSource(ctx, source, newExcludeMatcher(op.ExcludePatterns))
	if err != nil {
		return nil, err
	}
	if len(tree.files) == 0 {
		return nil, fmt.Errorf("%w: no files found under %s", models.ErrInvalidSource, op.SourcePath)
	}
	logger.Info(ctx, "Source scanned", logging.Fields{
		"files":       len(tree.files),
		"dirs":        len(tree.dirs),
		"bytes":       tree.totalBytes,
		"scan_errors": len(tree.scanErrors),
	})

	// Phase 2: destination root
	dest, err := e.prepareDestRoot(op.DestPath)
	if err != nil {
		return nil, err
	}
	defer dest.Close()

	// Phase 3: run log
	prefix := SyncLogPrefix
	if op.VerifyOnly {
		prefix = VerifyLogPrefix
	}
	log, err := runlog.Open(op.LogDir, prefix, startTime, runID)
	if err != nil {
		return nil, err
	}
	defer log.Close()

	summary := &models.RunSummary{
		RunID:       runID,
		SourcePath:  source.Root(),
		DestPath:    dest.Root(),
		Strategy:    op.ComparisonMethod,
		VerifyOnly:  op.VerifyOnly,
		Overwrite:   op.Overwrite,
		StartTime:   startTime,
		DirsScanned: len(tree.dirs),
		ScanErrors:  tree.scanErrors,
		MainLog:     log.MainPath(),
		DiffLog:     log.DiffPath(),
		CopyFailLog: log.CopyFailPath(),
	}

	e.writeStartLines(ctx, log, summary, len(tree.files))

	// Phase 4: mirror every directory before any file is queued
	failedDirs := make(map[string]bool)
	if !op.VerifyOnly {
		summary.DirsCreated, summary.DirsFailed = e.createDirs(ctx, dest, tree.dirs, failedDirs, log)
	}

	for i, t := range tree.files {
		tree.files[i].DestPath = filepath.Join(dest.Root(), t.RelativePath)
	}

	// Phase 5: strategy preparation (manifest hashing)
	if prep, ok := e.comparator.(compare.Preparer); ok {
		paths := make([]string, len(tree.files))
		for i, t := range tree.files {
			paths[i] = t.RelativePath
		}
		logger.Info(ctx, "Preparing comparison", logging.Fields{"method": e.comparator.Name()})
		if err := prep.Prepare(ctx, source, dest, paths); err != nil {
			logger.Warn(ctx, "Comparison preparation incomplete", logging.Fields{"error": err.Error()})
		}
	}

	// Phase 6: process files
	if e.formatter != nil {
		e.formatter.Start(e.out, len(tree.files), tree.totalBytes, op.MaxWorkers)
	}

	config := DefaultPipelineConfig()
	config.MaxWorkers = op.MaxWorkers
	pipeline := newPipeline(e, source, dest, log, failedDirs, len(tree.files), config)
	pipeline.logger = logger
	unprocessed := pipeline.Run(ctx, tree.files, config.MaxWorkers)

	// Phase 7: summary, after every worker has joined
	summary.Counts = pipeline.counters.Total()
	summary.Directories = pipeline.counters.Directories()
	summary.FilesCopied = int(pipeline.filesCopied.Load())
	summary.FilesReplaced = int(pipeline.filesReplaced.Load())
	summary.BytesCopied = pipeline.bytesCopied.Load()
	summary.Cancelled = unprocessed > 0

	if op.WriteManifest {
		summary.Manifests = e.writeManifests(ctx, log)
	}

	summary.EndTime = e.clock.Now()
	summary.Duration = summary.EndTime.Sub(summary.StartTime)

	line := SummaryLine(summary)
	if err := log.Summary(line); err != nil {
		logger.Error(ctx, "Failed to write summary to run log", err, nil)
	}
	e.notify(context.WithoutCancel(ctx), line)

	if e.formatter != nil {
		e.formatter.Complete(summary)
	}

	logger.Info(ctx, "Run completed", logging.Fields{
		"status":         string(summary.Status()),
		"duration":       summary.Duration.String(),
		"seen":           summary.Counts.Seen,
		"same":           summary.Counts.Same,
		"different":      summary.Counts.Different,
		"missing":        summary.Counts.Missing,
		"copy_failed":    summary.Counts.CopyFailed,
		"files_copied":   summary.FilesCopied,
		"files_replaced": summary.FilesReplaced,
		"bytes_copied":   summary.BytesCopied,
		"unprocessed":    unprocessed,
	})

	return summary, nil
}

// prepareDestRoot creates the destination root, or only opens it in verify mode
func (e *Engine) prepareDestRoot(root string) (storage.Backend, error) {
	if e.operation.VerifyOnly {
		dest, err := e.openDest(root)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrDestinationMissing, err)
		}
		return dest, nil
	}

	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDestinationUncreatable, err)
	}
	dest, err := e.openDest(root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrDestinationUncreatable, err)
	}
	return dest, nil
}

// createDirs mirrors the source directories. A failure is recorded for the
// subtree and never aborts the run.
func (e *Engine) createDirs(ctx context.Context, dest storage.Backend, dirs []string, failed map[string]bool, log *runlog.RunLog) (int, []string) {
	created := 0
	var failedList []string

	for _, dir := range dirs {
		if dir == "." {
			continue
		}
		if parentFailed(dir, failed) {
			failed[dir] = true
			continue
		}

		exists, err := dest.Exists(ctx, dir)
		if err == nil && exists {
			continue
		}
		if err == nil {
			err = dest.MkdirAll(ctx, dir)
		}
		if err != nil {
			failed[dir] = true
			failedList = append(failedList, dir)
			e.logger.Error(ctx, "Failed to create destination directory", err, logging.Fields{"dir": dir})
			log.Note("DirectoryFailed: " + runlog.EscapePath(dir))
			continue
		}
		created++
	}

	return created, failedList
}

func parentFailed(dir string, failed map[string]bool) bool {
	for parent := models.DirOf(dir); parent != "." && parent != "/"; parent = models.DirOf(parent) {
		if failed[parent] {
			return true
		}
	}
	return false
}

func (e *Engine) writeStartLines(ctx context.Context, log *runlog.RunLog, s *models.RunSummary, files int) {
	mode := "sync"
	switch {
	case s.VerifyOnly:
		mode = "verify"
	case s.Overwrite:
		mode = "sync (overwrite differing files)"
	}

	lines := []string{
		"Started: " + s.StartTime.Format(time.RFC3339),
		"Source: " + s.SourcePath,
		"Destination: " + s.DestPath,
		"Verification: " + string(s.Strategy),
		"Mode: " + mode,
		fmt.Sprintf("Files: %d in %d directories", files, s.DirsScanned),
	}
	if len(e.operation.ExcludePatterns) > 0 {
		lines = append(lines, "Excluded: "+strings.Join(e.operation.ExcludePatterns, ", "))
	}
	for _, se := range s.ScanErrors {
		lines = append(lines, "ScanError: "+se)
	}

	for _, l := range lines {
		if err := log.Note(l); err != nil {
			e.logger.Error(ctx, "Failed to append to run log", err, nil)
			return
		}
	}
}

func (e *Engine) writeManifests(ctx context.Context, log *runlog.RunLog) []string {
	mc, ok := e.comparator.(interface {
		Manifests() (source, dest []compare.ManifestEntry)
	})
	if !ok {
		e.logger.Warn(ctx, "Manifests are only produced by the manifest strategy", logging.Fields{"method": e.comparator.Name()})
		return nil
	}

	sourceEntries, destEntries := mc.Manifests()
	var paths []string
	for _, m := range []struct {
		name    string
		entries []compare.ManifestEntry
	}{
		{"source", sourceEntries},
		{"destination", destEntries},
	} {
		lines := make([]string, len(m.entries))
		for i, entry := range m.entries {
			lines[i] = entry.String()
		}
		path, err := log.WriteManifest(m.name, lines)
		if err != nil {
			e.logger.Error(ctx, "Failed to write manifest", err, logging.Fields{"manifest": m.name})
			continue
		}
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

// notify delivers a best-effort notification; failures are warnings
func (e *Engine) notify(ctx context.Context, message string) {
	if err := e.notifier.Notify(ctx, message); err != nil {
		e.logger.Warn(ctx, "Notification failed", logging.Fields{
			"error":   err.Error(),
			"message": message,
		})
	}
}

// SummaryLine renders the final counters written to all three logs
func SummaryLine(s *models.RunSummary) string {
	c := s.Counts
	line := fmt.Sprintf("Summary: %d files, %d same, %d different", c.Seen, c.Same, c.Different)
	if s.VerifyOnly {
		line += fmt.Sprintf(", %d missing", c.Missing)
	} else {
		line += fmt.Sprintf(", %d copy failed, %d copied", c.CopyFailed, s.FilesCopied)
		if s.Overwrite {
			line += fmt.Sprintf(", %d replaced", s.FilesReplaced)
		}
	}
	if n := len(s.ScanErrors); n > 0 {
		line += fmt.Sprintf(", %d unreadable", n)
	}
	line += fmt.Sprintf(" (%s in %s)", s.Status(), s.Duration.Round(time.Millisecond))
	return line
}
