package sync

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sdejongh/mediasync/pkg/compare"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/ratelimit"
	"github.com/sdejongh/mediasync/pkg/runlog"
	"github.com/sdejongh/mediasync/pkg/storage"
)

// errDirFailed marks files whose destination directory could not be created
var errDirFailed = errors.New("destination directory could not be created")

// Pipeline runs file tasks through a pool of workers
type Pipeline struct {
	engine     *Engine
	source     storage.Backend
	dest       storage.Backend
	comparator compare.Comparator
	formatter  output.Formatter
	logger     logging.Logger
	operation  *models.SyncOperation
	log        *runlog.RunLog
	limiter    *ratelimit.Limiter
	counters   *models.RunCounters
	failedDirs map[string]bool
	totalFiles int

	// Task queue
	taskQueue chan *FileTask

	// Transfer stats
	filesCopied   atomic.Int64
	filesReplaced atomic.Int64
	bytesCopied   atomic.Int64
}

// PipelineConfig holds configuration for the pipeline
type PipelineConfig struct {
	MaxWorkers int
	QueueSize  int // Buffer size for the task queue
}

// DefaultPipelineConfig processes files one at a time in walk order
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		MaxWorkers: 1,
		QueueSize:  256,
	}
}

func newPipeline(e *Engine, source, dest storage.Backend, log *runlog.RunLog, failedDirs map[string]bool, totalFiles int, config PipelineConfig) *Pipeline {
	if config.MaxWorkers < 1 {
		config.MaxWorkers = 1
	}
	if config.QueueSize < config.MaxWorkers {
		config.QueueSize = config.MaxWorkers
	}

	return &Pipeline{
		engine:     e,
		source:     source,
		dest:       dest,
		comparator: e.comparator,
		formatter:  e.formatter,
		logger:     e.logger,
		operation:  e.operation,
		log:        log,
		limiter:    ratelimit.NewLimiter(e.operation.BandwidthLimit),
		counters:   models.NewRunCounters(),
		failedDirs: failedDirs,
		totalFiles: totalFiles,
		taskQueue:  make(chan *FileTask, config.QueueSize),
	}
}

// Run feeds tasks to the workers and waits for all of them to finish.
// On cancellation it stops enqueuing; tasks already handed to a worker are
// completed. It returns the number of tasks that were never processed.
func (p *Pipeline) Run(ctx context.Context, tasks []*FileTask, workers int) int {
	for _, t := range tasks {
		p.counters.Expect(models.DirOf(t.RelativePath))
	}

	// In-flight copies must not be torn by cancellation
	workCtx := context.WithoutCancel(ctx)

	var skipped atomic.Int64
	var workersWg sync.WaitGroup
	for i := 0; i < workers; i++ {
		workersWg.Add(1)
		go func(workerID int) {
			defer workersWg.Done()
			for task := range p.taskQueue {
				if ctx.Err() != nil {
					skipped.Add(1)
					continue
				}
				p.processTask(workCtx, workerID, task)
			}
		}(i)
	}

	queued := 0
enqueue:
	for _, task := range tasks {
		select {
		case <-ctx.Done():
			break enqueue
		case p.taskQueue <- task:
			queued++
		}
	}
	close(p.taskQueue)
	workersWg.Wait()

	return len(tasks) - queued + int(skipped.Load())
}

// processTask decides, acts and records exactly one outcome for a file
func (p *Pipeline) processTask(ctx context.Context, workerID int, task *FileTask) {
	startTime := time.Now()
	task.MarkProcessing(workerID)

	if p.formatter != nil {
		p.formatter.Progress(output.ProgressUpdate{
			Type:       output.UpdateFileStart,
			FilePath:   filepath.ToSlash(task.RelativePath),
			TotalBytes: task.Size,
			TotalFiles: p.totalFiles,
		})
	}

	outcome, reason, err := p.decide(ctx, task)
	task.Complete(outcome, reason, err, time.Since(startTime))
	p.record(ctx, task)
}

func (p *Pipeline) decide(ctx context.Context, task *FileTask) (models.Outcome, string, error) {
	rel := task.RelativePath

	exists, err := p.dest.Exists(ctx, rel)
	if err != nil {
		if p.operation.VerifyOnly {
			return models.OutcomeDifferent, "", err
		}
		return models.OutcomeCopyFailed, "", err
	}

	if !exists {
		if p.operation.VerifyOnly {
			return models.OutcomeMissing, "destination file does not exist", nil
		}
		if p.dirFailed(models.DirOf(rel)) {
			return models.OutcomeCopyFailed, "", errDirFailed
		}
		err := p.copyFile(ctx, task, false)
		switch {
		case err == nil:
			task.Action = ActionCopied
		case errors.Is(err, fs.ErrExist):
			// Appeared since the existence check; verify what is there
		default:
			return models.OutcomeCopyFailed, "", err
		}
	}

	outcome, reason, err := p.verify(ctx, rel)
	if outcome != models.OutcomeDifferent || task.Action != ActionNone || !p.operation.Overwrite {
		return outcome, reason, err
	}

	// Overwrite mode: replace the differing file and verify again
	if err := p.copyFile(ctx, task, true); err != nil {
		return models.OutcomeCopyFailed, "", err
	}
	task.Action = ActionReplaced
	return p.verify(ctx, rel)
}

// verify runs the comparator; a comparison that cannot complete counts as Different
func (p *Pipeline) verify(ctx context.Context, rel string) (models.Outcome, string, error) {
	comparison, err := p.comparator.Compare(ctx, p.source, p.dest, rel)
	if err != nil {
		return models.OutcomeDifferent, "", fmt.Errorf("verification failed: %w", err)
	}
	return comparison.Result, comparison.Reason, nil
}

// dirFailed reports whether dir or one of its parents could not be created
func (p *Pipeline) dirFailed(dir string) bool {
	if len(p.failedDirs) == 0 {
		return false
	}
	for ; dir != "." && dir != "/"; dir = models.DirOf(dir) {
		if p.failedDirs[dir] {
			return true
		}
	}
	return false
}

// copyFile streams the source file to the destination through the bandwidth limiter
func (p *Pipeline) copyFile(ctx context.Context, task *FileTask, replace bool) error {
	rel := task.RelativePath

	sourceInfo, err := p.source.Stat(ctx, rel)
	if err != nil {
		return err
	}

	reader, err := p.source.Read(ctx, rel)
	if err != nil {
		return err
	}
	defer reader.Close()

	limited := ratelimit.NewReader(ctx, reader, p.limiter)
	if replace {
		err = p.dest.Replace(ctx, rel, limited, sourceInfo.Size, sourceInfo)
	} else {
		err = p.dest.Write(ctx, rel, limited, sourceInfo.Size, sourceInfo)
	}
	if err != nil {
		return err
	}

	if inv, ok := p.comparator.(compare.Invalidator); ok {
		inv.Invalidate(rel)
	}

	if replace {
		p.filesReplaced.Add(1)
	} else {
		p.filesCopied.Add(1)
	}
	p.bytesCopied.Add(sourceInfo.Size)
	return nil
}

// record writes the outcome to the run log, counters, formatter and notifier
func (p *Pipeline) record(ctx context.Context, task *FileTask) {
	rel := filepath.ToSlash(task.RelativePath)
	dir := models.DirOf(task.RelativePath)

	if task.Error != nil {
		p.logger.Error(ctx, "File processing failed", task.Error, logging.Fields{
			"path":    rel,
			"outcome": string(task.Outcome),
		})
	} else {
		p.logger.Debug(ctx, "File processed", logging.Fields{
			"path":     rel,
			"outcome":  string(task.Outcome),
			"action":   string(task.Action),
			"reason":   task.Reason,
			"duration": task.ProcessingDuration.String(),
			"worker":   task.WorkerID,
		})
	}

	if err := p.log.Record(task.Outcome, rel); err != nil {
		p.logger.Error(ctx, "Failed to append to run log", err, logging.Fields{"path": rel})
	}

	progress := p.counters.Record(dir, task.Outcome)

	if p.formatter != nil {
		p.formatter.Progress(output.ProgressUpdate{
			Type:        output.UpdateFileComplete,
			FilePath:    rel,
			Outcome:     task.Outcome,
			Copied:      task.Action != ActionNone,
			TotalBytes:  task.Size,
			CurrentFile: progress.Processed,
			TotalFiles:  p.totalFiles,
			Error:       task.Error,
		})
	}

	if interval := p.operation.ProgressInterval; interval > 0 && progress.Processed%interval == 0 {
		total := p.counters.Total()
		p.engine.notify(ctx, fmt.Sprintf("Progress: %d/%d files processed (%d same, %d different, %d missing, %d copy failed)",
			progress.Processed, p.totalFiles, total.Same, total.Different, total.Missing, total.CopyFailed))
	}

	if progress.DirDone {
		line := "Directory " + output.DirectoryLine(progress.Dir, progress.DirCounts)
		if err := p.log.Note(line); err != nil {
			p.logger.Error(ctx, "Failed to append to run log", err, logging.Fields{"dir": progress.Dir})
		}
		if p.formatter != nil {
			p.formatter.Progress(output.ProgressUpdate{
				Type:        output.UpdateDirComplete,
				FilePath:    progress.Dir,
				CurrentFile: progress.Processed,
				TotalFiles:  p.totalFiles,
				DirCounts:   progress.DirCounts,
			})
		}
		if p.operation.NotifyPerDirectory {
			p.engine.notify(ctx, line)
		}
	}
}
