package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/sdejongh/mediasync/pkg/compare"
	"github.com/sdejongh/mediasync/pkg/config"
	"github.com/sdejongh/mediasync/pkg/logging"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/notify"
	"github.com/sdejongh/mediasync/pkg/output"
	"github.com/sdejongh/mediasync/pkg/sync"
)

// SyncFlags holds sync and verify command flags
type SyncFlags struct {
	Verify        string
	ProgressEvery int
	Parallel      int
	Bandwidth     string
	Overwrite     bool
	Exclude       []string
	LogDir        string
	Output        string
	Notify        bool
	PerDirectory  bool
	WriteManifest bool
}

// NewSyncCommand creates the sync command
func NewSyncCommand() *cobra.Command {
	flags := &SyncFlags{}

	cmd := &cobra.Command{
		Use:   "sync [source] [dest]",
		Short: "Copy missing files and verify the whole tree",
		Long: `Mirror source into dest. Directories are created first, files missing
from dest are copied, and every file is then verified with the chosen
strategy. Existing files are never overwritten unless --overwrite is given.

When source and dest are omitted on a terminal, they are prompted for.`,
		Args: validateArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEngine(cmd, args, flags, false)
		},
	}

	addRunFlags(cmd, flags)
	cmd.Flags().StringVarP(&flags.Bandwidth, "bandwidth", "b", "", "bandwidth limit for copies (e.g., \"10M\", \"1GiB\")")
	cmd.Flags().BoolVar(&flags.Overwrite, "overwrite", false, "replace destination files that differ from the source")

	return cmd
}

// addRunFlags registers the flags shared by sync and verify
func addRunFlags(cmd *cobra.Command, flags *SyncFlags) {
	cmd.Flags().StringVar(&flags.Verify, "verify", string(models.CompareSHA256), "verification strategy: size, diff, manifest, sha256")
	cmd.Flags().IntVar(&flags.ProgressEvery, "progress-every", 100, "send a progress notification every N files")
	cmd.Flags().IntVarP(&flags.Parallel, "parallel", "p", 1, "number of parallel workers")
	cmd.Flags().StringArrayVar(&flags.Exclude, "exclude", nil, "glob pattern to exclude (repeatable, \"dir/\" for directories)")
	cmd.Flags().StringVar(&flags.LogDir, "log-dir", "", "directory for the run logs (default is $XDG_STATE_HOME/mediasync/logs)")
	cmd.Flags().StringVarP(&flags.Output, "output", "o", "human", "output format: human, json")
	cmd.Flags().BoolVar(&flags.Notify, "notify", false, "print notifications to stderr")
	cmd.Flags().BoolVar(&flags.PerDirectory, "per-directory", false, "notify when each directory completes")
	cmd.Flags().BoolVar(&flags.WriteManifest, "write-manifest", false, "write md5 manifests next to the logs (manifest strategy)")
}

func runEngine(cmd *cobra.Command, args []string, flags *SyncFlags, verifyOnly bool) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Resolve source and destination
	sourcePath, destPath, err := resolvePaths(args, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	// Load configuration
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Override config with command-line flags
	if err := applyFlagsToConfig(cmd, cfg, flags); err != nil {
		return err
	}

	// Create sync operation
	operation, err := createSyncOperation(cfg, sourcePath, destPath, verifyOnly)
	if err != nil {
		return fmt.Errorf("failed to create sync operation: %w", err)
	}

	comparator, err := compare.New(operation.ComparisonMethod, operation.BufferSize)
	if err != nil {
		return err
	}

	stdout := cmd.OutOrStdout()
	formatter := createFormatter(cfg, stdout)

	// Create logger
	logger, err := createLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	notifier := createNotifier(cfg, logger, cmd.ErrOrStderr())

	engine := sync.NewEngine(operation, comparator, formatter, logger, notifier)
	engine.SetOutput(stdout)

	summary, err := engine.Run(ctx)
	if err != nil {
		// JSON consumers expect a document even for fatal errors
		if formatter != nil && cfg.Output.Format == "json" {
			formatter.Error(err)
		}
		if errors.Is(err, models.ErrInvalidSource) ||
			errors.Is(err, models.ErrDestinationUncreatable) ||
			errors.Is(err, models.ErrDestinationMissing) {
			return err
		}
		return fmt.Errorf("run failed: %w", err)
	}

	if summary.Cancelled {
		return errors.New("interrupted before every file was processed")
	}
	return nil
}

// createFormatter picks the output for stdout; nil in quiet mode
func createFormatter(cfg *config.Config, stdout io.Writer) output.Formatter {
	if cfg.Output.Quiet {
		return nil
	}
	if cfg.Output.Format == "json" {
		return output.NewJSONFormatter()
	}

	terminal := isTerminal(stdout)
	color := cfg.Output.Color && terminal && os.Getenv("NO_COLOR") == ""
	if cfg.Output.Progress && terminal && !globalFlags.Verbose {
		return output.NewProgressFormatter(color)
	}
	return output.NewHumanFormatter(globalFlags.Verbose, color)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// createLogger creates a logger based on configuration
func createLogger(cfg *config.Config, stderr io.Writer) (logging.Logger, error) {
	level := logging.ParseLevel(cfg.Logging.Level)

	if cfg.Logging.File != "" {
		format := logging.FormatJSON
		if cfg.Logging.Format == string(logging.FormatText) {
			format = logging.FormatText
		}
		return logging.NewFileLogger(logging.FileLoggerConfig{
			Path:       cfg.Logging.File,
			Format:     format,
			Level:      level,
			MaxSize:    int64(cfg.Logging.MaxSizeMB) * 1024 * 1024,
			MaxBackups: cfg.Logging.MaxBackups,
		})
	}

	if globalFlags.Verbose {
		return logging.NewConsoleLogger(stderr, level, cfg.Output.Color && isTerminal(stderr)), nil
	}

	return logging.NewNullLogger(), nil
}

// createNotifier always records notifications in the application log and,
// when enabled, prints them to stderr
func createNotifier(cfg *config.Config, logger logging.Logger, stderr io.Writer) notify.Notifier {
	notifiers := notify.Multi{notify.NewLoggerNotifier(logger)}
	if cfg.Notify.Enabled {
		notifiers = append(notifiers, notify.NewWriterNotifier(stderr, "mediasync: "))
	}
	return notifiers
}
