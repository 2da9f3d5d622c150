package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/sdejongh/mediasync/internal/platform"
	"github.com/sdejongh/mediasync/pkg/config"
	"github.com/sdejongh/mediasync/pkg/models"
	"github.com/sdejongh/mediasync/pkg/ratelimit"
)

// stdinIsTerminal reports whether paths may be prompted for
var stdinIsTerminal = func() bool {
	return term.IsTerminal(int(os.Stdin.Fd()))
}

// validateArgs accepts either both paths or none
func validateArgs(cmd *cobra.Command, args []string) error {
	switch len(args) {
	case 0, 2:
		return nil
	default:
		return fmt.Errorf("expected <source> <dest>, got %d argument(s)", len(args))
	}
}

// resolvePaths returns absolute source and destination paths, prompting for
// them when none were given and stdin is a terminal
func resolvePaths(args []string, in io.Reader, out io.Writer) (string, string, error) {
	var source, dest string
	if len(args) == 2 {
		source, dest = args[0], args[1]
	} else {
		if !stdinIsTerminal() {
			return "", "", errors.New("source and destination are required")
		}
		var err error
		if source, dest, err = promptPaths(in, out); err != nil {
			return "", "", err
		}
	}

	sourceAbs, err := platform.Resolve(source)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve source path: %w", err)
	}
	destAbs, err := platform.Resolve(dest)
	if err != nil {
		return "", "", fmt.Errorf("failed to resolve destination path: %w", err)
	}

	if sourceAbs == destAbs {
		return "", "", fmt.Errorf("source and destination cannot be the same: %s", sourceAbs)
	}

	// Validate paths are not nested
	if platform.IsWithin(sourceAbs, destAbs) {
		return "", "", errors.New("destination cannot be inside source directory")
	}
	if platform.IsWithin(destAbs, sourceAbs) {
		return "", "", errors.New("source cannot be inside destination directory")
	}

	return sourceAbs, destAbs, nil
}

// promptPaths asks for the source and destination on out and reads them from in
func promptPaths(in io.Reader, out io.Writer) (string, string, error) {
	reader := bufio.NewReader(in)

	ask := func(label string) (string, error) {
		fmt.Fprintf(out, "%s: ", label)
		line, err := reader.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			return "", fmt.Errorf("failed to read %s: %w", strings.ToLower(label), err)
		}
		line = strings.TrimSpace(line)
		if line == "" {
			return "", fmt.Errorf("%s cannot be empty", strings.ToLower(label))
		}
		return line, nil
	}

	source, err := ask("Source directory")
	if err != nil {
		return "", "", err
	}
	dest, err := ask("Destination directory")
	if err != nil {
		return "", "", err
	}
	return source, dest, nil
}

// loadConfig loads configuration from file or returns default
func loadConfig() (*config.Config, error) {
	if globalFlags.ConfigFile != "" {
		return config.LoadFromFile(globalFlags.ConfigFile)
	}
	return config.LoadDefault()
}

// applyFlagsToConfig overrides config values with the flags set on the command line
func applyFlagsToConfig(cmd *cobra.Command, cfg *config.Config, flags *SyncFlags) error {
	changed := cmd.Flags().Changed

	if changed("verify") {
		method, err := models.ParseComparisonMethod(flags.Verify)
		if err != nil {
			return err
		}
		cfg.Sync.Comparison = method
	}
	if changed("progress-every") {
		cfg.Progress.Every = flags.ProgressEvery
	}
	if changed("parallel") {
		cfg.Performance.MaxWorkers = flags.Parallel
	}
	if changed("bandwidth") {
		cfg.Performance.BandwidthLimit = flags.Bandwidth
	}
	if changed("overwrite") {
		cfg.Sync.Overwrite = flags.Overwrite
	}
	if changed("exclude") {
		cfg.Exclude = append(cfg.Exclude, flags.Exclude...)
	}
	if changed("log-dir") {
		cfg.Sync.LogDir = flags.LogDir
	}
	if changed("output") {
		cfg.Output.Format = flags.Output
	}
	if changed("notify") {
		cfg.Notify.Enabled = flags.Notify
	}
	if changed("per-directory") {
		cfg.Progress.PerDirectory = flags.PerDirectory
	}
	if changed("write-manifest") {
		cfg.Sync.WriteManifest = flags.WriteManifest
	}

	// Logging
	if globalFlags.LogFile != "" {
		cfg.Logging.File = globalFlags.LogFile
	}
	if globalFlags.LogLevel != "" {
		cfg.Logging.Level = strings.ToLower(globalFlags.LogLevel)
	}
	if globalFlags.LogFormat != "" {
		cfg.Logging.Format = strings.ToLower(globalFlags.LogFormat)
	}

	// Disable progress in quiet mode
	if globalFlags.Quiet {
		cfg.Output.Progress = false
		cfg.Output.Quiet = true
	}

	return cfg.Validate()
}

// createSyncOperation creates a sync operation from configuration
func createSyncOperation(cfg *config.Config, source, dest string, verifyOnly bool) (*models.SyncOperation, error) {
	bandwidth, err := ratelimit.ParseBandwidth(cfg.Performance.BandwidthLimit)
	if err != nil {
		return nil, err
	}

	operation := &models.SyncOperation{
		ID:                 uuid.New().String(),
		SourcePath:         source,
		DestPath:           dest,
		ComparisonMethod:   cfg.Sync.Comparison,
		VerifyOnly:         verifyOnly,
		Overwrite:          cfg.Sync.Overwrite && !verifyOnly,
		ExcludePatterns:    cfg.Exclude,
		ProgressInterval:   cfg.Progress.Every,
		NotifyPerDirectory: cfg.Progress.PerDirectory,
		NotifyTimeout:      cfg.Notify.Timeout,
		WriteManifest:      cfg.Sync.WriteManifest,
		MaxWorkers:         cfg.Performance.MaxWorkers,
		BandwidthLimit:     bandwidth,
		BufferSize:         cfg.Performance.BufferSize,
		LogDir:             cfg.Sync.LogDir,
		CreatedAt:          time.Now(),
	}

	if err := operation.Validate(); err != nil {
		return nil, err
	}

	return operation, nil
}
