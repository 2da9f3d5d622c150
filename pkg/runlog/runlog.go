// Package runlog writes the three append-only text logs produced by a run:
// the main log (every outcome), the diff log (Different only) and the
// copy-fail log (CopyFailed only).
package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/sdejongh/mediasync/pkg/models"
)

// TimestampLayout is the timestamp embedded in log file names
const TimestampLayout = "20060102_150405"

// RunLog owns the log files of a single run. It is safe for concurrent use.
type RunLog struct {
	mu       sync.Mutex
	base     string
	main     *os.File
	diff     *os.File
	copyFail *os.File
	closed   bool
}

// BaseName returns "<prefix>_<YYYYMMDD_HHMMSS>_<id8>", the stem shared by every file of a run
func BaseName(prefix string, startedAt time.Time, runID string) string {
	id := strings.ReplaceAll(runID, "-", "")
	if len(id) > 8 {
		id = id[:8]
	}
	name := prefix + "_" + startedAt.Format(TimestampLayout)
	if id != "" {
		name += "_" + id
	}
	return name
}

// Open creates the three log files in dir and writes their header lines.
// Existing files are never reused.
func Open(dir, prefix string, startedAt time.Time, runID string) (*RunLog, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &RunLog{base: filepath.Join(dir, BaseName(prefix, startedAt, runID))}

	var err error
	if l.main, err = create(l.MainPath()); err != nil {
		return nil, err
	}
	if l.diff, err = create(l.DiffPath()); err != nil {
		l.main.Close()
		return nil, err
	}
	if l.copyFail, err = create(l.CopyFailPath()); err != nil {
		l.main.Close()
		l.diff.Close()
		return nil, err
	}

	stamp := startedAt.Format(time.RFC3339)
	headers := []struct {
		f    *os.File
		kind string
	}{
		{l.main, "verification log"},
		{l.diff, "differences log"},
		{l.copyFail, "copy failures log"},
	}
	for _, h := range headers {
		if err := writeLine(h.f, fmt.Sprintf("# mediasync %s, run %s, started %s", h.kind, runID, stamp)); err != nil {
			l.Close()
			return nil, err
		}
	}

	return l, nil
}

func create(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to create log file: %w", err)
	}
	return f, nil
}

// lineBreaks keeps free text on one line
var lineBreaks = strings.NewReplacer("\r", `\r`, "\n", `\n`)

// writeLine issues a single write per line so lines never interleave.
// Embedded line breaks are escaped and invalid UTF-8 is replaced.
func writeLine(f *os.File, line string) error {
	line = strings.TrimRight(line, "\n")
	line = lineBreaks.Replace(strings.ToValidUTF8(line, "\uFFFD"))
	if _, err := f.WriteString(line + "\n"); err != nil {
		return fmt.Errorf("failed to append to %s: %w", filepath.Base(f.Name()), err)
	}
	return nil
}

// EscapePath returns relPath as it appears in the logs. A path that is not
// valid UTF-8, holds a control character or starts with a double quote is
// written as a Go-quoted string; any other path is written verbatim.
func EscapePath(relPath string) string {
	p := filepath.ToSlash(relPath)
	if utf8.ValidString(p) && !strings.HasPrefix(p, `"`) && strings.IndexFunc(p, unicode.IsControl) < 0 {
		return p
	}
	return strconv.Quote(p)
}

// MainPath returns the main log path
func (l *RunLog) MainPath() string { return l.base + ".log" }

// DiffPath returns the diff log path
func (l *RunLog) DiffPath() string { return l.base + "_diff.log" }

// CopyFailPath returns the copy-fail log path
func (l *RunLog) CopyFailPath() string { return l.base + "_copyfail.log" }

// Record appends "<Outcome>: <relpath>" to the main log and, for Different
// and CopyFailed, to the matching secondary log. The path goes through EscapePath.
func (l *RunLog) Record(outcome models.Outcome, relPath string) error {
	line := fmt.Sprintf("%s: %s", outcome, EscapePath(relPath))

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return os.ErrClosed
	}

	if err := writeLine(l.main, line); err != nil {
		return err
	}
	switch outcome {
	case models.OutcomeDifferent:
		return writeLine(l.diff, line)
	case models.OutcomeCopyFailed:
		return writeLine(l.copyFail, line)
	}
	return nil
}

// Note appends free text to the main log
func (l *RunLog) Note(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return os.ErrClosed
	}
	return writeLine(l.main, text)
}

// Summary appends free text to the main log and, as a "# " comment line,
// to the diff and copy-fail logs so those keep only outcome entries
func (l *RunLog) Summary(text string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return os.ErrClosed
	}
	if err := writeLine(l.main, text); err != nil {
		return err
	}
	for _, f := range []*os.File{l.diff, l.copyFail} {
		if err := writeLine(f, "# "+text); err != nil {
			return err
		}
	}
	return nil
}

// WriteManifest writes lines to "<base>_<name>.md5" and returns the path
func (l *RunLog) WriteManifest(name string, lines []string) (string, error) {
	path := fmt.Sprintf("%s_%s.md5", l.base, name)

	var b strings.Builder
	for _, line := range lines {
		b.WriteString(line)
		b.WriteByte('\n')
	}

	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("failed to write manifest: %w", err)
	}
	return path, nil
}

// Close syncs and closes the three files
func (l *RunLog) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true

	var firstErr error
	for _, f := range []*os.File{l.main, l.diff, l.copyFail} {
		if f == nil {
			continue
		}
		f.Sync()
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
