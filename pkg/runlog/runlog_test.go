package runlog

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdejongh/mediasync/pkg/models"
)

var testStart = time.Date(2024, 3, 9, 14, 5, 7, 0, time.UTC)

const testRunID = "0f8e2c1a-5b6d-4e7f-8a9b-0c1d2e3f4a5b"

func lines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

func openTestLog(t *testing.T) *RunLog {
	t.Helper()
	l, err := Open(t.TempDir(), "mediasync", testStart, testRunID)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestBaseName(t *testing.T) {
	assert.Equal(t, "mediasync_20240309_140507_0f8e2c1a", BaseName("mediasync", testStart, testRunID))
	assert.Equal(t, "x_20240309_140507_abc", BaseName("x", testStart, "abc"))
	assert.Equal(t, "x_20240309_140507", BaseName("x", testStart, ""))
}

func TestOpen(t *testing.T) {
	t.Run("CreatesThreeLogsWithHeaders", func(t *testing.T) {
		l := openTestLog(t)

		assert.True(t, strings.HasSuffix(l.MainPath(), "mediasync_20240309_140507_0f8e2c1a.log"))
		assert.True(t, strings.HasSuffix(l.DiffPath(), "_diff.log"))
		assert.True(t, strings.HasSuffix(l.CopyFailPath(), "_copyfail.log"))

		for _, p := range []string{l.MainPath(), l.DiffPath(), l.CopyFailPath()} {
			got := lines(t, p)
			require.Len(t, got, 1)
			assert.True(t, strings.HasPrefix(got[0], "# mediasync "))
			assert.Contains(t, got[0], testRunID)
		}
	})

	t.Run("CreatesDirectory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "state", "logs")
		l, err := Open(dir, "mediasync", testStart, testRunID)
		require.NoError(t, err)
		defer l.Close()
		assert.DirExists(t, dir)
	})

	t.Run("RefusesToReuseExistingLog", func(t *testing.T) {
		dir := t.TempDir()
		first, err := Open(dir, "mediasync", testStart, testRunID)
		require.NoError(t, err)
		defer first.Close()

		_, err = Open(dir, "mediasync", testStart, testRunID)
		assert.Error(t, err)
	})
}

func TestRecord(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.Record(models.OutcomeSame, "a.txt"))
	require.NoError(t, l.Record(models.OutcomeDifferent, filepath.Join("sub", "b.txt")))
	require.NoError(t, l.Record(models.OutcomeCopyFailed, "c.txt"))
	require.NoError(t, l.Record(models.OutcomeMissing, "d.txt"))

	assert.Equal(t, []string{"Same: a.txt", "Different: sub/b.txt", "CopyFailed: c.txt", "Missing: d.txt"}, lines(t, l.MainPath())[1:])
	assert.Equal(t, []string{"Different: sub/b.txt"}, lines(t, l.DiffPath())[1:])
	assert.Equal(t, []string{"CopyFailed: c.txt"}, lines(t, l.CopyFailPath())[1:])
}

func TestEscapePath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"a.txt", "a.txt"},
		{filepath.Join("album", "été.jpg"), "album/été.jpg"},
		{"with space.txt", "with space.txt"},
		{"bad\xff.txt", `"bad\xff.txt"`},
		{"two\nlines.txt", `"two\nlines.txt"`},
		{"cr\r.txt", `"cr\r.txt"`},
		{`"quoted".txt`, `"\"quoted\".txt"`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, EscapePath(tt.in), "%q", tt.in)
	}
}

func TestRecordKeepsOneValidLinePerEvent(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.Record(models.OutcomeSame, "bad\xff.txt"))
	require.NoError(t, l.Record(models.OutcomeDifferent, "two\nlines.txt"))
	require.NoError(t, l.Note("ScanError: locked\ndir: permission denied \xfe"))

	data, err := os.ReadFile(l.MainPath())
	require.NoError(t, err)
	assert.True(t, utf8.Valid(data))

	assert.Equal(t, []string{
		`Same: "bad\xff.txt"`,
		`Different: "two\nlines.txt"`,
		"ScanError: locked\\ndir: permission denied \uFFFD",
	}, lines(t, l.MainPath())[1:])
	assert.Equal(t, []string{`Different: "two\nlines.txt"`}, lines(t, l.DiffPath())[1:])
}

func TestNoteAndSummary(t *testing.T) {
	l := openTestLog(t)

	require.NoError(t, l.Note("Directory sub: 2 files"))
	require.NoError(t, l.Summary("Summary: 2 files"))

	assert.Equal(t, []string{"Directory sub: 2 files", "Summary: 2 files"}, lines(t, l.MainPath())[1:])
	assert.Equal(t, []string{"# Summary: 2 files"}, lines(t, l.DiffPath())[1:])
	assert.Equal(t, []string{"# Summary: 2 files"}, lines(t, l.CopyFailPath())[1:])
}

func TestWriteManifest(t *testing.T) {
	l := openTestLog(t)

	path, err := l.WriteManifest("source", []string{"aaa  a.txt", "bbb  sub/b.txt"})
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "_0f8e2c1a_source.md5"))
	assert.Equal(t, []string{"aaa  a.txt", "bbb  sub/b.txt"}, lines(t, path))
}

func TestClose(t *testing.T) {
	l := openTestLog(t)
	require.NoError(t, l.Close())
	require.NoError(t, l.Close())

	assert.ErrorIs(t, l.Record(models.OutcomeSame, "late.txt"), os.ErrClosed)
	assert.ErrorIs(t, l.Note("late"), os.ErrClosed)
	assert.ErrorIs(t, l.Summary("late"), os.ErrClosed)
}

func TestConcurrentRecord(t *testing.T) {
	l := openTestLog(t)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				outcome := models.OutcomeSame
				if i%5 == 0 {
					outcome = models.OutcomeDifferent
				}
				assert.NoError(t, l.Record(outcome, fmt.Sprintf("w%d/file-%03d.bin", w, i)))
			}
		}(w)
	}
	wg.Wait()
	require.NoError(t, l.Close())

	mainLines := lines(t, l.MainPath())[1:]
	require.Len(t, mainLines, 400)
	for _, line := range mainLines {
		assert.Regexp(t, `^(Same|Different): w\d/file-\d{3}\.bin$`, line)
	}
	assert.Len(t, lines(t, l.DiffPath())[1:], 80)
}
