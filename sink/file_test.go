package sink

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-systems/logengine"
)

func TestFileSinkWritesAppendToLiveFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateNone,
	})
	require.NoError(t, err)
	defer f.Close()

	require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "line-1\n")))
	require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "line-2\n")))
	require.NoError(t, f.Flush())

	data, err := os.ReadFile(f.CurrentPath())
	require.NoError(t, err)
	assert.Equal(t, "line-1\nline-2\n", string(data))
}

func TestFileSinkRotatesOnSizeThreshold(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateSize,
		MaxSizeMB:    0, // threshold computed from bytes below, not MB
	})
	require.NoError(t, err)
	defer f.Close()
	f.maxSizeBytes = 8 // force rotation after a handful of bytes

	firstPath := f.CurrentPath()
	require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "0123456789\n")))

	assert.NotEqual(t, firstPath, f.CurrentPath(), "rotation should open a newly generated live file")
	_, statErr := os.Stat(firstPath)
	assert.NoError(t, statErr, "the file rotated out of should keep the name it was opened with")
	_, statErr = os.Stat(f.CurrentPath())
	assert.NoError(t, statErr, "the new live file should exist under its generated name")

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "expected the rotated-out file plus a fresh live file")
}

func TestFileSinkRetentionKeepsLiveFilePlusMaxFilesMinusOne(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateSize,
		MaxFiles:     3,
	})
	require.NoError(t, err)
	defer f.Close()
	f.maxSizeBytes = 4

	for i := 0; i < 6; i++ {
		require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "xxxxx\n")))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(entries), 3)
}

func TestFileSinkRetentionByAgeRemovesOldArchives(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateSize,
		MaxFiles:     10,
		RetentionAge: time.Millisecond,
	})
	require.NoError(t, err)
	defer f.Close()
	f.maxSizeBytes = 4

	require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "xxxxx\n")))
	time.Sleep(5 * time.Millisecond)
	require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "yyyyy\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	// only the current live file should remain; both rotated-out
	// archives are older than the 1ms retention window by the second write.
	assert.Len(t, entries, 1)
}

func TestFileSinkDailyRotationFallsBackToNumberedSuffixOnCollision(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	// Pre-create the name a plain DAILY rotation would pick, simulating
	// a second same-day rotation racing an already-archived file.
	collidingName := fmt.Sprintf("log_%s.log", now.Format("20060102"))
	require.NoError(t, os.WriteFile(filepath.Join(dir, collidingName), []byte("existing\n"), 0644))

	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateDaily,
	})
	require.NoError(t, err)
	defer f.Close()

	// The initial file for a DAILY policy lands on the same dated name;
	// since that name is taken, it must fall through to a numbered one.
	assert.NotEqual(t, filepath.Join(dir, collidingName), f.CurrentPath())
	assert.FileExists(t, filepath.Join(dir, collidingName))

	data, err := os.ReadFile(filepath.Join(dir, collidingName))
	require.NoError(t, err)
	assert.Equal(t, "existing\n", string(data), "the pre-existing same-day file must not be clobbered")
}

func TestFileSinkRotationErrorIsReportedNotReturned(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateSize,
	})
	require.NoError(t, err)
	defer f.Close()
	f.maxSizeBytes = 4

	var reportedPath string
	var reportedErr error
	f.onRotationError = func(path string, err error) {
		reportedPath, reportedErr = path, err
	}
	// Pre-create a directory at the name the next rotation would pick
	// as its live file, so os.OpenFile fails there regardless of the
	// running user's privileges (unlike a plain permission bit, which
	// root ignores).
	f.rotateCounter++
	collidingName := fmt.Sprintf("%s_%s_%d.%s", f.base, time.Now().Format("20060102_150405"), f.rotateCounter+1, f.ext)
	require.NoError(t, os.Mkdir(filepath.Join(dir, collidingName), 0755))

	err = f.Write(newTestRecord(logengine.LevelInfo, "xxxxxxxxxx\n"))
	assert.NoError(t, err, "a rotation failure must not surface as the write's error")
	assert.Error(t, reportedErr, "the rotation failure should have reached the callback instead")
	assert.NotEmpty(t, reportedPath)
}

func TestFileSinkCompressesRotatedOutFile(t *testing.T) {
	dir := t.TempDir()
	f, err := NewFile(FileOptions{
		Path:         filepath.Join(dir, "log"),
		RotatePolicy: logengine.RotateSize,
		MaxFiles:     10,
		Compress:     logengine.CompressGzip,
	})
	require.NoError(t, err)
	defer f.Close()
	f.maxSizeBytes = 4

	require.NoError(t, f.Write(newTestRecord(logengine.LevelInfo, "xxxxx\n")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var sawGz bool
	for _, e := range entries {
		if filepath.Ext(e.Name()) == ".gz" {
			sawGz = true
		}
	}
	assert.True(t, sawGz, "expected a .gz archive after compression")
}
