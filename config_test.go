package logengine

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/corvid-systems/logengine/formatter"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.Equal(t, PolicyBlock, cfg.BackpressurePolicy())
}

func TestConfigValidateRejectsBadQueuePolicy(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueueFullPolicy = "EXPLODE"
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsFileSinkWithoutPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SinkFileEnabled = true
	cfg.SinkFilePath = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigValidateRejectsHTTPSinkWithoutURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SinkHTTPEnabled = true
	cfg.SinkHTTPURL = ""
	assert.Error(t, cfg.Validate())
}

func TestConfigRotatePolicyParsing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.SinkFileRotatePolicy = "size_and_time"
	assert.Equal(t, RotateSizeAndTime, cfg.RotatePolicy())
}

func TestConfigValidateRejectsBadFormat(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "xml"
	assert.Error(t, cfg.Validate())
}

func TestConfigFormatterTypeParsing(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Format = "json"
	assert.Equal(t, formatter.JSON, cfg.FormatterType())
	cfg.Format = "raw"
	assert.Equal(t, formatter.Raw, cfg.FormatterType())
	cfg.Format = ""
	assert.Equal(t, formatter.Text, cfg.FormatterType())
}

func TestConfigCloneIsIndependentCopy(t *testing.T) {
	cfg := DefaultConfig()
	clone := cfg.Clone()
	clone.Level = LevelDebug
	assert.Equal(t, LevelInfo, cfg.Level)
	assert.Equal(t, LevelDebug, clone.Level)
}

func TestSaveAndLoadConfigFileRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")

	cfg := DefaultConfig()
	cfg.Level = LevelWarn
	cfg.SinkFileEnabled = true
	cfg.SinkFilePath = filepath.Join(dir, "log")

	require.NoError(t, SaveConfigFile(cfg, path))

	loaded, err := LoadConfigFile(path)
	require.NoError(t, err)
	assert.Equal(t, LevelWarn, loaded.Level)
	assert.True(t, loaded.SinkFileEnabled)
	assert.Equal(t, cfg.SinkFilePath, loaded.SinkFilePath)
}

func TestRequiresRestartOnlyIgnoresLevel(t *testing.T) {
	a := DefaultConfig()
	b := a.Clone()
	b.Level = LevelError
	assert.False(t, requiresRestart(a, b))

	c := a.Clone()
	c.WorkerBatchSize = a.WorkerBatchSize + 1
	assert.True(t, requiresRestart(a, c))
}
