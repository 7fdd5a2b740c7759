package logengine

import (
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/corvid-systems/logengine/formatter"
)

// Config is the flat configuration surface described in the external
// interfaces design. Core components (Pool, Queue, worker, File sink)
// only ever consume an already-validated *Config; loading it from a
// file or from ad-hoc overrides is ambient tooling layered on top,
// mirroring the source's ConfigManager and the teacher's config.go
// fed by an external loader.
type Config struct {
	Level LogLevel `toml:"level"`

	Format     string `toml:"format"` // txt|json|raw
	TimeFormat string `toml:"time_format"`

	QueueCapacity       int64  `toml:"queue_capacity"`
	QueueFullPolicy     string `toml:"queue_full_policy"` // BLOCK | DROP
	QueueBlockTimeoutUS int64  `toml:"queue_block_timeout_us"`

	WorkerBatchSize int64 `toml:"worker_batch_size"`

	BufferPoolSize     int64 `toml:"buffer_pool_size"`
	BufferPoolTLSCache int64 `toml:"buffer_pool_tls_cache"`

	SinkConsoleEnabled bool `toml:"sink_console_enabled"`
	SinkConsoleColor   bool `toml:"sink_console_color"`

	SinkFileEnabled      bool   `toml:"sink_file_enabled"`
	SinkFilePath         string `toml:"sink_file_path"`
	SinkFileBufferKB     int64  `toml:"sink_file_buffer_kb"`
	SinkFileRotatePolicy string `toml:"sink_file_rotate_policy"` // NONE|DAILY|SIZE|SIZE_AND_TIME
	SinkFileMaxSizeMB    int64  `toml:"sink_file_max_size_mb"`
	SinkFileMaxFiles     int64  `toml:"sink_file_max_files"`
	SinkFileCompress     string `toml:"sink_file_compress"` // none|gzip|brotli
	SinkFileSyncOnWrite  bool   `toml:"sink_file_sync_on_write"`

	RetentionPeriodHrs float64 `toml:"retention_period_hrs"`
	RetentionCheckMins float64 `toml:"retention_check_mins"`

	SinkHTTPEnabled     bool   `toml:"sink_http_enabled"`
	SinkHTTPURL         string `toml:"sink_http_url"`
	SinkHTTPEndpoint    string `toml:"sink_http_endpoint"`
	SinkHTTPContentType string `toml:"sink_http_content_type"`
	SinkHTTPTimeoutSec  int64  `toml:"sink_http_timeout_sec"`
	SinkHTTPMaxRetries  int64  `toml:"sink_http_max_retries"`
	SinkHTTPBatchSize   int64  `toml:"sink_http_batch_size"`
	SinkHTTPCompress    string `toml:"sink_http_compress"` // none|gzip|brotli

	ReloadIntervalMs int64 `toml:"reload_interval_ms"`

	InternalDiagnostics bool  `toml:"internal_diagnostics"`
	HeartbeatIntervalS  int64 `toml:"heartbeat_interval_s"` // 0 disables the stats reporter
}

var defaultConfig = Config{
	Level: LevelInfo,

	Format:     "txt",
	TimeFormat: "2006-01-02 15:04:05",

	QueueCapacity:       DefaultQueueCapacity,
	QueueFullPolicy:     "BLOCK",
	QueueBlockTimeoutUS: 5000,

	WorkerBatchSize: DefaultBatchSize,

	BufferPoolSize:     DefaultPoolSize,
	BufferPoolTLSCache: DefaultLocalCacheSize,

	SinkConsoleEnabled: true,
	SinkConsoleColor:   true,

	SinkFileEnabled:      false,
	SinkFilePath:         "./logs/log",
	SinkFileBufferKB:     32,
	SinkFileRotatePolicy: "NONE",
	SinkFileMaxSizeMB:    100,
	SinkFileMaxFiles:     10,
	SinkFileCompress:     "none",
	SinkFileSyncOnWrite:  false,

	RetentionPeriodHrs: 0,
	RetentionCheckMins: 60,

	SinkHTTPEnabled:     false,
	SinkHTTPContentType: "application/json",
	SinkHTTPTimeoutSec:  5,
	SinkHTTPMaxRetries:  3,
	SinkHTTPBatchSize:   256,
	SinkHTTPCompress:    "none",

	ReloadIntervalMs: 1000,

	InternalDiagnostics: true,
	HeartbeatIntervalS:  0,
}

// DefaultConfig returns a copy of the built-in defaults.
func DefaultConfig() *Config {
	c := defaultConfig
	return &c
}

// Clone returns a deep copy (the struct is flat, so a value copy
// suffices).
func (c *Config) Clone() *Config {
	cp := *c
	return &cp
}

// LoadConfigFile loads a TOML document into a fresh Config seeded
// from defaults, then validates it. Replaces the source's private
// lixenwraith/config dependency (unavailable in this environment)
// with BurntSushi/toml, already present in the teacher's own
// dependency closure.
func LoadConfigFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmtErrorf("failed to load config from %q: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveConfigFile writes cfg out as TOML, the inverse of LoadConfigFile.
func SaveConfigFile(cfg *Config, path string) error {
	return writeTOMLFile(cfg, path)
}

// BackpressurePolicy parses QueueFullPolicy.
func (c *Config) BackpressurePolicy() BackpressurePolicy {
	if strings.EqualFold(c.QueueFullPolicy, "DROP") {
		return PolicyDrop
	}
	return PolicyBlock
}

// RotatePolicy parses SinkFileRotatePolicy.
func (c *Config) RotatePolicy() RotatePolicy {
	switch strings.ToUpper(strings.TrimSpace(c.SinkFileRotatePolicy)) {
	case "DAILY":
		return RotateDaily
	case "SIZE":
		return RotateSize
	case "SIZE_AND_TIME":
		return RotateSizeAndTime
	default:
		return RotateNone
	}
}

// FormatterType parses Format.
func (c *Config) FormatterType() formatter.Type {
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "json":
		return formatter.JSON
	case "raw":
		return formatter.Raw
	default:
		return formatter.Text
	}
}

// FileCompression parses SinkFileCompress.
func (c *Config) FileCompression() CompressionCodec {
	return parseCompressionCodec(c.SinkFileCompress)
}

// HTTPCompression parses SinkHTTPCompress.
func (c *Config) HTTPCompression() CompressionCodec {
	return parseCompressionCodec(c.SinkHTTPCompress)
}

func parseCompressionCodec(s string) CompressionCodec {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "gzip":
		return CompressGzip
	case "brotli":
		return CompressBrotli
	default:
		return CompressNone
	}
}

// Validate enforces the invariants enumerated in the external
// interfaces design; it is run on every ApplyConfig and LoadConfigFile
// call.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Format)) {
	case "txt", "json", "raw", "":
	default:
		return fmtErrorf("invalid format: %q (use txt, json, or raw)", c.Format)
	}
	if strings.TrimSpace(c.TimeFormat) == "" {
		return fmtErrorf("time_format cannot be empty")
	}
	switch strings.ToUpper(strings.TrimSpace(c.QueueFullPolicy)) {
	case "BLOCK", "DROP":
	default:
		return fmtErrorf("invalid queue_full_policy: %q (use BLOCK or DROP)", c.QueueFullPolicy)
	}
	if c.QueueCapacity < 0 {
		return fmtErrorf("queue_capacity cannot be negative")
	}
	if c.QueueBlockTimeoutUS <= 0 {
		return fmtErrorf("queue_block_timeout_us must be positive")
	}
	if c.WorkerBatchSize <= 0 {
		return fmtErrorf("worker_batch_size must be positive")
	}
	if c.BufferPoolSize <= 0 {
		return fmtErrorf("buffer_pool_size must be positive")
	}
	if c.BufferPoolTLSCache <= 0 {
		return fmtErrorf("buffer_pool_tls_cache must be positive")
	}
	switch strings.ToUpper(strings.TrimSpace(c.SinkFileRotatePolicy)) {
	case "NONE", "DAILY", "SIZE", "SIZE_AND_TIME":
	default:
		return fmtErrorf("invalid sink_file_rotate_policy: %q", c.SinkFileRotatePolicy)
	}
	if c.SinkFileEnabled && strings.TrimSpace(c.SinkFilePath) == "" {
		return fmtErrorf("sink_file_path cannot be empty when sink_file_enabled is true")
	}
	if c.SinkFileMaxSizeMB < 0 {
		return fmtErrorf("sink_file_max_size_mb cannot be negative")
	}
	if c.SinkFileMaxFiles < 0 {
		return fmtErrorf("sink_file_max_files cannot be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.SinkFileCompress)) {
	case "none", "gzip", "brotli", "":
	default:
		return fmtErrorf("invalid sink_file_compress: %q (use none, gzip, or brotli)", c.SinkFileCompress)
	}
	switch strings.ToLower(strings.TrimSpace(c.SinkHTTPCompress)) {
	case "none", "gzip", "brotli", "":
	default:
		return fmtErrorf("invalid sink_http_compress: %q (use none, gzip, or brotli)", c.SinkHTTPCompress)
	}
	if c.SinkHTTPEnabled && strings.TrimSpace(c.SinkHTTPURL) == "" {
		return fmtErrorf("sink_http_url cannot be empty when sink_http_enabled is true")
	}
	if c.SinkHTTPTimeoutSec <= 0 {
		return fmtErrorf("sink_http_timeout_sec must be positive")
	}
	if c.SinkHTTPMaxRetries < 0 {
		return fmtErrorf("sink_http_max_retries cannot be negative")
	}
	if c.SinkHTTPBatchSize <= 0 {
		return fmtErrorf("sink_http_batch_size must be positive")
	}
	if c.RetentionPeriodHrs < 0 || c.RetentionCheckMins < 0 {
		return fmtErrorf("retention settings cannot be negative")
	}
	if c.ReloadIntervalMs <= 0 {
		return fmtErrorf("reload_interval_ms must be positive")
	}
	if c.HeartbeatIntervalS < 0 {
		return fmtErrorf("heartbeat_interval_s cannot be negative")
	}
	return nil
}

// requiresRestart reports whether moving from old to new needs the
// worker and sinks torn down and rebuilt. Per the source's explicit,
// narrow hot-reload contract, only Level is ever honored live; every
// other field takes effect on the next Init/ApplyConfig.
func requiresRestart(old, new *Config) bool {
	oldCopy, newCopy := *old, *new
	oldCopy.Level, newCopy.Level = 0, 0
	return oldCopy != newCopy
}

// blockTimeout converts QueueBlockTimeoutUS to a time.Duration.
func (c *Config) blockTimeout() time.Duration {
	return time.Duration(c.QueueBlockTimeoutUS) * time.Microsecond
}

func writeTOMLFile(cfg *Config, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmtErrorf("failed to open %q for writing config: %w", path, err)
	}
	defer f.Close()
	enc := toml.NewEncoder(f)
	if err := enc.Encode(cfg); err != nil {
		return fmtErrorf("failed to encode config to %q: %w", path, err)
	}
	return nil
}
