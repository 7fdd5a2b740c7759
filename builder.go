package logengine

// Builder provides a fluent API over Config, for callers who would
// rather chain setters than build a Config literal by hand.
type Builder struct {
	cfg *Config
	err error
}

// NewBuilder starts from DefaultConfig.
func NewBuilder() *Builder {
	return &Builder{cfg: DefaultConfig()}
}

// Build validates the accumulated Config and constructs an
// un-started Logger around it. Init still needs to be called.
func (b *Builder) Build() (*Logger, error) {
	if b.err != nil {
		return nil, b.err
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}
	return NewLogger(b.cfg), nil
}

// Level sets the numeric log level.
func (b *Builder) Level(level LogLevel) *Builder {
	b.cfg.Level = level
	return b
}

// LevelString sets the log level from a name.
func (b *Builder) LevelString(level string) *Builder {
	if b.err != nil {
		return b
	}
	v, err := Level(level)
	if err != nil {
		b.err = err
		return b
	}
	b.cfg.Level = v
	return b
}

// QueueCapacity sets the record queue's soft admission capacity.
func (b *Builder) QueueCapacity(capacity int64) *Builder {
	b.cfg.QueueCapacity = capacity
	return b
}

// DropOnFull selects the DROP backpressure policy instead of BLOCK.
func (b *Builder) DropOnFull(drop bool) *Builder {
	if drop {
		b.cfg.QueueFullPolicy = "DROP"
	} else {
		b.cfg.QueueFullPolicy = "BLOCK"
	}
	return b
}

// WorkerBatchSize sets how many records the worker drains per cycle.
func (b *Builder) WorkerBatchSize(size int64) *Builder {
	b.cfg.WorkerBatchSize = size
	return b
}

// BufferPoolSize sets the Pool's preallocated Buffer count.
func (b *Builder) BufferPoolSize(size int64) *Builder {
	b.cfg.BufferPoolSize = size
	return b
}

// Console enables or disables the console sink flag. Init builds the
// console Sink from this flag when the sink package has been imported
// (its init() registers the console SinkFactory).
func (b *Builder) Console(enabled bool) *Builder {
	b.cfg.SinkConsoleEnabled = enabled
	return b
}

// File configures the file sink.
func (b *Builder) File(path string, rotate RotatePolicy, maxSizeMB, maxFiles int64) *Builder {
	b.cfg.SinkFileEnabled = true
	b.cfg.SinkFilePath = path
	b.cfg.SinkFileRotatePolicy = rotate.String()
	b.cfg.SinkFileMaxSizeMB = maxSizeMB
	b.cfg.SinkFileMaxFiles = maxFiles
	return b
}

// RetentionAge sets how long rotated files are kept before deletion.
func (b *Builder) RetentionAge(hrs float64) *Builder {
	b.cfg.RetentionPeriodHrs = hrs
	return b
}

// TimeFormat sets the rendered timestamp format.
func (b *Builder) TimeFormat(format string) *Builder {
	b.cfg.TimeFormat = format
	return b
}

// Format selects the rendered wire shape ("txt", "json", or "raw").
func (b *Builder) Format(format string) *Builder {
	b.cfg.Format = format
	return b
}
