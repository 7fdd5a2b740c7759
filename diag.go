package logengine

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// diagnostics is the internal stderr channel named in the error
// handling design: sink init/write errors and rotation errors are
// reported here without propagating up the Submit path. Built once
// per Logger at Init, replacing the source's bespoke
// internalLog/fmt.Fprintf helper with a small zap.Logger writing to
// stderr.
type diagnostics struct {
	log *zap.Logger
}

func newDiagnostics(enabled bool) *diagnostics {
	if !enabled {
		return &diagnostics{log: zap.NewNop()}
	}
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(cfg),
		zapcore.AddSync(os.Stderr),
		zapcore.DebugLevel,
	)
	return &diagnostics{log: zap.New(core)}
}

func (d *diagnostics) sinkInitError(name string, err error) {
	d.log.Error("sink initialize failed", zap.String("sink", name), zap.Error(err))
}

func (d *diagnostics) sinkWriteError(name string, err error) {
	d.log.Error("sink write failed", zap.String("sink", name), zap.Error(err))
}

func (d *diagnostics) rotationError(path string, err error) {
	d.log.Error("rotation failed", zap.String("path", path), zap.Error(err))
}

func (d *diagnostics) stats(msg string, fields ...zap.Field) {
	d.log.Info(msg, fields...)
}

func (d *diagnostics) sync() {
	_ = d.log.Sync()
}
