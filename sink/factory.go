package sink

import (
	"time"

	"github.com/corvid-systems/logengine"
)

// Importing this package registers the console/file/http SinkFactory
// implementations with logengine, the way importing a database/sql
// driver package registers it with sql.Open: the host package never
// needs to see these concrete types, only the side effect of init().
func init() {
	logengine.RegisterSinkFactory("console", newConsoleFromConfig)
	logengine.RegisterSinkFactory("file", newFileFromConfig)
	logengine.RegisterSinkFactory("http", newHTTPFromConfig)
}

func newConsoleFromConfig(cfg *logengine.Config, l *logengine.Logger) (logengine.Sink, error) {
	if !cfg.SinkConsoleEnabled {
		return nil, nil
	}
	return NewConsole(false, cfg.SinkConsoleColor), nil
}

func newFileFromConfig(cfg *logengine.Config, l *logengine.Logger) (logengine.Sink, error) {
	if !cfg.SinkFileEnabled {
		return nil, nil
	}
	return NewFile(FileOptions{
		Path:         cfg.SinkFilePath,
		RotatePolicy: cfg.RotatePolicy(),
		MaxSizeMB:    cfg.SinkFileMaxSizeMB,
		MaxFiles:     int(cfg.SinkFileMaxFiles),
		Compress:     cfg.FileCompression(),
		SyncOnWrite:  cfg.SinkFileSyncOnWrite,
		RetentionAge: time.Duration(cfg.RetentionPeriodHrs * float64(time.Hour)),
		BufferKB:     cfg.SinkFileBufferKB,

		OnRotate:         l.ReportRotation,
		OnRetentionSweep: l.ReportRetentionSweep,
		OnPathChange:     l.ReportCurrentFilePath,
		OnRotationError:  l.ReportRotationError,
	})
}

func newHTTPFromConfig(cfg *logengine.Config, l *logengine.Logger) (logengine.Sink, error) {
	if !cfg.SinkHTTPEnabled {
		return nil, nil
	}
	return NewHTTP(HTTPOptions{
		URL:         cfg.SinkHTTPURL,
		ContentType: cfg.SinkHTTPContentType,
		Timeout:     time.Duration(cfg.SinkHTTPTimeoutSec) * time.Second,
		MaxRetries:  int(cfg.SinkHTTPMaxRetries),
		BatchSize:   int(cfg.SinkHTTPBatchSize),
		Compress:    cfg.HTTPCompression(),
	})
}
