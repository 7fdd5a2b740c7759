package sink

import (
	"bufio"
	"io"
	"os"
	"sync"

	"github.com/corvid-systems/logengine"
)

const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorYellow = "\033[33m"
	colorGray   = "\033[90m"
	colorBold   = "\033[1m"
)

// Console writes every record's rendered bytes to an underlying
// writer (stdout or stderr), buffered and mutex-serialized since
// multiple worker fan-out goroutines never call a single sink
// concurrently but Write/Flush/Close still need to agree on one
// buffered writer. When color is enabled, each line is wrapped with
// an ANSI escape selected by the record's level, since the rendered
// buffer itself is produced by a level-agnostic Formatter.
type Console struct {
	mu    sync.Mutex
	w     *bufio.Writer
	color bool
}

// NewConsole builds a Console sink. toStderr selects os.Stderr over
// os.Stdout; color enables ANSI level-colored wrapping.
func NewConsole(toStderr, color bool) *Console {
	var dst io.Writer = os.Stdout
	if toStderr {
		dst = os.Stderr
	}
	return &Console{w: bufio.NewWriterSize(dst, 32*1024), color: color}
}

func (c *Console) Name() string { return "console" }

func (c *Console) Write(rec *logengine.Record) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.color {
		_, err := c.w.Write(rec.Buffer().Bytes())
		return err
	}
	if code := levelColor(rec.Level); code != "" {
		data := rec.Buffer().Bytes()
		trailer := ""
		if n := len(data); n > 0 && data[n-1] == '\n' {
			data, trailer = data[:n-1], "\n"
		}
		if _, err := c.w.WriteString(code); err != nil {
			return err
		}
		if _, err := c.w.Write(data); err != nil {
			return err
		}
		if _, err := c.w.WriteString(colorReset); err != nil {
			return err
		}
		_, err := c.w.WriteString(trailer)
		return err
	}
	_, err := c.w.Write(rec.Buffer().Bytes())
	return err
}

func levelColor(level logengine.LogLevel) string {
	switch level {
	case logengine.LevelError, logengine.LevelFatal:
		return colorBold + colorRed
	case logengine.LevelWarn:
		return colorYellow
	case logengine.LevelDebug:
		return colorGray
	default:
		return ""
	}
}

// WriteBatch loops Write; a single mutex-held bufio.Writer gets no
// benefit from batching writes together.
func (c *Console) WriteBatch(recs []*logengine.Record) error {
	for _, rec := range recs {
		if err := c.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

func (c *Console) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Flush()
}

func (c *Console) Close() error {
	return c.Flush()
}

func (c *Console) RecommendedBatchSize() int { return 0 }

func (c *Console) SupportsAsync() bool { return false }
