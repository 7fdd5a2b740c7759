// Package formatter renders a Record's fields and payload arguments
// into a sink's output format. It has no dependency on the engine
// package: it writes to any io.Writer, which lets the engine's Buffer
// type (which already implements io.Writer) be the render target
// without an import cycle between the two packages.
package formatter

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
	"unicode/utf8"

	"github.com/corvid-systems/logengine/sanitizer"
)

// Type selects the rendered wire shape.
type Type string

const (
	Text Type = "txt"
	JSON Type = "json"
	Raw  Type = "raw"
)

// Formatter renders one log line per call. It caches the formatted
// timestamp for the last whole second seen, since a busy producer
// submits many records within the same second and re-running
// time.Format on every one of them is pure waste.
type Formatter struct {
	sanitizer  *sanitizer.Sanitizer
	kind       Type
	timeFormat string

	lastSec     int64
	lastSecText []byte
}

// New creates a Formatter. A nil sanitizer becomes a no-op passthrough.
func New(kind Type, timeFormat string, san *sanitizer.Sanitizer) *Formatter {
	if san == nil {
		san = sanitizer.New()
	}
	if timeFormat == "" {
		timeFormat = "2006-01-02 15:04:05"
	}
	return &Formatter{sanitizer: san, kind: kind, timeFormat: timeFormat}
}

// Render writes one formatted line for a data record: time, level,
// thread-id hash, source location and the payload arguments.
func (f *Formatter) Render(buf []byte, timeNS int64, levelName string, tidHash uint64, file string, line uint32, args []any) []byte {
	switch f.kind {
	case JSON:
		return f.renderJSON(buf, timeNS, levelName, tidHash, file, line, args)
	case Raw:
		return f.renderRaw(buf, args)
	default:
		return f.renderText(buf, timeNS, levelName, tidHash, file, line, args)
	}
}

func (f *Formatter) timeText(timeNS int64) []byte {
	sec := timeNS / int64(time.Second)
	if sec == f.lastSec && f.lastSecText != nil {
		return f.lastSecText
	}
	t := time.Unix(sec, 0).UTC()
	text := t.AppendFormat(nil, f.timeFormat)
	f.lastSec = sec
	f.lastSecText = text
	return text
}

func (f *Formatter) renderText(buf []byte, timeNS int64, levelName string, tidHash uint64, file string, line uint32, args []any) []byte {
	buf = append(buf, f.timeText(timeNS)...)
	buf = append(buf, ' ')
	buf = append(buf, levelName...)
	buf = append(buf, ' ')
	buf = strconv.AppendUint(buf, tidHash, 16)
	if file != "" {
		buf = append(buf, ' ')
		buf = append(buf, file...)
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, uint64(line), 10)
	}
	ser := sanitizer.NewSerializer(string(Text), f.sanitizer)
	for _, a := range args {
		buf = append(buf, ' ')
		buf = f.convertValue(buf, a, ser)
	}
	buf = append(buf, '\n')
	return buf
}

func (f *Formatter) renderRaw(buf []byte, args []any) []byte {
	for i, a := range args {
		if i > 0 {
			buf = append(buf, ' ')
		}
		switch v := a.(type) {
		case string:
			buf = append(buf, v...)
		case []byte:
			buf = append(buf, v...)
		case fmt.Stringer:
			buf = append(buf, v.String()...)
		case error:
			buf = append(buf, v.Error()...)
		default:
			buf = append(buf, fmt.Sprint(v)...)
		}
	}
	return buf
}

func (f *Formatter) renderJSON(buf []byte, timeNS int64, levelName string, tidHash uint64, file string, line uint32, args []any) []byte {
	buf = append(buf, '{')
	buf = append(buf, `"time":"`...)
	buf = append(buf, f.timeText(timeNS)...)
	buf = append(buf, `","level":"`...)
	buf = append(buf, levelName...)
	buf = append(buf, `","tid":"`...)
	buf = strconv.AppendUint(buf, tidHash, 16)
	buf = append(buf, '"')
	if file != "" {
		buf = append(buf, `,"src":"`...)
		buf = append(buf, file...)
		buf = append(buf, ':')
		buf = strconv.AppendUint(buf, uint64(line), 10)
		buf = append(buf, '"')
	}
	if len(args) == 2 {
		if msg, ok := args[0].(string); ok {
			if fields, ok := args[1].(map[string]any); ok {
				buf = append(buf, `,"message":`...)
				ser := sanitizer.NewSerializer(string(JSON), f.sanitizer)
				buf = f.convertValue(buf, msg, ser)
				buf = append(buf, `,"fields":`...)
				encoded, err := json.Marshal(fields)
				if err != nil {
					buf = append(buf, `{"_marshal_error":`...)
					buf = f.convertValue(buf, err.Error(), ser)
					buf = append(buf, '}')
				} else {
					buf = append(buf, encoded...)
				}
				buf = append(buf, '}', '\n')
				return buf
			}
		}
	}
	if len(args) > 0 {
		buf = append(buf, `,"fields":[`...)
		ser := sanitizer.NewSerializer(string(JSON), f.sanitizer)
		for i, a := range args {
			if i > 0 {
				buf = append(buf, ',')
			}
			buf = f.convertValue(buf, a, ser)
		}
		buf = append(buf, ']')
	}
	buf = append(buf, '}', '\n')
	return buf
}

func (f *Formatter) convertValue(buf []byte, v any, ser *sanitizer.Serializer) []byte {
	switch val := v.(type) {
	case string:
		return ser.WriteString(buf, val)
	case []byte:
		return ser.WriteString(buf, string(val))
	case rune:
		var rb [utf8.UTFMax]byte
		n := utf8.EncodeRune(rb[:], val)
		return ser.WriteString(buf, string(rb[:n]))
	case int:
		return ser.WriteNumber(buf, strconv.AppendInt(nil, int64(val), 10))
	case int64:
		return ser.WriteNumber(buf, strconv.AppendInt(nil, val, 10))
	case uint:
		return ser.WriteNumber(buf, strconv.AppendUint(nil, uint64(val), 10))
	case uint64:
		return ser.WriteNumber(buf, strconv.AppendUint(nil, val, 10))
	case float32:
		return ser.WriteNumber(buf, strconv.AppendFloat(nil, float64(val), 'f', -1, 32))
	case float64:
		return ser.WriteNumber(buf, strconv.AppendFloat(nil, val, 'f', -1, 64))
	case bool:
		return ser.WriteBool(buf, val)
	case nil:
		return ser.WriteNil(buf)
	case time.Time:
		return ser.WriteString(buf, val.Format(f.timeFormat))
	case error:
		return ser.WriteString(buf, val.Error())
	case fmt.Stringer:
		return ser.WriteString(buf, val.String())
	default:
		return ser.WriteComplex(buf, val)
	}
}
