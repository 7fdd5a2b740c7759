// Package sanitizer sanitizes text embedded in a rendered log line so
// that control characters and (for shell-bound text) metacharacters
// cannot smuggle terminal escape sequences or command injection
// through a logged payload.
package sanitizer

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"strconv"
	"unicode"
	"unicode/utf8"

	"github.com/davecgh/go-spew/spew"
)

// Filter flags select which runes a rule matches.
const (
	FilterNonPrintable uint64 = 1 << iota
	FilterControl
	FilterWhitespace
	FilterShellSpecial
)

// Transform flags select what happens to a matched rune.
const (
	TransformStrip uint64 = 1 << iota
	TransformHexEncode
	TransformJSONEscape
)

// PolicyPreset names a pre-built rule set.
type PolicyPreset string

const (
	PolicyRaw   PolicyPreset = "raw"
	PolicyJSON  PolicyPreset = "json"
	PolicyTxt   PolicyPreset = "txt"
	PolicyShell PolicyPreset = "shell"
)

type rule struct {
	filter    uint64
	transform uint64
}

var policyRules = map[PolicyPreset][]rule{
	PolicyRaw:   {},
	PolicyTxt:   {{filter: FilterNonPrintable, transform: TransformHexEncode}},
	PolicyJSON:  {{filter: FilterControl, transform: TransformJSONEscape}},
	PolicyShell: {{filter: FilterShellSpecial | FilterWhitespace, transform: TransformStrip}},
}

var filterCheckers = map[uint64]func(rune) bool{
	FilterNonPrintable: func(r rune) bool { return !strconv.IsPrint(r) },
	FilterControl:      unicode.IsControl,
	FilterWhitespace:   unicode.IsSpace,
	FilterShellSpecial: func(r rune) bool {
		switch r {
		case '`', '$', ';', '|', '&', '>', '<', '(', ')', '#':
			return true
		}
		return false
	},
}

// Sanitizer applies an ordered set of filter/transform rules to text.
type Sanitizer struct {
	rules []rule
	buf   []byte
}

// New creates a passthrough Sanitizer with no rules.
func New() *Sanitizer {
	return &Sanitizer{buf: make([]byte, 0, 256)}
}

// Rule appends a custom filter/transform rule.
func (s *Sanitizer) Rule(filter, transform uint64) *Sanitizer {
	s.rules = append(s.rules, rule{filter: filter, transform: transform})
	return s
}

// Policy appends a named preset's rules.
func (s *Sanitizer) Policy(preset PolicyPreset) *Sanitizer {
	s.rules = append(s.rules, policyRules[preset]...)
	return s
}

// Sanitize applies every rule to data, first match wins per rune.
func (s *Sanitizer) Sanitize(data string) string {
	s.buf = s.buf[:0]
	for _, r := range data {
		matched := false
		for _, rl := range s.rules {
			if matchesFilter(r, rl.filter) {
				applyTransform(&s.buf, r, rl.transform)
				matched = true
				break
			}
		}
		if !matched {
			s.buf = utf8.AppendRune(s.buf, r)
		}
	}
	return string(s.buf)
}

func matchesFilter(r rune, filterMask uint64) bool {
	for flag, checker := range filterCheckers {
		if (filterMask&flag) != 0 && checker(r) {
			return true
		}
	}
	return false
}

func applyTransform(buf *[]byte, r rune, transformMask uint64) {
	switch {
	case transformMask&TransformStrip != 0:
	case transformMask&TransformHexEncode != 0:
		var rb [utf8.UTFMax]byte
		n := utf8.EncodeRune(rb[:], r)
		*buf = append(*buf, '<')
		*buf = append(*buf, hex.EncodeToString(rb[:n])...)
		*buf = append(*buf, '>')
	case transformMask&TransformJSONEscape != 0:
		switch r {
		case '\n':
			*buf = append(*buf, '\\', 'n')
		case '\r':
			*buf = append(*buf, '\\', 'r')
		case '\t':
			*buf = append(*buf, '\\', 't')
		case '\b':
			*buf = append(*buf, '\\', 'b')
		case '\f':
			*buf = append(*buf, '\\', 'f')
		case '"':
			*buf = append(*buf, '\\', '"')
		case '\\':
			*buf = append(*buf, '\\', '\\')
		default:
			if r < 0x20 || r == 0x7f {
				*buf = append(*buf, fmt.Sprintf("\\u%04x", r)...)
			} else {
				*buf = utf8.AppendRune(*buf, r)
			}
		}
	}
}

// Serializer writes values into a growing []byte with format-specific
// quoting/escaping rules (txt, json, or raw).
type Serializer struct {
	format    string
	sanitizer *Sanitizer
}

// NewSerializer creates a Serializer bound to a format and Sanitizer.
func NewSerializer(format string, san *Sanitizer) *Serializer {
	return &Serializer{format: format, sanitizer: san}
}

// WriteString appends s, sanitized and quoted per the Serializer's format.
func (se *Serializer) WriteString(buf []byte, s string) []byte {
	switch se.format {
	case "raw":
		return append(buf, se.sanitizer.Sanitize(s)...)
	case "txt":
		sanitized := se.sanitizer.Sanitize(s)
		if !se.NeedsQuotes(sanitized) {
			return append(buf, sanitized...)
		}
		buf = append(buf, '"')
		for i := 0; i < len(sanitized); i++ {
			if sanitized[i] == '"' || sanitized[i] == '\\' {
				buf = append(buf, '\\')
			}
			buf = append(buf, sanitized[i])
		}
		return append(buf, '"')
	case "json":
		buf = append(buf, '"')
		for i := 0; i < len(s); {
			c := s[i]
			if c >= ' ' && c != '"' && c != '\\' && c < 0x7f {
				start := i
				for i < len(s) && s[i] >= ' ' && s[i] != '"' && s[i] != '\\' && s[i] < 0x7f {
					i++
				}
				buf = append(buf, s[start:i]...)
				continue
			}
			switch c {
			case '\\', '"':
				buf = append(buf, '\\', c)
			case '\n':
				buf = append(buf, '\\', 'n')
			case '\r':
				buf = append(buf, '\\', 'r')
			case '\t':
				buf = append(buf, '\\', 't')
			case '\b':
				buf = append(buf, '\\', 'b')
			case '\f':
				buf = append(buf, '\\', 'f')
			default:
				buf = append(buf, fmt.Sprintf("\\u%04x", c)...)
			}
			i++
		}
		return append(buf, '"')
	default:
		return append(buf, s...)
	}
}

// WriteNumber appends a pre-formatted numeric literal unchanged.
func (se *Serializer) WriteNumber(buf []byte, n []byte) []byte {
	return append(buf, n...)
}

// WriteBool appends "true"/"false".
func (se *Serializer) WriteBool(buf []byte, b bool) []byte {
	return strconv.AppendBool(buf, b)
}

// WriteNil appends the format-appropriate null literal.
func (se *Serializer) WriteNil(buf []byte) []byte {
	if se.format == "raw" {
		return append(buf, "nil"...)
	}
	return append(buf, "null"...)
}

// WriteComplex appends a fallback rendering of an arbitrary value: a
// go-spew dump for raw/debugging output, %+v everywhere else.
func (se *Serializer) WriteComplex(buf []byte, v any) []byte {
	if se.format == "raw" {
		var b bytes.Buffer
		dumper := &spew.ConfigState{
			Indent:                  " ",
			MaxDepth:                10,
			DisablePointerAddresses: true,
			DisableCapacities:       true,
			SortKeys:                true,
		}
		dumper.Fdump(&b, v)
		return append(buf, bytes.TrimSpace(b.Bytes())...)
	}
	return se.WriteString(buf, fmt.Sprintf("%+v", v))
}

// NeedsQuotes reports whether s requires quoting under the
// Serializer's format to round-trip unambiguously.
func (se *Serializer) NeedsQuotes(s string) bool {
	switch se.format {
	case "json":
		return true
	case "txt":
		if len(s) == 0 {
			return true
		}
		for _, r := range s {
			if unicode.IsSpace(r) {
				return true
			}
			switch r {
			case '"', '\'', '\\', '$', '`', '!', '&', '|', ';',
				'(', ')', '<', '>', '*', '?', '[', ']', '{', '}',
				'~', '#', '%', '=', '\n', '\r', '\t':
				return true
			}
			if !unicode.IsPrint(r) {
				return true
			}
		}
		return false
	default:
		return false
	}
}
