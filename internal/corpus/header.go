package corpus

import (
	"bytes"
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/roach88/seqscore/internal/ir"
)

// Header keys. Matching is case-insensitive; rewrites keep the spelling
// found in the fixture.
const (
	KeyID          = "ID"
	KeyPrompt      = "Prompt"
	KeyCombination = "Combination"
	KeyStrategy    = "Strategy"
	KeyScore       = "score"
	KeyQuality     = "Quality"
)

var headerKeys = []string{KeyID, KeyPrompt, KeyCombination, KeyStrategy, KeyScore, KeyQuality}

// headerLine matches "// Key: value" and " * Key: value" comment lines.
var headerLine = regexp.MustCompile(`^(\s*(?://+|/\*+|\*)\s*)([A-Za-z_]+)(\s*:[ \t]*)(.*?)(\s*\*/)?\s*$`)

// HeaderError reports a malformed fixture header.
type HeaderError struct {
	Line    int
	Key     string
	Message string
}

func (e *HeaderError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("header line %d: %s: %s", e.Line, e.Key, e.Message)
	}
	return fmt.Sprintf("header: %s: %s", e.Key, e.Message)
}

// IsHeaderError returns true if err is a HeaderError.
func IsHeaderError(err error) bool {
	var he *HeaderError
	return errors.As(err, &he)
}

// field locates one header value inside the source.
type field struct {
	key    string // canonical key
	line   int    // 0-based line index
	prefix string // bytes before the value, including the key
	suffix string // bytes after the value, including the line ending
}

// Header is the metadata block at the top of a fixture.
type Header struct {
	ID          int64
	HasID       bool
	Prompt      string
	Combination string
	Strategy    string
	Score       float64
	Quality     ir.QualityMetrics
	HasQuality  bool

	// Warnings lists stale score or Quality values that could not be
	// decoded. RewriteHeader replaces them.
	Warnings []string

	fields []field
	last   int // index of the last header-zone line, -1 when there is none
}

// splitLines splits src after each newline, keeping line endings.
func splitLines(src []byte) []string {
	if len(src) == 0 {
		return nil
	}
	parts := bytes.SplitAfter(src, []byte("\n"))
	if len(parts[len(parts)-1]) == 0 {
		parts = parts[:len(parts)-1]
	}
	lines := make([]string, len(parts))
	for i, p := range parts {
		lines[i] = string(p)
	}
	return lines
}

func canonicalKey(k string) (string, bool) {
	for _, hk := range headerKeys {
		if strings.EqualFold(hk, k) {
			return hk, true
		}
	}
	return "", false
}

// ParseHeader reads the header block: the leading run of blank and comment
// lines. Lines of the form "Key: value" with a known key are decoded; other
// comment lines are ignored. The block ends at the first line of code.
func ParseHeader(src []byte) (*Header, error) {
	h := &Header{last: -1, Quality: ir.EmptyMetrics()}
	lines := splitLines(src)
	inBlock := false

	for i, raw := range lines {
		body := strings.TrimRight(raw, "\r\n")
		trimmed := strings.TrimSpace(body)

		switch {
		case inBlock:
		case trimmed == "":
		case strings.HasPrefix(trimmed, "//"):
		case strings.HasPrefix(trimmed, "/*"):
			inBlock = true
		default:
			return h.done()
		}
		h.last = i

		if inBlock && strings.Contains(trimmed, "*/") {
			inBlock = false
		}

		m := headerLine.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		key, ok := canonicalKey(m[2])
		if !ok {
			continue
		}
		value := m[4]
		prefixLen := len(m[1]) + len(m[2]) + len(m[3])
		h.fields = append(h.fields, field{
			key:    key,
			line:   i,
			prefix: body[:prefixLen],
			suffix: raw[prefixLen+len(value):],
		})

		if err := h.set(key, value, i+1); err != nil {
			return nil, err
		}
	}

	return h.done()
}

func (h *Header) set(key, value string, line int) error {
	switch key {
	case KeyID:
		id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return &HeaderError{Line: line, Key: key, Message: fmt.Sprintf("not an integer: %q", value)}
		}
		h.ID = id
		h.HasID = true
	case KeyPrompt:
		h.Prompt = value
	case KeyCombination:
		h.Combination = value
	case KeyStrategy:
		h.Strategy = strings.TrimSpace(value)
	case KeyScore:
		s, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
		if err != nil {
			h.Warnings = append(h.Warnings, fmt.Sprintf("line %d: score %q is not a number", line, value))
			return nil
		}
		h.Score = s
	case KeyQuality:
		if strings.TrimSpace(value) == "" {
			return nil
		}
		if err := h.Quality.UnmarshalQuality(value); err != nil {
			h.Quality = ir.EmptyMetrics()
			h.Warnings = append(h.Warnings, fmt.Sprintf("line %d: %v", line, err))
			return nil
		}
		h.HasQuality = true
	}
	return nil
}

func (h *Header) done() (*Header, error) {
	if !h.HasID {
		return nil, &HeaderError{Key: KeyID, Message: "missing"}
	}
	return h, nil
}

// Metrics returns the published metrics, score included.
func (h *Header) Metrics() ir.QualityMetrics {
	q := h.Quality
	q.Score = h.Score
	return q
}

// FormatScore renders a score the way RewriteHeader writes it.
func FormatScore(s float64) string {
	return strconv.FormatFloat(s, 'g', -1, 64)
}

// RewriteHeader replaces the score and Quality values in src with q.
// Every other byte is preserved. Missing score or Quality lines are inserted
// after the last line of the header block, using "// " comments.
func RewriteHeader(src []byte, q ir.QualityMetrics) ([]byte, error) {
	h, err := ParseHeader(src)
	if err != nil {
		return nil, err
	}

	quality, err := q.MarshalQuality()
	if err != nil {
		return nil, err
	}
	values := map[string]string{
		KeyScore:   FormatScore(q.Score),
		KeyQuality: quality,
	}

	lines := splitLines(src)
	written := make(map[string]bool)
	for _, f := range h.fields {
		v, ok := values[f.key]
		if !ok {
			continue
		}
		lines[f.line] = f.prefix + v + f.suffix
		written[f.key] = true
	}

	var insert []string
	for _, key := range []string{KeyScore, KeyQuality} {
		if !written[key] {
			insert = append(insert, "// "+key+": "+values[key]+lineEnding(lines))
		}
	}

	var out strings.Builder
	out.Grow(len(src) + 256)
	if h.last < 0 {
		for _, l := range insert {
			out.WriteString(l)
		}
	}
	for i, l := range lines {
		if i == h.last && len(insert) > 0 && !strings.HasSuffix(l, "\n") {
			l += lineEnding(lines)
		}
		out.WriteString(l)
		if i == h.last {
			for _, ins := range insert {
				out.WriteString(ins)
			}
		}
	}
	return []byte(out.String()), nil
}

func lineEnding(lines []string) string {
	for _, l := range lines {
		if strings.HasSuffix(l, "\r\n") {
			return "\r\n"
		}
	}
	return "\n"
}
