package logging

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// field is a flattened attribute with its dotted group path as key.
type field struct {
	key   string
	value slog.Value
}

// consoleHandler writes a one-line header per record followed by one
// indented line per field. Attributes added through WithAttrs are flattened
// once, when the derived handler is built.
type consoleHandler struct {
	mu        *sync.Mutex
	out       io.Writer
	level     *slog.LevelVar
	preset    []field
	groups    []string
	addSource bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) *consoleHandler {
	return &consoleHandler{mu: &sync.Mutex{}, out: w, level: lvl, addSource: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// consoleHeader holds the fields lifted out of the attribute list.
type consoleHeader struct {
	component string
	runID     string
	stage     string
}

func (hdr *consoleHeader) subject() string {
	runID := strings.TrimSpace(hdr.runID)
	stage := strings.TrimSpace(hdr.stage)
	if len(runID) > 8 {
		runID = runID[:8]
	}
	switch {
	case runID == "":
		return stage
	case stage == "":
		return "Run " + runID
	default:
		return fmt.Sprintf("Run %s (%s)", runID, stage)
	}
}

// lift records header fields and reports whether the field should be
// dropped from the body. Run and stage stay in the body for debug records.
func (hdr *consoleHeader) lift(f field, verbose bool) bool {
	switch f.key {
	case FieldComponent:
		if hdr.component == "" {
			hdr.component = attrString(f.value)
		}
		return true
	case FieldRunID:
		if hdr.runID == "" {
			hdr.runID = attrString(f.value)
		}
		return !verbose
	case FieldStage:
		if hdr.stage == "" {
			hdr.stage = attrString(f.value)
		}
		return !verbose
	}
	return false
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}
	verbose := record.Level < slog.LevelInfo

	all := append([]field(nil), h.preset...)
	record.Attrs(func(attr slog.Attr) bool {
		all = appendField(all, h.groups, attr)
		return true
	})

	var hdr consoleHeader
	body := all[:0]
	for _, f := range all {
		if !hdr.lift(f, verbose) {
			body = append(body, f)
		}
	}
	body = lastWins(body)

	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	msg := strings.TrimSpace(record.Message)
	if msg == "" {
		msg = "(no message)"
	}

	var buf bytes.Buffer
	buf.WriteString(formatTimestamp(ts))
	buf.WriteByte(' ')
	buf.WriteString(levelName(record.Level))
	if hdr.component != "" {
		fmt.Fprintf(&buf, " [%s]", hdr.component)
	}
	if subject := hdr.subject(); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	buf.WriteString(" – ")
	buf.WriteString(msg)
	if src := record.Source(); h.addSource && src != nil {
		fmt.Fprintf(&buf, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
	buf.WriteByte('\n')

	bullet := "    - "
	if verbose {
		bullet = "    "
	}
	for _, f := range body {
		buf.WriteString(bullet)
		buf.WriteString(f.key)
		buf.WriteString(": ")
		buf.WriteString(formatValue(f.value))
		buf.WriteByte('\n')
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.out.Write(buf.Bytes())
	return err
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	derived := *h
	derived.preset = append([]field(nil), h.preset...)
	for _, attr := range attrs {
		derived.preset = appendField(derived.preset, h.groups, attr)
	}
	return &derived
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	derived := *h
	derived.groups = append(append([]string(nil), h.groups...), name)
	return &derived
}

// appendField flattens attr, expanding groups into dotted keys.
func appendField(dst []field, groups []string, attr slog.Attr) []field {
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		inner := groups
		if attr.Key != "" {
			inner = append(append([]string(nil), groups...), attr.Key)
		}
		for _, member := range value.Group() {
			dst = appendField(dst, inner, member)
		}
		return dst
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(groups, ".") + "." + key
	}
	if key == "" {
		return dst
	}
	return append(dst, field{key: key, value: value})
}

// lastWins collapses repeated keys, keeping the first position and the
// last value.
func lastWins(fields []field) []field {
	if len(fields) < 2 {
		return fields
	}
	index := make(map[string]int, len(fields))
	out := make([]field, 0, len(fields))
	for _, f := range fields {
		if i, seen := index[f.key]; seen {
			out[i].value = f.value
			continue
		}
		index[f.key] = len(out)
		out = append(out, f)
	}
	return out
}

func levelName(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	}
	return "DEBUG"
}
