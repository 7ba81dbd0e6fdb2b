package logging

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// consoleOutput is shared by a handler and every handler derived from it.
type consoleOutput struct {
	mu sync.Mutex
	w  io.Writer
	// shown remembers the last value printed per field label for each book
	// (or component), so progress lines only print what changed.
	shown map[string]map[string]string
}

// consoleHandler prints one header line per record followed by indented
// fields:
//
//	2026-03-01 12:00:00 INFO [engine] vol1.azw3 – book converted
//	    - Pages: 12
type consoleHandler struct {
	out    *consoleOutput
	level  *slog.LevelVar
	source bool
	attrs  []kv
	prefix string
}

type kv struct {
	key   string
	value slog.Value
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, source bool) slog.Handler {
	return &consoleHandler{
		out:    &consoleOutput{w: w, shown: make(map[string]map[string]string)},
		level:  lvl,
		source: source,
	}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	attrs := append([]kv(nil), h.attrs...)
	record.Attrs(func(attr slog.Attr) bool {
		attrs = appendAttr(attrs, h.prefix, attr)
		return true
	})
	attrs = lastWins(attrs)

	var component, book string
	for _, attr := range attrs {
		switch attr.key {
		case FieldComponent:
			component = plainValue(attr.value)
		case FieldBook:
			if path := plainValue(attr.value); path != "" {
				book = filepath.Base(path)
			}
		}
	}

	var b strings.Builder
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	b.WriteString(formatTimestamp(ts))
	b.WriteByte(' ')
	b.WriteString(levelLabel(record.Level))
	if component != "" {
		fmt.Fprintf(&b, " [%s]", component)
	}
	if book != "" {
		b.WriteByte(' ')
		b.WriteString(book)
	}
	b.WriteString(" – ")
	b.WriteString(cmp.Or(strings.TrimSpace(record.Message), "(no message)"))
	if src := record.Source(); h.source && src != nil {
		fmt.Fprintf(&b, " [%s:%d]", filepath.Base(src.File), src.Line)
	}
	b.WriteByte('\n')

	h.out.mu.Lock()
	defer h.out.mu.Unlock()

	if record.Level < slog.LevelInfo {
		for _, attr := range attrs {
			fmt.Fprintf(&b, "    %s: %s\n", attr.key, formatValue(attr.value))
		}
	} else {
		fields, hidden := consoleFields(attrs, record.Level >= slog.LevelWarn)
		fields = h.changedOnly(cmp.Or(book, component), fields, record.Level)
		for _, field := range fields {
			fmt.Fprintf(&b, "    - %s: %s\n", field.label, field.value)
		}
		if hidden == 1 {
			b.WriteString("    + 1 more field hidden\n")
		} else if hidden > 1 {
			fmt.Fprintf(&b, "    + %d more fields hidden\n", hidden)
		}
	}
	_, err := io.WriteString(h.out.w, b.String())
	return err
}

// changedOnly drops info fields whose value was already printed for scope.
// Warnings and errors print everything. Callers hold out.mu.
func (h *consoleHandler) changedOnly(scope string, fields []consoleField, level slog.Level) []consoleField {
	if scope == "" {
		return fields
	}
	seen := h.out.shown[scope]
	if seen == nil {
		seen = make(map[string]string)
		h.out.shown[scope] = seen
	}
	kept := fields[:0]
	for _, field := range fields {
		if prev, ok := seen[field.label]; ok && prev == field.value && level < slog.LevelWarn {
			continue
		}
		seen[field.label] = field.value
		kept = append(kept, field)
	}
	return kept
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append([]kv(nil), h.attrs...)
	for _, attr := range attrs {
		next.attrs = appendAttr(next.attrs, h.prefix, attr)
	}
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.prefix = h.prefix + name + "."
	return &next
}

// appendAttr flattens attr into dst, joining group names with dots.
func appendAttr(dst []kv, prefix string, attr slog.Attr) []kv {
	attr.Value = attr.Value.Resolve()
	if attr.Equal(slog.Attr{}) {
		return dst
	}
	if attr.Value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			prefix += attr.Key + "."
		}
		for _, member := range attr.Value.Group() {
			dst = appendAttr(dst, prefix, member)
		}
		return dst
	}
	return append(dst, kv{key: prefix + attr.Key, value: attr.Value})
}

// lastWins keeps the first position of each key with its last value.
func lastWins(attrs []kv) []kv {
	index := make(map[string]int, len(attrs))
	out := make([]kv, 0, len(attrs))
	for _, attr := range attrs {
		if attr.key == "" {
			continue
		}
		if i, ok := index[attr.key]; ok {
			out[i].value = attr.value
			continue
		}
		index[attr.key] = len(out)
		out = append(out, attr)
	}
	return out
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN"
	case level >= slog.LevelInfo:
		return "INFO"
	default:
		return "DEBUG"
	}
}
