package logging

import (
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"cbzmage/internal/textutil"
)

// consoleFieldLimit caps the fields printed under an info line.
const consoleFieldLimit = 8

// consoleFieldOrder lists the keys printed first, in this order. Other keys
// follow in record order.
var consoleFieldOrder = []string{
	FieldEventType,
	FieldErrorHint,
	FieldImpact,
	"error",
	"pages",
	"hd_images",
	"sd_images",
	"skipped",
	"cover_source",
	FieldArchiveBytes,
	"books",
	"hd_containers",
	"unmatched",
	"succeeded",
	"failed",
	"canceled",
	"workers",
	"duration",
}

var consoleLabels = map[string]string{
	FieldEventType:    "Event",
	FieldErrorHint:    "Hint",
	FieldArchiveBytes: "Archive",
	"hd_images":       "HD Pages",
	"sd_images":       "SD Pages",
	"hd_containers":   "HD Containers",
	"cover_source":    "Cover",
}

// detailKeys are only shown on warnings and errors; info lines count them as
// hidden.
var detailKeys = []string{FieldRunID, FieldHDContainer, "estimate_bytes", "path"}

type consoleField struct {
	label string
	value string
}

// consoleFields orders and formats attrs for an info or warning line. It
// returns the fields to print and how many were left out.
func consoleFields(attrs []kv, verbose bool) ([]consoleField, int) {
	ordered := make([]kv, 0, len(attrs))
	for _, key := range consoleFieldOrder {
		if i := slices.IndexFunc(attrs, func(a kv) bool { return a.key == key }); i >= 0 {
			ordered = append(ordered, attrs[i])
		}
	}
	for _, attr := range attrs {
		if !slices.Contains(consoleFieldOrder, attr.key) {
			ordered = append(ordered, attr)
		}
	}

	var fields []consoleField
	hidden := 0
	for _, attr := range ordered {
		if attr.key == FieldComponent || attr.key == FieldBook {
			continue
		}
		if !verbose && slices.Contains(detailKeys, attr.key) {
			hidden++
			continue
		}
		if len(fields) >= consoleFieldLimit {
			hidden++
			continue
		}
		fields = append(fields, consoleField{label: consoleLabel(attr.key), value: consoleValue(attr.key, attr.value)})
	}
	return fields, hidden
}

func consoleValue(key string, v slog.Value) string {
	v = v.Resolve()
	switch {
	case strings.HasSuffix(key, "_bytes") && v.Kind() == slog.KindInt64:
		return humanize.IBytes(uint64(max(v.Int64(), 0)))
	case v.Kind() == slog.KindDuration:
		return v.Duration().Round(time.Millisecond).String()
	case key == "error":
		const maxLen = 200
		value := strings.TrimSpace(plainValue(v))
		if len(value) > maxLen {
			value = value[:maxLen] + "…"
		}
		return value
	}
	return formatValue(v)
}

func consoleLabel(key string) string {
	if label, ok := consoleLabels[key]; ok {
		return label
	}
	return textutil.TitleCase(key)
}
