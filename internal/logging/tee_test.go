package logging

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewTeeHandlerCollapses(t *testing.T) {
	if h := newTeeHandler(nil, nil); h != slog.DiscardHandler {
		t.Fatalf("expected discard handler, got %T", h)
	}
	inner := slog.NewJSONHandler(&bytes.Buffer{}, nil)
	if h := newTeeHandler(nil, inner); h != inner {
		t.Fatal("expected single handler returned unwrapped")
	}
}

func TestTeeLoggerSplitsByLevel(t *testing.T) {
	var console, runLog bytes.Buffer
	consoleLevel := new(slog.LevelVar)
	fileLevel := new(slog.LevelVar)
	fileLevel.Set(slog.LevelDebug)

	logger := TeeLogger(slog.New(newConsoleHandler(&console, consoleLevel, false)), newJSONHandler(&runLog, fileLevel, false))
	if !logger.Enabled(context.Background(), slog.LevelDebug) {
		t.Fatal("tee should accept debug when the run log does")
	}
	logger.Debug("page fell back to standard definition", slog.Int("page", 3))
	logger.With(Book("/library/vol1.azw3")).Info("book converted", Int("pages", 4))

	if strings.Contains(console.String(), "fell back") {
		t.Fatalf("console should drop debug records, got %q", console.String())
	}
	if !strings.Contains(console.String(), "vol1.azw3 – book converted") {
		t.Fatalf("console missing info record: %q", console.String())
	}
	for _, want := range []string{`"page":3`, `"book":"/library/vol1.azw3"`, `"pages":4`} {
		if !strings.Contains(runLog.String(), want) {
			t.Fatalf("run log missing %s: %q", want, runLog.String())
		}
	}
}

func TestTeeLoggerNilConsole(t *testing.T) {
	var runLog bytes.Buffer
	TeeLogger(nil, slog.NewJSONHandler(&runLog, nil)).Info("no console")
	if runLog.Len() == 0 {
		t.Fatal("expected run log output")
	}
}

func TestJSONHandlerReportsDurationsInSeconds(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newJSONHandler(&buf, new(slog.LevelVar), false))
	logger.Info("conversion finished", Duration("duration", 1500*time.Millisecond))

	out := buf.String()
	if !strings.Contains(out, `"duration":1.5`) {
		t.Fatalf("expected duration in seconds, got %q", out)
	}
	if !strings.Contains(out, `"ts":"`) || !strings.Contains(out, `"level":"info"`) {
		t.Fatalf("expected ts and lowercase level keys, got %q", out)
	}
}

func TestConsoleHandlerPrintsOnlyChangedFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false)).With(Book("vol1.azw3"))
	logger.Info("pages resolved", Int("pages", 10), Mode("convert"))
	buf.Reset()
	logger.Info("pages resolved", Int("pages", 10), Mode("convert"), Int("hd_images", 6))

	out := buf.String()
	if strings.Contains(out, "Pages: 10") || strings.Contains(out, "Mode:") {
		t.Fatalf("repeated fields should be dropped, got %q", out)
	}
	if !strings.Contains(out, "HD Pages: 6") {
		t.Fatalf("new field missing: %q", out)
	}
}

func TestConsoleHandlerHidesDetailKeysOnInfo(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(newConsoleHandler(&buf, new(slog.LevelVar), false))
	logger.Info("HD container analysed", HDContainer("/library/vol1.azw.res"), Int("images", 12))
	if !strings.Contains(buf.String(), "+ 1 more field hidden") || strings.Contains(buf.String(), "vol1.azw.res") {
		t.Fatalf("info line should hide the container path: %q", buf.String())
	}

	buf.Reset()
	WarnWithContext(logger, "HD container unusable", "hd_unusable", HDContainer("/library/vol1.azw.res"))
	if !strings.Contains(buf.String(), "Hd Container: /library/vol1.azw.res") {
		t.Fatalf("warning should show the container path: %q", buf.String())
	}
}
