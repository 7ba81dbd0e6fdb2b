package logging

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	runLogPrefix = "cbzmage-"
	runLogSuffix = ".log"
	runLogStamp  = "20060102-150405"
)

// RunLogName returns the file name of the JSON log for a run started at ts.
func RunLogName(ts time.Time) string {
	return runLogPrefix + ts.UTC().Format(runLogStamp) + runLogSuffix
}

// parseRunLogTime parses the start time encoded in a run log name.
func parseRunLogTime(name string) (time.Time, bool) {
	stamp, ok := strings.CutPrefix(name, runLogPrefix)
	if !ok {
		return time.Time{}, false
	}
	stamp, ok = strings.CutSuffix(stamp, runLogSuffix)
	if !ok {
		return time.Time{}, false
	}
	ts, err := time.Parse(runLogStamp, stamp)
	return ts, err == nil
}

// PruneRunLogs removes run logs in dir whose run started more than
// retentionDays before now, judged by the time in the file name. keep is
// never removed. Other files are left alone. It returns the number removed.
func PruneRunLogs(logger *slog.Logger, dir string, retentionDays int, now time.Time, keep string) int {
	if retentionDays <= 0 || dir == "" {
		return 0
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0
	}
	cutoff := now.AddDate(0, 0, -retentionDays)
	removed := 0
	for _, entry := range entries {
		started, ok := parseRunLogTime(entry.Name())
		if !ok || entry.IsDir() || entry.Name() == filepath.Base(keep) || !started.Before(cutoff) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := os.Remove(path); err != nil {
			WarnWithContext(logger, "run log not pruned", "log_retention_failed",
				String("path", path),
				Error(err),
				Hint("check permissions on log_dir"),
				Impact("old run log stays on disk"),
			)
			continue
		}
		removed++
	}
	if removed > 0 && logger != nil {
		logger.Debug("run logs pruned", Int("removed", removed), String(FieldEventType, "log_pruned"))
	}
	return removed
}
