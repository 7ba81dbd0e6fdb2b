package main

import (
	"fmt"
	"strings"

	"cbzmage/internal/workflow"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

var statusStyles = [...]struct {
	tag   string
	color string
}{
	statusInfo:  {"INFO", ansiBlue},
	statusOK:    {"OK", ansiGreen},
	statusWarn:  {"WARN", ansiYellow},
	statusError: {"ERROR", ansiRed},
}

// statusLines collects "label: [TAG] message" lines grouped under section
// headers, colouring them when writing to a terminal.
type statusLines struct {
	colorize bool
	lines    []string
}

const statusLabelWidth = 20

func (s *statusLines) section(title string) {
	if len(s.lines) > 0 {
		s.lines = append(s.lines, "")
	}
	header := "== " + strings.TrimSpace(title) + " =="
	s.lines = append(s.lines,
		paint(header, ansiBlue, s.colorize),
		paint(strings.Repeat("-", len(header)), ansiBlue, s.colorize))
}

func (s *statusLines) add(label string, kind statusKind, message string) {
	style := statusStyles[kind]
	text := "[" + style.tag + "]"
	if message != "" {
		text += " " + message
	}
	s.lines = append(s.lines, paint(fmt.Sprintf("  %-*s %s", statusLabelWidth, label+":", text), style.color, s.colorize))
}

func (s *statusLines) String() string {
	if len(s.lines) == 0 {
		return ""
	}
	return strings.Join(s.lines, "\n") + "\n"
}

// runKind is OK when every book succeeded, WARN when some were canceled and
// ERROR when any failed.
func runKind(summary *workflow.Summary) statusKind {
	switch {
	case summary.Failed > 0:
		return statusError
	case summary.Canceled > 0:
		return statusWarn
	default:
		return statusOK
	}
}

func bookStatusColor(status string) string {
	switch status {
	case workflow.StatusSucceeded:
		return ansiGreen
	case workflow.StatusFailed:
		return ansiRed
	case workflow.StatusCanceled:
		return ansiYellow
	default:
		return ""
	}
}

func paint(value, color string, colorize bool) string {
	if !colorize || color == "" {
		return value
	}
	return color + value + ansiReset
}
