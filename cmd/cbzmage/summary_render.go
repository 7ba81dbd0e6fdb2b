package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cbzmage/internal/engine"
	"cbzmage/internal/textutil"
	"cbzmage/internal/workflow"
)

func writeSummary(cmd *cobra.Command, format outputFormat, summary *workflow.Summary) error {
	if format != formatTable {
		return writeStructured(cmd, format, summary)
	}
	out := cmd.OutOrStdout()
	fmt.Fprint(out, renderSummary(summary, shouldColorize(out)))
	return nil
}

func renderSummary(summary *workflow.Summary, colorize bool) string {
	var b strings.Builder
	if len(summary.Books) > 0 {
		b.WriteString(renderTable(summaryTable(summary, colorize)))
		b.WriteString("\n")
	}

	status := statusLines{colorize: colorize}
	status.add(textutil.TitleCase(summary.Mode.String()), runKind(summary), summaryLine(summary))
	if summary.Unmatched > 0 {
		status.add("HD images", statusWarn, fmt.Sprintf("%d books have no HD container next to them", summary.Unmatched))
	}
	for _, book := range summary.Books {
		if book.Status == workflow.StatusFailed {
			status.add(filepath.Base(book.Primary), statusError, book.Error)
		}
	}
	b.WriteString(status.String())
	return b.String()
}

func summaryTable(summary *workflow.Summary, colorize bool) tableSpec {
	spec := tableSpec{
		headers: []string{"Book", "Status", "Pages", "HD", "SD", "Cover"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	}
	if summary.Mode == engine.ModeConvert {
		spec.headers = append(spec.headers, "Size")
		spec.aligns = append(spec.aligns, alignRight)
	}

	var pages, hd, sd int
	var size int64
	for _, book := range summary.Books {
		row := []string{bookLabel(book), paint(textutil.TitleCase(book.Status), bookStatusColor(book.Status), colorize), "", "", "", ""}
		if result := book.Result; result != nil {
			row[2] = strconv.Itoa(result.Pages)
			row[3] = strconv.Itoa(result.HdImages)
			row[4] = strconv.Itoa(result.SdImages)
			row[5] = textutil.TitleCase(result.CoverSource())
			pages += result.Pages
			hd += result.HdImages
			sd += result.SdImages
			size += result.ArchiveBytes
			if summary.Mode == engine.ModeConvert {
				row = append(row, humanize.Bytes(uint64(result.ArchiveBytes)))
			}
		}
		spec.rows = append(spec.rows, row)
	}
	spec.footer = []string{"Total", "", strconv.Itoa(pages), strconv.Itoa(hd), strconv.Itoa(sd), ""}
	if summary.Mode == engine.ModeConvert {
		spec.footer = append(spec.footer, humanize.Bytes(uint64(size)))
	}
	return spec
}

func summaryLine(summary *workflow.Summary) string {
	parts := []string{fmt.Sprintf("%d of %d books succeeded", summary.Succeeded, summary.Total)}
	if summary.Failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", summary.Failed))
	}
	if summary.Canceled > 0 {
		parts = append(parts, fmt.Sprintf("%d canceled", summary.Canceled))
	}
	elapsed := summary.FinishedAt.Sub(summary.StartedAt).Round(time.Millisecond)
	return strings.Join(parts, ", ") + " in " + elapsed.String()
}

func bookLabel(book workflow.BookOutcome) string {
	if book.Result != nil && book.Result.Name != "" {
		return book.Result.Name
	}
	return filepath.Base(book.Primary)
}
