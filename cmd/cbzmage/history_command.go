package main

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"cbzmage/internal/state"
	"cbzmage/internal/textutil"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var format string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently processed books",
		RunE: func(cmd *cobra.Command, args []string) error {
			outFormat, err := parseOutputFormat(format)
			if err != nil {
				return err
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return errors.New("run history is disabled (history.enabled = false)")
			}
			store, err := state.Open(cfg)
			if err != nil {
				return fmt.Errorf("open history: %w", err)
			}
			defer store.Close()

			books, err := store.RecentBooks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if outFormat != formatTable {
				return writeStructured(cmd, outFormat, books)
			}
			out := cmd.OutOrStdout()
			if len(books) == 0 {
				fmt.Fprintln(out, "No books processed yet")
				return nil
			}
			fmt.Fprint(out, renderTable(historyTable(books, shouldColorize(out))))
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of books to show")
	cmd.Flags().StringVar(&format, "format", "table", "Output format: table, json or yaml")
	return cmd
}

func historyTable(books []state.BookRecord, colorize bool) tableSpec {
	spec := tableSpec{
		headers: []string{"Checked", "Book", "Mode", "Pages", "HD", "SD", "Result"},
		aligns:  []columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	}
	for _, book := range books {
		label := book.Name
		if label == "" {
			label = filepath.Base(book.PrimaryPath)
		}
		outcome := paint("Failed: "+book.ErrorMessage, ansiRed, colorize)
		if !book.Failed() {
			outcome = textutil.TitleCase(coverLabel(book)) + " cover"
			if book.ArchiveBytes > 0 {
				outcome += ", " + humanize.Bytes(uint64(book.ArchiveBytes))
			}
		}
		spec.rows = append(spec.rows, []string{
			humanize.Time(book.CheckedAt),
			label,
			book.Mode,
			strconv.Itoa(book.Pages),
			strconv.Itoa(book.HdImages),
			strconv.Itoa(book.SdImages),
			outcome,
		})
	}
	return spec
}

func coverLabel(book state.BookRecord) string {
	switch {
	case book.HdCover:
		return "hd"
	case book.SdCover:
		return "sd"
	case book.FallbackCover:
		return "fallback"
	default:
		return "no"
	}
}
