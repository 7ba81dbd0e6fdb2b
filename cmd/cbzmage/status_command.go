package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"cbzmage/internal/config"
	"cbzmage/internal/preflight"
	"cbzmage/internal/state"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check configuration, directories and run history",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			status := statusLines{colorize: shouldColorize(out)}

			status.section("Config")
			if path, found := ctx.configSource(); found {
				status.add("Config file", statusOK, path)
			} else {
				status.add("Config file", statusInfo, "not found, using defaults")
			}
			status.add("Workers", statusInfo, fmt.Sprint(cfg.Conversion.Workers))
			status.add("Compression", statusInfo, cfg.Conversion.Compression)

			status.section("Directories")
			failed := 0
			for _, result := range preflight.RunAll(cfg) {
				if result.Passed {
					status.add(result.Name, statusOK, result.Detail)
					continue
				}
				status.add(result.Name, statusError, result.Detail)
				failed++
			}

			status.section("History")
			addHistoryStatus(cmd, cfg, &status)

			fmt.Fprint(out, status.String())
			if failed > 0 {
				return fmt.Errorf("%d preflight checks failed", failed)
			}
			return nil
		},
	}
}

func addHistoryStatus(cmd *cobra.Command, cfg *config.Config, status *statusLines) {
	const label = "Run history"
	if !cfg.History.Enabled {
		status.add(label, statusInfo, "disabled")
		return
	}
	store, err := state.Open(cfg)
	if err != nil {
		status.add(label, statusError, err.Error())
		return
	}
	defer store.Close()
	books, err := store.RecentBooks(cmd.Context(), 1)
	switch {
	case err != nil:
		status.add(label, statusError, err.Error())
	case len(books) == 0:
		status.add(label, statusOK, store.Path()+" (empty)")
	default:
		status.add(label, statusOK, fmt.Sprintf("%s (last book %s)", store.Path(), books[0].CheckedAt.Local().Format("2006-01-02 15:04")))
	}
}
