package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"cbzmage/internal/config"
	"cbzmage/internal/engine"
	"cbzmage/internal/logging"
	"cbzmage/internal/workflow"
)

type conversionFlags struct {
	recursive   bool
	coverOnly   bool
	workers     int
	compression string
	outputDir   string
	coverDir    string
	format      string
}

func newConversionCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newConversionCommand(ctx, engine.ModeConvert, "convert <path>", "Convert books to CBZ archives"),
		newConversionCommand(ctx, engine.ModeScan, "scan <path>", "Check books without writing files"),
		newConversionCommand(ctx, engine.ModeCover, "cover <path>", "Extract cover images only"),
	}
}

func newConversionCommand(ctx *commandContext, mode engine.Mode, use, short string) *cobra.Command {
	var flags conversionFlags

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Long: short + `.

<path> is a primary container (.azw, .azw3, .mobi) or a directory. End a
directory with * (quote it for the shell) to search subdirectories.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.conversionConfig(flags)
			if err != nil {
				return err
			}
			runMode := mode
			if mode == engine.ModeConvert && (flags.coverOnly || cfg.Conversion.SaveCoverOnly) {
				runMode = engine.ModeCover
			}
			return runConversion(cmd, cfg, runMode, args[0], flags)
		},
	}

	cmd.Flags().BoolVarP(&flags.recursive, "recursive", "r", false, "Search subdirectories")
	cmd.Flags().IntVarP(&flags.workers, "workers", "j", 0, "Books processed in parallel (default from config)")
	cmd.Flags().StringVar(&flags.format, "format", "table", "Summary format: table, json or yaml")
	if mode != engine.ModeScan {
		cmd.Flags().StringVarP(&flags.outputDir, "output", "o", "", "Output directory (default from config)")
		cmd.Flags().StringVar(&flags.coverDir, "covers", "", "Directory for standalone cover images")
	}
	if mode == engine.ModeConvert {
		cmd.Flags().BoolVar(&flags.coverOnly, "cover-only", false, "Extract covers instead of archives")
		cmd.Flags().StringVar(&flags.compression, "compression", "", "Archive compression: "+strings.Join(config.CompressionLevels, ", "))
	}
	return cmd
}

func runConversion(cmd *cobra.Command, cfg *config.Config, mode engine.Mode, path string, flags conversionFlags) error {
	format, err := parseOutputFormat(flags.format)
	if err != nil {
		return err
	}
	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}

	manager := workflow.NewManager(cfg, logger)
	summary, err := manager.Run(cmd.Context(), workflow.Request{
		Path:      path,
		Mode:      mode,
		Recursive: flags.recursive,
	})
	if err != nil {
		return err
	}

	if err := writeSummary(cmd, format, summary); err != nil {
		return err
	}
	if err := cmd.Context().Err(); err != nil && summary.Canceled > 0 {
		return err
	}
	if summary.HasFailures() {
		return fmt.Errorf("%d of %d books failed", summary.Failed, summary.Total)
	}
	return nil
}
