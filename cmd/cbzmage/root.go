package main

import (
	"github.com/spf13/cobra"
)

const (
	groupConversion = "conversion"
	groupInspect    = "inspect"
)

func newRootCommand() *cobra.Command {
	ctx := newCommandContext()

	root := &cobra.Command{
		Use:   "cbzmage",
		Short: "Convert Kindle comic containers to CBZ archives",
		Long: `cbzmage turns Kindle comic books (.azw, .azw3, .mobi) into CBZ archives.

Pages come from the HD image container (.azw.res, .azw6) next to a book
when one matches, and from the book itself otherwise. Books are converted
in parallel; one damaged book never stops the rest.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if skipsConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringVarP(&ctx.configFile, "config", "c", "", "Configuration file path")
	root.PersistentFlags().BoolVarP(&ctx.verbose, "verbose", "v", false, "Log debug detail, including every page source")

	root.AddGroup(
		&cobra.Group{ID: groupConversion, Title: "Conversion:"},
		&cobra.Group{ID: groupInspect, Title: "Inspection and setup:"},
	)
	for _, cmd := range newConversionCommands(ctx) {
		cmd.GroupID = groupConversion
		root.AddCommand(cmd)
	}
	for _, cmd := range []*cobra.Command{newHistoryCommand(ctx), newStatusCommand(ctx), newConfigCommand(ctx)} {
		cmd.GroupID = groupInspect
		root.AddCommand(cmd)
	}
	return root
}
