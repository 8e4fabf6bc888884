package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "panotour",
		Short:         "Build and share 360° virtual tours",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path (.yaml or .toml)")

	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newStdioCommand(ctx))
	rootCmd.AddCommand(newScenesCommand(ctx))
	rootCmd.AddCommand(newAddCommand(ctx))
	rootCmd.AddCommand(newStorageCommand(ctx))
	rootCmd.AddCommand(newNewCommand(ctx))
	rootCmd.AddCommand(newImportCommand(ctx))
	rootCmd.AddCommand(newExportCommand(ctx))
	rootCmd.AddCommand(newBundleCommand(ctx))
	rootCmd.AddCommand(newPlayCommand(ctx))

	return rootCmd
}
