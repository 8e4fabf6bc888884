package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newNewCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Discard the current tour and start an empty one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			if err := ws.session.NewProject(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Started a new tour")
			return nil
		},
	}
}

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <project.json|->",
		Short: "Replace the current tour with an exported project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var data []byte
			var err error
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read project: %w", err)
			}

			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			project, err := ws.session.ImportProject(cmd.Context(), data)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d rooms, starting in %q\n", len(project.Scenes), project.StartScene)
			return nil
		},
	}
}

func newExportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "export <project.json|->",
		Short: "Write the tour as a self-contained project file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			data, err := ws.session.ExportProject(cmd.Context())
			if err != nil {
				return err
			}
			if args[0] == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(args[0], data, 0o644); err != nil {
				return fmt.Errorf("write project: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", args[0], humanize.Bytes(uint64(len(data))))
			return nil
		},
	}
}

func newBundleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "bundle <tour.zip>",
		Short: "Write a standalone zip that plays the tour in any browser",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			target := args[0]
			tmp, err := os.CreateTemp(filepath.Dir(target), ".bundle-*.zip")
			if err != nil {
				return fmt.Errorf("create bundle: %w", err)
			}
			defer os.Remove(tmp.Name())

			if err := ws.session.ExportBundle(cmd.Context(), tmp); err != nil {
				tmp.Close()
				return err
			}
			info, err := tmp.Stat()
			if err != nil {
				tmp.Close()
				return fmt.Errorf("stat bundle: %w", err)
			}
			if err := tmp.Close(); err != nil {
				return fmt.Errorf("close bundle: %w", err)
			}
			if err := os.Rename(tmp.Name(), target); err != nil {
				return fmt.Errorf("write bundle: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%s)\n", target, humanize.Bytes(uint64(info.Size())))
			return nil
		},
	}
}
