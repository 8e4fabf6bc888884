package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/rpggio/panotour/internal/media"
	"github.com/spf13/cobra"
)

func newScenesCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "scenes",
		Short: "List the rooms of the current tour",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			summaries, err := ws.session.Scenes(cmd.Context())
			if err != nil {
				return err
			}
			if len(summaries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No rooms yet. Add one with: panotour add <image>")
				return nil
			}

			rows := make([][]string, 0, len(summaries))
			for _, s := range summaries {
				start := ""
				if s.Start {
					start = "*"
				}
				rows = append(rows, []string{
					start,
					s.ID,
					s.Title,
					strconv.Itoa(s.Hotspots),
					fmt.Sprintf("%.1f / %.1f / %.0f", s.Pitch, s.Yaw, s.Hfov),
					imageSource(ws, cmd, s.ID),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"Start", "ID", "Title", "Hotspots", "Pitch / Yaw / Hfov", "Image"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
}

func imageSource(ws *workspace, cmd *cobra.Command, id string) string {
	h, err := ws.session.Resolve(cmd.Context(), id)
	switch {
	case err != nil:
		return "error: " + err.Error()
	case h == nil:
		return "missing"
	case h.Origin == media.OriginExternal:
		return h.Ref
	default:
		return string(h.Origin)
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <image>...",
		Short: "Add rooms from equirectangular images",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			for _, path := range args {
				data, err := os.ReadFile(path)
				if err != nil {
					return fmt.Errorf("read %s: %w", path, err)
				}
				scene, err := ws.session.CreateScene(cmd.Context(), filepath.Base(path), data)
				if err != nil {
					return fmt.Errorf("add %s: %w", path, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added %s (%s)\n", scene.ID, humanize.Bytes(uint64(len(data))))
			}
			return nil
		},
	}
}

func newStorageCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "storage",
		Short: "List stored room images",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := ctx.openWorkspace(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			entries, err := ws.store.List(cmd.Context())
			if err != nil {
				return err
			}
			var total uint64
			rows := make([][]string, 0, len(entries))
			for _, e := range entries {
				total += uint64(e.Size)
				rows = append(rows, []string{
					e.ID,
					e.ContentType,
					humanize.Bytes(uint64(e.Size)),
					humanize.Time(e.UpdatedAt),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable(
				[]string{"ID", "Type", "Size", "Updated"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(cmd.OutOrStdout(), "%d images, %s\n", len(entries), humanize.Bytes(total))
			return nil
		},
	}
}
