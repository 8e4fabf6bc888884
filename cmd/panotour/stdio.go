package main

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/panotour/internal/mcp"
	"github.com/spf13/cobra"
)

func newStdioCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stdio",
		Short: "Serve the MCP tools over stdin/stdout",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			// Stdout carries JSON-RPC; logs go to stderr.
			ws, err := ctx.openWorkspace(runCtx, os.Stderr)
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			server := mcp.NewServer(mcp.Config{
				Editor:        ws.session,
				TransportMode: "stdio",
				Version:       version,
				Logger:        ws.logger,
			})
			ws.logger.Info("starting stdio transport")
			if err := server.Run(runCtx, &sdkmcp.StdioTransport{}); err != nil && runCtx.Err() == nil {
				return fmt.Errorf("stdio server: %w", err)
			}
			return nil
		},
	}
}
