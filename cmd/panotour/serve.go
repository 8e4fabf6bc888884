package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rpggio/panotour/internal/mcp"
	"github.com/rpggio/panotour/internal/transport"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var host string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the editor API, the MCP endpoint and the preview player over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			ws, err := ctx.openWorkspace(runCtx, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer closeWorkspace(ws)

			cfg := ws.cfg
			if host != "" {
				cfg.Server.Host = host
			}
			if port != 0 {
				cfg.Server.Port = port
			}

			mcpServer := mcp.NewServer(mcp.Config{
				Editor:        ws.session,
				Token:         cfg.Server.Token,
				TransportMode: "http",
				Version:       version,
				Logger:        ws.logger,
			})
			mcpHandler := sdkmcp.NewStreamableHTTPHandler(
				func(r *http.Request) *sdkmcp.Server { return mcpServer },
				&sdkmcp.StreamableHTTPOptions{
					SessionTimeout: 30 * time.Minute,
				},
			)

			router := transport.NewServer(ws.session, transport.Options{
				Token:          cfg.Server.Token,
				MCP:            mcpHandler,
				LibDir:         cfg.Bundle.LibDir,
				MaxUploadBytes: cfg.Server.MaxUploadMB << 20,
				Logger:         ws.logger,
			})

			httpServer := &http.Server{
				Addr:              cfg.Addr(),
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			ws.logger.Info("server listening", "addr", httpServer.Addr, "auth", cfg.Server.Token != "")
			fmt.Fprintf(cmd.OutOrStdout(), "Editor API on http://%s/api, preview on http://%s/player/\n", httpServer.Addr, httpServer.Addr)
			return serveUntilDone(runCtx, httpServer, ws.logger)
		},
	}

	cmd.Flags().StringVar(&host, "host", "", "Listen host (overrides server.host)")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Listen port (overrides server.port)")
	return cmd
}

// serveUntilDone runs srv until ctx is cancelled or the listener fails.
func serveUntilDone(ctx context.Context, srv *http.Server, logger *slog.Logger) error {
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	logger.Info("shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}

func closeWorkspace(ws *workspace) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := ws.Close(ctx); err != nil {
		ws.logger.Error("close failed", "error", err)
	}
}
