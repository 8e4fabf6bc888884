package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rpggio/panotour/internal/player"
	"github.com/rpggio/panotour/internal/transport"
	"github.com/spf13/cobra"
)

func newPlayCommand(ctx *commandContext) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "play <bundle-dir|tour.zip>",
		Short: "Serve an exported bundle read-only",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: parseLogLevel(cfg.Log.Level),
			}))

			p, err := player.Open(args[0])
			if err != nil {
				return err
			}
			defer p.Close()

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			handler := middleware.RequestID(transport.RequestLogger(logger)(p.Handler()))
			srv := &http.Server{
				Addr:              addr,
				Handler:           handler,
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("playing tour", "source", args[0], "rooms", len(p.Tour().Scenes), "start", p.StartScene())
			fmt.Fprintf(cmd.OutOrStdout(), "Tour playing on http://%s/\n", addr)
			return serveUntilDone(runCtx, srv, logger)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "127.0.0.1:8081", "Listen address")
	return cmd
}
