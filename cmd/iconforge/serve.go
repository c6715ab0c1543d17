package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/manash/iconforge/internal/api"
	"github.com/manash/iconforge/internal/gallery"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(app *App) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API, gallery files and queue progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			hub := api.NewHub()
			rt, err := app.open(ctx, hub)
			if err != nil {
				return err
			}
			defer rt.Close()

			if addr == "" {
				addr = rt.cfg.Addr
			}
			if len(rt.dispatcher.Available()) == 0 {
				slog.Warn("no provider configured; generation requests will fail", "hint", "iconforge keys set <provider>")
			}

			handler := api.NewHandler(context.WithoutCancel(ctx), api.Deps{
				Dispatcher: rt.dispatcher,
				Projects:   rt.projects,
				Costs:      rt.kv,
				Runner:     rt.runner,
				Gallery:    gallery.New(rt.cfg.GalleryDir, "/img/", rt.cfg.GalleryTTL()),
				Hub:        hub,
			})
			srv := api.NewServer(handler, addr)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(ctx) }()
			fmt.Fprintf(app.Out, "Listening on http://%s\n", addr)

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
				return err
			}
			return <-errCh
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, 127.0.0.1:3000)")
	return cmd
}
