package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/eringen/pubfront"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand() *cobra.Command {
	var addr, staticDir string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Prerender the site and serve it",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := pubfront.LoadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			app, err := pubfront.New(cfg, pubfront.WithStaticDir(staticDir))
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() { errCh <- app.Start(ctx) }()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			if err := app.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides ADDR)")
	cmd.Flags().StringVar(&staticDir, "static", "public", "directory of extra assets served under /public")
	return cmd
}

func newBuildCommand() *cobra.Command {
	var out, staticDir string
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Export the published site as static files",
		RunE: func(cmd *cobra.Command, args []string) error {
			if out == "" {
				return errors.New("--out must not be empty")
			}
			cfg, err := pubfront.LoadConfig()
			if err != nil {
				return err
			}
			app, err := pubfront.New(cfg, pubfront.WithStaticDir(staticDir))
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			start := time.Now()
			routes, err := app.Export(ctx, out)
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			slog.Info("site exported", "out", out, "routes", len(routes), "took", time.Since(start).Round(time.Millisecond))
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "dist", "output directory")
	cmd.Flags().StringVar(&staticDir, "static", "public", "directory of extra assets copied to /public")
	return cmd
}
