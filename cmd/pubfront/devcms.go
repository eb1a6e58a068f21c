package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/eringen/pubfront/devcms"
)

func newDevCMSCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "devcms",
		Short: "Run a local CMS that serves imported Markdown posts",
	}
	cmd.AddCommand(newDevCMSServeCommand())
	cmd.AddCommand(newDevCMSImportCommand())
	return cmd
}

func newDevCMSServeCommand() *cobra.Command {
	var addr, content string
	var watch bool
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Import the content dir and serve the CMS API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := devcms.LoadConfig()
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Addr = addr
			}
			if content != "" {
				cfg.ContentDir = content
			}
			store, err := devcms.OpenStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			im := importer(cfg, store)
			hasContent := isDir(cfg.ContentDir)
			if hasContent {
				if _, err := im.ImportDir(ctx, cfg.ContentDir); err != nil {
					return err
				}
			} else {
				slog.Warn("content dir not found, serving stored documents", "dir", cfg.ContentDir)
			}

			srv := devcms.NewServer(cfg, store, slog.Default())
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			if watch && hasContent {
				go func() {
					err := devcms.Watch(ctx, cfg.ContentDir, devcms.DefaultDebounce, slog.Default(), func() {
						if _, err := im.ImportDir(ctx, cfg.ContentDir); err != nil {
							slog.Error("re-import failed", "error", err)
						}
					})
					if err != nil {
						slog.Error("watch stopped", "error", err)
					}
				}()
				slog.Info("watching content", "dir", cfg.ContentDir)
			}

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides DEVCMS_ADDR)")
	cmd.Flags().StringVar(&content, "content", "", "Markdown content dir (overrides DEVCMS_CONTENT)")
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "re-import when content changes")
	return cmd
}

func newDevCMSImportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Import Markdown posts into the CMS database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := devcms.LoadConfig()
			if err != nil {
				return err
			}
			store, err := devcms.OpenStore(cfg.DBPath)
			if err != nil {
				return err
			}
			defer store.Close()

			res, err := importer(cfg, store).ImportDir(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "imported %d documents (%d drafts), ref %s\n", res.Documents, res.Drafts, res.Ref)
			return nil
		},
	}
}

func importer(cfg devcms.Config, store *devcms.Store) *devcms.Importer {
	return &devcms.Importer{
		Store:    store,
		MediaDir: cfg.MediaDir,
		MediaURL: strings.TrimRight(cfg.PublicURL, "/") + "/media",
		Logger:   slog.Default(),
	}
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
