// Command pubfront serves and exports the blog, and runs a local
// development CMS.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	_ "time/tzdata"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	_ = godotenv.Load()
	setupLogger(os.Getenv("LOG_LEVEL"))

	rootCmd := &cobra.Command{
		Use:   "pubfront",
		Short: "pubfront - a blog front-end for Prismic-compatible CMSs",
		Long: `pubfront renders a blog from a headless CMS speaking the Prismic
REST API. It serves the site, exports it as static files, and ships a
development CMS that imports Markdown posts.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newBuildCommand())
	rootCmd.AddCommand(newDevCMSCommand())
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the pubfront version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pubfront %s\n", version)
		},
	})

	if err := rootCmd.Execute(); err != nil {
		slog.Error("pubfront failed", "error", err)
		os.Exit(1)
	}
}

func setupLogger(level string) {
	logLevel := slog.LevelInfo
	switch level {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}
