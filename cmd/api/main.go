// Package main is the entry point for the CarLess API server.
// Its sole responsibility is wiring dependencies together and starting the
// server or the migration tool. No business logic belongs here.
package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/pkordes/carless/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// Use plain stderr; the logger may never have been configured.
		slog.Error("carless failed", "error", err)
		os.Exit(1)
	}
}

// newRootCmd builds the command tree. Running the binary with no
// subcommand serves the API.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:           "carless",
		Short:         "CarLess trip log API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "optional config file; environment variables take precedence")

	load := func() (config.Config, error) { return config.LoadFile(configFile) }

	serve := newServeCmd(load)
	root.AddCommand(serve, newMigrateCmd(load))
	root.RunE = serve.RunE
	return root
}

// newLogger returns the JSON logger used by every command.
// Unknown levels fall back to info.
func newLogger(level string) *slog.Logger {
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(level)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
	return logger
}
