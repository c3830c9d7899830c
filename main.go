package main

import (
	"log/slog"
	"os"

	"github.com/mlennartz/mail-sentinel/cmd"
)

func main() {
	// Default handler until the root command re-installs one with the
	// level derived from --verbose after flag parsing.
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	})
	slog.SetDefault(slog.New(handler))

	if err := cmd.Execute(); err != nil {
		slog.Error("Command execution failed", "error", err)
		os.Exit(1)
	}
}
