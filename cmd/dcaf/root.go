package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/duplocloud/dcaf-sub001/internal/config"
)

var configFile string

var rootCmd = &cobra.Command{
	Use:   "dcaf",
	Short: "dcaf - tenant-scoped graph gateway for conversational agents",
	Long: `dcaf sits between a conversational agent and a multi-tenant platform
graph. It guards every generated query with tenant scoping, selects the
relevant slice of a large graph schema for the model's prompt, and
accumulates what has been shown across the turns of a conversation.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "dcaf.yaml", "Path to configuration file")

	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(indexCmd)
}

// loadConfig loads and validates the configured file.
func loadConfig() (*config.Config, error) {
	return config.Load(configFile)
}

// buildLogger creates the process logger from the logging config.
func buildLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}
