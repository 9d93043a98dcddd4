package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/pc6b/monkeyprint/config"
	"github.com/pc6b/monkeyprint/logging"
)

const defaultLogLevel = "info"

func main() {
	var levelVar slog.LevelVar
	levelVar.Set(slog.LevelInfo)

	logger := logging.New(logging.ModeCLI, os.Stderr, &levelVar)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(logger, &levelVar)
	if err := root.ExecuteContext(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Warn("interrupted", "error", err)
			os.Exit(130)
		}
		logger.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func newRootCommand(logger *slog.Logger, levelVar *slog.LevelVar) *cobra.Command {
	logLevel := defaultLogLevel

	root := &cobra.Command{
		Use:           "monkeyprint",
		Short:         "Drive a DLP resin printer: board, projector and slice exposure",
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&logLevel, "log-level", defaultLogLevel, "Log verbosity (debug, info, warning, error)")
	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		level, err := logging.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		if levelVar != nil {
			levelVar.Set(level)
		}
		return nil
	}

	root.AddCommand(
		newPrintCommand(logger),
		newPingCommand(logger),
		newShellCommand(logger),
		newConfigCommand(),
		newHistoryCommand(logger),
	)
	return root
}

// loadSettings reads the option file at path, or the defaults when path is
// empty.
func loadSettings(path string, logger *slog.Logger) (config.Settings, error) {
	opts := config.Defaults()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return config.Settings{}, err
		}
		opts = loaded
	}
	for _, name := range config.Unknown(opts) {
		logger.Warn("ignoring unknown option", "option", name)
	}
	return config.Parse(opts)
}
