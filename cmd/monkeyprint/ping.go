package main

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/pc6b/monkeyprint/host/channel"
)

func newPingCommand(logger *slog.Logger) *cobra.Command {
	var (
		configPath string
		budget     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Check that the printer board answers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(configPath, logger)
			if err != nil {
				return err
			}
			if !settings.MonkeyprintBoard {
				return errors.New("ping needs a monkeyprint board (monkeyprintBoard: true)")
			}

			printer := newPrinter(settings, logger)
			if err := printer.Open(cmd.Context()); err != nil {
				return err
			}
			defer printer.Close()

			start := time.Now()
			if err := printer.Send(cmd.Context(), channel.Command{Name: "ping", AckRequired: true, Retry: budget}); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Board on %s answered in %v.\n", settings.Printer.Device, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Printer option file (YAML)")
	cmd.Flags().DurationVar(&budget, "timeout", 5*time.Second, "How long to keep retrying")
	return cmd
}
