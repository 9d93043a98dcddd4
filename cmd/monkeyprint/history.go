package main

import (
	"fmt"
	"log/slog"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pc6b/monkeyprint/history"
)

func newHistoryCommand(logger *slog.Logger) *cobra.Command {
	var (
		path  string
		limit int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded print jobs",
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List the most recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := history.Open(cmd.Context(), path)
			if err != nil {
				return err
			}
			defer store.Close()

			jobs, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			logger.Debug("listed jobs", "count", len(jobs))

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTARTED\tSTATUS\tSLICES\tERROR")
			for _, j := range jobs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d/%d\t%s\n",
					j.ID, j.StartedAt.Local().Format(time.DateTime), j.Status,
					j.SlicesCompleted, j.SlicesTotal, j.Error)
			}
			return w.Flush()
		},
	}
	list.Flags().StringVar(&path, "history", "monkeyprint.db", "SQLite database")
	list.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs")
	cmd.AddCommand(list)

	return cmd
}
