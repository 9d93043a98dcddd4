package main

import (
	"github.com/spf13/cobra"

	"github.com/pc6b/monkeyprint/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect printer options",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "defaults",
		Short: "Print the default options as YAML",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := config.Marshal(config.Defaults())
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	})

	var path string
	check := &cobra.Command{
		Use:   "check",
		Short: "Validate an option file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := config.Load(path)
			if err != nil {
				return err
			}
			if _, err := config.Parse(opts); err != nil {
				return err
			}
			for _, name := range config.Unknown(opts) {
				cmd.Printf("unknown option %q is ignored\n", name)
			}
			cmd.Printf("%s is valid\n", path)
			return nil
		},
	}
	check.Flags().StringVarP(&path, "config", "c", "", "Printer option file (YAML)")
	check.MarkFlagRequired("config")
	cmd.AddCommand(check)

	return cmd
}
