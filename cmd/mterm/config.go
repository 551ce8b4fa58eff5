package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"pkt.systems/mterm"
	"pkt.systems/pslog"
)

// NewConfigCommand builds the config command group.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the mterm config file",
	}

	var path string
	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write the default config",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := pslog.Ctx(cmd.Context()).With("component", "config")
			written, err := mterm.BootstrapConfig(mterm.DefaultConfig(), path, force, logger)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), written)
			return err
		},
	}
	initCmd.Flags().StringVar(&path, "path", mterm.DefaultConfigPath(), "config file to write")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config")

	cmd.AddCommand(initCmd)
	return cmd
}
