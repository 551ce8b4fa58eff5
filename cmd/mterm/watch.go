package main

import (
	"errors"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/mterm"
	"pkt.systems/pslog"
)

// NewWatchCommand builds the mirror viewer command.
func NewWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <mirror-url>",
		Short: "Follow a session served with --mirror",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := mterm.WatchOptions{
				URL:    args[0],
				Out:    cmd.OutOrStdout(),
				Logger: pslog.Ctx(cmd.Context()),
			}
			if term.IsTerminal(int(os.Stdout.Fd())) {
				if w, h, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
					opts.Cols, opts.Rows = w, h
				}
			}
			err := mterm.Watch(cmd.Context(), opts)
			if errors.Is(err, mterm.ErrRemoteExit) {
				cmd.PrintErrln(err)
				return nil
			}
			return err
		},
	}
	return cmd
}
