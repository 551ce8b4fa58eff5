package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pkt.systems/mterm"
	"pkt.systems/pslog"
)

// NewReplayCommand builds the replay command.
func NewReplayCommand() *cobra.Command {
	var cols int
	var rows int
	var text bool
	var scrollback int

	cmd := &cobra.Command{
		Use:   "replay <recording>",
		Short: "Print the screen a recorded session ended with",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer func() {
				_ = file.Close()
			}()
			_, err = mterm.Replay(file, cmd.OutOrStdout(), mterm.ReplayOptions{
				Cols:       cols,
				Rows:       rows,
				Text:       text,
				Scrollback: scrollback,
				Logger:     pslog.Ctx(cmd.Context()).With("component", "replay"),
			})
			if err != nil {
				return fmt.Errorf("replay %s: %w", args[0], err)
			}
			if !text {
				_, _ = fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&cols, "cols", mterm.DefaultTerminalCols, "columns the session was recorded with")
	flags.IntVar(&rows, "rows", mterm.DefaultTerminalRows, "rows the session was recorded with")
	flags.BoolVar(&text, "text", false, "print plain text including scrollback")
	flags.IntVar(&scrollback, "scrollback", mterm.DefaultScrollbackLines, "scrollback rows kept for --text")

	return cmd
}
