package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/mattn/go-runewidth"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"pkt.systems/mterm"
	"pkt.systems/prettyx"
	"pkt.systems/pslog"
)

type historyLine struct {
	Session int64     `json:"session"`
	Seq     int64     `json:"seq"`
	Time    time.Time `json:"time"`
	Text    string    `json:"text"`
}

// NewHistoryCommand builds the scrollback search command.
func NewHistoryCommand(loader *mterm.Loader) *cobra.Command {
	var path string
	var limit int
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "history <query>",
		Short: "Search lines that scrolled off the screen",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("path") {
				path = cfg.History.Path
			}
			entries, err := mterm.SearchHistory(cmd.Context(), mterm.SearchHistoryOptions{
				Path:   path,
				Query:  args[0],
				Limit:  limit,
				Logger: pslog.Ctx(cmd.Context()).With("component", "history"),
			})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				lines := make([]historyLine, 0, len(entries))
				for _, e := range entries {
					lines = append(lines, historyLine{Session: e.SessionID, Seq: e.Seq, Time: e.Time, Text: e.Text})
				}
				data, err := json.Marshal(lines)
				if err != nil {
					return err
				}
				return prettyx.PrettyTo(out, data, prettyx.DefaultOptions)
			}
			width := outputWidth(out)
			for _, e := range entries {
				line := e.Time.Format(time.DateTime) + "  " + e.Text
				if width > 0 {
					line = runewidth.Truncate(line, width, "…")
				}
				if _, err := fmt.Fprintln(out, line); err != nil {
					return err
				}
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&path, "path", mterm.DefaultHistoryPath(), "history database path")
	flags.IntVar(&limit, "limit", 50, "maximum number of lines")
	flags.BoolVar(&asJSON, "json", false, "print results as JSON")

	return cmd
}

// outputWidth returns the terminal width of out, or 0 when it is not a
// terminal.
func outputWidth(out io.Writer) int {
	f, ok := out.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	w, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 0
	}
	return w
}
