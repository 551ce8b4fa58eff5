package main

import (
	"github.com/spf13/cobra"

	"pkt.systems/mterm"
	"pkt.systems/pslog"
)

// NewRootCommand builds the root CLI command.
func NewRootCommand(loader *mterm.Loader) *cobra.Command {
	var configFile string
	var shellPath string
	var termName string
	var scrollback int
	var mirrorListen string
	var mirrorBase string
	var logFile string
	var recordFile string
	var plain bool
	var noHistory bool
	var noStatus bool

	cmd := &cobra.Command{
		Use:          "mterm",
		Short:        "Minimal terminal emulator for your shell",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			if configFile != "" {
				loader.SetConfigFile(configFile)
			}
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loader.Load()
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			if flags.Changed("shell") {
				cfg.Terminal.Shell = shellPath
			}
			if flags.Changed("term") {
				cfg.Terminal.Term = termName
			}
			if flags.Changed("scrollback") {
				cfg.Terminal.ScrollbackLines = scrollback
			}
			if flags.Changed("mirror") {
				cfg.Mirror.Listen = mirrorListen
			}
			if flags.Changed("mirror-base") {
				cfg.Mirror.BasePath = mirrorBase
			}
			if flags.Changed("log-file") {
				cfg.Log.File = logFile
			}

			logger, closer, err := openFileLogger(cfg.Log.File)
			if err != nil {
				return err
			}
			defer func() {
				_ = closer.Close()
			}()
			logger = logger.With("component", "interactive")
			ctx := pslog.ContextWithLogger(cmd.Context(), logger)
			if used := loader.ConfigFileUsed(); used != "" {
				logger.Debug("config loaded", "path", used)
			}

			return mterm.Interactive(ctx, mterm.InteractiveOptions{
				Config:    cfg,
				Plain:     plain,
				Record:    recordFile,
				NoHistory: noHistory,
				NoStatus:  noStatus,
				Logger:    logger,
			})
		},
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path")

	flags := cmd.Flags()
	flags.StringVar(&shellPath, "shell", "", "override login shell path")
	flags.StringVar(&termName, "term", mterm.DefaultTerminalTerm, "TERM for the shell")
	flags.IntVar(&scrollback, "scrollback", mterm.DefaultScrollbackLines, "evicted rows kept in memory")
	flags.StringVar(&mirrorListen, "mirror", "", "serve a read-only websocket mirror on this address")
	flags.StringVar(&mirrorBase, "mirror-base", mterm.DefaultMirrorBasePath, "HTTP base path of the mirror")
	flags.StringVar(&logFile, "log-file", mterm.DefaultLogPath(), "log file path")
	flags.StringVar(&recordFile, "record", "", "append raw shell output to this file")
	flags.BoolVar(&plain, "plain", false, "draw with plain ANSI output instead of the full-screen view")
	flags.BoolVar(&noHistory, "no-history", false, "do not archive scrolled-off lines")
	flags.BoolVar(&noStatus, "no-status", false, "hide the status line")

	cmd.AddCommand(NewReplayCommand())
	cmd.AddCommand(NewHistoryCommand(loader))
	cmd.AddCommand(NewWatchCommand())
	cmd.AddCommand(NewConfigCommand())

	return cmd
}
