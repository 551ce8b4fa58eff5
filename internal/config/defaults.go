package config

import "github.com/spf13/viper"

// DefaultConfig returns the default configuration values.
func DefaultConfig() Config {
	return Config{
		Terminal: TerminalConfig{
			Term:            DefaultTerminalTerm,
			Cols:            DefaultTerminalCols,
			Rows:            DefaultTerminalRows,
			ScrollbackLines: DefaultScrollbackLines,
		},
		Log: LogConfig{
			File: DefaultLogPath(),
		},
		History: HistoryConfig{
			Enabled:   true,
			Path:      DefaultHistoryPath(),
			BatchSize: DefaultHistoryBatchSize,
		},
		Mirror: MirrorConfig{
			BasePath: DefaultMirrorBasePath,
		},
	}
}

func setDefaults(v *viper.Viper) {
	def := DefaultConfig()
	v.SetDefault("terminal.shell", def.Terminal.Shell)
	v.SetDefault("terminal.args", def.Terminal.Args)
	v.SetDefault("terminal.term", def.Terminal.Term)
	v.SetDefault("terminal.cols", def.Terminal.Cols)
	v.SetDefault("terminal.rows", def.Terminal.Rows)
	v.SetDefault("terminal.scrollback_lines", def.Terminal.ScrollbackLines)
	v.SetDefault("log.file", def.Log.File)
	v.SetDefault("history.enabled", def.History.Enabled)
	v.SetDefault("history.path", def.History.Path)
	v.SetDefault("history.batch_size", def.History.BatchSize)
	v.SetDefault("mirror.listen", def.Mirror.Listen)
	v.SetDefault("mirror.base_path", def.Mirror.BasePath)
}
