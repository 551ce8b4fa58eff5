package config

const (
	// DefaultConfigDirName is the directory name under the home directory.
	DefaultConfigDirName = ".mterm"
	// DefaultConfigFileName is the default config file name.
	DefaultConfigFileName = "config.yaml"
	// DefaultLogFileName is the default log file name.
	DefaultLogFileName = "mterm.log"
	// DefaultHistoryFileName is the default scrollback archive name.
	DefaultHistoryFileName = "history.db"

	// EnvPrefix prefixes environment overrides, e.g. MTERM_TERMINAL_SHELL.
	EnvPrefix = "MTERM"

	// DefaultTerminalCols is the default terminal columns.
	DefaultTerminalCols = 80
	// DefaultTerminalRows is the default terminal rows.
	DefaultTerminalRows = 24
	// DefaultTerminalTerm is the TERM exported to the shell. The emulator
	// implements a small VT100 subset.
	DefaultTerminalTerm = "vt100"
	// DefaultScrollbackLines is the number of evicted rows kept in memory.
	DefaultScrollbackLines = 1000

	// DefaultHistoryBatchSize is the number of rows written per transaction.
	DefaultHistoryBatchSize = 64
	// DefaultMirrorBasePath is the HTTP base path of the mirror.
	DefaultMirrorBasePath = "/"
)
