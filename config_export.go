package mterm

import "pkt.systems/mterm/internal/config"

// Config mirrors the mterm configuration.
type Config = config.Config

// TerminalConfig configures the shell and the screen.
type TerminalConfig = config.TerminalConfig

// LogConfig configures logging.
type LogConfig = config.LogConfig

// HistoryConfig configures the scrollback archive.
type HistoryConfig = config.HistoryConfig

// MirrorConfig configures the websocket mirror.
type MirrorConfig = config.MirrorConfig

// Loader wraps configuration loading via Viper.
type Loader = config.Loader

const (
	// DefaultConfigDirName is the directory name under the home directory.
	DefaultConfigDirName = config.DefaultConfigDirName
	// DefaultConfigFileName is the default config file name.
	DefaultConfigFileName = config.DefaultConfigFileName
	// DefaultLogFileName is the default log file name.
	DefaultLogFileName = config.DefaultLogFileName
	// DefaultHistoryFileName is the default scrollback archive name.
	DefaultHistoryFileName = config.DefaultHistoryFileName

	// DefaultTerminalCols is the default terminal column count.
	DefaultTerminalCols = config.DefaultTerminalCols
	// DefaultTerminalRows is the default terminal row count.
	DefaultTerminalRows = config.DefaultTerminalRows
	// DefaultTerminalTerm is the default TERM for the shell.
	DefaultTerminalTerm = config.DefaultTerminalTerm
	// DefaultScrollbackLines is the default in-memory scrollback.
	DefaultScrollbackLines = config.DefaultScrollbackLines
	// DefaultMirrorBasePath is the default mirror HTTP base path.
	DefaultMirrorBasePath = config.DefaultMirrorBasePath
)

// NewLoader returns a config loader with defaults wired.
func NewLoader() *config.Loader {
	return config.NewLoader()
}

// DefaultConfig returns default mterm configuration.
func DefaultConfig() Config {
	return config.DefaultConfig()
}

// DefaultConfigDir returns the default config directory.
func DefaultConfigDir() string {
	return config.DefaultConfigDir()
}

// DefaultConfigPath returns the default config path.
func DefaultConfigPath() string {
	return config.DefaultConfigPath()
}

// DefaultLogPath returns the default log path.
func DefaultLogPath() string {
	return config.DefaultLogPath()
}

// DefaultHistoryPath returns the default scrollback archive path.
func DefaultHistoryPath() string {
	return config.DefaultHistoryPath()
}
