package config

import (
	"os"
	"path/filepath"
)

// DefaultConfigDir returns the default mterm config directory.
func DefaultConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return DefaultConfigDirName
	}
	return filepath.Join(home, DefaultConfigDirName)
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), DefaultConfigFileName)
}

// DefaultLogPath returns the default log file path.
func DefaultLogPath() string {
	return filepath.Join(DefaultConfigDir(), DefaultLogFileName)
}

// DefaultHistoryPath returns the default scrollback archive path.
func DefaultHistoryPath() string {
	return filepath.Join(DefaultConfigDir(), DefaultHistoryFileName)
}
