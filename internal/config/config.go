package config

import (
	"errors"
	"strings"

	"github.com/spf13/viper"
)

// Config is the root configuration for mterm.
type Config struct {
	Terminal TerminalConfig `mapstructure:"terminal" yaml:"terminal"`
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	History  HistoryConfig  `mapstructure:"history" yaml:"history"`
	Mirror   MirrorConfig   `mapstructure:"mirror" yaml:"mirror"`
}

// TerminalConfig configures the shell and the screen.
type TerminalConfig struct {
	// Shell overrides shell resolution (passwd, $SHELL, /bin/sh).
	Shell           string   `mapstructure:"shell" yaml:"shell"`
	Args            []string `mapstructure:"args" yaml:"args"`
	Term            string   `mapstructure:"term" yaml:"term"`
	Cols            int      `mapstructure:"cols" yaml:"cols"`
	Rows            int      `mapstructure:"rows" yaml:"rows"`
	ScrollbackLines int      `mapstructure:"scrollback_lines" yaml:"scrollback_lines"`
}

// LogConfig configures logging.
type LogConfig struct {
	File string `mapstructure:"file" yaml:"file"`
}

// HistoryConfig configures the scrollback archive.
type HistoryConfig struct {
	Enabled   bool   `mapstructure:"enabled" yaml:"enabled"`
	Path      string `mapstructure:"path" yaml:"path"`
	BatchSize int    `mapstructure:"batch_size" yaml:"batch_size"`
}

// MirrorConfig configures the read-only websocket mirror.
type MirrorConfig struct {
	// Listen enables the mirror when non-empty.
	Listen   string `mapstructure:"listen" yaml:"listen"`
	BasePath string `mapstructure:"base_path" yaml:"base_path"`
}

// Loader wraps Viper configuration loading for mterm.
type Loader struct {
	v          *viper.Viper
	configFile string
}

// NewLoader initializes a Loader with standard defaults.
func NewLoader() *Loader {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/mterm")
	v.AddConfigPath("$HOME/" + DefaultConfigDirName)
	v.AddConfigPath("/etc/mterm")

	setDefaults(v)
	return &Loader{v: v}
}

// Viper exposes the underlying Viper instance for flag binding.
func (l *Loader) Viper() *viper.Viper {
	return l.v
}

// SetConfigFile sets an explicit config file path.
func (l *Loader) SetConfigFile(path string) {
	l.configFile = strings.TrimSpace(path)
}

// ConfigFileUsed returns the file the configuration was read from, if any.
func (l *Loader) ConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// ReadInConfig reads configuration from file if available.
func (l *Loader) ReadInConfig() error {
	if l.configFile != "" {
		l.v.SetConfigFile(l.configFile)
	}

	if err := l.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return err
	}
	return nil
}

// Load reads configuration and unmarshals it into a Config struct.
func (l *Loader) Load() (Config, error) {
	if err := l.ReadInConfig(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := l.v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
