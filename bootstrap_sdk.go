package mterm

import (
	"fmt"
	"os"
	"path/filepath"

	"go.yaml.in/yaml/v3"

	"pkt.systems/pslog"
)

// BootstrapConfig writes cfg as YAML to path, or to DefaultConfigPath when
// path is empty. An existing file is only replaced when force is set.
func BootstrapConfig(cfg Config, path string, force bool, logger pslog.Logger) (string, error) {
	if logger == nil {
		logger = pslog.LoggerFromEnv()
	}
	if path == "" {
		path = DefaultConfigPath()
	}

	if _, err := os.Stat(path); err == nil {
		if !force {
			return "", fmt.Errorf("config already exists at %s", path)
		}
	} else if !os.IsNotExist(err) {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	logger.Info("bootstrapped config", "path", path)
	return path, nil
}
