package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// GetDefaults resolves the paths the CLI works with. PLATELOG_CONFIG_PATH
// overrides the config file location (otherwise ~/.config/platelog.toml)
// and PLATELOG_HOME overrides the data root (otherwise
// ~/.local/share/platelog); log_dir and data_dir hang off the data root.
func GetDefaults() (map[string]string, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
		"data_dir":    filepath.Join(baseDir, "data"),
	}, nil
}

func getConfigPath() (string, error) {
	if path := os.Getenv("PLATELOG_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "platelog.toml"), nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("PLATELOG_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "platelog"), nil
}
