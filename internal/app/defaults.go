package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Defaults are the paths used when no flag or config value overrides them.
type Defaults struct {
	ConfigPath string
	BaseDir    string
	LogDir     string
}

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - KNOT_CONFIG_PATH: config file location (default: ~/.config/knot.toml)
//   - KNOT_HOME: base directory for knot data (default: ~/.local/share/knot)
func GetDefaults() (*Defaults, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}

	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	return &Defaults{
		ConfigPath: configPath,
		BaseDir:    baseDir,
		LogDir:     filepath.Join(baseDir, "log"),
	}, nil
}

// getConfigPath returns the config file path, checking KNOT_CONFIG_PATH env var first,
// then falling back to the default ~/.config/knot.toml.
func getConfigPath() (string, error) {
	if path := os.Getenv("KNOT_CONFIG_PATH"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "knot.toml"), nil
}

// getBaseDir returns the base directory for knot data, checking KNOT_HOME env var first,
// then falling back to the XDG default ~/.local/share/knot.
func getBaseDir() (string, error) {
	if path := os.Getenv("KNOT_HOME"); path != "" {
		return path, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "knot"), nil
}
