package config

import (
	"fmt"
	"os"
	"path/filepath"
)

// HomeEnv overrides the dicomsort home directory.
const HomeEnv = "DICOMSORT_HOME"

// GetHome returns the dicomsort home directory
// Priority order:
//  1. DICOMSORT_HOME environment variable (if set)
//  2. ~/.dicomsort
//
// The directory is created if it doesn't exist
func GetHome() (string, error) {
	home := os.Getenv(HomeEnv)
	if home == "" {
		userHome, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("locate user home directory: %w", err)
		}
		home = filepath.Join(userHome, ".dicomsort")
	}

	if err := os.MkdirAll(home, 0755); err != nil {
		return "", fmt.Errorf("create dicomsort home directory: %w", err)
	}

	return home, nil
}

// ConfigPath returns the config file location inside home.
func ConfigPath(home string) string {
	return filepath.Join(home, "config.yaml")
}

// resolveIn returns path unchanged when absolute, otherwise joined to base.
func resolveIn(base, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
