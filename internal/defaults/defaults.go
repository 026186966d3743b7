// Package defaults provides embedded default configuration files.
// These are copied to the platform data directory on first run or when
// a reset is requested.
//
// Platform paths:
//
//	macOS:   ~/Library/Application Support/Charlotte/
//	Windows: %AppData%\Charlotte\
//	Linux:   ~/.config/charlotte/
//
// Override with the CHARLOTTE_DATA_DIR environment variable.
package defaults

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

//go:embed charlotte-defaults/*
var defaultFiles embed.FS

const embedRoot = "charlotte-defaults"

// DataDir returns the platform-appropriate data directory.
func DataDir() (string, error) {
	if dir := os.Getenv("CHARLOTTE_DATA_DIR"); dir != "" {
		return dir, nil
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}

	// Linux: lowercase per XDG convention; macOS/Windows: title case.
	if runtime.GOOS == "linux" {
		return filepath.Join(configDir, "charlotte"), nil
	}
	return filepath.Join(configDir, "Charlotte"), nil
}

// EnsureDataDir creates the data directory if it doesn't exist and
// copies default files if they're missing.
func EnsureDataDir() (string, error) {
	dir, err := DataDir()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create data directory: %w", err)
	}

	if err := copyDefaults(dir, false); err != nil {
		return "", err
	}

	return dir, nil
}

// Reset replaces existing default files in dir with the embedded originals.
func Reset(dir string) error {
	return copyDefaults(dir, true)
}

func copyDefaults(dir string, overwrite bool) error {
	return fs.WalkDir(defaultFiles, embedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == embedRoot {
			return nil
		}

		// Use TrimPrefix instead of filepath.Rel because embed.FS always
		// uses forward slashes, but filepath.Rel produces backslashes on Windows.
		relPath := strings.TrimPrefix(path, embedRoot+"/")
		destPath := filepath.Join(dir, relPath)

		if d.IsDir() {
			return os.MkdirAll(destPath, 0755)
		}

		if !overwrite {
			if _, err := os.Stat(destPath); err == nil {
				return nil
			}
		}

		data, err := defaultFiles.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read embedded %s: %w", path, err)
		}
		if err := os.WriteFile(destPath, data, 0644); err != nil {
			return fmt.Errorf("failed to write %s: %w", destPath, err)
		}
		return nil
	})
}

// GetDefault returns the content of a default file by name.
// Example: GetDefault("config.yaml")
func GetDefault(name string) ([]byte, error) {
	return defaultFiles.ReadFile(embedRoot + "/" + name)
}

// ListDefaults returns the names of all default files.
func ListDefaults() ([]string, error) {
	var files []string
	err := fs.WalkDir(defaultFiles, embedRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && path != embedRoot {
			files = append(files, strings.TrimPrefix(path, embedRoot+"/"))
		}
		return nil
	})
	return files, err
}
