// Package config stores the console host in a one-line file under the user's
// configuration directory.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
)

const (
	// DefaultHost is used when neither the command line nor host.txt names one.
	DefaultHost = "127.0.0.1"

	// EnvDir overrides the configuration directory.
	EnvDir = "THEATREMIX_CONFIG_DIR"

	appDir   = "theatremix-remote-display"
	hostFile = "host.txt"
)

// ErrNoHost is returned by LoadHost when the file is missing or blank.
var ErrNoHost = errors.New("no host configured")

// Dir returns the directory holding host.txt.
func Dir() (string, error) {
	if dir := strings.TrimSpace(os.Getenv(EnvDir)); dir != "" {
		return dir, nil
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("resolve user config directory: %w", err)
	}
	return filepath.Join(base, appDir), nil
}

// Path returns the full path of host.txt.
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, hostFile), nil
}

// LoadHost reads the trimmed host from path.
func LoadHost(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", ErrNoHost
		}
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	host := strings.TrimSpace(string(data))
	if host == "" {
		return "", ErrNoHost
	}
	return host, nil
}

// SaveHost writes host to path, creating the parent directory.
func SaveHost(path, host string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(host), 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// InitialHost picks the startup host: a non-blank arg, then the stored host,
// then DefaultHost. A host given as arg is saved for the next run. An empty
// path disables the file entirely.
func InitialHost(arg, path string, logger *log.Logger) string {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("config")

	if host := strings.TrimSpace(arg); host != "" {
		if path != "" {
			if err := SaveHost(path, host); err != nil {
				logger.Warn("Could not save host", "path", path, "error", err)
			} else {
				logger.Debug("Saved host from command line", "host", host, "path", path)
			}
		}
		return host
	}

	if path != "" {
		host, err := LoadHost(path)
		switch {
		case err == nil:
			logger.Debug("Loaded host", "host", host, "path", path)
			return host
		case errors.Is(err, ErrNoHost):
			logger.Debug("No stored host, using default", "default", DefaultHost)
		default:
			logger.Warn("Could not read stored host", "error", err)
		}
	}
	return DefaultHost
}
