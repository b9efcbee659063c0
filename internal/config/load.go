package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Load loads configuration with priority: defaults < file < flags.
func Load() (*Config, error) {
	cfg, _, err := LoadWithPath()
	return cfg, err
}

// LoadWithPath is Load that also reports which file was used, if any.
func LoadWithPath() (*Config, string, error) {
	path := ConfigPath()
	if path == "" {
		path = findConfigFile()
	}
	if path == "" {
		cfg := Default()
		applyFlags(cfg)
		if err := cfg.Validate(); err != nil {
			return nil, "", fmt.Errorf("invalid config: %w", err)
		}
		return cfg, "", nil
	}
	cfg, err := LoadFile(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

// LoadFile layers a config file between the defaults and the CLI flags and validates
// the result.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := loadFromFile(cfg, path); err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// findConfigFile returns the first existing file among ./gridview.yaml, ./config.yaml
// and the user config directory.
func findConfigFile() string {
	for _, path := range []string{"gridview.yaml", "config.yaml", filepath.Join(ConfigDir(), "config.yaml")} {
		if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
			return path
		}
	}
	return ""
}

// ConfigDir returns the OS-appropriate config directory.
func ConfigDir() string {
	switch runtime.GOOS {
	case "darwin":
		home, _ := os.UserHomeDir()
		return filepath.Join(home, "Library", "Application Support", "Gridview")
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "Gridview")
	default: // Linux and others
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, "gridview")
		}
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "gridview")
	}
}

// loadFromFile overlays a YAML file on cfg. Keys the file omits keep their value;
// unknown keys are rejected so typos do not pass silently.
func loadFromFile(cfg *Config, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
