// Package config loads and saves the global imgpack configuration file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mydehq/imgpack/internal/classifier"
	"github.com/mydehq/imgpack/internal/fsx"
	"github.com/mydehq/imgpack/internal/types"
)

// EnvPath overrides the global config location.
const EnvPath = "IMGPACK_CONFIG"

const header = "# imgpack configuration\n# Command-line flags override these values.\n\n"

var logLevels = []string{"debug", "info", "warn", "error"}

// GetDefaults returns the built-in configuration.
func GetDefaults() *types.Config {
	return &types.Config{
		Depth:        1,
		OutputPrefix: "imgshare",
		EXIF:         true,
		LogLevel:     "info",
		Server: types.ServerConfig{
			Addr:       "127.0.0.1:8000",
			MaxConns:   64,
			ExportRate: 2,
		},
		Assets: types.AssetsConfig{
			PhotoSwipeVersion: "5.4.4",
		},
	}
}

// GlobalPath returns the global config file path: $IMGPACK_CONFIG, else
// <user config dir>/imgpack/config.yml.
func GlobalPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return p, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate config directory: %w", err)
	}
	return filepath.Join(dir, "imgpack", "config.yml"), nil
}

// LoadGlobal loads the global config file, falling back to defaults when it does not exist.
func LoadGlobal() (*types.Config, error) {
	path, err := GlobalPath()
	if err != nil {
		return GetDefaults(), err
	}
	return Load(path)
}

// Load reads path over the defaults. A missing file yields the defaults.
func Load(path string) (*types.Config, error) {
	cfg := GetDefaults()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, types.ErrConfig{Path: path, Err: err}
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, types.ErrConfig{Path: path, Err: err}
	}
	if err := Validate(cfg); err != nil {
		return nil, types.ErrConfig{Path: path, Err: err}
	}
	cfg.Path = path
	return cfg, nil
}

// Validate checks values that cannot be expressed in the YAML schema.
func Validate(cfg *types.Config) error {
	if cfg.Depth < 0 {
		return fmt.Errorf("depth must be >= 0, got %d", cfg.Depth)
	}
	if _, err := classifier.NormalizePatterns(cfg.Tabs); err != nil {
		return err
	}
	if cfg.LogLevel != "" && !validLevel(cfg.LogLevel) {
		return fmt.Errorf("log_level must be one of %s, got %q", strings.Join(logLevels, ", "), cfg.LogLevel)
	}
	if cfg.OutputPrefix == "" || strings.ContainsAny(cfg.OutputPrefix, `/\`) {
		return fmt.Errorf("output_prefix %q is not a valid directory name", cfg.OutputPrefix)
	}
	if cfg.Server.MaxConns < 0 {
		return fmt.Errorf("server.max_conns must be >= 0")
	}
	if cfg.Server.ExportRate < 0 {
		return fmt.Errorf("server.export_rate must be >= 0")
	}
	return nil
}

// Save writes cfg to path as YAML.
func Save(path string, cfg *types.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := fsx.WriteFileAtomic(path, append([]byte(header), data...), 0o644); err != nil {
		return types.ErrConfig{Path: path, Err: err}
	}
	return nil
}

// GenerateDefault writes the default configuration to path unless a file already exists.
func GenerateDefault(path string, force bool) error {
	if !force {
		if _, err := os.Stat(path); err == nil {
			return types.ErrConfig{Path: path, Err: os.ErrExist}
		}
	}
	return Save(path, GetDefaults())
}

func validLevel(level string) bool {
	for _, l := range logLevels {
		if strings.EqualFold(level, l) {
			return true
		}
	}
	return false
}
