// SPDX-License-Identifier: MPL-2.0

// Package config loads magepack's configuration: defaults, then an optional
// YAML config file in the platform config directory, then MAGEPACK_*
// environment variables. Flags override all of it at the CLI layer.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/spf13/viper"
)

const (
	// AppName is the application name, used for config paths and the
	// environment variable prefix.
	AppName = "magepack"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "yaml"
)

// Config holds the resolved configuration values.
type Config struct {
	// BasePath is the project root expected to contain a vendor/ tree.
	BasePath string `mapstructure:"base_path"`
	// OutputDir receives the built archives.
	OutputDir string `mapstructure:"output_dir"`
	// Format is "magento" or "composer".
	Format string `mapstructure:"format"`
	// Mode is "individual" or "single".
	Mode string `mapstructure:"mode"`
	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose"`
}

// configFileOverride allows the --config flag to bypass discovery.
var configFileOverride string

// SetConfigFilePathOverride sets a custom config file path, used by the
// --config flag.
func SetConfigFilePathOverride(path string) {
	configFileOverride = path
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		BasePath:  ".",
		OutputDir: "artifacts",
		Format:    "magento",
		Mode:      "individual",
	}
}

// ConfigDir returns the magepack configuration directory using
// platform-specific conventions: Windows uses %APPDATA%, macOS uses
// ~/Library/Application Support, and Linux/others use $XDG_CONFIG_HOME
// (defaulting to ~/.config).
func ConfigDir() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default: // Linux and others
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// Load resolves the configuration from defaults, the config file (when
// present), and the environment.
func Load() (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("base_path", defaults.BasePath)
	v.SetDefault("output_dir", defaults.OutputDir)
	v.SetDefault("format", defaults.Format)
	v.SetDefault("mode", defaults.Mode)
	v.SetDefault("verbose", defaults.Verbose)

	v.SetEnvPrefix(strings.ToUpper(AppName))
	v.AutomaticEnv()

	if configFileOverride != "" {
		v.SetConfigFile(configFileOverride)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", configFileOverride, err)
		}
	} else {
		cfgDir, err := ConfigDir()
		if err != nil {
			return nil, err
		}
		v.SetConfigName(ConfigFileName)
		v.SetConfigType(ConfigFileExt)
		v.AddConfigPath(cfgDir)
		if err := v.ReadInConfig(); err != nil {
			// A missing config file is fine; anything else is not.
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	return &cfg, nil
}
