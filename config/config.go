/*
Copyright 2025 espforge Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config provides configuration loading and management for
// espforge. Projects describe themselves in an espforge.toml at the
// project root; every setting has a default so the tool also works with
// no config file at all.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the complete project configuration
type Config struct {
	Project ProjectConfig          `mapstructure:"project" toml:"project"`
	Release ReleaseConfig          `mapstructure:"release" toml:"release"`
	Logging LoggingConfig          `mapstructure:"logging" toml:"logging"`
	Boards  map[string]BoardConfig `mapstructure:"boards" toml:"boards"`
}

// ProjectConfig holds project-level settings
type ProjectConfig struct {
	Name          string `mapstructure:"name" toml:"name"`
	Description   string `mapstructure:"description" toml:"description"`
	FirmwareDir   string `mapstructure:"firmware_dir" toml:"firmware_dir"`
	BuildDir      string `mapstructure:"build_dir" toml:"build_dir"`
	VersionSource string `mapstructure:"version_source" toml:"version_source"`
	VersionFile   string `mapstructure:"version_file" toml:"version_file"`
}

// ReleaseConfig holds release tree settings
type ReleaseConfig struct {
	KeepReleases int `mapstructure:"keep_releases" toml:"keep_releases"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string `mapstructure:"level" toml:"level"`
}

// BoardConfig describes one supported board. The map key in [boards]
// is the board key used in firmware filenames; Env is the build
// environment that produces its binaries and defaults to the key.
type BoardConfig struct {
	Name        string `mapstructure:"name" toml:"name"`
	Env         string `mapstructure:"env" toml:"env"`
	Chip        string `mapstructure:"chip" toml:"chip"`
	Description string `mapstructure:"description" toml:"description"`
	Group       string `mapstructure:"group" toml:"group"`
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Project: ProjectConfig{
			Name:          "ESP32 Project",
			FirmwareDir:   "firmware",
			BuildDir:      filepath.Join(".pio", "build"),
			VersionSource: "git",
			VersionFile:   "version.txt",
		},
		Release: ReleaseConfig{
			KeepReleases: 5,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// SetDefaults sets default values in viper
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("project.name", defaults.Project.Name)
	viper.SetDefault("project.firmware_dir", defaults.Project.FirmwareDir)
	viper.SetDefault("project.build_dir", defaults.Project.BuildDir)
	viper.SetDefault("project.version_source", defaults.Project.VersionSource)
	viper.SetDefault("project.version_file", defaults.Project.VersionFile)

	viper.SetDefault("release.keep_releases", defaults.Release.KeepReleases)

	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads configuration from viper and returns a Config struct
func Load() (*Config, error) {
	cfg := &Config{}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// LoadFromFile reads configuration from a specific file
func LoadFromFile(path string) (*Config, error) {
	viper.SetConfigFile(path)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	return Load()
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Project.FirmwareDir == "" {
		return fmt.Errorf("firmware_dir is required")
	}

	switch c.Project.VersionSource {
	case "git", "file":
	default:
		return fmt.Errorf("invalid version_source: %s", c.Project.VersionSource)
	}

	if c.Release.KeepReleases < 1 {
		return fmt.Errorf("keep_releases must be at least 1")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	return nil
}

// NameOverrides derives the build-environment to board-key mapping from
// the configured boards, for the friendly-name resolver.
func (c *Config) NameOverrides() map[string]string {
	overrides := make(map[string]string, len(c.Boards))
	for key, board := range c.Boards {
		env := board.Env
		if env == "" {
			env = key
		}
		overrides[env] = key
	}
	return overrides
}

// InitViper initializes viper with default configuration paths
func InitViper(configFile string) error {
	SetDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		// Search the working directory first, then the user config dir.
		viper.AddConfigPath(".")
		home, _ := os.UserHomeDir()
		if home != "" {
			viper.AddConfigPath(filepath.Join(home, ".config", "espforge"))
		}

		viper.SetConfigType("toml")
		viper.SetConfigName("espforge")
	}

	// Environment variable support
	viper.SetEnvPrefix("ESPFORGE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Read config file if exists
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults
	}

	return nil
}
