// Package config holds the process configuration for the navigation data
// manager. Values come from Default and are overlaid by a YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"
)

type Config struct {
	// DataPath is the directory that contains the mmaps/ folder.
	DataPath string     `yaml:"data_path"`
	Mmap     MmapConfig `yaml:"mmap"`
	Log      LogConfig  `yaml:"log"`
}

type MmapConfig struct {
	Enabled      bool   `yaml:"enabled"`
	DisabledMaps string `yaml:"disabled_maps"` // comma separated map ids
}

type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"` // empty keeps logging on the console only
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
	Compress   bool   `yaml:"compress"`
}

func Default() *Config {
	return &Config{
		DataPath: "./",
		Mmap: MmapConfig{
			Enabled: true,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  100,
			MaxBackups: 3,
			MaxAgeDays: 28,
		},
	}
}

// Load reads path over the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataPath) == "" {
		return errors.New("data_path must not be empty")
	}
	if _, err := c.Log.ZapLevel(); err != nil {
		return err
	}
	if c.Log.MaxSizeMB < 0 || c.Log.MaxBackups < 0 || c.Log.MaxAgeDays < 0 {
		return errors.New("log rotation limits must not be negative")
	}
	return nil
}

func (l LogConfig) ZapLevel() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return zapcore.InfoLevel, fmt.Errorf("log level %q: %w", l.Level, err)
	}
	return lvl, nil
}
