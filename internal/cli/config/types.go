// Package config loads machpatch settings from defaults, machpatch.yaml,
// MACHPATCH_ environment variables and command-line flags.
package config

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lateralusd/machpatch"
	"github.com/lateralusd/machpatch/internal/macho"
	"github.com/lateralusd/machpatch/internal/webserver"
)

const (
	DefaultConfigFile = "machpatch.yaml"
	DefaultCPU        = "arm64"
	DefaultPlatform   = "ios"
	DefaultOutputDir  = "."
	DefaultLogLevel   = "info"
	EnvPrefix         = "MACHPATCH_"
)

type Config struct {
	Library     string `koanf:"library"`
	CPU         string `koanf:"cpu"`
	Platform    string `koanf:"platform"`
	OutputDir   string `koanf:"output_dir"`
	Addr        string `koanf:"addr"`
	HistoryFile string `koanf:"history_file"`
	LogLevel    string `koanf:"log_level"`
	Verbose     bool   `koanf:"verbose"`
}

// Defaults returns the configuration used when nothing overrides it.
func Defaults() *Config {
	return &Config{
		Library:   machpatch.DefaultLibrary,
		CPU:       DefaultCPU,
		Platform:  DefaultPlatform,
		OutputDir: DefaultOutputDir,
		Addr:      webserver.DefaultAddr,
		LogLevel:  DefaultLogLevel,
	}
}

func (c *Config) Validate() error {
	if c.Library == "" {
		return fmt.Errorf("library must not be empty")
	}
	if _, err := c.CPUType(); err != nil {
		return err
	}
	if _, err := c.PlatformID(); err != nil {
		return err
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

func (c *Config) CPUType() (macho.CpuType, error) {
	return macho.ParseCpuType(c.CPU)
}

func (c *Config) PlatformID() (macho.Platform, error) {
	return macho.ParsePlatform(c.Platform)
}

// Level is the slog level for LogLevel. Verbose forces debug.
func (c *Config) Level() (slog.Level, error) {
	if c.Verbose {
		return slog.LevelDebug, nil
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid log level %q", c.LogLevel)
	}
	return lvl, nil
}
