// Package config loads sdkbuild settings from an optional YAML file.
//
// Example sdkbuild.yaml:
//
//	state_file: /var/lib/ci/sdkbuild-state.json
//	temp_dir: D:/ci/local-temp
//	artifacts_dir: D:/ci/artifacts
//	log_level: debug
//	command_timeout: 45m
//	strict: false
//	vcs: hg
//	urls:
//	  cegui: https://bitbucket.org/cegui/cegui
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "sdkbuild.yaml"

// Config holds settings shared by all commands. Command line flags override
// the values loaded here.
type Config struct {
	// StateFile is the build state file; empty selects the per-user default.
	StateFile string `yaml:"state_file"`

	// TempDir holds the source checkouts, one subdirectory per project.
	TempDir string `yaml:"temp_dir"`

	// ArtifactsDir receives the zip archives.
	ArtifactsDir string `yaml:"artifacts_dir"`

	// ArtifactsUnarchivedDir is the staging area archives are made from.
	ArtifactsUnarchivedDir string `yaml:"artifacts_unarchived_dir"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"log_level"`

	// CommandTimeout bounds every external command; zero disables it.
	CommandTimeout time.Duration `yaml:"command_timeout"`

	// Strict aborts a plan on its first failing build command.
	Strict bool `yaml:"strict"`

	// VCS selects the source client, "hg" or "git".
	VCS string `yaml:"vcs"`

	// URLs overrides the repository URL per project name.
	URLs map[string]string `yaml:"urls"`
}

// Default returns the configuration used when no file is present. Paths
// are rooted at cwd.
func Default(cwd string) *Config {
	return &Config{
		TempDir:                filepath.Join(cwd, "local-temp"),
		ArtifactsDir:           filepath.Join(cwd, "artifacts"),
		ArtifactsUnarchivedDir: filepath.Join(cwd, "artifacts", "unarchived"),
		LogLevel:               "info",
		VCS:                    "hg",
		URLs:                   map[string]string{},
	}
}

// Load reads the file at path over the defaults rooted at cwd. A missing
// file is not an error; a malformed one is.
func Load(path, cwd string) (*Config, error) {
	cfg := Default(cwd)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Durations are given as strings like "45m".
	type yamlConfig struct {
		StateFile              string            `yaml:"state_file"`
		TempDir                string            `yaml:"temp_dir"`
		ArtifactsDir           string            `yaml:"artifacts_dir"`
		ArtifactsUnarchivedDir string            `yaml:"artifacts_unarchived_dir"`
		LogLevel               string            `yaml:"log_level"`
		CommandTimeout         string            `yaml:"command_timeout"`
		Strict                 *bool             `yaml:"strict"`
		VCS                    string            `yaml:"vcs"`
		URLs                   map[string]string `yaml:"urls"`
	}

	var yc yamlConfig
	if err := yaml.Unmarshal(data, &yc); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	base := filepath.Dir(path)
	if yc.StateFile != "" {
		cfg.StateFile = resolve(base, yc.StateFile)
	}
	if yc.TempDir != "" {
		cfg.TempDir = resolve(base, yc.TempDir)
	}
	if yc.ArtifactsDir != "" {
		cfg.ArtifactsDir = resolve(base, yc.ArtifactsDir)
	}
	if yc.ArtifactsUnarchivedDir != "" {
		cfg.ArtifactsUnarchivedDir = resolve(base, yc.ArtifactsUnarchivedDir)
	}
	if yc.LogLevel != "" {
		cfg.LogLevel = yc.LogLevel
	}
	if yc.CommandTimeout != "" {
		d, err := time.ParseDuration(yc.CommandTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid command_timeout %q: %w", yc.CommandTimeout, err)
		}
		cfg.CommandTimeout = d
	}
	if yc.Strict != nil {
		cfg.Strict = *yc.Strict
	}
	if yc.VCS != "" {
		cfg.VCS = yc.VCS
	}
	for k, v := range yc.URLs {
		cfg.URLs[k] = v
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated values and ranges.
func (c *Config) Validate() error {
	switch c.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log_level %q: must be debug, info, warn or error", c.LogLevel)
	}
	switch c.VCS {
	case "git", "hg":
	default:
		return fmt.Errorf("invalid vcs %q: must be git or hg", c.VCS)
	}
	if c.CommandTimeout < 0 {
		return fmt.Errorf("command_timeout must not be negative")
	}
	return nil
}

// resolve makes relative paths in the file relative to the file itself.
func resolve(base, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
