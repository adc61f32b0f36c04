// Package config provides YAML-based configuration loading for Belfry.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Belfry configuration, loaded from belfry.yaml.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Database DatabaseConfig `yaml:"database"`
	Compiler CompilerConfig `yaml:"compiler"`
	Worker   WorkerConfig   `yaml:"worker"`
	Notify   NotifyConfig   `yaml:"notify"`
	GitHub   GitHubConfig   `yaml:"github"`
}

// HTTPConfig holds settings for the web server.
type HTTPConfig struct {
	Port int `yaml:"port"`
}

// DatabaseConfig holds connection settings for the relational store.
// Driver is "mysql" for deployments or "sqlite" for local development.
type DatabaseConfig struct {
	Driver   string `yaml:"driver"`
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	Path     string `yaml:"path"` // sqlite file path
}

// CompilerConfig locates the external graph compiler binary.
type CompilerConfig struct {
	Command string   `yaml:"command"`
	Args    []string `yaml:"args"`
}

// WorkerConfig tunes the background compilation pool.
type WorkerConfig struct {
	Concurrency        int      `yaml:"concurrency"`
	PollInterval       Duration `yaml:"poll_interval"`
	StalenessThreshold Duration `yaml:"staleness_threshold"`
}

// Duration wraps time.Duration so YAML values like "30m" parse.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// NotifyConfig selects a notification backend for report completions.
// Platform is "slack", "discord", or empty to log locally.
type NotifyConfig struct {
	Platform   string `yaml:"platform"`
	Token      string `yaml:"token"`
	ChannelID  string `yaml:"channel_id"`
	DigestCron string `yaml:"digest_cron"`
}

// GitHubConfig holds an access token for importing documents from repositories.
type GitHubConfig struct {
	Token string `yaml:"token"`
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if c.HTTP.Port == 0 {
		c.HTTP.Port = 5000
	}
	if c.Database.Driver == "" {
		c.Database.Driver = "sqlite"
	}
	if c.Database.Driver == "sqlite" && c.Database.Path == "" {
		c.Database.Path = "belfry.db"
	}
	if c.Database.Host == "" {
		c.Database.Host = "127.0.0.1"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 3306
	}
	if c.Database.Database == "" {
		c.Database.Database = "belfry"
	}
	if c.Compiler.Command == "" {
		c.Compiler.Command = "bel-compile"
	}
	if c.Worker.Concurrency == 0 {
		c.Worker.Concurrency = 2
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = Duration(2 * time.Second)
	}
	if c.Worker.StalenessThreshold == 0 {
		c.Worker.StalenessThreshold = Duration(30 * time.Minute)
	}
	if c.Notify.DigestCron == "" {
		c.Notify.DigestCron = "0 9 * * *"
	}
}

// validate checks that all required fields are present and consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.Database.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}
	if c.Database.Driver == "mysql" && c.Database.User == "" {
		errs = append(errs, "database.user is required for mysql")
	}
	switch c.Notify.Platform {
	case "", "slack", "discord":
	default:
		errs = append(errs, fmt.Sprintf("notify.platform %q is not supported", c.Notify.Platform))
	}
	if c.Notify.Platform != "" && c.Notify.Token == "" {
		errs = append(errs, "notify.token is required when notify.platform is set")
	}
	if c.Notify.Platform != "" && c.Notify.ChannelID == "" {
		errs = append(errs, "notify.channel_id is required when notify.platform is set")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
