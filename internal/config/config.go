// Package config loads the ref-builder configuration file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rcliao/ref-builder/internal/model"
	"github.com/rcliao/ref-builder/internal/otu"
)

const (
	// Dir is the per-user directory holding the database and config file.
	Dir = ".ref-builder"

	// EnvConfig overrides the config file location.
	EnvConfig = "REF_BUILDER_CONFIG"

	// EnvDB overrides the database location.
	EnvDB = "REF_BUILDER_DB"
)

const defaultConfigYAML = `# ref-builder configuration

# SQLite database holding the OTUs. Defaults to ~/.ref-builder/otus.db.
# db_path: /data/otus.db

# Redis server used to cache raw GenBank records. Leave empty to disable.
# redis_addr: localhost:6379

log_level: info

policy:
  # Source qualifiers naming an isolate, highest precedence first.
  isolate_precedence: [isolate, strain, clone]
  # Fraction of isolates a segment must exceed to be recommended.
  recommended_threshold: 0.5
  default_length_tolerance: 0.03
`

// PolicyConfig mirrors otu.Policy in the config file.
type PolicyConfig struct {
	IsolatePrecedence      []string `yaml:"isolate_precedence"`
	RecommendedThreshold   *float64 `yaml:"recommended_threshold"`
	DefaultLengthTolerance *float64 `yaml:"default_length_tolerance"`
}

// Config models config.yaml.
type Config struct {
	DBPath      string       `yaml:"db_path"`
	RedisAddr   string       `yaml:"redis_addr"`
	RedisPrefix string       `yaml:"redis_prefix"`
	LogLevel    string       `yaml:"log_level"`
	Policy      PolicyConfig `yaml:"policy"`

	// Path is where the config was loaded from. Empty when defaults are used.
	Path string `yaml:"-"`
}

// DefaultPath returns the config location from $REF_BUILDER_CONFIG or
// ~/.ref-builder/config.yaml.
func DefaultPath() string {
	if env := os.Getenv(EnvConfig); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, Dir, "config.yaml")
}

// Default returns the built-in configuration.
func Default() *Config {
	c := &Config{}
	c.applyDefaults()
	return c
}

// Load reads the config file at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var parsed Config
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	parsed.Path = path
	parsed.applyDefaults()
	if err := parsed.validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return &parsed, nil
}

// WriteDefault writes a commented default config to path unless one exists.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("config: create dir: %w", err)
	}
	return os.WriteFile(path, []byte(defaultConfigYAML), 0o644)
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		home, _ := os.UserHomeDir()
		c.DBPath = filepath.Join(home, Dir, "otus.db")
	}
	if c.RedisPrefix == "" {
		c.RedisPrefix = "ref-builder"
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	def := otu.DefaultPolicy()
	if len(c.Policy.IsolatePrecedence) == 0 {
		for _, t := range def.IsolatePrecedence {
			c.Policy.IsolatePrecedence = append(c.Policy.IsolatePrecedence, string(t))
		}
	}
	if c.Policy.RecommendedThreshold == nil {
		v := def.RecommendedThreshold
		c.Policy.RecommendedThreshold = &v
	}
	if c.Policy.DefaultLengthTolerance == nil {
		v := def.DefaultLengthTolerance
		c.Policy.DefaultLengthTolerance = &v
	}
}

func (c *Config) validate() error {
	if _, err := c.SlogLevel(); err != nil {
		return err
	}
	return c.EnginePolicy().Validate()
}

// EnginePolicy converts the policy section into an otu.Policy.
func (c *Config) EnginePolicy() otu.Policy {
	p := otu.DefaultPolicy()
	p.IsolatePrecedence = nil
	for _, t := range c.Policy.IsolatePrecedence {
		p.IsolatePrecedence = append(p.IsolatePrecedence, model.IsolateNameType(strings.ToLower(strings.TrimSpace(t))))
	}
	if c.Policy.RecommendedThreshold != nil {
		p.RecommendedThreshold = *c.Policy.RecommendedThreshold
	}
	if c.Policy.DefaultLengthTolerance != nil {
		p.DefaultLengthTolerance = *c.Policy.DefaultLengthTolerance
	}
	return p
}

// SlogLevel parses log_level.
func (c *Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return l, fmt.Errorf("invalid log_level %q", c.LogLevel)
	}
	return l, nil
}
