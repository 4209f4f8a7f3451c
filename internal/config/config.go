// Package config loads scoper.toml.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/thomasrohde/scoper/pkg/report"
	"github.com/thomasrohde/scoper/pkg/symtab"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "./scoper.toml"

type Config struct {
	Table   Table   `toml:"table"`
	Scope   Scope   `toml:"scope"`
	Output  Output  `toml:"output"`
	Log     Log     `toml:"log"`
	History History `toml:"history"`
	Watch   Watch   `toml:"watch"`
	Metrics Metrics `toml:"metrics"`
}

type Table struct {
	Buckets int    `toml:"buckets"`
	Hash    string `toml:"hash"`
}

type Scope struct {
	// MaxDepth of zero leaves nesting unbounded.
	MaxDepth int `toml:"max_depth"`
}

type Output struct {
	Format string `toml:"format"`
	Pretty bool   `toml:"pretty"`
}

type Log struct {
	Level string `toml:"level"`
}

type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

type Watch struct {
	Debounce time.Duration `toml:"debounce"`
	Patterns []string      `toml:"patterns"`
}

type Metrics struct {
	Textfile string `toml:"textfile"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads, defaults and validates the config at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("%s: unknown keys: %s", path, strings.Join(keys, ", "))
	}

	applyDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault loads path, falling back to Default when path is the
// default location and does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		path = DefaultPath
	}
	cfg, err := Load(path)
	if err != nil && path == DefaultPath && errors.Is(err, fs.ErrNotExist) {
		return Default(), nil
	}
	return cfg, err
}

func applyDefaults(cfg *Config) {
	if cfg.Table.Buckets == 0 {
		cfg.Table.Buckets = symtab.DefaultBuckets
	}
	if strings.TrimSpace(cfg.Table.Hash) == "" {
		cfg.Table.Hash = symtab.HashPolynomial
	}
	if strings.TrimSpace(cfg.Output.Format) == "" {
		cfg.Output.Format = report.FormatText
	}
	if strings.TrimSpace(cfg.Log.Level) == "" {
		cfg.Log.Level = "warn"
	}
	if strings.TrimSpace(cfg.History.Path) == "" {
		cfg.History.Path = "data/history.db"
	}
	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = 200 * time.Millisecond
	}
	if len(cfg.Watch.Patterns) == 0 {
		cfg.Watch.Patterns = []string{"*.scope", "*.txt"}
	}
}

// Validate checks every field after defaults were applied.
func (c *Config) Validate() error {
	if c.Table.Buckets < 1 {
		return fmt.Errorf("table.buckets must be positive, got %d", c.Table.Buckets)
	}
	if _, err := symtab.HashByName(c.Table.Hash); err != nil {
		return fmt.Errorf("table.hash: %w", err)
	}
	if c.Scope.MaxDepth < 0 {
		return fmt.Errorf("scope.max_depth must not be negative, got %d", c.Scope.MaxDepth)
	}
	if !report.ValidFormat(c.Output.Format) {
		return fmt.Errorf("output.format must be one of %s, got %q", strings.Join(report.Formats, ", "), c.Output.Format)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// SlogLevel parses the configured level name.
func (l Log) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l.Level)); err != nil {
		return slog.LevelWarn, err
	}
	return lvl, nil
}

// HashFunc resolves the configured bucket hash.
func (t Table) HashFunc() symtab.HashFunc {
	h, err := symtab.HashByName(t.Hash)
	if err != nil {
		return symtab.Polynomial
	}
	return h
}
