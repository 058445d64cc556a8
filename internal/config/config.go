package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// RootRule describes one managed directory tree.
type RootRule struct {
	Path      string `yaml:"path" json:"path"`
	KeepCount int    `yaml:"keep_count" json:"keep_count"` // Subdirectories to retain when pruning; 0 disables pruning
	Clean     bool   `yaml:"clean" json:"clean"`           // Clean the whole tree every cycle
	Pattern   string `yaml:"pattern" json:"pattern"`       // Glob used when counting visible files (default "*")
}

type PrometheusCfg struct {
	Port int `yaml:"port" json:"port"`
}

type LoggingCfg struct {
	RotationDays int `yaml:"rotation_days" json:"rotation_days"` // Days to keep logs before rotation
}

type ResourceLimits struct {
	MaxCPUPercent float64 `yaml:"max_cpu_percent" json:"max_cpu_percent"` // Maximum CPU usage (e.g., 10.0)
}

type Config struct {
	Roots           []RootRule     `yaml:"roots" json:"roots"`
	IntervalMinutes int            `yaml:"interval_minutes" json:"interval_minutes"`
	Prometheus      PrometheusCfg  `yaml:"prometheus" json:"prometheus"`
	Logging         LoggingCfg     `yaml:"logging" json:"logging"`
	ResourceLimits  ResourceLimits `yaml:"resource_limits" json:"resource_limits"`
	LockFile        string         `yaml:"lock_file" json:"lock_file"`       // Single-instance lock
	HistoryPath     string         `yaml:"history_path" json:"history_path"` // SQLite run history
}

var (
	errNoRoots         = errors.New("configuration must specify at least one root")
	errInvalidPath     = errors.New("path must be absolute")
	errNegativeKeep    = errors.New("keep_count cannot be negative")
	errInvalidInterval = errors.New("interval_minutes cannot be negative")
)

func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	cfg, err := decode(f)
	if err != nil {
		return nil, err
	}
	if err := cfg.validateAndDefault(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(r io.Reader) (*Config, error) {
	cfg := &Config{}
	decoder := yaml.NewDecoder(r)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	return cfg, nil
}

func (c *Config) validateAndDefault() error {
	if len(c.Roots) == 0 {
		return errNoRoots
	}

	if c.IntervalMinutes < 0 {
		return errInvalidInterval
	}
	if c.IntervalMinutes == 0 {
		c.IntervalMinutes = 15
	}

	if c.Prometheus.Port == 0 {
		c.Prometheus.Port = 9418
	}

	if c.Logging.RotationDays <= 0 {
		c.Logging.RotationDays = 30
	}

	if c.ResourceLimits.MaxCPUPercent <= 0 {
		c.ResourceLimits.MaxCPUPercent = 10.0
	}

	if c.LockFile == "" {
		c.LockFile = "/var/lock/treekeeper.lock"
	}
	if c.HistoryPath == "" {
		c.HistoryPath = "/var/lib/treekeeper/history.db"
	}

	for i := range c.Roots {
		cp, err := cleanAbsolute(c.Roots[i].Path)
		if err != nil {
			return err
		}
		c.Roots[i].Path = cp
		if c.Roots[i].KeepCount < 0 {
			return fmt.Errorf("root %s: %w", c.Roots[i].Path, errNegativeKeep)
		}
		if c.Roots[i].Pattern == "" {
			c.Roots[i].Pattern = "*"
		}
	}

	return nil
}

func cleanAbsolute(p string) (string, error) {
	if p == "" {
		return "", errInvalidPath
	}
	cp := filepath.Clean(p)
	if !filepath.IsAbs(cp) {
		return "", fmt.Errorf("%w: %s", errInvalidPath, p)
	}
	return cp, nil
}

func (c *Config) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

func (c *Config) PrometheusAddress() string {
	return fmt.Sprintf(":%d", c.Prometheus.Port)
}

// RootPaths returns the configured root paths in declaration order.
func (c *Config) RootPaths() []string {
	out := make([]string, 0, len(c.Roots))
	for _, r := range c.Roots {
		out = append(out, r.Path)
	}
	return out
}
