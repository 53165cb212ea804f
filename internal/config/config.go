package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"evm-report/internal/evm"
	"evm-report/internal/export"
	"evm-report/internal/format"
)

const (
	// DefaultPath is where binaries look for the config when no flag is given.
	DefaultPath = "config.json"
	// DefaultTitle names exports when neither the request nor report.title does.
	DefaultTitle = "Earned Value Report"
)

// Config is the on-disk configuration shape. JSON is valid YAML, so
// config.json and config.yaml are read the same way.
type Config struct {
	// BaseURL is the report service root, e.g. https://host/api/Ray.
	BaseURL      string        `yaml:"baseUrl"`
	Timeout      time.Duration `yaml:"timeout"`
	ProjectsFile string        `yaml:"projectsFile"`

	Server ServerConfig `yaml:"server"`
	Cache  CacheConfig  `yaml:"cache"`
	Report ReportConfig `yaml:"report"`
}

type ServerConfig struct {
	Port           string   `yaml:"port"`
	Env            string   `yaml:"env"` // "production" enables gin release mode and JSON logs
	StaticDir      string   `yaml:"staticDir"`
	AllowedOrigins []string `yaml:"allowedOrigins"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	TTL     time.Duration `yaml:"ttl"`
}

type ReportConfig struct {
	Title        string `yaml:"title"`
	Locale       string `yaml:"locale"`
	RowsPerSheet int    `yaml:"rowsPerSheet"`
	// Totals overrides the footer policy of individual columns.
	Totals map[evm.Column]evm.Policy `yaml:"totals"`
	// NoFooter drops the Total row from exported files.
	NoFooter bool `yaml:"noFooter"`
}

// ExportTitle is report.title, or DefaultTitle when unset. Title itself
// stays empty when unset so the dashboard can name exports after the
// selected project.
func (r ReportConfig) ExportTitle() string {
	if r.Title != "" {
		return r.Title
	}
	return DefaultTitle
}

// Default returns a config with every default filled in and no BaseURL.
func Default() *Config {
	c := &Config{}
	c.ApplyDefaults()
	return c
}

// Load reads path, applies environment overrides and defaults, and
// validates the result.
func Load(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	c.ApplyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadOffline is Load for commands that read local data: a missing file
// yields the defaults and BaseURL is not required.
func LoadOffline(path string) (*Config, error) {
	c, err := LoadUnchecked(path)
	if errors.Is(err, os.ErrNotExist) {
		c, err = &Config{}, nil
	}
	if err != nil {
		return nil, err
	}
	c.ApplyEnv(os.Getenv)
	c.ApplyDefaults()
	if err := c.validateLocal(); err != nil {
		return nil, err
	}
	return c, nil
}

// LoadUnchecked reads and parses path without defaults or validation.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &c, nil
}

// ApplyEnv overrides fields from the environment. Empty variables are
// ignored.
func (c *Config) ApplyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	set(&c.BaseURL, "EVM_BASE_URL")
	set(&c.ProjectsFile, "PROJECTS_FILE")
	set(&c.Server.Port, "API_PORT")
	set(&c.Server.Env, "API_ENV")
	set(&c.Server.StaticDir, "STATIC_DIR")
}

// ApplyDefaults fills zero fields.
func (c *Config) ApplyDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
	if c.ProjectsFile == "" {
		c.ProjectsFile = "./data/projects.json"
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.Env == "" {
		c.Server.Env = "development"
	}
	if c.Server.StaticDir == "" {
		c.Server.StaticDir = "./web/dist"
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = []string{"*"}
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Report.Locale == "" {
		c.Report.Locale = format.DefaultLocale
	}
	if c.Report.RowsPerSheet == 0 {
		c.Report.RowsPerSheet = export.DefaultRowsPerSheet
	}
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.BaseURL == "" {
		return errors.New("baseUrl is required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("baseUrl %q must be an absolute http(s) URL", c.BaseURL)
	}
	return c.validateLocal()
}

func (c *Config) validateLocal() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Timeout < 0 {
		return errors.New("timeout must not be negative")
	}
	if c.Cache.Enabled && c.Cache.TTL <= 0 {
		return errors.New("cache.ttl must be positive when the cache is enabled")
	}
	if c.Report.RowsPerSheet <= 3 {
		return fmt.Errorf("report.rowsPerSheet must be greater than 3, got %d", c.Report.RowsPerSheet)
	}
	for col := range c.Report.Totals {
		if !col.Known() {
			return fmt.Errorf("report.totals: unknown column %q", col)
		}
	}
	return nil
}

// IsProduction reports whether server.env is "production".
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// Aggregator builds the footer aggregator with the configured overrides.
func (c *Config) Aggregator() *evm.Aggregator {
	return evm.NewAggregator(c.Report.Totals)
}

// ExportOptions maps the report section onto exporter options.
func (c *Config) ExportOptions() export.Options {
	return export.Options{
		RowsPerSheet: c.Report.RowsPerSheet,
		Locale:       c.Report.Locale,
		Totals:       !c.Report.NoFooter,
	}
}
