// CLAUDE:SUMMARY Defines axquery config structs and parses YAML configuration files with defaults.
// Package config handles axquery configuration from YAML files.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level axquery configuration.
type Config struct {
	Browser BrowserConfig `yaml:"browser"`
	Query   QueryConfig   `yaml:"query"`
	Server  ServerConfig  `yaml:"server"`
	Journal JournalConfig `yaml:"journal"`
}

// BrowserConfig controls Chrome lifecycle.
type BrowserConfig struct {
	Remote            string        `yaml:"remote"`
	Bin               string        `yaml:"bin"`
	Mode              string        `yaml:"mode"` // headless | headful
	Stealth           bool          `yaml:"stealth"`
	MemoryLimit       int64         `yaml:"memory_limit"`
	RecycleInterval   time.Duration `yaml:"recycle_interval"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ResourceBlocking  []string      `yaml:"resource_blocking"`
	XvfbDisplay       string        `yaml:"xvfb_display"`
}

// QueryConfig tunes the query handlers.
type QueryConfig struct {
	// AdoptLimit bounds concurrent node adoptions in aria QueryAll.
	AdoptLimit       int           `yaml:"adopt_limit"`
	WaitPollInterval time.Duration `yaml:"wait_poll_interval"`
	WaitTimeout      time.Duration `yaml:"wait_timeout"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// JournalConfig locates the query journal. Empty path disables it.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// LoadFile reads a YAML configuration file.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML bytes and applies defaults.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	return &cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	var cfg Config
	cfg.applyDefaults()
	return &cfg
}

func (c *Config) applyDefaults() {
	if c.Browser.MemoryLimit <= 0 {
		c.Browser.MemoryLimit = 1 << 30
	}
	if c.Browser.RecycleInterval <= 0 {
		c.Browser.RecycleInterval = 4 * time.Hour
	}
	if c.Browser.NavigationTimeout <= 0 {
		c.Browser.NavigationTimeout = 30 * time.Second
	}
	if c.Browser.XvfbDisplay == "" {
		c.Browser.XvfbDisplay = ":99"
	}
	if c.Browser.Mode == "" {
		c.Browser.Mode = "headless"
	}
	if c.Query.AdoptLimit <= 0 {
		c.Query.AdoptLimit = 64
	}
	if c.Query.WaitPollInterval <= 0 {
		c.Query.WaitPollInterval = 100 * time.Millisecond
	}
	if c.Query.WaitTimeout <= 0 {
		c.Query.WaitTimeout = 30 * time.Second
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
}
