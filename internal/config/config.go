package config

import (
	"embed"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

//go:embed default_config.yaml
var defaultConfigFS embed.FS

// Config holds every tunable of the availability engine. All knobs live
// here so polling behavior can be adjusted without code changes.
type Config struct {
	RequestInterval string `yaml:"request_interval"`
	CacheTTL        string `yaml:"cache_ttl"`
	DirectoryTTL    string `yaml:"directory_ttl"`
	PollInterval    string `yaml:"poll_interval"`
	PollJitter      string `yaml:"poll_jitter"`
	RetryAttempts   int    `yaml:"retry_attempts"`
	RetryBackoff    string `yaml:"retry_backoff"`
	MinPlaces       int    `yaml:"min_places"`

	AvailabilityURL string `yaml:"availability_url"`
	DirectoryURL    string `yaml:"directory_url"`
	RegionsURL      string `yaml:"regions_url"`
	UserAgent       string `yaml:"user_agent"`

	SpecialRefuges []SpecialRefuge `yaml:"special_refuges"`
}

// SpecialRefuge is a hut the booking site does not list. Its own booking
// page is probed instead; the marker is the text shown while booking is
// shut, so its absence means booking is open.
type SpecialRefuge struct {
	ID                int    `yaml:"id"`
	Name              string `yaml:"name"`
	ProbeURL          string `yaml:"probe_url"`
	UnavailableMarker string `yaml:"unavailable_marker"`
}

func (c *Config) RequestIntervalDuration() time.Duration {
	return durationOr(c.RequestInterval, 2*time.Second)
}

func (c *Config) CacheTTLDuration() time.Duration {
	return durationOr(c.CacheTTL, 5*time.Minute)
}

func (c *Config) DirectoryTTLDuration() time.Duration {
	return durationOr(c.DirectoryTTL, 24*time.Hour)
}

func (c *Config) PollIntervalDuration() time.Duration {
	return durationOr(c.PollInterval, 5*time.Minute)
}

func (c *Config) PollJitterDuration() time.Duration {
	return durationOr(c.PollJitter, 15*time.Second)
}

func (c *Config) RetryBackoffDuration() time.Duration {
	return durationOr(c.RetryBackoff, 500*time.Millisecond)
}

// GetRetryAttempts returns the total attempt budget per fetch, defaulting to 3.
func (c *Config) GetRetryAttempts() int {
	if c.RetryAttempts <= 0 {
		return 3
	}
	return c.RetryAttempts
}

// GetMinPlaces returns the alert threshold, defaulting to 1.
func (c *Config) GetMinPlaces() int {
	if c.MinPlaces <= 0 {
		return 1
	}
	return c.MinPlaces
}

func durationOr(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}

// ParseDuration parses a Go duration with an additional "Nd" day syntax.
func ParseDuration(s string) (time.Duration, error) {
	if len(s) > 1 && s[len(s)-1] == 'd' {
		var days int
		if _, err := fmt.Sscanf(s, "%dd", &days); err == nil {
			return time.Duration(days) * 24 * time.Hour, nil
		}
	}
	return time.ParseDuration(s)
}

func DefaultConfigPath() string {
	if p := os.Getenv("TMB_CONFIG"); p != "" {
		return p
	}
	return filepath.Join(xdg.ConfigHome, "tmb", "config.yaml")
}

func DefaultPlanPath() string {
	return filepath.Join(xdg.DataHome, "tmb", "plan.db")
}

func loadDefaults() (*Config, error) {
	data, err := defaultConfigFS.ReadFile("default_config.yaml")
	if err != nil {
		return nil, fmt.Errorf("reading embedded config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded config: %w", err)
	}
	return &cfg, nil
}

func Load(path string) (*Config, error) {
	defaults, err := loadDefaults()
	if err != nil {
		return nil, err
	}

	if path == "" {
		path = DefaultConfigPath()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			// Write defaults to config path on first run
			if err := writeDefaults(path); err != nil {
				// Non-fatal: just use embedded defaults
				return defaults, nil
			}
			return defaults, nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	fillEmpty(&cfg, defaults)

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// fillEmpty backfills fields a user config omits with embedded defaults, so
// a config file only needs the knobs it changes.
func fillEmpty(cfg, defaults *Config) {
	if cfg.RequestInterval == "" {
		cfg.RequestInterval = defaults.RequestInterval
	}
	if cfg.CacheTTL == "" {
		cfg.CacheTTL = defaults.CacheTTL
	}
	if cfg.DirectoryTTL == "" {
		cfg.DirectoryTTL = defaults.DirectoryTTL
	}
	if cfg.PollInterval == "" {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.PollJitter == "" {
		cfg.PollJitter = defaults.PollJitter
	}
	if cfg.RetryBackoff == "" {
		cfg.RetryBackoff = defaults.RetryBackoff
	}
	if cfg.AvailabilityURL == "" {
		cfg.AvailabilityURL = defaults.AvailabilityURL
	}
	if cfg.DirectoryURL == "" {
		cfg.DirectoryURL = defaults.DirectoryURL
	}
	if cfg.RegionsURL == "" {
		cfg.RegionsURL = defaults.RegionsURL
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaults.UserAgent
	}
	if cfg.SpecialRefuges == nil {
		cfg.SpecialRefuges = defaults.SpecialRefuges
	}
}

func writeDefaults(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, _ := defaultConfigFS.ReadFile("default_config.yaml")
	return os.WriteFile(path, data, 0o644)
}

func validate(cfg *Config) error {
	for name, raw := range map[string]string{
		"request_interval": cfg.RequestInterval,
		"cache_ttl":        cfg.CacheTTL,
		"directory_ttl":    cfg.DirectoryTTL,
		"poll_interval":    cfg.PollInterval,
		"poll_jitter":      cfg.PollJitter,
		"retry_backoff":    cfg.RetryBackoff,
	} {
		if raw == "" {
			continue
		}
		if _, err := ParseDuration(raw); err != nil {
			return fmt.Errorf("%s: invalid duration %q: %w", name, raw, err)
		}
	}

	for name, raw := range map[string]string{
		"availability_url": cfg.AvailabilityURL,
		"directory_url":    cfg.DirectoryURL,
		"regions_url":      cfg.RegionsURL,
	} {
		if raw == "" {
			return fmt.Errorf("%s is required", name)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", name, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", name, u.Scheme)
		}
	}

	for _, s := range cfg.SpecialRefuges {
		if s.ID <= 0 || s.Name == "" || s.ProbeURL == "" {
			return fmt.Errorf("special refuge entries need id, name and probe_url (got id=%d name=%q)", s.ID, s.Name)
		}
		u, err := url.Parse(s.ProbeURL)
		if err != nil {
			return fmt.Errorf("special refuge %d: invalid probe_url: %w", s.ID, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("special refuge %d: probe_url scheme must be http or https, got %q", s.ID, u.Scheme)
		}
	}
	return nil
}
