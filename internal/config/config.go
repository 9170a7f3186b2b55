package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Environment variables that override the file.
const (
	EnvListen    = "SSK_LISTEN"
	EnvLogLevel  = "LOG_LEVEL"
	EnvSentryDSN = "SENTRY_DSN"
)

// CalendarConfig holds identifiers stamped into generated .ics documents.
type CalendarConfig struct {
	// ProductID is the PRODID value.
	ProductID string `yaml:"product_id" json:"product_id"`
	// FilePrefix names the download: "<prefix>-<year>.ics".
	FilePrefix string `yaml:"file_prefix" json:"file_prefix"`
}

// CaptureConfig controls the social preview screenshot.
type CaptureConfig struct {
	Width  int `yaml:"width" json:"width"`
	Height int `yaml:"height" json:"height"`
}

// BasicAuthConfig holds HTTP Basic Auth credentials for preview deployments.
type BasicAuthConfig struct {
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// Config is the top-level site configuration.
type Config struct {
	// Listen is the HTTP listen address of the preview server.
	Listen string `yaml:"listen" json:"listen"`

	// SiteURL is the canonical public origin, used for sitemap and
	// canonical links.
	SiteURL string `yaml:"site_url" json:"site_url"`

	// Sitemap toggles sitemap.xml generation.
	Sitemap bool `yaml:"sitemap" json:"sitemap"`

	// DefaultLocale is served at "/" and used for unknown locales.
	DefaultLocale string `yaml:"default_locale" json:"default_locale"`

	// Locales lists the locales to build pages for. Each needs a
	// translation table.
	Locales []string `yaml:"locales" json:"locales"`

	// OutputDir receives the static build.
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// TranslationsDir, if set, replaces the embedded translation tables.
	TranslationsDir string `yaml:"translations_dir,omitempty" json:"translations_dir,omitempty"`

	// RebuildCron is a cron schedule on which `serve` rebuilds the output,
	// so the event status banner and the static .ics stay current.
	RebuildCron string `yaml:"rebuild" json:"rebuild"`

	LogLevel  string `yaml:"log_level" json:"log_level"`
	LogJSON   bool   `yaml:"log_json" json:"log_json"`
	SentryDSN string `yaml:"sentry_dsn,omitempty" json:"-"`

	Calendar CalendarConfig `yaml:"calendar" json:"calendar"`
	Capture  CaptureConfig  `yaml:"capture" json:"capture"`

	// BasicAuth, if non-nil, protects everything except /health.
	BasicAuth *BasicAuthConfig `yaml:"basic_auth,omitempty" json:"-"`
}

// DefaultConfig returns an in-memory default configuration.
func DefaultConfig() *Config {
	return &Config{
		Listen:        "127.0.0.1:8080",
		SiteURL:       "https://slovanskesiloveklani.cz",
		Sitemap:       true,
		DefaultLocale: "cs",
		Locales:       []string{"cs", "en"},
		OutputDir:     "./dist",
		RebuildCron:   "0 3 * * *",
		LogLevel:      "info",
		Calendar: CalendarConfig{
			ProductID:  "-//SlovanskeSiloveKlani//NONSGML v1.0//EN",
			FilePrefix: "slovanske-silove-klani",
		},
		Capture: CaptureConfig{
			Width:  1200,
			Height: 630,
		},
	}
}

// Normalize fills in missing/zero values so partially-filled files still
// behave.
func (c *Config) Normalize() {
	def := DefaultConfig()
	if c.Listen == "" {
		c.Listen = def.Listen
	}
	if c.SiteURL == "" {
		c.SiteURL = def.SiteURL
	}
	if c.DefaultLocale == "" {
		c.DefaultLocale = def.DefaultLocale
	}
	if len(c.Locales) == 0 {
		c.Locales = []string{c.DefaultLocale}
	}
	if !slices.Contains(c.Locales, c.DefaultLocale) {
		c.Locales = append([]string{c.DefaultLocale}, c.Locales...)
	}
	if c.OutputDir == "" {
		c.OutputDir = def.OutputDir
	}
	if c.RebuildCron == "" {
		c.RebuildCron = def.RebuildCron
	}
	if c.LogLevel == "" {
		c.LogLevel = def.LogLevel
	}
	if c.Calendar.ProductID == "" {
		c.Calendar.ProductID = def.Calendar.ProductID
	}
	if c.Calendar.FilePrefix == "" {
		c.Calendar.FilePrefix = def.Calendar.FilePrefix
	}
	if c.Capture.Width <= 0 {
		c.Capture.Width = def.Capture.Width
	}
	if c.Capture.Height <= 0 {
		c.Capture.Height = def.Capture.Height
	}
}

// Validate reports settings that cannot be defaulted.
func (c *Config) Validate() error {
	u, err := url.Parse(c.SiteURL)
	if err != nil {
		return fmt.Errorf("config: site_url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" || u.Host == "" {
		return fmt.Errorf("config: site_url %q must be an absolute http(s) URL", c.SiteURL)
	}
	return nil
}

// ApplyEnv overrides file values with environment variables.
func (c *Config) ApplyEnv() {
	if v := os.Getenv(EnvListen); v != "" {
		c.Listen = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv(EnvSentryDSN); v != "" {
		c.SentryDSN = v
	}
}

// UIDDomain is the host part of SiteURL, used as the calendar UID suffix.
func (c *Config) UIDDomain() string {
	u, err := url.Parse(c.SiteURL)
	if err != nil || u.Hostname() == "" {
		return ""
	}
	return u.Hostname()
}

// Load loads configuration from the given YAML path.
//
// Behavior:
//   - If the file does not exist:
//   - create parent directory if needed
//   - write a default config with 0600 perms
//   - return the default config
//   - If the file exists:
//   - read YAML over the defaults
//   - normalize and validate
//
// Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			cfg := DefaultConfig()
			if err := Save(path, cfg); err != nil {
				cfg.ApplyEnv()
				return cfg, err
			}
			cfg.ApplyEnv()
			return cfg, nil
		}
		return nil, err
	}

	// Keys missing from the file keep their defaults.
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	cfg.Normalize()
	cfg.ApplyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes c to path. See Save.
func (c *Config) Save(path string) error {
	return Save(path, c)
}

// Save writes the given configuration to the specified path.
//
// Implementation details:
//   - Ensures parent directory exists (0700).
//   - Marshals cfg to YAML.
//   - Writes atomically via a temp file + rename.
//   - Ensures final file permissions are 0600.
func Save(path string, cfg *Config) error {
	if path == "" {
		return errors.New("config path is empty")
	}
	if cfg == nil {
		return errors.New("config is nil")
	}

	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".sskweb-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}

	return os.Rename(tmpName, path)
}
