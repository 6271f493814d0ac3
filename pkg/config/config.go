package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Default scraping targets. They mirror the markup of the team's gallery page
// and change whenever the site is redesigned.
const (
	DefaultSiteName       = "Alfa Romeo"
	DefaultPageURL        = "https://www.sauber-group.com/motorsport/formula-1/gallery/getcloser-wallpapers/"
	DefaultImageClass     = "ResponsiveImage--image"
	DefaultMarker         = "-5x9"
	DefaultFilenamePrefix = "AlfaRomeo"
	DefaultExtension      = ".png"
	DefaultManifestName   = ".wallscraper-manifest.json"
)

// Config holds all configuration options for the wallpaper scraper
type Config struct {
	// Scraping targets
	Site SiteConfig `yaml:"site" json:"site"`

	// Output settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Rate limiting configuration
	RateLimit RateLimitConfig `yaml:"rate_limit" json:"rate_limit"`

	// Download manifest
	Manifest ManifestConfig `yaml:"manifest" json:"manifest"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// SiteConfig describes where the wallpapers live and how to recognise them
type SiteConfig struct {
	// Name is the team name used in progress messages.
	Name       string `yaml:"name" json:"name"`
	PageURL    string `yaml:"page_url" json:"page_url"`
	ImageClass string `yaml:"image_class" json:"image_class"`
	Marker     string `yaml:"marker" json:"marker"`
	UserAgent  string `yaml:"user_agent" json:"user_agent"`
	// ResolveRelative resolves relative src attributes against PageURL.
	ResolveRelative bool `yaml:"resolve_relative" json:"resolve_relative"`
}

// OutputConfig holds output directory configuration
type OutputConfig struct {
	Directory      string `yaml:"directory" json:"directory"`
	FilenamePrefix string `yaml:"filename_prefix" json:"filename_prefix"`
	Extension      string `yaml:"extension" json:"extension"`
	// JoinPath joins directory and filename with the path separator instead
	// of plain concatenation.
	JoinPath bool `yaml:"join_path" json:"join_path"`
}

// DownloadConfig holds download-specific configuration
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	Timeout             time.Duration `yaml:"timeout" json:"timeout"`
	RetryAttempts       int           `yaml:"retry_attempts" json:"retry_attempts"`
	RetryDelay          time.Duration `yaml:"retry_delay" json:"retry_delay"`
	MaxRetryDelay       time.Duration `yaml:"max_retry_delay" json:"max_retry_delay"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int `yaml:"requests_per_minute" json:"requests_per_minute"`
	BurstSize         int `yaml:"burst_size" json:"burst_size"`
}

// ManifestConfig controls the optional download manifest
type ManifestConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level   string `yaml:"level" json:"level"`
	File    string `yaml:"file" json:"file"`
	NoColor bool   `yaml:"no_color" json:"no_color"`
}

// DefaultConfig returns a Config that reproduces the original script: one
// worker, no retries, no timeout, no rate limit and no manifest.
func DefaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			Name:       DefaultSiteName,
			PageURL:    DefaultPageURL,
			ImageClass: DefaultImageClass,
			Marker:     DefaultMarker,
			UserAgent:  "",
		},
		Output: OutputConfig{
			Directory:      "",
			FilenamePrefix: DefaultFilenamePrefix,
			Extension:      DefaultExtension,
			JoinPath:       false,
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 1,
			Timeout:             0,
			RetryAttempts:       0,
			RetryDelay:          time.Second,
			MaxRetryDelay:       30 * time.Second,
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: 0, // 0 means unlimited
			BurstSize:         1,
		},
		Manifest: ManifestConfig{
			Enabled: false,
			Path:    "",
		},
		Logging: LoggingConfig{
			Level: "warn",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("WALLSCRAPER_SITE_NAME"); v != "" {
		c.Site.Name = v
	}
	if v := os.Getenv("WALLSCRAPER_PAGE_URL"); v != "" {
		c.Site.PageURL = v
	}
	if v := os.Getenv("WALLSCRAPER_IMAGE_CLASS"); v != "" {
		c.Site.ImageClass = v
	}
	if v, ok := os.LookupEnv("WALLSCRAPER_MARKER"); ok {
		c.Site.Marker = v
	}
	if v := os.Getenv("WALLSCRAPER_USER_AGENT"); v != "" {
		c.Site.UserAgent = v
	}
	if v := os.Getenv("WALLSCRAPER_OUTPUT_DIR"); v != "" {
		c.Output.Directory = v
	}
	if v := os.Getenv("WALLSCRAPER_FILENAME_PREFIX"); v != "" {
		c.Output.FilenamePrefix = v
	}

	if v := os.Getenv("WALLSCRAPER_CONCURRENT_DOWNLOADS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLSCRAPER_CONCURRENT_DOWNLOADS: %w", err))
		} else {
			c.Download.ConcurrentDownloads = n
		}
	}
	if v := os.Getenv("WALLSCRAPER_RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLSCRAPER_RETRY_ATTEMPTS: %w", err))
		} else {
			c.Download.RetryAttempts = n
		}
	}
	if v := os.Getenv("WALLSCRAPER_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLSCRAPER_TIMEOUT: %w", err))
		} else {
			c.Download.Timeout = d
		}
	}
	if v := os.Getenv("WALLSCRAPER_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("WALLSCRAPER_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.RateLimit.RequestsPerMinute = n
		}
	}

	if v := os.Getenv("WALLSCRAPER_MANIFEST_ENABLED"); v != "" {
		c.Manifest.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("WALLSCRAPER_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WALLSCRAPER_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		c.Logging.NoColor = true
	}

	return errors.Join(errs...)
}

// LoadFromFile loads configuration from a YAML file
func (c *Config) LoadFromFile(path string) error {
	// If path is empty, try default locations
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for config file in standard locations
func (c *Config) findConfigFile() string {
	home := os.Getenv("HOME")
	locations := []string{
		"wallscraper.yaml",
		".wallscraper.yaml",
		".wallscraper.yml",
		filepath.Join(home, ".config", "wallscraper", "config.yaml"),
		filepath.Join(home, ".config", "wallscraper", "config.yml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error

	if c.Site.PageURL == "" {
		errs = append(errs, errors.New("page URL is required"))
	} else if u, err := url.Parse(c.Site.PageURL); err != nil || u.Scheme == "" || u.Host == "" {
		errs = append(errs, fmt.Errorf("page URL %q is not an absolute URL", c.Site.PageURL))
	}
	if c.Site.ImageClass == "" {
		errs = append(errs, errors.New("image class is required"))
	}

	if c.Output.FilenamePrefix == "" {
		errs = append(errs, errors.New("filename prefix is required"))
	}
	if c.Output.Extension != "" && !strings.HasPrefix(c.Output.Extension, ".") {
		errs = append(errs, errors.New("extension must start with a dot"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.Timeout < 0 {
		errs = append(errs, errors.New("timeout cannot be negative"))
	}
	if c.Download.RetryAttempts < 0 {
		errs = append(errs, errors.New("retry attempts cannot be negative"))
	}
	if c.Download.RetryAttempts > 0 && c.Download.RetryDelay <= 0 {
		errs = append(errs, errors.New("retry delay must be positive when retries are enabled"))
	}

	if c.RateLimit.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("requests per minute cannot be negative"))
	}
	if c.RateLimit.RequestsPerMinute > 0 && c.RateLimit.BurstSize <= 0 {
		errs = append(errs, errors.New("burst size must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, fmt.Errorf("invalid log level %q", c.Logging.Level))
	}

	return errors.Join(errs...)
}

// ManifestPath returns where the manifest lives for the given target directory
func (c *Config) ManifestPath(dir string) string {
	if c.Manifest.Path != "" {
		return c.Manifest.Path
	}
	if dir == "" {
		return DefaultManifestName
	}
	return filepath.Join(dir, DefaultManifestName)
}

// Save saves the configuration to a file
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
// Only keys present in the map override existing values.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if v, ok := flags["page-url"].(string); ok && v != "" {
		c.Site.PageURL = v
	}
	if v, ok := flags["output"].(string); ok {
		c.Output.Directory = v
	}
	if v, ok := flags["concurrent"].(int); ok && v > 0 {
		c.Download.ConcurrentDownloads = v
	}
	if v, ok := flags["retries"].(int); ok && v >= 0 {
		c.Download.RetryAttempts = v
	}
	if v, ok := flags["timeout"].(time.Duration); ok && v >= 0 {
		c.Download.Timeout = v
	}
	if v, ok := flags["rate-limit"].(int); ok && v >= 0 {
		c.RateLimit.RequestsPerMinute = v
	}
	if v, ok := flags["manifest"].(bool); ok {
		c.Manifest.Enabled = v
	}
	if v, ok := flags["log-level"].(string); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := flags["no-color"].(bool); ok && v {
		c.Logging.NoColor = true
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	// .env files are optional
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".wallscraper.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
