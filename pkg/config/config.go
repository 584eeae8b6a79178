package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	// AppName is used for config, data and export file naming
	AppName = "hermes"

	// DefaultStateFile is the file name of the persisted discovery state
	DefaultStateFile = "hermes_found_usernames.json"

	MinTargetLength = 3
	MaxTargetLength = 5
)

// Config holds all configuration options for the username monitor
type Config struct {
	// Discovery settings shared by all strategies
	Discovery DiscoveryConfig `yaml:"discovery" json:"discovery"`

	// Outbound request behaviour
	Gateway GatewayConfig `yaml:"gateway" json:"gateway"`

	// Egress proxy list
	Proxy ProxyConfig `yaml:"proxy" json:"proxy"`

	// Persistence of found accounts
	Storage StorageConfig `yaml:"storage" json:"storage"`

	// Export and display settings
	Output OutputConfig `yaml:"output" json:"output"`

	// Notification preferences
	Notifications NotificationConfig `yaml:"notifications" json:"notifications"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// DiscoveryConfig holds the target constraint and polling cadence
type DiscoveryConfig struct {
	TargetLength      int           `yaml:"target_length" json:"target_length"`
	Keywords          []string      `yaml:"keywords" json:"keywords"`
	TrendingInterval  time.Duration `yaml:"trending_interval" json:"trending_interval"`
	KeywordInterval   time.Duration `yaml:"keyword_interval" json:"keyword_interval"`
	KeywordPauseMin   time.Duration `yaml:"keyword_pause_min" json:"keyword_pause_min"`
	KeywordPauseMax   time.Duration `yaml:"keyword_pause_max" json:"keyword_pause_max"`
	JitterFactor      float64       `yaml:"jitter_factor" json:"jitter_factor"`
	ProfileURLPattern string        `yaml:"profile_url_pattern" json:"profile_url_pattern"`
}

// GatewayConfig holds request timeout, rotation cadence and rate-limit backoff
type GatewayConfig struct {
	Timeout              time.Duration `yaml:"timeout" json:"timeout"`
	IdentityRotateEvery  int           `yaml:"identity_rotate_every" json:"identity_rotate_every"`
	ProxyRotateEvery     int           `yaml:"proxy_rotate_every" json:"proxy_rotate_every"`
	BackoffMin           time.Duration `yaml:"backoff_min" json:"backoff_min"`
	BackoffMax           time.Duration `yaml:"backoff_max" json:"backoff_max"`
	RotateProxyOnError   bool          `yaml:"rotate_proxy_on_error" json:"rotate_proxy_on_error"`
	UserAgent            string        `yaml:"user_agent" json:"user_agent"`
	MaxRequestsPerMinute int           `yaml:"max_requests_per_minute" json:"max_requests_per_minute"`
}

// ProxyConfig holds the proxy list location and dial scheme
type ProxyConfig struct {
	File   string `yaml:"file" json:"file"`
	Scheme string `yaml:"scheme" json:"scheme"`
}

// StorageConfig selects the persistence backend
type StorageConfig struct {
	Backend string `yaml:"backend" json:"backend"`
	Path    string `yaml:"path" json:"path"`
}

// OutputConfig holds export and display preferences
type OutputConfig struct {
	ExportDirectory string `yaml:"export_directory" json:"export_directory"`
	ExportFormat    string `yaml:"export_format" json:"export_format"`
	UseTUI          bool   `yaml:"use_tui" json:"use_tui"`
}

// NotificationConfig holds notification preferences
type NotificationConfig struct {
	Enabled          bool   `yaml:"enabled" json:"enabled"`
	OnDiscovery      bool   `yaml:"on_discovery" json:"on_discovery"`
	OnRateLimit      bool   `yaml:"on_rate_limit" json:"on_rate_limit"`
	NotificationType string `yaml:"notification_type" json:"notification_type"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Discovery: DiscoveryConfig{
			TargetLength:      4,
			TrendingInterval:  60 * time.Second,
			KeywordInterval:   120 * time.Second,
			KeywordPauseMin:   5 * time.Second,
			KeywordPauseMax:   10 * time.Second,
			JitterFactor:      0.2,
			ProfileURLPattern: "https://www.tiktok.com/@%s",
		},
		Gateway: GatewayConfig{
			Timeout:             10 * time.Second,
			IdentityRotateEvery: 10,
			ProxyRotateEvery:    5,
			BackoffMin:          5 * time.Second,
			BackoffMax:          10 * time.Second,
			RotateProxyOnError:  true,
		},
		Proxy: ProxyConfig{
			Scheme: "http",
		},
		Storage: StorageConfig{
			Backend: "json",
			Path:    DefaultStatePath(),
		},
		Output: OutputConfig{
			ExportDirectory: ".",
			ExportFormat:    "txt",
			UseTUI:          false,
		},
		Notifications: NotificationConfig{
			Enabled:          false,
			OnDiscovery:      true,
			OnRateLimit:      false,
			NotificationType: "terminal",
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// DefaultStatePath returns the state file location under the XDG data directory
func DefaultStatePath() string {
	return filepath.Join(xdg.DataHome, AppName, DefaultStateFile)
}

// DefaultConfigPath returns the config file location under the XDG config directory
func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, AppName, "config.yaml")
}

// LoadFromEnv loads configuration from environment variables
func (c *Config) LoadFromEnv() error {
	var errs []error

	if v := os.Getenv("HERMES_TARGET_LENGTH"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HERMES_TARGET_LENGTH: %w", err))
		} else {
			c.Discovery.TargetLength = n
		}
	}
	if v := os.Getenv("HERMES_KEYWORDS"); v != "" {
		c.Discovery.Keywords = ParseKeywords(v)
	}
	if v := os.Getenv("HERMES_TRENDING_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Discovery.TrendingInterval = d
		} else {
			errs = append(errs, fmt.Errorf("HERMES_TRENDING_INTERVAL: %w", err))
		}
	}
	if v := os.Getenv("HERMES_KEYWORD_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Discovery.KeywordInterval = d
		} else {
			errs = append(errs, fmt.Errorf("HERMES_KEYWORD_INTERVAL: %w", err))
		}
	}
	if v := os.Getenv("HERMES_REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.Gateway.Timeout = d
		} else {
			errs = append(errs, fmt.Errorf("HERMES_REQUEST_TIMEOUT: %w", err))
		}
	}
	if v := os.Getenv("HERMES_USER_AGENT"); v != "" {
		c.Gateway.UserAgent = v
	}
	if v := os.Getenv("HERMES_MAX_REQUESTS_PER_MINUTE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("HERMES_MAX_REQUESTS_PER_MINUTE: %w", err))
		} else {
			c.Gateway.MaxRequestsPerMinute = n
		}
	}

	if v := os.Getenv("HERMES_PROXY_FILE"); v != "" {
		c.Proxy.File = v
	}
	if v := os.Getenv("HERMES_PROXY_SCHEME"); v != "" {
		c.Proxy.Scheme = strings.ToLower(v)
	}

	if v := os.Getenv("HERMES_STORAGE_BACKEND"); v != "" {
		c.Storage.Backend = strings.ToLower(v)
	}
	if v := os.Getenv("HERMES_STATE_FILE"); v != "" {
		c.Storage.Path = v
	}

	if v := os.Getenv("HERMES_EXPORT_DIR"); v != "" {
		c.Output.ExportDirectory = v
	}
	if v := os.Getenv("HERMES_NOTIFICATIONS_ENABLED"); v != "" {
		c.Notifications.Enabled = strings.ToLower(v) == "true"
	}
	if v := os.Getenv("HERMES_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("HERMES_LOG_FILE"); v != "" {
		c.Logging.File = v
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
	home, _ := os.UserHomeDir()
	locations := []string{
		".hermes.yaml",
		".hermes.yml",
		DefaultConfigPath(),
		filepath.Join(xdg.ConfigHome, AppName, "config.yml"),
		filepath.Join(home, ".hermes.yaml"),
		filepath.Join(home, ".hermes.yml"),
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

	if err := ValidateTargetLength(c.Discovery.TargetLength); err != nil {
		errs = append(errs, err)
	}
	if c.Discovery.TrendingInterval <= 0 {
		errs = append(errs, errors.New("trending interval must be positive"))
	}
	if c.Discovery.KeywordInterval <= 0 {
		errs = append(errs, errors.New("keyword interval must be positive"))
	}
	if c.Discovery.KeywordPauseMin < 0 || c.Discovery.KeywordPauseMax < c.Discovery.KeywordPauseMin {
		errs = append(errs, errors.New("keyword pause range is invalid"))
	}
	if c.Discovery.JitterFactor < 0 || c.Discovery.JitterFactor >= 1 {
		errs = append(errs, errors.New("jitter factor must be in [0, 1)"))
	}
	if !strings.Contains(c.Discovery.ProfileURLPattern, "%s") {
		errs = append(errs, errors.New("profile url pattern must contain %s"))
	}

	if c.Gateway.Timeout <= 0 {
		errs = append(errs, errors.New("request timeout must be positive"))
	}
	if c.Gateway.IdentityRotateEvery <= 0 {
		errs = append(errs, errors.New("identity rotation cadence must be positive"))
	}
	if c.Gateway.ProxyRotateEvery <= 0 {
		errs = append(errs, errors.New("proxy rotation cadence must be positive"))
	}
	if c.Gateway.BackoffMin < 0 || c.Gateway.BackoffMax < c.Gateway.BackoffMin {
		errs = append(errs, errors.New("rate limit backoff range is invalid"))
	}
	if c.Gateway.MaxRequestsPerMinute < 0 {
		errs = append(errs, errors.New("max requests per minute cannot be negative"))
	}

	validSchemes := map[string]bool{"http": true, "https": true, "socks5": true}
	if !validSchemes[strings.ToLower(c.Proxy.Scheme)] {
		errs = append(errs, fmt.Errorf("invalid proxy scheme: %s", c.Proxy.Scheme))
	}

	validBackends := map[string]bool{"json": true, "sqlite": true}
	if !validBackends[strings.ToLower(c.Storage.Backend)] {
		errs = append(errs, fmt.Errorf("invalid storage backend: %s", c.Storage.Backend))
	}
	if c.Storage.Path == "" {
		errs = append(errs, errors.New("storage path is required"))
	}

	validFormats := map[string]bool{"txt": true, "markdown": true, "md": true}
	if !validFormats[strings.ToLower(c.Output.ExportFormat)] {
		errs = append(errs, fmt.Errorf("invalid export format: %s", c.Output.ExportFormat))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true, "disabled": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	validNotifTypes := map[string]bool{
		"terminal": true, "desktop": true, "none": true,
	}
	if !validNotifTypes[strings.ToLower(c.Notifications.NotificationType)] {
		errs = append(errs, errors.New("invalid notification type"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// ValidateTargetLength checks that n is an accepted handle length
func ValidateTargetLength(n int) error {
	if n < MinTargetLength || n > MaxTargetLength {
		return fmt.Errorf("target length must be between %d and %d, got %d", MinTargetLength, MaxTargetLength, n)
	}
	return nil
}

// ParseKeywords splits a comma separated list, dropping empty entries
func ParseKeywords(s string) []string {
	var keywords []string
	for _, k := range strings.Split(s, ",") {
		if k = strings.TrimSpace(k); k != "" {
			keywords = append(keywords, k)
		}
	}
	return keywords
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

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if n, ok := flags["target-length"].(int); ok && n != 0 {
		c.Discovery.TargetLength = n
	}
	if keywords, ok := flags["keywords"].([]string); ok && len(keywords) > 0 {
		c.Discovery.Keywords = keywords
	}
	if d, ok := flags["trending-interval"].(time.Duration); ok && d > 0 {
		c.Discovery.TrendingInterval = d
	}
	if d, ok := flags["keyword-interval"].(time.Duration); ok && d > 0 {
		c.Discovery.KeywordInterval = d
	}
	if d, ok := flags["timeout"].(time.Duration); ok && d > 0 {
		c.Gateway.Timeout = d
	}
	if file, ok := flags["proxy-file"].(string); ok && file != "" {
		c.Proxy.File = file
	}
	if scheme, ok := flags["proxy-scheme"].(string); ok && scheme != "" {
		c.Proxy.Scheme = strings.ToLower(scheme)
	}
	if backend, ok := flags["backend"].(string); ok && backend != "" {
		c.Storage.Backend = strings.ToLower(backend)
	}
	if state, ok := flags["state"].(string); ok && state != "" {
		c.Storage.Path = state
	}
	if dir, ok := flags["export-dir"].(string); ok && dir != "" {
		c.Output.ExportDirectory = dir
	}
	if format, ok := flags["export-format"].(string); ok && format != "" {
		c.Output.ExportFormat = strings.ToLower(format)
	}
	if tui, ok := flags["tui"].(bool); ok {
		c.Output.UseTUI = tui
	}
	if enabled, ok := flags["notifications"].(bool); ok {
		c.Notifications.Enabled = enabled
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence
// Precedence order: Command line flags > Environment variables > .env file > Config file > Defaults
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	home, _ := os.UserHomeDir()
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(home, ".hermes.env"))

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
