package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"hermes/pkg/config"
	"hermes/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage Hermes configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (HERMES_*)
  - .env files
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file is written to $XDG_CONFIG_HOME/hermes/config.yaml unless a
different path is given with the --config flag.`,
	RunE: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the effective configuration after merging flags, environment,
config file and defaults.`,
	RunE: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Proxy list and state directory accessibility`,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# Hermes Configuration File
#
# Environment variables prefixed with HERMES_ override these values,
# for example HERMES_TARGET_LENGTH or HERMES_PROXY_FILE.

discovery:
  # Username length to look for (3-5)
  target_length: 4

  # Keywords for 'hermes monitor keywords' when none are given
  keywords: []

  # Pause between rounds
  trending_interval: 60s
  keyword_interval: 120s

  # Random pause between two keyword searches
  keyword_pause_min: 5s
  keyword_pause_max: 10s

  # Spread of the pause between rounds, as a fraction of the interval
  jitter_factor: 0.2

  # Profile link for found accounts; %%s is replaced by the handle
  profile_url_pattern: "https://www.tiktok.com/@%%s"

gateway:
  # Per-request timeout
  timeout: 10s

  # Rotate the browser identity every N requests
  identity_rotate_every: 10

  # Rotate the proxy every N requests (only with a proxy list)
  proxy_rotate_every: 5

  # Random wait after a rate-limit response
  backoff_min: 5s
  backoff_max: 10s

  # Switch proxy after a connection error
  rotate_proxy_on_error: true

  # Pin a single User-Agent instead of rotating the built-in list
  user_agent: ""

  # Client-side request budget; 0 means unlimited
  max_requests_per_minute: 0

proxy:
  # One proxy per line: host:port or host:port:user:pass
  file: ""

  # http, https or socks5
  scheme: "http"

storage:
  # json or sqlite
  backend: "json"

  # State file; the sqlite backend uses the same name with a .db extension
  path: '%s'

output:
  export_directory: "."

  # txt or markdown
  export_format: "txt"

  # Use the interactive dashboard when stdout is a terminal
  use_tui: false

notifications:
  enabled: false
  on_discovery: true
  on_rate_limit: false

  # terminal, desktop or none
  notification_type: "terminal"

logging:
  # debug, info, warn, error
  level: "info"

  # Optional log file; the dashboard only logs here
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := configPath()

	// Check if file already exists
	if _, err := os.Stat(path); err == nil {
		ui.PrintError("Configuration file already exists", path)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", path)
		return fmt.Errorf("config file exists: %s", path)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	content := fmt.Sprintf(exampleConfig, config.DefaultStatePath())
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to create configuration file: %w", err)
	}

	ui.PrintSuccess("Configuration file created: " + path)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the configuration file (target length, keywords, proxies)")
	fmt.Println("2. Run 'hermes config validate' to check the configuration")
	fmt.Println("3. Start watching with 'hermes monitor trending'")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	ui.PrintHeading("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (HERMES_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (searched in default locations)")
	}
	fmt.Println("4. Default values")
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	path := configFile
	if path == "" {
		path = config.DefaultConfigPath()
		if _, err := os.Stat(path); err != nil {
			ui.PrintWarning("No configuration file found, validating defaults and environment")
			path = ""
		}
	}
	if path != "" {
		ui.PrintInfo("Validating configuration", path)
	}

	cfg, err := config.Load(path, commandFlags(cmd))
	if err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		return err
	}

	var warnings, problems []string

	if cfg.Proxy.File != "" {
		if _, err := os.Stat(cfg.Proxy.File); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot read proxy file: %v", err))
		}
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Storage.Path), 0755); err != nil {
		problems = append(problems, fmt.Sprintf("Cannot create state directory: %v", err))
	}
	if cfg.Logging.File != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Logging.File), 0755); err != nil {
			problems = append(problems, fmt.Sprintf("Cannot create log directory: %v", err))
		}
	}
	if len(cfg.Discovery.Keywords) == 0 {
		warnings = append(warnings, "No keywords configured; 'monitor keywords' needs them as arguments")
	}
	if cfg.Gateway.UserAgent != "" {
		warnings = append(warnings, "A fixed user_agent disables identity rotation")
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		return fmt.Errorf("%d configuration error(s)", len(problems))
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, w := range warnings {
			fmt.Printf("  - %s\n", w)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Target length: %d\n", cfg.Discovery.TargetLength)
	fmt.Printf("  Trending interval: %s\n", cfg.Discovery.TrendingInterval)
	fmt.Printf("  Keyword interval: %s\n", cfg.Discovery.KeywordInterval)
	fmt.Printf("  Storage: %s (%s)\n", cfg.Storage.Backend, cfg.Storage.Path)
	fmt.Printf("  Proxy file: %s\n", valueOr(cfg.Proxy.File, "(none)"))
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
	return nil
}

func valueOr(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}
