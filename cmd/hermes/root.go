package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"hermes/pkg/config"
	"hermes/pkg/logger"
	"hermes/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile    string
	logLevel      string
	targetLength  int
	proxyFile     string
	proxyScheme   string
	statePath     string
	backend       string
	useTUI        bool
	notifications bool
	quiet         bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "hermes",
	Short: "Discover short TikTok usernames from public feeds",
	Long: `Hermes watches TikTok's public feeds for accounts whose handle has a
target length (3 to 5 letters or digits) and keeps a persistent record of
every match.

Sources:
  - The trending video feed
  - User search for one or more keywords
  - The suggested users list

Requests rotate browser identities and, when a proxy list is loaded, egress
proxies. Found accounts are saved after every discovery and can be listed or
exported at any time.`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Version = version
		ui.SetConsole(os.Stdout, isTerminal())

		// Don't show logo for certain commands
		switch cmd.Name() {
		case "version", "help", "show":
			return
		}
		if !quiet && !useTUI {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError(err.Error())
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&configFile, "config", "c", "", "config file (default is $XDG_CONFIG_HOME/hermes/config.yaml)")
	flags.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flags.IntVarP(&targetLength, "target-length", "n", 0, "username length to look for (3-5)")
	flags.StringVar(&proxyFile, "proxy-file", "", "file with one proxy per line (host:port[:user:pass])")
	flags.StringVar(&proxyScheme, "proxy-scheme", "", "proxy scheme (http, https, socks5)")
	flags.StringVar(&statePath, "state", "", "file holding the found usernames")
	flags.StringVar(&backend, "backend", "", "storage backend (json, sqlite)")
	flags.BoolVar(&useTUI, "tui", false, "use the interactive dashboard")
	flags.BoolVar(&notifications, "notifications", false, "notify when new usernames are found")
	flags.BoolVarP(&quiet, "quiet", "q", false, "only print found usernames and errors")

	rootCmd.SetVersionTemplate(`Hermes {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	// Disable default completion command
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(versionCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("Hermes %s\n", version)
		fmt.Printf("  Commit:     %s\n", gitCommit)
		fmt.Printf("  Built:      %s\n", buildDate)
		fmt.Printf("  Go Version: %s\n", runtime.Version())
		fmt.Printf("  OS/Arch:    %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}

// commandFlags collects the global flags the user actually set, so unset
// flags never override the config file or environment
func commandFlags(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	f := cmd.Flags()

	if f.Changed("log-level") {
		flags["log-level"] = logLevel
	} else if quiet {
		flags["log-level"] = "error"
	}
	if f.Changed("target-length") {
		flags["target-length"] = targetLength
	}
	if f.Changed("proxy-file") {
		flags["proxy-file"] = proxyFile
	}
	if f.Changed("proxy-scheme") {
		flags["proxy-scheme"] = proxyScheme
	}
	if f.Changed("state") {
		flags["state"] = statePath
	}
	if f.Changed("backend") {
		flags["backend"] = backend
	}
	if f.Changed("tui") {
		flags["tui"] = useTUI
	}
	if f.Changed("notifications") {
		flags["notifications"] = notifications
	}
	return flags
}

// loadConfig merges defaults, config file, environment and flags. extra holds
// command specific overrides.
func loadConfig(cmd *cobra.Command, extra map[string]interface{}) (*config.Config, error) {
	flags := commandFlags(cmd)
	for k, v := range extra {
		flags[k] = v
	}

	cfg, err := config.Load(configFile, flags)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// configPath returns where persisted settings are written
func configPath() string {
	if configFile != "" {
		return configFile
	}
	return config.DefaultConfigPath()
}
