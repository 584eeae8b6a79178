package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"hermes/pkg/config"
	"hermes/pkg/export"
	"hermes/pkg/logger"
	"hermes/pkg/proxy"
	"hermes/pkg/ui"
)

var (
	listRanked   bool
	exportFormat string
	exportOutput string
	clearYes     bool
	saveProxies  bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the usernames found so far",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadState(cmd)
		if err != nil {
			return err
		}
		store, backend, err := openState(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		accounts := store.All()
		if listRanked {
			accounts = store.Ranked()
		}
		if len(accounts) == 0 {
			ui.PrintWarning("No usernames found yet")
			return nil
		}

		ui.PrintAccounts(accounts)
		return nil
	},
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Write the found usernames to a file",
	Example: `  hermes export
  hermes export --format markdown --output ./reports`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		extra := map[string]interface{}{}
		if cmd.Flags().Changed("format") {
			extra["export-format"] = exportFormat
		}
		if cmd.Flags().Changed("output") {
			extra["export-dir"] = exportOutput
		}
		cfg, err := loadConfig(cmd, extra)
		if err != nil {
			return err
		}
		if err := setupLogging(cfg, false); err != nil {
			return err
		}

		store, backend, err := openState(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		if store.Len() == 0 {
			ui.PrintWarning("No usernames to export")
			return nil
		}

		path, err := export.ToFile(cfg.Output.ExportDirectory, cfg.Output.ExportFormat, store.All(), time.Now())
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		ui.PrintSuccess(fmt.Sprintf("Successfully exported %d usernames to %s", store.Len(), path))
		return nil
	},
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Forget every found username",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if !clearYes {
			return errors.New("refusing to clear without --yes")
		}
		cfg, err := loadState(cmd)
		if err != nil {
			return err
		}
		store, backend, err := openState(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer backend.Close()

		n := store.Len()
		store.Clear()
		if err := backend.Save(cmd.Context(), store.Snapshot()); err != nil {
			return fmt.Errorf("failed to save cleared state: %w", err)
		}
		ui.PrintSuccess(fmt.Sprintf("Cleared %d usernames", n))
		return nil
	},
}

var targetCmd = &cobra.Command{
	Use:   "target <length>",
	Short: "Change the username length to look for",
	Long: fmt.Sprintf(`Change the username length to look for and save it to the config file.
The length must be between %d and %d.`, config.MinTargetLength, config.MaxTargetLength),
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid length %q", args[0])
		}
		if err := config.ValidateTargetLength(n); err != nil {
			return err
		}

		return persistConfig(func(cfg *config.Config) {
			cfg.Discovery.TargetLength = n
		}, fmt.Sprintf("Target length set to %d", n))
	},
}

var stateCmd = &cobra.Command{
	Use:   "state <path>",
	Short: "Change the file found usernames are saved to",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return persistConfig(func(cfg *config.Config) {
			cfg.Storage.Path = path
		}, "State file set to "+path)
	},
}

var proxiesCmd = &cobra.Command{
	Use:   "proxies <file>",
	Short: "Load a proxy list and show what was accepted",
	Long: `Load a proxy list and show the accepted entries with credentials masked.
Each line is host:port or host:port:user:pass; blank lines and lines
starting with # are ignored.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadState(cmd)
		if err != nil {
			return err
		}

		pool := proxy.NewPool(cfg.Proxy.Scheme, logger.WithComponent("proxy"))
		n, err := pool.LoadFile(args[0])
		if err != nil {
			return err
		}
		if n == 0 {
			ui.PrintWarning("No valid proxies in " + args[0])
			return nil
		}

		ui.PrintSuccess(fmt.Sprintf("Loaded %d proxies (%s)", n, pool.Scheme()))
		ui.PrintProxies(pool.All())

		if saveProxies {
			file := args[0]
			return persistConfig(func(cfg *config.Config) {
				cfg.Proxy.File = file
			}, "Proxy file saved to configuration")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(clearCmd)
	rootCmd.AddCommand(targetCmd)
	rootCmd.AddCommand(stateCmd)
	rootCmd.AddCommand(proxiesCmd)

	listCmd.Flags().BoolVar(&listRanked, "ranked", false, "order by follower count")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "txt", "export format (txt, markdown)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "directory to write the export to")
	clearCmd.Flags().BoolVarP(&clearYes, "yes", "y", false, "confirm clearing")
	proxiesCmd.Flags().BoolVar(&saveProxies, "save", false, "remember this file in the config")
}

// loadState loads the configuration and sets up logging for the short commands
func loadState(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := loadConfig(cmd, nil)
	if err != nil {
		return nil, err
	}
	if err := setupLogging(cfg, false); err != nil {
		return nil, err
	}
	return cfg, nil
}

// persistConfig applies change to the file-backed configuration and saves it.
// Flags and environment are not folded in, so only the change is written.
func persistConfig(change func(*config.Config), done string) error {
	path := configPath()
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}

	change(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := cfg.Save(path); err != nil {
		return err
	}

	ui.PrintSuccess(done)
	ui.PrintInfo("Configuration", path)
	return nil
}
