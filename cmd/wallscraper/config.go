package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"wallscraper/pkg/config"
	"wallscraper/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage wallscraper configuration files.

Configuration is loaded from, in order of priority:
  - Command line flags
  - Environment variables (WALLSCRAPER_*)
  - .env files
  - Configuration file
  - Default values`,
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a configuration file with the default values",
	Long: `Create a configuration file holding every option at its default value.

The file is created as 'wallscraper.yaml' in the current directory unless a
different path is given with --config. An existing file is never overwritten.`,
	Args: cobra.NoArgs,
	RunE: runConfigInit,
}

var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Args:  cobra.NoArgs,
	RunE:  runConfigShow,
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the configuration",
	Long: `Load the configuration from all sources and report every invalid value.`,
	Args: cobra.NoArgs,
	RunE: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	console := ui.NewConsole(cmd.OutOrStdout(), noColor)

	configPath := configFile
	if configPath == "" {
		configPath = "wallscraper.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists: %s", configPath)
	}

	if err := config.DefaultConfig().Save(configPath); err != nil {
		return err
	}

	console.Success("Configuration file created: " + configPath)
	console.Plain("Run 'wallscraper config validate' after editing it.")
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	console := ui.NewConsole(cmd.OutOrStdout(), noColor)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to format configuration: %w", err)
	}

	console.Step("Current configuration")
	fmt.Fprint(cmd.OutOrStdout(), string(data))
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	console := ui.NewConsole(cmd.OutOrStdout(), noColor)

	cfg, err := config.Load(configFile, nil)
	if err != nil {
		return err
	}

	console.Success("Configuration is valid")
	console.Plain(fmt.Sprintf("  Page URL: %s", cfg.Site.PageURL))
	console.Plain(fmt.Sprintf("  Image class: %s", cfg.Site.ImageClass))
	console.Plain(fmt.Sprintf("  Concurrent downloads: %d", cfg.Download.ConcurrentDownloads))
	console.Plain(fmt.Sprintf("  Retry attempts: %d", cfg.Download.RetryAttempts))
	console.Plain(fmt.Sprintf("  Rate limit: %d requests/minute", cfg.RateLimit.RequestsPerMinute))
	console.Plain(fmt.Sprintf("  Manifest: %t", cfg.Manifest.Enabled))
	return nil
}
