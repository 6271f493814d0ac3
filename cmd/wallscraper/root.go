package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"wallscraper/pkg/config"
	"wallscraper/pkg/logger"
	"wallscraper/pkg/scraper"
	"wallscraper/pkg/storage"
	"wallscraper/pkg/ui"
)

var (
	// Version information
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	noColor    bool

	// Scrape flags
	pageURL     string
	concurrent  int
	retries     int
	timeout     time.Duration
	rateLimit   int
	useManifest bool
)

// errQuit stops the program with exit status 0 after a message was printed
var errQuit = errors.New("quit")

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "wallscraper [output-path]",
	Short: "Download the team's race weekend wallpapers",
	Long: `wallscraper downloads the promotional wallpapers published on the team's
gallery page and saves them as AlfaRomeo_01.png, AlfaRomeo_02.png, ...

The optional output path is used as given: include a trailing path separator
("walls/") or the last segment becomes part of the filename.

Examples:
  wallscraper
  wallscraper walls/
  wallscraper --concurrent 4 --retries 2 --manifest /data/walls/`,
	Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return runScrape(ctx, cmd, args, cmd.OutOrStdout())
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.ExecuteContext(context.Background())
	switch {
	case err == nil, errors.Is(err, errQuit):
		return
	default:
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./wallscraper.yaml or ~/.config/wallscraper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (debug, info, warn, error, disabled)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")

	rootCmd.Flags().StringVar(&pageURL, "page-url", "", "gallery page to scrape")
	rootCmd.Flags().IntVar(&concurrent, "concurrent", 1, "number of concurrent downloads")
	rootCmd.Flags().IntVar(&retries, "retries", 0, "retry attempts for transient failures")
	rootCmd.Flags().DurationVar(&timeout, "timeout", 0, "per-request timeout (0 waits forever)")
	rootCmd.Flags().IntVar(&rateLimit, "rate-limit", 0, "requests per minute (0 is unlimited)")
	rootCmd.Flags().BoolVar(&useManifest, "manifest", false, "skip wallpapers recorded in the download manifest")

	rootCmd.SetVersionTemplate(`wallscraper {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// buildFlags collects the flags the user actually set
func buildFlags(cmd *cobra.Command, args []string) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := func(name string) bool {
		f := cmd.Flags().Lookup(name)
		return f != nil && f.Changed
	}

	if len(args) > 0 {
		flags["output"] = args[0]
	}
	if changed("page-url") {
		flags["page-url"] = pageURL
	}
	if changed("concurrent") {
		flags["concurrent"] = concurrent
	}
	if changed("retries") {
		flags["retries"] = retries
	}
	if changed("timeout") {
		flags["timeout"] = timeout
	}
	if changed("rate-limit") {
		flags["rate-limit"] = rateLimit
	}
	if changed("manifest") {
		flags["manifest"] = useManifest
	}
	if changed("log-level") {
		flags["log-level"] = logLevel
	}
	if changed("no-color") {
		flags["no-color"] = noColor
	}
	return flags
}

func runScrape(ctx context.Context, cmd *cobra.Command, args []string, out io.Writer) error {
	cfg, err := config.Load(configFile, buildFlags(cmd, args))
	if err != nil {
		return err
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	log := logger.WithField("version", version)

	console := ui.NewConsole(out, cfg.Logging.NoColor)

	// A supplied argument is always checked, even when empty.
	dir := cfg.Output.Directory
	if len(args) > 0 {
		dir = args[0]
	}
	if len(args) > 0 || dir != "" {
		resolved, err := storage.ResolveDir(dir)
		if err != nil {
			log.WithError(err).WithField("dir", dir).Error("Target directory unusable")
			console.Error("Directory is bad")
			return errQuit
		}
		dir = resolved
		console.Success("Directory is good")
	}

	s, err := scraper.New(cfg, dir, console)
	if err != nil {
		return fmt.Errorf("failed to initialize scraper: %w", err)
	}

	summary, err := s.Run(ctx)
	if err != nil {
		return err
	}

	log.WithFields(map[string]interface{}{
		"run_id":    summary.RunID,
		"succeeded": summary.Succeeded,
		"failed":    summary.Failed,
	}).Debug("wallscraper finished")

	return nil
}
