// Package cmd defines and implements the CLI commands for the menucrawler executable.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/place-menu-crawler/internal/config"
	"github.com/JakeFAU/place-menu-crawler/internal/logging"
)

// App holds what every subcommand needs.
type App struct {
	Config config.Config
	Logger *zap.Logger
}

// Close flushes the logger.
func (a *App) Close() {
	if a == nil || a.Logger == nil {
		return
	}
	_ = a.Logger.Sync()
}

// version is stamped at build time with -ldflags "-X ...cmd.version=...".
var version = "dev"

type appKeyType string

const appKey appKeyType = "app"

// rootFlags are the persistent flags shared by every subcommand. Logging flags
// override the config file only when given.
type rootFlags struct {
	cfgFile  string
	dev      bool
	devSet   bool
	logLevel string
}

// newApp is the application factory. It's a variable so tests can replace it.
var newApp = func(_ context.Context, flags rootFlags) (*App, error) {
	cfg, err := config.Load(flags.cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if flags.devSet {
		cfg.Logging.Development = flags.dev
	}
	if flags.logLevel != "" {
		cfg.Logging.Level = flags.logLevel
	}
	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, err
	}
	return &App{Config: cfg, Logger: logger}, nil
}

// newRootCmd creates and configures the root command.
func newRootCmd() *cobra.Command {
	var flags rootFlags

	cmd := &cobra.Command{
		Use:   "menucrawler",
		Short: "Collects store menus from a map-search site.",
		Long: `menucrawler drives a headless browser through map-search results,
opens every store's detail panel, reads its menu, and keeps the stores whose
menus mention the configured terms. Results are written as JSON and can be
enriched with coordinates.`,
		SilenceUsage: true,
		Version:      version,

		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			flags.devSet = cmd.Flags().Changed("dev")
			appInstance, err := newApp(cmd.Context(), flags)
			if err != nil {
				return fmt.Errorf("failed to initialize application: %w", err)
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, appInstance))
			return nil
		},

		PersistentPostRun: func(cmd *cobra.Command, _ []string) {
			if appInstance, ok := cmd.Context().Value(appKey).(*App); ok {
				appInstance.Close()
			}
		},
	}

	cmd.PersistentFlags().StringVar(&flags.cfgFile, "config", "", "config file (YAML, JSON or TOML)")
	cmd.PersistentFlags().BoolVar(&flags.dev, "dev", false, "console logging for local runs (overrides logging.development)")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level: debug, info, warn or error (overrides logging.level)")

	cmd.AddCommand(newCrawlCmd())
	cmd.AddCommand(newGeocodeCmd())

	return cmd
}

func resolveApp(ctx context.Context) (*App, error) {
	appInstance, ok := ctx.Value(appKey).(*App)
	if !ok || appInstance == nil {
		return nil, errors.New("application not initialized")
	}
	return appInstance, nil
}

// Execute runs the root command with SIGINT/SIGTERM cancelling its context.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
