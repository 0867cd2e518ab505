package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"
	"github.com/vietddude/stylelog"

	"github.com/vietddude/checkin/internal/control"
	"github.com/vietddude/checkin/internal/core/config"
	"github.com/vietddude/checkin/internal/core/domain"
)

var (
	cfgPath string
	isDebug bool
	strict  bool
)

var rootCmd = &cobra.Command{
	Use:   "checkin",
	Short: "Daily forum check-in runner",
	Long: `Checkin signs in to the configured forums once, retrying transient
failures, and sends one notification per site with the results.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config.yaml", "config file, optional (default is config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&isDebug, "debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "exit with status 1 when any account fails")

	for _, site := range control.Sites {
		rootCmd.AddCommand(siteCommand(site))
	}
	rootCmd.AddCommand(&cobra.Command{
		Use:   "all",
		Short: "Check in on every supported site",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSites(control.Sites)
		},
	})
}

func siteCommand(site domain.Site) *cobra.Command {
	return &cobra.Command{
		Use:   string(site),
		Short: "Check in on " + domain.SiteTitles[site],
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSites([]domain.Site{site})
		},
	}
}

// loadConfig reads .env and the config file, then sets up logging.
func loadConfig() (*config.AppConfig, error) {
	_ = godotenv.Load()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		stylelog.InitDefault()
		slog.Error("Failed to load config", "error", err)
		return nil, err
	}

	stylelog.InitDefault(&tint.Options{
		Level:      logLevel(cfg.Logging.Level),
		TimeFormat: time.RFC3339,
	})
	return cfg, nil
}

func logLevel(level string) slog.Level {
	if isDebug {
		return slog.LevelDebug
	}
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func runSites(sites []domain.Site) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	app, err := control.NewApp(*cfg, slog.Default())
	if err != nil {
		slog.Error("Failed to initialize", "error", err)
		return err
	}
	defer func() {
		_ = app.Close()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var failed []string
	for _, site := range sites {
		summary, err := app.Run(ctx, site)
		if err != nil {
			return err
		}
		if !summary.Succeeded() {
			failed = append(failed, string(site))
		}
		if ctx.Err() != nil {
			slog.Warn("Interrupted, not starting remaining sites")
			break
		}
	}

	if strict && len(failed) > 0 {
		return fmt.Errorf("check-in failed for %s", strings.Join(failed, ", "))
	}
	return nil
}
