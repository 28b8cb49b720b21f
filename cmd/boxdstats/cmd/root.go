package cmd

import (
	"boxdstats/internal/components/telemetry"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"
)

var (
	configPath string
	verbose    bool

	current       *app
	otelProviders telemetry.Otel
)

var rootCmd = &cobra.Command{
	Use:           "boxdstats",
	Short:         "boxdstats collects a user's film ratings and the details of every rated film.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		telemetry.InitSlog(verbose)

		cfg, err := loadConfig(configPath)
		if err != nil {
			return fmt.Errorf("read config: %w", err)
		}

		otelProviders, err = telemetry.SetupOtel(cmd.Context(), "boxdstats", cfg.Telemetry)
		if err != nil {
			return fmt.Errorf("setup telemetry: %w", err)
		}

		current, err = newApp(cfg)
		return err
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return shutdown()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.json5", "Path to the config file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging.")
}

func shutdown() error {
	var err error
	if current != nil {
		err = current.close()
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()
	if otelErr := otelProviders.Shutdown(ctx); otelErr != nil {
		slog.Warn("shutdown telemetry", "err", otelErr)
	}
	return err
}

func Execute() {
	ctx, cancel := signalContext(context.Background())
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// PersistentPostRun is skipped when a command fails
		shutdown()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
