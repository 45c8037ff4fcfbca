package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"gallwatch/internal/components/telemetry"
	"gallwatch/internal/settings"
	"gallwatch/lib/osutil"

	"github.com/spf13/cobra"
)

var (
	optionsPath string
	verbose     bool
)

var (
	tel          telemetry.API = telemetry.SlogAPI{}
	otelShutdown               = func(context.Context) error { return nil }
)

var rootCmd = &cobra.Command{
	Use:   "gallwatch",
	Short: "gallwatch watches the comments of a gallery thread and greets new commenters on their gallog.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(verbose)
		settings.LoadDotEnv(tel)

		t, err := telemetry.SetupFromEnv(cmd.Context(), "gallwatch")
		if err != nil {
			slog.Warn("failed to set up telemetry export", "err", err.Error())
			return
		}
		otelShutdown = t.Shutdown
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otelShutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err.Error())
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&optionsPath, "options", "gallwatch.json5", "The runtime options file.")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logs.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadOptions() settings.Options {
	opts, err := settings.LoadOptions(optionsPath)
	if err != nil {
		osutil.Fatal("failed to read runtime options", err)
	}
	return opts
}

func loadSettings(opts settings.Options) settings.Settings {
	err := os.MkdirAll(opts.StateDir, 0o755)
	if err != nil {
		osutil.Fatal("failed to create state directory", err)
	}
	loader := settings.NewLoader(
		opts.SettingsPath(),
		settings.NewPrompter(os.Stdin, os.Stdout),
		os.Stdout,
		os.LookupEnv,
		tel,
	)
	s, err := loader.Load()
	if err != nil {
		osutil.Fatal("failed to load settings", err)
	}
	return s
}
