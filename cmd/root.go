package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/trueberryless-org/npmx-weekly/internal/config"
	"github.com/trueberryless-org/npmx-weekly/internal/logging"
	"github.com/trueberryless-org/npmx-weekly/internal/update"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	flagConfig   string
	flagRoot     string
	flagLogLevel string
	flagCheck    bool
)

var (
	cfg       *config.Config
	logCloser io.Closer
)

var rootCmd = &cobra.Command{
	Use:   "npmx-weekly",
	Short: "Weekly newsletter generator for npmx",
	Long: `npmx-weekly turns the daily npmx signal reports into a weekly MDX post for the
site and a condensed email broadcast.`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		closeLog()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "path to config file (default ./"+config.DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().StringVar(&flagRoot, "root", ".", "site root containing the content directories")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "override log level (debug, info, warn, error)")

	versionCmd.Flags().BoolVar(&flagCheck, "check", false, "check GitHub for a newer release")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(weeklyCmd)
	rootCmd.AddCommand(backfillCmd)
	rootCmd.AddCommand(emailCmd)
	rootCmd.AddCommand(subscribeCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(pruneCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	c, err := config.Load(flagConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = c

	level := cfg.Log.Level
	if flagLogLevel != "" {
		level = flagLogLevel
	}
	closer, err := logging.Setup(logging.Options{
		Level:      level,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		return fmt.Errorf("setting up logging: %w", err)
	}
	logCloser = closer
	return nil
}

// closeLog flushes the log file. Cobra skips PersistentPostRun when RunE
// fails, so Execute calls it again on the error path.
func closeLog() {
	if logCloser != nil {
		logCloser.Close()
		logCloser = nil
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "npmx-weekly %s (commit: %s, built: %s)\n", version, commit, date)
		if !flagCheck {
			return nil
		}
		if res := update.Check(cmd.Context(), update.ReleaseURL(update.DefaultRepo), version); res != nil {
			fmt.Fprintf(out, "A newer release is available: %s (%s)\n", res.LatestVersion, res.URL)
		} else {
			fmt.Fprintln(out, "You are up to date.")
		}
		return nil
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		log.Error().Err(err).Msg("run failed")
		closeLog()
		stop()
		os.Exit(1)
	}
}

func SetVersionInfo(v, c, d string) {
	version = v
	commit = c
	date = d
}
