// Package cmd implements the unmark CLI.
package cmd

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/loviiin/unmark/pkg/config"
	rescfg "github.com/loviiin/unmark/services/resolver/internal/config"
)

// Version is set at build time via ldflags.
var Version = "dev"

var (
	cfg    *config.Config
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "unmark",
	Short: "Resolve social media share links to watermark-free media",
	Long: `unmark turns a Douyin, Kuaishou or Xiaohongshu share link (or the share
text around it) into the watermark-free video URL or image list of the post.`,
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "Path to config.yaml (default: search CONFIG_PATH, ./config.yaml, ./config/config.yaml)")
	pf.String("log-level", "", "Log level: debug | info | warn | error")
	pf.String("redis", "", "Redis address; empty disables cache, rate limit and metrics")
	pf.String("database", "", "Postgres URL for resolution history")
	pf.String("nats", "", "NATS URL for the resolve worker")
	pf.String("cookies", "", "Cookie database path")
	pf.StringSlice("strategies", nil, "Strategy order, e.g. browser,aggregator,douyin")
	pf.Bool("headless", true, "Run the browser headless")
	pf.Bool("no-browser", false, "Disable the browser strategy")

	rootCmd.AddCommand(serveCmd, resolveCmd, workerCmd, cookieCmd, configCmd, versionCmd)
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if cmd == configInitCmd || cmd == versionCmd {
		logger = newLogger(config.Default().App)
		return nil
	}
	var err error
	cfg, err = rescfg.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	logger = newLogger(cfg.App)
	return nil
}

// newLogger writes JSON in production and a console format elsewhere.
func newLogger(app config.App) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(app.LogLevel))
	if err != nil || app.LogLevel == "" {
		level = zerolog.InfoLevel
	}
	if app.Env == "production" {
		return zerolog.New(os.Stderr).Level(level).With().Timestamp().Logger()
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "unmark", Version)
	},
}
