package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"enrolsight/config"
	"enrolsight/internal/datasets"
	"enrolsight/internal/metrics"
	"enrolsight/pkg/version"
)

var (
	cfgFile     string
	flagDataDir string
	debug       bool

	settings *config.Settings
	logger   zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:     "enrolsight",
	Short:   "Enrolment analytics over Aadhaar-style extracts",
	Long:    `Enrolsight loads enrolment, biometric, and demographic extracts (.csv, .xlsx) from a data directory and computes growth, concentration, diversity, quality, and trend metrics with rule-based insights. It runs as an MCP server over stdio or renders terminal reports directly.`,
	Version: version.Version(),
}

// Execute is the entry point called by main.main().
func Execute() {
	cobra.OnInitialize(loadSettings)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default enrolsight.yaml in the working directory)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory with enrolment/biometric/demographic extracts (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadSettings() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "enrolsight").Logger()

	s, err := config.Load(cfgFile)
	if err != nil {
		logger.Error().Err(err).Msg("failed to load configuration")
		os.Exit(1)
	}
	if flagDataDir != "" {
		s.DataDir = flagDataDir
	}
	settings = s
}

// loadBundle scans and parses the configured data directory for the direct
// (non-server) commands.
func loadBundle(ctx context.Context) (*datasets.Bundle, error) {
	files, err := datasets.ScanDir(settings.DataDir)
	if err != nil {
		return nil, err
	}
	start := time.Now()
	b, err := datasets.BuildBundle(ctx, settings.DataDir, files, logger)
	if err != nil {
		return nil, err
	}
	logger.Debug().Int("files", len(b.Files)).Dur("elapsed", time.Since(start)).Msg("bundle loaded")
	return b, nil
}

// cliFilter parses the shared state/date-range flags into a metric filter.
func cliFilter(states []string, from, to string) (metrics.Filter, error) {
	f := metrics.Filter{States: states}
	if from != "" {
		d, ok := datasets.ParseDate(from)
		if !ok {
			return f, fmt.Errorf("invalid --from date %q, want DD-MM-YYYY", from)
		}
		f.From = d
	}
	if to != "" {
		d, ok := datasets.ParseDate(to)
		if !ok {
			return f, fmt.Errorf("invalid --to date %q, want DD-MM-YYYY", to)
		}
		f.To = d
	}
	return f, nil
}
