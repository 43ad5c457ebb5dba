package main

import (
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Faultbox/scanlab/internal/config"
	"github.com/Faultbox/scanlab/internal/logger"
	"github.com/Faultbox/scanlab/internal/metrics"
	"github.com/Faultbox/scanlab/internal/session"
)

var (
	overrides config.Overrides
	cfg       *config.Config

	gatherer *prometheus.Registry
	collect  *metrics.Metrics
)

var rootCmd = &cobra.Command{
	Use:   "scanlab",
	Short: "Scanlab compares 3D scans against reference meshes",
	Long: `Scanlab loads PLY and STL meshes, colors them by region rules,
aligns a scan onto a reference and shows where they differ.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if cfg != nil && cfg.Metrics.Enabled {
			if err := metrics.WriteText(cmd.ErrOrStderr(), gatherer); err != nil {
				logger.Warn("writing metrics failed", zap.Error(err))
			}
		}
		logger.Sync()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&overrides.ConfigPath, "config", "", "Path to config file")
	flags.BoolVar(&overrides.Debug, "debug", false, "Enable debug logging")
	flags.StringVar(&overrides.LogFile, "log-file", "", "Write logs to file (with rotation)")
	flags.StringVar(&overrides.Alignment, "alignment", "", "Alignment strategy (fixed-offset, icp)")
	flags.StringVar(&overrides.Difference, "difference", "", "Difference strategy (uniform, deviation)")
	flags.IntVar(&overrides.Workers, "workers", 0, "Concurrent parse workers")
	flags.BoolVar(&overrides.Metrics, "metrics", false, "Print Prometheus metrics to stderr on exit")
}

func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(overrides)
	if err != nil {
		return err
	}

	lc := cfg.Logging
	fileCfg := logger.DefaultFileConfig(lc.LogFile)
	if lc.MaxSizeMB > 0 {
		fileCfg.MaxSizeMB = lc.MaxSizeMB
	}
	if lc.MaxBackups > 0 {
		fileCfg.MaxBackups = lc.MaxBackups
	}
	if lc.MaxAgeDays > 0 {
		fileCfg.MaxAgeDays = lc.MaxAgeDays
	}
	fileCfg.Compress = lc.Compress
	if err := logger.InitWithFileConfig(lc.Level, fileCfg, true); err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}

	gatherer = prometheus.NewRegistry()
	collect = metrics.New(cfg.Metrics.Namespace)
	if err := collect.Register(gatherer); err != nil {
		return err
	}
	return nil
}

// newSession builds a session wired to the global logger and metrics.
func newSession() (*session.Session, error) {
	return session.New(cfg,
		session.WithLogger(logger.Log),
		session.WithHooks(collect.Hooks()),
	)
}
