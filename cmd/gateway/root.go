package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	logger     = zap.NewNop()
	configPath string
	verbose    bool
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Rate-limiting gateway for the art marketplace API",
	Long: `gateway sits in front of the marketplace API and throttles the public
endpoints (login, registration, password reset, contact form, uploads) with
fixed-window counters per caller key.

Configuration comes from an optional YAML file (--config) and environment
variables such as UPSTREAM_URL, RATE_BACKEND, RATE_REDIS_ADDR and
RATE_POLICY_<NAME>=<limit>/<window>.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config := zap.NewProductionConfig()
		if verbose {
			config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		l, err := config.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		logger = l
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logger.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}
