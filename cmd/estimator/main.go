// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/app"
	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/logging"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "estimator",
	Short: "Estimate amplitude, phase and offset of a vibration in real time",
	Long: `estimator samples one accelerometer axis at a fixed cadence into a
sliding window and periodically fits a sinusoid of known frequency to it.
Results go to the console, the log, MQTT, a web/websocket API and an OLED,
depending on the configuration file.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("log-level") {
			cfg.LogLevel = logLevel
		}

		logger, err := logging.New(cfg.LogLevel, zap.String("app", "estimator"))
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return app.RunEstimator(ctx, cfg, logger)
	},
}

func addFlags(fs *pflag.FlagSet) {
	fs.StringVar(&configPath, "config", "./sinefit_config.txt", "path to configuration file")
	fs.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error); overrides LOG_LEVEL")
}

func main() {
	addFlags(rootCmd.PersistentFlags())
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
