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
	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/app"
	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/logging"
)

func main() {
	var configPath string

	cmd := &cobra.Command{
		Use:          "console",
		Short:        "Run the estimator on the synthetic source and print fits",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.LogLevel, zap.String("app", "console"))
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return app.RunMockConsole(ctx, cfg, os.Stdout, logger)
		},
	}
	// empty path: defaults plus SINEFIT_* environment
	cmd.Flags().StringVar(&configPath, "config", "", "path to configuration file")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
