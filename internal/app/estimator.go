// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/estimator"
	"github.com/relabs-tech/sinefit/internal/imu"
	"github.com/relabs-tech/sinefit/internal/sensors"
)

// RunEstimator opens the configured sensor, starts the enabled presenters
// and runs the estimator until ctx is cancelled.
func RunEstimator(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	log := logger.Sugar()
	log.Infof("starting sinefit estimator (sensor %s, axis %s)", cfg.SensorKind, cfg.SensorAxis)

	src, err := sensors.Open(cfg, log.Named("sensors"))
	if err != nil {
		return err
	}
	defer src.Close()

	return runWith(ctx, cfg, src, logger, os.Stdout)
}

func runWith(ctx context.Context, cfg *config.Config, src imu.Source, logger *zap.Logger, out io.Writer) error {
	log := logger.Sugar()

	est, err := estimator.New(src, estimator.OptionsFromConfig(cfg), log.Named("estimator"))
	if err != nil {
		return err
	}

	var presenters []estimator.Presenter
	if cfg.ConsoleEnabled {
		presenters = append(presenters, NewConsolePresenter(out))
	}
	if cfg.WindowDumpEvery > 0 {
		presenters = append(presenters, NewWindowDumpPresenter(cfg.WindowDumpEvery, logger.Named("dump")))
	}
	if cfg.MQTTEnabled {
		client, err := connectMQTT(cfg.MQTTBroker, cfg.MQTTClientIDProducer, log)
		if err != nil {
			return err
		}
		defer client.Disconnect(250)
		presenters = append(presenters, newMQTTPresenter(client, cfg, log))
	}
	if cfg.DisplayEnabled {
		display, err := OpenDisplay(cfg.DisplayI2CBus, log)
		if err != nil {
			return err
		}
		defer display.Close()
		presenters = append(presenters, display)
	}

	g, ctx := errgroup.WithContext(ctx)
	if cfg.WebServerPort > 0 {
		web := NewWebPresenter(est, log)
		presenters = append(presenters, web)
		g.Go(func() error {
			if err := web.Serve(ctx, fmt.Sprintf(":%d", cfg.WebServerPort)); err != nil {
				return fmt.Errorf("web: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return est.Run(ctx, presenters...)
	})
	return g.Wait()
}
