// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/sensors"
)

// RunMockConsole runs the estimator on the synthetic source with only the
// console presenter, whatever the sensor and output settings in cfg say.
func RunMockConsole(ctx context.Context, cfg *config.Config, out io.Writer, logger *zap.Logger) error {
	local := *cfg
	local.SensorKind = config.SensorMock
	local.ConsoleEnabled = true
	local.MQTTEnabled = false
	local.DisplayEnabled = false
	local.WebServerPort = 0

	src, err := sensors.Open(&local, logger.Sugar().Named("sensors"))
	if err != nil {
		return err
	}
	defer src.Close()

	return runWith(ctx, &local, src, logger, out)
}
