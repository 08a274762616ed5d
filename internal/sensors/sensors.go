// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package sensors provides the accelerometer sources the estimator samples.
package sensors

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/imu"
)

// Source names reported in imu.Reading.Source.
const (
	SourceMPU9250 = "mpu9250"
	SourceADXL355 = "adxl355"
	SourceSerial  = "serial"
	SourceMock    = "mock"
)

// Open creates the source selected by cfg.SensorKind. Errors wrap
// imu.ErrConnect.
func Open(cfg *config.Config, log *zap.SugaredLogger) (imu.Source, error) {
	switch cfg.SensorKind {
	case config.SensorMPU9250:
		return OpenMPU9250(cfg.IMUSPIDevice, cfg.IMUCSPin, cfg.IMUAccelRange, log)
	case config.SensorADXL355:
		return OpenADXL355(cfg.ADXLI2CBus, cfg.ADXLI2CAddr, cfg.ADXLRange)
	case config.SensorSerial:
		return OpenSerial(cfg.SerialPort, cfg.SerialBaudRate, log)
	case config.SensorMock:
		log.Infof("sensors: using mock source (%.3g·sin(2π·%.3g·t + %.3g) + %.3g, noise %.3g)",
			cfg.MockAmplitude, cfg.MockFrequencyHz, cfg.MockPhase, cfg.MockOffset, cfg.MockNoise)
		return NewMockSource(MockOptions{
			Amplitude: cfg.MockAmplitude,
			Offset:    cfg.MockOffset,
			Phase:     cfg.MockPhase,
			Frequency: cfg.MockFrequencyHz,
			Dt:        cfg.Dt().Seconds(),
			Noise:     cfg.MockNoise,
			FailEvery: cfg.MockFailEvery,
			Seed:      1,
		}), nil
	}
	return nil, fmt.Errorf("unknown sensor kind %q: %w", cfg.SensorKind, imu.ErrConnect)
}
