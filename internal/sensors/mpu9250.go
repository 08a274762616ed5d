// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/devices/v3/mpu9250"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sinefit/internal/imu"
)

type mpu9250Source struct {
	dev     *mpu9250.MPU9250
	lsbPerG float64
}

// OpenMPU9250 initializes an MPU9250 over SPI and returns it as an
// accelerometer source. rangeCode is 0=±2g, 1=±4g, 2=±8g, 3=±16g.
func OpenMPU9250(spiDev, csPin string, rangeCode byte, log *zap.SugaredLogger) (imu.Source, error) {
	if rangeCode > 3 {
		return nil, fmt.Errorf("mpu9250: accel range %d: %w", rangeCode, imu.ErrConnect)
	}
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: periph host init: %w: %w", imu.ErrConnect, err)
	}

	cs := gpioreg.ByName(csPin)
	if cs == nil {
		return nil, fmt.Errorf("mpu9250: CS pin %q not found: %w", csPin, imu.ErrConnect)
	}

	tr, err := mpu9250.NewSpiTransport(spiDev, cs)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: SPI transport (%s): %w: %w", spiDev, imu.ErrConnect, err)
	}

	dev, err := mpu9250.New(*tr)
	if err != nil {
		return nil, fmt.Errorf("mpu9250: device creation: %w: %w", imu.ErrConnect, err)
	}
	if err := dev.Init(); err != nil {
		return nil, fmt.Errorf("mpu9250: initialization: %w: %w", imu.ErrConnect, err)
	}

	// Self-test and calibration are best effort
	if res, err := dev.SelfTest(); err != nil {
		log.Warnf("mpu9250: self-test failed: %v", err)
	} else {
		log.Infof("mpu9250: self-test passed, accel deviation X: %.2f%%, Y: %.2f%%, Z: %.2f%%",
			res.AccelDeviation.X, res.AccelDeviation.Y, res.AccelDeviation.Z)
	}
	if err := dev.Calibrate(); err != nil {
		log.Warnf("mpu9250: calibration failed: %v", err)
	}

	// both of the above leave ACCEL_CONFIG at ±2g, so the range goes last
	src, err := newMPU9250Source(dev, rangeCode)
	if err != nil {
		return nil, err
	}
	log.Infof("mpu9250: accelerometer range set to %d (±%dg) on %s", rangeCode, 2<<rangeCode, spiDev)
	return src, nil
}

// newMPU9250Source sets the accelerometer full scale and checks that the
// chip took it. SetAccelRange expects FS_SEL already in bits 4:3.
func newMPU9250Source(dev *mpu9250.MPU9250, rangeCode byte) (*mpu9250Source, error) {
	if rangeCode > 3 {
		return nil, fmt.Errorf("mpu9250: accel range %d: %w", rangeCode, imu.ErrConnect)
	}
	if err := dev.SetAccelRange(rangeCode << 3); err != nil {
		return nil, fmt.Errorf("mpu9250: set accel range: %w: %w", imu.ErrConnect, err)
	}
	got, err := dev.GetAccelRange()
	if err != nil {
		return nil, fmt.Errorf("mpu9250: read accel range: %w: %w", imu.ErrConnect, err)
	}
	if got != rangeCode {
		return nil, fmt.Errorf("mpu9250: accel range is %d after setting %d: %w", got, rangeCode, imu.ErrConnect)
	}
	return &mpu9250Source{dev: dev, lsbPerG: mpu9250LSBPerG(rangeCode)}, nil
}

// mpu9250LSBPerG is the accelerometer sensitivity for a range code.
func mpu9250LSBPerG(rangeCode byte) float64 {
	return float64(int(16384) >> rangeCode)
}

// Read reads one accelerometer sample.
func (s *mpu9250Source) Read() (imu.Reading, error) {
	ax, err := s.dev.GetAccelerationX()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("mpu9250 accel X: %w: %w", imu.ErrIO, err)
	}
	ay, err := s.dev.GetAccelerationY()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("mpu9250 accel Y: %w: %w", imu.ErrIO, err)
	}
	az, err := s.dev.GetAccelerationZ()
	if err != nil {
		return imu.Reading{}, fmt.Errorf("mpu9250 accel Z: %w: %w", imu.ErrIO, err)
	}

	return imu.Reading{
		Source: SourceMPU9250,
		X:      float64(ax) / s.lsbPerG,
		Y:      float64(ay) / s.lsbPerG,
		Z:      float64(az) / s.lsbPerG,
	}, nil
}

// Close is a no-op; the SPI port stays open for the life of the process.
func (s *mpu9250Source) Close() error { return nil }
