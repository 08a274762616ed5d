// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sinefit/internal/imu"
)

// ADXL355 registers used here.
const (
	adxl355RegDevIDAD   = 0x00
	adxl355RegXData3    = 0x08 // XDATA3..ZDATA1, 9 bytes
	adxl355RegRange     = 0x2C
	adxl355RegPowerCtl  = 0x2D
	adxl355DevIDAD      = 0xAD
	adxl355RangeI2CHS   = 0x80 // high speed I2C mode
	adxl355PowerMeasure = 0x00 // STANDBY bit cleared
)

// adxl355LSBPerG indexes sensitivity by range code (1=±2g, 2=±4g, 3=±8g).
var adxl355LSBPerG = [4]float64{0, 256000, 128000, 64000}

type adxl355Source struct {
	dev     *i2c.Dev
	closer  func() error
	lsbPerG float64
}

// OpenADXL355 opens the I2C bus (empty name selects the first bus), checks
// the device ID and puts the ADXL355 into measurement mode.
func OpenADXL355(busName string, addr uint16, rangeCode byte) (imu.Source, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("adxl355: periph host init: %w: %w", imu.ErrConnect, err)
	}
	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("adxl355: open I2C bus %q: %w: %w", busName, imu.ErrConnect, err)
	}
	src, err := newADXL355(bus, addr, rangeCode)
	if err != nil {
		bus.Close()
		return nil, err
	}
	src.closer = bus.Close
	return src, nil
}

func newADXL355(bus i2c.Bus, addr uint16, rangeCode byte) (*adxl355Source, error) {
	if rangeCode < 1 || rangeCode > 3 {
		return nil, fmt.Errorf("adxl355: range %d: %w", rangeCode, imu.ErrConnect)
	}
	dev := &i2c.Dev{Bus: bus, Addr: addr}

	id := make([]byte, 1)
	if err := dev.Tx([]byte{adxl355RegDevIDAD}, id); err != nil {
		return nil, fmt.Errorf("adxl355: read device ID at 0x%02X: %w: %w", addr, imu.ErrConnect, err)
	}
	if id[0] != adxl355DevIDAD {
		return nil, fmt.Errorf("adxl355: unexpected device ID 0x%02X at 0x%02X: %w", id[0], addr, imu.ErrConnect)
	}

	if _, err := dev.Write([]byte{adxl355RegRange, adxl355RangeI2CHS | rangeCode}); err != nil {
		return nil, fmt.Errorf("adxl355: set range: %w: %w", imu.ErrConnect, err)
	}
	if _, err := dev.Write([]byte{adxl355RegPowerCtl, adxl355PowerMeasure}); err != nil {
		return nil, fmt.Errorf("adxl355: enter measurement mode: %w: %w", imu.ErrConnect, err)
	}

	return &adxl355Source{dev: dev, lsbPerG: adxl355LSBPerG[rangeCode]}, nil
}

// Read burst-reads the three 20-bit axes.
func (s *adxl355Source) Read() (imu.Reading, error) {
	buf := make([]byte, 9)
	if err := s.dev.Tx([]byte{adxl355RegXData3}, buf); err != nil {
		return imu.Reading{}, fmt.Errorf("adxl355 read axes: %w: %w", imu.ErrIO, err)
	}
	return imu.Reading{
		Source: SourceADXL355,
		X:      float64(decode20(buf[0:3])) / s.lsbPerG,
		Y:      float64(decode20(buf[3:6])) / s.lsbPerG,
		Z:      float64(decode20(buf[6:9])) / s.lsbPerG,
	}, nil
}

func (s *adxl355Source) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer()
}

// decode20 turns DATA3, DATA2, DATA1 into a signed 20-bit value. DATA1
// carries the low nibble in its upper four bits.
func decode20(b []byte) int32 {
	v := int32(b[0])<<12 | int32(b[1])<<4 | int32(b[2])>>4
	if v&0x80000 != 0 {
		v -= 1 << 20
	}
	return v
}
