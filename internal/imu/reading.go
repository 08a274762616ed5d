// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package imu

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrConnect is returned when a sensor cannot be opened.
	ErrConnect = errors.New("sensor connect")
	// ErrIO is returned by Read on a transient read failure.
	// The sampler skips the tick and retries on the next one.
	ErrIO = errors.New("sensor io")
)

// Reading is one 3-axis accelerometer sample in g.
type Reading struct {
	Source string `json:"source"` // "mpu9250", "adxl355", "serial", "mock"

	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Source supplies one reading per call.
type Source interface {
	Read() (Reading, error)
	Close() error
}

// Axis selects one component of a Reading.
type Axis byte

const (
	AxisX Axis = 'x'
	AxisY Axis = 'y'
	AxisZ Axis = 'z'
)

// ParseAxis accepts "x", "y" or "z" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "x":
		return AxisX, nil
	case "y":
		return AxisY, nil
	case "z":
		return AxisZ, nil
	}
	return 0, fmt.Errorf("unknown axis %q (want x, y or z)", s)
}

func (a Axis) String() string { return string(rune(a)) }

// Value returns the component of r selected by a.
func (a Axis) Value(r Reading) float64 {
	switch a {
	case AxisY:
		return r.Y
	case AxisZ:
		return r.Z
	default:
		return r.X
	}
}
