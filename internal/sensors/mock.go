// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package sensors

import (
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/relabs-tech/sinefit/internal/imu"
)

// MockOptions describe the synthetic signal
//
//	x(n) = Amplitude·sin(2π·Frequency·n·Dt + Phase) + Offset + noise
//
// y and z carry a small constant tilt and gravity.
type MockOptions struct {
	Amplitude float64
	Offset    float64
	Phase     float64
	Frequency float64 // Hz
	Dt        float64 // seconds between reads
	Noise     float64 // standard deviation of gaussian noise
	FailEvery int     // every FailEvery-th read fails with imu.ErrIO; 0 never
	Seed      int64
}

type mockSource struct {
	opts MockOptions

	mu  sync.Mutex
	n   int
	rng *rand.Rand
}

// NewMockSource creates a mock source that generates a sinusoid on X.
// The signal advances on every read, including failed ones, as a real
// vibration would.
func NewMockSource(opts MockOptions) imu.Source {
	return &mockSource{
		opts: opts,
		rng:  rand.New(rand.NewSource(opts.Seed)),
	}
}

func (m *mockSource) Read() (imu.Reading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := m.n
	m.n++
	if m.opts.FailEvery > 0 && (n+1)%m.opts.FailEvery == 0 {
		return imu.Reading{}, fmt.Errorf("mock read %d: %w", n+1, imu.ErrIO)
	}

	t := float64(n) * m.opts.Dt
	x := m.opts.Amplitude*math.Sin(2*math.Pi*m.opts.Frequency*t+m.opts.Phase) + m.opts.Offset
	if m.opts.Noise > 0 {
		x += m.rng.NormFloat64() * m.opts.Noise
	}
	return imu.Reading{
		Source: SourceMock,
		X:      x,
		Y:      0.02,
		Z:      1.0,
	}, nil
}

func (m *mockSource) Close() error { return nil }
