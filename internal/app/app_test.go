// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"bytes"
	"context"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sinefit/internal/estimator"
	"github.com/relabs-tech/sinefit/internal/fit"
	"github.com/relabs-tech/sinefit/internal/imu"
	"github.com/relabs-tech/sinefit/internal/sensors"
)

// syncBuffer is written by the fit loop and read by the test.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// fittedFrame runs a real estimator over one window of 2·sin(2π·5t).
func fittedFrame(t *testing.T) (*estimator.Estimator, estimator.Frame) {
	t.Helper()
	src := sensors.NewMockSource(sensors.MockOptions{Amplitude: 2, Frequency: 5, Dt: 0.01})
	est, err := estimator.New(src, estimator.Options{
		CadenceHz:      100,
		WindowCapacity: 100,
		TargetHz:       5,
		FitInterval:    time.Second,
		Epsilon:        fit.DefaultEpsilon,
		Axis:           imu.AxisX,
	}, nil)
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		require.NoError(t, est.SampleOnce(context.Background()))
	}
	f := est.FitOnce()
	require.True(t, f.HaveFit)
	require.InDelta(t, 2.0, f.Fit.Amplitude, 1e-9)
	return est, f
}

func waitingFrame() estimator.Frame {
	return estimator.Frame{
		Cycle:  1,
		Status: estimator.Status{Kind: estimator.StatusStale, Message: "no samples yet"},
	}
}

func finite(vs []float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
