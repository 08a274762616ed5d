// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"context"
	"errors"
	"math"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/fit"
	"github.com/relabs-tech/sinefit/internal/imu"
	"github.com/relabs-tech/sinefit/internal/sensors"
)

// scripted returns whatever next produces for the n-th read (1-based).
type scripted struct {
	mu   sync.Mutex
	n    int
	next func(n int) (imu.Reading, error)
}

func (s *scripted) Read() (imu.Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.next(s.n)
}

func (s *scripted) Close() error { return nil }

func (s *scripted) set(next func(n int) (imu.Reading, error)) {
	s.mu.Lock()
	s.next = next
	s.mu.Unlock()
}

func sineOpts() Options {
	return Options{
		CadenceHz:      100,
		WindowCapacity: 100,
		TargetHz:       5,
		FitInterval:    time.Second,
		Epsilon:        fit.DefaultEpsilon,
		Axis:           imu.AxisX,
	}
}

func newSine(t *testing.T, opts Options, amp float64) *Estimator {
	t.Helper()
	src := sensors.NewMockSource(sensors.MockOptions{
		Amplitude: amp,
		Frequency: opts.TargetHz,
		Dt:        1 / float64(opts.CadenceHz),
	})
	e, err := New(src, opts, nil)
	require.NoError(t, err)
	return e
}

func sampleN(t *testing.T, e *Estimator, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		require.NoError(t, e.SampleOnce(context.Background()))
	}
}

func TestNewRejectsBadOptions(t *testing.T) {
	src := sensors.NewMockSource(sensors.MockOptions{Dt: 0.01})
	cases := map[string]func(o *Options){
		"cadence":  func(o *Options) { o.CadenceHz = 0 },
		"capacity": func(o *Options) { o.WindowCapacity = 2 },
		"target":   func(o *Options) { o.TargetHz = 0 },
		"interval": func(o *Options) { o.FitInterval = 0 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := sineOpts()
			mutate(&opts)
			_, err := New(src, opts, nil)
			assert.ErrorIs(t, err, config.ErrConfig)
		})
	}

	_, err := New(nil, sineOpts(), nil)
	assert.ErrorIs(t, err, config.ErrConfig)
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.Default()
	opts := OptionsFromConfig(cfg)
	assert.Equal(t, cfg.CadenceHz, opts.CadenceHz)
	assert.Equal(t, cfg.WindowCapacity, opts.WindowCapacity)
	assert.Equal(t, cfg.TargetFrequencyHz, opts.TargetHz)
	assert.Equal(t, cfg.FitInterval, opts.FitInterval)
	assert.Equal(t, cfg.FitInitialDelay, opts.FitInitialDelay)
	assert.Equal(t, cfg.SensorAxis, opts.Axis)
}

func TestOneFullWindowOfFiveHertz(t *testing.T) {
	e := newSine(t, sineOpts(), 2)
	sampleN(t, e, 100)

	frame := e.FitOnce()
	require.True(t, frame.HaveFit)
	assert.True(t, frame.Updated)
	assert.InDelta(t, 2.0, frame.Fit.Amplitude, 1e-9)
	assert.InDelta(t, 0.0, frame.Fit.Offset, 1e-9)
	assert.Equal(t, 100, frame.Snapshot.Len())
	assert.Equal(t, Status{Kind: StatusRunning}, frame.Status)

	res, ok := e.LatestFit()
	require.True(t, ok)
	assert.Equal(t, frame.Fit, res)

	require.True(t, frame.HaveReading)
	assert.Equal(t, sensors.SourceMock, frame.Reading.Source)
	require.True(t, frame.HavePeak)
	assert.InDelta(t, 5.0, frame.Peak.Frequency, frame.Peak.BinWidth)
}

func TestSampleTimesAreConsecutive(t *testing.T) {
	e := newSine(t, sineOpts(), 1)
	sampleN(t, e, 150)

	snap := e.WindowSnapshot()
	require.Equal(t, 100, snap.Len())
	assert.Equal(t, uint64(150), snap.Version)
	for i, tm := range snap.Times {
		assert.InDelta(t, float64(50+i)*0.01, tm, 1e-12)
	}
}

func TestSensorErrorOnTick50(t *testing.T) {
	src := &scripted{next: func(n int) (imu.Reading, error) {
		if n == 50 {
			return imu.Reading{}, imu.ErrIO
		}
		return imu.Reading{X: float64(n)}, nil
	}}
	e, err := New(src, sineOpts(), nil)
	require.NoError(t, err)

	sampleN(t, e, 49)
	require.Equal(t, 49, e.WindowSnapshot().Len())

	err = e.SampleOnce(context.Background())
	require.ErrorIs(t, err, imu.ErrIO)
	assert.Equal(t, 49, e.WindowSnapshot().Len())
	st := e.CurrentStatus()
	assert.Equal(t, StatusError, st.Kind)
	assert.Contains(t, st.Message, "failed to read from sensor")

	require.NoError(t, e.SampleOnce(context.Background()))
	snap := e.WindowSnapshot()
	require.Equal(t, 50, snap.Len())
	assert.NotEqual(t, StatusError, e.CurrentStatus().Kind)

	// no duplicate and no gap on the time axis
	for i, tm := range snap.Times {
		assert.InDelta(t, float64(i)*0.01, tm, 1e-12)
	}
	assert.Equal(t, 51.0, snap.Values[49])
}

func TestNonFiniteReadingIsIOError(t *testing.T) {
	src := &scripted{next: func(int) (imu.Reading, error) {
		return imu.Reading{X: math.NaN()}, nil
	}}
	e, err := New(src, sineOpts(), nil)
	require.NoError(t, err)

	err = e.SampleOnce(context.Background())
	assert.ErrorIs(t, err, imu.ErrIO)
	assert.Zero(t, e.WindowSnapshot().Len())
}

func TestSampleOnceAfterCancel(t *testing.T) {
	e := newSine(t, sineOpts(), 1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, e.SampleOnce(ctx), context.Canceled)
	assert.Zero(t, e.WindowSnapshot().Len())
}

func TestStaleBeforeWarmUp(t *testing.T) {
	e := newSine(t, sineOpts(), 2)
	assert.Equal(t, StatusStale, e.CurrentStatus().Kind)

	frame := e.FitOnce()
	assert.False(t, frame.HaveFit)
	assert.Equal(t, StatusStale, frame.Status.Kind)
	assert.Equal(t, "no samples yet", frame.Status.Message)

	sampleN(t, e, 2)
	frame = e.FitOnce()
	assert.False(t, frame.HaveFit)
	assert.Equal(t, StatusStale, frame.Status.Kind)
	assert.Contains(t, frame.Status.Message, fit.ErrDegenerate.Error())
	assert.Equal(t, 2, frame.Snapshot.Len())

	_, ok := e.LatestFit()
	assert.False(t, ok)
}

func TestDegenerateFitKeepsPreviousResult(t *testing.T) {
	src := &scripted{next: func(n int) (imu.Reading, error) {
		tm := float64(n-1) * 0.01
		return imu.Reading{X: 2 * math.Sin(2*math.Pi*5*tm)}, nil
	}}
	e, err := New(src, sineOpts(), nil)
	require.NoError(t, err)

	sampleN(t, e, 100)
	first := e.FitOnce()
	require.True(t, first.Updated)

	src.set(func(int) (imu.Reading, error) { return imu.Reading{X: 0}, nil })
	sampleN(t, e, 100)

	second := e.FitOnce()
	assert.False(t, second.Updated)
	assert.True(t, second.HaveFit)
	assert.Equal(t, first.Fit, second.Fit)
	assert.Equal(t, first.Snapshot.Version, second.Snapshot.Version, "frame shows the snapshot the fit came from")
	assert.Equal(t, StatusStale, second.Status.Kind)
	assert.Contains(t, second.Status.Message, "fit unchanged")

	res, ok := e.LatestFit()
	require.True(t, ok)
	assert.Equal(t, first.Fit, res)

	// the live window has moved on
	assert.Equal(t, uint64(200), e.WindowSnapshot().Version)
}

func TestNoNewSamplesIsStale(t *testing.T) {
	e := newSine(t, sineOpts(), 2)
	sampleN(t, e, 100)

	require.True(t, e.FitOnce().Updated)
	frame := e.FitOnce()
	assert.False(t, frame.Updated)
	assert.True(t, frame.HaveFit)
	assert.Equal(t, Status{Kind: StatusStale, Message: "no new samples"}, frame.Status)

	sampleN(t, e, 1)
	assert.True(t, e.FitOnce().Updated)
}

func TestErrorOutranksStale(t *testing.T) {
	src := &scripted{next: func(int) (imu.Reading, error) { return imu.Reading{}, imu.ErrIO }}
	e, err := New(src, sineOpts(), nil)
	require.NoError(t, err)

	assert.Error(t, e.SampleOnce(context.Background()))
	frame := e.FitOnce()
	assert.Equal(t, StatusError, frame.Status.Kind)
	assert.Equal(t, "Status: Error: "+frame.Status.Message, frame.Status.String())
}

func TestFrameCurveFollowsSamples(t *testing.T) {
	e := newSine(t, sineOpts(), 2)
	sampleN(t, e, 100)

	frame := e.FitOnce()
	curve := frame.Curve()
	require.Len(t, curve, frame.Snapshot.Len())
	for i := range curve {
		assert.InDelta(t, frame.Snapshot.Values[i], curve[i], 1e-9)
	}

	assert.Nil(t, Frame{}.Curve())
}

func TestRunFitsAndStops(t *testing.T) {
	opts := Options{
		CadenceHz:      200,
		WindowCapacity: 40,
		TargetHz:       5,
		FitInterval:    10 * time.Millisecond,
		Epsilon:        fit.DefaultEpsilon,
		Axis:           imu.AxisX,
	}
	e := newSine(t, opts, 2)

	var frames atomic.Int64
	var failing atomic.Int64
	ok := PresenterFunc(func(ctx context.Context, f Frame) error {
		frames.Add(1)
		return nil
	})
	bad := PresenterFunc(func(ctx context.Context, f Frame) error {
		failing.Add(1)
		return errors.New("display unplugged")
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, bad, ok) }()

	require.Eventually(t, func() bool {
		_, have := e.LatestFit()
		return have && frames.Load() > 2
	}, 5*time.Second, 5*time.Millisecond)

	res, _ := e.LatestFit()
	assert.InDelta(t, 2.0, res.Amplitude, 1e-6)
	assert.GreaterOrEqual(t, failing.Load(), frames.Load(), "a failing presenter does not stop the others")

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}

	// nothing is pushed after Run returned
	v := e.WindowSnapshot().Version
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, v, e.WindowSnapshot().Version)
}

func TestSlowPresenterDoesNotBlockSampling(t *testing.T) {
	opts := sineOpts()
	opts.CadenceHz = 500
	opts.FitInterval = 5 * time.Millisecond
	e := newSine(t, opts, 1)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	slow := PresenterFunc(func(ctx context.Context, f Frame) error {
		select {
		case entered <- struct{}{}:
		default:
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- e.Run(ctx, slow) }()

	<-entered
	v0 := e.WindowSnapshot().Version
	require.Eventually(t, func() bool {
		return e.WindowSnapshot().Version > v0+10
	}, 5*time.Second, 5*time.Millisecond)

	close(release)
	cancel()
	require.NoError(t, <-done)
}

func TestFitInitialDelay(t *testing.T) {
	opts := sineOpts()
	opts.FitInterval = 5 * time.Millisecond
	opts.FitInitialDelay = time.Hour
	e := newSine(t, opts, 1)

	var frames atomic.Int64
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	require.NoError(t, e.Run(ctx, PresenterFunc(func(context.Context, Frame) error {
		frames.Add(1)
		return nil
	})))
	assert.Zero(t, frames.Load())
	assert.NotZero(t, e.WindowSnapshot().Len())
}
