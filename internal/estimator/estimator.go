// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package estimator runs the online sinusoid estimate: a sample loop that
// pushes one reading per tick into a sliding window, and a slower fit loop
// that fits a snapshot of the window and hands the result to presenters.
//
// The window is written only by SampleOnce. The fit loop reads it through
// Snapshot, which copies under a lock, and fits outside any lock. The latest
// fit and the snapshot it came from are swapped as one pointer, so readers
// see either the old pair or the new pair.
package estimator

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/config"
	"github.com/relabs-tech/sinefit/internal/fit"
	"github.com/relabs-tech/sinefit/internal/imu"
	"github.com/relabs-tech/sinefit/internal/spectrum"
	"github.com/relabs-tech/sinefit/internal/window"
)

// Options are fixed for the life of an Estimator.
type Options struct {
	CadenceHz       int
	WindowCapacity  int
	TargetHz        float64
	FitInterval     time.Duration
	FitInitialDelay time.Duration
	Epsilon         float64
	Axis            imu.Axis
}

// OptionsFromConfig picks the estimator settings out of cfg.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		CadenceHz:       cfg.CadenceHz,
		WindowCapacity:  cfg.WindowCapacity,
		TargetHz:        cfg.TargetFrequencyHz,
		FitInterval:     cfg.FitInterval,
		FitInitialDelay: cfg.FitInitialDelay,
		Epsilon:         cfg.FitAmplitudeEpsilon,
		Axis:            cfg.SensorAxis,
	}
}

// fitted pairs a fit with the snapshot it was computed from.
type fitted struct {
	result fit.Result
	snap   window.Snapshot
}

// Estimator owns the window, the latest fit and the status.
type Estimator struct {
	opts   Options
	dt     float64
	src    imu.Source
	win    *window.Window
	fitter *fit.Fitter
	log    *zap.SugaredLogger
	now    func() time.Time

	// sampler state
	sampleMu sync.Mutex
	samples  uint64 // successful samples; the next sample's time is samples·dt

	// fit loop state
	fitMu       sync.Mutex
	cycle       uint64
	lastAttempt uint64 // window version of the last fit attempt

	latest      atomic.Pointer[fitted]
	lastReading atomic.Pointer[imu.Reading]

	statusMu     sync.Mutex
	sampleErr    error
	failedTicks  int
	staleMessage string
}

// New creates an estimator around src. Invalid options wrap config.ErrConfig.
func New(src imu.Source, opts Options, log *zap.SugaredLogger) (*Estimator, error) {
	switch {
	case src == nil:
		return nil, fmt.Errorf("estimator: nil source: %w", config.ErrConfig)
	case opts.CadenceHz <= 0:
		return nil, fmt.Errorf("estimator: cadence %d Hz: %w", opts.CadenceHz, config.ErrConfig)
	case opts.WindowCapacity < fit.MinSamples:
		return nil, fmt.Errorf("estimator: window capacity %d: %w", opts.WindowCapacity, config.ErrConfig)
	case opts.TargetHz <= 0:
		return nil, fmt.Errorf("estimator: target frequency %g Hz: %w", opts.TargetHz, config.ErrConfig)
	case opts.FitInterval <= 0:
		return nil, fmt.Errorf("estimator: fit interval %v: %w", opts.FitInterval, config.ErrConfig)
	}
	if opts.Axis == 0 {
		opts.Axis = imu.AxisX
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Estimator{
		opts:         opts,
		dt:           1 / float64(opts.CadenceHz),
		src:          src,
		win:          window.New(opts.WindowCapacity),
		fitter:       fit.New(opts.Epsilon),
		log:          log,
		now:          time.Now,
		staleMessage: "waiting for first fit",
	}, nil
}

// Options returns the options the estimator was built with.
func (e *Estimator) Options() Options { return e.opts }

// SampleOnce is one tick of the sample clock: read, then push on success.
// A failed read pushes nothing, leaves the time axis where it was, and
// puts the status into StatusError until the next successful read.
func (e *Estimator) SampleOnce(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.sampleMu.Lock()
	defer e.sampleMu.Unlock()

	r, err := e.src.Read()
	if err == nil {
		if v := e.opts.Axis.Value(r); math.IsNaN(v) || math.IsInf(v, 0) {
			err = fmt.Errorf("non-finite %s value %v: %w", e.opts.Axis, v, imu.ErrIO)
		}
	}
	if err != nil {
		e.sampleFailed(err)
		return err
	}

	e.win.Push(window.Sample{
		Time:  float64(e.samples) * e.dt,
		Value: e.opts.Axis.Value(r),
	})
	e.samples++
	e.lastReading.Store(&r)
	e.sampleRecovered()
	return nil
}

func (e *Estimator) sampleFailed(err error) {
	e.statusMu.Lock()
	first := e.sampleErr == nil
	e.sampleErr = err
	e.failedTicks++
	e.statusMu.Unlock()

	if first {
		e.log.Warnf("estimator: failed to read from sensor: %v", err)
	} else {
		e.log.Debugf("estimator: failed to read from sensor: %v", err)
	}
}

func (e *Estimator) sampleRecovered() {
	e.statusMu.Lock()
	failed := e.failedTicks
	e.sampleErr = nil
	e.failedTicks = 0
	e.statusMu.Unlock()

	if failed > 0 {
		e.log.Infof("estimator: sensor recovered after %d failed tick(s)", failed)
	}
}

// FitOnce is one fit cycle: snapshot the window, fit that snapshot, and
// build the frame presenters get. A degenerate fit keeps the previous
// result, and the frame then shows the snapshot that result came from.
func (e *Estimator) FitOnce() Frame {
	e.fitMu.Lock()
	defer e.fitMu.Unlock()

	e.cycle++
	snap := e.win.Snapshot()

	var stale string
	updated := false
	switch {
	case snap.Len() == 0:
		stale = "no samples yet"
	case snap.Version == e.lastAttempt:
		stale = "no new samples"
	default:
		e.lastAttempt = snap.Version
		res, err := e.fitter.Fit(snap.Times, snap.Values, e.opts.TargetHz)
		if err != nil {
			stale = "fit unchanged: " + err.Error()
			e.log.Debugf("estimator: cycle %d: %v", e.cycle, err)
			break
		}
		e.latest.Store(&fitted{result: res, snap: snap})
		updated = true
	}

	e.statusMu.Lock()
	e.staleMessage = stale
	e.statusMu.Unlock()

	frame := Frame{
		Time:     e.now(),
		Cycle:    e.cycle,
		Snapshot: snap,
		Updated:  updated,
		Status:   e.CurrentStatus(),
	}
	if f := e.latest.Load(); f != nil {
		frame.Fit = f.result
		frame.HaveFit = true
		frame.Snapshot = f.snap
	}
	if r := e.lastReading.Load(); r != nil {
		frame.Reading = *r
		frame.HaveReading = true
	}
	frame.Peak, frame.HavePeak = spectrum.Dominant(frame.Snapshot.Values, float64(e.opts.CadenceHz))
	return frame
}

// CurrentStatus reports Error while the sensor is failing, Stale while the
// displayed fit is not being updated, and Running otherwise.
func (e *Estimator) CurrentStatus() Status {
	e.statusMu.Lock()
	defer e.statusMu.Unlock()

	switch {
	case e.sampleErr != nil:
		return Status{Kind: StatusError, Message: "failed to read from sensor: " + e.sampleErr.Error()}
	case e.staleMessage != "":
		return Status{Kind: StatusStale, Message: e.staleMessage}
	}
	return Status{Kind: StatusRunning}
}

// LatestFit returns the most recent non-degenerate fit; ok is false until
// the first one.
func (e *Estimator) LatestFit() (fit.Result, bool) {
	f := e.latest.Load()
	if f == nil {
		return fit.Result{}, false
	}
	return f.result, true
}

// WindowSnapshot returns a copy of the live window.
func (e *Estimator) WindowSnapshot() window.Snapshot {
	return e.win.Snapshot()
}
