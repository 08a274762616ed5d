// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// Run drives the sample loop at the configured cadence and the fit loop
// every FitInterval, starting after FitInitialDelay. Both stop when ctx is
// cancelled; Run returns after the sample in flight has been pushed.
func (e *Estimator) Run(ctx context.Context, presenters ...Presenter) error {
	g, ctx := errgroup.WithContext(ctx)

	period := time.Duration(float64(time.Second) * e.dt)
	e.log.Infof("estimator: sampling %s axis at %d Hz into %d samples, fitting %g Hz every %v",
		e.opts.Axis, e.opts.CadenceHz, e.opts.WindowCapacity, e.opts.TargetHz, e.opts.FitInterval)

	g.Go(func() error {
		every(ctx, 0, period, func() {
			_ = e.SampleOnce(ctx)
		})
		return nil
	})

	g.Go(func() error {
		every(ctx, e.opts.FitInitialDelay, e.opts.FitInterval, func() {
			e.present(ctx, e.FitOnce(), presenters)
		})
		return nil
	})

	err := g.Wait()
	e.log.Infof("estimator: stopped after %d samples", e.WindowSnapshot().Version)
	return err
}

func (e *Estimator) present(ctx context.Context, f Frame, presenters []Presenter) {
	for _, p := range presenters {
		if ctx.Err() != nil {
			return
		}
		if err := p.Present(ctx, f); err != nil {
			e.log.Warnf("estimator: presenter %T: %v", p, err)
		}
	}
}

// every calls fn once after delay and then once per period until ctx is done.
func every(ctx context.Context, delay, period time.Duration, fn func()) {
	if delay > 0 {
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
	if ctx.Err() != nil {
		return
	}
	fn()

	ticker := time.NewTicker(period)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
