// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

import (
	"context"
	"time"

	"github.com/relabs-tech/sinefit/internal/fit"
	"github.com/relabs-tech/sinefit/internal/imu"
	"github.com/relabs-tech/sinefit/internal/spectrum"
	"github.com/relabs-tech/sinefit/internal/window"
)

// Frame is what one fit cycle hands to the presenters. When HaveFit is set,
// Snapshot is the exact window the fit was computed from, so the plotted
// samples and the displayed parameters always belong together.
type Frame struct {
	Time  time.Time `json:"time"`
	Cycle uint64    `json:"cycle"`

	Snapshot window.Snapshot `json:"snapshot"`
	Fit      fit.Result      `json:"fit"`
	HaveFit  bool            `json:"have_fit"`
	Updated  bool            `json:"updated"` // the fit was recomputed in this cycle

	Status Status `json:"status"`

	Reading     imu.Reading `json:"reading"`
	HaveReading bool        `json:"have_reading"`

	Peak     spectrum.Peak `json:"peak"`
	HavePeak bool          `json:"have_peak"`
}

// Curve samples the fitted model at the snapshot times. It returns nil
// without a fit.
func (f Frame) Curve() []float64 {
	if !f.HaveFit {
		return nil
	}
	out := make([]float64, len(f.Snapshot.Times))
	for i, t := range f.Snapshot.Times {
		out[i] = f.Fit.Eval(t)
	}
	return out
}

// Presenter consumes frames from the fit loop. Present runs on the fit
// loop goroutine; a slow presenter delays the next fit cycle but never the
// sampler. Errors are logged and do not stop the loop.
type Presenter interface {
	Present(ctx context.Context, f Frame) error
}

// PresenterFunc adapts a function to Presenter.
type PresenterFunc func(ctx context.Context, f Frame) error

func (fn PresenterFunc) Present(ctx context.Context, f Frame) error { return fn(ctx, f) }
