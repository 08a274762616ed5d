// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package fit recovers amplitude, phase and offset of a sinusoid of known
// frequency from a window of samples.
//
// The model is
//
//	v(t) = p0 + p1·sin(2πft) + p2·cos(2πft)
//
// which is linear in (p0, p1, p2) and is solved as an ordinary least-squares
// problem by QR factorization of the n×3 design matrix.
package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ErrDegenerate means no valid amplitude/phase could be determined: too few
// samples, a rank-deficient design matrix, or an amplitude at or below
// epsilon. Callers keep their previous result.
var ErrDegenerate = errors.New("degenerate fit")

const (
	// MinSamples is the number of basis functions; fewer samples cannot
	// determine the coefficients.
	MinSamples = 3

	// DefaultEpsilon is the amplitude at or below which a fit is degenerate.
	DefaultEpsilon = 1e-9

	// maxCondition rejects design matrices whose columns are numerically
	// dependent, e.g. a target frequency aliased onto the sampling grid.
	maxCondition = 1e10
)

// Result is a pure function of the samples it was computed from.
type Result struct {
	Amplitude float64 `json:"amplitude"` // sqrt(p1² + p2²), always ≥ 0
	Phase     float64 `json:"phase"`     // acos(p2/amplitude), in [0, π]
	Offset    float64 `json:"offset"`    // p0
	Frequency float64 `json:"frequency"` // the target frequency, Hz

	SinCoef     float64 `json:"p1"`
	CosCoef     float64 `json:"p2"`
	ResidualRMS float64 `json:"residual_rms"`
	Samples     int     `json:"samples"`
}

// Eval returns the fitted model at time t.
func (r Result) Eval(t float64) float64 {
	w := 2 * math.Pi * r.Frequency * t
	return r.Offset + r.SinCoef*math.Sin(w) + r.CosCoef*math.Cos(w)
}

// Fitter carries the degenerate-amplitude threshold.
type Fitter struct {
	Epsilon float64
}

// New returns a Fitter; a non-positive epsilon selects DefaultEpsilon.
func New(epsilon float64) *Fitter {
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Fitter{Epsilon: epsilon}
}

// Fit fits with DefaultEpsilon.
func Fit(times, values []float64, targetHz float64) (Result, error) {
	return New(DefaultEpsilon).Fit(times, values, targetHz)
}

// Fit solves the least-squares problem for the given samples. Every
// failure is reported as an error wrapping ErrDegenerate; the inputs are
// never modified.
func (f *Fitter) Fit(times, values []float64, targetHz float64) (Result, error) {
	n := len(times)
	if n != len(values) {
		return Result{}, fmt.Errorf("%d times but %d values: %w", n, len(values), ErrDegenerate)
	}
	if n < MinSamples {
		return Result{}, fmt.Errorf("%d samples, need %d: %w", n, MinSamples, ErrDegenerate)
	}
	if targetHz <= 0 || math.IsNaN(targetHz) || math.IsInf(targetHz, 0) {
		return Result{}, fmt.Errorf("target frequency %v: %w", targetHz, ErrDegenerate)
	}

	a := mat.NewDense(n, 3, nil)
	for i, t := range times {
		w := 2 * math.Pi * targetHz * t
		a.Set(i, 0, 1)
		a.Set(i, 1, math.Sin(w))
		a.Set(i, 2, math.Cos(w))
	}
	b := mat.NewVecDense(n, values)

	var qr mat.QR
	qr.Factorize(a)
	if c := qr.Cond(); math.IsNaN(c) || c > maxCondition {
		return Result{}, fmt.Errorf("design matrix condition %.3g: %w", c, ErrDegenerate)
	}

	var p mat.Dense
	if err := qr.SolveTo(&p, false, b); err != nil {
		return Result{}, fmt.Errorf("least squares: %v: %w", err, ErrDegenerate)
	}
	p0, p1, p2 := p.At(0, 0), p.At(1, 0), p.At(2, 0)

	amp := math.Hypot(p1, p2)
	if math.IsNaN(amp) || amp <= f.Epsilon {
		return Result{}, fmt.Errorf("amplitude %.3g at or below %.3g: %w", amp, f.Epsilon, ErrDegenerate)
	}

	var fitted mat.VecDense
	fitted.MulVec(a, p.ColView(0))
	resid := make([]float64, n)
	floats.SubTo(resid, values, fitted.RawVector().Data)

	return Result{
		Amplitude:   amp,
		Phase:       math.Acos(clamp(p2/amp, -1, 1)),
		Offset:      p0,
		Frequency:   targetHz,
		SinCoef:     p1,
		CosCoef:     p2,
		ResidualRMS: floats.Norm(resid, 2) / math.Sqrt(float64(n)),
		Samples:     n,
	}, nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
