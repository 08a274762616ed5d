// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package spectrum finds the strongest frequency in a window of samples.
// It is a diagnostic next to the fit: when the dominant frequency drifts
// away from the configured target, the fitted amplitude stops meaning much.
package spectrum

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/floats"
)

// Peak is the strongest non-DC bin of a spectrum.
type Peak struct {
	Frequency float64 `json:"frequency"` // Hz
	Magnitude float64 `json:"magnitude"` // amplitude estimate, same unit as the samples
	BinWidth  float64 `json:"bin_width"` // Hz
}

// Dominant returns the strongest non-DC component of values sampled at
// cadence Hz. ok is false when there are fewer than 4 samples or the
// signal has no variation.
func Dominant(values []float64, cadence float64) (Peak, bool) {
	n := len(values)
	if n < 4 || cadence <= 0 {
		return Peak{}, false
	}

	centered := make([]float64, n)
	copy(centered, values)
	floats.AddConst(-floats.Sum(values)/float64(n), centered)

	bins := fft.FFTReal(centered)
	mags := make([]float64, n/2+1)
	for k := 1; k < len(mags); k++ {
		mags[k] = cmplx.Abs(bins[k])
	}
	k := floats.MaxIdx(mags)
	if k == 0 || mags[k] == 0 || math.IsNaN(mags[k]) {
		return Peak{}, false
	}

	// one-sided amplitude; the Nyquist bin is not mirrored
	scale := 2.0 / float64(n)
	if n%2 == 0 && k == n/2 {
		scale = 1.0 / float64(n)
	}
	width := cadence / float64(n)
	return Peak{
		Frequency: float64(k) * width,
		Magnitude: mags[k] * scale,
		BinWidth:  width,
	}, true
}
