// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package spectrum

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sine(n int, cadence, f, a, offset float64) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = a*math.Sin(2*math.Pi*f*float64(i)/cadence) + offset
	}
	return v
}

func TestDominantFindsTone(t *testing.T) {
	p, ok := Dominant(sine(100, 100, 5, 2, 1.5), 100)
	require.True(t, ok)
	assert.InDelta(t, 5.0, p.Frequency, 1e-9)
	assert.InDelta(t, 2.0, p.Magnitude, 1e-6)
	assert.InDelta(t, 1.0, p.BinWidth, 1e-12)
}

func TestDominantIgnoresOffset(t *testing.T) {
	// large DC plus a small 12 Hz tone
	p, ok := Dominant(sine(200, 100, 12, 0.1, 50), 100)
	require.True(t, ok)
	assert.InDelta(t, 12.0, p.Frequency, 0.5)
}

func TestDominantRejectsFlatOrShortInput(t *testing.T) {
	_, ok := Dominant([]float64{1, 1, 1, 1, 1, 1}, 100)
	assert.False(t, ok)

	_, ok = Dominant([]float64{1, 2, 3}, 100)
	assert.False(t, ok)

	_, ok = Dominant(sine(16, 100, 5, 1, 0), 0)
	assert.False(t, ok)
}
