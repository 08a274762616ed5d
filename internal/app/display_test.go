// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"periph.io/x/devices/v3/ssd1306/image1bit"
)

type fakeScreen struct {
	frames  []image.Image
	halted  bool
	drawErr error
}

func (s *fakeScreen) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	if s.drawErr != nil {
		return s.drawErr
	}
	s.frames = append(s.frames, src)
	return nil
}

func (s *fakeScreen) Bounds() image.Rectangle { return image.Rect(0, 0, displayWidth, displayHeight) }

func (s *fakeScreen) Halt() error {
	s.halted = true
	return nil
}

func litRows(img *image1bit.VerticalLSB, y0, y1 int) int {
	n := 0
	for y := y0; y < y1; y++ {
		for x := 0; x < displayWidth; x++ {
			if bool(img.BitAt(x, y)) {
				n++
			}
		}
	}
	return n
}

func TestRenderWithoutFitLeavesPlotEmpty(t *testing.T) {
	img := render(waitingFrame())
	assert.NotZero(t, litRows(img, 0, plotTop), "text drawn")
	assert.Zero(t, litRows(img, plotTop, displayHeight))
}

func TestRenderPlotsWindowAndCurve(t *testing.T) {
	_, f := fittedFrame(t)
	img := render(f)
	assert.NotZero(t, litRows(img, 0, plotTop))
	// a continuous curve touches every column of the plot
	for x := 0; x < displayWidth; x++ {
		lit := false
		for y := plotTop; y < displayHeight; y++ {
			lit = lit || bool(img.BitAt(x, y))
		}
		assert.True(t, lit, "column %d", x)
	}
}

func TestDisplayPresenter(t *testing.T) {
	scr := &fakeScreen{}
	d := &DisplayPresenter{dev: scr, log: zap.NewNop().Sugar()}

	_, f := fittedFrame(t)
	require.NoError(t, d.Present(context.Background(), f))
	require.Len(t, scr.frames, 1)

	scr.drawErr = errors.New("i2c nack")
	assert.ErrorIs(t, d.Present(context.Background(), f), scr.drawErr)

	require.NoError(t, d.Close())
	assert.True(t, scr.halted)
}

func TestLineEndpoints(t *testing.T) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	line(img, 3, 60, 40, 45)
	assert.True(t, bool(img.BitAt(3, 60)))
	assert.True(t, bool(img.BitAt(40, 45)))
	assert.Equal(t, 38, litRows(img, 0, displayHeight), "one pixel per column for a shallow line")
}
