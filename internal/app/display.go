// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"image"
	"math"

	"go.uber.org/zap"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/devices/v3/ssd1306"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/host/v3"

	"github.com/relabs-tech/sinefit/internal/estimator"
)

const (
	displayWidth  = 128
	displayHeight = 64

	// the plot uses the rows below the three text lines
	plotTop = 42
)

// screen is the part of *ssd1306.Dev the presenter draws on.
type screen interface {
	Draw(r image.Rectangle, src image.Image, sp image.Point) error
	Bounds() image.Rectangle
	Halt() error
}

// DisplayPresenter shows the fit, the status and a small plot of the
// window on a 128x64 SSD1306.
type DisplayPresenter struct {
	dev screen
	bus i2c.BusCloser
	log *zap.SugaredLogger
}

// OpenDisplay opens the OLED on the named I²C bus ("" for the first one).
func OpenDisplay(busName string, log *zap.SugaredLogger) (*DisplayPresenter, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("display: failed to initialize periph: %w", err)
	}

	bus, err := i2creg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("display: failed to open I2C bus %q: %w", busName, err)
	}

	dev, err := ssd1306.NewI2C(bus, &ssd1306.DefaultOpts)
	if err != nil {
		bus.Close()
		return nil, fmt.Errorf("display: failed to initialize display: %w", err)
	}
	log.Infof("display: initialized on bus %q", busName)

	d := &DisplayPresenter{dev: dev, bus: bus, log: log}
	if err := d.dev.Draw(d.dev.Bounds(), splash(), image.Point{}); err != nil {
		log.Warnf("display: error showing splash: %v", err)
	}
	return d, nil
}

func (d *DisplayPresenter) Present(_ context.Context, f estimator.Frame) error {
	if err := d.dev.Draw(d.dev.Bounds(), render(f), image.Point{}); err != nil {
		return fmt.Errorf("display: draw: %w", err)
	}
	return nil
}

// Close blanks the display and releases the bus.
func (d *DisplayPresenter) Close() error {
	err := d.dev.Halt()
	if d.bus != nil {
		if cerr := d.bus.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func newCanvas() (*image1bit.VerticalLSB, *font.Drawer) {
	img := image1bit.NewVerticalLSB(image.Rect(0, 0, displayWidth, displayHeight))
	drawer := &font.Drawer{
		Dst:  img,
		Src:  &image.Uniform{image1bit.On},
		Face: basicfont.Face7x13,
	}
	return img, drawer
}

func splash() image.Image {
	img, drawer := newCanvas()
	drawer.Dot = fixed.P(30, 26)
	drawer.DrawString("sinefit")
	drawer.Dot = fixed.P(15, 43)
	drawer.DrawString("Waiting...")
	return img
}

// render draws the text block and, when there is a fit, the samples as
// dots with the fitted curve as a line.
func render(f estimator.Frame) *image1bit.VerticalLSB {
	img, drawer := newCanvas()

	if !f.HaveFit {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawString("Fit: waiting")
	} else {
		drawer.Dot = fixed.P(0, 13)
		drawer.DrawString(fmt.Sprintf("A:%.3f O:%.3f", f.Fit.Amplitude, f.Fit.Offset))
		drawer.Dot = fixed.P(0, 26)
		drawer.DrawString(fmt.Sprintf("P:%.3f f:%.1f", f.Fit.Phase, f.Fit.Frequency))
	}

	drawer.Dot = fixed.P(0, 39)
	switch f.Status.Kind {
	case estimator.StatusRunning:
		drawer.DrawString("Running")
	case estimator.StatusStale:
		drawer.DrawString("Stale")
	default:
		drawer.DrawString("Sensor error")
	}

	if f.HaveFit {
		plot(img, f.Snapshot.Values, f.Curve())
	}
	return img
}

func plot(img *image1bit.VerticalLSB, values, curve []float64) {
	n := len(values)
	if n < 2 || len(curve) != n {
		return
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for i := range values {
		lo = math.Min(lo, math.Min(values[i], curve[i]))
		hi = math.Max(hi, math.Max(values[i], curve[i]))
	}
	if hi-lo < 1e-12 {
		hi, lo = hi+1, lo-1
	}

	rows := displayHeight - plotTop - 1
	y := func(v float64) int {
		return plotTop + int(math.Round((hi-v)/(hi-lo)*float64(rows)))
	}
	x := func(i int) int {
		return i * (displayWidth - 1) / (n - 1)
	}

	for i := 0; i < n; i++ {
		img.SetBit(x(i), y(values[i]), image1bit.On)
	}
	for i := 1; i < n; i++ {
		line(img, x(i-1), y(curve[i-1]), x(i), y(curve[i]))
	}
}

// line is a plain Bresenham line.
func line(img *image1bit.VerticalLSB, x0, y0, x1, y1 int) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx + dy
	for {
		img.SetBit(x0, y0, image1bit.On)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
