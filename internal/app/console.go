// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"fmt"
	"io"

	"github.com/relabs-tech/sinefit/internal/estimator"
)

// ConsolePresenter prints one line per frame.
type ConsolePresenter struct {
	out io.Writer
}

func NewConsolePresenter(out io.Writer) *ConsolePresenter {
	return &ConsolePresenter{out: out}
}

func (c *ConsolePresenter) Present(_ context.Context, f estimator.Frame) error {
	_, err := fmt.Fprintln(c.out, formatFrame(f))
	return err
}

func formatFrame(f estimator.Frame) string {
	line := fmt.Sprintf("[%4d] ", f.Cycle)
	if f.HaveFit {
		line += fmt.Sprintf("AMP=%7.4f  PHASE=%6.3f  OFFSET=%7.4f", f.Fit.Amplitude, f.Fit.Phase, f.Fit.Offset)
	} else {
		line += "AMP=    ---  PHASE=   ---  OFFSET=    ---"
	}
	if f.HaveReading {
		line += fmt.Sprintf("  | x=%6.3f y=%6.3f z=%6.3f", f.Reading.X, f.Reading.Y, f.Reading.Z)
	}
	if f.HavePeak {
		line += fmt.Sprintf("  | peak %.1f Hz", f.Peak.Frequency)
	}
	return line + "  | " + f.Status.String()
}
