// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"

	"go.uber.org/zap"

	"github.com/relabs-tech/sinefit/internal/estimator"
)

// WindowDumpPresenter logs the whole window every n fit cycles.
type WindowDumpPresenter struct {
	every uint64
	log   *zap.Logger
}

func NewWindowDumpPresenter(every int, log *zap.Logger) *WindowDumpPresenter {
	return &WindowDumpPresenter{every: uint64(every), log: log}
}

func (d *WindowDumpPresenter) Present(_ context.Context, f estimator.Frame) error {
	if d.every == 0 || f.Cycle%d.every != 0 {
		return nil
	}
	d.log.Info("window dump",
		zap.Uint64("cycle", f.Cycle),
		zap.Uint64("version", f.Snapshot.Version),
		zap.Float64s("times", f.Snapshot.Times),
		zap.Float64s("values", f.Snapshot.Values),
	)
	return nil
}
