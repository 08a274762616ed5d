// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package estimator

// StatusKind is the coarse state shown next to the fit.
type StatusKind string

const (
	// StatusRunning: sampling works and the last fit cycle produced a new fit.
	StatusRunning StatusKind = "running"
	// StatusStale: sampling works but the displayed fit did not change in
	// the last fit cycle.
	StatusStale StatusKind = "stale"
	// StatusError: the most recent sample tick failed.
	StatusError StatusKind = "error"
)

// Status is what a display shows as its status line.
type Status struct {
	Kind    StatusKind `json:"kind"`
	Message string     `json:"message,omitempty"`
}

func (s Status) String() string {
	switch s.Kind {
	case StatusRunning:
		return "Status: Running"
	case StatusStale:
		return "Status: Stale (" + s.Message + ")"
	default:
		return "Status: Error: " + s.Message
	}
}
