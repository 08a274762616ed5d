// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package window holds the fixed-capacity sample history shared between
// the sampler and the fitter.
package window

import "sync"

// Sample is one point of the history. Time is seconds since the first
// sample of the window's lifetime.
type Sample struct {
	Time  float64 `json:"t"`
	Value float64 `json:"v"`
}

// Snapshot is an independent copy of the window contents, oldest first.
// Times and Values are index-aligned and always have the same length.
type Snapshot struct {
	Times   []float64 `json:"times"`
	Values  []float64 `json:"values"`
	Version uint64    `json:"version"` // total pushes when the copy was taken
}

// Len returns the number of samples in the snapshot.
func (s Snapshot) Len() int { return len(s.Times) }

// Window is a ring buffer of samples. Once full it stays full, dropping
// the oldest sample on every push.
type Window struct {
	mu       sync.RWMutex
	data     []Sample
	head     int // next write position
	size     int
	capacity int
	version  uint64
}

// New returns an empty window. capacity must be positive.
func New(capacity int) *Window {
	if capacity <= 0 {
		panic("window: capacity must be positive")
	}
	return &Window{
		data:     make([]Sample, capacity),
		capacity: capacity,
	}
}

// Push appends s, evicting the oldest sample when the window is full.
func (w *Window) Push(s Sample) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.data[w.head] = s
	w.head = (w.head + 1) % w.capacity
	if w.size < w.capacity {
		w.size++
	}
	w.version++
}

// Snapshot copies the current contents under the read lock.
func (w *Window) Snapshot() Snapshot {
	w.mu.RLock()
	defer w.mu.RUnlock()

	snap := Snapshot{
		Times:   make([]float64, w.size),
		Values:  make([]float64, w.size),
		Version: w.version,
	}
	oldest := (w.head - w.size + w.capacity) % w.capacity
	for i := 0; i < w.size; i++ {
		s := w.data[(oldest+i)%w.capacity]
		snap.Times[i] = s.Time
		snap.Values[i] = s.Value
	}
	return snap
}

// Len returns the number of samples currently held.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.size
}

// Cap returns the fixed capacity.
func (w *Window) Cap() int {
	return w.capacity
}

// Version returns the total number of pushes so far.
func (w *Window) Version() uint64 {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.version
}
