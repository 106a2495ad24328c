// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package wfdb

import (
	"fmt"
	"math"
	"sync/atomic"
)

// SignalInfo holds the metadata of every signal of an open record. Gain and
// baseline may be overridden when the info is mutable, until any stream
// reading the record has advanced.
type SignalInfo struct {
	freq    float64
	signals []Signal
	mutable bool
	started *atomic.Bool // Set once the record has been advanced
}

func newSignalInfo(h *recordHandle, mutable bool) *SignalInfo {
	rec := h.rec
	freq := rec.Frequency()
	signals := append([]Signal(nil), rec.Signals()...)
	for i := range signals {
		if signals[i].Gain == 0 {
			signals[i].Gain = DefaultGain
		}
		signals[i].SamplesPerFrame = max(signals[i].SamplesPerFrame, 1)
		signals[i].Frequency = freq * float64(signals[i].SamplesPerFrame)
	}

	return &SignalInfo{freq: freq, signals: signals, mutable: mutable, started: &h.advanced}
}

// Len returns the number of signals.
func (si *SignalInfo) Len() int {
	return len(si.signals)
}

// Frequency returns the frame frequency of the record in Hz.
func (si *SignalInfo) Frequency() float64 {
	return si.freq
}

// At returns the metadata of signal i.
func (si *SignalInfo) At(i int) (Signal, error) {
	if i < 0 || i >= len(si.signals) {
		return Signal{}, fmt.Errorf("%w: signal %d of %d", ErrIndex, i, len(si.signals))
	}
	return si.signals[i], nil
}

// All returns a copy of the metadata of every signal.
func (si *SignalInfo) All() []Signal {
	return append([]Signal(nil), si.signals...)
}

// Mutable reports whether calibration overrides are still accepted.
func (si *SignalInfo) Mutable() bool {
	return si.mutable && !si.sealed()
}

// SetGain overrides the gain of signal i.
func (si *SignalInfo) SetGain(i int, gain float64) error {
	if err := si.checkWritable(i); err != nil {
		return err
	}
	if gain <= 0 || math.IsNaN(gain) || math.IsInf(gain, 0) {
		return fmt.Errorf("%w: gain %v", ErrInvalidArgument, gain)
	}

	si.signals[i].Gain = gain
	return nil
}

// SetBaseline overrides the baseline of signal i.
func (si *SignalInfo) SetBaseline(i, baseline int) error {
	if err := si.checkWritable(i); err != nil {
		return err
	}

	si.signals[i].Baseline = baseline
	return nil
}

func (si *SignalInfo) checkWritable(i int) error {
	if !si.mutable {
		return fmt.Errorf("%w: signal info is read-only", ErrState)
	}
	if si.sealed() {
		return fmt.Errorf("%w: streaming has started", ErrState)
	}
	if i < 0 || i >= len(si.signals) {
		return fmt.Errorf("%w: signal %d of %d", ErrIndex, i, len(si.signals))
	}
	return nil
}

// sealed reports whether the record has been advanced, which freezes the
// calibration.
func (si *SignalInfo) sealed() bool {
	return si.started != nil && si.started.Load()
}

// physical converts a raw sample of signal i to physical units.
func (si *SignalInfo) physical(i, raw int) float64 {
	if raw == InvalidSample {
		return math.NaN()
	}
	s := &si.signals[i]
	return float64(raw-s.Baseline) / s.Gain
}
