// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package wfdb

import "math"

// Format is the storage format code of a signal.
type Format int

// Storage formats understood by the bundled decoders.
const (
	Format8Bit  Format = 80  // 8-bit offset binary
	Format16Bit Format = 16  // 16-bit two's complement, little-endian
	Format16BE  Format = 61  // 16-bit two's complement, big-endian
	Format212   Format = 212 // 12-bit two's complement, two samples per three bytes
)

const (
	// DefaultGain is the gain, in ADC units per physical unit, assumed when a
	// header gives none.
	DefaultGain = 200
	// InvalidSample marks a missing sample.
	InvalidSample = -32768
)

// Signal describes the static characteristics of one signal of a record.
type Signal struct {
	FileName        string  // Name of the file holding the samples
	Description     string  // Signal description (e.g., MLII)
	Units           string  // Physical units (e.g., mV)
	Gain            float64 // ADC units per physical unit
	Baseline        int     // ADC value corresponding to 0 physical units
	ADCResolution   int     // ADC resolution in bits
	ADCZero         int     // ADC value at the middle of the input range
	InitialValue    int     // Value of the first sample
	Checksum        int     // 16-bit checksum of all samples
	BlockSize       int     // Block size, 0 for ordinary files
	Format          Format  // Storage format
	SamplesPerFrame int     // Number of samples per frame
	Group           int     // Index of the signal file group
	Frequency       float64 // Sampling frequency in Hz
}

// Decoder opens records by name.
type Decoder interface {
	OpenRecord(name string) (Record, error)
}

// Record is an open record as seen by a Decoder. NextVector and NextFrame
// return io.EOF once the samples are exhausted.
type Record interface {
	// Name returns the record name.
	Name() string
	// Frequency returns the frame frequency in Hz.
	Frequency() float64
	// Signals returns the per-signal metadata in frame order.
	Signals() []Signal
	// NextVector reads one sample per signal into dst.
	NextVector(dst []int) error
	// NextFrame reads a whole frame into dst, laid out per FrameLayout.
	NextFrame(dst []int) error
	// Close releases the record.
	Close() error
}

// FrameLayout returns the number of samples each signal contributes to a
// frame.
func FrameLayout(signals []Signal) []int {
	layout := make([]int, len(signals))
	for i, s := range signals {
		layout[i] = max(s.SamplesPerFrame, 1)
	}
	return layout
}

// FrameSize returns the total number of samples in a frame.
func FrameSize(layout []int) int {
	n := 0
	for _, spf := range layout {
		n += spf
	}
	return n
}

// DecimateFrame reduces a frame to one sample per signal by averaging the
// samples of oversampled signals. Invalid samples are left out of the
// average.
func DecimateFrame(frame, layout, dst []int) {
	off := 0
	for i, spf := range layout {
		if spf == 1 {
			dst[i] = frame[off]
			off++
			continue
		}

		var sum, n int
		for _, v := range frame[off : off+spf] {
			if v != InvalidSample {
				sum += v
				n++
			}
		}
		if n == 0 {
			dst[i] = InvalidSample
		} else {
			dst[i] = int(math.Round(float64(sum) / float64(n)))
		}
		off += spf
	}
}
