// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"math"
	"time"
)

// AnnotationsLabel is the label of the EDF+ annotation channel.
const AnnotationsLabel = "EDF Annotations"

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            string        // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Identification of the patient
	RecordingID        string        // Identification of the recording session
	StartTime          time.Time     // Start date and time of the recording
	HeaderBytes        int           // Number of bytes in the header
	Reserved           string        // "EDF+C" or "EDF+D" for EDF+ files
	DataRecords        int           // Number of data records, -1 if unknown
	DataRecordDuration time.Duration // Duration of a single data record
	Signals            []Signal      // Details of each signal
}

// RecordBytes returns the size in bytes of one data record.
func (h *Header) RecordBytes() int {
	n := 0
	for _, s := range h.Signals {
		n += s.SamplesPerRecord * 2
	}
	return n
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., EEG Fpz-Cz)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// IsAnnotations reports whether the signal carries EDF+ annotations rather
// than samples.
func (s Signal) IsAnnotations() bool {
	return s.Label == AnnotationsLabel
}

// Calibration returns the gain, in digital units per physical unit, and the
// digital value of physical zero. An uncalibrated signal has a zero gain.
//
// Baselines are integers, so the offset is rounded to the nearest digital
// unit. Physical values derived from it may differ from the exact EDF
// conversion by up to half a digital unit (0.5/gain).
func (s Signal) Calibration() (gain float64, baseline int) {
	if s.PhysicalMax == s.PhysicalMin {
		return 0, 0
	}
	gain = float64(s.DigitalMax-s.DigitalMin) / (s.PhysicalMax - s.PhysicalMin)
	return gain, int(math.Round(float64(s.DigitalMax) - gain*s.PhysicalMax))
}
