// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"testing"

	"github.com/OpenPSG/wfdb/edf"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

// writeEDF stores an EDF file holding the given digital samples, indexed by
// data record then signal.
func writeEDF(t *testing.T, fs afero.Fs, name string, hdr edf.Header, records [][][]int16) {
	t.Helper()

	var buf bytes.Buffer
	signalCount := len(hdr.Signals)

	fmt.Fprintf(&buf, "%-8s", hdr.Version)
	fmt.Fprintf(&buf, "%-80s", hdr.PatientID)
	fmt.Fprintf(&buf, "%-80s", hdr.RecordingID)
	fmt.Fprintf(&buf, "%-8s", hdr.StartTime.Format("02.01.06"))
	fmt.Fprintf(&buf, "%-8s", hdr.StartTime.Format("15.04.05"))
	fmt.Fprintf(&buf, "%-8d", 256+signalCount*256)
	fmt.Fprintf(&buf, "%-44s", hdr.Reserved)
	fmt.Fprintf(&buf, "%-8d", hdr.DataRecords)
	fmt.Fprintf(&buf, "%-8d", int(math.Ceil(hdr.DataRecordDuration.Seconds())))
	fmt.Fprintf(&buf, "%-4d", signalCount)

	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-16s", s.Label)
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-80s", s.TransducerType)
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-8s", s.PhysicalDimension)
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-8s", formatPhysicalValue(s.PhysicalMin))
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-8s", formatPhysicalValue(s.PhysicalMax))
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-8d", s.DigitalMin)
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-8d", s.DigitalMax)
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-80s", s.Prefiltering)
	}
	for _, s := range hdr.Signals {
		fmt.Fprintf(&buf, "%-8d", s.SamplesPerRecord)
	}
	for range hdr.Signals {
		fmt.Fprintf(&buf, "%-32s", "")
	}

	for _, record := range records {
		for i, samples := range record {
			require.Len(t, samples, hdr.Signals[i].SamplesPerRecord)
			require.NoError(t, binary.Write(&buf, binary.LittleEndian, samples))
		}
	}

	require.NoError(t, afero.WriteFile(fs, name, buf.Bytes(), 0o644))
}

func formatPhysicalValue(val float64) string {
	// Try with 2 decimal places
	s := fmt.Sprintf("%.2f", val)
	if len(s) > 8 {
		// Fall back to no decimal
		s = fmt.Sprintf("%.0f", val)
	}
	return s
}
