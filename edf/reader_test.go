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
	"io"
	"testing"
	"time"

	"github.com/OpenPSG/wfdb"
	"github.com/OpenPSG/wfdb/edf"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testHeader(dataRecords int) edf.Header {
	return edf.Header{
		Version:            "0",
		PatientID:          "Patient X",
		RecordingID:        "Recording 1",
		StartTime:          time.Date(2024, 3, 1, 22, 15, 0, 0, time.UTC),
		Reserved:           "EDF+C",
		DataRecords:        dataRecords,
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{
				Label:             "ECG",
				TransducerType:    "AgAgCl electrode",
				PhysicalDimension: "mV",
				PhysicalMin:       -1,
				PhysicalMax:       1,
				DigitalMin:        -1000,
				DigitalMax:        1000,
				SamplesPerRecord:  4,
			},
			{
				Label:             "Resp",
				PhysicalDimension: "L/s",
				PhysicalMin:       0,
				PhysicalMax:       10,
				DigitalMin:        0,
				DigitalMax:        1000,
				SamplesPerRecord:  2,
			},
			{
				Label:            edf.AnnotationsLabel,
				PhysicalMin:      -1,
				PhysicalMax:      1,
				DigitalMin:       -32768,
				DigitalMax:       32767,
				SamplesPerRecord: 3,
			},
		},
	}
}

var testRecords = [][][]int16{
	{{100, 200, 300, 400}, {10, 20}, {0x2b2b, 0x1430, 0}},
	{{-100, -200, -300, -400}, {30, 40}, {0x2b2b, 0x1431, 0}},
}

func TestReadHeader(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeEDF(t, fs, "sleep.edf", testHeader(2), testRecords)

	b, err := afero.ReadFile(fs, "sleep.edf")
	require.NoError(t, err)

	hdr, err := edf.ReadHeader(bytes.NewReader(b))
	require.NoError(t, err)

	assert.Equal(t, "Patient X", hdr.PatientID)
	assert.Equal(t, "EDF+C", hdr.Reserved)
	assert.Equal(t, 4*256, hdr.HeaderBytes)
	assert.Equal(t, 2, hdr.DataRecords)
	assert.Equal(t, time.Second, hdr.DataRecordDuration)
	assert.Equal(t, time.Date(2024, 3, 1, 22, 15, 0, 0, time.UTC), hdr.StartTime)
	require.Len(t, hdr.Signals, 3)
	assert.Equal(t, "L/s", hdr.Signals[1].PhysicalDimension)
	assert.InDelta(t, 10.0, hdr.Signals[1].PhysicalMax, 1e-9)
	assert.True(t, hdr.Signals[2].IsAnnotations())
	assert.Equal(t, (4+2+3)*2, hdr.RecordBytes())
}

func TestReadHeaderTruncated(t *testing.T) {
	_, err := edf.ReadHeader(bytes.NewReader(make([]byte, 100)))
	require.Error(t, err)
}

func TestCalibration(t *testing.T) {
	gain, baseline := edf.Signal{PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -1000, DigitalMax: 1000}.Calibration()
	assert.InDelta(t, 1000.0, gain, 1e-9)
	assert.Equal(t, 0, baseline)

	gain, baseline = edf.Signal{PhysicalMin: 0, PhysicalMax: 100, DigitalMin: 0, DigitalMax: 4095}.Calibration()
	assert.InDelta(t, 40.95, gain, 1e-9)
	assert.Equal(t, 0, baseline)

	// A physical zero halfway between two digital values rounds away from zero.
	sig := edf.Signal{PhysicalMin: -100, PhysicalMax: 100, DigitalMin: -32768, DigitalMax: 32767}
	gain, baseline = sig.Calibration()
	assert.InDelta(t, 327.675, gain, 1e-9)
	assert.Equal(t, -1, baseline)
	for _, digital := range []int{-32768, 0, 32767} {
		exact := sig.PhysicalMin + float64(digital-sig.DigitalMin)*(sig.PhysicalMax-sig.PhysicalMin)/float64(sig.DigitalMax-sig.DigitalMin)
		assert.InDelta(t, exact, float64(digital-baseline)/gain, 0.5/gain+1e-9, "digital %d", digital)
	}

	gain, _ = edf.Signal{PhysicalMin: 5, PhysicalMax: 5}.Calibration()
	assert.Zero(t, gain)
}

func TestDecoderFrames(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeEDF(t, fs, "data/sleep.edf", testHeader(2), testRecords)

	session := wfdb.NewSession(edf.New(fs, "data"))
	sr, err := wfdb.OpenReader(session, "sleep", wfdb.ModeFrame)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, sr.Close())
	})

	info := sr.Info()
	require.Equal(t, 2, info.Len())
	assert.InDelta(t, 2.0, info.Frequency(), 1e-9)

	ecg, err := info.At(0)
	require.NoError(t, err)
	assert.Equal(t, "ECG", ecg.Description)
	assert.Equal(t, 2, ecg.SamplesPerFrame)
	assert.InDelta(t, 4.0, ecg.Frequency, 1e-9)

	resp, err := info.At(1)
	require.NoError(t, err)
	assert.Equal(t, "L/s", resp.Units)
	assert.InDelta(t, 100.0, resp.Gain, 1e-9)

	expected := [][]int{
		{100, 200, 10},
		{300, 400, 20},
		{-100, -200, 30},
		{-300, -400, 40},
	}
	for _, want := range expected {
		f, err := sr.Next()
		require.NoError(t, err)
		assert.Equal(t, want, f.Raw)
		assert.Equal(t, []int{2, 1}, f.Layout)
		assert.InDelta(t, float64(want[0])/1000, f.Signal(0)[0], 1e-9)
		assert.InDelta(t, float64(want[2])/100, f.Signal(1)[0], 1e-9)
	}

	_, err = sr.Next()
	require.Equal(t, io.EOF, err)
}

func TestDecoderVectors(t *testing.T) {
	fs := afero.NewMemMapFs()
	// An unknown number of data records is read until the end of the file.
	writeEDF(t, fs, "sleep.edf", testHeader(-1), testRecords)

	session := wfdb.NewSession(edf.New(fs))
	sr, err := wfdb.OpenReader(session, "sleep.edf", wfdb.ModeVector)
	require.NoError(t, err)

	var got [][]int
	for f, err := range sr.Samples() {
		require.NoError(t, err)
		got = append(got, f.Raw)
	}

	assert.Equal(t, [][]int{{150, 10}, {350, 20}, {-150, 30}, {-350, 40}}, got)
}

func TestDecoderMissingFile(t *testing.T) {
	session := wfdb.NewSession(edf.New(afero.NewMemMapFs()))
	_, err := wfdb.OpenReader(session, "absent", wfdb.ModeFrame)
	require.ErrorIs(t, err, wfdb.ErrDecode)
}
