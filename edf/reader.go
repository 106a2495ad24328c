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
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/wfdb"
)

// ReadHeader reads an EDF/EDF+ header, leaving r positioned at the first
// data record.
func ReadHeader(r io.Reader) (*Header, error) {
	b := make([]byte, 256)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	// Fixed width fields of the main header
	hdr := &Header{}
	hdr.Version = strings.TrimSpace(string(b[0:8]))
	hdr.PatientID = strings.TrimSpace(string(b[8:88]))
	hdr.RecordingID = strings.TrimSpace(string(b[88:168]))
	dateStr := strings.TrimSpace(string(b[168:176]))
	timeStr := strings.TrimSpace(string(b[176:184]))

	// Parse start date and time
	startDate, err := time.Parse("02.01.06", dateStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start date: %w", err)
	}
	startTime, err := time.Parse("15.04.05", timeStr)
	if err != nil {
		return nil, fmt.Errorf("error parsing start time: %w", err)
	}
	hdr.StartTime = time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		startTime.Hour(), startTime.Minute(), startTime.Second(), 0, time.UTC)

	if hdr.HeaderBytes, err = strconv.Atoi(strings.TrimSpace(string(b[184:192]))); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}
	hdr.Reserved = strings.TrimSpace(string(b[192:236]))

	if hdr.DataRecords, err = strconv.Atoi(strings.TrimSpace(string(b[236:244]))); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}

	hdr.DataRecordDuration, err = time.ParseDuration(fmt.Sprintf("%ss", strings.TrimSpace(string(b[244:252]))))
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}

	signalCount, err := strconv.Atoi(strings.TrimSpace(string(b[252:256])))
	if err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if signalCount < 0 || hdr.HeaderBytes != 256*(signalCount+1) {
		return nil, fmt.Errorf("header bytes %d do not match %d signals", hdr.HeaderBytes, signalCount)
	}

	// Signal headers are stored field by field, each field repeated for every
	// signal.
	hdr.Signals = make([]Signal, signalCount)
	fields := []struct {
		width int
		set   func(s *Signal, v string) error
	}{
		{16, func(s *Signal, v string) error { s.Label = v; return nil }},
		{80, func(s *Signal, v string) error { s.TransducerType = v; return nil }},
		{8, func(s *Signal, v string) error { s.PhysicalDimension = v; return nil }},
		{8, func(s *Signal, v string) error { return parseFloat(v, &s.PhysicalMin) }},
		{8, func(s *Signal, v string) error { return parseFloat(v, &s.PhysicalMax) }},
		{8, func(s *Signal, v string) error { return parseInt(v, &s.DigitalMin) }},
		{8, func(s *Signal, v string) error { return parseInt(v, &s.DigitalMax) }},
		{80, func(s *Signal, v string) error { s.Prefiltering = v; return nil }},
		{8, func(s *Signal, v string) error { return parseInt(v, &s.SamplesPerRecord) }},
		{32, func(s *Signal, v string) error { s.Reserved = v; return nil }},
	}

	for _, field := range fields {
		b := make([]byte, field.width*signalCount)
		if _, err := io.ReadFull(r, b); err != nil {
			return nil, fmt.Errorf("error reading signal headers: %w", err)
		}
		for i := range hdr.Signals {
			v := strings.TrimSpace(string(b[i*field.width : (i+1)*field.width]))
			if err := field.set(&hdr.Signals[i], v); err != nil {
				return nil, fmt.Errorf("error parsing header of signal %d: %w", i, err)
			}
		}
	}

	return hdr, nil
}

// record presents an EDF file as a WFDB record. Frames are the largest time
// step that divides every signal's samples per data record evenly.
type record struct {
	name            string
	hdr             *Header
	f               io.Closer
	r               *bufio.Reader
	signals         []wfdb.Signal
	sources         []int // EDF signal index of each WFDB signal
	layout          []int
	freq            float64
	framesPerRecord int
	buf             []byte
	samples         [][]int // Samples of the current data record per EDF signal
	frame           int     // Next frame within the current data record
	records         int     // Data records read so far
	scratch         []int
}

func newRecord(name string, f io.ReadCloser, hdr *Header) (*record, error) {
	rec := &record{name: name, hdr: hdr, f: f, r: bufio.NewReader(f)}

	g := 0
	for i, s := range hdr.Signals {
		if s.SamplesPerRecord < 1 {
			return nil, fmt.Errorf("%w: signal %d has no samples", wfdb.ErrDecode, i)
		}
		if s.IsAnnotations() {
			continue
		}
		rec.sources = append(rec.sources, i)
		g = gcd(g, s.SamplesPerRecord)
	}
	if len(rec.sources) == 0 {
		return nil, fmt.Errorf("%w: record %q has no signals", wfdb.ErrDecode, name)
	}
	if hdr.DataRecordDuration <= 0 {
		return nil, fmt.Errorf("%w: data record duration %v", wfdb.ErrDecode, hdr.DataRecordDuration)
	}

	rec.framesPerRecord = g
	rec.freq = float64(g) / hdr.DataRecordDuration.Seconds()

	for _, src := range rec.sources {
		s := hdr.Signals[src]
		gain, baseline := s.Calibration()
		spf := s.SamplesPerRecord / g
		rec.signals = append(rec.signals, wfdb.Signal{
			FileName:        name,
			Description:     s.Label,
			Units:           s.PhysicalDimension,
			Gain:            gain,
			Baseline:        baseline,
			ADCResolution:   16,
			ADCZero:         (s.DigitalMax + s.DigitalMin + 1) / 2,
			Format:          wfdb.Format16Bit,
			SamplesPerFrame: spf,
			Frequency:       rec.freq * float64(spf),
		})
	}
	rec.layout = wfdb.FrameLayout(rec.signals)
	rec.scratch = make([]int, wfdb.FrameSize(rec.layout))

	rec.buf = make([]byte, hdr.RecordBytes())
	rec.samples = make([][]int, len(hdr.Signals))
	for i, s := range hdr.Signals {
		rec.samples[i] = make([]int, s.SamplesPerRecord)
	}
	rec.frame = rec.framesPerRecord

	return rec, nil
}

func (r *record) Name() string { return r.name }

func (r *record) Frequency() float64 { return r.freq }

func (r *record) Signals() []wfdb.Signal { return r.signals }

func (r *record) NextFrame(dst []int) error {
	if r.frame >= r.framesPerRecord {
		if err := r.readDataRecord(); err != nil {
			return err
		}
	}

	off := 0
	for i, src := range r.sources {
		spf := r.layout[i]
		off += copy(dst[off:off+spf], r.samples[src][r.frame*spf:(r.frame+1)*spf])
	}
	r.frame++
	return nil
}

func (r *record) NextVector(dst []int) error {
	if err := r.NextFrame(r.scratch); err != nil {
		return err
	}
	wfdb.DecimateFrame(r.scratch, r.layout, dst)
	return nil
}

func (r *record) Close() error {
	return r.f.Close()
}

// readDataRecord reads and unpacks the next data record.
func (r *record) readDataRecord() error {
	if r.hdr.DataRecords >= 0 && r.records >= r.hdr.DataRecords {
		return io.EOF
	}

	if _, err := io.ReadFull(r.r, r.buf); err != nil {
		// A truncated final data record ends the recording.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return io.EOF
		}
		return fmt.Errorf("error reading data record %d: %w", r.records, err)
	}

	off := 0
	for i := range r.hdr.Signals {
		for j := range r.samples[i] {
			r.samples[i][j] = int(int16(binary.LittleEndian.Uint16(r.buf[off:])))
			off += 2
		}
	}

	r.records++
	r.frame = 0
	return nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func parseInt(v string, dst *int) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = i
	return nil
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
