// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package native

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/OpenPSG/wfdb"
)

// DefaultFrequency is the sampling frequency assumed when a header gives none.
const DefaultFrequency = 250

// Header represents a parsed WFDB record header (.hea).
type Header struct {
	Name             string       // Record name
	Frequency        float64      // Frame frequency in Hz
	CounterFrequency float64      // Counter frequency in Hz
	BaseCounter      float64      // Counter value of the first sample
	SampleCount      int64        // Frames per signal, 0 if unknown
	BaseTime         string       // Time of day of the first sample, as written
	BaseDate         int64        // Julian day of the first sample, 0 if unknown
	Signals          []SignalSpec // Details of each signal
	Comments         []string     // Comment lines without the leading '#'
}

// SignalSpec is a header signal line.
type SignalSpec struct {
	wfdb.Signal
	Skew       int   // Skew in frames, parsed but not applied
	ByteOffset int64 // Bytes to skip at the start of the signal file
}

var (
	formatRe = regexp.MustCompile(`^(\d+)(?:x(\d+))?(?::(\d+))?(?:\+(\d+))?$`)
	gainRe   = regexp.MustCompile(`^([-+]?[0-9]*\.?[0-9]+(?:[eE][-+]?[0-9]+)?)(?:\((-?\d+)\))?(?:/(\S+))?$`)
	freqRe   = regexp.MustCompile(`^([0-9]*\.?[0-9]+)(?:/([0-9]*\.?[0-9]+)(?:\((-?[0-9]*\.?[0-9]+)\))?)?$`)
)

// ReadHeader parses a record header.
func ReadHeader(r io.Reader) (*Header, error) {
	var (
		hdr   *Header
		nsig  int
		lines = bufio.NewScanner(r)
	)

	for lines.Scan() {
		line := strings.TrimSpace(lines.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if hdr != nil {
				hdr.Comments = append(hdr.Comments, strings.TrimSpace(line[1:]))
			}
			continue
		}

		if hdr == nil {
			var err error
			if hdr, nsig, err = parseRecordLine(line); err != nil {
				return nil, err
			}
			continue
		}

		if len(hdr.Signals) == nsig {
			return nil, fmt.Errorf("%w: more signal lines than the %d declared", wfdb.ErrDecode, nsig)
		}
		sig, err := parseSignalLine(line)
		if err != nil {
			return nil, fmt.Errorf("error parsing signal %d: %w", len(hdr.Signals), err)
		}
		hdr.Signals = append(hdr.Signals, sig)
	}
	if err := lines.Err(); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	if hdr == nil {
		return nil, fmt.Errorf("%w: header has no record line", wfdb.ErrDecode)
	}
	if len(hdr.Signals) != nsig {
		return nil, fmt.Errorf("%w: %d signals declared but %d described", wfdb.ErrDecode, nsig, len(hdr.Signals))
	}

	group := 0
	for i := range hdr.Signals {
		if i > 0 && hdr.Signals[i].FileName != hdr.Signals[i-1].FileName {
			group++
		}
		hdr.Signals[i].Group = group
		hdr.Signals[i].Frequency = hdr.Frequency * float64(hdr.Signals[i].SamplesPerFrame)
	}

	return hdr, nil
}

// parseRecordLine parses
// name[/segments] nsig [freq[/counterfreq[(base)]] [nsamp [basetime [basedate]]]].
func parseRecordLine(line string) (*Header, int, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return nil, 0, fmt.Errorf("%w: record line %q is too short", wfdb.ErrDecode, line)
	}

	hdr := &Header{Name: fields[0], Frequency: DefaultFrequency}
	if strings.Contains(hdr.Name, "/") {
		return nil, 0, fmt.Errorf("%w: multi-segment record %q is not supported", wfdb.ErrDecode, hdr.Name)
	}

	nsig, err := strconv.Atoi(fields[1])
	if err != nil || nsig < 0 {
		return nil, 0, fmt.Errorf("%w: bad signal count %q", wfdb.ErrDecode, fields[1])
	}

	if len(fields) > 2 {
		m := freqRe.FindStringSubmatch(fields[2])
		if m == nil {
			return nil, 0, fmt.Errorf("%w: bad sampling frequency %q", wfdb.ErrDecode, fields[2])
		}
		hdr.Frequency, _ = strconv.ParseFloat(m[1], 64)
		if hdr.Frequency <= 0 {
			return nil, 0, fmt.Errorf("%w: non-positive sampling frequency %q", wfdb.ErrDecode, fields[2])
		}
		if m[2] != "" {
			hdr.CounterFrequency, _ = strconv.ParseFloat(m[2], 64)
		}
		if m[3] != "" {
			hdr.BaseCounter, _ = strconv.ParseFloat(m[3], 64)
		}
	}
	if hdr.CounterFrequency == 0 {
		hdr.CounterFrequency = hdr.Frequency
	}

	if len(fields) > 3 {
		if hdr.SampleCount, err = strconv.ParseInt(fields[3], 10, 64); err != nil || hdr.SampleCount < 0 {
			return nil, 0, fmt.Errorf("%w: bad sample count %q", wfdb.ErrDecode, fields[3])
		}
	}

	if len(fields) > 4 {
		hdr.BaseTime = fields[4]
	}

	if len(fields) > 5 {
		if hdr.BaseDate, err = parseBaseDate(fields[5]); err != nil {
			return nil, 0, fmt.Errorf("error parsing base date: %w", err)
		}
	}

	return hdr, nsig, nil
}

// parseBaseDate accepts day/month/year with or without zero padding, as
// headers written by other tools often omit it.
func parseBaseDate(s string) (int64, error) {
	var d, m, y int
	if _, err := fmt.Sscanf(s, "%d/%d/%d", &d, &m, &y); err != nil {
		return 0, fmt.Errorf("%w: date %q: %v", wfdb.ErrFormat, s, err)
	}
	return wfdb.StringToDate(fmt.Sprintf("%02d/%02d/%04d", d, m, y))
}

// parseSignalLine parses
// file format[xspf][:skew][+offset] [gain[(baseline)][/units] [adcres [adczero [initval [checksum [blocksize [description]]]]]]].
func parseSignalLine(line string) (SignalSpec, error) {
	fields := strings.Fields(line)
	if len(fields) < 2 {
		return SignalSpec{}, fmt.Errorf("%w: signal line %q is too short", wfdb.ErrDecode, line)
	}

	sig := SignalSpec{Signal: wfdb.Signal{FileName: fields[0], Units: "mV", SamplesPerFrame: 1}}

	m := formatRe.FindStringSubmatch(fields[1])
	if m == nil {
		return SignalSpec{}, fmt.Errorf("%w: bad format %q", wfdb.ErrDecode, fields[1])
	}
	format, _ := strconv.Atoi(m[1])
	sig.Format = wfdb.Format(format)
	if m[2] != "" {
		sig.SamplesPerFrame, _ = strconv.Atoi(m[2])
		if sig.SamplesPerFrame < 1 {
			return SignalSpec{}, fmt.Errorf("%w: bad samples per frame in %q", wfdb.ErrDecode, fields[1])
		}
	}
	if m[3] != "" {
		sig.Skew, _ = strconv.Atoi(m[3])
	}
	if m[4] != "" {
		sig.ByteOffset, _ = strconv.ParseInt(m[4], 10, 64)
	}

	switch sig.Format {
	case wfdb.Format212:
		sig.ADCResolution = 12
	case wfdb.Format8Bit:
		sig.ADCResolution = 8
	default:
		sig.ADCResolution = 16
	}

	hasBaseline := false
	if len(fields) > 2 {
		m := gainRe.FindStringSubmatch(fields[2])
		if m == nil {
			return SignalSpec{}, fmt.Errorf("%w: bad gain %q", wfdb.ErrDecode, fields[2])
		}
		sig.Gain, _ = strconv.ParseFloat(m[1], 64)
		if m[2] != "" {
			sig.Baseline, _ = strconv.Atoi(m[2])
			hasBaseline = true
		}
		if m[3] != "" {
			sig.Units = m[3]
		}
	}
	if sig.Gain == 0 {
		sig.Gain = wfdb.DefaultGain
	}

	ints := []*int{&sig.ADCResolution, &sig.ADCZero, &sig.InitialValue, &sig.Checksum, &sig.BlockSize}
	names := []string{"ADC resolution", "ADC zero", "initial value", "checksum", "block size"}
	hasInitial := false
	for i, dst := range ints {
		if len(fields) <= 3+i {
			break
		}
		v, err := strconv.Atoi(fields[3+i])
		if err != nil {
			return SignalSpec{}, fmt.Errorf("%w: bad %s %q", wfdb.ErrDecode, names[i], fields[3+i])
		}
		*dst = v
		if dst == &sig.InitialValue {
			hasInitial = true
		}
	}

	if !hasBaseline {
		sig.Baseline = sig.ADCZero
	}
	if !hasInitial {
		sig.InitialValue = sig.ADCZero
	}
	if len(fields) > 8 {
		sig.Description = strings.Join(fields[8:], " ")
	}

	return sig, nil
}
