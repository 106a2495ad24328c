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
	"strconv"
	"strings"
)

// TimeCodec converts tick counts to and from clock-time strings. A tick is
// one sample interval at the codec frequency.
type TimeCodec struct {
	freq float64
}

// DefaultTimeCodec counts ticks in seconds, which is what the decoder does
// when no record is attached.
var DefaultTimeCodec = NewTimeCodec(1)

// NewTimeCodec returns a codec for ticks at frequency Hz. Non-positive
// frequencies fall back to 1 Hz.
func NewTimeCodec(frequency float64) TimeCodec {
	if frequency <= 0 || math.IsNaN(frequency) || math.IsInf(frequency, 0) {
		frequency = 1
	}
	return TimeCodec{freq: frequency}
}

// Frequency returns the number of ticks per second.
func (c TimeCodec) Frequency() float64 {
	return c.freq
}

// TimeToString renders ticks as MM:SS, or H:MM:SS once an hour has elapsed,
// followed by .mmm when withMilliseconds is set.
func (c TimeCodec) TimeToString(ticks int64, withMilliseconds bool) string {
	sign := ""
	if ticks < 0 {
		sign = "-"
		ticks = -ticks
	}

	ms := int64(math.Round(float64(ticks) * 1000 / c.Frequency()))
	hours := ms / 3600000
	minutes := (ms / 60000) % 60
	seconds := (ms / 1000) % 60

	var sb strings.Builder
	sb.WriteString(sign)
	if hours > 0 {
		fmt.Fprintf(&sb, "%d:%02d:%02d", hours, minutes, seconds)
	} else {
		fmt.Fprintf(&sb, "%02d:%02d", minutes, seconds)
	}
	if withMilliseconds {
		fmt.Fprintf(&sb, ".%03d", ms%1000)
	}
	return sb.String()
}

// StringToTime parses [[H:]M:]S[.fff] and returns the tick count.
func (c TimeCodec) StringToTime(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty time", ErrFormat)
	}

	fields := strings.Split(s, ":")
	if len(fields) > 3 {
		return 0, fmt.Errorf("%w: too many fields in time %q", ErrFormat, s)
	}

	last := fields[len(fields)-1]
	var frac float64
	if i := strings.IndexByte(last, '.'); i >= 0 {
		digits := last[i+1:]
		if digits == "" || !isDigits(digits) {
			return 0, fmt.Errorf("%w: bad fraction in time %q", ErrFormat, s)
		}
		f, err := strconv.ParseFloat("0."+digits, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: bad fraction in time %q", ErrFormat, s)
		}
		frac = f
		fields[len(fields)-1] = last[:i]
	}

	var seconds float64
	for i, field := range fields {
		if field == "" || !isDigits(field) {
			return 0, fmt.Errorf("%w: non-numeric field %q in time %q", ErrFormat, field, s)
		}
		v, err := strconv.ParseUint(field, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q in time %q", ErrFormat, field, s)
		}
		// Every field after the leading one is sexagesimal.
		if i > 0 && v >= 60 {
			return 0, fmt.Errorf("%w: field %q out of range in time %q", ErrFormat, field, s)
		}
		seconds = seconds*60 + float64(v)
	}

	return int64(math.Round((seconds + frac) * c.Frequency())), nil
}

// TimeToString renders ticks with the default 1 Hz codec.
func TimeToString(ticks int64, withMilliseconds bool) string {
	return DefaultTimeCodec.TimeToString(ticks, withMilliseconds)
}

// StringToTime parses a clock time with the default 1 Hz codec.
func StringToTime(s string) (int64, error) {
	return DefaultTimeCodec.StringToTime(s)
}

// First Julian day of the Gregorian calendar (15 October 1582).
const gregorianJulianDay = 2299161

// FirstJulianDay is the Julian day number of 01/01/0001, the earliest date
// that converts in both directions.
const FirstJulianDay = 1721424

// DateToString renders a Julian day number as DD/MM/YYYY. Days before
// FirstJulianDay fall in years before AD 1 and are rendered with a negative
// year, which StringToDate rejects.
func DateToString(julianDay int64) string {
	d, m, y := calendarDate(julianDay)
	return fmt.Sprintf("%02d/%02d/%04d", d, m, y)
}

// StringToDate parses a DD/MM/YYYY date and returns its Julian day number.
func StringToDate(s string) (int64, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 || len(parts[0]) != 2 || len(parts[1]) != 2 || len(parts[2]) != 4 {
		return 0, fmt.Errorf("%w: date %q is not DD/MM/YYYY", ErrFormat, s)
	}

	var fields [3]int
	for i, p := range parts {
		if !isDigits(p) {
			return 0, fmt.Errorf("%w: non-numeric field %q in date %q", ErrFormat, p, s)
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return 0, fmt.Errorf("%w: field %q in date %q", ErrFormat, p, s)
		}
		fields[i] = v
	}

	d, m, y := fields[0], fields[1], fields[2]
	if d < 1 || m < 1 || m > 12 || y < 1 {
		return 0, fmt.Errorf("%w: date %q out of range", ErrFormat, s)
	}

	jd := julianDay(d, m, y)
	// Impossible days (31/02, or the days dropped in October 1582) do not
	// survive the conversion back.
	if cd, cm, cy := calendarDate(jd); cd != d || cm != m || cy != y {
		return 0, fmt.Errorf("%w: date %q does not exist", ErrFormat, s)
	}
	return jd, nil
}

// julianDay is the julday routine from Numerical Recipes, for positive years.
func julianDay(d, m, y int) int64 {
	jy, jm := y, m+1
	if m <= 2 {
		jy--
		jm = m + 13
	}

	jul := int64(math.Floor(365.25*float64(jy))) + int64(math.Floor(30.6001*float64(jm))) + int64(d) + 1720995
	if d+31*(m+12*y) >= 15+31*(10+12*1582) {
		ja := int64(0.01 * float64(jy))
		jul += 2 - ja + int64(0.25*float64(ja))
	}
	return jul
}

// calendarDate is the caldat routine from Numerical Recipes.
func calendarDate(jd int64) (d, m, y int) {
	ja := jd
	if jd >= gregorianJulianDay {
		alpha := int64((float64(jd-1867216) - 0.25) / 36524.25)
		ja = jd + 1 + alpha - int64(0.25*float64(alpha))
	}

	jb := ja + 1524
	jc := int64(6680.0 + (float64(jb-2439870)-122.1)/365.25)
	jdd := 365*jc + int64(0.25*float64(jc))
	je := int64(float64(jb-jdd) / 30.6001)

	d = int(jb - jdd - int64(30.6001*float64(je)))
	m = int(je - 1)
	if m > 12 {
		m -= 12
	}
	y = int(jc - 4715)
	if m > 2 {
		y--
	}
	if y <= 0 {
		y--
	}
	return d, m, y
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
