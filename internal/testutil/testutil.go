// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package testutil builds WFDB records for tests.
package testutil

import (
	"encoding/binary"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"
)

// Encode212 packs samples into format 212. An odd trailing sample takes two
// bytes.
func Encode212(samples []int) []byte {
	out := make([]byte, 0, (len(samples)*3+1)/2)
	for i := 0; i < len(samples); i += 2 {
		a := samples[i] & 0xfff
		if i+1 == len(samples) {
			out = append(out, byte(a), byte(a>>8))
			break
		}
		b := samples[i+1] & 0xfff
		out = append(out, byte(a), byte(a>>8)|byte(b>>8)<<4, byte(b))
	}
	return out
}

// Encode16 packs samples as 16-bit integers.
func Encode16(samples []int, order binary.ByteOrder) []byte {
	out := make([]byte, 2*len(samples))
	for i, v := range samples {
		order.PutUint16(out[2*i:], uint16(int16(v)))
	}
	return out
}

// Encode80 packs samples as 8-bit offset binary.
func Encode80(samples []int) []byte {
	out := make([]byte, len(samples))
	for i, v := range samples {
		out[i] = byte(v + 128)
	}
	return out
}

// Frames100s returns n frames of a synthetic two-signal ECG.
func Frames100s(n int) [][]int {
	frames := make([][]int, n)
	for i := range frames {
		frames[i] = []int{
			995 + (i*37)%200 - 100,
			1011 - (i*53)%150 + 75,
		}
	}
	return frames
}

// Write100s stores a two-signal format 212 record named 100s in dir, with
// the samples of Frames100s(n).
func Write100s(fs afero.Fs, dir string, n int) ([][]int, error) {
	frames := Frames100s(n)

	var flat []int
	for _, f := range frames {
		flat = append(flat, f...)
	}

	hea := fmt.Sprintf(`100s 2 360 %d
# synthetic copy of MIT-BIH record 100
100s.dat 212 200 11 1024 995 -22131 0 MLII
100s.dat 212 200 11 1024 1011 20052 0 V5
`, n)

	if err := afero.WriteFile(fs, filepath.Join(dir, "100s.hea"), []byte(hea), 0o644); err != nil {
		return nil, err
	}
	if err := afero.WriteFile(fs, filepath.Join(dir, "100s.dat"), Encode212(flat), 0o644); err != nil {
		return nil, err
	}
	return frames, nil
}
