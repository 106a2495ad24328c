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
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/OpenPSG/wfdb"
)

// sampleReader yields the samples of one signal file in storage order.
type sampleReader interface {
	next() (int, error)
}

func newSampleReader(format wfdb.Format, r *bufio.Reader) (sampleReader, error) {
	switch format {
	case wfdb.Format16Bit:
		return &reader16{r: r, order: binary.LittleEndian}, nil
	case wfdb.Format16BE:
		return &reader16{r: r, order: binary.BigEndian}, nil
	case wfdb.Format8Bit:
		return &reader80{r: r}, nil
	case wfdb.Format212:
		return &reader212{r: r}, nil
	default:
		return nil, fmt.Errorf("%w: storage format %d is not supported", wfdb.ErrDecode, format)
	}
}

// readFull reads len(b) bytes, reporting a truncated tail as the end of data.
func readFull(r io.Reader, b []byte) error {
	_, err := io.ReadFull(r, b)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return io.EOF
	}
	return err
}

type reader16 struct {
	r     *bufio.Reader
	order binary.ByteOrder
	buf   [2]byte
}

func (sr *reader16) next() (int, error) {
	if err := readFull(sr.r, sr.buf[:]); err != nil {
		return 0, err
	}
	return int(int16(sr.order.Uint16(sr.buf[:]))), nil
}

// reader80 reads 8-bit offset binary samples.
type reader80 struct {
	r *bufio.Reader
}

func (sr *reader80) next() (int, error) {
	b, err := sr.r.ReadByte()
	if err != nil {
		return 0, err
	}
	v := int(b) - 128
	if v == -128 {
		return wfdb.InvalidSample, nil
	}
	return v, nil
}

// reader212 reads pairs of 12-bit samples packed into three bytes. The low
// nibble of the middle byte holds the high bits of the first sample, the high
// nibble those of the second.
type reader212 struct {
	r       *bufio.Reader
	buf     [3]byte
	pending int
	hasNext bool
}

func (sr *reader212) next() (int, error) {
	if sr.hasNext {
		sr.hasNext = false
		return sr.pending, nil
	}

	n, err := io.ReadFull(sr.r, sr.buf[:])
	switch {
	case n == 0 && err != nil:
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return 0, io.EOF
		}
		return 0, err
	case n < 2:
		return 0, io.EOF
	}

	first := sign12(int(sr.buf[0]) | int(sr.buf[1]&0x0f)<<8)
	if n == 3 {
		sr.pending = sign12(int(sr.buf[2]) | int(sr.buf[1]&0xf0)<<4)
		sr.hasNext = true
	}
	return first, nil
}

func sign12(v int) int {
	if v >= 2048 {
		v -= 4096
	}
	if v == -2048 {
		return wfdb.InvalidSample
	}
	return v
}
