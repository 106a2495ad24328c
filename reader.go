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
	"errors"
	"fmt"
	"io"
	"iter"
)

// SignalReader reads a record through a standalone SignalStream and releases
// the record as soon as reading ends, whether by exhaustion, error or Close.
type SignalReader struct {
	stream *SignalStream
	closed bool
}

// OpenReader opens record for reading in the given mode.
func OpenReader(s *Session, record string, mode Mode) (*SignalReader, error) {
	st, err := NewSignalStream(s, record, StreamOptions{
		ByFrame:    mode == ModeFrame,
		Standalone: true,
	})
	if err != nil {
		return nil, err
	}

	return &SignalReader{stream: st}, nil
}

// WithReader opens record, passes the reader to fn and releases the record
// when fn returns or panics.
func WithReader(s *Session, record string, mode Mode, fn func(*SignalReader) error) (err error) {
	r, err := OpenReader(s, record, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := r.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	return fn(r)
}

// Next returns the next vector or frame. Once it has returned an error,
// including io.EOF, the record is released and every later call returns
// io.EOF.
func (r *SignalReader) Next() (Frame, error) {
	if r.closed {
		return Frame{}, io.EOF
	}

	f, err := r.stream.Next()
	if err == nil {
		return f, nil
	}

	if cerr := r.Close(); cerr != nil {
		if errors.Is(err, io.EOF) {
			return Frame{}, fmt.Errorf("error releasing exhausted record: %w", cerr)
		}
		err = errors.Join(err, cerr)
	}
	return Frame{}, err
}

// Samples returns an iterator over the remaining frames.
func (r *SignalReader) Samples() iter.Seq2[Frame, error] {
	return samples(r.Next)
}

// Close releases the record. It is safe to call more than once.
func (r *SignalReader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return r.stream.Close()
}

// Mode reports whether the reader returns vectors or frames.
func (r *SignalReader) Mode() Mode {
	return r.stream.Mode()
}

// Info returns the signal metadata of the record.
func (r *SignalReader) Info() *SignalInfo {
	return r.stream.Info()
}

// Position returns the number of vectors or frames returned so far.
func (r *SignalReader) Position() int64 {
	return r.stream.Position()
}
