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
	"slices"
)

// Mode selects what a stream returns on each advance.
type Mode int

const (
	// ModeVector returns one sample per signal.
	ModeVector Mode = iota
	// ModeFrame returns every sample of a frame, including the extra samples
	// of oversampled signals.
	ModeFrame
)

func (m Mode) String() string {
	if m == ModeFrame {
		return "frame"
	}
	return "vector"
}

// Frame is the result of one advance of a stream.
type Frame struct {
	Values []float64 // Samples in physical units, NaN for invalid samples
	Raw    []int     // Samples in ADC units
	Layout []int     // Samples contributed by each signal
}

// Signal returns the physical samples of signal i within the frame. It panics
// if i is not a signal index, like any out of range slice access.
func (f Frame) Signal(i int) []float64 {
	off := 0
	for _, n := range f.Layout[:i] {
		off += n
	}
	return f.Values[off : off+f.Layout[i]]
}

// StreamOptions configures a SignalStream.
type StreamOptions struct {
	// ByFrame returns whole frames instead of sample vectors.
	ByFrame bool
	// Standalone makes the stream open the record itself and release it on
	// Close. Otherwise the stream reads the session's current record.
	Standalone bool
	// Mutable allows gain and baseline overrides before the first advance.
	Mutable bool
}

type streamState int

const (
	stateUnopened streamState = iota
	stateOpen
	stateExhausted
	stateClosed
)

// SignalStream reads the samples of a record forward, one vector or frame
// at a time. It is not safe for concurrent use.
type SignalStream struct {
	session  *Session
	h        *recordHandle
	opts     StreamOptions
	info     *SignalInfo
	layout   []int
	state    streamState
	position int64
	released bool
}

// NewSignalStream creates a stream over record.
func NewSignalStream(s *Session, record string, opts StreamOptions) (*SignalStream, error) {
	var (
		h   *recordHandle
		err error
	)
	if opts.Standalone {
		h, err = s.open(record)
	} else {
		h, err = s.attach(record)
	}
	if err != nil {
		return nil, err
	}

	info := newSignalInfo(h, opts.Mutable)

	var layout []int
	if opts.ByFrame {
		layout = FrameLayout(info.signals)
	} else {
		layout = make([]int, info.Len())
		for i := range layout {
			layout[i] = 1
		}
	}

	return &SignalStream{
		session: s,
		h:       h,
		opts:    opts,
		info:    info,
		layout:  layout,
		state:   stateOpen,
	}, nil
}

// Next returns the next vector or frame. It returns io.EOF once the record
// is exhausted or the stream has been closed.
func (st *SignalStream) Next() (Frame, error) {
	switch st.state {
	case stateUnopened:
		return Frame{}, fmt.Errorf("%w: stream is not open", ErrState)
	case stateExhausted, stateClosed:
		return Frame{}, io.EOF
	}

	if !st.session.live(st.h) {
		return Frame{}, fmt.Errorf("%w: record %q was closed by its session", ErrState, st.h.name)
	}

	st.h.advanced.Store(true)

	raw := make([]int, FrameSize(st.layout))
	op := "vector"
	var err error
	if st.opts.ByFrame {
		op = "frame"
		err = st.h.rec.NextFrame(raw)
	} else {
		err = st.h.rec.NextVector(raw)
	}
	if errors.Is(err, io.EOF) {
		st.state = stateExhausted
		return Frame{}, io.EOF
	}
	if err != nil {
		st.state = stateClosed
		return Frame{}, st.session.decodeFailed(st.h, op, err)
	}

	st.position++
	st.session.metrics.frameRead(st.Mode())

	values := make([]float64, len(raw))
	off := 0
	for i, n := range st.layout {
		for j := 0; j < n; j++ {
			values[off] = st.info.physical(i, raw[off])
			off++
		}
	}

	return Frame{Values: values, Raw: raw, Layout: slices.Clone(st.layout)}, nil
}

// Samples returns an iterator over the remaining frames. Iteration stops at
// the end of the record or after the first error.
func (st *SignalStream) Samples() iter.Seq2[Frame, error] {
	return samples(st.Next)
}

// Close stops the stream. A standalone stream also releases its record.
func (st *SignalStream) Close() error {
	if st.state == stateUnopened {
		return nil
	}
	st.state = stateClosed

	if !st.opts.Standalone || st.released {
		return nil
	}
	st.released = true
	return st.session.release(st.h)
}

// Info returns the signal metadata of the record.
func (st *SignalStream) Info() *SignalInfo {
	return st.info
}

// Record returns the name of the record being read.
func (st *SignalStream) Record() string {
	if st.h == nil {
		return ""
	}
	return st.h.name
}

// Position returns the number of vectors or frames returned so far.
func (st *SignalStream) Position() int64 {
	return st.position
}

// Mode reports whether the stream returns vectors or frames.
func (st *SignalStream) Mode() Mode {
	if st.opts.ByFrame {
		return ModeFrame
	}
	return ModeVector
}

// Clock returns a codec counting ticks in frames of this record.
func (st *SignalStream) Clock() TimeCodec {
	return NewTimeCodec(st.info.Frequency())
}

func samples(next func() (Frame, error)) iter.Seq2[Frame, error] {
	return func(yield func(Frame, error) bool) {
		for {
			f, err := next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(f, err) || err != nil {
				return
			}
		}
	}
}
