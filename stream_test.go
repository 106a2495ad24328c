// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package wfdb_test

import (
	"io"
	"math"
	"testing"

	"github.com/OpenPSG/wfdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamModesAgree(t *testing.T) {
	const k = 10

	session, frames := newTestSession(t, 100)

	read := func(next func() (wfdb.Frame, error)) []wfdb.Frame {
		var out []wfdb.Frame
		for i := 0; i < k; i++ {
			f, err := next()
			require.NoError(t, err)
			out = append(out, f)
		}
		return out
	}

	vec, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	byVector := read(vec.Next)
	require.NoError(t, vec.Close())
	require.NoError(t, session.Reset())

	frm, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{ByFrame: true, Standalone: true})
	require.NoError(t, err)
	byFrame := read(frm.Next)
	require.NoError(t, frm.Close())
	require.NoError(t, session.Reset())

	sr, err := wfdb.OpenReader(session, "100s", wfdb.ModeVector)
	require.NoError(t, err)
	byReader := read(sr.Next)
	require.NoError(t, sr.Close())

	for i := 0; i < k; i++ {
		assert.Equal(t, frames[i], byVector[i].Raw)
		assert.Equal(t, byVector[i], byFrame[i])
		assert.Equal(t, byVector[i], byReader[i])
	}
}

func TestStreamPhysicalValues(t *testing.T) {
	session, frames := newTestSession(t, 3)

	st, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	f, err := st.Next()
	require.NoError(t, err)
	assert.InDelta(t, float64(frames[0][0]-1024)/200, f.Values[0], 1e-9)
	assert.InDelta(t, float64(frames[0][1]-1024)/200, f.Signal(1)[0], 1e-9)
	assert.Equal(t, []int{1, 1}, f.Layout)
}

func TestStreamFramesOwnLayout(t *testing.T) {
	session, _ := newTestSession(t, 3)

	st, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	first, err := st.Next()
	require.NoError(t, err)
	first.Layout[0] = 2

	second, err := st.Next()
	require.NoError(t, err)
	assert.Equal(t, []int{1, 1}, second.Layout)
	assert.Len(t, second.Signal(0), 1)
	assert.Panics(t, func() { second.Signal(2) })
}

func TestStreamInvalidSampleIsNaN(t *testing.T) {
	dec := newFakeDecoder(1)
	dec.frames[0][1] = wfdb.InvalidSample

	st, err := wfdb.NewSignalStream(wfdb.NewSession(dec), "fake", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)

	f, err := st.Next()
	require.NoError(t, err)
	assert.False(t, math.IsNaN(f.Values[0]))
	assert.True(t, math.IsNaN(f.Values[1]))
}

func TestStreamExhaustion(t *testing.T) {
	session, _ := newTestSession(t, 4)

	st, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{ByFrame: true, Standalone: true})
	require.NoError(t, err)

	n := 0
	for _, err := range st.Samples() {
		require.NoError(t, err)
		n++
	}
	assert.Equal(t, 4, n)
	assert.Equal(t, int64(4), st.Position())

	for i := 0; i < 3; i++ {
		_, err = st.Next()
		require.Equal(t, io.EOF, err)
	}

	// An exhausted standalone stream holds the record until it is closed.
	name, ok := session.Current()
	require.True(t, ok)
	assert.Equal(t, "100s", name)

	require.NoError(t, st.Close())
	require.NoError(t, st.Close())
	_, ok = session.Current()
	assert.False(t, ok)
}

func TestStreamResetRestartsFromZero(t *testing.T) {
	session, frames := newTestSession(t, 20)

	st, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	for i := 0; i < 7; i++ {
		_, err := st.Next()
		require.NoError(t, err)
	}

	require.NoError(t, session.Reset())

	// The old stream lost its record.
	_, err = st.Next()
	require.ErrorIs(t, err, wfdb.ErrState)
	require.NoError(t, st.Close())

	st, err = wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	f, err := st.Next()
	require.NoError(t, err)
	assert.Equal(t, frames[0], f.Raw)
	assert.Equal(t, int64(1), st.Position())
}

func TestStreamSuperseded(t *testing.T) {
	dec := newFakeDecoder(10)
	session := wfdb.NewSession(dec)

	first, err := wfdb.NewSignalStream(session, "a", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	_, err = first.Next()
	require.NoError(t, err)

	second, err := wfdb.NewSignalStream(session, "b", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)

	assert.Equal(t, 1, dec.opened[0].closed)
	_, err = first.Next()
	require.ErrorIs(t, err, wfdb.ErrState)

	f, err := second.Next()
	require.NoError(t, err)
	assert.Equal(t, dec.frames[0], f.Raw)

	// Closing the superseded stream must not touch the new record.
	require.NoError(t, first.Close())
	assert.Equal(t, 1, dec.opened[0].closed)
	assert.Zero(t, dec.opened[1].closed)
}

func TestStreamAttached(t *testing.T) {
	dec := newFakeDecoder(10)
	session := wfdb.NewSession(dec)

	_, err := wfdb.NewSignalStream(session, "a", wfdb.StreamOptions{})
	require.ErrorIs(t, err, wfdb.ErrState)

	owner, err := wfdb.NewSignalStream(session, "a", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)

	_, err = wfdb.NewSignalStream(session, "b", wfdb.StreamOptions{})
	require.ErrorIs(t, err, wfdb.ErrState)

	attached, err := wfdb.NewSignalStream(session, "a", wfdb.StreamOptions{ByFrame: true})
	require.NoError(t, err)
	assert.Equal(t, wfdb.ModeFrame, attached.Mode())

	// Both streams advance the same record.
	f, err := owner.Next()
	require.NoError(t, err)
	assert.Equal(t, dec.frames[0], f.Raw)
	f, err = attached.Next()
	require.NoError(t, err)
	assert.Equal(t, dec.frames[1], f.Raw)

	// Closing an attached stream leaves the record open.
	require.NoError(t, attached.Close())
	assert.Zero(t, dec.opened[0].closed)
	_, err = attached.Next()
	require.Equal(t, io.EOF, err)

	f, err = owner.Next()
	require.NoError(t, err)
	assert.Equal(t, dec.frames[2], f.Raw)

	require.NoError(t, owner.Close())
	assert.Equal(t, 1, dec.opened[0].closed)
}

func TestStreamDecodeError(t *testing.T) {
	dec := newFakeDecoder(10)
	dec.failAt = 2
	session := wfdb.NewSession(dec)

	st, err := wfdb.NewSignalStream(session, "fake", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		_, err := st.Next()
		require.NoError(t, err)
	}

	_, err = st.Next()
	require.ErrorIs(t, err, wfdb.ErrDecode)
	require.ErrorIs(t, err, errMedia)
	var derr *wfdb.DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "fake", derr.Record)
	assert.Equal(t, "vector", derr.Op)

	// A failed stream is terminal and no longer reads the decoder.
	dec.failAt = -1
	_, err = st.Next()
	require.Equal(t, io.EOF, err)
	assert.Equal(t, 2, dec.opened[0].pos)

	require.NoError(t, st.Close())
	assert.Equal(t, 1, dec.opened[0].closed)
}

func TestStreamOpenFailure(t *testing.T) {
	session := wfdb.NewSession(newFakeDecoder(1))

	_, err := wfdb.NewSignalStream(session, "missing", wfdb.StreamOptions{Standalone: true})
	require.ErrorIs(t, err, wfdb.ErrDecode)
	var derr *wfdb.DecodeError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "open", derr.Op)

	_, ok := session.Current()
	assert.False(t, ok)
}

func TestStreamUnopened(t *testing.T) {
	var st wfdb.SignalStream

	_, err := st.Next()
	require.ErrorIs(t, err, wfdb.ErrState)
	require.NoError(t, st.Close())
}

func TestStreamClock(t *testing.T) {
	session, _ := newTestSession(t, 1000)

	st, err := wfdb.NewSignalStream(session, "100s", wfdb.StreamOptions{Standalone: true})
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, st.Close())
	})

	for i := 0; i < 540; i++ {
		_, err := st.Next()
		require.NoError(t, err)
	}
	assert.Equal(t, "00:01.500", st.Clock().TimeToString(st.Position(), true))
	assert.Equal(t, "100s", st.Record())
}
