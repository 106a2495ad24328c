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
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/OpenPSG/wfdb"
	"github.com/OpenPSG/wfdb/internal/testutil"
	"github.com/OpenPSG/wfdb/native"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

var errMedia = errors.New("media error")

// fakeDecoder serves in-memory records of two signals with a gain of 100.
// Reading frame failAt fails, unless failAt is negative.
type fakeDecoder struct {
	frames   [][]int
	failAt   int
	closeErr error
	opened   []*fakeRecord
}

func newFakeDecoder(n int) *fakeDecoder {
	return &fakeDecoder{frames: testutil.Frames100s(n), failAt: -1}
}

func (d *fakeDecoder) OpenRecord(name string) (wfdb.Record, error) {
	if name == "missing" {
		return nil, fs.ErrNotExist
	}
	rec := &fakeRecord{name: name, dec: d}
	d.opened = append(d.opened, rec)
	return rec, nil
}

type fakeRecord struct {
	name   string
	dec    *fakeDecoder
	pos    int
	closed int
}

func (r *fakeRecord) Name() string { return r.name }

func (r *fakeRecord) Frequency() float64 { return 100 }

func (r *fakeRecord) Signals() []wfdb.Signal {
	return []wfdb.Signal{
		{Description: "I", Gain: 100, Baseline: 1000, SamplesPerFrame: 1},
		{Description: "II", Gain: 100, Baseline: 1000, SamplesPerFrame: 1},
	}
}

func (r *fakeRecord) NextVector(dst []int) error {
	if r.pos == r.dec.failAt {
		return errMedia
	}
	if r.pos >= len(r.dec.frames) {
		return io.EOF
	}
	copy(dst, r.dec.frames[r.pos])
	r.pos++
	return nil
}

func (r *fakeRecord) NextFrame(dst []int) error {
	return r.NextVector(dst)
}

func (r *fakeRecord) Close() error {
	r.closed++
	return r.dec.closeErr
}

// newTestSession returns a session over a filesystem holding record 100s
// with n frames.
func newTestSession(t *testing.T, n int, opts ...wfdb.Option) (*wfdb.Session, [][]int) {
	t.Helper()

	afs := afero.NewMemMapFs()
	frames, err := testutil.Write100s(afs, "mitdb", n)
	require.NoError(t, err)

	return wfdb.NewSession(native.New(afs, "mitdb"), opts...), frames
}
