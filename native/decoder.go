// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package native decodes records stored in the WFDB format: a text header
// (.hea) plus one or more binary signal files.
package native

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/OpenPSG/wfdb"
	"github.com/spf13/afero"
)

// Decoder opens WFDB records found on a search path.
type Decoder struct {
	fs   afero.Fs
	path []string
}

// New returns a decoder searching the given directories of fsys in order.
// An empty search path means the current directory.
func New(fsys afero.Fs, searchPath ...string) *Decoder {
	if len(searchPath) == 0 {
		searchPath = []string{"."}
	}
	return &Decoder{fs: fsys, path: searchPath}
}

// Header reads the header of the named record without opening its signal
// files.
func (d *Decoder) Header(name string) (*Header, error) {
	hdr, _, err := d.header(name)
	return hdr, err
}

func (d *Decoder) header(name string) (*Header, string, error) {
	f, dir, err := d.find(name + ".hea")
	if err != nil {
		return nil, "", fmt.Errorf("error locating header of record %q: %w", name, err)
	}
	defer f.Close()

	hdr, err := ReadHeader(f)
	if err != nil {
		return nil, "", fmt.Errorf("error reading header of record %q: %w", name, err)
	}
	return hdr, dir, nil
}

// OpenRecord opens the named record.
func (d *Decoder) OpenRecord(name string) (wfdb.Record, error) {
	hdr, dir, err := d.header(name)
	if err != nil {
		return nil, err
	}
	if len(hdr.Signals) == 0 {
		return nil, fmt.Errorf("%w: record %q has no signals", wfdb.ErrDecode, name)
	}

	rec := &record{
		name:    name,
		hdr:     hdr,
		signals: make([]wfdb.Signal, len(hdr.Signals)),
		readers: make([]sampleReader, len(hdr.Signals)),
	}
	for i, s := range hdr.Signals {
		rec.signals[i] = s.Signal
	}
	rec.layout = wfdb.FrameLayout(rec.signals)
	rec.scratch = make([]int, wfdb.FrameSize(rec.layout))

	var sr sampleReader
	for i, s := range hdr.Signals {
		if i == 0 || s.Group != hdr.Signals[i-1].Group {
			if sr, err = d.openSignalFile(rec, dir, s); err != nil {
				_ = rec.Close()
				return nil, err
			}
		} else if s.Format != hdr.Signals[i-1].Format {
			_ = rec.Close()
			return nil, fmt.Errorf("%w: signals %d and %d share %q but not a format", wfdb.ErrDecode, i-1, i, s.FileName)
		}
		rec.readers[i] = sr
	}

	return rec, nil
}

func (d *Decoder) openSignalFile(rec *record, headerDir string, s SignalSpec) (sampleReader, error) {
	f, err := d.fs.Open(filepath.Join(headerDir, s.FileName))
	if errors.Is(err, fs.ErrNotExist) {
		f, _, err = d.find(s.FileName)
	}
	if err != nil {
		return nil, fmt.Errorf("error opening signal file %q: %w", s.FileName, err)
	}
	rec.files = append(rec.files, f)

	if s.ByteOffset > 0 {
		if _, err := f.Seek(s.ByteOffset, io.SeekStart); err != nil {
			return nil, fmt.Errorf("error seeking to position: %w", err)
		}
	}

	return newSampleReader(s.Format, bufio.NewReader(f))
}

// find opens the first file called name on the search path and returns it
// together with the directory it was found in.
func (d *Decoder) find(name string) (afero.File, string, error) {
	for _, dir := range d.path {
		p := filepath.Join(dir, name)
		f, err := d.fs.Open(p)
		if err == nil {
			return f, filepath.Dir(p), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, "", err
		}
	}
	return nil, "", fmt.Errorf("%q not found on %v: %w", name, d.path, fs.ErrNotExist)
}

type record struct {
	name    string
	hdr     *Header
	signals []wfdb.Signal
	layout  []int
	readers []sampleReader // Per signal, shared within a group
	files   []afero.File
	scratch []int
	frames  int64
}

func (r *record) Name() string { return r.name }

func (r *record) Frequency() float64 { return r.hdr.Frequency }

func (r *record) Signals() []wfdb.Signal { return r.signals }

// NextFrame reads the next frame. Signals of a group are interleaved in
// their file, samples of an oversampled signal are consecutive.
func (r *record) NextFrame(dst []int) error {
	if r.hdr.SampleCount > 0 && r.frames >= r.hdr.SampleCount {
		return io.EOF
	}

	off := 0
	for i, spf := range r.layout {
		for j := 0; j < spf; j++ {
			v, err := r.readers[i].next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return io.EOF
				}
				return fmt.Errorf("error reading signal %d: %w", i, err)
			}
			dst[off] = v
			off++
		}
	}

	r.frames++
	return nil
}

// NextVector reads the next frame and averages oversampled signals.
func (r *record) NextVector(dst []int) error {
	if err := r.NextFrame(r.scratch); err != nil {
		return err
	}
	wfdb.DecimateFrame(r.scratch, r.layout, dst)
	return nil
}

func (r *record) Close() error {
	var errs []error
	for _, f := range r.files {
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	r.files = nil
	return errors.Join(errs...)
}
