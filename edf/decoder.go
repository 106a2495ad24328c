// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package edf reads EDF/EDF+ files as WFDB records.
package edf

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/OpenPSG/wfdb"
	"github.com/spf13/afero"
)

// Decoder opens EDF files found on a search path. A record is named after
// its file, with or without the .edf extension.
type Decoder struct {
	fs   afero.Fs
	path []string
}

// New returns a decoder searching the given directories of fsys in order.
func New(fsys afero.Fs, searchPath ...string) *Decoder {
	if len(searchPath) == 0 {
		searchPath = []string{"."}
	}
	return &Decoder{fs: fsys, path: searchPath}
}

// OpenRecord opens the named EDF file.
func (d *Decoder) OpenRecord(name string) (wfdb.Record, error) {
	fileName := name
	if !strings.EqualFold(filepath.Ext(fileName), ".edf") {
		fileName += ".edf"
	}

	var (
		f   afero.File
		err error
	)
	for _, dir := range d.path {
		f, err = d.fs.Open(filepath.Join(dir, fileName))
		if !errors.Is(err, fs.ErrNotExist) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("error opening EDF file %q: %w", fileName, err)
	}

	hdr, err := ReadHeader(f)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("error reading header of %q: %w", fileName, err)
	}

	rec, err := newRecord(name, f, hdr)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return rec, nil
}
