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
)

var (
	// ErrInvalidCode is returned when an annotation code is outside the table.
	ErrInvalidCode = errors.New("invalid annotation code")
	// ErrFormat is returned for malformed time or date strings.
	ErrFormat = errors.New("malformed string")
	// ErrDecode is matched by every failure reported by a record decoder.
	ErrDecode = errors.New("decode failure")
	// ErrState is returned for operations that are illegal in the current state.
	ErrState = errors.New("illegal state")
	// ErrIndex is returned for out of range signal indices.
	ErrIndex = errors.New("index out of range")
	// ErrInvalidArgument is returned for caller errors that fit no other kind.
	ErrInvalidArgument = errors.New("invalid argument")
)

// DecodeError wraps a fatal failure reported by a record decoder.
type DecodeError struct {
	Record string // Name of the record being decoded
	Op     string // Decoder operation that failed (open, vector, frame)
	Err    error  // Underlying cause
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding record %q (%s): %v", e.Record, e.Op, e.Err)
}

// Unwrap exposes both the cause and ErrDecode to errors.Is.
func (e *DecodeError) Unwrap() []error {
	return []error{ErrDecode, e.Err}
}
