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
	"sync"
	"sync/atomic"

	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
)

// Session holds the decoder state shared by every stream reading through it.
// Only one record is current at a time: opening another record closes the
// previous one, and streams still reading it start failing with ErrState.
type Session struct {
	dec     Decoder
	logger  log.Logger
	metrics *Metrics

	mu      sync.Mutex
	current *recordHandle
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets the logger used for record lifecycle events.
func WithLogger(logger log.Logger) Option {
	return func(s *Session) {
		s.logger = logger
	}
}

// WithMetrics sets the metrics updated by the session and its streams.
func WithMetrics(m *Metrics) Option {
	return func(s *Session) {
		s.metrics = m
	}
}

// NewSession creates a session reading records through dec.
func NewSession(dec Decoder, opts ...Option) *Session {
	s := &Session{
		dec:    dec,
		logger: log.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type recordHandle struct {
	name     string
	rec      Record
	released bool
	advanced atomic.Bool // Any stream has read from rec
}

// Current returns the name of the current record, if any.
func (s *Session) Current() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", false
	}
	return s.current.name, true
}

// Reset closes the current record. Records opened afterwards start from
// their first sample.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	level.Debug(s.logger).Log("msg", "resetting session")

	if s.current == nil {
		return nil
	}
	err := s.closeLocked(s.current)
	s.current = nil
	return err
}

func (s *Session) open(name string) (*recordHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		level.Debug(s.logger).Log("msg", "superseding current record", "record", s.current.name, "next", name)
		if err := s.closeLocked(s.current); err != nil {
			level.Warn(s.logger).Log("msg", "failed to close superseded record", "err", err)
		}
		s.current = nil
	}

	rec, err := s.dec.OpenRecord(name)
	if err != nil {
		s.metrics.decodeError()
		level.Error(s.logger).Log("msg", "failed to open record", "record", name, "err", err)
		return nil, &DecodeError{Record: name, Op: "open", Err: err}
	}

	h := &recordHandle{name: name, rec: rec}
	s.current = h
	s.metrics.recordOpened()
	level.Debug(s.logger).Log("msg", "opened record", "record", name, "signals", len(rec.Signals()), "freq", rec.Frequency())

	return h, nil
}

// attach returns the current record, which must be name.
func (s *Session) attach(name string) (*recordHandle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil, fmt.Errorf("%w: no record is open", ErrState)
	}
	if s.current.name != name {
		return nil, fmt.Errorf("%w: open record is %q, not %q", ErrState, s.current.name, name)
	}
	return s.current, nil
}

func (s *Session) release(h *recordHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if h.released {
		return nil
	}
	if s.current == h {
		s.current = nil
	}
	return s.closeLocked(h)
}

func (s *Session) live(h *recordHandle) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	return !h.released
}

func (s *Session) decodeFailed(h *recordHandle, op string, err error) *DecodeError {
	s.metrics.decodeError()
	level.Error(s.logger).Log("msg", "decoder failed", "record", h.name, "op", op, "err", err)
	return &DecodeError{Record: h.name, Op: op, Err: err}
}

func (s *Session) closeLocked(h *recordHandle) error {
	h.released = true
	s.metrics.recordClosed()
	level.Debug(s.logger).Log("msg", "closing record", "record", h.name)

	if err := h.rec.Close(); err != nil {
		return fmt.Errorf("error closing record %q: %w", h.name, err)
	}
	return nil
}
