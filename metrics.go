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
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus metrics of a Session. A nil *Metrics records
// nothing.
type Metrics struct {
	FramesRead   *prometheus.CounterVec
	DecodeErrors prometheus.Counter
	OpenRecords  prometheus.Gauge
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	framesRead := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "wfdb_frames_read_total",
		Help: "Total frames or sample vectors returned by signal streams",
	}, []string{"mode"})

	decodeErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wfdb_decode_errors_total",
		Help: "Total fatal errors reported by record decoders",
	})

	openRecords := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wfdb_open_records",
		Help: "Number of records currently open",
	})

	reg.MustRegister(framesRead, decodeErrors, openRecords)

	return &Metrics{
		FramesRead:   framesRead,
		DecodeErrors: decodeErrors,
		OpenRecords:  openRecords,
	}
}

func (m *Metrics) frameRead(mode Mode) {
	if m != nil {
		m.FramesRead.WithLabelValues(mode.String()).Inc()
	}
}

func (m *Metrics) decodeError() {
	if m != nil {
		m.DecodeErrors.Inc()
	}
}

func (m *Metrics) recordOpened() {
	if m != nil {
		m.OpenRecords.Inc()
	}
}

func (m *Metrics) recordClosed() {
	if m != nil {
		m.OpenRecords.Dec()
	}
}
