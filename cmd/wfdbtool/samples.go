// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package main

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strconv"

	"github.com/OpenPSG/wfdb"
	"github.com/OpenPSG/wfdb/internal/config"
	"github.com/go-kit/log/level"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

type samplesOptions struct {
	Limit   int64
	ByFrame bool
	Raw     bool
	Gains   []string
	Metrics bool
}

func newSamplesCommand(a *app) *cobra.Command {
	opts := &samplesOptions{}

	cmd := &cobra.Command{
		Use:   "samples RECORD",
		Short: "Print the samples of a record",
		Long: `This command prints one line per sample vector or frame of a record: the
elapsed time followed by the value of every sample.

Usage examples:

1. First ten vectors of a WFDB record, in physical units:

	wfdbtool samples 100s -n 10

2. Whole frames of an EDF file, in ADC units:

	wfdbtool samples night.edf --frame --raw

3. Override the gain of the second signal:

	wfdbtool samples 100s --gain 1=400
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSamples(cmd, a, opts, args[0])
		},
	}

	flags := cmd.Flags()
	flags.Int64VarP(&opts.Limit, "count", "n", 0,
		"Number of vectors or frames to print. Prints the whole record if zero.")
	flags.BoolVar(&opts.ByFrame, "frame", false,
		"Print whole frames, including every sample of oversampled signals.")
	flags.BoolVar(&opts.Raw, "raw", false,
		"Print samples in ADC units instead of physical units.")
	flags.StringSliceVar(&opts.Gains, "gain", nil,
		"Override the gain of a signal, as index=gain. Repeatable.")
	flags.BoolVar(&opts.Metrics, "metrics", false,
		"Print reader metrics to standard error when done.")

	return cmd
}

func runSamples(cmd *cobra.Command, a *app, opts *samplesOptions, record string) error {
	calibration := config.Calibration{}
	for i, g := range a.cfg.Calibration {
		calibration[i] = g
	}
	for _, pair := range opts.Gains {
		if err := calibration.Set(pair); err != nil {
			return err
		}
	}

	reg := prometheus.NewRegistry()
	session := wfdb.NewSession(a.decoder(record),
		wfdb.WithLogger(a.logger),
		wfdb.WithMetrics(wfdb.NewMetrics(reg)),
	)

	st, err := wfdb.NewSignalStream(session, record, wfdb.StreamOptions{
		ByFrame:    opts.ByFrame,
		Standalone: true,
		Mutable:    len(calibration) > 0,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := st.Close(); err != nil {
			level.Warn(a.logger).Log("msg", "failed to close record", "record", record, "err", err)
		}
	}()

	if err := calibration.Apply(st.Info()); err != nil {
		return err
	}

	n, err := printSamples(cmd.OutOrStdout(), st.Samples(), st.Clock(), opts)
	if err != nil {
		return err
	}

	level.Info(a.logger).Log("msg", "finished reading record", "record", record, "count", n)

	if opts.Metrics {
		return writeMetrics(cmd.ErrOrStderr(), reg)
	}
	return nil
}

// printSamples writes one line per frame and flushes what it wrote even when
// reading fails.
func printSamples(w io.Writer, frames iter.Seq2[wfdb.Frame, error], clock wfdb.TimeCodec, opts *samplesOptions) (n int64, err error) {
	out := bufio.NewWriter(w)
	defer func() {
		if ferr := out.Flush(); ferr != nil && err == nil {
			err = fmt.Errorf("error writing samples: %w", ferr)
		}
	}()

	for f, ferr := range frames {
		if ferr != nil {
			return n, ferr
		}
		if err := printFrame(out, clock.TimeToString(n, true), f, opts.Raw); err != nil {
			return n, err
		}
		n++
		if opts.Limit > 0 && n >= opts.Limit {
			break
		}
	}
	return n, nil
}

func printFrame(w *bufio.Writer, clock string, f wfdb.Frame, raw bool) error {
	if _, err := w.WriteString(clock); err != nil {
		return fmt.Errorf("error writing samples: %w", err)
	}
	for i := range f.Raw {
		w.WriteByte('\t')
		if raw {
			w.WriteString(strconv.Itoa(f.Raw[i]))
		} else {
			w.WriteString(strconv.FormatFloat(f.Values[i], 'f', 3, 64))
		}
	}
	return w.WriteByte('\n')
}

func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("error gathering metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("error writing metrics: %w", err)
		}
	}
	return nil
}
