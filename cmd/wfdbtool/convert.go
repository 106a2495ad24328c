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
	"fmt"
	"strconv"
	"strings"

	"github.com/OpenPSG/wfdb"
	"github.com/spf13/cobra"
)

func newAnnotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "annot CODE|MNEMONIC",
		Short: "Look up an annotation code or mnemonic",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code := wfdb.MnemonicToCode(args[0])
			if n, err := strconv.Atoi(args[0]); err == nil {
				code = wfdb.Code(n)
			} else if code == wfdb.NotQRS {
				return fmt.Errorf("%w: unknown mnemonic %q", wfdb.ErrInvalidCode, args[0])
			}

			mnemonic, description, err := wfdb.CodeToString(code, true, true)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", code, mnemonic, description)
			return nil
		},
	}
}

type timeOptions struct {
	Frequency    float64
	Milliseconds bool
}

func newTimeCommand() *cobra.Command {
	opts := &timeOptions{}

	cmd := &cobra.Command{
		Use:   "time TICKS|CLOCK",
		Short: "Convert between ticks and clock strings",
		Long: `This command formats a tick count as [H:]MM:SS[.mmm], or parses such a
string back into ticks.

Usage examples:

	wfdbtool time 1000
	wfdbtool time --freq 360 --ms 650000
	wfdbtool time --freq 360 30:05.556
`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			codec := wfdb.NewTimeCodec(opts.Frequency)

			if strings.ContainsAny(args[0], ":.") {
				ticks, err := codec.StringToTime(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), ticks)
				return nil
			}

			ticks, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: ticks %q", wfdb.ErrFormat, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), codec.TimeToString(ticks, opts.Milliseconds))
			return nil
		},
	}

	flags := cmd.Flags()
	flags.Float64Var(&opts.Frequency, "freq", 1,
		"Tick frequency in Hz.")
	flags.BoolVar(&opts.Milliseconds, "ms", false,
		"Include milliseconds when formatting.")

	return cmd
}

func newDateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "date JULIAN|DD/MM/YYYY",
		Short: "Convert between Julian day numbers and calendar dates",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.Contains(args[0], "/") {
				jd, err := wfdb.StringToDate(args[0])
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), jd)
				return nil
			}

			jd, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("%w: julian day %q", wfdb.ErrFormat, args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), wfdb.DateToString(jd))
			return nil
		},
	}
}
