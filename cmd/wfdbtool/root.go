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
	"path/filepath"
	"strings"

	"github.com/OpenPSG/wfdb"
	"github.com/OpenPSG/wfdb/edf"
	"github.com/OpenPSG/wfdb/internal/config"
	"github.com/OpenPSG/wfdb/native"
	"github.com/go-kit/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
)

// app carries the state shared by every command of one invocation.
type app struct {
	fs         afero.Fs
	configFile string

	cfg    *config.Config
	logger log.Logger
}

func newRootCommand(fsys afero.Fs) *cobra.Command {
	a := &app{fs: fsys, logger: log.NewNopLogger()}

	cmd := &cobra.Command{
		Use:   "wfdbtool",
		Short: "Read physiological signal records",
		Long: `wfdbtool reads WFDB and EDF records and converts annotation codes, times
and dates.

Records are searched for on the directories listed in WFDB_PATH. Settings
may also be read from a configuration file given with --config.
`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadConfig(a.fs, a.configFile)
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.logger = cfg.Logger(cmd.ErrOrStderr())
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&a.configFile, "config", "",
		"Path to a configuration file (yaml, json or toml)")

	cmd.AddCommand(
		newSamplesCommand(a),
		newAnnotCommand(),
		newTimeCommand(),
		newDateCommand(),
	)

	return cmd
}

// decoder picks the decoder for record by its extension.
func (a *app) decoder(record string) wfdb.Decoder {
	if strings.EqualFold(filepath.Ext(record), ".edf") {
		return edf.New(a.fs, a.cfg.Path...)
	}
	return native.New(a.fs, a.cfg.Path...)
}
