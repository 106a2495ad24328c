// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads wfdbtool settings from the environment and an
// optional configuration file.
package config

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/OpenPSG/wfdb"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

const (
	DefaultEnvPrefix = "WFDB"

	DefaultLogLevel  = "warn"
	DefaultLogFormat = "logfmt"
)

var DefaultConfig = Config{
	Path:      []string{"."},
	LogLevel:  DefaultLogLevel,
	LogFormat: DefaultLogFormat,
}

type Config struct {
	Path        []string    `json:"path,omitempty"        mapstructure:"path"`
	LogLevel    string      `json:"log_level,omitempty"   mapstructure:"log_level"`
	LogFormat   string      `json:"log_format,omitempty"  mapstructure:"log_format"`
	Calibration Calibration `json:"calibration,omitempty" mapstructure:"calibration"`
}

// Calibration maps signal indices to gain overrides.
type Calibration map[int]float64

// UnmarshalText parses a comma separated list of index=gain pairs.
func (c *Calibration) UnmarshalText(text []byte) error {
	out := Calibration{}
	for _, pair := range strings.Split(string(text), ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		if err := out.Set(pair); err != nil {
			return err
		}
	}
	*c = out
	return nil
}

// Set adds a single index=gain pair.
func (c Calibration) Set(pair string) error {
	idx, gain, ok := strings.Cut(pair, "=")
	if !ok {
		return fmt.Errorf("%w: calibration %q is not index=gain", wfdb.ErrInvalidArgument, pair)
	}
	i, err := strconv.Atoi(strings.TrimSpace(idx))
	if err != nil || i < 0 {
		return fmt.Errorf("%w: calibration index %q", wfdb.ErrInvalidArgument, idx)
	}
	g, err := strconv.ParseFloat(strings.TrimSpace(gain), 64)
	if err != nil {
		return fmt.Errorf("%w: calibration gain %q", wfdb.ErrInvalidArgument, gain)
	}
	c[i] = g
	return nil
}

// Apply overrides the gains of info. info must be mutable.
func (c Calibration) Apply(info *wfdb.SignalInfo) error {
	indices := make([]int, 0, len(c))
	for i := range c {
		indices = append(indices, i)
	}
	sort.Ints(indices)

	for _, i := range indices {
		if err := info.SetGain(i, c[i]); err != nil {
			return fmt.Errorf("error calibrating signal %d: %w", i, err)
		}
	}
	return nil
}

// LoadConfig reads the configuration from the environment and, when file is
// not empty, from the named file on fsys. The environment takes precedence.
func LoadConfig(fsys afero.Fs, file string) (*Config, error) {
	v := viper.NewWithOptions(
		viper.KeyDelimiter("."),
		viper.EnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_")),
	)
	v.SetFs(fsys)

	v.SetEnvPrefix(DefaultEnvPrefix)
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	_ = v.BindEnv("path")
	v.SetDefault("path", DefaultConfig.Path)

	_ = v.BindEnv("log_level")
	v.SetDefault("log_level", DefaultLogLevel)

	_ = v.BindEnv("log_format")
	v.SetDefault("log_format", DefaultLogFormat)

	_ = v.BindEnv("calibration")

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
	}

	decodeHooks := mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)

	config := &Config{}
	if err := v.Unmarshal(config, viper.DecodeHook(decodeHooks)); err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if _, err := levelOption(config.LogLevel); err != nil {
		return nil, err
	}
	if config.LogFormat != "logfmt" && config.LogFormat != "json" {
		return nil, fmt.Errorf("%w: log format %q", wfdb.ErrInvalidArgument, config.LogFormat)
	}

	return config, nil
}

// Logger builds a leveled logger writing to w.
func (c *Config) Logger(w io.Writer) log.Logger {
	var logger log.Logger
	if c.LogFormat == "json" {
		logger = log.NewJSONLogger(log.NewSyncWriter(w))
	} else {
		logger = log.NewLogfmtLogger(log.NewSyncWriter(w))
	}
	logger = log.With(logger, "ts", log.DefaultTimestampUTC)

	opt, err := levelOption(c.LogLevel)
	if err != nil {
		opt = level.AllowWarn()
	}
	return level.NewFilter(logger, opt)
}

func levelOption(s string) (level.Option, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return level.AllowDebug(), nil
	case "info":
		return level.AllowInfo(), nil
	case "warn":
		return level.AllowWarn(), nil
	case "error":
		return level.AllowError(), nil
	case "none":
		return level.AllowNone(), nil
	}
	return nil, fmt.Errorf("%w: log level %q", wfdb.ErrInvalidArgument, s)
}
