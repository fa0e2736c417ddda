// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package config loads the TOML configuration of the aecg command.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/OpenPSG/aecg"
	"github.com/OpenPSG/aecg/edf"
	"github.com/OpenPSG/aecg/internal/logging"
	"github.com/pelletier/go-toml/v2"
)

// Config is the command configuration.
type Config struct {
	LogLevel        string `toml:"log_level"`
	LogFormat       string `toml:"log_format"`
	CatalogDir      string `toml:"catalog_dir"`       // Directory holding the record catalogue
	ClinicalTrialID string `toml:"clinical_trial_id"` // Written to encoded aECG documents
	EDF             EDF    `toml:"edf"`
}

// EDF holds the settings used when converting to EDF.
type EDF struct {
	Transducer     string `toml:"transducer"`
	MaxRecordBytes int    `toml:"max_record_bytes"`
}

// Options returns the EDF conversion options.
func (e EDF) Options() edf.Options {
	return edf.Options{
		Transducer:     e.Transducer,
		MaxRecordBytes: e.MaxRecordBytes,
	}
}

// Dir returns the per-user configuration directory, ~/.aecg.
func Dir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".aecg"
	}
	return filepath.Join(home, ".aecg")
}

// DefaultPath is the configuration file read when no path is given.
func DefaultPath() string {
	return filepath.Join(Dir(), "config.toml")
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		LogLevel:        "info",
		LogFormat:       "text",
		CatalogDir:      Dir(),
		ClinicalTrialID: "CLINICAL_TRIAL",
		EDF: EDF{
			Transducer:     aecg.DefaultTransducer,
			MaxRecordBytes: edf.MaxRecordBytes,
		},
	}
}

// Load reads the configuration at path over the defaults. An empty path reads
// DefaultPath, which may be absent.
func Load(path string) (Config, error) {
	cfg := Default()

	optional := path == ""
	if optional {
		path = DefaultPath()
	}

	f, err := os.Open(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("error opening config: %w", err)
	}
	defer f.Close()

	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("error parsing config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("error validating config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks the values that cannot be caught by decoding.
func (c Config) Validate() error {
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	if _, err := logging.ParseFormat(c.LogFormat); err != nil {
		return err
	}
	if c.EDF.MaxRecordBytes < 0 || c.EDF.MaxRecordBytes > edf.MaxRecordBytes {
		return fmt.Errorf("edf.max_record_bytes must be between 0 and %d", edf.MaxRecordBytes)
	}
	return nil
}

// Save writes the configuration to path, creating its directory.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error encoding config: %w", err)
	}

	return os.WriteFile(path, data, 0o600)
}
