// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package cli implements the aecg command line interface.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenPSG/aecg"
	"github.com/OpenPSG/aecg/edf"
	"github.com/OpenPSG/aecg/internal/config"
	"github.com/OpenPSG/aecg/internal/logging"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X".
var version = "dev"

var (
	configPath string
	logLevel   string
	logFormat  string

	cfg    config.Config
	logger = slog.New(slog.DiscardHandler)
)

var rootCmd = &cobra.Command{
	Use:   "aecg",
	Short: "Read, write and catalogue HL7 Annotated ECG recordings",
	Long: `aecg decodes HL7 Annotated ECG (aECG) XML documents into multi-channel
biosignal records, re-encodes them and converts them to and from EDF+.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.aecg/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// setup loads the configuration and builds the logger. Flags override the
// configuration file.
func setup(cmd *cobra.Command, _ []string) error {
	var err error
	if cfg, err = config.Load(configPath); err != nil {
		return err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
	}

	if logger, err = logging.FromStrings(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr()); err != nil {
		return err
	}

	return nil
}

type fileFormat int

const (
	formatXML fileFormat = iota
	formatEDF
)

func formatOf(path string) (fileFormat, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xml":
		return formatXML, nil
	case ".edf":
		return formatEDF, nil
	default:
		return 0, fmt.Errorf("unsupported file type %q, expected .xml or .edf", filepath.Ext(path))
	}
}

// loadRecord decodes an aECG or EDF file.
func loadRecord(path string) (*aecg.Record, []aecg.Diagnostic, error) {
	format, err := formatOf(path)
	if err != nil {
		return nil, nil, err
	}

	if format == formatXML {
		return aecg.DecodeFile(path, aecg.WithLogger(logger))
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening %s: %w", path, err)
	}
	defer f.Close()

	rec, err := edf.Decode(f)
	if err != nil {
		return nil, nil, fmt.Errorf("error decoding %s: %w", path, err)
	}
	return rec, nil, nil
}

// saveRecord encodes rec to an aECG or EDF file.
func saveRecord(path string, rec *aecg.Record) error {
	format, err := formatOf(path)
	if err != nil {
		return err
	}

	if format == formatXML {
		return aecg.EncodeFile(rec, path, aecg.WithLogger(logger), aecg.WithClinicalTrialID(cfg.ClinicalTrialID))
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating %s: %w", path, err)
	}

	if err := edf.Encode(f, rec, cfg.EDF.Options()); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("error encoding %s: %w", path, err)
	}

	return f.Close()
}
