// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package cli

import (
	"log/slog"

	"github.com/spf13/cobra"
)

var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Convert between aECG XML and EDF",
	Long: `Converts a recording between aECG XML and EDF+. The formats are chosen from
the file extensions (.xml or .edf). Converting XML to XML re-encodes the document.`,
	Args: cobra.ExactArgs(2),
	RunE: runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	in, out := args[0], args[1]

	// Fail on the output type before doing any work.
	if _, err := formatOf(out); err != nil {
		return err
	}

	rec, diags, err := loadRecord(in)
	if err != nil {
		return err
	}

	if err := saveRecord(out, rec); err != nil {
		return err
	}

	logger.Info("Converted recording",
		slog.String("input", in),
		slog.String("output", out),
		slog.Int("channels", len(rec.Channels)),
		slog.Int("skipped", len(diags)))

	cmd.Printf("Wrote %s (%d channels, %s)\n", out, len(rec.Channels), rec.Duration())
	return nil
}
