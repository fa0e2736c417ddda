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
	"github.com/OpenPSG/aecg"
	"github.com/OpenPSG/aecg/internal/stats"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [file]",
	Short: "Show the header, channels and statistics of a recording",
	Long:  `Decodes an aECG XML or EDF file and prints its header, its channels with per-channel statistics, and any fields that were skipped while decoding.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	rec, diags, err := loadRecord(args[0])
	if err != nil {
		return err
	}

	printRecord(cmd, rec)

	if len(diags) > 0 {
		cmd.Printf("\nSkipped fields:\n")
		for _, d := range diags {
			cmd.Printf("  %s\n", d.Error())
		}
	}

	return nil
}

func printRecord(cmd *cobra.Command, rec *aecg.Record) {
	cmd.Printf("ID:          %s\n", rec.ID)
	cmd.Printf("Start:       %s\n", aecg.FormatTimestamp(rec.StartTime))
	cmd.Printf("Duration:    %s\n", rec.Duration())
	cmd.Printf("Sample rate: %g Hz\n", rec.SampleRate)
	cmd.Printf("Samples:     %d per channel\n", rec.SamplesPerRecord*rec.NumberOfRecords)
	cmd.Printf("Filters:     high pass %g Hz, low pass %g Hz, notch %g Hz\n",
		rec.Filters.HighPass, rec.Filters.LowPass, rec.Filters.Notch)

	p := rec.Patient
	cmd.Printf("Patient:     %s (id %q, %s", p.Name, p.ID, p.Sex)
	if !p.BirthDate.IsZero() {
		cmd.Printf(", born %s", p.BirthDate.Format("2006-01-02"))
	}
	cmd.Printf(")\n")

	cmd.Printf("\nChannels:\n")
	cmd.Printf("  %-8s %8s %10s %12s %12s %12s %12s %10s\n",
		"LEAD", "SAMPLES", "RATE", "MEAN", "STDDEV", "MIN", "MAX", "PEAK HZ")
	for _, s := range stats.Record(rec) {
		cmd.Printf("  %-8s %8d %10g %12.3f %12.3f %12.3f %12.3f %10.3f %s\n",
			s.Label, s.Samples, s.Rate, s.Mean, s.StdDev, s.Min, s.Max, s.DominantFrequency, s.Unit)
	}
}
