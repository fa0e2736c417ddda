// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

type Version string

const (
	// Version0 represents the version of the EDF/EDF+ standard.
	Version0 Version = "0"
)

const (
	// ReservedEDFPlusContinuous marks an uninterrupted EDF+ recording.
	ReservedEDFPlusContinuous = "EDF+C"

	// MaxRecordBytes is the largest data record the EDF standard recommends.
	MaxRecordBytes = 61440
)

// Header represents the EDF/EDF+ file header.
type Header struct {
	Version            Version       // Version of the EDF/EDF+ standard (usually "0")
	PatientID          string        // Local patient identification
	RecordingID        string        // Local recording identification
	StartTime          time.Time     // Start of the recording
	HeaderBytes        int           // Number of bytes in the header
	Reserved           string        // "EDF+C" for continuous EDF+ files
	DataRecordDuration time.Duration // Duration of a single data record
	DataRecords        int           // Number of data records, -1 if unknown
	SignalCount        int           // Number of signals in each data record
	Signals            []Signal      // Details of each signal
}

// RecordSize returns the size in bytes of one data record.
func (h *Header) RecordSize() int {
	size := 0
	for _, s := range h.Signals {
		size += 2 * s.SamplesPerRecord
	}
	return size
}

// Signal represents the characteristics of each signal in the EDF/EDF+ file.
type Signal struct {
	Label             string  // Label of the signal (e.g., ECG II)
	TransducerType    string  // Type of transducer used
	PhysicalDimension string  // Physical dimension (e.g., uV, mV)
	PhysicalMin       float64 // Minimum physical value
	PhysicalMax       float64 // Maximum physical value
	DigitalMin        int     // Minimum digital value
	DigitalMax        int     // Maximum digital value
	Prefiltering      string  // Pre-filtering information (e.g., HP:0.1Hz LP:75Hz)
	SamplesPerRecord  int     // Number of samples in each data record for this signal
	Reserved          string  // Reserved for future use
}

// Physical converts a digital value to a physical value using the calibration factors.
func (s *Signal) Physical(digital int16) float64 {
	if s.DigitalMax == s.DigitalMin {
		return 0
	}
	return s.PhysicalMin + (float64(digital)-float64(s.DigitalMin))*(s.PhysicalMax-s.PhysicalMin)/float64(s.DigitalMax-s.DigitalMin)
}

// Digital converts a physical value to the nearest representable digital value.
func (s *Signal) Digital(physical float64) int16 {
	if s.PhysicalMax == s.PhysicalMin {
		return 0
	}
	d := (physical-s.PhysicalMin)*float64(s.DigitalMax-s.DigitalMin)/(s.PhysicalMax-s.PhysicalMin) + float64(s.DigitalMin)
	d = min(max(math.Round(d), float64(s.DigitalMin)), float64(s.DigitalMax))
	return int16(d)
}

// signalField is one per-signal column of the header. Columns are stored one
// after the other, each holding the value for every signal.
type signalField struct {
	name  string
	width int
	get   func(*Signal) string
	set   func(*Signal, string) error
}

var signalFields = []signalField{
	{"label", 16,
		func(s *Signal) string { return s.Label },
		func(s *Signal, v string) error { s.Label = v; return nil }},
	{"transducer type", 80,
		func(s *Signal) string { return s.TransducerType },
		func(s *Signal, v string) error { s.TransducerType = v; return nil }},
	{"physical dimension", 8,
		func(s *Signal) string { return s.PhysicalDimension },
		func(s *Signal, v string) error { s.PhysicalDimension = v; return nil }},
	{"physical minimum", 8,
		func(s *Signal) string { return formatNumber(s.PhysicalMin, 8) },
		func(s *Signal, v string) error { return parseFloat(v, &s.PhysicalMin) }},
	{"physical maximum", 8,
		func(s *Signal) string { return formatNumber(s.PhysicalMax, 8) },
		func(s *Signal, v string) error { return parseFloat(v, &s.PhysicalMax) }},
	{"digital minimum", 8,
		func(s *Signal) string { return strconv.Itoa(s.DigitalMin) },
		func(s *Signal, v string) error { return parseInt(v, &s.DigitalMin) }},
	{"digital maximum", 8,
		func(s *Signal) string { return strconv.Itoa(s.DigitalMax) },
		func(s *Signal, v string) error { return parseInt(v, &s.DigitalMax) }},
	{"prefiltering", 80,
		func(s *Signal) string { return s.Prefiltering },
		func(s *Signal, v string) error { s.Prefiltering = v; return nil }},
	{"samples per record", 8,
		func(s *Signal) string { return strconv.Itoa(s.SamplesPerRecord) },
		func(s *Signal, v string) error { return parseInt(v, &s.SamplesPerRecord) }},
	{"reserved", 32,
		func(s *Signal) string { return s.Reserved },
		func(s *Signal, v string) error { s.Reserved = v; return nil }},
}

// signalHeaderBytes is the size of the per-signal part of the header for one signal.
const signalHeaderBytes = 256

// formatNumber renders v in at most width characters, dropping decimals
// until it fits.
func formatNumber(v float64, width int) string {
	s := strconv.FormatFloat(v, 'f', -1, 64)
	for prec := width - 2; len(s) > width && prec >= 0; prec-- {
		s = strconv.FormatFloat(v, 'f', prec, 64)
		if strings.Contains(s, ".") {
			s = strings.TrimRight(strings.TrimRight(s, "0"), ".")
		}
	}
	return s
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("error parsing %q: %w", v, err)
	}
	*dst = f
	return nil
}

func parseInt(v string, dst *int) error {
	i, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("error parsing %q: %w", v, err)
	}
	*dst = i
	return nil
}
