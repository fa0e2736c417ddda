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
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
)

// Writer writes EDF files.
type Writer struct {
	w           io.WriteSeeker
	hdr         *Header
	dataRecords int // Number of data records written so far.
}

// Create creates a new EDF writer that writes to the given writer.
func Create(w io.WriteSeeker, hdr Header) (*Writer, error) {
	hdr.SignalCount = len(hdr.Signals)
	hdr.HeaderBytes = 256 + hdr.SignalCount*signalHeaderBytes
	hdr.DataRecords = -1 // Unknown number of data records (at this time).
	if hdr.Version == "" {
		hdr.Version = Version0
	}

	// As recommended by the EDF standard.
	if size := hdr.RecordSize(); size > MaxRecordBytes {
		return nil, fmt.Errorf("data record too large: %d bytes, max is %d bytes", size, MaxRecordBytes)
	}

	ew := &Writer{w: w, hdr: &hdr}

	// Write the initial header
	if err := ew.writeHeader(); err != nil {
		return nil, fmt.Errorf("error writing header: %w", err)
	}

	return ew, nil
}

// Close finalizes the EDF file by updating the header with the total number of data records.
func (ew *Writer) Close() error {
	ew.hdr.DataRecords = ew.dataRecords
	if err := ew.writeHeader(); err != nil {
		return fmt.Errorf("error writing header: %w", err)
	}

	return nil
}

// WriteRecord writes a single data record of physical values to the EDF file.
func (ew *Writer) WriteRecord(signals [][]float64) error {
	digital := make([][]int16, len(signals))
	for i, samples := range signals {
		if i >= len(ew.hdr.Signals) {
			break
		}
		signal := &ew.hdr.Signals[i]
		digital[i] = make([]int16, len(samples))
		for j, v := range samples {
			digital[i][j] = signal.Digital(v)
		}
	}

	return ew.WriteDigitalRecord(digital)
}

// WriteDigitalRecord writes a single data record of raw digital values.
func (ew *Writer) WriteDigitalRecord(signals [][]int16) error {
	if len(signals) != ew.hdr.SignalCount {
		return fmt.Errorf("expected %d signals, got %d", ew.hdr.SignalCount, len(signals))
	}

	for i, signal := range ew.hdr.Signals {
		if len(signals[i]) != signal.SamplesPerRecord {
			return fmt.Errorf("expected %d samples for signal %d, got %d", signal.SamplesPerRecord, i, len(signals[i]))
		}
	}

	writer := bufio.NewWriter(ew.w)

	buf := make([]byte, 2)
	for _, samples := range signals {
		for _, v := range samples {
			binary.LittleEndian.PutUint16(buf, uint16(v))
			if _, err := writer.Write(buf); err != nil {
				return err
			}
		}
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	ew.dataRecords++
	return nil
}

// writeHeader writes the EDF header at the start of the underlying writer and
// leaves the position at the first data record.
func (ew *Writer) writeHeader() error {
	// Rewind to the beginning of the file.
	if _, err := ew.w.Seek(0, io.SeekStart); err != nil {
		return err
	}

	writer := bufio.NewWriter(ew.w)

	fields := []struct {
		value string
		width int
	}{
		{string(ew.hdr.Version), 8},
		{ew.hdr.PatientID, 80},
		{ew.hdr.RecordingID, 80},
		{ew.hdr.StartTime.Format("02.01.06"), 8},
		{ew.hdr.StartTime.Format("15.04.05"), 8},
		{strconv.Itoa(ew.hdr.HeaderBytes), 8},
		{ew.hdr.Reserved, 44},
		{strconv.Itoa(ew.hdr.DataRecords), 8},
		{formatNumber(ew.hdr.DataRecordDuration.Seconds(), 8), 8},
		{strconv.Itoa(ew.hdr.SignalCount), 4},
	}
	for _, f := range fields {
		if _, err := writer.WriteString(pad(f.value, f.width)); err != nil {
			return err
		}
	}

	for _, f := range signalFields {
		for i := range ew.hdr.Signals {
			if _, err := writer.WriteString(pad(f.get(&ew.hdr.Signals[i]), f.width)); err != nil {
				return err
			}
		}
	}

	// Ensure all data is flushed to the underlying writer
	if err := writer.Flush(); err != nil {
		return err
	}

	_, err := ew.w.Seek(int64(ew.hdr.HeaderBytes)+int64(ew.dataRecords)*int64(ew.hdr.RecordSize()), io.SeekStart)
	return err
}

// pad left aligns s in a space filled field of the given width, truncating
// values that do not fit.
func pad(s string, width int) string {
	if len(s) > width {
		return s[:width]
	}
	return fmt.Sprintf("%-*s", width, s)
}
