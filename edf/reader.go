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
	"strings"
	"time"
)

// Reader reads EDF/EDF+ files.
type Reader struct {
	r   io.ReadSeeker
	hdr *Header
}

// Open opens an EDF/EDF+ file for reading.
func Open(r io.ReadSeeker) (*Reader, error) {
	reader := bufio.NewReader(r)

	b := make([]byte, 256)
	if _, err := io.ReadFull(reader, b); err != nil {
		return nil, fmt.Errorf("error reading header: %w", err)
	}

	field := func(from, to int) string {
		return strings.TrimSpace(string(b[from:to]))
	}

	hdr := &Header{
		Version:     Version(field(0, 8)),
		PatientID:   field(8, 88),
		RecordingID: field(88, 168),
		Reserved:    field(192, 236),
	}

	startTime, err := parseStartTime(field(168, 176), field(176, 184))
	if err != nil {
		return nil, err
	}
	hdr.StartTime = startTime

	if hdr.HeaderBytes, err = strconv.Atoi(field(184, 192)); err != nil {
		return nil, fmt.Errorf("error parsing header bytes: %w", err)
	}

	if hdr.DataRecords, err = strconv.Atoi(field(236, 244)); err != nil {
		return nil, fmt.Errorf("error parsing number of data records: %w", err)
	}

	seconds, err := strconv.ParseFloat(field(244, 252), 64)
	if err != nil {
		return nil, fmt.Errorf("error parsing data record duration: %w", err)
	}
	hdr.DataRecordDuration = time.Duration(seconds * float64(time.Second))

	if hdr.SignalCount, err = strconv.Atoi(field(252, 256)); err != nil {
		return nil, fmt.Errorf("error parsing signal count: %w", err)
	}
	if hdr.SignalCount < 0 || hdr.HeaderBytes != 256+hdr.SignalCount*signalHeaderBytes {
		return nil, fmt.Errorf("error reading signal headers: %d signals do not fit %d header bytes", hdr.SignalCount, hdr.HeaderBytes)
	}

	hdr.Signals = make([]Signal, hdr.SignalCount)
	for _, f := range signalFields {
		col := make([]byte, f.width)
		for i := range hdr.Signals {
			if _, err := io.ReadFull(reader, col); err != nil {
				return nil, fmt.Errorf("error reading signal headers: %w", err)
			}
			if err := f.set(&hdr.Signals[i], strings.TrimSpace(string(col))); err != nil {
				return nil, fmt.Errorf("error parsing %s of signal %d: %w", f.name, i, err)
			}
		}
	}

	return &Reader{
		r:   r,
		hdr: hdr,
	}, nil
}

// parseStartTime parses the dd.mm.yy and hh.mm.ss header fields. Two digit
// years use the EDF clipping date: 85-99 are 1985-1999, 00-84 are 2000-2084.
func parseStartTime(dateStr, timeStr string) (time.Time, error) {
	var day, month, year, hour, minute, second int
	if _, err := fmt.Sscanf(dateStr, "%02d.%02d.%02d", &day, &month, &year); err != nil {
		return time.Time{}, fmt.Errorf("error parsing start date: %w", err)
	}
	if _, err := fmt.Sscanf(timeStr, "%02d.%02d.%02d", &hour, &minute, &second); err != nil {
		return time.Time{}, fmt.Errorf("error parsing start time: %w", err)
	}

	if year >= 85 {
		year += 1900
	} else {
		year += 2000
	}

	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.UTC), nil
}

// Header returns a copy of the file header.
func (er *Reader) Header() Header {
	hdr := *er.hdr
	hdr.Signals = append([]Signal(nil), er.hdr.Signals...)
	return hdr
}

// ReadDigital reads every data record and returns the raw digital samples of
// each signal, concatenated across records.
func (er *Reader) ReadDigital() ([][]int16, error) {
	if er.hdr.DataRecords < 0 {
		return nil, fmt.Errorf("error reading data records: number of data records is unknown")
	}

	if _, err := er.r.Seek(int64(er.hdr.HeaderBytes), io.SeekStart); err != nil {
		return nil, fmt.Errorf("error seeking to data records: %w", err)
	}
	reader := bufio.NewReader(er.r)

	out := make([][]int16, len(er.hdr.Signals))
	for i, s := range er.hdr.Signals {
		out[i] = make([]int16, 0, s.SamplesPerRecord*er.hdr.DataRecords)
	}

	buf := make([]byte, er.hdr.RecordSize())
	for rec := 0; rec < er.hdr.DataRecords; rec++ {
		if _, err := io.ReadFull(reader, buf); err != nil {
			return nil, fmt.Errorf("error reading data record %d: %w", rec, err)
		}

		pos := 0
		for i, s := range er.hdr.Signals {
			for j := 0; j < s.SamplesPerRecord; j++ {
				out[i] = append(out[i], int16(binary.LittleEndian.Uint16(buf[pos:])))
				pos += 2
			}
		}
	}

	return out, nil
}

// SignalReader reads continuous signal data from an EDF/EDF+ file.
type SignalReader struct {
	r             io.ReadSeeker
	hdr           *Header
	signal        *Signal
	currentRecord int     // Current record being processed
	recordSize    int     // Total size of one data record
	signalOffset  int     // Byte offset of the signal in a record
	pending       []int16 // Samples of the current record not yet returned
}

// Signal creates a new SignalReader for a specified signal index.
func (er *Reader) Signal(signalIndex int) (*SignalReader, error) {
	if signalIndex < 0 || signalIndex >= len(er.hdr.Signals) {
		return nil, fmt.Errorf("signal index out of range")
	}

	signalOffset := 0
	for _, sig := range er.hdr.Signals[:signalIndex] {
		signalOffset += sig.SamplesPerRecord * 2
	}

	return &SignalReader{
		r:            er.r,
		hdr:          er.hdr,
		signal:       &er.hdr.Signals[signalIndex],
		recordSize:   er.hdr.RecordSize(),
		signalOffset: signalOffset,
	}, nil
}

// Read fills the provided float64 slice with the physical values from the signal.
func (sr *SignalReader) Read(data []float64) (int, error) {
	n := 0
	for n < len(data) {
		if len(sr.pending) == 0 {
			if err := sr.next(); err != nil {
				return n, err
			}
			continue
		}

		data[n] = sr.signal.Physical(sr.pending[0])
		sr.pending = sr.pending[1:]
		n++
	}

	return n, nil
}

// next loads the signal's samples from the next data record.
func (sr *SignalReader) next() error {
	if sr.currentRecord >= sr.hdr.DataRecords {
		return io.EOF
	}

	pos := int64(sr.hdr.HeaderBytes) + int64(sr.currentRecord)*int64(sr.recordSize) + int64(sr.signalOffset)
	if _, err := sr.r.Seek(pos, io.SeekStart); err != nil {
		return fmt.Errorf("error seeking to position: %w", err)
	}

	buf := make([]byte, 2*sr.signal.SamplesPerRecord)
	if _, err := io.ReadFull(sr.r, buf); err != nil {
		return fmt.Errorf("error reading sample data: %w", err)
	}

	sr.pending = make([]int16, sr.signal.SamplesPerRecord)
	for i := range sr.pending {
		sr.pending[i] = int16(binary.LittleEndian.Uint16(buf[2*i:]))
	}
	sr.currentRecord++

	return nil
}
