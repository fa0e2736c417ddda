// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package edf_test

import (
	"io"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/aecg/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriter(t *testing.T) {
	f, err := os.OpenFile(filepath.Join(t.TempDir(), "leads.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	// Three leads sampled at 8, 4 and 2 samples per record, each digital
	// unit worth 5 uV over the full int16 range.
	lead := func(label string, spr int) edf.Signal {
		return edf.Signal{
			Label:             label,
			TransducerType:    "Surface electrode",
			PhysicalDimension: "uV",
			PhysicalMin:       5 * math.MinInt16,
			PhysicalMax:       5 * math.MaxInt16,
			DigitalMin:        math.MinInt16,
			DigitalMax:        math.MaxInt16,
			Prefiltering:      "HP:0.05Hz LP:150Hz N:50Hz",
			SamplesPerRecord:  spr,
		}
	}

	hdr := edf.Header{
		Version:            edf.Version0,
		PatientID:          "S-1 M 02-JAN-1960 X",
		RecordingID:        "Startdate 04-MAR-2009 X X aECG",
		StartTime:          time.Date(2009, time.March, 4, 5, 6, 7, 0, time.UTC),
		Reserved:           edf.ReservedEDFPlusContinuous,
		DataRecordDuration: time.Second,
		Signals:            []edf.Signal{lead("ECG I", 8), lead("ECG II", 4), lead("ECG V1", 2)},
	}

	ew, err := edf.Create(f, hdr)
	require.NoError(t, err)

	want := [][]int16{make([]int16, 0, 24), make([]int16, 0, 12), make([]int16, 0, 6)}
	for r := 0; r < 3; r++ {
		record := make([][]float64, len(hdr.Signals))
		for i, sig := range hdr.Signals {
			record[i] = make([]float64, sig.SamplesPerRecord)
			for j := range record[i] {
				d := int16((r*sig.SamplesPerRecord + j) * (i + 1) * 100)
				if i == 2 && j%2 == 1 {
					d = -d
				}
				record[i][j] = 5 * float64(d)
				want[i] = append(want[i], d)
			}
		}
		require.NoError(t, ew.WriteRecord(record))
	}
	require.NoError(t, ew.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	er, err := edf.Open(f)
	require.NoError(t, err)
	got := er.Header()
	assert.Equal(t, 3, got.DataRecords)
	assert.Equal(t, 3, got.SignalCount)
	assert.Equal(t, 256+3*256, got.HeaderBytes)
	for i, sig := range hdr.Signals {
		assert.Equal(t, sig.Label, got.Signals[i].Label)
		assert.Equal(t, sig.SamplesPerRecord, got.Signals[i].SamplesPerRecord)
	}

	digital, err := er.ReadDigital()
	require.NoError(t, err)
	assert.Equal(t, want, digital)

	// The slowest lead reads back in physical units across record boundaries.
	sr, err := er.Signal(2)
	require.NoError(t, err)

	physical := make([]float64, 4)
	var values []float64
	for {
		n, err := sr.Read(physical)
		values = append(values, physical[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Len(t, values, len(want[2]))
	for j, v := range values {
		assert.InDelta(t, 5*float64(want[2][j]), v, 1e-6)
	}
}

func TestWriterClampsPhysicalValues(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "clamp.edf"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, edf.Header{
		StartTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "ECG I", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -100, DigitalMax: 100, SamplesPerRecord: 3},
		},
	})
	require.NoError(t, err)
	require.NoError(t, ew.WriteRecord([][]float64{{-5, 0, 5}}))
	require.NoError(t, ew.Close())

	_, err = f.Seek(0, io.SeekStart)
	require.NoError(t, err)

	er, err := edf.Open(f)
	require.NoError(t, err)

	signals, err := er.ReadDigital()
	require.NoError(t, err)
	require.Equal(t, [][]int16{{-100, 0, 100}}, signals)
}

func TestWriterRejectsMismatchedRecords(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "mismatch.edf"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	ew, err := edf.Create(f, edf.Header{
		StartTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "ECG I", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -100, DigitalMax: 100, SamplesPerRecord: 2},
		},
	})
	require.NoError(t, err)

	require.Error(t, ew.WriteDigitalRecord([][]int16{{1, 2}, {3, 4}}))
	require.Error(t, ew.WriteDigitalRecord([][]int16{{1, 2, 3}}))
	require.NoError(t, ew.WriteDigitalRecord([][]int16{{1, 2}}))
}

func TestWriterRecordTooLarge(t *testing.T) {
	f, err := os.Create(filepath.Join(t.TempDir(), "large.edf"))
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	_, err = edf.Create(f, edf.Header{
		StartTime:          time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "ECG I", DigitalMin: -1, DigitalMax: 1, PhysicalMin: -1, PhysicalMax: 1, SamplesPerRecord: edf.MaxRecordBytes/2 + 1},
		},
	})
	require.Error(t, err)
}
