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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/OpenPSG/aecg"
	"github.com/OpenPSG/aecg/edf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeExample(t *testing.T) *aecg.Record {
	t.Helper()

	rec, diags, err := aecg.DecodeFile("../testdata/example.xml")
	require.NoError(t, err)
	require.Empty(t, diags)

	return rec
}

func TestFromRecord(t *testing.T) {
	rec := decodeExample(t)

	hdr, data, err := edf.FromRecord(rec, edf.Options{})
	require.NoError(t, err)

	assert.Equal(t, "008 F 02-MAY-1951 Jane_Roe", hdr.PatientID)
	assert.Equal(t, "Startdate 24-MAY-2007 728989ec-b8a3-4d0c-9c5e-2f1b3c8d0a11 X X", hdr.RecordingID)
	assert.Equal(t, edf.ReservedEDFPlusContinuous, hdr.Reserved)
	assert.Equal(t, rec.StartTime, hdr.StartTime)
	assert.Equal(t, time.Second, hdr.DataRecordDuration)
	assert.Equal(t, 3, hdr.SignalCount)
	assert.Equal(t, 256+3*256, hdr.HeaderBytes)

	lead2 := hdr.Signals[1]
	assert.Equal(t, "ECG II", lead2.Label)
	assert.Equal(t, aecg.DefaultTransducer, lead2.TransducerType)
	assert.Equal(t, "uV", lead2.PhysicalDimension)
	assert.Equal(t, -32768, lead2.DigitalMin)
	assert.Equal(t, 32767, lead2.DigitalMax)
	assert.Equal(t, -81922.5, lead2.PhysicalMin)
	assert.Equal(t, 81915.0, lead2.PhysicalMax)
	assert.Equal(t, "HP:0.05Hz LP:150Hz N:50Hz", lead2.Prefiltering)
	assert.Equal(t, 4, lead2.SamplesPerRecord)

	// Channels keep their native density.
	require.Len(t, data, 1)
	assert.Equal(t, [][]int16{
		{10, -20, 30, -40, 50, -60, 70, -80},
		{1, 2, 3, 4},
		{-100, 100},
	}, data[0])
}

func TestFromRecordSplitsLargeRecords(t *testing.T) {
	rec := decodeExample(t)

	// 28 bytes of samples only fit in two records of 14 bytes.
	hdr, data, err := edf.FromRecord(rec, edf.Options{MaxRecordBytes: 20})
	require.NoError(t, err)

	require.Len(t, data, 2)
	assert.Equal(t, 500*time.Millisecond, hdr.DataRecordDuration)
	assert.Equal(t, []int{4, 2, 1}, []int{hdr.Signals[0].SamplesPerRecord, hdr.Signals[1].SamplesPerRecord, hdr.Signals[2].SamplesPerRecord})
	assert.Equal(t, [][]int16{{50, -60, 70, -80}, {3, 4}, {100}}, data[1])

	// V1 has two samples, so no split can go below 14 bytes.
	_, _, err = edf.FromRecord(rec, edf.Options{MaxRecordBytes: 10})
	require.Error(t, err)
	assert.True(t, errors.Is(err, aecg.ErrMalformedValue))
}

func TestFromRecordRejectsIncompleteRecords(t *testing.T) {
	_, _, err := edf.FromRecord(nil, edf.Options{})
	assert.True(t, errors.Is(err, aecg.ErrMissingField))

	rec := decodeExample(t)
	rec.SampleRate = 0
	_, _, err = edf.FromRecord(rec, edf.Options{})
	assert.True(t, errors.Is(err, aecg.ErrMissingField))

	rec = decodeExample(t)
	rec.Channels[0].Calibration.Scale = 0
	_, _, err = edf.FromRecord(rec, edf.Options{})
	assert.True(t, errors.Is(err, aecg.ErrMalformedValue))
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	rec := decodeExample(t)

	f, err := os.OpenFile(filepath.Join(t.TempDir(), "example.edf"), os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, f.Close())
	})

	require.NoError(t, edf.Encode(f, rec, edf.Options{}))

	_, err = f.Seek(0, 0)
	require.NoError(t, err)

	got, err := edf.Decode(f)
	require.NoError(t, err)

	assert.Equal(t, rec, got)
}

func TestToRecord(t *testing.T) {
	hdr := edf.Header{
		PatientID:          "Patient X",
		RecordingID:        "Recording 1",
		StartTime:          time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC),
		DataRecords:        2,
		DataRecordDuration: time.Second,
		Signals: []edf.Signal{
			{Label: "ECG aVF", PhysicalDimension: "mV", PhysicalMin: -10, PhysicalMax: 10, DigitalMin: -1000, DigitalMax: 1000, Prefiltering: "HP:0.5Hz LP:40Hz", SamplesPerRecord: 2},
			{Label: edf.AnnotationsLabel, DigitalMin: -32768, DigitalMax: 32767, PhysicalMin: -1, PhysicalMax: 1, SamplesPerRecord: 8},
			{Label: "Pleth", PhysicalMin: 0, PhysicalMax: 100, DigitalMin: 0, DigitalMax: 100, SamplesPerRecord: 1},
		},
	}
	signals := [][]int16{
		{-1000, 0, 500, 1000},
		make([]int16, 16),
		{20, 40},
	}

	rec, err := edf.ToRecord(hdr, signals)
	require.NoError(t, err)

	assert.Equal(t, "Patient X", rec.Patient.ID)
	assert.Equal(t, aecg.SexUnknown, rec.Patient.Sex)
	assert.Empty(t, rec.ID)
	assert.Equal(t, aecg.Filters{HighPass: 0.5, LowPass: 40}, rec.Filters)

	require.Len(t, rec.Channels, 2)
	avf := rec.Channels[0]
	assert.Equal(t, aecg.LeadAVF, avf.Lead)
	assert.Equal(t, "MDC_ECG_LEAD_AVF", avf.Label)
	assert.Equal(t, aecg.UnitMilliVolt, avf.Unit)
	assert.InDelta(t, 0.01, avf.Calibration.Scale, 1e-12)
	assert.InDelta(t, 0.0, avf.Calibration.Offset, 1e-12)
	assert.Equal(t, int16(-1000), avf.DigitalMin)
	assert.Equal(t, int16(1000), avf.DigitalMax)

	pleth := rec.Channels[1]
	assert.Equal(t, aecg.LeadUnspecified, pleth.Lead)
	assert.Equal(t, "Pleth", pleth.Label)
	assert.Equal(t, aecg.UnitMicroVolt, pleth.Unit)

	// 4 and 2 samples over two seconds.
	assert.Equal(t, 4, rec.SamplesPerRecord)
	assert.Equal(t, 1, rec.NumberOfRecords)
	assert.InDelta(t, 2.0, rec.SampleRate, 1e-12)
	assert.Equal(t, []int16{20, 20, 40, 40}, rec.ChannelSamples(1))
	assert.Equal(t, []int16{20, 40}, rec.NativeSamples(1))
}

func TestToRecordErrors(t *testing.T) {
	valid := func() edf.Header {
		return edf.Header{
			DataRecords:        1,
			DataRecordDuration: time.Second,
			Signals: []edf.Signal{
				{Label: "ECG I", PhysicalDimension: "uV", PhysicalMin: -1, PhysicalMax: 1, DigitalMin: -1, DigitalMax: 1, SamplesPerRecord: 1},
			},
		}
	}

	_, err := edf.ToRecord(valid(), [][]int16{{0}})
	require.NoError(t, err)

	_, err = edf.ToRecord(valid(), nil)
	assert.True(t, errors.Is(err, aecg.ErrMalformedValue))

	hdr := valid()
	hdr.Signals[0].PhysicalDimension = "degC"
	_, err = edf.ToRecord(hdr, [][]int16{{0}})
	assert.True(t, errors.Is(err, aecg.ErrMalformedValue))

	hdr = valid()
	hdr.Signals[0].DigitalMax = hdr.Signals[0].DigitalMin
	_, err = edf.ToRecord(hdr, [][]int16{{0}})
	assert.True(t, errors.Is(err, aecg.ErrMalformedValue))

	hdr = valid()
	hdr.DataRecords = 0
	_, err = edf.ToRecord(hdr, [][]int16{{0}})
	assert.True(t, errors.Is(err, aecg.ErrMissingField))

	hdr = valid()
	hdr.Signals[0].Label = edf.AnnotationsLabel
	_, err = edf.ToRecord(hdr, [][]int16{{0}})
	assert.True(t, errors.Is(err, aecg.ErrMissingField))
}
