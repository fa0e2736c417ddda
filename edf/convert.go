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
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/OpenPSG/aecg"
)

const (
	// AnnotationsLabel is the label of the EDF+ annotation signal.
	AnnotationsLabel = "EDF Annotations"

	labelPrefix     = "ECG "
	edfPlusDate     = "02-Jan-2006"
	edfPlusNotKnown = "X"
)

// Options controls the conversion of records into EDF.
type Options struct {
	// Transducer is used for channels that do not name one.
	Transducer string
	// MaxRecordBytes bounds the size of a data record, MaxRecordBytes if zero.
	MaxRecordBytes int
}

// FromRecord converts an aECG record into an EDF+ header and its data records.
// The returned data is indexed by data record, then signal. Channels keep their
// native density, the recording is split into the fewest data records that
// fit the size limit.
func FromRecord(rec *aecg.Record, opts Options) (Header, [][][]int16, error) {
	if opts.Transducer == "" {
		opts.Transducer = aecg.DefaultTransducer
	}
	if opts.MaxRecordBytes <= 0 {
		opts.MaxRecordBytes = MaxRecordBytes
	}

	if rec == nil || len(rec.Channels) == 0 {
		return Header{}, nil, fmt.Errorf("%w: channels", aecg.ErrMissingField)
	}
	duration := rec.Duration()
	if duration <= 0 {
		return Header{}, nil, fmt.Errorf("%w: recording duration", aecg.ErrMissingField)
	}

	native := make([][]int16, len(rec.Channels))
	g := 0
	for i, ch := range rec.Channels {
		native[i] = rec.NativeSamples(i)
		if len(native[i]) == 0 {
			return Header{}, nil, fmt.Errorf("%w: channel %d has no samples", aecg.ErrMissingField, i)
		}
		g = aecg.GCD(g, len(native[i]))
		if ch.Calibration.Scale == 0 {
			return Header{}, nil, fmt.Errorf("%w: channel %d has a zero scale", aecg.ErrMalformedValue, i)
		}
	}

	records, err := recordCount(native, g, opts.MaxRecordBytes)
	if err != nil {
		return Header{}, nil, err
	}

	hdr := Header{
		Version:            Version0,
		PatientID:          patientField(rec.Patient),
		RecordingID:        recordingField(rec),
		StartTime:          rec.StartTime,
		Reserved:           ReservedEDFPlusContinuous,
		DataRecordDuration: duration / time.Duration(records),
		SignalCount:        len(rec.Channels),
		Signals:            make([]Signal, len(rec.Channels)),
	}
	hdr.HeaderBytes = 256 + hdr.SignalCount*signalHeaderBytes

	for i, ch := range rec.Channels {
		transducer := ch.Transducer
		if transducer == "" {
			transducer = opts.Transducer
		}
		dimension := ch.Unit.String()
		if dimension == "?" {
			dimension = ""
		}

		hdr.Signals[i] = Signal{
			Label:             channelLabel(ch),
			TransducerType:    transducer,
			PhysicalDimension: dimension,
			PhysicalMin:       ch.Calibration.Physical(math.MinInt16),
			PhysicalMax:       ch.Calibration.Physical(math.MaxInt16),
			DigitalMin:        math.MinInt16,
			DigitalMax:        math.MaxInt16,
			Prefiltering:      prefiltering(ch.Filters),
			SamplesPerRecord:  len(native[i]) / records,
		}
	}

	data := make([][][]int16, records)
	for r := range data {
		data[r] = make([][]int16, len(native))
		for i, samples := range native {
			n := hdr.Signals[i].SamplesPerRecord
			data[r][i] = samples[r*n : (r+1)*n]
		}
	}

	return hdr, data, nil
}

// recordCount returns the smallest divisor of g that splits the channels into
// data records no larger than maxBytes.
func recordCount(channels [][]int16, g, maxBytes int) (int, error) {
	total := 0
	for _, ch := range channels {
		total += 2 * len(ch)
	}

	for k := 1; k <= g; k++ {
		if g%k == 0 && total/k <= maxBytes {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: channels cannot be split into data records of at most %d bytes", aecg.ErrMalformedValue, maxBytes)
}

// ToRecord converts an EDF header and the concatenated digital samples of each
// signal, as returned by Reader.ReadDigital, into an aECG record. Signals with
// different sample counts are reconciled onto a common length. EDF+
// annotation signals are skipped.
func ToRecord(hdr Header, signals [][]int16) (*aecg.Record, error) {
	if len(signals) != len(hdr.Signals) {
		return nil, fmt.Errorf("%w: expected %d signals, got %d", aecg.ErrMalformedValue, len(hdr.Signals), len(signals))
	}

	rec := &aecg.Record{
		StartTime:       hdr.StartTime,
		NumberOfRecords: 1,
		Patient:         parsePatientField(hdr.PatientID),
		ID:              parseRecordingField(hdr.RecordingID),
	}

	var channels [][]int16
	for i, s := range hdr.Signals {
		if s.Label == AnnotationsLabel {
			continue
		}
		if s.DigitalMax <= s.DigitalMin {
			return nil, fmt.Errorf("%w: signal %d digital range [%d, %d]", aecg.ErrMalformedValue, i, s.DigitalMin, s.DigitalMax)
		}

		unit := aecg.UnitMicroVolt
		if s.PhysicalDimension != "" {
			var ok bool
			if unit, ok = aecg.ParsePhysDim(s.PhysicalDimension); !ok {
				return nil, fmt.Errorf("%w: signal %d physical dimension %q", aecg.ErrMalformedValue, i, s.PhysicalDimension)
			}
		}

		scale := (s.PhysicalMax - s.PhysicalMin) / float64(s.DigitalMax-s.DigitalMin)
		ch := aecg.Channel{
			Label:             s.Label,
			Transducer:        s.TransducerType,
			SamplesPerChannel: len(signals[i]),
			Calibration: aecg.Calibration{
				Scale:  scale,
				Offset: s.PhysicalMin - float64(s.DigitalMin)*scale,
			},
			Unit:    unit,
			Filters: parsePrefiltering(s.Prefiltering),
		}
		if lead, ok := leadFromLabel(s.Label); ok {
			ch.Lead = lead
			ch.Label = lead.Code()
		}
		ch.SetExtrema(signals[i])

		rec.Channels = append(rec.Channels, ch)
		channels = append(channels, signals[i])
	}
	if len(rec.Channels) == 0 {
		return nil, fmt.Errorf("%w: signals", aecg.ErrMissingField)
	}
	rec.Filters = rec.Channels[0].Filters

	var err error
	if rec.SamplesPerRecord, rec.Samples, err = aecg.Reconcile(channels); err != nil {
		return nil, err
	}

	seconds := float64(hdr.DataRecords) * hdr.DataRecordDuration.Seconds()
	if seconds <= 0 {
		return nil, fmt.Errorf("%w: recording duration", aecg.ErrMissingField)
	}
	rec.SampleRate = float64(rec.SamplesPerRecord) / seconds

	return rec, nil
}

// Encode writes rec to w as an EDF+ file.
func Encode(w io.WriteSeeker, rec *aecg.Record, opts Options) error {
	hdr, data, err := FromRecord(rec, opts)
	if err != nil {
		return err
	}

	ew, err := Create(w, hdr)
	if err != nil {
		return err
	}
	for r, signals := range data {
		if err := ew.WriteDigitalRecord(signals); err != nil {
			return fmt.Errorf("error writing data record %d: %w", r, err)
		}
	}

	return ew.Close()
}

// Decode reads an EDF or EDF+ file into an aECG record.
func Decode(r io.ReadSeeker) (*aecg.Record, error) {
	er, err := Open(r)
	if err != nil {
		return nil, err
	}

	signals, err := er.ReadDigital()
	if err != nil {
		return nil, err
	}

	return ToRecord(er.Header(), signals)
}

func channelLabel(ch aecg.Channel) string {
	if ch.Lead != aecg.LeadUnspecified {
		return labelPrefix + ch.Lead.String()
	}
	return ch.Label
}

func leadFromLabel(label string) (aecg.Lead, bool) {
	if lead, ok := aecg.LeadFromCode(label); ok {
		return lead, true
	}

	name := strings.TrimSpace(strings.TrimPrefix(label, labelPrefix))
	for _, lead := range aecg.StandardLeads() {
		if strings.EqualFold(lead.String(), name) {
			return lead, true
		}
	}
	return aecg.LeadUnspecified, false
}

// subfield makes a value usable as a space separated EDF+ subfield.
func subfield(s string) string {
	s = strings.Join(strings.Fields(s), "_")
	if s == "" {
		return edfPlusNotKnown
	}
	return s
}

func patientField(p aecg.Patient) string {
	sex := edfPlusNotKnown
	switch p.Sex {
	case aecg.SexMale:
		sex = "M"
	case aecg.SexFemale:
		sex = "F"
	}

	birth := edfPlusNotKnown
	if !p.BirthDate.IsZero() {
		birth = strings.ToUpper(p.BirthDate.Format(edfPlusDate))
	}

	return strings.Join([]string{subfield(p.ID), sex, birth, subfield(p.Name)}, " ")
}

// parsePatientField reads an EDF+ patient field. Plain EDF fields are kept
// whole as the patient identifier.
func parsePatientField(s string) aecg.Patient {
	fields := strings.Fields(s)
	if len(fields) < 4 {
		return aecg.Patient{ID: s}
	}

	var p aecg.Patient
	if fields[0] != edfPlusNotKnown {
		p.ID = fields[0]
	}
	switch fields[1] {
	case "M":
		p.Sex = aecg.SexMale
	case "F":
		p.Sex = aecg.SexFemale
	}
	if t, err := time.Parse(edfPlusDate, fields[2]); err == nil {
		p.BirthDate = t
	}
	if name := strings.Join(fields[3:], " "); name != edfPlusNotKnown {
		p.Name = strings.ReplaceAll(name, "_", " ")
	}

	return p
}

func recordingField(rec *aecg.Record) string {
	return strings.Join([]string{
		"Startdate",
		strings.ToUpper(rec.StartTime.Format(edfPlusDate)),
		subfield(rec.ID),
		edfPlusNotKnown,
		edfPlusNotKnown,
	}, " ")
}

// parseRecordingField returns the administration code of an EDF+ recording
// field, which carries the document identifier.
func parseRecordingField(s string) string {
	fields := strings.Fields(s)
	if len(fields) < 3 || fields[0] != "Startdate" || fields[2] == edfPlusNotKnown {
		return ""
	}
	return fields[2]
}

func prefiltering(f aecg.Filters) string {
	var parts []string
	for _, p := range []struct {
		prefix string
		value  float64
	}{
		{"HP:", f.HighPass},
		{"LP:", f.LowPass},
		{"N:", f.Notch},
	} {
		if p.value > 0 {
			parts = append(parts, p.prefix+strconv.FormatFloat(p.value, 'f', -1, 64)+"Hz")
		}
	}
	return strings.Join(parts, " ")
}

func parsePrefiltering(s string) aecg.Filters {
	var f aecg.Filters
	for _, tok := range strings.Fields(s) {
		key, value, ok := strings.Cut(tok, ":")
		if !ok {
			continue
		}
		v, err := strconv.ParseFloat(strings.TrimSuffix(value, "Hz"), 64)
		if err != nil {
			continue
		}
		switch key {
		case "HP":
			f.HighPass = v
		case "LP":
			f.LowPass = v
		case "N":
			f.Notch = v
		}
	}
	return f
}
