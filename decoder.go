// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/beevik/etree"
)

const rootElement = "AnnotatedECG"

// Control variable codes of the acquisition filters.
const (
	filterNotch    = "MDC_ATTR_FILTER_NOTCH"
	filterLowPass  = "MDC_ATTR_FILTER_LOW_PASS"
	filterHighPass = "MDC_ATTR_FILTER_HIGH_PASS"
)

// Paths relative to the AnnotatedECG element.
var (
	effectiveTimePath = path("effectiveTime")
	trialSubjectPath  = path("componentOf", "timepointEvent", "componentOf", "subjectAssignment", "subject", "trialSubject")
	personPath        = trialSubjectPath.child("subjectDemographicPerson")
	seriesPath        = path("component", "series")
	sequenceSetPath   = seriesPath.child("component", "sequenceSet")
)

// DecodeFile opens and decodes the aECG document at path.
func DecodeFile(path string, opts ...Option) (*Record, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("error opening document: %w: %w", ErrIO, err)
	}
	defer f.Close()

	return Decode(f, opts...)
}

// Decode reads an HL7 Annotated ECG document. Problems with individual fields
// are returned as diagnostics and leave the field at its default value; an
// error is returned only if the document cannot be parsed, the AnnotatedECG
// element is missing, the acquisition start time cannot be determined or the
// channel sample counts have no common length within MaxSamples.
func Decode(r io.Reader, opts ...Option) (*Record, []Diagnostic, error) {
	o := newOptions(opts)

	doc := etree.NewDocument()
	if _, err := doc.ReadFrom(r); err != nil {
		return nil, nil, fmt.Errorf("error parsing document: %w: %w", ErrIO, err)
	}

	root := doc.SelectElement(rootElement)
	if root == nil {
		return nil, nil, fmt.Errorf("%w: no %s element", ErrSchemaMismatch, rootElement)
	}

	d := &decoder{root: root, logger: o.logger}
	rec := &Record{NumberOfRecords: 1}

	if id, ok := path("id").attr(root, "root"); ok {
		rec.ID = id
	} else {
		d.missing(path("id"))
	}

	start, err := d.startTime()
	if err != nil {
		return nil, d.diags, fmt.Errorf("error decoding start time: %w", err)
	}
	rec.StartTime = start

	rec.Patient = d.patient()
	rec.Filters = d.filters()
	if err := d.channels(rec); err != nil {
		return nil, d.diags, fmt.Errorf("error reconciling channels: %w", err)
	}

	return rec, d.diags, nil
}

type decoder struct {
	root   *etree.Element
	logger *slog.Logger
	diags  []Diagnostic
}

func (d *decoder) report(p schemaPath, err error) {
	d.diags = append(d.diags, Diagnostic{Path: p.String(), Err: err})
	d.logger.Warn("Skipping aECG field", slog.String("path", p.String()), slog.Any("error", err))
}

func (d *decoder) missing(p schemaPath) {
	d.report(p, ErrMissingField)
}

// float reads a numeric attribute. Absent and malformed values are reported.
func (d *decoder) float(p schemaPath, key string) (float64, bool) {
	s, ok := p.attr(d.root, key)
	if !ok {
		d.missing(p)
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		d.report(p, fmt.Errorf("%w: %s=%q", ErrMalformedValue, key, s))
		return 0, false
	}
	return v, true
}

// startTime prefers the low bound of the effective time and falls back to its center.
func (d *decoder) startTime() (time.Time, error) {
	for _, bound := range []string{"low", "center"} {
		p := effectiveTimePath.child(bound)
		if v, ok := p.attr(d.root, "value"); ok {
			t, err := ParseTimestamp(v)
			if err != nil {
				return time.Time{}, fmt.Errorf("%s: %w", p, err)
			}
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %s has neither low nor center", ErrSchemaMismatch, effectiveTimePath)
}

func (d *decoder) patient() Patient {
	var p Patient

	if id, ok := trialSubjectPath.child("id").attr(d.root, "extension"); ok {
		p.ID = id
	}

	if name, ok := personPath.child("name").text(d.root); ok {
		p.Name = strings.TrimSpace(name)
	} else {
		d.missing(personPath.child("name"))
	}

	birthPath := personPath.child("birthTime")
	if v, ok := birthPath.attr(d.root, "value"); ok {
		t, err := ParseTimestamp(v)
		if err != nil {
			d.report(birthPath, err)
		} else {
			p.BirthDate = t
		}
	} else {
		d.missing(birthPath)
	}

	sexPath := personPath.child("administrativeGenderCode")
	if code, ok := sexPath.attr(d.root, "code"); ok {
		switch code {
		case "F":
			p.Sex = SexFemale
		case "M":
			p.Sex = SexMale
		}
	} else {
		d.missing(sexPath)
	}

	return p
}

func (d *decoder) filters() Filters {
	var f Filters
	found := make(map[string]bool, 3)

	cvPath := seriesPath.child("controlVariable")
	if series, ok := seriesPath.find(d.root); ok {
		codePath := path("controlVariable", "code")
		valuePath := path("controlVariable", "component", "controlVariable", "value")

		for _, cv := range series.SelectElements("controlVariable") {
			code, ok := codePath.attr(cv, "code")
			if !ok {
				continue
			}

			var target *float64
			switch code {
			case filterNotch:
				target = &f.Notch
			case filterLowPass:
				target = &f.LowPass
			case filterHighPass:
				target = &f.HighPass
			default:
				continue
			}

			s, ok := valuePath.attr(cv, "value")
			if !ok {
				d.report(cvPath.join(valuePath), fmt.Errorf("%w: %s value", ErrMissingField, code))
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				d.report(cvPath.join(valuePath), fmt.Errorf("%w: %s value %q", ErrMalformedValue, code, s))
				continue
			}
			*target = v
			found[code] = true
		}
	}

	for _, code := range []string{filterNotch, filterLowPass, filterHighPass} {
		if !found[code] {
			d.report(cvPath, fmt.Errorf("%w: %s", ErrMissingField, code))
		}
	}

	return f
}

func (d *decoder) channels(rec *Record) error {
	// Position 0 of the sequence set is the time axis shared by all channels.
	axis := sequenceSetPath.nth("component", 0).child("sequence")
	increment, haveIncrement := d.float(axis.child("value", "increment"), "value")

	var sequences []schemaPath
	for i := 1; ; i++ {
		p := sequenceSetPath.nth("component", i).child("sequence")
		if _, ok := p.find(d.root); !ok {
			break
		}
		sequences = append(sequences, p)
	}

	rec.Channels = make([]Channel, len(sequences))
	native := make([][]int16, len(sequences))

	for i, seq := range sequences {
		ch := &rec.Channels[i]
		ch.Transducer = DefaultTransducer
		ch.Unit = UnitMicroVolt
		ch.Filters = rec.Filters
		ch.Calibration = Calibration{Scale: 1}

		if code, ok := seq.child("code").attr(d.root, "code"); ok {
			ch.Label = code
			ch.Lead, _ = LeadFromCode(code)
		} else {
			d.missing(seq.child("code"))
		}

		native[i] = d.digits(seq.child("value", "digits"))
		ch.SamplesPerChannel = len(native[i])

		if v, ok := d.float(seq.child("value", "scale"), "value"); ok {
			ch.Calibration.Scale = v
		}
		if v, ok := d.float(seq.child("value", "origin"), "value"); ok {
			ch.Calibration.Offset = v
		}

		ch.SetExtrema(native[i])
	}

	var err error
	if rec.SamplesPerRecord, rec.Samples, err = Reconcile(native); err != nil {
		return err
	}

	if haveIncrement && increment > 0 {
		// The increment is the native sampling interval. Scaled by the
		// reconciled sample count it gives the record duration, from which
		// the reconciled rate follows.
		duration := increment * float64(rec.SamplesPerRecord)
		rec.SampleRate = float64(rec.SamplesPerRecord) / duration
	} else if haveIncrement {
		d.report(axis.child("value", "increment"), fmt.Errorf("%w: increment %v is not positive", ErrMalformedValue, increment))
	}

	return nil
}

// digits tokenizes a whitespace separated digit list. Tokens outside the
// int16 range are clamped, unparsable tokens become zero; both are reported.
func (d *decoder) digits(p schemaPath) []int16 {
	text, ok := p.text(d.root)
	if !ok {
		d.missing(p)
		return nil
	}

	tokens := strings.Fields(text)
	out := make([]int16, len(tokens))
	bad := 0
	for j, tok := range tokens {
		v, err := strconv.ParseInt(tok, 10, 16)
		if err != nil {
			bad++
			if !errors.Is(err, strconv.ErrRange) {
				v = 0
			}
		}
		out[j] = int16(v)
	}
	if bad > 0 {
		d.report(p, fmt.Errorf("%w: %d of %d digits", ErrMalformedValue, bad, len(tokens)))
	}

	return out
}
