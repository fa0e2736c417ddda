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
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"github.com/google/uuid"
)

const (
	mdcCodeSystem  = "2.16.840.1.113883.6.24"
	cptCodeSystem  = "2.16.840.1.113883.6.12"
	sexCodeSystem  = "2.16.840.1.113883.5.1"
	actCodeSystem  = "2.16.840.1.113883.5.4"
	schemaLocation = "urn:hl7-org:v3/HL7/aECG/2003-12/schema/PORT_MT020001.xsd"
)

// controlVariables lists the filter blocks in the order they are written.
var controlVariables = []struct {
	code, displayName       string
	valueCode, valueDisplay string
	value                   func(Filters) float64
}{
	{filterNotch, "Notch Filter", "MDC_ATTR_NOTCH_FREQ", "Notch Frequency", func(f Filters) float64 { return f.Notch }},
	{filterLowPass, "Low Pass Filter", "MDC_ATTR_FILTER_CUTOFF_FREQ", "Cutoff Frequency", func(f Filters) float64 { return f.LowPass }},
	{filterHighPass, "High Pass Filter", "MDC_ATTR_FILTER_CUTOFF_FREQ", "Cutoff Frequency", func(f Filters) float64 { return f.HighPass }},
}

// EncodeFile writes rec as an aECG document to path. The document is built
// completely before the file is created.
func EncodeFile(rec *Record, path string, opts ...Option) error {
	doc, err := buildDocument(rec, newOptions(opts))
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("error creating document: %w: %w", ErrIO, err)
	}

	if _, err := doc.WriteTo(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("error writing document: %w: %w", ErrIO, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("error closing document: %w: %w", ErrIO, err)
	}

	return nil
}

// Encode writes rec to w as an HL7 Annotated ECG document. Records missing
// required fields are rejected with ErrMissingField before anything is written.
func Encode(w io.Writer, rec *Record, opts ...Option) error {
	doc, err := buildDocument(rec, newOptions(opts))
	if err != nil {
		return err
	}

	if _, err := doc.WriteTo(w); err != nil {
		return fmt.Errorf("error writing document: %w: %w", ErrIO, err)
	}

	return nil
}

func validate(rec *Record) error {
	if rec == nil {
		return fmt.Errorf("%w: record", ErrMissingField)
	}
	if rec.StartTime.IsZero() {
		return fmt.Errorf("%w: start time", ErrMissingField)
	}
	if !(rec.SampleRate > 0) || math.IsInf(rec.SampleRate, 0) {
		return fmt.Errorf("%w: sample rate %v", ErrMissingField, rec.SampleRate)
	}
	if len(rec.Channels) == 0 {
		return fmt.Errorf("%w: channels", ErrMissingField)
	}
	if rec.SamplesPerRecord < 1 || rec.NumberOfRecords < 1 {
		return fmt.Errorf("%w: record framing (%d samples x %d records)", ErrMissingField, rec.SamplesPerRecord, rec.NumberOfRecords)
	}
	if !timestampInRange(rec.StartTime) || !timestampInRange(rec.StartTime.Add(rec.Duration())) {
		return fmt.Errorf("%w: recording time %s is outside years 0-9999", ErrMalformedTimestamp, rec.StartTime.UTC())
	}
	if b := rec.Patient.BirthDate; !b.IsZero() && !timestampInRange(b) {
		return fmt.Errorf("%w: birth date %s is outside years 0-9999", ErrMalformedTimestamp, b.UTC())
	}

	n := rec.SamplesPerRecord * rec.NumberOfRecords
	if len(rec.Samples) < len(rec.Channels)*n {
		return fmt.Errorf("%w: samples (have %d, need %d)", ErrMissingField, len(rec.Samples), len(rec.Channels)*n)
	}

	for i, ch := range rec.Channels {
		if ch.Lead.Code() == "" && ch.Label == "" {
			return fmt.Errorf("%w: channel %d lead code", ErrMissingField, i)
		}
		if ch.SamplesPerChannel < 0 || (ch.SamplesPerChannel > 0 && n%ch.SamplesPerChannel != 0) {
			return fmt.Errorf("%w: channel %d has %d samples, which does not divide %d", ErrMalformedValue, i, ch.SamplesPerChannel, n)
		}
		if s := ch.Unit.Scale(); math.IsNaN(s) {
			return fmt.Errorf("%w: channel %d unit %d", ErrMalformedValue, i, ch.Unit)
		}
	}

	return nil
}

func buildDocument(rec *Record, o options) (*etree.Document, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}

	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	root := doc.CreateElement(rootElement)
	setAttrs(root,
		"xmlns", "urn:hl7-org:v3",
		"xmlns:voc", "urn:hl7-org:v3/voc",
		"xmlns:xsi", "http://www.w3.org/2001/XMLSchema-instance",
		"xsi:schemaLocation", schemaLocation,
		"classCode", "OBS",
		"moodCode", "EVN")

	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}
	addElement(root, "id", "root", id)
	addElement(root, "code",
		"code", "93000",
		"codeSystem", cptCodeSystem,
		"codeSystemName", "CPT-4")

	low := FormatTimestamp(rec.StartTime)
	high := FormatTimestamp(rec.StartTime.Add(rec.Duration()))
	addEffectiveTime(root, low, high)

	addSubject(root, rec.Patient, id, o.clinicalTrialID)

	component := addElement(root, "component", "typeCode", "COMP", "contextConductionInd", "true")
	series := addElement(component, "series", "classCode", "OBSSER", "moodCode", "EVN")
	addElement(series, "code", "code", "RHYTHM", "codeSystem", actCodeSystem)
	addEffectiveTime(series, low, high)

	// Filters can only be expressed once per series, the first channel stands in for all.
	addControlVariables(series, rec.Channels[0].Filters)

	seriesComponent := addElement(series, "component", "typeCode", "COMP", "contextConductionInd", "true")
	sequenceSet := addElement(seriesComponent, "sequenceSet", "classCode", "OBSCOR", "moodCode", "EVN")

	axis := addSequence(sequenceSet)
	addElement(axis, "code", "code", "TIME_ABSOLUTE", "codeSystem", mdcCodeSystem)
	axisValue := addElement(axis, "value", "xsi:type", "GLIST_TS")
	addElement(axisValue, "head", "value", low, "unit", "s")
	addElement(axisValue, "increment", "value", formatFloat(1/rec.SampleRate), "unit", "s")

	for i, ch := range rec.Channels {
		seq := addSequence(sequenceSet)

		code := ch.Lead.Code()
		if code == "" {
			code = ch.Label
		}
		addElement(seq, "code", "code", code, "codeSystem", mdcCodeSystem, "codeSystemName", "MDC")

		// Convert the channel unit to the microvolts the schema expects.
		toMicroVolt := ch.Unit.Scale() * 1e6

		value := addElement(seq, "value", "xsi:type", "SLIST_PQ")
		addElement(value, "origin", "value", formatFloat(ch.Calibration.Offset*toMicroVolt), "unit", "uV")
		addElement(value, "scale", "value", formatFloat(ch.Calibration.Scale*toMicroVolt), "unit", "uV")
		addElement(value, "digits").SetText(joinDigits(rec.NativeSamples(i)))
	}

	doc.Indent(2)

	return doc, nil
}

func addSubject(root *etree.Element, p Patient, documentID, trialID string) {
	componentOf := addElement(root, "componentOf", "typeCode", "COMP", "contextConductionInd", "true")
	event := addElement(componentOf, "timepointEvent", "classCode", "CTTEVENT", "moodCode", "EVN")
	eventComponentOf := addElement(event, "componentOf", "typeCode", "COMP", "contextConductionInd", "true")
	assignment := addElement(eventComponentOf, "subjectAssignment", "classCode", "CLNTRL", "moodCode", "EVN")
	subject := addElement(assignment, "subject", "typeCode", "SBJ", "contextControlCode", "OP")
	trialSubject := addElement(subject, "trialSubject", "classCode", "RESBJ")

	if p.ID != "" {
		addElement(trialSubject, "id", "extension", p.ID)
	}

	person := addElement(trialSubject, "subjectDemographicPerson", "classCode", "PSN", "determinerCode", "INSTANCE")
	addElement(person, "name").SetText(p.Name)

	code, display := "UN", "Undefined"
	switch p.Sex {
	case SexMale:
		code, display = "M", "Male"
	case SexFemale:
		code, display = "F", "Female"
	}
	addElement(person, "administrativeGenderCode",
		"code", code,
		"displayName", display,
		"codeSystem", sexCodeSystem,
		"codeSystemName", "AdministrativeGender")

	if !p.BirthDate.IsZero() {
		addElement(person, "birthTime", "value", FormatTimestamp(p.BirthDate))
	}

	assignmentComponentOf := addElement(assignment, "componentOf", "typeCode", "COMP", "contextConductionInd", "true")
	trial := addElement(assignmentComponentOf, "clinicalTrial", "classCode", "CLNTRL", "moodCode", "EVN")
	addElement(trial, "id", "root", documentID, "extension", trialID)
}

func addControlVariables(series *etree.Element, f Filters) {
	for _, cv := range controlVariables {
		outer := addElement(series, "controlVariable", "typeCode", "CTRLV")
		inner := addElement(outer, "controlVariable", "classCode", "OBS")
		addElement(inner, "code",
			"code", cv.code,
			"codeSystem", mdcCodeSystem,
			"codeSystemName", "MDC",
			"displayName", cv.displayName)

		component := addElement(inner, "component", "typeCode", "COMP")
		setting := addElement(component, "controlVariable", "classCode", "OBS")
		addElement(setting, "code",
			"code", cv.valueCode,
			"codeSystem", mdcCodeSystem,
			"codeSystemName", "MDC",
			"displayName", cv.valueDisplay)
		addElement(setting, "value",
			"xsi:type", "PQ",
			"value", formatFloat(cv.value(f)),
			"unit", "Hz")
	}
}

func addEffectiveTime(parent *etree.Element, low, high string) {
	et := addElement(parent, "effectiveTime")
	addElement(et, "low", "value", low)
	addElement(et, "high", "value", high)
}

func addSequence(sequenceSet *etree.Element) *etree.Element {
	component := addElement(sequenceSet, "component", "typeCode", "COMP", "contextConductionInd", "true")
	return addElement(component, "sequence", "classCode", "OBS", "moodCode", "EVN")
}

// addElement appends a child element with attributes given as key/value pairs.
func addElement(parent *etree.Element, tag string, attrs ...string) *etree.Element {
	e := parent.CreateElement(tag)
	setAttrs(e, attrs...)
	return e
}

func setAttrs(e *etree.Element, attrs ...string) {
	for i := 0; i+1 < len(attrs); i += 2 {
		e.CreateAttr(attrs[i], attrs[i+1])
	}
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func joinDigits(samples []int16) string {
	var b strings.Builder
	b.Grow(len(samples) * 6)
	buf := make([]byte, 0, 8)
	for j, v := range samples {
		if j > 0 {
			b.WriteByte(' ')
		}
		buf = strconv.AppendInt(buf[:0], int64(v), 10)
		b.Write(buf)
	}
	return b.String()
}
