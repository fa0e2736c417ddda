// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg_test

import (
	"fmt"
	"strconv"
	"strings"
)

type testLead struct {
	code   string
	digits []int
	scale  string
	origin string
}

// testDocument describes a minimal aECG document for tests. Empty strings
// leave the corresponding element out.
type testDocument struct {
	start     string
	center    string
	name      string
	birthTime string
	sex       string
	increment string
	filters   map[string]string
	leads     []testLead
}

func (d testDocument) String() string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	b.WriteString(`<AnnotatedECG xmlns="urn:hl7-org:v3" xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance">`)
	b.WriteString(`<id root="doc-1"/>`)

	b.WriteString(`<effectiveTime>`)
	if d.start != "" {
		fmt.Fprintf(&b, `<low value="%s"/>`, d.start)
	}
	if d.center != "" {
		fmt.Fprintf(&b, `<center value="%s"/>`, d.center)
	}
	b.WriteString(`</effectiveTime>`)

	b.WriteString(`<componentOf><timepointEvent><componentOf><subjectAssignment><subject><trialSubject>`)
	b.WriteString(`<subjectDemographicPerson>`)
	if d.name != "" {
		fmt.Fprintf(&b, `<name>%s</name>`, d.name)
	}
	if d.sex != "" {
		fmt.Fprintf(&b, `<administrativeGenderCode code="%s"/>`, d.sex)
	}
	if d.birthTime != "" {
		fmt.Fprintf(&b, `<birthTime value="%s"/>`, d.birthTime)
	}
	b.WriteString(`</subjectDemographicPerson>`)
	b.WriteString(`</trialSubject></subject></subjectAssignment></componentOf></timepointEvent></componentOf>`)

	b.WriteString(`<component><series>`)
	for code, value := range d.filters {
		fmt.Fprintf(&b, `<controlVariable><controlVariable><code code="%s"/><component><controlVariable><value xsi:type="PQ" value="%s" unit="Hz"/></controlVariable></component></controlVariable></controlVariable>`, code, value)
	}
	b.WriteString(`<component><sequenceSet>`)
	b.WriteString(`<component><sequence><code code="TIME_ABSOLUTE"/><value>`)
	if d.increment != "" {
		fmt.Fprintf(&b, `<increment value="%s" unit="s"/>`, d.increment)
	}
	b.WriteString(`</value></sequence></component>`)
	for _, l := range d.leads {
		scale, origin := l.scale, l.origin
		if scale == "" {
			scale = "1"
		}
		if origin == "" {
			origin = "0"
		}
		fmt.Fprintf(&b, `<component><sequence><code code="%s"/><value><origin value="%s" unit="uV"/><scale value="%s" unit="uV"/><digits>%s</digits></value></sequence></component>`,
			l.code, origin, scale, joinInts(l.digits))
	}
	b.WriteString(`</sequenceSet></component></series></component>`)
	b.WriteString(`</AnnotatedECG>`)

	return b.String()
}

func validDocument() testDocument {
	return testDocument{
		start:     "20070524101530.000",
		name:      "John Doe",
		birthTime: "19700101000000",
		sex:       "M",
		increment: "0.005",
		filters: map[string]string{
			"MDC_ATTR_FILTER_NOTCH":     "60",
			"MDC_ATTR_FILTER_LOW_PASS":  "100",
			"MDC_ATTR_FILTER_HIGH_PASS": "0.5",
		},
		leads: []testLead{
			{code: "MDC_ECG_LEAD_I", digits: ramp(100, 1)},
			{code: "MDC_ECG_LEAD_V1", digits: ramp(200, -2)},
		},
	}
}

func ramp(n, step int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i * step
	}
	return out
}

func joinInts(v []int) string {
	s := make([]string, len(v))
	for i, x := range v {
		s[i] = strconv.Itoa(x)
	}
	return strings.Join(s, " ")
}
