// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg

import "strings"

// Lead identifies a standard ECG lead. The numeric values follow the
// ISO/IEEE 11073 lead vocabulary used by the GDF format.
type Lead int

const (
	LeadUnspecified Lead = 0
	LeadI           Lead = 1
	LeadII          Lead = 2
	LeadV1          Lead = 3
	LeadV2          Lead = 4
	LeadV3          Lead = 5
	LeadV4          Lead = 6
	LeadV5          Lead = 7
	LeadV6          Lead = 8
	LeadIII         Lead = 61
	LeadAVR         Lead = 62
	LeadAVL         Lead = 63
	LeadAVF         Lead = 64
)

// leadCodePrefix is the common prefix of MDC lead codes.
const leadCodePrefix = "MDC_ECG_LEAD_"

var leadSuffixes = map[Lead]string{
	LeadI:   "I",
	LeadII:  "II",
	LeadIII: "III",
	LeadAVR: "AVR",
	LeadAVL: "AVL",
	LeadAVF: "AVF",
	LeadV1:  "V1",
	LeadV2:  "V2",
	LeadV3:  "V3",
	LeadV4:  "V4",
	LeadV5:  "V5",
	LeadV6:  "V6",
}

var leadsBySuffix = func() map[string]Lead {
	m := make(map[string]Lead, len(leadSuffixes))
	for l, s := range leadSuffixes {
		m[s] = l
	}
	return m
}()

// StandardLeads returns the twelve leads of the standard ECG in their
// conventional display order.
func StandardLeads() []Lead {
	return []Lead{LeadI, LeadII, LeadIII, LeadAVR, LeadAVL, LeadAVF, LeadV1, LeadV2, LeadV3, LeadV4, LeadV5, LeadV6}
}

// LeadFromCode maps an MDC lead code such as "MDC_ECG_LEAD_AVF" to a Lead.
// Codes outside the standard vocabulary return LeadUnspecified and false.
func LeadFromCode(code string) (Lead, bool) {
	suffix, ok := strings.CutPrefix(code, leadCodePrefix)
	if !ok {
		return LeadUnspecified, false
	}
	l, ok := leadsBySuffix[suffix]
	return l, ok
}

// Code returns the MDC code of the lead, or "" for leads outside the vocabulary.
func (l Lead) Code() string {
	s, ok := leadSuffixes[l]
	if !ok {
		return ""
	}
	return leadCodePrefix + s
}

func (l Lead) String() string {
	switch l {
	case LeadAVR:
		return "aVR"
	case LeadAVL:
		return "aVL"
	case LeadAVF:
		return "aVF"
	}
	if s, ok := leadSuffixes[l]; ok {
		return s
	}
	return "unspecified"
}
