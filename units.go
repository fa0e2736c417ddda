// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg

import "math"

// PhysDimCode is an ISO/IEEE 11073 physical dimension code. The low five bits
// select a decimal prefix, the remaining bits the base unit.
type PhysDimCode uint16

const (
	// UnitVolt is the code for volts.
	UnitVolt PhysDimCode = 4256
	// UnitMilliVolt is the code for millivolts.
	UnitMilliVolt PhysDimCode = UnitVolt + 18
	// UnitMicroVolt is the code for microvolts, the amplitude unit of aECG documents.
	UnitMicroVolt PhysDimCode = UnitVolt + 19
)

var prefixScale = [32]float64{
	1e0, 1e1, 1e2, 1e3, 1e6, 1e9, 1e12, 1e15, 1e18, 1e21, 1e24,
	math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(),
	1e-1, 1e-2, 1e-3, 1e-6, 1e-9, 1e-12, 1e-15, 1e-18, 1e-21, 1e-24,
	math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(), math.NaN(),
}

var prefixSymbol = [32]string{
	"", "da", "h", "k", "M", "G", "T", "P", "E", "Z", "Y",
	"", "", "", "", "",
	"d", "c", "m", "u", "n", "p", "f", "a", "z", "y",
}

// Scale returns the multiplier that converts a value in this unit to the base
// unit, e.g. 1e-6 for microvolts. It returns NaN for reserved prefixes.
func (c PhysDimCode) Scale() float64 {
	return prefixScale[c&0x1f]
}

// String returns the unit symbol, e.g. "uV". Only volt based units have a symbol.
func (c PhysDimCode) String() string {
	if c&^0x1f != UnitVolt || math.IsNaN(c.Scale()) {
		return "?"
	}
	return prefixSymbol[c&0x1f] + "V"
}

// ParsePhysDim returns the code of a volt based unit symbol such as "mV".
func ParsePhysDim(s string) (PhysDimCode, bool) {
	for i, p := range prefixSymbol {
		if math.IsNaN(prefixScale[i]) {
			continue
		}
		if p+"V" == s {
			return UnitVolt + PhysDimCode(i), true
		}
	}
	return 0, false
}
