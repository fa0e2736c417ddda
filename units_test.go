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
	"math"
	"testing"

	"github.com/OpenPSG/aecg"
	"github.com/stretchr/testify/assert"
)

func TestPhysDimCode(t *testing.T) {
	assert.Equal(t, 1e-6, aecg.UnitMicroVolt.Scale())
	assert.Equal(t, 1e-3, aecg.UnitMilliVolt.Scale())
	assert.Equal(t, 1.0, aecg.UnitVolt.Scale())
	assert.True(t, math.IsNaN((aecg.UnitVolt + 12).Scale()))

	assert.Equal(t, "uV", aecg.UnitMicroVolt.String())
	assert.Equal(t, "mV", aecg.UnitMilliVolt.String())
	assert.Equal(t, "V", aecg.UnitVolt.String())

	code, ok := aecg.ParsePhysDim("uV")
	assert.True(t, ok)
	assert.Equal(t, aecg.UnitMicroVolt, code)

	_, ok = aecg.ParsePhysDim("degC")
	assert.False(t, ok)
}
