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
	"testing"

	"github.com/OpenPSG/aecg"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLCM(t *testing.T) {
	assert.Equal(t, 240, aecg.LCM(120, 240))
	assert.Equal(t, 12, aecg.LCM(4, 6))
	assert.Equal(t, 7, aecg.LCM(7, 1))
	assert.Equal(t, 50, aecg.LCM(0, 50))
	assert.Equal(t, 50, aecg.LCM(50, 0))
	assert.Equal(t, 0, aecg.LCM(0, 0))
	assert.Equal(t, 6, aecg.GCD(12, 18))
	assert.Equal(t, 5, aecg.GCD(0, 5))
}

func TestReconcileSamplesPerRecord(t *testing.T) {
	for _, tt := range []struct {
		counts []int
		want   int
	}{
		{[]int{120, 240, 80}, 240},
		{[]int{0, 50}, 50},
		{nil, 1},
		{[]int{0, 0}, 1},
	} {
		got, err := aecg.ReconcileSamplesPerRecord(tt.counts)
		require.NoError(t, err, "%v", tt.counts)
		assert.Equal(t, tt.want, got, "%v", tt.counts)
	}
}

func TestReconcileSamplesPerRecordOverflow(t *testing.T) {
	for _, counts := range [][]int{
		// Pairwise coprime counts whose product overflows int64.
		{7001, 7013, 7019, 7027, 7039},
		{1009, 1013, 1019},
		{aecg.MaxSamples + 1},
		{-4},
	} {
		_, err := aecg.ReconcileSamplesPerRecord(counts)
		assert.ErrorIs(t, err, aecg.ErrMalformedValue, "%v", counts)
	}

	spr, err := aecg.ReconcileSamplesPerRecord([]int{aecg.MaxSamples, aecg.MaxSamples / 2})
	require.NoError(t, err)
	assert.Equal(t, aecg.MaxSamples, spr)
}

func TestReconcileBufferLimit(t *testing.T) {
	// 8192 and 19683 reconcile to 161243136 samples per channel, which
	// fits once but not twice.
	channels := [][]int16{make([]int16, 1<<13), make([]int16, 19683)}

	spr, err := aecg.ReconcileSamplesPerRecord([]int{1 << 13, 19683})
	require.NoError(t, err)
	assert.Equal(t, 161243136, spr)

	_, samples, err := aecg.Reconcile(channels)
	assert.ErrorIs(t, err, aecg.ErrMalformedValue)
	assert.Nil(t, samples)
}

// incrementalBufferSize grows the buffer after every channel, recomputing the
// common sample count each time, the way a streaming decoder would.
func incrementalBufferSize(counts []int, records int) (spr, size int) {
	spr = 1
	for i, n := range counts {
		spr = aecg.LCM(spr, n)
		next := 2 * (i + 1) * len(counts) * spr * records
		size = max(size, next)
	}
	return spr, size
}

func TestReconcileMatchesIncrementalGrowth(t *testing.T) {
	for _, counts := range [][]int{
		{120, 240, 80},
		{0, 50},
		{5000, 2500, 1000, 500},
		{7, 11, 13},
		{1},
	} {
		spr, _ := incrementalBufferSize(counts, 1)
		got, err := aecg.ReconcileSamplesPerRecord(counts)
		require.NoError(t, err)
		assert.Equal(t, spr, got, "%v", counts)

		channels := make([][]int16, len(counts))
		for i, n := range counts {
			channels[i] = make([]int16, n)
		}
		gotSPR, samples, err := aecg.Reconcile(channels)
		require.NoError(t, err)
		assert.Equal(t, spr, gotSPR)
		// The incremental form over-allocates; the single allocation holds
		// exactly channels x samples per record 16-bit values.
		assert.Len(t, samples, len(counts)*spr)
	}
}

func TestReconcile(t *testing.T) {
	spr, samples, err := aecg.Reconcile([][]int16{
		{1, 2, 3},
		{4, 5},
		{},
		{6},
	})

	require.NoError(t, err)
	assert.Equal(t, 6, spr)
	assert.Equal(t, []int16{
		1, 1, 2, 2, 3, 3,
		4, 4, 4, 5, 5, 5,
		0, 0, 0, 0, 0, 0,
		6, 6, 6, 6, 6, 6,
	}, samples)
}

func TestDecimate(t *testing.T) {
	assert.Equal(t, []int16{4, 5}, aecg.Decimate([]int16{4, 4, 4, 5, 5, 5}, 2))
	assert.Equal(t, []int16{1, 2}, aecg.Decimate([]int16{1, 2}, 2))
	assert.Nil(t, aecg.Decimate([]int16{1, 2, 3}, 2))
	assert.Nil(t, aecg.Decimate([]int16{1, 2}, 0))
}
