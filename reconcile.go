// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg

import "fmt"

// GCD returns the greatest common divisor of a and b.
func GCD(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

// LCM returns the least common multiple of a and b. A zero operand is treated
// as the identity, so LCM(n, 0) == n. This lets channels without samples take
// part in reconciliation without collapsing the common grid to zero.
func LCM(a, b int) int {
	switch {
	case a == 0:
		return b
	case b == 0:
		return a
	}
	l := a / GCD(a, b) * b
	if l < 0 {
		return -l
	}
	return l
}

// MaxSamples bounds the reconciled sample buffer of a record, counted over
// all channels.
const MaxSamples = 1 << 28

// ReconcileSamplesPerRecord returns the smallest sample count per record on
// which every channel count divides evenly, starting from 1. Counts whose
// common multiple exceeds MaxSamples are rejected.
func ReconcileSamplesPerRecord(counts []int) (int, error) {
	spr := 1
	for _, n := range counts {
		if n < 0 {
			return 0, fmt.Errorf("%w: negative sample count %d", ErrMalformedValue, n)
		}
		if n == 0 {
			continue
		}
		if f := spr / GCD(spr, n); f > MaxSamples/n {
			return 0, fmt.Errorf("%w: sample counts %v have no common length within %d samples", ErrMalformedValue, counts, MaxSamples)
		}
		spr = LCM(spr, n)
	}
	return spr, nil
}

// Reconcile packs channels with different native sample counts into a single
// channel-major buffer. Every channel is oversampled by repetition to the
// reconciled length, so no native sample is lost. The buffer is allocated once
// and never holds more than MaxSamples values.
func Reconcile(channels [][]int16) (samplesPerRecord int, samples []int16, err error) {
	counts := make([]int, len(channels))
	for i, ch := range channels {
		counts[i] = len(ch)
	}
	if samplesPerRecord, err = ReconcileSamplesPerRecord(counts); err != nil {
		return 0, nil, err
	}
	if len(channels) > 0 && samplesPerRecord > MaxSamples/len(channels) {
		return 0, nil, fmt.Errorf("%w: %d channels of %d samples exceed %d samples", ErrMalformedValue, len(channels), samplesPerRecord, MaxSamples)
	}

	samples = make([]int16, len(channels)*samplesPerRecord)
	for i, ch := range channels {
		Oversample(samples[i*samplesPerRecord:(i+1)*samplesPerRecord], ch)
	}

	return samplesPerRecord, samples, nil
}

// Oversample fills dst by repeating each value of src len(dst)/len(src) times.
// len(dst) must be a multiple of len(src). An empty src leaves dst zeroed.
func Oversample(dst, src []int16) {
	if len(src) == 0 {
		clear(dst)
		return
	}
	factor := len(dst) / len(src)
	for j := range dst {
		dst[j] = src[j/factor]
	}
}

// Decimate reverses Oversample, returning n values taken at an even stride
// from src. It returns nil if n does not divide len(src).
func Decimate(src []int16, n int) []int16 {
	if n <= 0 || len(src)%n != 0 {
		return nil
	}
	factor := len(src) / n
	out := make([]int16, n)
	for j := range out {
		out[j] = src[j*factor]
	}
	return out
}
