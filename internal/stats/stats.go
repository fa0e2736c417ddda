// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package stats summarises the physical values of each channel of a record.
package stats

import (
	"math"

	"github.com/OpenPSG/aecg"
	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Channel summarises one channel at its native density.
type Channel struct {
	Label   string
	Unit    aecg.PhysDimCode
	Samples int     // Native samples over the recording
	Rate    float64 // Native samples per second
	Mean    float64
	StdDev  float64
	Min     float64
	Max     float64
	// DominantFrequency is the frequency in Hz of the largest non DC component
	// of the spectrum, zero for channels with fewer than two samples.
	DominantFrequency float64
}

// Record summarises every channel of rec.
func Record(rec *aecg.Record) []Channel {
	seconds := rec.Duration().Seconds()

	out := make([]Channel, len(rec.Channels))
	for i, ch := range rec.Channels {
		native := rec.NativeSamples(i)

		values := make([]float64, len(native))
		for j, v := range native {
			values[j] = ch.Calibration.Physical(v)
		}

		rate := 0.0
		if seconds > 0 {
			rate = float64(len(values)) / seconds
		}

		out[i] = Summarise(values, rate)
		out[i].Label = ch.Label
		if ch.Lead != aecg.LeadUnspecified {
			out[i].Label = ch.Lead.String()
		}
		out[i].Unit = ch.Unit
	}

	return out
}

// Summarise computes the statistics of values sampled at rate Hz.
func Summarise(values []float64, rate float64) Channel {
	s := Channel{Samples: len(values), Rate: rate}
	if len(values) == 0 {
		return s
	}

	s.Min = floats.Min(values)
	s.Max = floats.Max(values)
	if len(values) == 1 {
		s.Mean = values[0]
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(values, nil)
	s.DominantFrequency = dominantFrequency(values, s.Mean, rate)

	return s
}

func dominantFrequency(values []float64, mean, rate float64) float64 {
	centred := make([]float64, len(values))
	copy(centred, values)
	floats.AddConst(-mean, centred)

	fft := fourier.NewFFT(len(centred))
	coeffs := fft.Coefficients(nil, centred)

	peak, best := 0, 0.0
	for k := 1; k < len(coeffs); k++ {
		if m := math.Hypot(real(coeffs[k]), imag(coeffs[k])); m > best {
			peak, best = k, m
		}
	}

	return fft.Freq(peak) * rate
}
