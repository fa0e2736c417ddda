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
	"encoding/binary"
	"time"
)

// Sex is the administrative gender of the patient.
type Sex int

const (
	SexUnknown Sex = iota
	SexMale
	SexFemale
)

func (s Sex) String() string {
	switch s {
	case SexMale:
		return "Male"
	case SexFemale:
		return "Female"
	default:
		return "Unknown"
	}
}

// Patient holds the demographics of the trial subject.
type Patient struct {
	ID        string    // Trial subject identifier
	Name      string    // Free text name
	BirthDate time.Time // Zero if not present in the document
	Sex       Sex
}

// Filters are the acquisition filter cutoffs in Hz.
type Filters struct {
	LowPass  float64
	HighPass float64
	Notch    float64
}

// Calibration maps digital values to physical ones: physical = digital*Scale + Offset.
type Calibration struct {
	Scale  float64
	Offset float64
}

// Physical converts a digital sample to its physical value.
func (c Calibration) Physical(digital int16) float64 {
	return float64(digital)*c.Scale + c.Offset
}

// Record is a decoded Annotated ECG encounter.
type Record struct {
	ID               string    // Root identifier of the document
	StartTime        time.Time // Start of acquisition
	SampleRate       float64   // Reconciled samples per second
	SamplesPerRecord int       // Reconciled samples per channel in each data record
	NumberOfRecords  int       // Number of data records (always 1 for aECG documents)
	Filters          Filters   // Filter settings shared by all channels
	Patient          Patient
	Channels         []Channel
	// Samples holds the digital values of every channel. Channels are stored
	// one after the other, each block SamplesPerRecord*NumberOfRecords long.
	Samples []int16
}

// Channel describes a single decoded lead.
type Channel struct {
	Label             string      // Lead code as found in the document (e.g. MDC_ECG_LEAD_II)
	Lead              Lead        // LeadUnspecified if the code is not in the standard vocabulary
	Transducer        string      // Type of transducer used
	SamplesPerChannel int         // Samples present in the document for the whole recording, before reconciliation; 0 means the reconciled count
	Calibration       Calibration // Digital to physical mapping
	Unit              PhysDimCode // Physical dimension of the calibrated values
	DigitalMin        int16
	DigitalMax        int16
	PhysicalMin       float64
	PhysicalMax       float64
	Filters           Filters
}

// SetExtrema records the exact digital range of samples and the physical
// range derived from it through the channel calibration.
func (c *Channel) SetExtrema(samples []int16) {
	c.DigitalMin, c.DigitalMax = 0, 0
	if len(samples) > 0 {
		c.DigitalMin, c.DigitalMax = samples[0], samples[0]
		for _, v := range samples[1:] {
			c.DigitalMin = min(c.DigitalMin, v)
			c.DigitalMax = max(c.DigitalMax, v)
		}
	}
	c.PhysicalMin = c.Calibration.Physical(c.DigitalMin)
	c.PhysicalMax = c.Calibration.Physical(c.DigitalMax)
}

// ChannelSamples returns the block of reconciled samples belonging to channel i.
// The returned slice aliases the record's sample buffer.
func (r *Record) ChannelSamples(i int) []int16 {
	n := r.SamplesPerRecord * r.NumberOfRecords
	if i < 0 || i >= len(r.Channels) || (i+1)*n > len(r.Samples) {
		return nil
	}
	return r.Samples[i*n : (i+1)*n]
}

// NativeSamples returns channel i at the density it had in the source document,
// undoing the oversampling applied during reconciliation. A channel with no
// native count yields its whole reconciled block.
func (r *Record) NativeSamples(i int) []int16 {
	block := r.ChannelSamples(i)
	if block == nil {
		return nil
	}
	n := r.Channels[i].SamplesPerChannel
	if n == 0 {
		n = len(block)
	}
	return Decimate(block, n)
}

// Duration returns the length of the recording.
func (r *Record) Duration() time.Duration {
	if r.SampleRate <= 0 {
		return 0
	}
	seconds := float64(r.SamplesPerRecord*r.NumberOfRecords) / r.SampleRate
	return time.Duration(seconds * float64(time.Second))
}

// RawData returns the sample buffer as little endian 16-bit integers.
func (r *Record) RawData() []byte {
	b := make([]byte, 2*len(r.Samples))
	for i, v := range r.Samples {
		binary.LittleEndian.PutUint16(b[2*i:], uint16(v))
	}
	return b
}
