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
	"time"
)

// timestampLen is the number of leading characters of an HL7 TS value that
// carry the date and time down to the second (YYYYMMDDHHMMSS).
const timestampLen = 14

// ParseTimestamp parses an HL7 timestamp of the form YYYYMMDDHHMMSS[.mmm].
// Anything after the seconds field is ignored. The result is in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if len(s) < timestampLen {
		return time.Time{}, fmt.Errorf("%w: %q is shorter than %d characters", ErrMalformedTimestamp, s, timestampLen)
	}

	fields := [...]struct {
		name     string
		from, to int
		min, max int
	}{
		{"year", 0, 4, 0, 9999},
		{"month", 4, 6, 1, 12},
		{"day", 6, 8, 1, 31},
		{"hour", 8, 10, 0, 23},
		{"minute", 10, 12, 0, 59},
		{"second", 12, 14, 0, 59},
	}

	var v [len(fields)]int
	for i, f := range fields {
		n, ok := parseDigits(s[f.from:f.to])
		if !ok {
			return time.Time{}, fmt.Errorf("%w: %s in %q is not numeric", ErrMalformedTimestamp, f.name, s)
		}
		if n < f.min || n > f.max {
			return time.Time{}, fmt.Errorf("%w: %s %d in %q is out of range", ErrMalformedTimestamp, f.name, n, s)
		}
		v[i] = n
	}

	t := time.Date(v[0], time.Month(v[1]), v[2], v[3], v[4], v[5], 0, time.UTC)
	if t.Day() != v[2] {
		return time.Time{}, fmt.Errorf("%w: day %d in %q does not exist", ErrMalformedTimestamp, v[2], s)
	}

	return t, nil
}

// FormatTimestamp formats t (converted to UTC) as an HL7 timestamp
// YYYYMMDDHHMMSS.mmm with every field zero padded. Years outside 0-9999 do
// not fit the four digit field, see timestampInRange.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	return fmt.Sprintf("%04d%02d%02d%02d%02d%02d.%03d",
		t.Year(), int(t.Month()), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond()/int(time.Millisecond))
}

func timestampInRange(t time.Time) bool {
	y := t.UTC().Year()
	return y >= 0 && y <= 9999
}

// parseDigits parses an unsigned decimal number. Unlike strconv.Atoi it rejects
// signs and surrounding whitespace, which are never valid inside a fixed width field.
func parseDigits(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}
