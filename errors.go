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
	"errors"
	"fmt"
)

var (
	// ErrSchemaMismatch indicates that a structurally mandatory element is absent.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrMalformedTimestamp indicates an HL7 timestamp that is too short, not
	// numeric or outside the four digit year range.
	ErrMalformedTimestamp = errors.New("malformed timestamp")

	// ErrMissingField indicates an optional or recoverable element is absent.
	ErrMissingField = errors.New("missing field")

	// ErrMalformedValue indicates an attribute or text value that could not be parsed as a number.
	ErrMalformedValue = errors.New("malformed value")

	// ErrIO indicates a failure opening, parsing or writing the underlying file.
	ErrIO = errors.New("i/o error")
)

// Diagnostic is a field level problem found while decoding. The affected field
// keeps its default value and decoding continues.
type Diagnostic struct {
	Path string // Schema path of the affected element
	Err  error
}

func (d Diagnostic) Error() string {
	return fmt.Sprintf("%s: %v", d.Path, d.Err)
}

func (d Diagnostic) Unwrap() error {
	return d.Err
}
