// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

// Package aecg reads and writes HL7 Annotated ECG (aECG) XML documents.
//
// A document is decoded into a Record: one block of int16 samples per lead,
// a digital to physical calibration for each lead and the recording metadata.
// Leads sampled at different rates are oversampled by repetition onto a common
// length, and encoding writes every lead back at the density it was read at.
package aecg
