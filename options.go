// SPDX-License-Identifier: MPL-2.0
/*
 * Copyright (C) 2024 Damian Peckett <damian@pecke.tt>.
 *
 * This Source Code Form is subject to the terms of the Mozilla Public
 * License, v. 2.0. If a copy of the MPL was not distributed with this
 * file, You can obtain one at http://mozilla.org/MPL/2.0/.
 */

package aecg

import "log/slog"

// DefaultTransducer is the transducer description given to decoded channels.
const DefaultTransducer = "Ag-AgCl electrode"

// Option configures Decode and Encode.
type Option func(*options)

type options struct {
	logger          *slog.Logger
	clinicalTrialID string
}

// WithLogger sets the logger that receives field level diagnostics.
// By default nothing is logged.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClinicalTrialID sets the clinical trial identifier written by Encode.
func WithClinicalTrialID(id string) Option {
	return func(o *options) {
		o.clinicalTrialID = id
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:          slog.New(slog.DiscardHandler),
		clinicalTrialID: "CLINICAL_TRIAL",
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
