// Copyright 2025 KrakLabs
//
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published
// by the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// This program is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Affero General Public License for more details.
//
// You should have received a copy of the GNU Affero General Public License
// along with this program. If not, see <https://www.gnu.org/licenses/>.
//
// For commercial licensing, contact: licensing@kraklabs.com
//
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package errors defines the CLI-facing error type: a titled, actionable
// message with an optional wrapped cause, printable as text or JSON.
package errors

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/kraklabs/candy/internal/ui"
)

// UserError is an error the CLI presents to a person: what went wrong,
// why, and what to do about it.
type UserError struct {
	Code       string `json:"code"`
	Title      string `json:"title"`
	Details    string `json:"details,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
	Err        error  `json:"-"`
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Title, e.Err)
	}
	return e.Title
}

func (e *UserError) Unwrap() error { return e.Err }

// NewConfigError reports a problem with candy.yaml or flags.
func NewConfigError(title, details, suggestion string, err error) *UserError {
	return &UserError{Code: "config", Title: title, Details: details, Suggestion: suggestion, Err: err}
}

// NewProjectError reports a problem with the project layout or sources.
func NewProjectError(title, details, suggestion string, err error) *UserError {
	return &UserError{Code: "project", Title: title, Details: details, Suggestion: suggestion, Err: err}
}

// NewFrontendError reports a missing or broken parser frontend.
func NewFrontendError(title, details, suggestion string, err error) *UserError {
	return &UserError{Code: "frontend", Title: title, Details: details, Suggestion: suggestion, Err: err}
}

// NewInternalError reports a bug in the core itself.
func NewInternalError(title, details, suggestion string, err error) *UserError {
	return &UserError{Code: "internal", Title: title, Details: details, Suggestion: suggestion, Err: err}
}

// FatalError prints the error and exits non-zero. In JSON mode the error
// is machine-readable on stdout; otherwise it renders as colored text on
// stderr.
func FatalError(err error, jsonMode bool) {
	userErr, ok := err.(*UserError)
	if !ok {
		userErr = &UserError{Code: "unknown", Title: err.Error()}
	}

	if jsonMode {
		payload := struct {
			Error *UserError `json:"error"`
			Cause string     `json:"cause,omitempty"`
		}{Error: userErr}
		if userErr.Err != nil {
			payload.Cause = userErr.Err.Error()
		}
		_ = json.NewEncoder(os.Stdout).Encode(payload)
	} else {
		_, _ = ui.Red.Fprintf(os.Stderr, "Error: %s\n", userErr.Title)
		if userErr.Details != "" {
			fmt.Fprintf(os.Stderr, "  %s\n", userErr.Details)
		}
		if userErr.Err != nil {
			fmt.Fprintf(os.Stderr, "  cause: %v\n", userErr.Err)
		}
		if userErr.Suggestion != "" {
			fmt.Fprintf(os.Stderr, "\n%s\n", userErr.Suggestion)
		}
	}
	os.Exit(1)
}
