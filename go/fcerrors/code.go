// Copyright 2026 Supabase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package fcerrors defines the failure kinds raised while collecting health
// data. None of them is fatal to a run; they explain why a reading is missing.
package fcerrors

import (
	"errors"
	"fmt"
)

// Kind classifies a collection failure.
type Kind int

const (
	KindUnknown Kind = iota
	// KindBackendUnavailable means a cloud API call failed.
	KindBackendUnavailable
	// KindParseFailure means a payload did not have the expected shape.
	KindParseFailure
	// KindDispatchFailure means a remote command could not be issued.
	KindDispatchFailure
	// KindTimeoutExceeded means polling gave up before a terminal state.
	KindTimeoutExceeded
)

func (k Kind) String() string {
	switch k {
	case KindBackendUnavailable:
		return "BackendUnavailable"
	case KindParseFailure:
		return "ParseFailure"
	case KindDispatchFailure:
		return "DispatchFailure"
	case KindTimeoutExceeded:
		return "TimeoutExceeded"
	default:
		return "Unknown"
	}
}

// Errors added to the list of variables below must be added to the Errors
// slice in this same file.
var (
	// FC1001 Backend unavailable
	FC1001 = register("FC1001", KindBackendUnavailable, "backend call failed: %s", "A cloud API call failed or returned an error. The affected reading is reported as missing.")

	// FC1002 Parse failure
	FC1002 = register("FC1002", KindParseFailure, "unexpected payload: %s", "A response body or command output did not match the expected shape.")

	// FC1003 Dispatch failure
	FC1003 = register("FC1003", KindDispatchFailure, "could not dispatch command: %s", "The remote command could not be issued to the host.")

	// FC1004 Timeout exceeded
	FC1004 = register("FC1004", KindTimeoutExceeded, "command did not finish: %s", "The remote command stayed in a non-terminal state for the whole polling budget.")

	// Errors lists every registered error for documentation purposes.
	Errors = []func(args ...any) *FleetError{
		FC1001,
		FC1002,
		FC1003,
		FC1004,
	}
)

// FleetError is a registered error with a stable ID.
type FleetError struct {
	Err         error
	Description string
	ID          string
	Kind        Kind
}

func (o *FleetError) Error() string {
	return o.Err.Error()
}

func (o *FleetError) Unwrap() error {
	return o.Err
}

var _ error = (*FleetError)(nil)

func register(id string, kind Kind, short, long string) func(args ...any) *FleetError {
	return func(args ...any) *FleetError {
		s := short
		if len(args) != 0 {
			s = fmt.Sprintf(s, args...)
		}
		return &FleetError{
			Err:         errors.New(id + ": " + s),
			Description: long,
			ID:          id,
			Kind:        kind,
		}
	}
}

// Wrap attaches cause to a registered error so that errors.Is on the cause
// keeps working.
func Wrap(fe *FleetError, cause error) *FleetError {
	if cause == nil {
		return fe
	}
	fe.Err = fmt.Errorf("%w: %w", fe.Err, cause)
	return fe
}

// KindOf returns the Kind of the first FleetError in err's chain.
func KindOf(err error) Kind {
	var fe *FleetError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}
