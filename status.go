// Copyright (c) 2026 Timo Savola. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package aot

import (
	"gate.computer/aot/reloc"
	"golang.org/x/xerrors"
)

// Status of a load attempt.
type Status uint8

const (
	StatusNoError Status = iota
	StatusNotFound
	StatusInvalidHeader
	StatusCodeCacheFull
	StatusDataCacheFull
	StatusReservationInterrupted
	StatusRetryableFailure
	StatusValidationFailure
	StatusRelocationFailure

	NumStatuses
)

var statusNames = [NumStatuses]string{
	StatusNoError:                "no error",
	StatusNotFound:               "method not found in cache",
	StatusInvalidHeader:          "invalid method header",
	StatusCodeCacheFull:          "code cache full",
	StatusDataCacheFull:          "data cache full",
	StatusReservationInterrupted: "reservation interrupted",
	StatusRetryableFailure:       "retryable relocation failure",
	StatusValidationFailure:      "validation failure",
	StatusRelocationFailure:      "relocation failure",
}

func (s Status) String() string {
	if s < NumStatuses {
		return statusNames[s]
	}
	return "invalid status"
}

// Retryable statuses may succeed if the load is attempted again later.
func (s Status) Retryable() bool {
	switch s {
	case StatusCodeCacheFull, StatusDataCacheFull, StatusReservationInterrupted, StatusRetryableFailure:
		return true
	}
	return false
}

// Error of a failed load.  The load behaves like a cache miss.
type Error struct {
	Status Status
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Status.String() + ": " + e.Err.Error()
	}
	return e.Status.String()
}

func (e *Error) PublicError() string { return e.Status.String() }
func (e *Error) Unwrap() error       { return e.Err }
func (e *Error) Retryable() bool     { return e.Status.Retryable() }

// relocationStatus maps the first failure of a relocation table.
func relocationStatus(err error) Status {
	var code reloc.Code

	if xerrors.As(err, &code) {
		switch {
		case code.Retryable():
			return StatusRetryableFailure
		case code.Validation():
			return StatusValidationFailure
		}
	}
	return StatusRelocationFailure
}
