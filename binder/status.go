// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package binder

import (
	"errors"
	"fmt"
	"math"

	gerrors "github.com/tochemey/goipc/errors"
)

// Status is the outcome of a transaction as seen by the transport.
// Zero means the transaction was delivered and answered.
type Status int32

const (
	StatusOK                 Status = 0
	StatusUnknownError       Status = math.MinInt32
	StatusPermissionDenied   Status = -1
	StatusNoMemory           Status = -12
	StatusBadValue           Status = -22
	StatusDeadObject         Status = -32
	StatusNotEnoughData      Status = -61
	StatusUnknownTransaction Status = -74
	StatusBadType            Status = math.MinInt32 + 1
	StatusFailedTransaction  Status = math.MinInt32 + 2
)

// String returns a readable form of the status
func (s Status) String() string {
	switch s {
	case StatusOK:
		return "OK"
	case StatusUnknownError:
		return "UNKNOWN_ERROR"
	case StatusPermissionDenied:
		return "PERMISSION_DENIED"
	case StatusNoMemory:
		return "NO_MEMORY"
	case StatusBadValue:
		return "BAD_VALUE"
	case StatusDeadObject:
		return "DEAD_OBJECT"
	case StatusNotEnoughData:
		return "NOT_ENOUGH_DATA"
	case StatusUnknownTransaction:
		return "UNKNOWN_TRANSACTION"
	case StatusBadType:
		return "BAD_TYPE"
	case StatusFailedTransaction:
		return "FAILED_TRANSACTION"
	default:
		return fmt.Sprintf("STATUS(%d)", int32(s))
	}
}

// Err converts a nonzero status into a *errors.StatusError that unwraps to the
// matching sentinel. It returns nil for StatusOK.
func (s Status) Err() error {
	var base error
	switch s {
	case StatusOK:
		return nil
	case StatusPermissionDenied:
		base = gerrors.ErrPermissionDenied
	case StatusBadValue:
		base = gerrors.ErrInvalidArgument
	case StatusDeadObject:
		base = gerrors.ErrDeadObject
	case StatusNotEnoughData:
		base = gerrors.ErrUnderflow
	case StatusUnknownTransaction:
		base = gerrors.ErrUnknownTransaction
	case StatusBadType:
		base = gerrors.ErrDescriptorMismatch
	case StatusFailedTransaction:
		base = gerrors.ErrFailedTransaction
	}
	return gerrors.NewStatusError(int32(s), base)
}

// StatusFailure marks err as a failure of the transaction itself, reported to the
// caller as status instead of an exception. Stubs use it when the incoming parcel
// cannot be decoded. Errors a handler gets from its own outgoing calls must not
// be marked: they describe another object, not this transaction.
func StatusFailure(status Status, err error) error {
	return &statusFailure{status: status, err: err}
}

type statusFailure struct {
	status Status
	err    error
}

func (e *statusFailure) Error() string {
	return fmt.Sprintf("%s: %v", e.status, e.err)
}

func (e *statusFailure) Unwrap() error {
	return e.err
}

// statusOf returns the transport status err was marked with, or StatusOK when
// err is an application failure that travels as an exception.
func statusOf(err error) Status {
	var failure *statusFailure
	if errors.As(err, &failure) {
		return failure.status
	}
	return StatusOK
}
