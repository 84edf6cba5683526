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

package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrDeadObject is returned when the process hosting a remote object has gone away.
	// It is permanent: a call that failed with ErrDeadObject must never be retried transparently.
	ErrDeadObject = errors.New("dead object")

	// ErrTransportClosed is returned when a transport has been closed locally.
	ErrTransportClosed = errors.New("transport is closed")

	// ErrDescriptorMismatch is returned when the interface token at the head of a transaction
	// does not match the descriptor of the receiving stub.
	ErrDescriptorMismatch = errors.New("interface descriptor mismatch")

	// ErrUnderflow is returned when a parcel does not hold enough data for the requested read.
	ErrUnderflow = errors.New("parcel underflow")

	// ErrUnknownTransaction is returned when a stub does not know the transaction code.
	ErrUnknownTransaction = errors.New("unknown transaction")

	// ErrProtocol is returned when a peer violates a framing protocol, for instance
	// by echoing the wrong confirmation header.
	ErrProtocol = errors.New("protocol violation")

	// ErrInvalidArgument is returned when a call is made with arguments that do not fit
	// the declared shape of the method.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrUnknownMethod is returned when an interface does not declare the requested method.
	ErrUnknownMethod = errors.New("unknown method")

	// ErrPermissionDenied is returned when the caller is not allowed to perform an operation.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrRemoteException is the base of every application failure reported by a remote stub.
	ErrRemoteException = errors.New("remote exception")

	// ErrFailedTransaction is returned when a transaction could not be delivered for a
	// reason other than the peer being dead.
	ErrFailedTransaction = errors.New("failed transaction")

	// ErrServiceNotFound is returned when a service is not published in the registry.
	ErrServiceNotFound = errors.New("service not found")

	// ErrInvalidServiceName is returned when a service name is empty or too long.
	ErrInvalidServiceName = errors.New("invalid service name")

	// ErrCacheAlreadyInitialized is returned when the registry client cache is populated twice.
	ErrCacheAlreadyInitialized = errors.New("service cache is already initialized")

	// ErrContextManagerExists is returned when a second object tries to become the context manager.
	ErrContextManagerExists = errors.New("context manager is already set")

	// ErrLooperAlreadyPrepared is raised when a second loop is prepared on the same goroutine context.
	ErrLooperAlreadyPrepared = errors.New("only one looper may be created per thread")

	// ErrMainLooperAlreadyPrepared is raised when the main loop is prepared twice.
	ErrMainLooperAlreadyPrepared = errors.New("the main looper has already been prepared")

	// ErrLooperNotPrepared is returned when Run is called on a loop that was not prepared.
	ErrLooperNotPrepared = errors.New("looper is not prepared")

	// ErrLooperAlreadyRunning is returned when Run is called on a loop that is already running.
	ErrLooperAlreadyRunning = errors.New("looper is already running")

	// ErrLooperQuitting is returned when work is handed to a loop that is quitting or terminated.
	ErrLooperQuitting = errors.New("looper is quitting")

	// ErrNotAcquired is returned when a token that is not held is released.
	ErrNotAcquired = errors.New("token is not acquired")

	// ErrClosed is returned when an operation is attempted on a closed writer.
	ErrClosed = errors.New("closed")

	// ErrInvalidPropertyName is returned when a property name is malformed.
	ErrInvalidPropertyName = errors.New("invalid property name")
)

// NewErrDeadObject wraps ErrDeadObject with the handle that could not be reached.
func NewErrDeadObject(handle uint64) error {
	return fmt.Errorf("handle=(%d) %w", handle, ErrDeadObject)
}

// NewErrServiceNotFound formats an ErrServiceNotFound with the given name.
func NewErrServiceNotFound(name string) error {
	return fmt.Errorf("service=(%s) %w", name, ErrServiceNotFound)
}

// NewErrUnderflow formats an ErrUnderflow for a read of the given kind.
func NewErrUnderflow(kind string, pos int) error {
	return fmt.Errorf("read %s at position %d: %w", kind, pos, ErrUnderflow)
}

// NewErrDescriptorMismatch formats an ErrDescriptorMismatch.
func NewErrDescriptorMismatch(expected, actual string) error {
	return fmt.Errorf("expected=(%s) actual=(%s) %w", expected, actual, ErrDescriptorMismatch)
}

// NewErrInvalidArgument wraps a base error with ErrInvalidArgument.
func NewErrInvalidArgument(err error) error {
	return errors.Join(ErrInvalidArgument, err)
}

// NewErrProtocol wraps a base error with ErrProtocol.
func NewErrProtocol(err error) error {
	return errors.Join(ErrProtocol, err)
}

// StatusError is returned by proxies when the remote side answered a transaction
// with a nonzero status. It unwraps to the sentinel matching the status when there is one.
type StatusError struct {
	Status int32
	err    error
}

// enforce compilation error
var _ error = (*StatusError)(nil)

// NewStatusError creates a StatusError for the given status. base may be nil.
func NewStatusError(status int32, base error) *StatusError {
	return &StatusError{Status: status, err: base}
}

// Error implements the standard error interface
func (e *StatusError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("remote call failed: status=%d: %v", e.Status, e.err)
	}
	return fmt.Sprintf("remote call failed: status=%d", e.Status)
}

func (e *StatusError) Unwrap() error {
	return e.err
}

// Exception codes carried in the reply header of a failed call.
const (
	ExceptionNone             int32 = 0
	ExceptionSecurity         int32 = -1
	ExceptionBadParcelable    int32 = -2
	ExceptionIllegalArgument  int32 = -3
	ExceptionNullPointer      int32 = -4
	ExceptionIllegalState     int32 = -5
	ExceptionUnsupported      int32 = -7
	ExceptionServiceSpecific  int32 = -8
	ExceptionTransactionError int32 = -129
)

// RemoteException is an application failure reported by the remote implementation
// and carried back through the reply.
type RemoteException struct {
	Code    int32
	Message string
}

// enforce compilation error
var _ error = (*RemoteException)(nil)

// NewRemoteException creates a RemoteException
func NewRemoteException(code int32, message string) *RemoteException {
	return &RemoteException{Code: code, Message: message}
}

// Error implements the standard error interface
func (e *RemoteException) Error() string {
	return fmt.Sprintf("remote exception (code=%d): %s", e.Code, e.Message)
}

// Unwrap lets errors.Is match both ErrRemoteException and the sentinel implied by the code.
func (e *RemoteException) Unwrap() []error {
	switch e.Code {
	case ExceptionSecurity:
		return []error{ErrRemoteException, ErrPermissionDenied}
	case ExceptionIllegalArgument:
		return []error{ErrRemoteException, ErrInvalidArgument}
	case ExceptionBadParcelable:
		return []error{ErrRemoteException, ErrUnderflow}
	default:
		return []error{ErrRemoteException}
	}
}

// ExceptionCode returns the exception code used to report err to a remote caller.
func ExceptionCode(err error) int32 {
	var re *RemoteException
	switch {
	case errors.As(err, &re):
		return re.Code
	case errors.Is(err, ErrPermissionDenied):
		return ExceptionSecurity
	case errors.Is(err, ErrInvalidArgument):
		return ExceptionIllegalArgument
	case errors.Is(err, ErrUnderflow):
		return ExceptionBadParcelable
	default:
		return ExceptionServiceSpecific
	}
}

// PanicError defines the panic error
// wrapping the underlying error
type PanicError struct {
	err error
}

// enforce compilation error
var _ error = (*PanicError)(nil)

// NewPanicError creates an instance of PanicError
func NewPanicError(err error) *PanicError {
	return &PanicError{err}
}

// Error implements the standard error interface
func (e *PanicError) Error() string {
	return fmt.Sprintf("panic: %v", e.err)
}

func (e *PanicError) Unwrap() error {
	return e.err
}
