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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrors(t *testing.T) {
	t.Run("With dead object", func(t *testing.T) {
		err := NewErrDeadObject(7)
		assert.True(t, errors.Is(err, ErrDeadObject))
		assert.EqualError(t, err, "handle=(7) dead object")
	})
	t.Run("With service not found", func(t *testing.T) {
		err := NewErrServiceNotFound("media")
		assert.True(t, errors.Is(err, ErrServiceNotFound))
		assert.Contains(t, err.Error(), "media")
	})
	t.Run("With underflow", func(t *testing.T) {
		err := NewErrUnderflow("int32", 12)
		assert.True(t, errors.Is(err, ErrUnderflow))
		assert.Contains(t, err.Error(), "position 12")
	})
	t.Run("With descriptor mismatch", func(t *testing.T) {
		err := NewErrDescriptorMismatch("a.IFoo", "a.IBar")
		assert.True(t, errors.Is(err, ErrDescriptorMismatch))
	})
	t.Run("With invalid argument and protocol joins", func(t *testing.T) {
		base := errors.New("base")
		err := NewErrInvalidArgument(base)
		assert.True(t, errors.Is(err, ErrInvalidArgument))
		assert.True(t, errors.Is(err, base))

		err = NewErrProtocol(base)
		assert.True(t, errors.Is(err, ErrProtocol))
		assert.True(t, errors.Is(err, base))
	})
}

func TestStatusError(t *testing.T) {
	err := NewStatusError(-32, ErrDeadObject)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDeadObject))
	assert.Equal(t, "remote call failed: status=-32: dead object", err.Error())

	var statusErr *StatusError
	require.True(t, errors.As(error(err), &statusErr))
	assert.EqualValues(t, -32, statusErr.Status)

	bare := NewStatusError(-74, nil)
	assert.Equal(t, "remote call failed: status=-74", bare.Error())
	assert.Nil(t, bare.Unwrap())
}

func TestRemoteException(t *testing.T) {
	t.Run("With security exception", func(t *testing.T) {
		err := NewRemoteException(ExceptionSecurity, "caller not allowed")
		assert.True(t, errors.Is(err, ErrRemoteException))
		assert.True(t, errors.Is(err, ErrPermissionDenied))
		assert.Contains(t, err.Error(), "caller not allowed")
	})
	t.Run("With illegal argument exception", func(t *testing.T) {
		err := NewRemoteException(ExceptionIllegalArgument, "bad")
		assert.True(t, errors.Is(err, ErrInvalidArgument))
	})
	t.Run("With service specific exception", func(t *testing.T) {
		err := NewRemoteException(ExceptionServiceSpecific, "oops")
		assert.True(t, errors.Is(err, ErrRemoteException))
		assert.False(t, errors.Is(err, ErrPermissionDenied))
	})
}

func TestExceptionCode(t *testing.T) {
	assert.Equal(t, ExceptionSecurity, ExceptionCode(ErrPermissionDenied))
	assert.Equal(t, ExceptionIllegalArgument, ExceptionCode(NewErrInvalidArgument(errors.New("x"))))
	assert.Equal(t, ExceptionBadParcelable, ExceptionCode(NewErrUnderflow("string", 0)))
	assert.Equal(t, ExceptionIllegalState, ExceptionCode(NewRemoteException(ExceptionIllegalState, "state")))
	assert.Equal(t, ExceptionServiceSpecific, ExceptionCode(errors.New("anything")))
}

func TestPanicError(t *testing.T) {
	base := errors.New("boom")
	err := NewPanicError(base)
	assert.EqualError(t, err, "panic: boom")
	assert.True(t, errors.Is(err, base))
}
