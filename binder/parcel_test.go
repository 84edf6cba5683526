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
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/goipc/errors"
)

func TestParcel(t *testing.T) {
	t.Run("With primitives read back in written order", func(t *testing.T) {
		p := NewParcel()
		p.WriteInterfaceToken("test.IParcel")
		p.WriteInt32(math.MinInt32)
		p.WriteUint32(math.MaxUint32)
		p.WriteInt64(-42)
		p.WriteUint64(math.MaxUint64)
		p.WriteBool(true)
		p.WriteFloat64(3.25)
		p.WriteString("hello")
		p.WriteBytes([]byte{1, 2, 3})
		p.WriteStrings([]string{"a", "", "c"})
		p.WriteStrings(nil)
		p.WriteStrings([]string{})

		require.NoError(t, p.EnforceInterface("test.IParcel"))

		i32, err := p.ReadInt32()
		require.NoError(t, err)
		assert.EqualValues(t, math.MinInt32, i32)

		u32, err := p.ReadUint32()
		require.NoError(t, err)
		assert.EqualValues(t, uint32(math.MaxUint32), u32)

		i64, err := p.ReadInt64()
		require.NoError(t, err)
		assert.EqualValues(t, -42, i64)

		u64, err := p.ReadUint64()
		require.NoError(t, err)
		assert.EqualValues(t, uint64(math.MaxUint64), u64)

		b, err := p.ReadBool()
		require.NoError(t, err)
		assert.True(t, b)

		f, err := p.ReadFloat64()
		require.NoError(t, err)
		assert.InDelta(t, 3.25, f, 0)

		s, err := p.ReadString()
		require.NoError(t, err)
		assert.Equal(t, "hello", s)

		bs, err := p.ReadBytes()
		require.NoError(t, err)
		assert.Equal(t, []byte{1, 2, 3}, bs)

		ss, err := p.ReadStrings()
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "", "c"}, ss)

		ss, err = p.ReadStrings()
		require.NoError(t, err)
		assert.Nil(t, ss)

		ss, err = p.ReadStrings()
		require.NoError(t, err)
		assert.NotNil(t, ss)
		assert.Empty(t, ss)

		assert.Zero(t, p.Remaining())
	})
	t.Run("With reads past the end", func(t *testing.T) {
		p := NewParcel()
		_, err := p.ReadInt32()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
		_, err = p.ReadString()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
		_, err = p.ReadFloat64()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
		_, err = p.ReadBytes()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
		_, err = p.ReadStrongBinder()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
	})
	t.Run("With a truncated string", func(t *testing.T) {
		p := NewParcel()
		p.WriteString("truncated")
		short := ParcelFrom(p.Bytes()[:4], nil)
		_, err := short.ReadString()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
	})
	t.Run("With an absurd strings count", func(t *testing.T) {
		p := NewParcel()
		p.WriteInt32(1000)
		_, err := p.ReadStrings()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
	})
	t.Run("With an int64 read as int32", func(t *testing.T) {
		p := NewParcel()
		p.WriteInt64(math.MaxInt64)
		_, err := p.ReadInt32()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
	})
	t.Run("With descriptor mismatch", func(t *testing.T) {
		p := NewParcel()
		p.WriteInterfaceToken("test.IOther")
		err := p.EnforceInterface("test.IParcel")
		require.ErrorIs(t, err, gerrors.ErrDescriptorMismatch)
	})
	t.Run("With binder objects out of band", func(t *testing.T) {
		local := NewBinder("test.IObject", nil)
		p := NewParcel()
		p.WriteStrongBinder(local)
		p.WriteStrongBinder(nil)
		var typedNil *Binder
		p.WriteStrongBinder(typedNil)

		require.Len(t, p.Objects(), 1)

		received := ParcelFrom(p.Bytes(), p.Objects())
		first, err := received.ReadStrongBinder()
		require.NoError(t, err)
		assert.True(t, first == IBinder(local))

		second, err := received.ReadStrongBinder()
		require.NoError(t, err)
		assert.Nil(t, second)

		third, err := received.ReadStrongBinder()
		require.NoError(t, err)
		assert.Nil(t, third)
	})
	t.Run("With a binder reference missing from the object table", func(t *testing.T) {
		p := NewParcel()
		p.WriteStrongBinder(NewBinder("test.IObject", nil))
		stripped := ParcelFrom(p.Bytes(), nil)
		_, err := stripped.ReadStrongBinder()
		require.ErrorIs(t, err, gerrors.ErrUnderflow)
	})
	t.Run("With exception header", func(t *testing.T) {
		ok := NewParcel()
		ok.WriteNoException()
		require.NoError(t, ok.ReadException())

		failed := NewParcel()
		failed.WriteException(gerrors.ErrPermissionDenied)
		err := failed.ReadException()
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrRemoteException)
		assert.ErrorIs(t, err, gerrors.ErrPermissionDenied)

		var remote *gerrors.RemoteException
		require.ErrorAs(t, err, &remote)
		assert.Equal(t, gerrors.ExceptionSecurity, remote.Code)
		assert.Equal(t, "permission denied", remote.Message)
	})
	t.Run("With Dup and Rewind", func(t *testing.T) {
		p := NewParcel()
		p.WriteInt32(7)
		v, err := p.ReadInt32()
		require.NoError(t, err)
		assert.EqualValues(t, 7, v)
		assert.Zero(t, p.Remaining())

		dup := p.Dup()
		assert.Equal(t, 0, dup.Position())
		v, err = dup.ReadInt32()
		require.NoError(t, err)
		assert.EqualValues(t, 7, v)

		p.Rewind()
		assert.Equal(t, p.Len(), p.Remaining())

		p.Reset()
		assert.Zero(t, p.Len())
	})
}
