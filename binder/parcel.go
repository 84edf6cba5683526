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

	"google.golang.org/protobuf/encoding/protowire"

	gerrors "github.com/tochemey/goipc/errors"
)

const (
	nullBinder uint64 = 0
	noStrings  int32  = -1
)

// Parcel is an ordered container of primitive values and binder objects.
// Values are read back in the order they were written. Binder objects do not
// travel inside the byte stream: the stream carries an index into the object
// table so that a transport can translate them when the parcel crosses a
// process boundary.
//
// A Parcel is not safe for concurrent use.
type Parcel struct {
	data    []byte
	pos     int
	objects []IBinder
}

// NewParcel creates an empty Parcel
func NewParcel() *Parcel {
	return &Parcel{}
}

// ParcelFrom rebuilds a Parcel from a flattened byte stream and its object table.
// Transports use it to hand a received payload to the local side.
func ParcelFrom(data []byte, objects []IBinder) *Parcel {
	return &Parcel{data: data, objects: objects}
}

// Bytes returns the flattened byte stream
func (p *Parcel) Bytes() []byte {
	return p.data
}

// Objects returns the binder object table
func (p *Parcel) Objects() []IBinder {
	return p.objects
}

// Len returns the size of the byte stream
func (p *Parcel) Len() int {
	return len(p.data)
}

// Position returns the read position
func (p *Parcel) Position() int {
	return p.pos
}

// Remaining returns the number of unread bytes
func (p *Parcel) Remaining() int {
	return len(p.data) - p.pos
}

// Rewind moves the read position back to the beginning
func (p *Parcel) Rewind() {
	p.pos = 0
}

// Reset empties the parcel
func (p *Parcel) Reset() {
	p.data = p.data[:0]
	p.objects = nil
	p.pos = 0
}

// Dup returns a parcel sharing the same content with its own read position.
func (p *Parcel) Dup() *Parcel {
	if p == nil {
		return NewParcel()
	}
	return &Parcel{data: p.data, objects: p.objects}
}

// WriteInterfaceToken writes the interface descriptor that must lead every call.
func (p *Parcel) WriteInterfaceToken(descriptor string) {
	p.WriteString(descriptor)
}

// EnforceInterface reads the leading interface token and checks it against descriptor.
func (p *Parcel) EnforceInterface(descriptor string) error {
	token, err := p.ReadString()
	if err != nil {
		return err
	}
	if token != descriptor {
		return gerrors.NewErrDescriptorMismatch(descriptor, token)
	}
	return nil
}

// WriteInt32 appends a signed 32-bit integer
func (p *Parcel) WriteInt32(v int32) {
	p.data = protowire.AppendVarint(p.data, protowire.EncodeZigZag(int64(v)))
}

// ReadInt32 reads a signed 32-bit integer
func (p *Parcel) ReadInt32() (int32, error) {
	v, err := p.readVarint("int32")
	if err != nil {
		return 0, err
	}
	decoded := protowire.DecodeZigZag(v)
	if decoded < math.MinInt32 || decoded > math.MaxInt32 {
		return 0, fmt.Errorf("int32 out of range at position %d: %w", p.pos, gerrors.ErrUnderflow)
	}
	return int32(decoded), nil
}

// WriteUint32 appends an unsigned 32-bit integer
func (p *Parcel) WriteUint32(v uint32) {
	p.data = protowire.AppendVarint(p.data, uint64(v))
}

// ReadUint32 reads an unsigned 32-bit integer
func (p *Parcel) ReadUint32() (uint32, error) {
	v, err := p.readVarint("uint32")
	if err != nil {
		return 0, err
	}
	if v > math.MaxUint32 {
		return 0, fmt.Errorf("uint32 out of range at position %d: %w", p.pos, gerrors.ErrUnderflow)
	}
	return uint32(v), nil
}

// WriteInt64 appends a signed 64-bit integer
func (p *Parcel) WriteInt64(v int64) {
	p.data = protowire.AppendVarint(p.data, protowire.EncodeZigZag(v))
}

// ReadInt64 reads a signed 64-bit integer
func (p *Parcel) ReadInt64() (int64, error) {
	v, err := p.readVarint("int64")
	if err != nil {
		return 0, err
	}
	return protowire.DecodeZigZag(v), nil
}

// WriteUint64 appends an unsigned 64-bit integer
func (p *Parcel) WriteUint64(v uint64) {
	p.data = protowire.AppendVarint(p.data, v)
}

// ReadUint64 reads an unsigned 64-bit integer
func (p *Parcel) ReadUint64() (uint64, error) {
	return p.readVarint("uint64")
}

// WriteBool appends a boolean
func (p *Parcel) WriteBool(v bool) {
	p.data = protowire.AppendVarint(p.data, protowire.EncodeBool(v))
}

// ReadBool reads a boolean
func (p *Parcel) ReadBool() (bool, error) {
	v, err := p.readVarint("bool")
	if err != nil {
		return false, err
	}
	return protowire.DecodeBool(v), nil
}

// WriteFloat64 appends a 64-bit float
func (p *Parcel) WriteFloat64(v float64) {
	p.data = protowire.AppendFixed64(p.data, math.Float64bits(v))
}

// ReadFloat64 reads a 64-bit float
func (p *Parcel) ReadFloat64() (float64, error) {
	v, n := protowire.ConsumeFixed64(p.data[p.pos:])
	if n < 0 {
		return 0, gerrors.NewErrUnderflow("float64", p.pos)
	}
	p.pos += n
	return math.Float64frombits(v), nil
}

// WriteString appends a length-prefixed string
func (p *Parcel) WriteString(v string) {
	p.data = protowire.AppendString(p.data, v)
}

// ReadString reads a length-prefixed string
func (p *Parcel) ReadString() (string, error) {
	v, n := protowire.ConsumeString(p.data[p.pos:])
	if n < 0 {
		return "", gerrors.NewErrUnderflow("string", p.pos)
	}
	p.pos += n
	return v, nil
}

// WriteBytes appends a length-prefixed byte slice
func (p *Parcel) WriteBytes(v []byte) {
	p.data = protowire.AppendBytes(p.data, v)
}

// ReadBytes reads a length-prefixed byte slice. The returned slice is a copy.
func (p *Parcel) ReadBytes() ([]byte, error) {
	v, n := protowire.ConsumeBytes(p.data[p.pos:])
	if n < 0 {
		return nil, gerrors.NewErrUnderflow("bytes", p.pos)
	}
	p.pos += n
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

// WriteStrings appends a list of strings. A nil list and an empty list are kept apart.
func (p *Parcel) WriteStrings(values []string) {
	if values == nil {
		p.WriteInt32(noStrings)
		return
	}
	p.WriteInt32(int32(len(values)))
	for _, v := range values {
		p.WriteString(v)
	}
}

// ReadStrings reads a list of strings
func (p *Parcel) ReadStrings() ([]string, error) {
	start := p.pos
	size, err := p.ReadInt32()
	if err != nil {
		return nil, err
	}
	if size == noStrings {
		return nil, nil
	}
	// every string costs at least one byte, anything larger cannot be satisfied
	if size < 0 || int(size) > p.Remaining() {
		return nil, gerrors.NewErrUnderflow("strings", start)
	}
	values := make([]string, 0, size)
	for range size {
		v, err := p.ReadString()
		if err != nil {
			return nil, err
		}
		values = append(values, v)
	}
	return values, nil
}

// WriteStrongBinder appends a binder object. nil is a valid value.
func (p *Parcel) WriteStrongBinder(b IBinder) {
	if isNilBinder(b) {
		p.WriteUint64(nullBinder)
		return
	}
	p.objects = append(p.objects, b)
	p.WriteUint64(uint64(len(p.objects)))
}

// ReadStrongBinder reads a binder object. A null reference yields nil.
func (p *Parcel) ReadStrongBinder() (IBinder, error) {
	start := p.pos
	ref, err := p.readVarint("binder")
	if err != nil {
		return nil, err
	}
	if ref == nullBinder {
		return nil, nil
	}
	if ref > uint64(len(p.objects)) {
		return nil, gerrors.NewErrUnderflow("binder", start)
	}
	return p.objects[ref-1], nil
}

// WriteNoException writes the reply header of a successful call
func (p *Parcel) WriteNoException() {
	p.WriteInt32(gerrors.ExceptionNone)
}

// WriteException writes the reply header of a failed call
func (p *Parcel) WriteException(err error) {
	p.WriteInt32(gerrors.ExceptionCode(err))
	var remote *gerrors.RemoteException
	if errors.As(err, &remote) {
		p.WriteString(remote.Message)
		return
	}
	p.WriteString(err.Error())
}

// ReadException reads the reply header. It returns a RemoteException
// when the remote side reported a failure.
func (p *Parcel) ReadException() error {
	code, err := p.ReadInt32()
	if err != nil {
		return err
	}
	if code == gerrors.ExceptionNone {
		return nil
	}
	message, err := p.ReadString()
	if err != nil {
		return err
	}
	return gerrors.NewRemoteException(code, message)
}

func (p *Parcel) readVarint(kind string) (uint64, error) {
	v, n := protowire.ConsumeVarint(p.data[p.pos:])
	if n < 0 {
		return 0, gerrors.NewErrUnderflow(kind, p.pos)
	}
	p.pos += n
	return v, nil
}
