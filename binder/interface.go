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
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/zeebo/xxh3"

	gerrors "github.com/tochemey/goipc/errors"
)

// Kind is the wire type of a method argument or result
type Kind int

const (
	KindInt32 Kind = iota + 1
	KindInt64
	KindBool
	KindString
	KindStrings
	KindBytes
	KindFloat64
	KindBinder
)

// String returns the name of the kind
func (k Kind) String() string {
	switch k {
	case KindInt32:
		return "int32"
	case KindInt64:
		return "int64"
	case KindBool:
		return "bool"
	case KindString:
		return "string"
	case KindStrings:
		return "[]string"
	case KindBytes:
		return "[]byte"
	case KindFloat64:
		return "float64"
	case KindBinder:
		return "binder"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Method declares one operation of an interface. Its transaction code is
// FirstCallTransaction plus its position in the interface.
type Method struct {
	Name   string
	In     []Kind
	Out    []Kind
	OneWay bool
}

// Handler implements one method on the stub side. args hold the decoded arguments
// in declared order and the returned values are encoded in declared order.
type Handler func(ctx context.Context, args []any) ([]any, error)

// Interface is the method table shared by the proxy and stub sides of an interface.
// Both sides are generated from the same table so that the argument order and the
// transaction codes cannot drift apart.
type Interface struct {
	descriptor string
	methods    []Method
	codes      map[string]uint32
	hash       uint64
}

// NewInterface creates an Interface. It panics when the table is malformed:
// empty descriptor, unnamed or duplicated method, one-way method with results,
// or more methods than there are call codes.
func NewInterface(descriptor string, methods ...Method) *Interface {
	if descriptor == "" {
		panic("binder: interface descriptor is required")
	}
	if uint64(len(methods)) > uint64(LastCallTransaction-FirstCallTransaction+1) {
		panic("binder: too many methods in " + descriptor)
	}

	iface := &Interface{
		descriptor: descriptor,
		methods:    make([]Method, len(methods)),
		codes:      make(map[string]uint32, len(methods)),
	}

	for index, method := range methods {
		if method.Name == "" {
			panic(fmt.Sprintf("binder: method #%d of %s has no name", index, descriptor))
		}
		if _, ok := iface.codes[method.Name]; ok {
			panic(fmt.Sprintf("binder: duplicate method %s in %s", method.Name, descriptor))
		}
		if method.OneWay && len(method.Out) > 0 {
			panic(fmt.Sprintf("binder: one-way method %s in %s cannot return values", method.Name, descriptor))
		}
		iface.methods[index] = method
		iface.codes[method.Name] = FirstCallTransaction + uint32(index)
	}

	iface.hash = iface.fingerprint()
	return iface
}

// Descriptor returns the interface descriptor
func (i *Interface) Descriptor() string {
	return i.descriptor
}

// Methods returns a copy of the method table
func (i *Interface) Methods() []Method {
	out := make([]Method, len(i.methods))
	copy(out, i.methods)
	return out
}

// Code returns the transaction code of the named method
func (i *Interface) Code(name string) (uint32, bool) {
	code, ok := i.codes[name]
	return code, ok
}

// Method returns the method for a transaction code
func (i *Interface) Method(code uint32) (Method, bool) {
	if code < FirstCallTransaction || code-FirstCallTransaction >= uint32(len(i.methods)) {
		return Method{}, false
	}
	return i.methods[code-FirstCallTransaction], true
}

// Hash returns the fingerprint of the method table
func (i *Interface) Hash() uint64 {
	return i.hash
}

// Call invokes the named method on remote and returns its results in declared order.
// One-way methods return no result and never report remote failures.
func (i *Interface) Call(ctx context.Context, remote IBinder, name string, args ...any) ([]any, error) {
	code, ok := i.codes[name]
	if !ok {
		return nil, fmt.Errorf("%s.%s: %w", i.descriptor, name, gerrors.ErrUnknownMethod)
	}
	if isNilBinder(remote) {
		return nil, gerrors.NewErrInvalidArgument(fmt.Errorf("%s.%s: nil binder", i.descriptor, name))
	}

	method := i.methods[code-FirstCallTransaction]
	data := NewParcel()
	data.WriteInterfaceToken(i.descriptor)
	if err := writeValues(data, method.In, args); err != nil {
		return nil, fmt.Errorf("%s.%s: %w", i.descriptor, name, err)
	}

	var flags Flags
	if method.OneWay {
		flags |= FlagOneWay
	}

	reply, err := remote.Transact(ctx, code, data, flags)
	if err != nil {
		return nil, err
	}
	if method.OneWay {
		return nil, nil
	}
	if err := reply.ReadException(); err != nil {
		return nil, err
	}
	return readValues(reply, method.Out)
}

// NewStub creates the local object that serves the interface with the given handlers,
// keyed by method name. Methods without a handler are rejected as unknown transactions.
// It panics when a handler names a method the interface does not declare.
func (i *Interface) NewStub(handlers map[string]Handler, opts ...Option) *Binder {
	table := make([]Handler, len(i.methods))
	for name, handler := range handlers {
		code, ok := i.codes[name]
		if !ok {
			panic(fmt.Sprintf("binder: %s does not declare method %s", i.descriptor, name))
		}
		table[code-FirstCallTransaction] = handler
	}

	onTransact := func(ctx context.Context, code uint32, data, reply *Parcel, _ Flags) (bool, error) {
		if code >= FirstCallTransaction && code <= LastCallTransaction {
			if err := data.EnforceInterface(i.descriptor); err != nil {
				return true, StatusFailure(StatusBadType, err)
			}
		}

		method, ok := i.Method(code)
		if !ok {
			return false, nil
		}
		handler := table[code-FirstCallTransaction]
		if handler == nil {
			return false, nil
		}

		args, err := readValues(data, method.In)
		if err != nil {
			return true, StatusFailure(StatusNotEnoughData, err)
		}

		results, err := handler(ctx, args)
		if err != nil {
			return true, err
		}
		if method.OneWay {
			return true, nil
		}

		reply.WriteNoException()
		if err := writeValues(reply, method.Out, results); err != nil {
			return true, fmt.Errorf("%s.%s results: %w", i.descriptor, method.Name, err)
		}
		return true, nil
	}

	return NewBinder(i.descriptor, onTransact, append(opts, withInterfaceHash(i.hash))...)
}

// CheckHash compares the fingerprint of the remote object's method table with this one.
// A mismatch is reported with errors.ErrDescriptorMismatch.
func (i *Interface) CheckHash(ctx context.Context, remote IBinder) error {
	if isNilBinder(remote) {
		return gerrors.NewErrInvalidArgument(errors.New("nil binder"))
	}
	reply, err := remote.Transact(ctx, InterfaceHashTransaction, NewParcel(), 0)
	if err != nil {
		return err
	}
	hash, err := reply.ReadUint64()
	if err != nil {
		return err
	}
	if hash != i.hash {
		return fmt.Errorf("%s hash %x != %x: %w", i.descriptor, hash, i.hash, gerrors.ErrDescriptorMismatch)
	}
	return nil
}

func (i *Interface) fingerprint() uint64 {
	var sb strings.Builder
	sb.WriteString(i.descriptor)
	for _, method := range i.methods {
		sb.WriteByte(';')
		sb.WriteString(method.Name)
		sb.WriteByte('(')
		for _, kind := range method.In {
			sb.WriteString(kind.String())
			sb.WriteByte(',')
		}
		sb.WriteString(")(")
		for _, kind := range method.Out {
			sb.WriteString(kind.String())
			sb.WriteByte(',')
		}
		sb.WriteByte(')')
		if method.OneWay {
			sb.WriteString("oneway")
		}
	}
	return xxh3.HashString(sb.String())
}

func writeValues(p *Parcel, kinds []Kind, values []any) error {
	if len(values) != len(kinds) {
		return gerrors.NewErrInvalidArgument(fmt.Errorf("expected %d value(s), got %d", len(kinds), len(values)))
	}
	for index, kind := range kinds {
		if err := writeValue(p, kind, values[index]); err != nil {
			return gerrors.NewErrInvalidArgument(fmt.Errorf("value #%d: %w", index, err))
		}
	}
	return nil
}

func writeValue(p *Parcel, kind Kind, value any) error {
	switch kind {
	case KindInt32:
		switch v := value.(type) {
		case int32:
			p.WriteInt32(v)
		case int:
			if int(int32(v)) != v {
				return fmt.Errorf("%d overflows int32", v)
			}
			p.WriteInt32(int32(v))
		default:
			return mismatch(kind, value)
		}
	case KindInt64:
		switch v := value.(type) {
		case int64:
			p.WriteInt64(v)
		case int:
			p.WriteInt64(int64(v))
		default:
			return mismatch(kind, value)
		}
	case KindBool:
		v, ok := value.(bool)
		if !ok {
			return mismatch(kind, value)
		}
		p.WriteBool(v)
	case KindString:
		v, ok := value.(string)
		if !ok {
			return mismatch(kind, value)
		}
		p.WriteString(v)
	case KindStrings:
		v, ok := value.([]string)
		if !ok && value != nil {
			return mismatch(kind, value)
		}
		p.WriteStrings(v)
	case KindBytes:
		v, ok := value.([]byte)
		if !ok && value != nil {
			return mismatch(kind, value)
		}
		p.WriteBytes(v)
	case KindFloat64:
		v, ok := value.(float64)
		if !ok {
			return mismatch(kind, value)
		}
		p.WriteFloat64(v)
	case KindBinder:
		if value == nil {
			p.WriteStrongBinder(nil)
			return nil
		}
		v, ok := value.(IBinder)
		if !ok {
			return mismatch(kind, value)
		}
		p.WriteStrongBinder(v)
	default:
		return fmt.Errorf("unsupported kind %s", kind)
	}
	return nil
}

func readValues(p *Parcel, kinds []Kind) ([]any, error) {
	values := make([]any, 0, len(kinds))
	for _, kind := range kinds {
		value, err := readValue(p, kind)
		if err != nil {
			return nil, err
		}
		values = append(values, value)
	}
	return values, nil
}

func readValue(p *Parcel, kind Kind) (any, error) {
	switch kind {
	case KindInt32:
		return p.ReadInt32()
	case KindInt64:
		return p.ReadInt64()
	case KindBool:
		return p.ReadBool()
	case KindString:
		return p.ReadString()
	case KindStrings:
		return p.ReadStrings()
	case KindBytes:
		return p.ReadBytes()
	case KindFloat64:
		return p.ReadFloat64()
	case KindBinder:
		return p.ReadStrongBinder()
	default:
		return nil, fmt.Errorf("unsupported kind %s: %w", kind, gerrors.ErrUnderflow)
	}
}

func mismatch(kind Kind, value any) error {
	return fmt.Errorf("want %s, got %T", kind, value)
}
