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
	"reflect"
)

// Handle is an opaque reference to a remote object, scoped to a Channel.
type Handle uint64

// ContextManagerHandle is the well-known handle of the registry
const ContextManagerHandle Handle = 0

// Flags modifies how a transaction is delivered
type Flags uint32

const (
	// FlagOneWay makes a transaction fire-and-forget: the caller does not wait for a reply.
	FlagOneWay Flags = 0x01
)

// OneWay reports whether the one-way flag is set
func (f Flags) OneWay() bool {
	return f&FlagOneWay != 0
}

const (
	// FirstCallTransaction is the code of the first user method
	FirstCallTransaction uint32 = 0x00000001
	// LastCallTransaction is the largest code a user method may use
	LastCallTransaction uint32 = 0x00ffffff
	// InterfaceHashTransaction asks an object for the fingerprint of its method table
	InterfaceHashTransaction uint32 = LastCallTransaction - 1
	// PingTransaction checks that an object is reachable
	PingTransaction = uint32('_')<<24 | uint32('P')<<16 | uint32('N')<<8 | uint32('G')
	// InterfaceTransaction asks an object for its interface descriptor
	InterfaceTransaction = uint32('_')<<24 | uint32('N')<<16 | uint32('T')<<8 | uint32('F')
)

// IBinder is the application-visible reference to an object that can receive
// transactions, whether it lives in this process (*Binder) or behind a
// transaction channel (*Proxy).
type IBinder interface {
	// Transact sends a transaction and waits for its reply, unless flags is FlagOneWay.
	// A nonzero status is reported as a *errors.StatusError.
	Transact(ctx context.Context, code uint32, data *Parcel, flags Flags) (*Parcel, error)
	// LinkToDeath registers recipient to be told when the object's process dies.
	// It fails with errors.ErrDeadObject when the object is already dead.
	LinkToDeath(recipient DeathRecipient) (*Subscription, error)
	// UnlinkToDeath cancels a subscription. It returns false when the subscription
	// was unknown or has already fired.
	UnlinkToDeath(sub *Subscription) bool
	// IsAlive reports whether the object's process is still alive
	IsAlive() bool
	// Ping checks that the object is reachable
	Ping(ctx context.Context) error
	// Descriptor returns the interface descriptor of the object
	Descriptor(ctx context.Context) (string, error)
}

// Local returns the local object behind b, if any
func Local(b IBinder) (*Binder, bool) {
	local, ok := b.(*Binder)
	return local, ok && local != nil
}

// Remote returns the proxy behind b, if any
func Remote(b IBinder) (*Proxy, bool) {
	proxy, ok := b.(*Proxy)
	return proxy, ok && proxy != nil
}

func isNilBinder(b IBinder) bool {
	if b == nil {
		return true
	}
	value := reflect.ValueOf(b)
	return value.Kind() == reflect.Pointer && value.IsNil()
}
