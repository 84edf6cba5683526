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
	"fmt"
	"runtime"

	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

// TransactFunc handles a transaction addressed to a local object. It returns
// handled=false for codes it does not know. Application failures are returned
// as err and travel back to the caller as an exception.
type TransactFunc func(ctx context.Context, code uint32, data, reply *Parcel, flags Flags) (handled bool, err error)

// Binder is a local object that can receive transactions. It answers the
// built-in ping, interface and interface-hash transactions itself and hands
// every other code to its TransactFunc.
type Binder struct {
	descriptor string
	onTransact TransactFunc
	hash       uint64
	logger     log.Logger
}

// enforce compilation error
var _ IBinder = (*Binder)(nil)

// NewBinder creates a local object for the given interface descriptor
func NewBinder(descriptor string, onTransact TransactFunc, opts ...Option) *Binder {
	b := &Binder{
		descriptor: descriptor,
		onTransact: onTransact,
		logger:     log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(b)
	}
	return b
}

// InterfaceDescriptor returns the descriptor of the object
func (b *Binder) InterfaceDescriptor() string {
	return b.descriptor
}

// Exec runs a transaction against the object and returns the reply and the transport status.
// Transports call it on the receiving side. For one-way transactions the reply is nil and
// failures are only logged.
func (b *Binder) Exec(ctx context.Context, code uint32, data *Parcel, flags Flags) (*Parcel, Status) {
	reply := NewParcel()
	switch code {
	case PingTransaction:
		return reply, StatusOK
	case InterfaceTransaction:
		reply.WriteString(b.descriptor)
		return reply, StatusOK
	case InterfaceHashTransaction:
		if b.hash != 0 {
			reply.WriteUint64(b.hash)
			return reply, StatusOK
		}
	}

	handled, err := b.invoke(ctx, code, data.Dup(), reply, flags)
	if err == nil && !handled {
		err = StatusFailure(StatusUnknownTransaction,
			fmt.Errorf("code=(%d) on %s: %w", code, b.descriptor, gerrors.ErrUnknownTransaction))
	}

	if flags.OneWay() {
		if err != nil {
			b.logger.Warnf("one-way transaction code=(%d) on %s failed: %v", code, b.descriptor, err)
		}
		return nil, StatusOK
	}

	if err == nil {
		return reply, StatusOK
	}

	if status := statusOf(err); status != StatusOK {
		return nil, status
	}

	// application failure: discard whatever the handler wrote and report the exception
	reply = NewParcel()
	reply.WriteException(err)
	return reply, StatusOK
}

// Transact runs the transaction in the calling goroutine
func (b *Binder) Transact(ctx context.Context, code uint32, data *Parcel, flags Flags) (*Parcel, error) {
	reply, status := b.Exec(ctx, code, data, flags)
	if status != StatusOK {
		return nil, status.Err()
	}
	if reply == nil {
		reply = NewParcel()
	}
	return reply, nil
}

// LinkToDeath returns an inert subscription: a local object dies with its caller.
func (b *Binder) LinkToDeath(recipient DeathRecipient) (*Subscription, error) {
	return NewSubscription(b, recipient), nil
}

// UnlinkToDeath cancels a subscription returned by LinkToDeath
func (b *Binder) UnlinkToDeath(sub *Subscription) bool {
	if sub == nil || sub.Who() != IBinder(b) {
		return false
	}
	return sub.Cancel()
}

// IsAlive always returns true for a local object
func (b *Binder) IsAlive() bool {
	return true
}

// Ping always succeeds for a local object
func (b *Binder) Ping(context.Context) error {
	return nil
}

// Descriptor returns the descriptor of the object
func (b *Binder) Descriptor(context.Context) (string, error) {
	return b.descriptor, nil
}

// invoke calls the TransactFunc, converting a panic into an error
func (b *Binder) invoke(ctx context.Context, code uint32, data, reply *Parcel, flags Flags) (handled bool, err error) {
	if b.onTransact == nil {
		return false, nil
	}

	defer func() {
		if r := recover(); r != nil {
			var pe error
			if e, ok := r.(error); ok {
				pe = gerrors.NewPanicError(e)
			} else {
				pe = gerrors.NewPanicError(fmt.Errorf("%#v", r))
			}
			// get the stack trace
			if _, file, line, ok := runtime.Caller(2); ok {
				pe = fmt.Errorf("%w at %s[%d]", pe, file, line)
			}
			b.logger.Errorf("transaction code=(%d) on %s panicked: %v", code, b.descriptor, pe)
			handled, err = true, pe
		}
	}()

	return b.onTransact(ctx, code, data, reply, flags)
}
