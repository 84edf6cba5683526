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
)

// Channel is the transport a Proxy sends its transactions through.
// Implementations must report a gone peer with an error wrapping errors.ErrDeadObject;
// callers never retry such a failure.
type Channel interface {
	// Transact delivers a transaction to the object behind handle. One-way transactions
	// return immediately with a nil reply and StatusOK.
	Transact(ctx context.Context, handle Handle, code uint32, data *Parcel, flags Flags) (reply *Parcel, status Status, err error)
	// LinkToDeath arms sub to fire when the object behind handle dies.
	// It fails with errors.ErrDeadObject when the object is already dead.
	LinkToDeath(handle Handle, sub *Subscription) error
	// UnlinkToDeath disarms sub. It returns false when sub was not armed.
	UnlinkToDeath(handle Handle, sub *Subscription) bool
	// IsAlive reports whether the object behind handle is alive
	IsAlive(handle Handle) bool
}

// Proxy is the local stand-in of a remote object
type Proxy struct {
	channel Channel
	handle  Handle
}

// enforce compilation error
var _ IBinder = (*Proxy)(nil)

// NewProxy creates a proxy. Transports keep one proxy per handle so that
// equal handles compare equal.
func NewProxy(channel Channel, handle Handle) *Proxy {
	return &Proxy{channel: channel, handle: handle}
}

// Handle returns the handle of the remote object
func (p *Proxy) Handle() Handle {
	return p.handle
}

// Channel returns the channel the proxy talks through
func (p *Proxy) Channel() Channel {
	return p.channel
}

// Transact sends a transaction to the remote object
func (p *Proxy) Transact(ctx context.Context, code uint32, data *Parcel, flags Flags) (*Parcel, error) {
	if data == nil {
		data = NewParcel()
	}
	reply, status, err := p.channel.Transact(ctx, p.handle, code, data, flags)
	if err != nil {
		return nil, err
	}
	if status != StatusOK {
		return nil, status.Err()
	}
	if reply == nil {
		reply = NewParcel()
	}
	return reply, nil
}

// LinkToDeath registers recipient for the death of the remote object
func (p *Proxy) LinkToDeath(recipient DeathRecipient) (*Subscription, error) {
	sub := NewSubscription(p, recipient)
	if err := p.channel.LinkToDeath(p.handle, sub); err != nil {
		return nil, err
	}
	return sub, nil
}

// UnlinkToDeath cancels a death subscription
func (p *Proxy) UnlinkToDeath(sub *Subscription) bool {
	if sub == nil {
		return false
	}
	if !p.channel.UnlinkToDeath(p.handle, sub) {
		return false
	}
	return sub.Cancel()
}

// IsAlive reports whether the remote object is alive
func (p *Proxy) IsAlive() bool {
	return p.channel.IsAlive(p.handle)
}

// Ping sends a ping transaction
func (p *Proxy) Ping(ctx context.Context) error {
	_, err := p.Transact(ctx, PingTransaction, NewParcel(), 0)
	return err
}

// Descriptor asks the remote object for its interface descriptor
func (p *Proxy) Descriptor(ctx context.Context) (string, error) {
	reply, err := p.Transact(ctx, InterfaceTransaction, NewParcel(), 0)
	if err != nil {
		return "", err
	}
	return reply.ReadString()
}
