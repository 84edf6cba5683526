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
	"go.uber.org/atomic"
)

// DeathRecipient is told when the process hosting a remote object dies
type DeathRecipient interface {
	BinderDied(who IBinder)
}

// DeathRecipientFunc adapts a function to a DeathRecipient
type DeathRecipientFunc func(who IBinder)

// BinderDied implements DeathRecipient
func (f DeathRecipientFunc) BinderDied(who IBinder) {
	f(who)
}

// Subscription binds a DeathRecipient to the object it watches.
// It fires at most once and becomes inert after firing or being cancelled.
type Subscription struct {
	who       IBinder
	recipient DeathRecipient
	done      *atomic.Bool
}

// NewSubscription creates a subscription. Transports create them on LinkToDeath.
func NewSubscription(who IBinder, recipient DeathRecipient) *Subscription {
	return &Subscription{
		who:       who,
		recipient: recipient,
		done:      atomic.NewBool(false),
	}
}

// Who returns the watched object
func (s *Subscription) Who() IBinder {
	return s.who
}

// Active reports whether the subscription can still fire
func (s *Subscription) Active() bool {
	return !s.done.Load()
}

// Deliver invokes the recipient unless the subscription already fired or was cancelled.
// It returns true when the recipient has been invoked by this call.
func (s *Subscription) Deliver() bool {
	if !s.done.CompareAndSwap(false, true) {
		return false
	}
	s.recipient.BinderDied(s.who)
	return true
}

// Cancel makes the subscription inert. It returns false when it was already inert.
func (s *Subscription) Cancel() bool {
	return s.done.CompareAndSwap(false, true)
}
