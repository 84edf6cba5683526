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
	"sync"

	gerrors "github.com/tochemey/goipc/errors"
)

// loopback is a Channel that serves local objects in-process, copying the
// payload so that both sides see their own parcel.
type loopback struct {
	mu      sync.Mutex
	objects map[Handle]*Binder
	dead    map[Handle]bool
	subs    map[Handle][]*Subscription
	proxies map[Handle]*Proxy
}

var _ Channel = (*loopback)(nil)

func newLoopback() *loopback {
	return &loopback{
		objects: make(map[Handle]*Binder),
		dead:    make(map[Handle]bool),
		subs:    make(map[Handle][]*Subscription),
		proxies: make(map[Handle]*Proxy),
	}
}

func (l *loopback) publish(handle Handle, b *Binder) *Proxy {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.objects[handle] = b
	proxy := NewProxy(l, handle)
	l.proxies[handle] = proxy
	return proxy
}

func (l *loopback) kill(handle Handle) {
	l.mu.Lock()
	l.dead[handle] = true
	subs := l.subs[handle]
	delete(l.subs, handle)
	l.mu.Unlock()

	for _, sub := range subs {
		sub.Deliver()
	}
}

func (l *loopback) Transact(ctx context.Context, handle Handle, code uint32, data *Parcel, flags Flags) (*Parcel, Status, error) {
	l.mu.Lock()
	object, ok := l.objects[handle]
	dead := l.dead[handle]
	l.mu.Unlock()

	if !ok || dead {
		return nil, StatusDeadObject, gerrors.NewErrDeadObject(uint64(handle))
	}

	payload := make([]byte, data.Len())
	copy(payload, data.Bytes())
	reply, status := object.Exec(ctx, code, ParcelFrom(payload, data.Objects()), flags)
	return reply, status, nil
}

func (l *loopback) LinkToDeath(handle Handle, sub *Subscription) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.dead[handle] {
		return gerrors.NewErrDeadObject(uint64(handle))
	}
	l.subs[handle] = append(l.subs[handle], sub)
	return nil
}

func (l *loopback) UnlinkToDeath(handle Handle, sub *Subscription) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	subs := l.subs[handle]
	for index, candidate := range subs {
		if candidate == sub {
			l.subs[handle] = append(subs[:index], subs[index+1:]...)
			return true
		}
	}
	return false
}

func (l *loopback) IsAlive(handle Handle) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.objects[handle]
	return ok && !l.dead[handle]
}
