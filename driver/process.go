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

package driver

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/internal/xsync"
	"github.com/tochemey/goipc/looper"
)

// Process is a participant of the driver. It is the Channel of every proxy it hands out.
type Process struct {
	driver   *Driver
	identity binder.Identity
	alive    atomic.Bool

	looper  *looper.Looper
	handler *looper.Handler

	// guarded by driver.mu
	nodes   map[*binder.Binder]*node
	refs    map[binder.Handle]*node
	handles map[*node]binder.Handle
	next    binder.Handle

	proxies *xsync.Map[binder.Handle, *binder.Proxy]
}

// enforce compilation error
var _ binder.Channel = (*Process)(nil)

// Identity returns the pid/uid of the process
func (p *Process) Identity() binder.Identity {
	return p.identity
}

// Alive reports whether the process has not been killed
func (p *Process) Alive() bool {
	return p.alive.Load()
}

// Looper returns the loop inbound transactions run on, if any
func (p *Process) Looper() *looper.Looper {
	return p.looper
}

// BecomeContextManager publishes b as the object behind the well-known handle 0
func (p *Process) BecomeContextManager(b *binder.Binder) error {
	d := p.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	if !p.Alive() {
		return gerrors.ErrTransportClosed
	}
	if d.contextManager != nil && d.contextManager.owner.Alive() {
		return gerrors.ErrContextManagerExists
	}
	d.contextManager = d.exportLocked(p, b)
	d.logger.Infof("driver context manager is now %s", p.identity)
	return nil
}

// ContextObject returns the object behind handle 0
func (p *Process) ContextObject() binder.IBinder {
	d := p.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	if cm := d.contextManager; cm != nil && cm.owner == p {
		return cm.binder
	}
	return p.proxyForHandle(binder.ContextManagerHandle)
}

// Kill marks the process dead, quits its loop and tells every subscriber of its
// objects, exactly once.
func (p *Process) Kill() {
	subs := p.driver.kill(p)
	if p.looper != nil {
		p.looper.Quit()
	}
	for _, sub := range subs {
		sub.Deliver()
	}
	p.driver.logger.Infof("driver killed %s, %d death notification(s) delivered", p.identity, len(subs))
}

// Transact delivers a transaction to the object behind handle
func (p *Process) Transact(ctx context.Context, handle binder.Handle, code uint32, data *binder.Parcel, flags binder.Flags) (*binder.Parcel, binder.Status, error) {
	d := p.driver
	if !p.Alive() {
		return nil, binder.StatusDeadObject, gerrors.ErrTransportClosed
	}

	d.mu.Lock()
	n := p.lookupLocked(handle)
	if n == nil || !n.owner.Alive() {
		d.mu.Unlock()
		return nil, binder.StatusDeadObject, gerrors.NewErrDeadObject(uint64(handle))
	}
	target := n.owner
	payload := make([]byte, data.Len())
	copy(payload, data.Bytes())
	in := binder.ParcelFrom(payload, d.translateLocked(p, target, data.Objects()))
	d.mu.Unlock()

	d.record(ctx, code, binder.StatusOK)

	var (
		reply  *binder.Parcel
		status binder.Status
	)
	run := func(ctx context.Context) {
		state := binder.ThreadStateFrom(ctx)
		token := state.SetCallingIdentity(p.identity)
		defer state.RestoreCallingIdentity(token)
		reply, status = n.binder.Exec(ctx, code, in, flags)
	}

	if err := target.deliver(ctx, run, flags.OneWay()); err != nil {
		d.record(ctx, code, binder.StatusDeadObject)
		return nil, binder.StatusDeadObject, err
	}
	if flags.OneWay() {
		return nil, binder.StatusOK, nil
	}
	if status != binder.StatusOK {
		d.record(ctx, code, status)
		return nil, status, nil
	}

	if reply != nil && len(reply.Objects()) > 0 {
		d.mu.Lock()
		reply = binder.ParcelFrom(reply.Bytes(), d.translateLocked(target, p, reply.Objects()))
		d.mu.Unlock()
	}
	return reply, binder.StatusOK, nil
}

// LinkToDeath arms sub on the object behind handle
func (p *Process) LinkToDeath(handle binder.Handle, sub *binder.Subscription) error {
	d := p.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	n := p.lookupLocked(handle)
	if n == nil || !n.owner.Alive() || !p.Alive() {
		return gerrors.NewErrDeadObject(uint64(handle))
	}
	n.subs[sub] = p
	return nil
}

// UnlinkToDeath disarms sub
func (p *Process) UnlinkToDeath(handle binder.Handle, sub *binder.Subscription) bool {
	d := p.driver
	d.mu.Lock()
	defer d.mu.Unlock()

	n := p.lookupLocked(handle)
	if n == nil {
		return false
	}
	if _, ok := n.subs[sub]; !ok {
		return false
	}
	delete(n.subs, sub)
	return true
}

// IsAlive reports whether the object behind handle is alive
func (p *Process) IsAlive(handle binder.Handle) bool {
	d := p.driver
	d.mu.Lock()
	defer d.mu.Unlock()
	n := p.lookupLocked(handle)
	return n != nil && n.owner.Alive()
}

// deliver runs an inbound transaction on the loop of the process, or on the
// calling goroutine when the process has none
func (p *Process) deliver(ctx context.Context, run func(ctx context.Context), oneWay bool) error {
	if p.handler != nil {
		if oneWay {
			if !p.handler.Post(run) {
				return gerrors.NewErrDeadObject(0)
			}
			return nil
		}
		if err := p.handler.RunAndWait(ctx, run); err != nil {
			if errors.Is(err, gerrors.ErrLooperQuitting) {
				return gerrors.NewErrDeadObject(0)
			}
			return err
		}
		return nil
	}

	// a binder thread of the target: fresh calling identity, no loop, caller's trace kept
	inbound := trace.ContextWithSpanContext(context.Background(), trace.SpanContextFromContext(ctx))
	inbound = binder.WithThreadState(inbound, binder.NewThreadState(p.identity))
	if oneWay {
		go run(inbound)
		return nil
	}
	run(inbound)
	return nil
}

// lookupLocked resolves a handle of this process
func (p *Process) lookupLocked(handle binder.Handle) *node {
	if handle == binder.ContextManagerHandle {
		return p.driver.contextManager
	}
	return p.refs[handle]
}

// proxyLocked returns the proxy of this process for n, assigning a handle on first use
func (p *Process) proxyLocked(n *node) *binder.Proxy {
	if n == p.driver.contextManager {
		return p.proxyForHandle(binder.ContextManagerHandle)
	}
	handle, ok := p.handles[n]
	if !ok {
		handle = p.next
		p.next++
		p.handles[n] = handle
		p.refs[handle] = n
	}
	return p.proxyForHandle(handle)
}

func (p *Process) proxyForHandle(handle binder.Handle) *binder.Proxy {
	proxy, _ := p.proxies.GetOrSet(handle, func() *binder.Proxy {
		return binder.NewProxy(p, handle)
	})
	return proxy
}

// record counts a transaction
func (d *Driver) record(ctx context.Context, code uint32, status binder.Status) {
	if d.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int64("code", int64(code)))
	if status == binder.StatusOK {
		d.metrics.TransactionCount().Add(ctx, 1, attrs)
		return
	}
	d.metrics.FailureCount().Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("status", status.String())))
}
