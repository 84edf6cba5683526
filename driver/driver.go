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

// Package driver is an in-process transaction channel. It plays the part of the
// kernel driver between simulated processes: it owns the table of exported
// objects, hands out per-process handles, translates binder objects carried by
// parcels and delivers death notifications when a process is killed.
package driver

import (
	"fmt"
	"sync"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/internal/xsync"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
	"github.com/tochemey/goipc/telemetry"
)

// node is an exported local object
type node struct {
	owner  *Process
	binder *binder.Binder
	// subs maps each death subscription to the process that armed it
	subs map[*binder.Subscription]*Process
}

// Driver connects processes
type Driver struct {
	mu             sync.Mutex
	processes      map[int32]*Process
	contextManager *node

	logger    log.Logger
	telemetry *telemetry.Telemetry
	metrics   *telemetry.TransactionMetrics
}

// New creates a Driver
func New(opts ...Option) *Driver {
	d := &Driver{
		processes: make(map[int32]*Process),
		logger:    log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(d)
	}
	if d.telemetry != nil {
		metrics, err := telemetry.NewTransactionMetrics(d.telemetry.Meter())
		if err != nil {
			d.logger.Warnf("driver metrics disabled: %v", err)
		}
		d.metrics = metrics
	}
	return d
}

// NewProcess registers a process with the given identity
func (d *Driver) NewProcess(pid, uid int32, opts ...ProcessOption) (*Process, error) {
	p := &Process{
		driver:   d,
		identity: binder.Identity{PID: pid, UID: uid},
		nodes:    make(map[*binder.Binder]*node),
		refs:     make(map[binder.Handle]*node),
		handles:  make(map[*node]binder.Handle),
		proxies:  xsync.NewMap[binder.Handle, *binder.Proxy](),
		next:     1,
	}
	p.alive.Store(true)
	for _, opt := range opts {
		opt.Apply(p)
	}
	if p.looper != nil {
		p.handler = looper.NewHandler(p.looper, nil, looper.WithTraceName(fmt.Sprintf("binder:%d", pid)))
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if existing, ok := d.processes[pid]; ok && existing.Alive() {
		return nil, gerrors.NewErrInvalidArgument(fmt.Errorf("pid=(%d) is already registered", pid))
	}
	d.processes[pid] = p
	d.logger.Debugf("driver registered %s", p.identity)
	return p, nil
}

// Process returns the live process with the given pid
func (d *Driver) Process(pid int32) (*Process, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	p, ok := d.processes[pid]
	if !ok || !p.Alive() {
		return nil, false
	}
	return p, true
}

// exportLocked returns the node of a local object of owner, creating it on first use
func (d *Driver) exportLocked(owner *Process, b *binder.Binder) *node {
	if n, ok := owner.nodes[b]; ok {
		return n
	}
	n := &node{owner: owner, binder: b, subs: make(map[*binder.Subscription]*Process)}
	owner.nodes[b] = n
	return n
}

// translateLocked rewrites the object table of a parcel going from one process to another
func (d *Driver) translateLocked(from, to *Process, objects []binder.IBinder) []binder.IBinder {
	if len(objects) == 0 {
		return nil
	}
	out := make([]binder.IBinder, len(objects))
	for index, object := range objects {
		var n *node
		switch v := object.(type) {
		case *binder.Binder:
			n = d.exportLocked(from, v)
		case *binder.Proxy:
			if v.Channel() == binder.Channel(from) {
				n = from.lookupLocked(v.Handle())
			}
		}

		switch {
		case n == nil:
			// not owned by this driver, hand it over untouched
			out[index] = object
		case n.owner == to:
			out[index] = n.binder
		default:
			out[index] = to.proxyLocked(n)
		}
	}
	return out
}

// kill marks p dead and returns the subscriptions to deliver
func (d *Driver) kill(p *Process) []*binder.Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !p.alive.CompareAndSwap(true, false) {
		return nil
	}

	var subs []*binder.Subscription
	for _, n := range p.nodes {
		for sub, subscriber := range n.subs {
			if subscriber != p && subscriber.Alive() {
				subs = append(subs, sub)
			}
		}
		clear(n.subs)
	}

	// the dead process will not hear about anybody else's death
	for _, other := range d.processes {
		for _, n := range other.nodes {
			for sub, subscriber := range n.subs {
				if subscriber == p {
					delete(n.subs, sub)
				}
			}
		}
	}

	if d.contextManager != nil && d.contextManager.owner == p {
		d.logger.Warnf("driver context manager %s died", p.identity)
	}
	return subs
}
