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

// Package stream carries transactions over any duplex byte stream, such as a
// unix socket or a TCP connection. Both ends of a Conn are symmetric: each may
// serve a root object at handle 0 and call the peer's objects through proxies.
package stream

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/internal/validation"
	"github.com/tochemey/goipc/internal/xsync"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
	"github.com/tochemey/goipc/telemetry"
)

type result struct {
	status  binder.Status
	data    []byte
	objects []wireObject
}

// Conn is a Transaction Channel over a net.Conn
type Conn struct {
	id   uuid.UUID
	conn net.Conn

	root           *binder.Binder
	peer           binder.Identity
	self           binder.Identity
	logger         log.Logger
	looper         *looper.Looper
	handler        *looper.Handler
	maxFrameSize   uint32
	maxConcurrency int
	telemetry      *telemetry.Telemetry
	metrics        *telemetry.TransactionMetrics

	writeMu sync.Mutex
	nextID  atomic.Uint64
	pending *xsync.Map[uint64, chan *result]
	proxies *xsync.Map[binder.Handle, *binder.Proxy]

	mu        sync.Mutex
	exports   map[uint64]*binder.Binder
	exportIDs map[*binder.Binder]uint64
	next      uint64
	subs      map[*binder.Subscription]binder.Handle

	ctx     context.Context
	cancel  context.CancelFunc
	closed  atomic.Bool
	cause   error
	done    chan struct{}
	reader  *errgroup.Group
	workers *errgroup.Group
}

var _ binder.Channel = (*Conn)(nil)

// NewConn starts serving the given connection. The returned Conn owns conn.
func NewConn(conn net.Conn, opts ...Option) *Conn {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Conn{
		id:             uuid.New(),
		conn:           conn,
		self:           binder.SelfIdentity(),
		peer:           binder.SelfIdentity(),
		logger:         log.DefaultLogger,
		maxFrameSize:   DefaultMaxFrameSize,
		maxConcurrency: DefaultMaxConcurrency,
		pending:        xsync.NewMap[uint64, chan *result](),
		proxies:        xsync.NewMap[binder.Handle, *binder.Proxy](),
		exports:        make(map[uint64]*binder.Binder),
		exportIDs:      make(map[*binder.Binder]uint64),
		next:           1,
		subs:           make(map[*binder.Subscription]binder.Handle),
		ctx:            ctx,
		cancel:         cancel,
		done:           make(chan struct{}),
		reader:         new(errgroup.Group),
		workers:        new(errgroup.Group),
	}

	for _, opt := range opts {
		opt.Apply(c)
	}
	c.sanitize()

	c.workers.SetLimit(c.maxConcurrency)
	if c.looper != nil {
		c.handler = looper.NewHandler(c.looper, nil, looper.WithTraceName(fmt.Sprintf("stream:%s", c.id)))
	}
	if c.telemetry != nil {
		metrics, err := telemetry.NewTransactionMetrics(c.telemetry.Meter())
		if err != nil {
			c.logger.Warnf("stream metrics disabled: %v", err)
		}
		c.metrics = metrics
	}

	c.reader.Go(c.readLoop)
	c.logger.Debugf("stream session=(%s) connected to %s", c.id, conn.RemoteAddr())
	return c
}

// sanitize replaces out of range limits with their defaults
func (c *Conn) sanitize() {
	if err := validation.New(validation.FailFast()).
		AddAssertion(c.maxConcurrency > 0, fmt.Sprintf("max concurrency=(%d) must be positive", c.maxConcurrency)).
		Validate(); err != nil {
		c.logger.Warnf("stream session=(%s) %v, using %d", c.id, err, DefaultMaxConcurrency)
		c.maxConcurrency = DefaultMaxConcurrency
	}
	if err := validation.New(validation.FailFast()).
		AddAssertion(c.maxFrameSize > prefixSize, fmt.Sprintf("max frame size=(%d) cannot hold a frame prefix", c.maxFrameSize)).
		Validate(); err != nil {
		c.logger.Warnf("stream session=(%s) %v, using %d", c.id, err, DefaultMaxFrameSize)
		c.maxFrameSize = DefaultMaxFrameSize
	}
}

// Dial connects to the given address and starts a Conn on it
func Dial(ctx context.Context, network, address string, opts ...Option) (*Conn, error) {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultDialTimeout)
		defer cancel()
	}

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, network, address)
	if err != nil {
		return nil, fmt.Errorf("stream dial %s: %w", address, err)
	}
	return NewConn(conn, opts...), nil
}

// Accept waits for the next connection on listener and starts a Conn on it
func Accept(listener net.Listener, opts ...Option) (*Conn, error) {
	conn, err := listener.Accept()
	if err != nil {
		return nil, err
	}
	return NewConn(conn, opts...), nil
}

// ID returns the session id of the connection
func (c *Conn) ID() uuid.UUID {
	return c.id
}

// Remote returns the proxy of the peer's root object
func (c *Conn) Remote() binder.IBinder {
	return c.proxyForHandle(binder.ContextManagerHandle)
}

// Done is closed once the connection is gone
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Err returns the reason the connection went away, nil while it is alive
func (c *Conn) Err() error {
	select {
	case <-c.done:
		return c.cause
	default:
		return nil
	}
}

// Close closes the connection. Every proxy of the connection dies and calls in
// flight fail with errors.ErrDeadObject. Close returns once the inbound
// transactions still being served have finished, so a handler served by this
// Conn must not call it.
func (c *Conn) Close() error {
	err := c.shutdown(gerrors.ErrTransportClosed)
	// the reader is the only caller of workers.Go
	return multierr.Combine(err, c.reader.Wait(), c.workers.Wait())
}

// Transact implements binder.Channel
func (c *Conn) Transact(ctx context.Context, handle binder.Handle, code uint32, data *binder.Parcel, flags binder.Flags) (*binder.Parcel, binder.Status, error) {
	if c.closed.Load() {
		return nil, binder.StatusDeadObject, gerrors.NewErrDeadObject(uint64(handle))
	}

	objects, err := c.flatten(data.Objects())
	if err != nil {
		return nil, binder.StatusBadValue, err
	}

	body := binary.BigEndian.AppendUint64(nil, uint64(handle))
	body = binary.BigEndian.AppendUint32(body, code)
	body = binary.BigEndian.AppendUint32(body, uint32(flags))
	body = appendParcel(body, data.Bytes(), objects)

	id := c.nextID.Inc()
	if flags.OneWay() {
		if err := c.write(encodeFrame(frameRequest, id, body)); err != nil {
			return nil, binder.StatusDeadObject, gerrors.NewErrDeadObject(uint64(handle))
		}
		c.record(ctx, code, binder.StatusOK)
		return nil, binder.StatusOK, nil
	}

	replies := make(chan *result, 1)
	c.pending.Set(id, replies)
	defer c.pending.Delete(id)

	if err := c.write(encodeFrame(frameRequest, id, body)); err != nil {
		c.record(ctx, code, binder.StatusDeadObject)
		return nil, binder.StatusDeadObject, gerrors.NewErrDeadObject(uint64(handle))
	}

	select {
	case res := <-replies:
		c.record(ctx, code, res.status)
		if res.status != binder.StatusOK {
			return nil, res.status, nil
		}
		in, err := c.unflatten(res.objects)
		if err != nil {
			return nil, binder.StatusBadValue, err
		}
		return binder.ParcelFrom(res.data, in), binder.StatusOK, nil
	case <-c.done:
		c.record(ctx, code, binder.StatusDeadObject)
		return nil, binder.StatusDeadObject, gerrors.NewErrDeadObject(uint64(handle))
	case <-ctx.Done():
		c.record(ctx, code, binder.StatusFailedTransaction)
		return nil, binder.StatusFailedTransaction, ctx.Err()
	}
}

// LinkToDeath implements binder.Channel
func (c *Conn) LinkToDeath(handle binder.Handle, sub *binder.Subscription) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed.Load() {
		return gerrors.NewErrDeadObject(uint64(handle))
	}
	c.subs[sub] = handle
	return nil
}

// UnlinkToDeath implements binder.Channel
func (c *Conn) UnlinkToDeath(_ binder.Handle, sub *binder.Subscription) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.subs[sub]; !ok {
		return false
	}
	delete(c.subs, sub)
	return true
}

// IsAlive implements binder.Channel
func (c *Conn) IsAlive(binder.Handle) bool {
	return !c.closed.Load()
}

func (c *Conn) write(frame []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if _, err := c.conn.Write(frame); err != nil {
		_ = c.shutdown(err)
		return err
	}
	return nil
}

func (c *Conn) readLoop() error {
	for {
		frame, err := readFrame(c.conn, c.maxFrameSize)
		if err != nil {
			if c.closed.Load() || errors.Is(err, io.EOF) {
				_ = c.shutdown(gerrors.ErrTransportClosed)
				return nil
			}
			_ = c.shutdown(err)
			return err
		}

		switch frame.kind {
		case frameRequest:
			req := frame
			c.workers.Go(func() error {
				c.serve(req)
				return nil
			})
		case frameReply:
			res, err := decodeReply(frame.body)
			if err != nil {
				_ = c.shutdown(err)
				return err
			}
			if replies, ok := c.pending.LoadAndDelete(frame.id); ok {
				replies <- res
			}
		default:
			err := gerrors.NewErrProtocol(fmt.Errorf("unexpected %s", frame.kind))
			_ = c.shutdown(err)
			return err
		}
	}
}

func decodeReply(body []byte) (*result, error) {
	d := &decoder{buf: body}
	status, err := d.uint32("status")
	if err != nil {
		return nil, err
	}
	res := &result{status: binder.Status(int32(status))}
	if res.status != binder.StatusOK {
		return res, nil
	}
	res.data, res.objects, err = d.parcel()
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (c *Conn) serve(req *frame) {
	d := &decoder{buf: req.body}
	handle, err := d.uint64("handle")
	if err != nil {
		c.logger.Warnf("stream session=(%s) dropped request %d: %v", c.id, req.id, err)
		return
	}
	code, err := d.uint32("code")
	if err != nil {
		c.logger.Warnf("stream session=(%s) dropped request %d: %v", c.id, req.id, err)
		return
	}
	rawFlags, err := d.uint32("flags")
	if err != nil {
		c.logger.Warnf("stream session=(%s) dropped request %d: %v", c.id, req.id, err)
		return
	}
	flags := binder.Flags(rawFlags)

	reply, status := c.exec(handle, code, flags, d)
	if flags.OneWay() {
		return
	}

	var (
		data    []byte
		objects []wireObject
	)
	if status == binder.StatusOK && reply != nil {
		data = reply.Bytes()
		if objects, err = c.flatten(reply.Objects()); err != nil {
			c.logger.Errorf("stream session=(%s) cannot send reply %d: %v", c.id, req.id, err)
			status = binder.StatusBadValue
		}
	}

	body := binary.BigEndian.AppendUint32(nil, uint32(int32(status)))
	if status == binder.StatusOK {
		body = appendParcel(body, data, objects)
	}
	if err := c.write(encodeFrame(frameReply, req.id, body)); err != nil {
		c.logger.Debugf("stream session=(%s) reply %d not sent: %v", c.id, req.id, err)
	}
}

func (c *Conn) exec(handle uint64, code uint32, flags binder.Flags, d *decoder) (*binder.Parcel, binder.Status) {
	data, wire, err := d.parcel()
	if err != nil {
		return nil, binder.StatusNotEnoughData
	}
	objects, err := c.unflatten(wire)
	if err != nil {
		return nil, binder.StatusBadValue
	}

	target := c.exported(handle)
	if target == nil {
		return nil, binder.StatusDeadObject
	}

	in := binder.ParcelFrom(data, objects)
	var (
		reply  *binder.Parcel
		status binder.Status
	)
	run := func(ctx context.Context) {
		state := binder.ThreadStateFrom(ctx)
		if state == nil {
			state = binder.NewThreadState(c.self)
			ctx = binder.WithThreadState(ctx, state)
		}
		token := state.SetCallingIdentity(c.peer)
		defer state.RestoreCallingIdentity(token)
		reply, status = target.Exec(ctx, code, in, flags)
	}

	if c.handler == nil {
		run(c.ctx)
		return reply, status
	}
	if flags.OneWay() {
		if !c.handler.Post(run) {
			return nil, binder.StatusDeadObject
		}
		return nil, binder.StatusOK
	}
	if err := c.handler.RunAndWait(c.ctx, run); err != nil {
		return nil, binder.StatusDeadObject
	}
	return reply, status
}

// exported resolves a handle the peer holds on one of our objects
func (c *Conn) exported(handle uint64) *binder.Binder {
	if handle == uint64(binder.ContextManagerHandle) {
		return c.root
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.exports[handle]
}

// flatten turns outgoing objects into wire references
func (c *Conn) flatten(objects []binder.IBinder) ([]wireObject, error) {
	if len(objects) == 0 {
		return nil, nil
	}
	out := make([]wireObject, len(objects))
	for index, object := range objects {
		switch v := object.(type) {
		case *binder.Binder:
			out[index] = wireObject{kind: objectSender, id: c.export(v)}
		case *binder.Proxy:
			if v.Channel() != binder.Channel(c) {
				return nil, gerrors.NewErrInvalidArgument(fmt.Errorf("object %d belongs to another channel", index))
			}
			out[index] = wireObject{kind: objectReceiver, id: uint64(v.Handle())}
		default:
			return nil, gerrors.NewErrInvalidArgument(fmt.Errorf("object %d of type %T cannot be sent", index, object))
		}
	}
	return out, nil
}

// unflatten turns incoming wire references into objects
func (c *Conn) unflatten(objects []wireObject) ([]binder.IBinder, error) {
	if len(objects) == 0 {
		return nil, nil
	}
	out := make([]binder.IBinder, len(objects))
	for index, object := range objects {
		switch object.kind {
		case objectSender:
			out[index] = c.proxyForHandle(binder.Handle(object.id))
		case objectReceiver:
			local := c.exported(object.id)
			if local == nil {
				return nil, gerrors.NewErrProtocol(fmt.Errorf("unknown object %d", object.id))
			}
			out[index] = local
		default:
			return nil, gerrors.NewErrProtocol(fmt.Errorf("unknown object kind %d", object.kind))
		}
	}
	return out, nil
}

func (c *Conn) export(b *binder.Binder) uint64 {
	if b == c.root {
		return uint64(binder.ContextManagerHandle)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if id, ok := c.exportIDs[b]; ok {
		return id
	}
	id := c.next
	c.next++
	c.exports[id] = b
	c.exportIDs[b] = id
	return id
}

func (c *Conn) proxyForHandle(handle binder.Handle) *binder.Proxy {
	proxy, _ := c.proxies.GetOrSet(handle, func() *binder.Proxy {
		return binder.NewProxy(c, handle)
	})
	return proxy
}

// shutdown tears the connection down once and delivers every death subscription
func (c *Conn) shutdown(cause error) error {
	if !c.closed.CompareAndSwap(false, true) {
		return nil
	}

	c.mu.Lock()
	subs := make([]*binder.Subscription, 0, len(c.subs))
	for sub := range c.subs {
		subs = append(subs, sub)
	}
	clear(c.subs)
	c.mu.Unlock()

	c.cause = cause
	err := c.conn.Close()
	if errors.Is(err, net.ErrClosed) {
		err = nil
	}
	c.cancel()
	close(c.done)

	for _, sub := range subs {
		sub.Deliver()
	}

	if errors.Is(cause, gerrors.ErrTransportClosed) {
		c.logger.Debugf("stream session=(%s) closed, %d death notification(s) delivered", c.id, len(subs))
	} else {
		c.logger.Warnf("stream session=(%s) lost: %v", c.id, cause)
	}
	return err
}

func (c *Conn) record(ctx context.Context, code uint32, status binder.Status) {
	if c.metrics == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.Int64("code", int64(code)), attribute.String("session", c.id.String()))
	if status == binder.StatusOK {
		c.metrics.TransactionCount().Add(ctx, 1, attrs)
		return
	}
	c.metrics.FailureCount().Add(ctx, 1, attrs, metric.WithAttributes(attribute.String("status", status.String())))
}
