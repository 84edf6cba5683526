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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"go.uber.org/atomic"
	"go.uber.org/goleak"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
	"github.com/tochemey/goipc/telemetry"
)

var counterInterface = binder.NewInterface("test.ICounter",
	binder.Method{Name: "add", In: []binder.Kind{binder.KindInt32}, Out: []binder.Kind{binder.KindInt32}},
	binder.Method{Name: "whoami", Out: []binder.Kind{binder.KindInt32, binder.KindInt32}},
	binder.Method{Name: "register", In: []binder.Kind{binder.KindBinder}, Out: []binder.Kind{binder.KindBool}},
	binder.Method{Name: "callback", In: []binder.Kind{binder.KindString}, Out: []binder.Kind{binder.KindString}},
	binder.Method{Name: "echoBinder", In: []binder.Kind{binder.KindBinder}, Out: []binder.Kind{binder.KindBinder}},
	binder.Method{Name: "bump", OneWay: true},
)

type counter struct {
	total     *atomic.Int32
	bumps     chan struct{}
	callbacks chan binder.IBinder
	onLoop    *atomic.Bool
}

func newCounter(l *looper.Looper) (*counter, *binder.Binder) {
	c := &counter{
		total:     atomic.NewInt32(0),
		bumps:     make(chan struct{}, 10),
		callbacks: make(chan binder.IBinder, 10),
		onLoop:    atomic.NewBool(false),
	}
	stub := counterInterface.NewStub(map[string]binder.Handler{
		"add": func(ctx context.Context, args []any) ([]any, error) {
			if l != nil {
				c.onLoop.Store(l.IsCurrent(ctx))
			}
			return []any{c.total.Add(args[0].(int32))}, nil
		},
		"whoami": func(ctx context.Context, _ []any) ([]any, error) {
			identity := binder.CallingIdentity(ctx)
			return []any{identity.PID, identity.UID}, nil
		},
		"register": func(_ context.Context, args []any) ([]any, error) {
			c.callbacks <- args[0].(binder.IBinder)
			return []any{true}, nil
		},
		"echoBinder": func(_ context.Context, args []any) ([]any, error) {
			return args, nil
		},
		"bump": func(context.Context, []any) ([]any, error) {
			c.bumps <- struct{}{}
			return nil, nil
		},
	}, binder.WithLogger(log.DiscardLogger))
	return c, stub
}

type world struct {
	driver  *Driver
	client  *Process
	server  *Process
	thread  *looper.Thread
	counter *counter
	stub    *binder.Binder
}

func newWorld(t *testing.T) *world {
	t.Helper()
	d := New(WithLogger(log.DiscardLogger),
		WithTelemetry(telemetry.New(telemetry.WithMeterProvider(noop.NewMeterProvider()))))

	thread := looper.NewThread("server", looper.WithLogger(log.DiscardLogger))
	server, err := d.NewProcess(200, 1000, WithLooper(thread.Looper()))
	require.NoError(t, err)
	client, err := d.NewProcess(300, 10001)
	require.NoError(t, err)

	c, stub := newCounter(thread.Looper())
	require.NoError(t, server.BecomeContextManager(stub))

	return &world{driver: d, client: client, server: server, thread: thread, counter: c, stub: stub}
}

func (w *world) stop(t *testing.T) {
	t.Helper()
	w.thread.Quit()
	require.NoError(t, w.thread.Join())
}

func TestDriver(t *testing.T) {
	ctx := context.Background()

	t.Run("With calls served on the server loop", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)

		remote := w.client.ContextObject()
		proxy, ok := binder.Remote(remote)
		require.True(t, ok)
		assert.Equal(t, binder.ContextManagerHandle, proxy.Handle())
		assert.True(t, remote == w.client.ContextObject())

		results, err := counterInterface.Call(ctx, remote, "add", int32(5))
		require.NoError(t, err)
		assert.Equal(t, []any{int32(5)}, results)
		assert.True(t, w.counter.onLoop.Load())

		results, err = counterInterface.Call(ctx, remote, "whoami")
		require.NoError(t, err)
		assert.Equal(t, []any{int32(300), int32(10001)}, results)

		descriptor, err := remote.Descriptor(ctx)
		require.NoError(t, err)
		assert.Equal(t, "test.ICounter", descriptor)
		require.NoError(t, counterInterface.CheckHash(ctx, remote))

		local := w.server.ContextObject()
		assert.True(t, local == binder.IBinder(w.stub))
		w.stop(t)
	})
	t.Run("With an unknown transaction code rejected while the loop keeps running", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)
		remote := w.client.ContextObject()

		data := binder.NewParcel()
		data.WriteInterfaceToken("test.ICounter")
		_, err := remote.Transact(ctx, binder.FirstCallTransaction+40, data, 0)
		require.ErrorIs(t, err, gerrors.ErrUnknownTransaction)

		results, err := counterInterface.Call(ctx, remote, "add", int32(2))
		require.NoError(t, err)
		assert.Equal(t, []any{int32(2)}, results)
		assert.Equal(t, looper.Running, w.thread.Looper().State())
		w.stop(t)
	})
	t.Run("With binder objects translated across processes", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)
		remote := w.client.ContextObject()

		callback := counterInterface.NewStub(map[string]binder.Handler{
			"callback": func(ctx context.Context, args []any) ([]any, error) {
				identity := binder.CallingIdentity(ctx)
				return []any{args[0].(string) + " from " + identity.String()}, nil
			},
		}, binder.WithLogger(log.DiscardLogger))

		_, err := counterInterface.Call(ctx, remote, "register", callback)
		require.NoError(t, err)
		_, err = counterInterface.Call(ctx, remote, "register", callback)
		require.NoError(t, err)

		first, second := <-w.counter.callbacks, <-w.counter.callbacks
		assert.True(t, first == second, "the same object yields the same proxy")
		_, isProxy := binder.Remote(first)
		require.True(t, isProxy)

		results, err := counterInterface.Call(ctx, first, "callback", "hello")
		require.NoError(t, err)
		assert.Equal(t, []any{"hello from pid=200 uid=1000"}, results)

		// a local object sent out and back comes home as itself
		results, err = counterInterface.Call(ctx, remote, "echoBinder", callback)
		require.NoError(t, err)
		assert.True(t, results[0] == binder.IBinder(callback))

		// the server's own object sent back to the server is local there
		results, err = counterInterface.Call(ctx, remote, "echoBinder", remote)
		require.NoError(t, err)
		assert.True(t, results[0] == remote)
		w.stop(t)
	})
	t.Run("With one-way calls", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)
		remote := w.client.ContextObject()

		results, err := counterInterface.Call(ctx, remote, "bump")
		require.NoError(t, err)
		assert.Nil(t, results)

		select {
		case <-w.counter.bumps:
		case <-time.After(time.Second):
			t.Fatal("one-way call not delivered")
		}
		w.stop(t)
	})
	t.Run("With death delivered once when the server is killed", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)
		remote := w.client.ContextObject()

		deaths := atomic.NewInt32(0)
		_, err := remote.LinkToDeath(binder.DeathRecipientFunc(func(who binder.IBinder) {
			assert.True(t, who == remote)
			deaths.Inc()
		}))
		require.NoError(t, err)
		unlinked, err := remote.LinkToDeath(binder.DeathRecipientFunc(func(binder.IBinder) { deaths.Inc() }))
		require.NoError(t, err)
		assert.True(t, remote.UnlinkToDeath(unlinked))
		assert.True(t, remote.IsAlive())

		w.server.Kill()
		w.server.Kill()
		require.NoError(t, w.thread.Join())

		assert.EqualValues(t, 1, deaths.Load())
		assert.False(t, remote.IsAlive())
		assert.False(t, w.server.Alive())

		_, err = counterInterface.Call(ctx, remote, "add", int32(1))
		require.ErrorIs(t, err, gerrors.ErrDeadObject)

		_, err = remote.LinkToDeath(binder.DeathRecipientFunc(func(binder.IBinder) {}))
		require.ErrorIs(t, err, gerrors.ErrDeadObject)

		_, ok := w.driver.Process(200)
		assert.False(t, ok)
	})
	t.Run("With a killed caller", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)
		remote := w.client.ContextObject()
		w.client.Kill()

		_, err := counterInterface.Call(ctx, remote, "add", int32(1))
		require.ErrorIs(t, err, gerrors.ErrTransportClosed)
		w.stop(t)
	})
	t.Run("With a single context manager", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		w := newWorld(t)

		_, other := newCounter(nil)
		require.ErrorIs(t, w.client.BecomeContextManager(other), gerrors.ErrContextManagerExists)

		w.server.Kill()
		require.NoError(t, w.thread.Join())
		require.NoError(t, w.client.BecomeContextManager(other))
		assert.True(t, w.client.ContextObject() == binder.IBinder(other))
	})
	t.Run("With duplicate pids", func(t *testing.T) {
		d := New(WithLogger(log.DiscardLogger))
		p, err := d.NewProcess(1, 1)
		require.NoError(t, err)
		_, err = d.NewProcess(1, 2)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		found, ok := d.Process(1)
		require.True(t, ok)
		assert.Same(t, p, found)
		assert.Nil(t, p.Looper())

		p.Kill()
		_, err = d.NewProcess(1, 2)
		require.NoError(t, err)
	})
	t.Run("With no context manager", func(t *testing.T) {
		d := New(WithLogger(log.DiscardLogger))
		p, err := d.NewProcess(1, 1)
		require.NoError(t, err)
		require.ErrorIs(t, p.ContextObject().Ping(ctx), gerrors.ErrDeadObject)
	})
}
