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

package servicemanager

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

// dyingService is a service whose process dies while it is being published
type dyingService struct {
	binder.IBinder
}

func (x dyingService) LinkToDeath(recipient binder.DeathRecipient) (*binder.Subscription, error) {
	sub := binder.NewSubscription(x, recipient)
	sub.Deliver()
	return sub, nil
}

func (x dyingService) IsAlive() bool { return false }

func TestServer(t *testing.T) {
	ctx := context.Background()

	t.Run("With checkService after addService returning the same handle", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.client(f.process(t, 100, 10001))
		consumer := f.client(f.process(t, 200, 10002))

		greeter := newGreeter("hello")
		require.NoError(t, publisher.AddService(ctx, "greeter", greeter, false))

		first := consumer.CheckService(ctx, "greeter")
		require.NotNil(t, first)
		second := consumer.CheckService(ctx, "greeter")
		assert.True(t, first == second)
		assert.Equal(t, "hello", greet(t, first))

		// the publisher gets its own object back
		assert.True(t, publisher.CheckService(ctx, "greeter") == binder.IBinder(greeter))
		assert.Nil(t, consumer.CheckService(ctx, "missing"))
		f.stop(t)
	})
	t.Run("With addService twice republishing the name", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.client(f.process(t, 100, 10001))
		consumer := f.client(f.process(t, 200, 10002))

		require.NoError(t, publisher.AddService(ctx, "greeter", newGreeter("first"), false))
		require.NoError(t, publisher.AddService(ctx, "greeter", newGreeter("second"), false))

		assert.Equal(t, "second", greet(t, consumer.CheckService(ctx, "greeter")))
		assert.Equal(t, []string{"greeter"}, f.server.Names())
		f.stop(t)
	})
	t.Run("With invalid names rejected", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.client(f.process(t, 100, 10001))

		err := publisher.AddService(ctx, "", newGreeter("x"), false)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		err = publisher.AddService(ctx, strings.Repeat("s", 128), newGreeter("x"), false)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		err = publisher.AddService(ctx, "nil", nil, false)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		require.NoError(t, publisher.AddService(ctx, strings.Repeat("s", 127), newGreeter("x"), false))
		assert.Len(t, f.server.Names()[0], 127)
		f.stop(t)
	})
	t.Run("With listServices in sorted order", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.client(f.process(t, 100, 10001))

		for _, name := range []string{"charlie", "alpha", "bravo"} {
			require.NoError(t, publisher.AddService(ctx, name, newGreeter(name), false))
		}
		assert.Equal(t, []string{"alpha", "bravo", "charlie"}, publisher.ListServices(ctx))
		f.stop(t)
	})
	t.Run("With isolated callers", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.client(f.process(t, 100, 10001))
		isolated := f.client(f.process(t, 300, 99001))

		require.NoError(t, publisher.AddService(ctx, "private", newGreeter("private"), false))
		require.NoError(t, publisher.AddService(ctx, "public", newGreeter("public"), true))

		assert.Nil(t, isolated.CheckService(ctx, "private"))
		assert.Equal(t, "public", greet(t, isolated.CheckService(ctx, "public")))
		assert.Equal(t, []string{"public"}, isolated.ListServices(ctx))
		assert.Equal(t, []string{"private", "public"}, publisher.ListServices(ctx))

		err := isolated.AddService(ctx, "sneaky", newGreeter("sneaky"), true)
		require.ErrorIs(t, err, gerrors.ErrPermissionDenied)
		f.stop(t)
	})
	t.Run("With a permission controller", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		system := f.client(f.process(t, 100, 1000))
		app := f.client(f.process(t, 200, 10002))

		controller := NewPermissionController(func(_ context.Context, permission string, _, uid int32) bool {
			return permission == AddServicePermission && uid < 10000
		}, binder.WithLogger(log.DiscardLogger))
		require.NoError(t, system.SetPermissionController(ctx, controller))

		err := app.AddService(ctx, "greeter", newGreeter("app"), false)
		require.ErrorIs(t, err, gerrors.ErrPermissionDenied)
		var exception *gerrors.RemoteException
		require.ErrorAs(t, err, &exception)
		assert.Equal(t, gerrors.ExceptionSecurity, exception.Code)

		require.NoError(t, system.AddService(ctx, "greeter", newGreeter("system"), false))
		assert.Equal(t, "system", greet(t, app.CheckService(ctx, "greeter")))
		f.stop(t)
	})
	t.Run("With a dead permission controller", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		system := f.process(t, 100, 1000)
		app := f.client(f.process(t, 200, 10002))

		controller := NewPermissionController(func(context.Context, string, int32, int32) bool {
			return true
		}, binder.WithLogger(log.DiscardLogger))
		require.NoError(t, f.client(system).SetPermissionController(ctx, controller))
		system.Kill()

		err := app.AddService(ctx, "greeter", newGreeter("app"), false)
		require.Error(t, err)
		var exception *gerrors.RemoteException
		require.ErrorAs(t, err, &exception)
		assert.NotErrorIs(t, err, gerrors.ErrDeadObject)
		assert.Empty(t, f.server.Names())

		registry := f.process(t, 300, 10003).ContextObject()
		assert.True(t, registry.IsAlive())
		require.NoError(t, registry.Ping(ctx))
		f.stop(t)
	})
	t.Run("With a dead service removed", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.process(t, 100, 10001)
		consumer := f.client(f.process(t, 200, 10002))

		require.NoError(t, f.client(publisher).AddService(ctx, "greeter", newGreeter("hello"), false))
		require.NotNil(t, consumer.CheckService(ctx, "greeter"))

		publisher.Kill()
		assert.Nil(t, consumer.CheckService(ctx, "greeter"))
		assert.Empty(t, f.server.Names())
		f.stop(t)
	})
	t.Run("With a service dying while it is published", func(t *testing.T) {
		server := NewServer(WithLogger(log.DiscardLogger))
		greeter := newGreeter("stale")
		require.NoError(t, server.AddService(ctx, "greeter", greeter, false))

		err := server.AddService(ctx, "greeter", dyingService{newGreeter("dying")}, false)
		require.ErrorIs(t, err, gerrors.ErrDeadObject)
		assert.True(t, server.CheckService(ctx, "greeter") == binder.IBinder(greeter))

		err = server.AddService(ctx, "other", dyingService{newGreeter("dying")}, true)
		require.ErrorIs(t, err, gerrors.ErrDeadObject)
		assert.Nil(t, server.CheckService(ctx, "other"))
		assert.Equal(t, []string{"greeter"}, server.Names())
	})
	t.Run("With the reserved checkServices code", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		registry := f.process(t, 100, 10001).ContextObject()

		_, err := Interface.Call(ctx, registry, "checkServices")
		require.ErrorIs(t, err, gerrors.ErrUnknownTransaction)
		code, ok := Interface.Code("setPermissionController")
		require.True(t, ok)
		assert.EqualValues(t, 6, code)
		f.stop(t)
	})
	t.Run("With the server used in process", func(t *testing.T) {
		server := NewServer(WithLogger(log.DiscardLogger))
		greeter := newGreeter("local")
		require.NoError(t, server.AddService(ctx, "greeter", greeter, false))
		assert.True(t, server.CheckService(ctx, "greeter") == binder.IBinder(greeter))
		assert.Equal(t, "greeter", server.ListServices(ctx, 0))
		assert.Empty(t, server.ListServices(ctx, 1))
		assert.Empty(t, server.ListServices(ctx, -1))
		require.NoError(t, server.SetPermissionController(ctx, nil))
	})
}
