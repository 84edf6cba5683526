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
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
)

func TestClient(t *testing.T) {
	ctx := context.Background()

	t.Run("With getService before addService giving up after the bound", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		consumer := f.client(f.process(t, 200, 10002), WithRetry(3, 10*time.Millisecond, 20*time.Millisecond))

		assert.Nil(t, consumer.GetService(ctx, "late"))
		_, err := consumer.GetServiceOrError(ctx, "late")
		require.ErrorIs(t, err, gerrors.ErrServiceNotFound)
		f.stop(t)
	})
	t.Run("With getService waiting for the service to appear", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		publisher := f.client(f.process(t, 100, 10001))
		consumer := f.client(f.process(t, 200, 10002), WithRetry(50, 10*time.Millisecond, 20*time.Millisecond))

		var (
			wg    sync.WaitGroup
			found [2]binder.IBinder
		)
		for i := range found {
			wg.Add(1)
			go func() {
				defer wg.Done()
				found[i] = consumer.GetService(ctx, "late")
			}()
		}

		time.Sleep(50 * time.Millisecond)
		require.NoError(t, publisher.AddService(ctx, "late", newGreeter("finally"), false))
		wg.Wait()

		require.NotNil(t, found[0])
		assert.True(t, found[0] == found[1])
		assert.True(t, found[0] == consumer.CheckService(ctx, "late"))
		assert.Equal(t, "finally", greet(t, found[0]))
		f.stop(t)
	})
	t.Run("With a seeded cache", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		consumer := f.client(f.process(t, 200, 10002), WithRetry(1, time.Millisecond, time.Millisecond))

		cached := newGreeter("cached")
		require.NoError(t, consumer.InitServiceCache(map[string]binder.IBinder{"cached": cached}))
		require.ErrorIs(t, consumer.InitServiceCache(nil), gerrors.ErrCacheAlreadyInitialized)

		// served without asking the registry
		assert.True(t, consumer.GetService(ctx, "cached") == binder.IBinder(cached))
		assert.True(t, consumer.CheckService(ctx, "cached") == binder.IBinder(cached))
		assert.Empty(t, f.server.Names())
		f.stop(t)
	})
	t.Run("With a dead registry", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		consumer := f.client(f.process(t, 200, 10002))

		f.registry.Kill()
		require.NoError(t, f.thread.Join())

		start := time.Now()
		_, err := consumer.GetServiceOrError(ctx, "anything")
		require.ErrorIs(t, err, gerrors.ErrDeadObject)
		assert.Less(t, time.Since(start), DefaultRetryDelay, "dead registry is not retried")

		assert.Nil(t, consumer.CheckService(ctx, "anything"))
		assert.Empty(t, consumer.ListServices(ctx))
		require.ErrorIs(t, consumer.AddService(ctx, "anything", newGreeter("x"), false), gerrors.ErrDeadObject)
		require.ErrorIs(t, consumer.SetPermissionController(ctx, nil), gerrors.ErrDeadObject)
	})
	t.Run("With a canceled context", func(t *testing.T) {
		defer goleak.VerifyNone(t)
		f := newFixture(t)
		consumer := f.client(f.process(t, 200, 10002), WithRetry(100, 10*time.Millisecond, 10*time.Millisecond))

		cancelCtx, cancel := context.WithTimeout(ctx, 30*time.Millisecond)
		defer cancel()
		_, err := consumer.GetServiceOrError(cancelCtx, "never")
		require.ErrorIs(t, err, context.DeadlineExceeded)
		f.stop(t)
	})
}
