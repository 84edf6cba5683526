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
	"errors"
	"sync"
	"time"

	"github.com/flowchartsman/retry"
	"golang.org/x/sync/singleflight"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

// Client talks to the registry on behalf of a process. Lookups are served
// from a local cache when the name was seeded with InitServiceCache.
type Client struct {
	registry binder.IBinder
	logger   log.Logger

	retryAttempts int
	retryDelay    time.Duration
	retryMaxDelay time.Duration

	mu          sync.Mutex
	cache       map[string]binder.IBinder
	cacheLoaded bool

	group singleflight.Group
}

// NewClient creates a client of the registry object
func NewClient(registry binder.IBinder, opts ...Option) *Client {
	cfg := newConfig(opts...)
	return &Client{
		registry:      registry,
		logger:        cfg.logger,
		retryAttempts: cfg.retryAttempts,
		retryDelay:    cfg.retryDelay,
		retryMaxDelay: cfg.retryMaxDelay,
		cache:         make(map[string]binder.IBinder),
	}
}

// GetService returns the service published under name, waiting a bounded
// time for it to appear. It returns nil when the service is still absent or
// the registry cannot be reached.
func (c *Client) GetService(ctx context.Context, name string) binder.IBinder {
	service, err := c.GetServiceOrError(ctx, name)
	if err != nil {
		c.logger.Warnf("service=(%s) unavailable: %v", name, err)
		return nil
	}
	return service
}

// GetServiceOrError is GetService reporting why the service is unavailable:
// errors.ErrServiceNotFound after the wait, or the transport failure.
func (c *Client) GetServiceOrError(ctx context.Context, name string) (binder.IBinder, error) {
	if service, ok := c.cached(name); ok {
		return service, nil
	}

	value, err, _ := c.group.Do(name, func() (any, error) {
		var (
			service binder.IBinder
			lastErr error
		)
		retrier := retry.NewRetrier(c.retryAttempts, c.retryDelay, c.retryMaxDelay)
		err := retrier.RunContext(ctx, func(ctx context.Context) error {
			results, err := Interface.Call(ctx, c.registry, "getService", name)
			if err != nil {
				lastErr = err
				// a dead registry does not come back
				if errors.Is(err, gerrors.ErrDeadObject) {
					return retry.Stop(err)
				}
				return err
			}
			found, _ := results[0].(binder.IBinder)
			if found == nil {
				lastErr = gerrors.NewErrServiceNotFound(name)
				return lastErr
			}
			service = found
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, lastErr
		}
		return service, nil
	})
	if err != nil {
		return nil, err
	}
	return value.(binder.IBinder), nil
}

// CheckService returns the service published under name without waiting,
// or nil when it is absent.
func (c *Client) CheckService(ctx context.Context, name string) binder.IBinder {
	if service, ok := c.cached(name); ok {
		return service
	}
	results, err := Interface.Call(ctx, c.registry, "checkService", name)
	if err != nil {
		c.logger.Warnf("checkService(%s) failed: %v", name, err)
		return nil
	}
	service, _ := results[0].(binder.IBinder)
	return service
}

// AddService publishes service under name
func (c *Client) AddService(ctx context.Context, name string, service binder.IBinder, allowIsolated bool) error {
	_, err := Interface.Call(ctx, c.registry, "addService", name, service, allowIsolated)
	return err
}

// ListServices returns every name the registry reports. An empty name and a
// failed call both end the listing.
func (c *Client) ListServices(ctx context.Context) []string {
	var names []string
	for index := int32(0); ; index++ {
		results, err := Interface.Call(ctx, c.registry, "listServices", index)
		if err != nil {
			c.logger.Warnf("listServices stopped at index=%d: %v", index, err)
			return names
		}
		name, _ := results[0].(string)
		if name == "" {
			return names
		}
		names = append(names, name)
	}
}

// SetPermissionController sets the object the registry consults before
// publishing a service
func (c *Client) SetPermissionController(ctx context.Context, controller binder.IBinder) error {
	_, err := Interface.Call(ctx, c.registry, "setPermissionController", controller)
	return err
}

// InitServiceCache seeds the local cache. It may be called once; the cached
// bindings are never invalidated.
func (c *Client) InitServiceCache(services map[string]binder.IBinder) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cacheLoaded {
		return gerrors.ErrCacheAlreadyInitialized
	}
	for name, service := range services {
		c.cache[name] = service
	}
	c.cacheLoaded = true
	return nil
}

func (c *Client) cached(name string) (binder.IBinder, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	service, ok := c.cache[name]
	return service, ok
}
