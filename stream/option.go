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

package stream

import (
	"github.com/tochemey/goipc/binder"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
	"github.com/tochemey/goipc/telemetry"
)

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(conn *Conn)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(conn *Conn)

func (f OptionFunc) Apply(c *Conn) {
	f(c)
}

// WithRoot sets the object served at handle 0 to the peer
func WithRoot(root *binder.Binder) Option {
	return OptionFunc(func(c *Conn) {
		c.root = root
	})
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(c *Conn) {
		c.logger = logger
	})
}

// WithPeerIdentity sets the calling identity reported to local stubs for
// transactions sent by the peer
func WithPeerIdentity(identity binder.Identity) Option {
	return OptionFunc(func(c *Conn) {
		c.peer = identity
	})
}

// WithLooper makes inbound transactions run on the given loop in arrival order
func WithLooper(l *looper.Looper) Option {
	return OptionFunc(func(c *Conn) {
		c.looper = l
	})
}

// WithMaxFrameSize sets the largest frame accepted from the peer
func WithMaxFrameSize(size uint32) Option {
	return OptionFunc(func(c *Conn) {
		c.maxFrameSize = size
	})
}

// WithMaxConcurrency bounds the number of inbound transactions served at once
func WithMaxConcurrency(n int) Option {
	return OptionFunc(func(c *Conn) {
		c.maxConcurrency = n
	})
}

// WithTelemetry records transaction metrics
func WithTelemetry(t *telemetry.Telemetry) Option {
	return OptionFunc(func(c *Conn) {
		c.telemetry = t
	})
}
