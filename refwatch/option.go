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

package refwatch

import (
	"context"

	"github.com/tochemey/goipc/log"
)

// Listener is told, on the watcher's loop, when the watcher becomes
// acquired (first live token) and released (last live token gone).
type Listener interface {
	OnAcquired(ctx context.Context)
	OnReleased(ctx context.Context)
}

// ListenerFuncs adapts a pair of functions to a Listener. Nil functions are skipped.
type ListenerFuncs struct {
	Acquired func(ctx context.Context)
	Released func(ctx context.Context)
}

// enforce compilation error
var _ Listener = ListenerFuncs{}

// OnAcquired implements Listener
func (f ListenerFuncs) OnAcquired(ctx context.Context) {
	if f.Acquired != nil {
		f.Acquired(ctx)
	}
}

// OnReleased implements Listener
func (f ListenerFuncs) OnReleased(ctx context.Context) {
	if f.Released != nil {
		f.Released(ctx)
	}
}

// Option is the interface that applies a configuration option to a Watcher.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Watcher)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Watcher)

// Apply applies the option to the Watcher
func (f OptionFunc) Apply(w *Watcher) {
	f(w)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(w *Watcher) {
		w.logger = logger
	})
}

// WithName sets the name used in logs and dumps
func WithName(name string) Option {
	return OptionFunc(func(w *Watcher) {
		w.name = name
	})
}
