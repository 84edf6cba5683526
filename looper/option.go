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

package looper

import (
	"time"

	"github.com/tochemey/goipc/binder"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/telemetry"
)

// Option is the interface that applies a configuration option to a Looper.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Looper)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Looper)

// Apply applies the option to the Looper
func (f OptionFunc) Apply(l *Looper) {
	f(l)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(l *Looper) {
		l.logger = logger
	})
}

// WithName sets the name used in traces, logs and metrics
func WithName(name string) Option {
	return OptionFunc(func(l *Looper) {
		l.name = name
	})
}

// WithMessageLogging installs a trace sink told about every dispatch
func WithMessageLogging(printer Printer) Option {
	return OptionFunc(func(l *Looper) {
		l.SetMessageLogging(printer)
	})
}

// WithTelemetry enables one span per dispatch and the dispatch metrics
func WithTelemetry(t *telemetry.Telemetry) Option {
	return OptionFunc(func(l *Looper) {
		l.telemetry = t
	})
}

// WithSlowDispatchThreshold logs a warning for dispatches that take longer than threshold.
// Zero disables the check.
func WithSlowDispatchThreshold(threshold time.Duration) Option {
	return OptionFunc(func(l *Looper) {
		l.slowDispatchThreshold = threshold
	})
}

// WithIdentity sets the identity the loop's calling identity falls back to when cleared
func WithIdentity(identity binder.Identity) Option {
	return OptionFunc(func(l *Looper) {
		l.self = identity
	})
}
