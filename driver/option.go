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
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
	"github.com/tochemey/goipc/telemetry"
)

// Option is the interface that applies a configuration option to a Driver.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Driver)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Driver)

// Apply applies the option to the Driver
func (f OptionFunc) Apply(d *Driver) {
	f(d)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(d *Driver) {
		d.logger = logger
	})
}

// WithTelemetry records the transaction metrics
func WithTelemetry(t *telemetry.Telemetry) Option {
	return OptionFunc(func(d *Driver) {
		d.telemetry = t
	})
}

// ProcessOption configures a Process
type ProcessOption interface {
	// Apply sets the Option value of a config.
	Apply(*Process)
}

var _ ProcessOption = ProcessOptionFunc(nil)

// ProcessOptionFunc implements the ProcessOption interface.
type ProcessOptionFunc func(*Process)

// Apply applies the option to the Process
func (f ProcessOptionFunc) Apply(p *Process) {
	f(p)
}

// WithLooper makes inbound transactions of the process run on l, in queue order.
// Without it they run on the calling goroutine.
func WithLooper(l *looper.Looper) ProcessOption {
	return ProcessOptionFunc(func(p *Process) {
		p.looper = l
	})
}
