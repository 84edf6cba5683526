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
	"time"

	"github.com/tochemey/goipc/log"
)

type config struct {
	logger        log.Logger
	retryAttempts int
	retryDelay    time.Duration
	retryMaxDelay time.Duration
}

func newConfig(opts ...Option) *config {
	cfg := &config{
		logger:        log.DefaultLogger,
		retryAttempts: DefaultRetryAttempts,
		retryDelay:    DefaultRetryDelay,
		retryMaxDelay: DefaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt.Apply(cfg)
	}
	return cfg
}

// Option is the interface that applies a configuration option.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(cfg *config)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(cfg *config)

func (f OptionFunc) Apply(c *config) {
	f(c)
}

// WithLogger sets the logger
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(cfg *config) {
		cfg.logger = logger
	})
}

// WithRetry sets how long Client.GetService waits for a service to appear:
// at most attempts calls, with a backoff starting at delay and capped at maxDelay.
func WithRetry(attempts int, delay, maxDelay time.Duration) Option {
	return OptionFunc(func(cfg *config) {
		cfg.retryAttempts = attempts
		cfg.retryDelay = delay
		cfg.retryMaxDelay = maxDelay
	})
}
