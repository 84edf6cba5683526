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

package binder

import (
	"github.com/tochemey/goipc/log"
)

// Option is the interface that applies a configuration option to a Binder.
type Option interface {
	// Apply sets the Option value of a config.
	Apply(*Binder)
}

var _ Option = OptionFunc(nil)

// OptionFunc implements the Option interface.
type OptionFunc func(*Binder)

// Apply applies the option to the Binder
func (f OptionFunc) Apply(b *Binder) {
	f(b)
}

// WithLogger sets the logger used to report failures of one-way transactions
// and recovered panics.
func WithLogger(logger log.Logger) Option {
	return OptionFunc(func(b *Binder) {
		b.logger = logger
	})
}

// withInterfaceHash sets the fingerprint answered to InterfaceHashTransaction
func withInterfaceHash(hash uint64) Option {
	return OptionFunc(func(b *Binder) {
		b.hash = hash
	})
}
