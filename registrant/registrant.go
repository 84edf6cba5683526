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

// Package registrant keeps weak references to the handlers interested in an
// event so that forgotten listeners never keep their loop objects alive.
package registrant

import (
	"weak"

	"github.com/tochemey/goipc/looper"
)

// AsyncResult is the payload of a notification message
type AsyncResult struct {
	UserObj any
	Result  any
	Err     error
}

// Registrant is a weakly held notification target: a handler and the message
// code and user object to post to it.
type Registrant struct {
	handler weak.Pointer[looper.Handler]
	what    int
	userObj any
}

// New creates a Registrant. The handler is not kept alive by the Registrant.
func New(h *looper.Handler, what int, userObj any) *Registrant {
	return &Registrant{
		handler: weak.Make(h),
		what:    what,
		userObj: userObj,
	}
}

// Handler returns the handler, or nil when it was collected or cleared
func (r *Registrant) Handler() *looper.Handler {
	return r.handler.Value()
}

// Clear drops the handler
func (r *Registrant) Clear() {
	r.handler = weak.Pointer[looper.Handler]{}
}

// Notify posts a message carrying an AsyncResult to the handler.
// It returns false when the handler is gone or its loop refused the message.
func (r *Registrant) Notify(result any, err error) bool {
	h := r.Handler()
	if h == nil {
		return false
	}
	msg := h.ObtainMessage(r.what, &AsyncResult{UserObj: r.userObj, Result: result, Err: err})
	return h.SendMessage(msg)
}

// NotifyRegistrant posts a message without result
func (r *Registrant) NotifyRegistrant() bool {
	return r.Notify(nil, nil)
}
