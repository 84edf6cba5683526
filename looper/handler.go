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
	"context"
	"errors"
	"fmt"
	"time"

	gerrors "github.com/tochemey/goipc/errors"
)

// HandleFunc processes a message that carries no callback
type HandleFunc func(ctx context.Context, msg *Message)

// HandlerOption configures a Handler
type HandlerOption interface {
	// Apply sets the Option value of a config.
	Apply(*Handler)
}

var _ HandlerOption = HandlerOptionFunc(nil)

// HandlerOptionFunc implements the HandlerOption interface.
type HandlerOptionFunc func(*Handler)

// Apply applies the option to the Handler
func (f HandlerOptionFunc) Apply(h *Handler) {
	f(h)
}

// WithTraceName sets the name used for the handler in traces and spans
func WithTraceName(name string) HandlerOption {
	return HandlerOptionFunc(func(h *Handler) {
		h.name = name
	})
}

// Handler posts messages to a Looper and processes them on its goroutine
type Handler struct {
	looper *Looper
	handle HandleFunc
	name   string
}

// NewHandler creates a Handler bound to l. handle may be nil when the handler is only
// used to post callbacks.
func NewHandler(l *Looper, handle HandleFunc, opts ...HandlerOption) *Handler {
	h := &Handler{
		looper: l,
		handle: handle,
		name:   "Handler",
	}
	for _, opt := range opts {
		opt.Apply(h)
	}
	return h
}

// Looper returns the looper the handler posts to
func (h *Handler) Looper() *Looper {
	return h.looper
}

// String returns the handler name and its looper
func (h *Handler) String() string {
	if h == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s(%s)", h.name, h.looper.Name())
}

// TraceName returns the span name used when msg is dispatched
func (h *Handler) TraceName(msg *Message) string {
	if msg.Callback != nil {
		return h.name + ": " + callbackName(msg.Callback)
	}
	return fmt.Sprintf("%s: #%d", h.name, msg.What)
}

// DispatchMessage runs the message callback when there is one, otherwise the HandleFunc
func (h *Handler) DispatchMessage(ctx context.Context, msg *Message) {
	if msg.Callback != nil {
		msg.Callback(ctx)
		return
	}
	if h.handle != nil {
		h.handle(ctx, msg)
	}
}

// ObtainMessage returns a message targeted at this handler
func (h *Handler) ObtainMessage(what int, obj any) *Message {
	return &Message{What: what, Obj: obj, Target: h}
}

// Post enqueues fn to run on the loop as soon as possible.
// It returns false when the loop is quitting.
func (h *Handler) Post(fn func(ctx context.Context)) bool {
	return h.SendMessageAtTime(&Message{Callback: fn}, time.Now())
}

// PostDelayed enqueues fn to run after delay
func (h *Handler) PostDelayed(fn func(ctx context.Context), delay time.Duration) bool {
	return h.SendMessageDelayed(&Message{Callback: fn}, delay)
}

// PostAtTime enqueues fn to run at the given time
func (h *Handler) PostAtTime(fn func(ctx context.Context), at time.Time) bool {
	return h.SendMessageAtTime(&Message{Callback: fn}, at)
}

// SendMessage enqueues msg to be handled as soon as possible
func (h *Handler) SendMessage(msg *Message) bool {
	return h.SendMessageAtTime(msg, time.Now())
}

// SendMessageDelayed enqueues msg to be handled after delay
func (h *Handler) SendMessageDelayed(msg *Message, delay time.Duration) bool {
	if delay < 0 {
		delay = 0
	}
	return h.SendMessageAtTime(msg, time.Now().Add(delay))
}

// SendMessageAtTime enqueues msg to be handled at the given time.
// It returns false when the loop is quitting or the message is already queued.
func (h *Handler) SendMessageAtTime(msg *Message, at time.Time) bool {
	if err := h.looper.queue.enqueue(h, msg, at); err != nil {
		if !errors.Is(err, gerrors.ErrLooperQuitting) {
			h.looper.logger.Warnf("%s failed to enqueue %s: %v", h, msg, err)
		}
		return false
	}
	return true
}

// SendEmptyMessage enqueues a message carrying only what
func (h *Handler) SendEmptyMessage(what int) bool {
	return h.SendMessage(&Message{What: what})
}

// SendEmptyMessageDelayed enqueues a message carrying only what after delay
func (h *Handler) SendEmptyMessageDelayed(what int, delay time.Duration) bool {
	return h.SendMessageDelayed(&Message{What: what}, delay)
}

// RemoveMessages drops the pending messages of this handler with the given what
func (h *Handler) RemoveMessages(what int) int {
	return h.looper.queue.remove(func(msg *Message) bool {
		return msg.Target == h && msg.Callback == nil && msg.What == what
	})
}

// RemoveMessage drops one pending message. It returns false when the message
// was not pending anymore.
func (h *Handler) RemoveMessage(msg *Message) bool {
	if msg == nil || msg.Target != h {
		return false
	}
	return h.looper.queue.removeMessage(msg)
}

// RemoveCallbacksAndMessages drops every pending message of this handler
func (h *Handler) RemoveCallbacksAndMessages() int {
	return h.looper.queue.remove(func(msg *Message) bool {
		return msg.Target == h
	})
}

// HasMessages reports whether a message of this handler with the given what is pending
func (h *Handler) HasMessages(what int) bool {
	return h.looper.queue.has(func(msg *Message) bool {
		return msg.Target == h && msg.Callback == nil && msg.What == what
	})
}

// HasPendingMessages reports whether any message of this handler is pending
func (h *Handler) HasPendingMessages() bool {
	return h.looper.queue.has(func(msg *Message) bool {
		return msg.Target == h
	})
}

// RunAndWait runs fn on the loop and waits for it to finish. When ctx already
// belongs to the loop, fn runs inline. The wait ends early with the context error
// when ctx is done, in which case fn may still run later.
func (h *Handler) RunAndWait(ctx context.Context, fn func(ctx context.Context)) error {
	if h.looper.IsCurrent(ctx) {
		fn(ctx)
		return nil
	}

	done := make(chan struct{})
	posted := h.Post(func(ctx context.Context) {
		defer close(done)
		fn(ctx)
	})
	if !posted {
		return gerrors.ErrLooperQuitting
	}

	select {
	case <-done:
		return nil
	case <-h.looper.done:
		// the loop may have quit before running fn
		select {
		case <-done:
			return nil
		default:
			return gerrors.ErrLooperQuitting
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}
