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
	"runtime"
)

// Thread is a goroutine locked to its own OS thread that runs exactly one Looper.
type Thread struct {
	name   string
	ready  chan struct{}
	done   chan struct{}
	looper *Looper
	ctx    context.Context
	err    error
}

// NewThread starts a Thread and prepares its Looper with the given options
func NewThread(name string, opts ...Option) *Thread {
	t := &Thread{
		name:  name,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}

	go func() {
		defer close(t.done)

		runtime.LockOSThread()
		defer runtime.UnlockOSThread()

		t.ctx, t.looper = Prepare(context.Background(), append(opts, WithName(name))...)
		close(t.ready)
		t.err = t.looper.Run()
	}()

	return t
}

// Name returns the thread name
func (t *Thread) Name() string {
	return t.name
}

// Looper blocks until the loop is prepared and returns it
func (t *Thread) Looper() *Looper {
	<-t.ready
	return t.looper
}

// Context blocks until the loop is prepared and returns the context of the loop
func (t *Thread) Context() context.Context {
	<-t.ready
	return t.ctx
}

// Quit stops the loop, dropping the messages not yet delivered
func (t *Thread) Quit() {
	t.Looper().Quit()
}

// QuitSafely stops the loop once every due message has been delivered
func (t *Thread) QuitSafely() {
	t.Looper().QuitSafely()
}

// Join waits for the thread to exit and returns the error of its loop
func (t *Thread) Join() error {
	<-t.done
	return t.err
}
