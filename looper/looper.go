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
	"runtime"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/atomic"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/telemetry"
)

// State is the lifecycle state of a Looper
type State int32

const (
	Uninitialized State = iota
	Prepared
	Running
	Quitting
	Terminated
)

// String returns the name of the state
func (s State) String() string {
	switch s {
	case Uninitialized:
		return "Uninitialized"
	case Prepared:
		return "Prepared"
	case Running:
		return "Running"
	case Quitting:
		return "Quitting"
	case Terminated:
		return "Terminated"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

var (
	errMissingTarget = errors.New("message has no target handler")
	errMessageInUse  = errors.New("message is already queued")

	mainLooper = atomic.NewPointer[Looper](nil)
)

type looperKey struct{}

type printerBox struct {
	printer Printer
}

// Looper runs a message loop on one goroutine. Messages are dispatched one at a
// time in due-time order, each to its target Handler.
type Looper struct {
	name    string
	queue   *MessageQueue
	state   *atomic.Int32
	started *atomic.Bool
	logger  log.Logger
	printer *atomic.Pointer[printerBox]

	self        binder.Identity
	threadState *binder.ThreadState

	telemetry             *telemetry.Telemetry
	metrics               *telemetry.LooperMetrics
	slowDispatchThreshold time.Duration

	ctx  context.Context
	done chan struct{}
}

// Prepare creates the Looper of the calling goroutine and returns a context that carries it.
// Code running on the loop finds it again with FromContext. Preparing a second Looper on a
// context that already carries one panics with errors.ErrLooperAlreadyPrepared.
func Prepare(ctx context.Context, opts ...Option) (context.Context, *Looper) {
	if FromContext(ctx) != nil {
		panic(gerrors.ErrLooperAlreadyPrepared)
	}

	l := &Looper{
		name:                  DefaultName,
		state:                 atomic.NewInt32(int32(Uninitialized)),
		started:               atomic.NewBool(false),
		logger:                log.DefaultLogger,
		printer:               atomic.NewPointer[printerBox](nil),
		self:                  binder.SelfIdentity(),
		slowDispatchThreshold: DefaultSlowDispatchThreshold,
		done:                  make(chan struct{}),
	}

	for _, opt := range opts {
		opt.Apply(l)
	}

	if l.telemetry != nil {
		metrics, err := telemetry.NewLooperMetrics(l.telemetry.Meter())
		if err != nil {
			l.logger.Warnf("looper=(%s) metrics disabled: %v", l.name, err)
		}
		l.metrics = metrics
	}

	l.queue = newMessageQueue(l.logger)
	l.threadState = binder.NewThreadState(l.self)

	ctx = context.WithValue(ctx, looperKey{}, l)
	ctx = binder.WithThreadState(ctx, l.threadState)
	l.ctx = ctx
	l.state.Store(int32(Prepared))
	return ctx, l
}

// PrepareMainLooper prepares the Looper of the calling goroutine and marks it as the
// process's primary loop. A second call panics with errors.ErrMainLooperAlreadyPrepared.
func PrepareMainLooper(ctx context.Context, opts ...Option) (context.Context, *Looper) {
	if mainLooper.Load() != nil {
		panic(gerrors.ErrMainLooperAlreadyPrepared)
	}
	ctx, l := Prepare(ctx, opts...)
	if !mainLooper.CompareAndSwap(nil, l) {
		panic(gerrors.ErrMainLooperAlreadyPrepared)
	}
	return ctx, l
}

// MainLooper returns the process's primary loop, or nil when none was prepared
func MainLooper() *Looper {
	return mainLooper.Load()
}

// FromContext returns the Looper carried by ctx, or nil
func FromContext(ctx context.Context) *Looper {
	if ctx == nil {
		return nil
	}
	l, _ := ctx.Value(looperKey{}).(*Looper)
	return l
}

// Name returns the looper name
func (l *Looper) Name() string {
	return l.name
}

// State returns the lifecycle state
func (l *Looper) State() State {
	return State(l.state.Load())
}

// Queue returns the message queue
func (l *Looper) Queue() *MessageQueue {
	return l.queue
}

// Context returns the context handed to every dispatch
func (l *Looper) Context() context.Context {
	return l.ctx
}

// ThreadState returns the calling-identity state of the loop
func (l *Looper) ThreadState() *binder.ThreadState {
	return l.threadState
}

// IsCurrent reports whether ctx belongs to this loop
func (l *Looper) IsCurrent(ctx context.Context) bool {
	return FromContext(ctx) == l
}

// SetMessageLogging installs or, with nil, removes the dispatch trace sink
func (l *Looper) SetMessageLogging(printer Printer) {
	if printer == nil {
		l.printer.Store(nil)
		return
	}
	l.printer.Store(&printerBox{printer: printer})
}

// Done is closed when Run has returned
func (l *Looper) Done() <-chan struct{} {
	return l.done
}

// Run dispatches messages until the loop is quit. It returns nil after quit.
func (l *Looper) Run() error {
	if l == nil || l.state == nil {
		return gerrors.ErrLooperNotPrepared
	}

	if l.State() == Uninitialized {
		return gerrors.ErrLooperNotPrepared
	}
	if !l.started.CompareAndSwap(false, true) {
		if l.State() == Terminated {
			return nil
		}
		return gerrors.ErrLooperAlreadyRunning
	}
	// a loop quit before running keeps its Quitting state and drains what is left
	l.state.CompareAndSwap(int32(Prepared), int32(Running))

	defer func() {
		l.queue.dispose()
		l.state.Store(int32(Terminated))
		close(l.done)
	}()

	l.logger.Debugf("looper=(%s) running", l.name)
	for {
		msg, err := l.queue.next()
		if err != nil {
			l.logger.Errorf("looper=(%s) failed to pull the next message: %v", l.name, err)
			return err
		}
		if msg == nil {
			l.logger.Debugf("looper=(%s) terminated", l.name)
			return nil
		}
		l.dispatch(msg)
	}
}

// Quit stops the loop. Messages not yet delivered are discarded.
func (l *Looper) Quit() {
	l.quit(false)
}

// QuitSafely stops the loop once every message already due has been delivered.
// Messages due in the future are discarded.
func (l *Looper) QuitSafely() {
	l.quit(true)
}

func (l *Looper) quit(safely bool) {
	for {
		state := l.state.Load()
		if state == int32(Quitting) || state == int32(Terminated) {
			break
		}
		if l.state.CompareAndSwap(state, int32(Quitting)) {
			break
		}
	}
	l.queue.quit(safely)
}

// dispatch delivers one message with tracing, metrics, panic recovery and
// calling-identity verification
func (l *Looper) dispatch(msg *Message) {
	target := msg.Target
	ctx := l.ctx

	if box := l.printer.Load(); box != nil {
		box.printer.Println(fmt.Sprintf(">>>>> Dispatching to %s %s: %d %s", target, callbackName(msg.Callback), msg.What, objectName(msg.Obj)))
	}

	token := l.threadState.Token()
	start := time.Now()

	var span trace.Span
	if l.telemetry != nil {
		ctx, span = l.telemetry.Tracer().Start(ctx, target.TraceName(msg))
	}

	if err := l.deliver(ctx, msg); err != nil {
		l.logger.Errorf("looper=(%s) recovered from a panic while dispatching to %s: %v", l.name, target, err)
		if span != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "panic")
		}
		if l.metrics != nil {
			l.metrics.PanicCount().Add(ctx, 1, metric.WithAttributes(attribute.String("looper", l.name)))
		}
	}

	elapsed := time.Since(start)
	if span != nil {
		span.End()
	}
	if l.metrics != nil {
		attrs := metric.WithAttributes(attribute.String("looper", l.name))
		l.metrics.DispatchCount().Add(ctx, 1, attrs)
		l.metrics.DispatchDuration().Record(ctx, float64(elapsed)/float64(time.Millisecond), attrs)
	}
	if l.slowDispatchThreshold > 0 && elapsed > l.slowDispatchThreshold {
		l.logger.Warnf("looper=(%s) slow dispatch took %s to %s %s what=%d", l.name, elapsed, target, callbackName(msg.Callback), msg.What)
	}

	if box := l.printer.Load(); box != nil {
		box.printer.Println(fmt.Sprintf("<<<<< Finished to %s %s: %d %s", target, callbackName(msg.Callback), msg.What, objectName(msg.Obj)))
	}

	if current := l.threadState.Token(); current != token {
		l.logger.Errorf("looper=(%s) thread identity changed from %s to %s while dispatching to %s %s what=%d",
			l.name, token.Identity(), current.Identity(), target, callbackName(msg.Callback), msg.What)
		l.threadState.RestoreCallingIdentity(token)
	}
}

// deliver runs the message and converts a panic into an error
func (l *Looper) deliver(ctx context.Context, msg *Message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			if e, ok := r.(error); ok {
				err = gerrors.NewPanicError(e)
			} else {
				err = gerrors.NewPanicError(fmt.Errorf("%#v", r))
			}
			// get the stack trace
			if _, file, line, ok := runtime.Caller(2); ok {
				err = fmt.Errorf("%w at %s[%d]", err, file, line)
			}
		}
	}()
	msg.Target.DispatchMessage(ctx, msg)
	return nil
}
