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

// Package refwatch tracks a set of remote tokens and tells a listener when the
// number of live tokens goes from zero to positive and back. Remote death of a
// token counts as its release. Notifications are posted to a dispatch loop and
// coalesced: a release that cancels a not yet delivered acquire produces no
// notification at all.
package refwatch

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/tochemey/goipc/binder"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
)

const (
	whatAcquired = iota + 1
	whatReleased
)

type record struct {
	label      string
	sub        *binder.Subscription
	acquiredAt time.Time
}

// Watcher is a liveness-gated reference counter
type Watcher struct {
	mu       sync.Mutex
	name     string
	logger   log.Logger
	handler  *looper.Handler
	listener Listener
	tokens   map[binder.IBinder]*record

	// notified is the state last delivered to the listener
	notified bool
	// pending is the notification posted but not delivered yet
	pending *looper.Message
}

// New creates a Watcher that notifies listener on l
func New(l *looper.Looper, listener Listener, opts ...Option) *Watcher {
	w := &Watcher{
		name:     "refwatch",
		logger:   log.DefaultLogger,
		listener: listener,
		tokens:   make(map[binder.IBinder]*record),
	}
	for _, opt := range opts {
		opt.Apply(w)
	}
	w.handler = looper.NewHandler(l, w.deliver, looper.WithTraceName(w.name))
	return w
}

// Acquire records token as held. Acquiring a token twice is a no-op.
// It fails with errors.ErrDeadObject when the token is already dead.
func (w *Watcher) Acquire(token binder.IBinder, label string) error {
	if token == nil {
		return gerrors.NewErrInvalidArgument(fmt.Errorf("%s: nil token", w.name))
	}

	w.mu.Lock()
	_, held := w.tokens[token]
	w.mu.Unlock()
	if held {
		return nil
	}

	rec := &record{label: label, acquiredAt: time.Now()}
	sub, err := token.LinkToDeath(binder.DeathRecipientFunc(func(who binder.IBinder) {
		w.died(who, rec)
	}))
	if err != nil {
		return err
	}
	rec.sub = sub

	w.mu.Lock()
	if _, held := w.tokens[token]; held {
		// lost a race against a concurrent Acquire of the same token
		w.mu.Unlock()
		token.UnlinkToDeath(sub)
		return nil
	}
	if !sub.Active() {
		// the token died after the link was armed and before it was recorded
		w.mu.Unlock()
		return fmt.Errorf("%s: token=(%s) %w", w.name, label, gerrors.ErrDeadObject)
	}
	w.tokens[token] = rec
	if len(w.tokens) == 1 {
		w.transitionLocked(true)
	}
	w.mu.Unlock()

	w.logger.Debugf("%s acquired token=(%s)", w.name, label)
	return nil
}

// Release forgets token. It fails with errors.ErrNotAcquired when the token is not held.
func (w *Watcher) Release(token binder.IBinder) error {
	w.mu.Lock()
	rec, held := w.tokens[token]
	if !held {
		w.mu.Unlock()
		return fmt.Errorf("%s: %w", w.name, gerrors.ErrNotAcquired)
	}
	delete(w.tokens, token)
	if len(w.tokens) == 0 {
		w.transitionLocked(false)
	}
	w.mu.Unlock()

	token.UnlinkToDeath(rec.sub)
	w.logger.Debugf("%s released token=(%s)", w.name, rec.label)
	return nil
}

// IsAcquired reports whether at least one live token is held
func (w *Watcher) IsAcquired() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tokens) > 0
}

// Count returns the number of live tokens held
func (w *Watcher) Count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.tokens)
}

// Dump writes the state of the watcher
func (w *Watcher) Dump(out io.Writer) error {
	w.mu.Lock()
	labels := make([]string, 0, len(w.tokens))
	for _, rec := range w.tokens {
		labels = append(labels, fmt.Sprintf("%s (held %s)", rec.label, time.Since(rec.acquiredAt).Truncate(time.Millisecond)))
	}
	notified := w.notified
	pending := "none"
	if w.pending != nil {
		pending = whatName(w.pending.What)
	}
	w.mu.Unlock()

	sort.Strings(labels)
	if _, err := fmt.Fprintf(out, "%s: acquired=%t notified=%t pending=%s tokens=%d\n", w.name, len(labels) > 0, notified, pending, len(labels)); err != nil {
		return err
	}
	for _, label := range labels {
		if _, err := fmt.Fprintf(out, "  %s\n", label); err != nil {
			return err
		}
	}
	return nil
}

// died prunes a token whose process is gone. The subscription has fired, so
// there is nothing to unlink.
func (w *Watcher) died(who binder.IBinder, rec *record) {
	w.mu.Lock()
	if current, held := w.tokens[who]; !held || current != rec {
		w.mu.Unlock()
		return
	}
	delete(w.tokens, who)
	if len(w.tokens) == 0 {
		w.transitionLocked(false)
	}
	w.mu.Unlock()

	w.logger.Infof("%s token=(%s) died", w.name, rec.label)
}

// transitionLocked reacts to the live count crossing zero. A pending opposite
// notification is cancelled instead of posting a new one.
func (w *Watcher) transitionLocked(acquired bool) {
	if w.pending != nil {
		// the pending notification is the opposite one, otherwise the count
		// could not have crossed zero again
		w.handler.RemoveMessage(w.pending)
		w.pending = nil
		return
	}

	if w.notified == acquired {
		return
	}

	what := whatReleased
	if acquired {
		what = whatAcquired
	}
	msg := w.handler.ObtainMessage(what, nil)
	if !w.handler.SendMessage(msg) {
		w.logger.Warnf("%s cannot post %s: looper is quitting", w.name, whatName(what))
		return
	}
	w.pending = msg
}

// deliver runs on the loop
func (w *Watcher) deliver(ctx context.Context, msg *looper.Message) {
	w.mu.Lock()
	if w.pending != msg {
		// cancelled after the loop dequeued it
		w.mu.Unlock()
		return
	}
	w.pending = nil
	w.notified = msg.What == whatAcquired
	w.mu.Unlock()

	switch msg.What {
	case whatAcquired:
		w.listener.OnAcquired(ctx)
	case whatReleased:
		w.listener.OnReleased(ctx)
	}
}

func whatName(what int) string {
	switch what {
	case whatAcquired:
		return "acquired"
	case whatReleased:
		return "released"
	default:
		return "none"
	}
}
