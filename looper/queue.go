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
	"sync"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"
	goset "github.com/deckarep/golang-set/v2"

	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

// IdleHandler is run when the queue runs out of due messages. Returning false removes it.
type IdleHandler func() bool

type idleEntry struct {
	handler IdleHandler
}

// MessageQueue holds the messages of a Looper ordered by due time, ties broken
// by enqueue order. Removed messages stay in the heap as tombstones and are
// discarded when they reach its head.
type MessageQueue struct {
	mu       sync.Mutex
	items    *gods.PriorityQueue
	live     goset.Set[*entry]
	seq      uint64
	quitting bool
	wake     chan struct{}
	idle     []*idleEntry
	logger   log.Logger
}

func newMessageQueue(logger log.Logger) *MessageQueue {
	return &MessageQueue{
		items:  gods.NewPriorityQueue(DefaultQueueHint, false),
		live:   goset.NewThreadUnsafeSet[*entry](),
		wake:   make(chan struct{}, 1),
		logger: logger,
	}
}

// Len returns the number of queued messages
func (q *MessageQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.live.Cardinality()
}

// IsIdle reports whether no message is due now
func (q *MessageQueue) IsIdle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	head := q.head()
	return head == nil || head.when.After(time.Now())
}

// AddIdleHandler registers a handler run whenever the loop is about to block.
// The returned function removes it.
func (q *MessageQueue) AddIdleHandler(handler IdleHandler) (remove func()) {
	idle := &idleEntry{handler: handler}
	q.mu.Lock()
	q.idle = append(q.idle, idle)
	q.mu.Unlock()
	return func() {
		q.removeIdle(idle)
	}
}

// enqueue inserts a message due at when
func (q *MessageQueue) enqueue(target *Handler, msg *Message, when time.Time) error {
	if target == nil {
		return gerrors.NewErrInvalidArgument(errMissingTarget)
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	if q.quitting {
		q.logger.Warnf("%s sending message to a handler on a dead looper", target)
		return gerrors.ErrLooperQuitting
	}
	if msg.entry != nil {
		return gerrors.NewErrInvalidArgument(errMessageInUse)
	}

	msg.Target = target
	q.seq++
	msg.When = when
	item := &entry{message: msg, when: when, seq: q.seq}
	if err := q.items.Put(item); err != nil {
		return err
	}
	msg.entry = item
	q.live.Add(item)
	q.signal()
	return nil
}

// next blocks until a message is due. It returns nil once the queue is quitting
// and has no due message left.
func (q *MessageQueue) next() (*Message, error) {
	idleRan := false
	for {
		q.mu.Lock()
		head := q.head()
		now := time.Now()
		if head != nil && !head.when.After(now) {
			if _, err := q.items.Get(1); err != nil {
				q.mu.Unlock()
				return nil, err
			}
			q.live.Remove(head)
			head.message.entry = nil
			q.mu.Unlock()
			return head.message, nil
		}

		if q.quitting {
			q.mu.Unlock()
			return nil, nil
		}

		wait := time.Duration(-1)
		if head != nil {
			wait = head.when.Sub(now)
		}

		var idle []*idleEntry
		if !idleRan {
			idle = append(idle, q.idle...)
		}
		q.mu.Unlock()

		if !idleRan {
			idleRan = true
			if len(idle) > 0 {
				q.runIdle(idle)
				// idle handlers may have posted work
				continue
			}
		}

		q.await(wait)
	}
}

// quit stops the queue. When safely is true only the messages due in the future
// are dropped, otherwise every pending message is dropped.
func (q *MessageQueue) quit(safely bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.quitting {
		return
	}
	q.quitting = true

	now := time.Now()
	q.removeLocked(func(msg *Message) bool {
		return !safely || msg.When.After(now)
	})
	q.signal()
}

// dispose releases the heap once the loop has terminated
func (q *MessageQueue) dispose() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items.Dispose()
	q.live.Clear()
}

// remove drops every queued message matching the predicate and returns how many were dropped
func (q *MessageQueue) remove(match func(*Message) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.removeLocked(match)
}

// removeMessage drops one specific queued message
func (q *MessageQueue) removeMessage(msg *Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	item := msg.entry
	if item == nil || !q.live.Contains(item) {
		return false
	}
	q.live.Remove(item)
	msg.entry = nil
	return true
}

// has reports whether a queued message matches the predicate
func (q *MessageQueue) has(match func(*Message) bool) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	found := false
	q.live.Each(func(item *entry) bool {
		found = match(item.message)
		return found
	})
	return found
}

func (q *MessageQueue) removeLocked(match func(*Message) bool) int {
	var matched []*entry
	q.live.Each(func(item *entry) bool {
		if match(item.message) {
			matched = append(matched, item)
		}
		return false
	})
	for _, item := range matched {
		q.live.Remove(item)
		item.message.entry = nil
	}
	return len(matched)
}

// head returns the first live entry, discarding tombstones. Callers hold mu.
func (q *MessageQueue) head() *entry {
	for !q.items.Empty() {
		item := q.items.Peek().(*entry)
		if q.live.Contains(item) {
			return item
		}
		if _, err := q.items.Get(1); err != nil {
			return nil
		}
	}
	return nil
}

func (q *MessageQueue) await(wait time.Duration) {
	if wait < 0 {
		<-q.wake
		return
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-q.wake:
	case <-timer.C:
	}
}

func (q *MessageQueue) runIdle(idle []*idleEntry) {
	for _, handler := range idle {
		keep := func() (keep bool) {
			defer func() {
				if r := recover(); r != nil {
					q.logger.Errorf("idle handler panicked: %v", r)
					keep = false
				}
			}()
			return handler.handler()
		}()
		if !keep {
			q.removeIdle(handler)
		}
	}
}

func (q *MessageQueue) removeIdle(idle *idleEntry) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for index, candidate := range q.idle {
		if candidate == idle {
			q.idle = append(q.idle[:index], q.idle[index+1:]...)
			return
		}
	}
}

// signal wakes the loop up without blocking. Callers hold mu.
func (q *MessageQueue) signal() {
	select {
	case q.wake <- struct{}{}:
	default:
	}
}
