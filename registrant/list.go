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

package registrant

import (
	"sync"

	"github.com/tochemey/goipc/looper"
)

// List is an ordered, concurrency-safe collection of registrants.
// Registrants whose handler is gone are pruned instead of notified.
type List struct {
	mu          sync.Mutex
	registrants []*Registrant
}

// NewList creates an empty List
func NewList() *List {
	return &List{}
}

// Add appends a registrant for h
func (l *List) Add(h *looper.Handler, what int, userObj any) {
	l.AddRegistrant(New(h, what, userObj))
}

// AddRegistrant appends r
func (l *List) AddRegistrant(r *Registrant) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	l.registrants = append(l.registrants, r)
}

// AddUnique appends a registrant for h after removing any existing registrant of h
func (l *List) AddUnique(h *looper.Handler, what int, userObj any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(h)
	l.registrants = append(l.registrants, New(h, what, userObj))
}

// Remove drops every registrant of h
func (l *List) Remove(h *looper.Handler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.removeLocked(h)
}

// Len returns the number of registrants, pruned ones included until the next mutation
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.registrants)
}

// NotifyRegistrants notifies every registrant with an empty result
func (l *List) NotifyRegistrants() {
	l.notify(nil, nil)
}

// NotifyResult notifies every registrant with result
func (l *List) NotifyResult(result any) {
	l.notify(result, nil)
}

// NotifyException notifies every registrant with err
func (l *List) NotifyException(err error) {
	l.notify(nil, err)
}

// notify posts to registrants in registration order. Messages are posted, never
// handled inline, so nothing runs while the lock is held.
func (l *List) notify(result any, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	for _, r := range l.registrants {
		r.Notify(result, err)
	}
}

func (l *List) removeLocked(h *looper.Handler) {
	kept := l.registrants[:0]
	for _, r := range l.registrants {
		current := r.Handler()
		if current == nil || current == h {
			r.Clear()
			continue
		}
		kept = append(kept, r)
	}
	clear(l.registrants[len(kept):])
	l.registrants = kept
}

func (l *List) pruneLocked() {
	kept := l.registrants[:0]
	for _, r := range l.registrants {
		if r.Handler() != nil {
			kept = append(kept, r)
		}
	}
	clear(l.registrants[len(kept):])
	l.registrants = kept
}
