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
	"fmt"
	"reflect"
	"runtime"
	"time"

	gods "github.com/Workiva/go-datastructures/queue"
)

// Message is a unit of work delivered by a Looper to its target Handler.
// A message either carries a Callback, which is run instead of the handler's
// HandleFunc, or a What code with optional arguments.
type Message struct {
	What     int
	Arg1     int
	Arg2     int
	Obj      any
	When     time.Time
	Target   *Handler
	Callback func(ctx context.Context)

	// entry is set while the message sits in a queue
	entry *entry
}

// String returns a short description of the message
func (m *Message) String() string {
	if m.Callback != nil {
		return fmt.Sprintf("{ when=%s callback=%s target=%s }", m.When.Format(time.StampMicro), callbackName(m.Callback), m.Target)
	}
	return fmt.Sprintf("{ when=%s what=%d arg1=%d arg2=%d target=%s }", m.When.Format(time.StampMicro), m.What, m.Arg1, m.Arg2, m.Target)
}

// entry is the priority queue item of a queued message
type entry struct {
	message *Message
	when    time.Time
	seq     uint64
}

// enforce compilation error
var _ gods.Item = (*entry)(nil)

// Compare orders entries by due time, then by enqueue sequence
func (e *entry) Compare(other gods.Item) int {
	o := other.(*entry)
	switch {
	case e.when.Before(o.when):
		return -1
	case e.when.After(o.when):
		return 1
	case e.seq < o.seq:
		return -1
	case e.seq > o.seq:
		return 1
	default:
		return 0
	}
}

func callbackName(callback func(ctx context.Context)) string {
	if callback == nil {
		return "null"
	}
	if fn := runtime.FuncForPC(reflect.ValueOf(callback).Pointer()); fn != nil {
		return fn.Name()
	}
	return "callback"
}

// objectName identifies a message payload by type and, for reference types, address
func objectName(obj any) string {
	if obj == nil {
		return "null"
	}
	switch reflect.ValueOf(obj).Kind() {
	case reflect.Pointer, reflect.Map, reflect.Chan, reflect.Func, reflect.Slice, reflect.UnsafePointer:
		return fmt.Sprintf("%T@%p", obj, obj)
	default:
		return fmt.Sprintf("%T", obj)
	}
}
