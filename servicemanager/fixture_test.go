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
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tochemey/goipc/binder"
	"github.com/tochemey/goipc/driver"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
)

var greeterInterface = binder.NewInterface("test.IGreeter",
	binder.Method{Name: "greet", Out: []binder.Kind{binder.KindString}},
)

func newGreeter(greeting string) *binder.Binder {
	return greeterInterface.NewStub(map[string]binder.Handler{
		"greet": func(context.Context, []any) ([]any, error) {
			return []any{greeting}, nil
		},
	}, binder.WithLogger(log.DiscardLogger))
}

func greet(t *testing.T, service binder.IBinder) string {
	t.Helper()
	results, err := greeterInterface.Call(context.Background(), service, "greet")
	require.NoError(t, err)
	return results[0].(string)
}

type fixture struct {
	driver   *driver.Driver
	thread   *looper.Thread
	server   *Server
	registry *driver.Process
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	d := driver.New(driver.WithLogger(log.DiscardLogger))
	thread := looper.NewThread("servicemanager", looper.WithLogger(log.DiscardLogger))
	registry, err := d.NewProcess(1, 1000, driver.WithLooper(thread.Looper()))
	require.NoError(t, err)

	server := NewServer(WithLogger(log.DiscardLogger))
	require.NoError(t, server.Register(registry))
	return &fixture{driver: d, thread: thread, server: server, registry: registry}
}

func (f *fixture) process(t *testing.T, pid, uid int32) *driver.Process {
	t.Helper()
	p, err := f.driver.NewProcess(pid, uid)
	require.NoError(t, err)
	return p
}

func (f *fixture) client(p *driver.Process, opts ...Option) *Client {
	return NewClient(p.ContextObject(), append([]Option{WithLogger(log.DiscardLogger)}, opts...)...)
}

func (f *fixture) stop(t *testing.T) {
	t.Helper()
	f.thread.Quit()
	require.NoError(t, f.thread.Join())
}
