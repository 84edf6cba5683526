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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

const echoDescriptor = "test.IEcho"

func echoInterface() *Interface {
	return NewInterface(echoDescriptor,
		Method{Name: "echoInt32", In: []Kind{KindInt32}, Out: []Kind{KindInt32}},
		Method{Name: "echoInt64", In: []Kind{KindInt64}, Out: []Kind{KindInt64}},
		Method{Name: "echoBool", In: []Kind{KindBool}, Out: []Kind{KindBool}},
		Method{Name: "echoString", In: []Kind{KindString}, Out: []Kind{KindString}},
		Method{Name: "echoStrings", In: []Kind{KindStrings}, Out: []Kind{KindStrings}},
		Method{Name: "echoBytes", In: []Kind{KindBytes}, Out: []Kind{KindBytes}},
		Method{Name: "echoFloat64", In: []Kind{KindFloat64}, Out: []Kind{KindFloat64}},
		Method{Name: "echoBinder", In: []Kind{KindBinder}, Out: []Kind{KindBinder}},
		Method{Name: "concat", In: []Kind{KindString, KindInt32, KindBool}, Out: []Kind{KindString, KindInt32}},
		Method{Name: "notify", In: []Kind{KindString}, OneWay: true},
		Method{Name: "reserved"},
	)
}

func echoHandler(_ context.Context, args []any) ([]any, error) {
	return args, nil
}

func TestInterface(t *testing.T) {
	ctx := context.Background()

	t.Run("With codes assigned in declaration order", func(t *testing.T) {
		iface := echoInterface()
		for index, method := range iface.Methods() {
			code, ok := iface.Code(method.Name)
			require.True(t, ok)
			assert.Equal(t, FirstCallTransaction+uint32(index), code)

			found, ok := iface.Method(code)
			require.True(t, ok)
			assert.Equal(t, method.Name, found.Name)
		}
		_, ok := iface.Method(0)
		assert.False(t, ok)
		_, ok = iface.Method(FirstCallTransaction + 100)
		assert.False(t, ok)
		assert.Equal(t, echoDescriptor, iface.Descriptor())
	})
	t.Run("With round trip over every declared code", func(t *testing.T) {
		iface := echoInterface()
		object := NewBinder("test.IObject", nil)
		handlers := map[string]Handler{}
		for _, method := range iface.Methods() {
			if method.Name != "reserved" && !method.OneWay {
				handlers[method.Name] = echoHandler
			}
		}
		notified := make(chan string, 1)
		handlers["concat"] = func(_ context.Context, args []any) ([]any, error) {
			return []any{args[0].(string) + "!", args[1]}, nil
		}
		handlers["notify"] = func(_ context.Context, args []any) ([]any, error) {
			notified <- args[0].(string)
			return nil, nil
		}

		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(handlers, WithLogger(log.DiscardLogger)))

		cases := []struct {
			method string
			args   []any
			want   []any
		}{
			{"echoInt32", []any{int32(-7)}, []any{int32(-7)}},
			{"echoInt32", []any{12}, []any{int32(12)}},
			{"echoInt64", []any{int64(1) << 40}, []any{int64(1) << 40}},
			{"echoBool", []any{true}, []any{true}},
			{"echoString", []any{"hello"}, []any{"hello"}},
			{"echoStrings", []any{[]string{"a", "b"}}, []any{[]string{"a", "b"}}},
			{"echoBytes", []any{[]byte{0, 1, 2}}, []any{[]byte{0, 1, 2}}},
			{"echoFloat64", []any{1.5}, []any{1.5}},
			{"concat", []any{"x", int32(3), false}, []any{"x!", int32(3)}},
		}
		for _, tc := range cases {
			results, err := iface.Call(ctx, remote, tc.method, tc.args...)
			require.NoError(t, err, tc.method)
			assert.Equal(t, tc.want, results, tc.method)
		}

		results, err := iface.Call(ctx, remote, "echoBinder", object)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.True(t, results[0] == IBinder(object))

		results, err = iface.Call(ctx, remote, "echoBinder", nil)
		require.NoError(t, err)
		require.Len(t, results, 1)
		assert.Nil(t, results[0])

		results, err = iface.Call(ctx, remote, "notify", "fire")
		require.NoError(t, err)
		assert.Nil(t, results)
		assert.Equal(t, "fire", <-notified)
	})
	t.Run("With a reserved method rejected as unknown", func(t *testing.T) {
		iface := echoInterface()
		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(map[string]Handler{"echoString": echoHandler}, WithLogger(log.DiscardLogger)))

		_, err := iface.Call(ctx, remote, "reserved")
		require.ErrorIs(t, err, gerrors.ErrUnknownTransaction)

		var statusErr *gerrors.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.EqualValues(t, StatusUnknownTransaction, statusErr.Status)

		// the stub keeps serving after the rejection
		results, err := iface.Call(ctx, remote, "echoString", "still here")
		require.NoError(t, err)
		assert.Equal(t, []any{"still here"}, results)
	})
	t.Run("With an undeclared transaction code", func(t *testing.T) {
		iface := echoInterface()
		stub := iface.NewStub(map[string]Handler{"echoString": echoHandler}, WithLogger(log.DiscardLogger))

		data := NewParcel()
		data.WriteInterfaceToken(echoDescriptor)
		_, status := stub.Exec(ctx, FirstCallTransaction+500, data, 0)
		assert.Equal(t, StatusUnknownTransaction, status)
	})
	t.Run("With descriptor mismatch", func(t *testing.T) {
		iface := echoInterface()
		invoked := false
		stub := iface.NewStub(map[string]Handler{"echoString": func(context.Context, []any) ([]any, error) {
			invoked = true
			return []any{""}, nil
		}}, WithLogger(log.DiscardLogger))

		code, _ := iface.Code("echoString")
		data := NewParcel()
		data.WriteInterfaceToken("test.IOther")
		data.WriteString("x")

		_, err := stub.Transact(ctx, code, data, 0)
		require.ErrorIs(t, err, gerrors.ErrDescriptorMismatch)
		var statusErr *gerrors.StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.EqualValues(t, StatusBadType, statusErr.Status)
		assert.False(t, invoked)
	})
	t.Run("With missing arguments", func(t *testing.T) {
		iface := echoInterface()
		invoked := false
		stub := iface.NewStub(map[string]Handler{"concat": func(context.Context, []any) ([]any, error) {
			invoked = true
			return []any{"", int32(0)}, nil
		}}, WithLogger(log.DiscardLogger))

		code, _ := iface.Code("concat")
		data := NewParcel()
		data.WriteInterfaceToken(echoDescriptor)
		data.WriteString("only the first")

		_, status := stub.Exec(ctx, code, data, 0)
		assert.Equal(t, StatusNotEnoughData, status)
		assert.False(t, invoked)
	})
	t.Run("With an application error", func(t *testing.T) {
		iface := echoInterface()
		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(map[string]Handler{
			"echoString": func(context.Context, []any) ([]any, error) {
				return nil, gerrors.ErrPermissionDenied
			},
		}, WithLogger(log.DiscardLogger)))

		_, err := iface.Call(ctx, remote, "echoString", "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrRemoteException)
		assert.ErrorIs(t, err, gerrors.ErrPermissionDenied)
	})
	t.Run("With a panicking handler", func(t *testing.T) {
		iface := echoInterface()
		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(map[string]Handler{
			"echoString": func(context.Context, []any) ([]any, error) {
				panic(errors.New("handler exploded"))
			},
		}, WithLogger(log.DiscardLogger)))

		_, err := iface.Call(ctx, remote, "echoString", "x")
		require.Error(t, err)
		assert.ErrorIs(t, err, gerrors.ErrRemoteException)
		assert.Contains(t, err.Error(), "handler exploded")
	})
	t.Run("With invalid call arguments", func(t *testing.T) {
		iface := echoInterface()
		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(map[string]Handler{"concat": echoHandler}, WithLogger(log.DiscardLogger)))

		_, err := iface.Call(ctx, remote, "concat", "x")
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		_, err = iface.Call(ctx, remote, "concat", 1, 2, 3)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)

		_, err = iface.Call(ctx, remote, "missing")
		require.ErrorIs(t, err, gerrors.ErrUnknownMethod)

		_, err = iface.Call(ctx, nil, "concat", "x", int32(1), true)
		require.ErrorIs(t, err, gerrors.ErrInvalidArgument)
	})
	t.Run("With a dead remote", func(t *testing.T) {
		iface := echoInterface()
		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(map[string]Handler{"echoString": echoHandler}, WithLogger(log.DiscardLogger)))
		channel.kill(1)

		_, err := iface.Call(ctx, remote, "echoString", "x")
		require.ErrorIs(t, err, gerrors.ErrDeadObject)
	})
	t.Run("With interface hash", func(t *testing.T) {
		iface := echoInterface()
		channel := newLoopback()
		remote := channel.publish(1, iface.NewStub(nil, WithLogger(log.DiscardLogger)))

		require.NoError(t, iface.CheckHash(ctx, remote))
		assert.Equal(t, iface.Hash(), echoInterface().Hash())

		skewed := NewInterface(echoDescriptor, Method{Name: "echoInt32", In: []Kind{KindInt64}, Out: []Kind{KindInt32}})
		assert.NotEqual(t, iface.Hash(), skewed.Hash())
		require.ErrorIs(t, skewed.CheckHash(ctx, remote), gerrors.ErrDescriptorMismatch)
	})
	t.Run("With malformed tables", func(t *testing.T) {
		assert.Panics(t, func() { NewInterface("") })
		assert.Panics(t, func() { NewInterface("x", Method{}) })
		assert.Panics(t, func() { NewInterface("x", Method{Name: "a"}, Method{Name: "a"}) })
		assert.Panics(t, func() { NewInterface("x", Method{Name: "a", OneWay: true, Out: []Kind{KindBool}}) })
		assert.Panics(t, func() { echoInterface().NewStub(map[string]Handler{"undeclared": echoHandler}) })
	})
}
