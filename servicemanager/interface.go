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

	"github.com/tochemey/goipc/binder"
)

const (
	// Descriptor is the interface token of the registry
	Descriptor = "goipc.IServiceManager"
	// PermissionControllerDescriptor is the interface token of a permission controller
	PermissionControllerDescriptor = "goipc.IPermissionController"
	// AddServicePermission is checked with the permission controller before a service is published
	AddServicePermission = "goipc.permission.ADD_SERVICE"
)

// Interface is the registry method table. The declaration order fixes the
// transaction codes 1..6; checkServices is reserved and never served.
var Interface = binder.NewInterface(Descriptor,
	binder.Method{Name: "getService", In: []binder.Kind{binder.KindString}, Out: []binder.Kind{binder.KindBinder}},
	binder.Method{Name: "checkService", In: []binder.Kind{binder.KindString}, Out: []binder.Kind{binder.KindBinder}},
	binder.Method{Name: "addService", In: []binder.Kind{binder.KindString, binder.KindBinder, binder.KindBool}},
	binder.Method{Name: "listServices", In: []binder.Kind{binder.KindInt32}, Out: []binder.Kind{binder.KindString}},
	binder.Method{Name: "checkServices"},
	binder.Method{Name: "setPermissionController", In: []binder.Kind{binder.KindBinder}},
)

// PermissionControllerInterface is the method table of a permission controller
var PermissionControllerInterface = binder.NewInterface(PermissionControllerDescriptor,
	binder.Method{
		Name: "checkPermission",
		In:   []binder.Kind{binder.KindString, binder.KindInt32, binder.KindInt32},
		Out:  []binder.Kind{binder.KindBool},
	},
)

// CheckPermissionFunc decides whether the process pid/uid holds permission
type CheckPermissionFunc func(ctx context.Context, permission string, pid, uid int32) bool

// NewPermissionController creates a permission controller object backed by check
func NewPermissionController(check CheckPermissionFunc, opts ...binder.Option) *binder.Binder {
	return PermissionControllerInterface.NewStub(map[string]binder.Handler{
		"checkPermission": func(ctx context.Context, args []any) ([]any, error) {
			return []any{check(ctx, args[0].(string), args[1].(int32), args[2].(int32))}, nil
		},
	}, opts...)
}

// NewStub exposes server as a registry object
func NewStub(server *Server, opts ...binder.Option) *binder.Binder {
	return Interface.NewStub(map[string]binder.Handler{
		"getService": func(ctx context.Context, args []any) ([]any, error) {
			return []any{server.CheckService(ctx, args[0].(string))}, nil
		},
		"checkService": func(ctx context.Context, args []any) ([]any, error) {
			return []any{server.CheckService(ctx, args[0].(string))}, nil
		},
		"addService": func(ctx context.Context, args []any) ([]any, error) {
			service, _ := args[1].(binder.IBinder)
			return nil, server.AddService(ctx, args[0].(string), service, args[2].(bool))
		},
		"listServices": func(ctx context.Context, args []any) ([]any, error) {
			return []any{server.ListServices(ctx, args[0].(int32))}, nil
		},
		"setPermissionController": func(ctx context.Context, args []any) ([]any, error) {
			controller, _ := args[0].(binder.IBinder)
			return nil, server.SetPermissionController(ctx, controller)
		},
	}, opts...)
}
