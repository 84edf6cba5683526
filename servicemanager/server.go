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

// Package servicemanager implements the registry that maps service names to
// binder objects, the object exposing it, and a caching client for it.
package servicemanager

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	goset "github.com/deckarep/golang-set/v2"

	"github.com/tochemey/goipc/binder"
	"github.com/tochemey/goipc/driver"
	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/internal/validation"
	"github.com/tochemey/goipc/log"
)

type entry struct {
	service binder.IBinder
	sub     *binder.Subscription
}

// Server is the directory of named services
type Server struct {
	mu         sync.RWMutex
	services   map[string]*entry
	isolated   goset.Set[string]
	controller binder.IBinder
	logger     log.Logger
}

// NewServer creates an empty directory
func NewServer(opts ...Option) *Server {
	cfg := newConfig(opts...)
	return &Server{
		services: make(map[string]*entry),
		isolated: goset.NewThreadUnsafeSet[string](),
		logger:   cfg.logger,
	}
}

// Register makes the server the context manager of process, reachable by
// every other process at handle 0.
func (s *Server) Register(process *driver.Process, opts ...binder.Option) error {
	return process.BecomeContextManager(NewStub(s, append([]binder.Option{binder.WithLogger(s.logger)}, opts...)...))
}

// CheckService returns the service published under name, or nil when there is
// none or the caller is isolated and the service does not allow it.
func (s *Server) CheckService(ctx context.Context, name string) binder.IBinder {
	caller := binder.CallingIdentity(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.services[name]
	if !ok {
		return nil
	}
	if binder.IsIsolated(caller.UID) && !s.isolated.Contains(name) {
		s.logger.Warnf("isolated %s denied access to service=(%s)", caller, name)
		return nil
	}
	return e.service
}

// AddService publishes service under name. Publishing again under the same
// name replaces the previous service. The service is dropped from the
// directory when its process dies.
func (s *Server) AddService(ctx context.Context, name string, service binder.IBinder, allowIsolated bool) error {
	if err := validation.NewServiceNameValidator(name).Validate(); err != nil {
		return gerrors.NewErrInvalidArgument(fmt.Errorf("%w: %w", gerrors.ErrInvalidServiceName, err))
	}
	if service == nil {
		return gerrors.NewErrInvalidArgument(fmt.Errorf("service=(%s) is nil", name))
	}

	caller := binder.CallingIdentity(ctx)
	if binder.IsIsolated(caller.UID) {
		return gerrors.NewRemoteException(gerrors.ExceptionSecurity,
			fmt.Sprintf("isolated %s cannot add service=(%s)", caller, name))
	}
	if err := s.checkPermission(ctx, caller); err != nil {
		return err
	}

	sub, err := service.LinkToDeath(binder.DeathRecipientFunc(func(who binder.IBinder) {
		s.died(name, who)
	}))
	if err != nil {
		return err
	}

	s.mu.Lock()
	if !sub.Active() {
		// the service died after the link was armed and before it was published
		s.mu.Unlock()
		return fmt.Errorf("service=(%s) %w", name, gerrors.ErrDeadObject)
	}
	previous, republished := s.services[name]
	s.services[name] = &entry{service: service, sub: sub}
	if allowIsolated {
		s.isolated.Add(name)
	} else {
		s.isolated.Remove(name)
	}
	s.mu.Unlock()

	if republished {
		previous.service.UnlinkToDeath(previous.sub)
		s.logger.Infof("service=(%s) republished by %s", name, caller)
		return nil
	}
	s.logger.Infof("service=(%s) added by %s", name, caller)
	return nil
}

// ListServices returns the name at index in sorted order, or an empty string
// past the end of the list.
func (s *Server) ListServices(ctx context.Context, index int32) string {
	names := s.visible(binder.CallingIdentity(ctx))
	if index < 0 || int(index) >= len(names) {
		return ""
	}
	return names[index]
}

// Names returns every published name in sorted order
func (s *Server) Names() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.services))
	for name := range s.services {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SetPermissionController sets the object consulted before a service is
// published. nil removes it.
func (s *Server) SetPermissionController(ctx context.Context, controller binder.IBinder) error {
	caller := binder.CallingIdentity(ctx)
	if binder.IsIsolated(caller.UID) {
		return gerrors.NewRemoteException(gerrors.ExceptionSecurity,
			fmt.Sprintf("isolated %s cannot set the permission controller", caller))
	}

	s.mu.Lock()
	s.controller = controller
	s.mu.Unlock()
	s.logger.Infof("permission controller set by %s", caller)
	return nil
}

func (s *Server) checkPermission(ctx context.Context, caller binder.Identity) error {
	s.mu.RLock()
	controller := s.controller
	s.mu.RUnlock()
	if controller == nil {
		return nil
	}

	results, err := PermissionControllerInterface.Call(ctx, controller, "checkPermission",
		AddServicePermission, caller.PID, caller.UID)
	if err != nil {
		if errors.Is(err, gerrors.ErrDeadObject) {
			s.logger.Errorf("permission controller is dead: %v", err)
		}
		return err
	}
	if granted, _ := results[0].(bool); !granted {
		return gerrors.NewRemoteException(gerrors.ExceptionSecurity,
			fmt.Sprintf("%s does not hold %s", caller, AddServicePermission))
	}
	return nil
}

func (s *Server) visible(caller binder.Identity) []string {
	if !binder.IsIsolated(caller.UID) {
		return s.Names()
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, s.isolated.Cardinality())
	s.isolated.Each(func(name string) bool {
		names = append(names, name)
		return false
	})
	slices.Sort(names)
	return names
}

func (s *Server) died(name string, who binder.IBinder) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.services[name]
	if !ok || e.service != who {
		return
	}
	delete(s.services, name)
	s.isolated.Remove(name)
	s.logger.Warnf("service=(%s) died and was removed", name)
}
