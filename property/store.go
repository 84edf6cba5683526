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

// Package property holds named string properties that other components wait on.
// Every change closes the current notification channel and installs a new one,
// so any number of waiters wake up on a single change.
package property

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/internal/validation"
	"github.com/tochemey/goipc/log"
	"github.com/tochemey/goipc/looper"
	"github.com/tochemey/goipc/registrant"
)

const (
	// MaxNameLength is the longest property name
	MaxNameLength = 255

	// StoppedValue is the value of svc.<name> once a service has stopped
	StoppedValue = "stopped"
)

var namePattern = regexp.MustCompile(`^[A-Za-z0-9_.\-@:]+$`)

// WaitResult is the outcome of a wait
type WaitResult int

const (
	// WaitReached means the awaited state was observed
	WaitReached WaitResult = iota
	// WaitTimedOut means the timeout elapsed first
	WaitTimedOut
)

// String returns the result name
func (r WaitResult) String() string {
	switch r {
	case WaitReached:
		return "Reached"
	case WaitTimedOut:
		return "TimedOut"
	default:
		return fmt.Sprintf("WaitResult(%d)", int(r))
	}
}

// Change is the result carried to registrants when a property changes
type Change struct {
	Name  string
	Value string
}

// Store is a set of named properties with change notification
type Store struct {
	mu      sync.RWMutex
	values  map[string]string
	changed chan struct{}

	registrants *registrant.List
	logger      log.Logger
}

// NewStore creates an empty Store
func NewStore(opts ...Option) *Store {
	s := &Store{
		values:      make(map[string]string),
		changed:     make(chan struct{}),
		registrants: registrant.NewList(),
		logger:      log.DefaultLogger,
	}
	for _, opt := range opts {
		opt.Apply(s)
	}
	return s
}

// Set sets a property and wakes every waiter. Setting the current value is a no-op.
func (s *Store) Set(name, value string) error {
	if err := validateName(name); err != nil {
		return err
	}

	s.mu.Lock()
	if current, ok := s.values[name]; ok && current == value {
		s.mu.Unlock()
		return nil
	}
	s.values[name] = value
	close(s.changed)
	s.changed = make(chan struct{})
	s.mu.Unlock()

	s.logger.Debugf("property %s=%q", name, value)
	s.registrants.NotifyResult(Change{Name: name, Value: value})
	return nil
}

// Get returns the value of a property, empty when it is not set
func (s *Store) Get(name string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.values[name]
}

// RegisterForChange posts a message to h on every change. A handler registers
// at most once; registering again replaces the previous registration.
func (s *Store) RegisterForChange(h *looper.Handler, what int, userObj any) {
	s.registrants.AddUnique(h, what, userObj)
}

// UnregisterForChange stops notifying h
func (s *Store) UnregisterForChange(h *looper.Handler) {
	s.registrants.Remove(h)
}

// WaitFor blocks until name holds value or timeout elapses. The error is only
// set when ctx is done first.
func (s *Store) WaitFor(ctx context.Context, name, value string, timeout time.Duration) (WaitResult, error) {
	if err := validateName(name); err != nil {
		return WaitTimedOut, err
	}
	_, result, err := s.wait(ctx, timeout, func(values map[string]string) (string, bool) {
		return name, values[name] == value
	})
	return result, err
}

// WaitForAnyStopped blocks until one of services has svc.<service> set to
// stopped and returns that service, or timeout elapses
func (s *Store) WaitForAnyStopped(ctx context.Context, timeout time.Duration, services ...string) (string, WaitResult, error) {
	if len(services) == 0 {
		return "", WaitTimedOut, gerrors.NewErrInvalidArgument(fmt.Errorf("no service to wait for"))
	}
	return s.wait(ctx, timeout, func(values map[string]string) (string, bool) {
		for _, service := range services {
			if values[ServiceStateName(service)] == StoppedValue {
				return service, true
			}
		}
		return "", false
	})
}

// ServiceStateName returns the property holding the state of a service
func ServiceStateName(service string) string {
	return "svc." + service
}

func (s *Store) wait(ctx context.Context, timeout time.Duration, reached func(map[string]string) (string, bool)) (string, WaitResult, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		s.mu.RLock()
		match, ok := reached(s.values)
		changed := s.changed
		s.mu.RUnlock()
		if ok {
			return match, WaitReached, nil
		}

		select {
		case <-changed:
		case <-timer.C:
			return "", WaitTimedOut, nil
		case <-ctx.Done():
			return "", WaitTimedOut, ctx.Err()
		}
	}
}

func validateName(name string) error {
	err := validation.New(validation.FailFast()).
		AddValidator(validation.NewLengthValidator("property name", name, 1, MaxNameLength)).
		AddValidator(validation.NewPatternValidator(namePattern, name,
			fmt.Errorf("property name %q has invalid characters", name))).
		Validate()
	if err != nil {
		return fmt.Errorf("%w: %w", gerrors.ErrInvalidPropertyName, err)
	}
	return nil
}
