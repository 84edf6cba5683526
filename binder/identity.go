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
	"fmt"
	"os"

	"go.uber.org/atomic"
)

const (
	// PerUserRange is the number of uids reserved for each user
	PerUserRange int32 = 100000
	// FirstIsolatedUID is the first app id of an isolated sandbox
	FirstIsolatedUID int32 = 99000
	// LastIsolatedUID is the last app id of an isolated sandbox
	LastIsolatedUID int32 = 99999
)

// Identity is the pid/uid pair of a caller
type Identity struct {
	PID int32
	UID int32
}

// String returns the identity in pid/uid form
func (i Identity) String() string {
	return fmt.Sprintf("pid=%d uid=%d", i.PID, i.UID)
}

// token packs the identity in a single word
func (i Identity) token() Token {
	return Token(uint64(uint32(i.UID))<<32 | uint64(uint32(i.PID)))
}

// Token is an opaque snapshot of a calling identity, as returned by
// ThreadState.ClearCallingIdentity.
type Token uint64

// Identity unpacks the token
func (t Token) Identity() Identity {
	return Identity{PID: int32(uint32(t)), UID: int32(uint32(t >> 32))}
}

// IsIsolated reports whether uid belongs to an isolated sandbox
func IsIsolated(uid int32) bool {
	appID := uid % PerUserRange
	return appID >= FirstIsolatedUID && appID <= LastIsolatedUID
}

// SelfIdentity returns the identity of the running process
func SelfIdentity() Identity {
	return Identity{PID: int32(os.Getpid()), UID: int32(os.Getuid())}
}

// ThreadState carries the calling identity seen by code running on one dispatch
// loop or one incoming transaction.
type ThreadState struct {
	self    Identity
	current *atomic.Uint64
}

// NewThreadState creates a ThreadState whose calling identity is self
func NewThreadState(self Identity) *ThreadState {
	return &ThreadState{
		self:    self,
		current: atomic.NewUint64(uint64(self.token())),
	}
}

// Self returns the identity the state falls back to when cleared
func (s *ThreadState) Self() Identity {
	return s.self
}

// CallingIdentity returns the identity of the current caller
func (s *ThreadState) CallingIdentity() Identity {
	return s.Token().Identity()
}

// Token returns a snapshot of the current calling identity
func (s *ThreadState) Token() Token {
	return Token(s.current.Load())
}

// SetCallingIdentity replaces the calling identity and returns the previous one
func (s *ThreadState) SetCallingIdentity(identity Identity) Token {
	return Token(s.current.Swap(uint64(identity.token())))
}

// ClearCallingIdentity resets the calling identity to the process's own and
// returns a token to restore the previous one.
func (s *ThreadState) ClearCallingIdentity() Token {
	return s.SetCallingIdentity(s.self)
}

// RestoreCallingIdentity puts back a token returned by ClearCallingIdentity
func (s *ThreadState) RestoreCallingIdentity(token Token) {
	s.current.Store(uint64(token))
}

type threadStateKey struct{}

// WithThreadState attaches a ThreadState to ctx
func WithThreadState(ctx context.Context, state *ThreadState) context.Context {
	return context.WithValue(ctx, threadStateKey{}, state)
}

// ThreadStateFrom returns the ThreadState carried by ctx, or nil
func ThreadStateFrom(ctx context.Context) *ThreadState {
	if ctx == nil {
		return nil
	}
	state, _ := ctx.Value(threadStateKey{}).(*ThreadState)
	return state
}

// CallingIdentity returns the identity of the process that sent the transaction
// being handled. Outside a transaction it is the running process.
func CallingIdentity(ctx context.Context) Identity {
	if state := ThreadStateFrom(ctx); state != nil {
		return state.CallingIdentity()
	}
	return SelfIdentity()
}
