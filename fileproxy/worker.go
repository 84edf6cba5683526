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

package fileproxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

// Target is the file held by the worker
type Target interface {
	io.WriteCloser
	Sync() error
}

// Worker holds the target file and executes the commands received on the channel
type Worker struct {
	conn         io.ReadWriteCloser
	target       Target
	logger       log.Logger
	maxWriteSize uint32

	written   atomic.Uint64
	closeOnce sync.Once
	closeErr  error

	started atomic.Bool
	done    chan struct{}
	err     error
}

// NewWorker creates a Worker serving conn into target. The Worker owns both.
func NewWorker(conn io.ReadWriteCloser, target Target, opts ...Option) *Worker {
	cfg := newConfig(opts...)
	return &Worker{
		conn:         conn,
		target:       target,
		logger:       cfg.logger,
		maxWriteSize: cfg.maxWriteSize,
		done:         make(chan struct{}),
	}
}

// Serve executes commands until CLOSE, which returns nil after the target and
// the channel are closed. On a decode error, an unexpected end of stream or
// ctx being done, the channel and the target are force-closed and the cause
// is returned.
func (w *Worker) Serve(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = w.forceClose()
	})
	defer stop()

	for {
		command, length, err := readHeader(w.conn)
		if err != nil {
			return w.abort(ctx, err)
		}

		switch command {
		case CommandWrite:
			if length > w.maxWriteSize {
				return w.abort(ctx, gerrors.NewErrProtocol(fmt.Errorf("WRITE of %d bytes exceeds %d", length, w.maxWriteSize)))
			}
			n, err := io.CopyN(w.target, w.conn, int64(length))
			w.written.Add(uint64(n))
			if err != nil {
				return w.abort(ctx, fmt.Errorf("WRITE of %d bytes: %w", length, err))
			}
		case CommandFsync:
			if err := w.target.Sync(); err != nil {
				return w.abort(ctx, fmt.Errorf("FSYNC: %w", err))
			}
			if _, err := w.conn.Write(encodeHeader(CommandFsync, 0)); err != nil {
				return w.abort(ctx, fmt.Errorf("FSYNC confirmation: %w", err))
			}
		case CommandClose:
			if _, err := w.conn.Write(encodeHeader(CommandClose, 0)); err != nil {
				return w.abort(ctx, fmt.Errorf("CLOSE confirmation: %w", err))
			}
			w.logger.Debugf("fileproxy worker closed after %d bytes", w.written.Load())
			return w.forceClose()
		}
	}
}

// Start runs Serve in the background
func (w *Worker) Start(ctx context.Context) {
	if !w.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(w.done)
		w.err = w.Serve(ctx)
	}()
}

// Wait blocks until a worker started with Start is done and returns the Serve result
func (w *Worker) Wait() error {
	<-w.done
	return w.err
}

// Written returns the number of payload bytes copied into the target
func (w *Worker) Written() uint64 {
	return w.written.Load()
}

func (w *Worker) abort(ctx context.Context, cause error) error {
	if ctx.Err() != nil {
		cause = ctx.Err()
	} else if errors.Is(cause, io.EOF) || errors.Is(cause, io.ErrUnexpectedEOF) {
		cause = gerrors.NewErrProtocol(fmt.Errorf("unexpected end of stream: %w", cause))
	}
	w.logger.Errorf("fileproxy worker aborted after %d bytes: %v", w.written.Load(), cause)
	return multierr.Append(cause, w.forceClose())
}

// forceClose closes every endpoint the worker owns, once
func (w *Worker) forceClose() error {
	w.closeOnce.Do(func() {
		w.closeErr = multierr.Combine(
			ignoreClosed(w.conn.Close()),
			w.target.Close(),
		)
	})
	return w.closeErr
}
