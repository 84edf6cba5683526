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

// Package fileproxy proxies sequential writes, fsync and close of a file held
// by a background worker across a raw duplex byte channel.
package fileproxy

import (
	"errors"
	"fmt"
	"io"
	"net"
	"sync"

	"go.uber.org/atomic"
	"go.uber.org/multierr"

	gerrors "github.com/tochemey/goipc/errors"
	"github.com/tochemey/goipc/log"
)

// Writer is the writing end of the channel. Writes are fire-and-forget;
// Sync and Close block until the worker echoes them.
type Writer struct {
	mu           sync.Mutex
	conn         io.ReadWriteCloser
	closed       atomic.Bool
	logger       log.Logger
	maxWriteSize uint32
}

var _ io.WriteCloser = (*Writer)(nil)

// NewWriter creates a Writer on conn. The Writer owns conn.
func NewWriter(conn io.ReadWriteCloser, opts ...Option) *Writer {
	cfg := newConfig(opts...)
	return &Writer{
		conn:         conn,
		logger:       cfg.logger,
		maxWriteSize: cfg.maxWriteSize,
	}
}

// Write sends p to the worker, split into WRITE commands of at most the
// configured size
func (w *Writer) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return 0, gerrors.ErrClosed
	}

	written := 0
	for len(p) > 0 {
		chunk := p
		if uint32(len(chunk)) > w.maxWriteSize {
			chunk = p[:w.maxWriteSize]
		}

		frame := append(encodeHeader(CommandWrite, uint32(len(chunk))), chunk...)
		if _, err := w.conn.Write(frame); err != nil {
			return written, w.fail(fmt.Errorf("write: %w", err))
		}
		written += len(chunk)
		p = p[len(chunk):]
	}
	return written, nil
}

// Sync blocks until the worker has flushed the target
func (w *Writer) Sync() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return gerrors.ErrClosed
	}
	return w.roundTrip(CommandFsync)
}

// Close blocks until the worker confirms, then closes the channel.
// The worker closes the target on its side.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed.Load() {
		return gerrors.ErrClosed
	}
	if err := w.roundTrip(CommandClose); err != nil {
		return err
	}
	w.closed.Store(true)
	return w.conn.Close()
}

// roundTrip sends a header and waits for the identical command to be echoed
func (w *Writer) roundTrip(command Command) error {
	if _, err := w.conn.Write(encodeHeader(command, 0)); err != nil {
		return w.fail(fmt.Errorf("%s: %w", command, err))
	}

	echoed, _, err := readHeader(w.conn)
	if err != nil {
		return w.fail(gerrors.NewErrProtocol(fmt.Errorf("%s confirmation: %w", command, err)))
	}
	if echoed != command {
		return w.fail(gerrors.NewErrProtocol(fmt.Errorf("sent %s, worker confirmed %s", command, echoed)))
	}
	return nil
}

// fail aborts the session: protocol and transport failures are not retried
func (w *Writer) fail(err error) error {
	w.closed.Store(true)
	w.logger.Errorf("fileproxy writer aborted: %v", err)
	return multierr.Append(err, ignoreClosed(w.conn.Close()))
}

func ignoreClosed(err error) error {
	if err == nil || errors.Is(err, io.ErrClosedPipe) || errors.Is(err, net.ErrClosed) {
		return nil
	}
	return err
}
