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
	"encoding/binary"
	"fmt"
	"io"

	gerrors "github.com/tochemey/goipc/errors"
)

// Command identifies a message on the control channel
type Command uint32

const (
	// CommandWrite carries a payload to append to the target
	CommandWrite Command = 1
	// CommandFsync flushes the target and is echoed back once done
	CommandFsync Command = 2
	// CommandClose is echoed back, then the worker closes the target and the channel
	CommandClose Command = 3
)

// HeaderSize is the size of every header: the command word then, for WRITE, the payload length
const HeaderSize = 8

// String returns the command name
func (c Command) String() string {
	switch c {
	case CommandWrite:
		return "WRITE"
	case CommandFsync:
		return "FSYNC"
	case CommandClose:
		return "CLOSE"
	default:
		return fmt.Sprintf("Command(%d)", uint32(c))
	}
}

func encodeHeader(command Command, length uint32) []byte {
	header := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(header[0:4], uint32(command))
	binary.BigEndian.PutUint32(header[4:8], length)
	return header
}

func readHeader(r io.Reader) (Command, uint32, error) {
	var header [HeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return 0, 0, err
	}
	command := Command(binary.BigEndian.Uint32(header[0:4]))
	length := binary.BigEndian.Uint32(header[4:8])
	switch command {
	case CommandWrite, CommandFsync, CommandClose:
		return command, length, nil
	default:
		return 0, 0, gerrors.NewErrProtocol(fmt.Errorf("unknown command %d", uint32(command)))
	}
}
