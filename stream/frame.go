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

package stream

import (
	"encoding/binary"
	"fmt"
	"io"

	gerrors "github.com/tochemey/goipc/errors"
)

// frameType identifies the frames exchanged on a connection
type frameType uint8

const (
	frameRequest frameType = 0x01
	frameReply   frameType = 0x02
)

func (t frameType) String() string {
	switch t {
	case frameRequest:
		return "request"
	case frameReply:
		return "reply"
	default:
		return fmt.Sprintf("frame(%d)", uint8(t))
	}
}

const (
	// [4 len] prefix of every frame
	lengthSize = 4
	// [1 type][8 request id] following the length
	prefixSize = 1 + 8
)

// object kinds in the flattened object table
const (
	// exported by the sender of the frame
	objectSender byte = 0x01
	// exported by the receiver of the frame
	objectReceiver byte = 0x02
)

type frame struct {
	kind frameType
	id   uint64
	body []byte
}

type wireObject struct {
	kind byte
	id   uint64
}

// encodeFrame lays a frame out as [4 len][1 type][8 request id][body], big-endian
func encodeFrame(kind frameType, id uint64, body []byte) []byte {
	buf := make([]byte, lengthSize+prefixSize+len(body))
	binary.BigEndian.PutUint32(buf[0:4], uint32(prefixSize+len(body)))
	buf[4] = byte(kind)
	binary.BigEndian.PutUint64(buf[5:13], id)
	copy(buf[13:], body)
	return buf
}

func readFrame(r io.Reader, maxSize uint32) (*frame, error) {
	var header [lengthSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, err
	}

	size := binary.BigEndian.Uint32(header[:])
	if size < prefixSize || size > maxSize {
		return nil, gerrors.NewErrProtocol(fmt.Errorf("invalid frame size %d", size))
	}

	msg := make([]byte, size)
	if _, err := io.ReadFull(r, msg); err != nil {
		return nil, err
	}

	return &frame{
		kind: frameType(msg[0]),
		id:   binary.BigEndian.Uint64(msg[1:9]),
		body: msg[9:],
	}, nil
}

// appendParcel flattens parcel bytes and its object table as
// [4 data len][data][4 object count]([1 kind][8 id])*
func appendParcel(buf []byte, data []byte, objects []wireObject) []byte {
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(data)))
	buf = append(buf, data...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(objects)))
	for _, object := range objects {
		buf = append(buf, object.kind)
		buf = binary.BigEndian.AppendUint64(buf, object.id)
	}
	return buf
}

type decoder struct {
	buf []byte
	pos int
}

func (d *decoder) take(kind string, n int) ([]byte, error) {
	if n < 0 || len(d.buf)-d.pos < n {
		return nil, gerrors.NewErrUnderflow(kind, d.pos)
	}
	out := d.buf[d.pos : d.pos+n]
	d.pos += n
	return out, nil
}

func (d *decoder) uint32(kind string) (uint32, error) {
	b, err := d.take(kind, 4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (d *decoder) uint64(kind string) (uint64, error) {
	b, err := d.take(kind, 8)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(b), nil
}

func (d *decoder) parcel() ([]byte, []wireObject, error) {
	size, err := d.uint32("parcel length")
	if err != nil {
		return nil, nil, err
	}
	data, err := d.take("parcel data", int(size))
	if err != nil {
		return nil, nil, err
	}
	count, err := d.uint32("object count")
	if err != nil {
		return nil, nil, err
	}
	if int(count) > (len(d.buf)-d.pos)/9 {
		return nil, nil, gerrors.NewErrUnderflow("object table", d.pos)
	}

	objects := make([]wireObject, count)
	for i := range objects {
		kind, err := d.take("object kind", 1)
		if err != nil {
			return nil, nil, err
		}
		id, err := d.uint64("object id")
		if err != nil {
			return nil, nil, err
		}
		objects[i] = wireObject{kind: kind[0], id: id}
	}

	out := make([]byte, len(data))
	copy(out, data)
	return out, objects, nil
}
