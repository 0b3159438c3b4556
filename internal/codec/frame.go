// Package codec implements the length-prefixed command/event wire format
// used between the core and out-of-process capture drivers (§4.1).
//
// Wire layout (all integers big-endian):
//
//	magic      uint32   0xDEC0DE58
//	checksum   uint32   CRC32(IEEE) over the payload bytes
//	sequence   uint32   transaction id; echoed by responses
//	command    uint32   command id (request) or response-to id (response)
//	dataLen    uint32   length of the payload in bytes
//	payload    [dataLen]byte
//
// The payload is a concatenation of typed fields (see fields.go).
package codec

import (
	"encoding/binary"
	"fmt"
	"hash/crc32"

	"github.com/kismetwireless/kismet-sub014/internal/kerrors"
)

// Magic is the fixed frame header magic number.
const Magic uint32 = 0xDEC0DE58

// HeaderSize is the number of bytes in the fixed frame header.
const HeaderSize = 4 + 4 + 4 + 4 + 4

// DefaultMaxFrameSize is the default per-connection frame size limit (§4.1).
const DefaultMaxFrameSize = 8 * 1024 * 1024

// Frame is a single decoded command/event frame.
type Frame struct {
	Sequence uint32
	Command  uint32
	Fields   []Field
}

// Encode serializes f into the wire format. Encoding always round-trips
// through Parse (invariant §8.4).
func Encode(f Frame) []byte {
	payload := encodeFields(f.Fields)

	buf := make([]byte, HeaderSize+len(payload))
	binary.BigEndian.PutUint32(buf[0:4], Magic)
	binary.BigEndian.PutUint32(buf[8:12], f.Sequence)
	binary.BigEndian.PutUint32(buf[12:16], f.Command)
	binary.BigEndian.PutUint32(buf[16:20], uint32(len(payload)))
	copy(buf[HeaderSize:], payload)

	checksum := crc32.ChecksumIEEE(payload)
	binary.BigEndian.PutUint32(buf[4:8], checksum)

	return buf
}

// ParseResult is the outcome of a single Parse call.
type ParseResult struct {
	Frame    Frame
	Consumed int  // bytes consumed from the input; 0 if NeedMore
	NeedMore int  // additional bytes required before reparsing; 0 if complete or errored
}

// Parse attempts to decode one frame from the front of data. It returns
// either a complete frame with the number of bytes consumed, a NeedMore
// hint (the caller should read more and retry), or an error wrapping
// kerrors.ErrInvalidFrame / kerrors.ErrFrameTooLarge.
func Parse(data []byte, maxFrameSize int) (ParseResult, error) {
	if maxFrameSize <= 0 {
		maxFrameSize = DefaultMaxFrameSize
	}

	if len(data) < HeaderSize {
		return ParseResult{NeedMore: HeaderSize - len(data)}, nil
	}

	magic := binary.BigEndian.Uint32(data[0:4])
	if magic != Magic {
		return ParseResult{}, kerrors.New(kerrors.KindFrame, "codec.Parse", fmt.Errorf("%w: bad magic %#x", kerrors.ErrInvalidFrame, magic))
	}

	checksum := binary.BigEndian.Uint32(data[4:8])
	sequence := binary.BigEndian.Uint32(data[8:12])
	command := binary.BigEndian.Uint32(data[12:16])
	dataLen := binary.BigEndian.Uint32(data[16:20])

	if int64(dataLen) > int64(maxFrameSize) {
		return ParseResult{}, kerrors.New(kerrors.KindFrame, "codec.Parse", fmt.Errorf("%w: declared length %d exceeds limit %d", kerrors.ErrFrameTooLarge, dataLen, maxFrameSize))
	}

	total := HeaderSize + int(dataLen)
	if len(data) < total {
		return ParseResult{NeedMore: total - len(data)}, nil
	}

	payload := data[HeaderSize:total]
	if crc32.ChecksumIEEE(payload) != checksum {
		return ParseResult{}, kerrors.New(kerrors.KindFrame, "codec.Parse", fmt.Errorf("%w: checksum mismatch", kerrors.ErrInvalidFrame))
	}

	fields, err := decodeFields(payload)
	if err != nil {
		return ParseResult{}, kerrors.New(kerrors.KindFrame, "codec.Parse", fmt.Errorf("%w: %v", kerrors.ErrInvalidFrame, err))
	}

	return ParseResult{
		Frame:    Frame{Sequence: sequence, Command: command, Fields: fields},
		Consumed: total,
	}, nil
}
