// Package codec implements the binary stream format shared by the relay and
// game servers. A Stream is a single-mode (read or write) cursor over a byte
// buffer with a configurable default byte order; every streaming method works
// in both modes so message types can declare their wire layout once.
package codec

import (
	"encoding/binary"
	"fmt"
	"math"
	"net/netip"

	"github.com/google/uuid"
)

// Mode describes whether a Stream is reading or writing data.
type Mode uint8

const (
	ModeRead Mode = iota
	ModeWrite
)

// String returns the string representation of the stream mode.
func (m Mode) String() string {
	if m == ModeRead {
		return "read"
	}
	return "write"
}

// Stream wraps a byte buffer and provides bidirectional streaming for
// primitives, strings, GUIDs, addresses and JSON payloads. Errors are sticky:
// the first failure is recorded and every later operation becomes a no-op, so
// callers check Err once after streaming a full structure.
type Stream struct {
	buf   []byte
	pos   int
	mode  Mode
	order binary.ByteOrder
	err   error
}

// Streamable is implemented by composite values that stream their own fields
// through a Stream (in or out, depending on the stream mode).
type Streamable interface {
	Stream(io *Stream)
}

// NewWriter creates a write-mode stream over an empty growable buffer.
func NewWriter(order binary.ByteOrder) *Stream {
	return &Stream{mode: ModeWrite, order: order}
}

// NewReader creates a read-mode stream over the provided data.
func NewReader(data []byte, order binary.ByteOrder) *Stream {
	return &Stream{buf: data, mode: ModeRead, order: order}
}

// Mode returns the stream's read/write mode.
func (s *Stream) Mode() Mode { return s.mode }

// Pos returns the current byte position within the stream.
func (s *Stream) Pos() int { return s.pos }

// Len returns the total length of the underlying buffer.
func (s *Stream) Len() int { return len(s.buf) }

// Remaining returns the number of unread bytes (zero in write mode).
func (s *Stream) Remaining() int {
	if s.mode != ModeRead {
		return 0
	}
	return len(s.buf) - s.pos
}

// Bytes returns the underlying buffer.
func (s *Stream) Bytes() []byte { return s.buf }

// Order returns the stream's default byte order.
func (s *Stream) Order() binary.ByteOrder { return s.order }

// Err returns the first error encountered by any streaming operation.
func (s *Stream) Err() error { return s.err }

// SetErr records an error on the stream if one is not already set. It is used
// by Streamable implementations that perform their own validation.
func (s *Stream) SetErr(err error) {
	if s.err == nil {
		s.err = err
	}
}

func (s *Stream) failf(format string, args ...any) {
	s.SetErr(fmt.Errorf(format, args...))
}

// read returns the next n bytes of the buffer, or nil after recording a
// stream underrun error.
func (s *Stream) read(n int) []byte {
	if s.err != nil {
		return nil
	}
	if s.mode != ModeRead {
		s.failf("codec: read of %d bytes on %s-mode stream", n, s.mode)
		return nil
	}
	if len(s.buf)-s.pos < n {
		s.failf("codec: stream underrun, need %d bytes at offset %d of %d", n, s.pos, len(s.buf))
		return nil
	}
	b := s.buf[s.pos : s.pos+n]
	s.pos += n
	return b
}

func (s *Stream) write(b []byte) {
	if s.err != nil {
		return
	}
	if s.mode != ModeWrite {
		s.failf("codec: write of %d bytes on %s-mode stream", len(b), s.mode)
		return
	}
	s.buf = append(s.buf, b...)
	s.pos += len(b)
}

// StreamByte streams a single byte.
func (s *Stream) StreamByte(v *byte) {
	if s.mode == ModeRead {
		if b := s.read(1); b != nil {
			*v = b[0]
		}
		return
	}
	s.write([]byte{*v})
}

// StreamBytes streams a fixed-size byte slice in place. The slice length
// defines how many bytes are consumed or produced.
func (s *Stream) StreamBytes(v []byte) {
	if s.mode == ModeRead {
		if b := s.read(len(v)); b != nil {
			copy(v, b)
		}
		return
	}
	s.write(v)
}

// StreamRemaining streams a variable byte slice: on read it consumes all
// bytes remaining in the buffer, on write it emits the slice as-is.
func (s *Stream) StreamRemaining(v *[]byte) {
	if s.mode == ModeRead {
		if b := s.read(s.Remaining()); b != nil {
			*v = append([]byte(nil), b...)
		}
		return
	}
	s.write(*v)
}

func (s *Stream) streamFixed(b []byte, get func([]byte), put func([]byte)) {
	if s.mode == ModeRead {
		if r := s.read(len(b)); r != nil {
			copy(b, r)
			get(b)
		}
		return
	}
	put(b)
	s.write(b)
}

// StreamUint16 streams a uint16 in the stream's default byte order.
func (s *Stream) StreamUint16(v *uint16) { s.StreamUint16Ordered(v, s.order) }

// StreamUint16Ordered streams a uint16 in the given byte order.
func (s *Stream) StreamUint16Ordered(v *uint16, order binary.ByteOrder) {
	var b [2]byte
	s.streamFixed(b[:],
		func(b []byte) { *v = order.Uint16(b) },
		func(b []byte) { order.PutUint16(b, *v) })
}

// StreamInt16 streams an int16 in the stream's default byte order.
func (s *Stream) StreamInt16(v *int16) { s.StreamInt16Ordered(v, s.order) }

// StreamInt16Ordered streams an int16 in the given byte order.
func (s *Stream) StreamInt16Ordered(v *int16, order binary.ByteOrder) {
	u := uint16(*v)
	s.StreamUint16Ordered(&u, order)
	*v = int16(u)
}

// StreamUint32 streams a uint32 in the stream's default byte order.
func (s *Stream) StreamUint32(v *uint32) { s.StreamUint32Ordered(v, s.order) }

// StreamUint32Ordered streams a uint32 in the given byte order.
func (s *Stream) StreamUint32Ordered(v *uint32, order binary.ByteOrder) {
	var b [4]byte
	s.streamFixed(b[:],
		func(b []byte) { *v = order.Uint32(b) },
		func(b []byte) { order.PutUint32(b, *v) })
}

// StreamInt32 streams an int32 in the stream's default byte order.
func (s *Stream) StreamInt32(v *int32) { s.StreamInt32Ordered(v, s.order) }

// StreamInt32Ordered streams an int32 in the given byte order.
func (s *Stream) StreamInt32Ordered(v *int32, order binary.ByteOrder) {
	u := uint32(*v)
	s.StreamUint32Ordered(&u, order)
	*v = int32(u)
}

// StreamUint64 streams a uint64 in the stream's default byte order.
func (s *Stream) StreamUint64(v *uint64) { s.StreamUint64Ordered(v, s.order) }

// StreamUint64Ordered streams a uint64 in the given byte order.
func (s *Stream) StreamUint64Ordered(v *uint64, order binary.ByteOrder) {
	var b [8]byte
	s.streamFixed(b[:],
		func(b []byte) { *v = order.Uint64(b) },
		func(b []byte) { order.PutUint64(b, *v) })
}

// StreamInt64 streams an int64 in the stream's default byte order.
func (s *Stream) StreamInt64(v *int64) { s.StreamInt64Ordered(v, s.order) }

// StreamInt64Ordered streams an int64 in the given byte order.
func (s *Stream) StreamInt64Ordered(v *int64, order binary.ByteOrder) {
	u := uint64(*v)
	s.StreamUint64Ordered(&u, order)
	*v = int64(u)
}

// StreamUint128 streams a 128-bit unsigned integer expressed as low and high
// 64-bit halves. Little-endian writes the low half first; big-endian reverses
// the full 16-byte value.
func (s *Stream) StreamUint128(lo, hi *uint64) { s.StreamUint128Ordered(lo, hi, s.order) }

// StreamUint128Ordered streams a 128-bit unsigned integer in the given order.
func (s *Stream) StreamUint128Ordered(lo, hi *uint64, order binary.ByteOrder) {
	var b [16]byte
	if s.mode == ModeRead {
		if r := s.read(16); r != nil {
			copy(b[:], r)
			if order == binary.ByteOrder(binary.BigEndian) {
				*hi = binary.BigEndian.Uint64(b[0:8])
				*lo = binary.BigEndian.Uint64(b[8:16])
			} else {
				*lo = binary.LittleEndian.Uint64(b[0:8])
				*hi = binary.LittleEndian.Uint64(b[8:16])
			}
		}
		return
	}
	if order == binary.ByteOrder(binary.BigEndian) {
		binary.BigEndian.PutUint64(b[0:8], *hi)
		binary.BigEndian.PutUint64(b[8:16], *lo)
	} else {
		binary.LittleEndian.PutUint64(b[0:8], *lo)
		binary.LittleEndian.PutUint64(b[8:16], *hi)
	}
	s.write(b[:])
}

// StreamFloat32 streams a float32 in the stream's default byte order.
func (s *Stream) StreamFloat32(v *float32) { s.StreamFloat32Ordered(v, s.order) }

// StreamFloat32Ordered streams a float32 in the given byte order.
func (s *Stream) StreamFloat32Ordered(v *float32, order binary.ByteOrder) {
	u := math.Float32bits(*v)
	s.StreamUint32Ordered(&u, order)
	*v = math.Float32frombits(u)
}

// StreamFloat64 streams a float64 in the stream's default byte order.
func (s *Stream) StreamFloat64(v *float64) { s.StreamFloat64Ordered(v, s.order) }

// StreamFloat64Ordered streams a float64 in the given byte order.
func (s *Stream) StreamFloat64Ordered(v *float64, order binary.ByteOrder) {
	u := math.Float64bits(*v)
	s.StreamUint64Ordered(&u, order)
	*v = math.Float64frombits(u)
}

// StreamString streams a null-terminated UTF-8 string. On read it consumes
// bytes until a 0x00 terminator or the end of the buffer.
func (s *Stream) StreamString(v *string) {
	if s.mode == ModeRead {
		if s.err != nil {
			return
		}
		start := s.pos
		end := start
		for end < len(s.buf) && s.buf[end] != 0x00 {
			end++
		}
		*v = string(s.buf[start:end])
		if end < len(s.buf) {
			end++ // consume the terminator
		}
		s.pos = end
		return
	}
	s.write([]byte(*v))
	s.write([]byte{0x00})
}

// StreamStringToEnd streams a UTF-8 string with no terminator. On read it
// consumes all remaining bytes of the buffer.
func (s *Stream) StreamStringToEnd(v *string) {
	if s.mode == ModeRead {
		if b := s.read(s.Remaining()); b != nil {
			*v = string(b)
		}
		return
	}
	s.write([]byte(*v))
}

// StreamStringFixed streams a fixed-size UTF-8 string field. Writes are
// truncated or zero-padded to exactly size bytes; reads trim trailing zeros.
func (s *Stream) StreamStringFixed(v *string, size int) {
	b := make([]byte, size)
	if s.mode == ModeRead {
		s.StreamBytes(b)
		if s.err == nil {
			end := size
			for end > 0 && b[end-1] == 0x00 {
				end--
			}
			*v = string(b[:end])
		}
		return
	}
	copy(b, *v)
	s.write(b)
}

// StreamGUID streams a GUID in the wire's mixed-endian layout: the first
// three groups are byte-swapped relative to the canonical RFC 4122 byte
// order, the final eight bytes are unchanged.
func (s *Stream) StreamGUID(v *uuid.UUID) {
	var b [16]byte
	if s.mode == ModeRead {
		s.StreamBytes(b[:])
		if s.err == nil {
			*v = guidFromWire(b)
		}
		return
	}
	b = guidToWire(*v)
	s.write(b[:])
}

// StreamIPv4 streams a 4-byte IPv4 address in the given byte order. Addresses
// are naturally big-endian; a little-endian order reverses the octets.
func (s *Stream) StreamIPv4(v *netip.Addr, order binary.ByteOrder) {
	var b [4]byte
	if s.mode == ModeRead {
		s.StreamBytes(b[:])
		if s.err == nil {
			if order != binary.ByteOrder(binary.BigEndian) {
				b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
			}
			*v = netip.AddrFrom4(b)
		}
		return
	}
	if v.Is4() {
		b = v.As4()
	}
	if order != binary.ByteOrder(binary.BigEndian) {
		b[0], b[1], b[2], b[3] = b[3], b[2], b[1], b[0]
	}
	s.write(b[:])
}

func guidToWire(u uuid.UUID) [16]byte {
	var b [16]byte
	b[0], b[1], b[2], b[3] = u[3], u[2], u[1], u[0]
	b[4], b[5] = u[5], u[4]
	b[6], b[7] = u[7], u[6]
	copy(b[8:], u[8:])
	return b
}

func guidFromWire(b [16]byte) uuid.UUID {
	var u uuid.UUID
	u[0], u[1], u[2], u[3] = b[3], b[2], b[1], b[0]
	u[4], u[5] = b[5], b[4]
	u[6], u[7] = b[7], b[6]
	copy(u[8:], b[8:])
	return u
}
