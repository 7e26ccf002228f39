package codec

import (
	"encoding/binary"
	"net/netip"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

var byteOrders = map[string]binary.ByteOrder{
	"little": binary.LittleEndian,
	"big":    binary.BigEndian,
}

func TestStream_EndianExample(t *testing.T) {
	// Writing 0x12345678 little endian then re-reading it big endian swaps
	// the value.
	v := uint32(0x12345678)
	w := NewWriter(binary.LittleEndian)
	w.StreamUint32(&v)
	require.NoError(t, w.Err())
	require.Equal(t, []byte{0x78, 0x56, 0x34, 0x12}, w.Bytes())

	var got uint32
	r := NewReader(w.Bytes(), binary.BigEndian)
	r.StreamUint32(&got)
	require.NoError(t, r.Err())
	require.Equal(t, uint32(0x78563412), got)
}

func TestStream_RoundTrip_Property(t *testing.T) {
	for name, order := range byteOrders {
		order := order
		t.Run(name, func(t *testing.T) {
			rapid.Check(t, func(t *rapid.T) {
				wrote := rapid.Uint64().Draw(t, "u64")
				w := NewWriter(order)
				w.StreamUint64(&wrote)

				b := rapid.Byte().Draw(t, "byte")
				w.StreamByte(&b)

				i16 := rapid.Int16().Draw(t, "i16")
				w.StreamInt16(&i16)

				u32 := rapid.Uint32().Draw(t, "u32")
				w.StreamUint32(&u32)

				f64 := rapid.Float64().Draw(t, "f64")
				w.StreamFloat64(&f64)
				require.NoError(t, w.Err())
				writePos := w.Pos()

				r := NewReader(w.Bytes(), order)
				var gotU64 uint64
				var gotB byte
				var gotI16 int16
				var gotU32 uint32
				var gotF64 float64
				r.StreamUint64(&gotU64)
				r.StreamByte(&gotB)
				r.StreamInt16(&gotI16)
				r.StreamUint32(&gotU32)
				r.StreamFloat64(&gotF64)
				require.NoError(t, r.Err())

				assert.Equal(t, wrote, gotU64)
				assert.Equal(t, b, gotB)
				assert.Equal(t, i16, gotI16)
				assert.Equal(t, u32, gotU32)
				assert.Equal(t, f64, gotF64)
				assert.Equal(t, writePos, r.Pos())
			})
		})
	}
}

func TestStream_PerCallOrderOverride(t *testing.T) {
	v := uint16(0x1234)
	w := NewWriter(binary.LittleEndian)
	w.StreamUint16Ordered(&v, binary.BigEndian)
	require.NoError(t, w.Err())
	assert.Equal(t, []byte{0x12, 0x34}, w.Bytes())

	// The stream's default order is unchanged by the override.
	w.StreamUint16(&v)
	assert.Equal(t, []byte{0x12, 0x34, 0x34, 0x12}, w.Bytes())
}

func TestStream_Underrun(t *testing.T) {
	r := NewReader([]byte{0x01, 0x02}, binary.LittleEndian)
	var v uint32
	r.StreamUint32(&v)
	require.Error(t, r.Err())

	// The error is sticky: later operations keep failing.
	var b byte
	r.StreamByte(&b)
	require.Error(t, r.Err())
}

func TestStream_NullTerminatedString(t *testing.T) {
	s := "hello"
	w := NewWriter(binary.LittleEndian)
	w.StreamString(&s)
	require.NoError(t, w.Err())
	require.Equal(t, []byte{'h', 'e', 'l', 'l', 'o', 0x00}, w.Bytes())

	var got string
	r := NewReader(w.Bytes(), binary.LittleEndian)
	r.StreamString(&got)
	require.NoError(t, r.Err())
	assert.Equal(t, s, got)
}

func TestStream_UnterminatedStringReadsToEnd(t *testing.T) {
	// A missing terminator consumes the rest of the buffer without error.
	r := NewReader([]byte{'a', 'b', 'c'}, binary.LittleEndian)
	var got string
	r.StreamString(&got)
	require.NoError(t, r.Err())
	assert.Equal(t, "abc", got)
	assert.Equal(t, 0, r.Remaining())
}

func TestStream_FixedString(t *testing.T) {
	s := "ab"
	w := NewWriter(binary.LittleEndian)
	w.StreamStringFixed(&s, 4)
	require.NoError(t, w.Err())
	require.Equal(t, []byte{'a', 'b', 0x00, 0x00}, w.Bytes())

	var got string
	r := NewReader(w.Bytes(), binary.LittleEndian)
	r.StreamStringFixed(&got, 4)
	require.NoError(t, r.Err())
	assert.Equal(t, "ab", got)
}

func TestStream_GUIDWireFormat(t *testing.T) {
	// The first three GUID groups are byte swapped on the wire, the final
	// eight bytes pass through unchanged.
	u := uuid.MustParse("00112233-4455-6677-8899-aabbccddeeff")
	w := NewWriter(binary.LittleEndian)
	w.StreamGUID(&u)
	require.NoError(t, w.Err())
	require.Equal(t, []byte{
		0x33, 0x22, 0x11, 0x00,
		0x55, 0x44,
		0x77, 0x66,
		0x88, 0x99, 0xaa, 0xbb, 0xcc, 0xdd, 0xee, 0xff,
	}, w.Bytes())

	var got uuid.UUID
	r := NewReader(w.Bytes(), binary.LittleEndian)
	r.StreamGUID(&got)
	require.NoError(t, r.Err())
	assert.Equal(t, u, got)
}

func TestStream_GUIDRoundTrip_Property(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 16, 16).Draw(t, "raw")
		var u uuid.UUID
		copy(u[:], raw)

		w := NewWriter(binary.LittleEndian)
		w.StreamGUID(&u)
		require.NoError(t, w.Err())

		var got uuid.UUID
		r := NewReader(w.Bytes(), binary.LittleEndian)
		r.StreamGUID(&got)
		require.NoError(t, r.Err())
		assert.Equal(t, u, got)
	})
}

func TestStream_IPv4(t *testing.T) {
	addr := netip.MustParseAddr("1.2.3.4")

	w := NewWriter(binary.LittleEndian)
	w.StreamIPv4(&addr, binary.BigEndian)
	require.NoError(t, w.Err())
	assert.Equal(t, []byte{1, 2, 3, 4}, w.Bytes())

	w = NewWriter(binary.LittleEndian)
	w.StreamIPv4(&addr, binary.LittleEndian)
	require.NoError(t, w.Err())
	assert.Equal(t, []byte{4, 3, 2, 1}, w.Bytes())

	var got netip.Addr
	r := NewReader([]byte{1, 2, 3, 4}, binary.LittleEndian)
	r.StreamIPv4(&got, binary.BigEndian)
	require.NoError(t, r.Err())
	assert.Equal(t, addr, got)
}

func TestStream_Uint128(t *testing.T) {
	lo, hi := uint64(0x0123456789abcdef), uint64(0xfedcba9876543210)
	for name, order := range byteOrders {
		t.Run(name, func(t *testing.T) {
			wlo, whi := lo, hi
			w := NewWriter(order)
			w.StreamUint128(&wlo, &whi)
			require.NoError(t, w.Err())
			require.Equal(t, 16, w.Len())

			var glo, ghi uint64
			r := NewReader(w.Bytes(), order)
			r.StreamUint128(&glo, &ghi)
			require.NoError(t, r.Err())
			assert.Equal(t, lo, glo)
			assert.Equal(t, hi, ghi)
		})
	}
}

func TestStream_WriteModeHasNoReads(t *testing.T) {
	w := NewWriter(binary.LittleEndian)
	v := uint32(7)
	w.StreamUint32(&v)
	assert.Equal(t, 4, w.Len())
	assert.Equal(t, ModeWrite, w.Mode())
	assert.Equal(t, 0, w.Remaining())
}
