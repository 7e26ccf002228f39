package codec

import (
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// CompressionMode selects the envelope wrapped around an embedded JSON value.
type CompressionMode uint8

const (
	// CompressionNone streams the JSON text raw, null-terminated or running
	// to the end of the buffer.
	CompressionNone CompressionMode = iota
	// CompressionZlib prefixes an 8-byte decompressed length, followed by a
	// zlib/deflate compressed body running to the end of the buffer.
	CompressionZlib
	// CompressionZstd prefixes a 4-byte decompressed length, followed by a
	// zstd frame running to the end of the buffer.
	CompressionZstd
)

// String returns the string representation of the compression mode.
func (m CompressionMode) String() string {
	switch m {
	case CompressionNone:
		return "none"
	case CompressionZlib:
		return "zlib"
	case CompressionZstd:
		return "zstd"
	}
	return "unknown"
}

// StreamJSON streams a JSON-encoded value through the stream using the given
// envelope. nullTerminated applies only to CompressionNone; compressed bodies
// carry the raw JSON text. Decompression or deserialization failures are hard
// stream errors.
func (s *Stream) StreamJSON(v any, nullTerminated bool, mode CompressionMode) {
	if s.err != nil {
		return
	}
	if s.mode == ModeRead {
		s.readJSON(v, nullTerminated, mode)
		return
	}
	s.writeJSON(v, nullTerminated, mode)
}

func (s *Stream) writeJSON(v any, nullTerminated bool, mode CompressionMode) {
	encoded, err := json.Marshal(v)
	if err != nil {
		s.failf("codec: json encode: %w", err)
		return
	}

	switch mode {
	case CompressionNone:
		text := string(encoded)
		if nullTerminated {
			s.StreamString(&text)
		} else {
			s.StreamStringToEnd(&text)
		}
	case CompressionZlib:
		compressed, err := CompressZlib(encoded)
		if err != nil {
			s.SetErr(err)
			return
		}
		decompressedLen := uint64(len(encoded))
		s.StreamUint64(&decompressedLen)
		s.write(compressed)
	case CompressionZstd:
		compressed, err := CompressZstd(encoded)
		if err != nil {
			s.SetErr(err)
			return
		}
		decompressedLen := uint32(len(encoded))
		s.StreamUint32(&decompressedLen)
		s.write(compressed)
	default:
		s.failf("codec: invalid json compression mode %d", mode)
	}
}

func (s *Stream) readJSON(v any, nullTerminated bool, mode CompressionMode) {
	var encoded []byte

	switch mode {
	case CompressionNone:
		var text string
		if nullTerminated {
			s.StreamString(&text)
		} else {
			s.StreamStringToEnd(&text)
		}
		encoded = []byte(text)
	case CompressionZlib:
		var decompressedLen uint64
		s.StreamUint64(&decompressedLen)
		var body []byte
		s.StreamRemaining(&body)
		if s.err != nil {
			return
		}
		decompressed, err := DecompressZlib(body)
		if err != nil {
			s.SetErr(err)
			return
		}
		if uint64(len(decompressed)) != decompressedLen {
			s.failf("codec: zlib json length mismatch, prefix %d actual %d", decompressedLen, len(decompressed))
			return
		}
		encoded = decompressed
	case CompressionZstd:
		var decompressedLen uint32
		s.StreamUint32(&decompressedLen)
		var body []byte
		s.StreamRemaining(&body)
		if s.err != nil {
			return
		}
		decompressed, err := DecompressZstd(body)
		if err != nil {
			s.SetErr(err)
			return
		}
		if uint32(len(decompressed)) != decompressedLen {
			s.failf("codec: zstd json length mismatch, prefix %d actual %d", decompressedLen, len(decompressed))
			return
		}
		encoded = decompressed
	default:
		s.failf("codec: invalid json compression mode %d", mode)
		return
	}

	if s.err != nil {
		return
	}
	if err := json.Unmarshal(encoded, v); err != nil {
		s.failf("codec: json decode: %w", err)
	}
}
