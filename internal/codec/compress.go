package codec

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/klauspost/compress/zstd"
)

// Shared one-shot zstd coders. EncodeAll/DecodeAll are safe for concurrent
// use on a single instance.
var (
	zstdEncoder, _ = zstd.NewWriter(nil)
	zstdDecoder, _ = zstd.NewReader(nil)
)

// CompressZlib compresses a buffer with zlib/deflate.
func CompressZlib(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := zlib.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("zlib compress: %w", err)
	}
	return buf.Bytes(), nil
}

// DecompressZlib decompresses a zlib/deflate compressed buffer.
func DecompressZlib(data []byte) ([]byte, error) {
	r, err := zlib.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	defer r.Close()
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("zlib decompress: %w", err)
	}
	return out, nil
}

// CompressZstd compresses a buffer into a single zstd frame.
func CompressZstd(data []byte) ([]byte, error) {
	if zstdEncoder == nil {
		return nil, fmt.Errorf("zstd compress: encoder unavailable")
	}
	return zstdEncoder.EncodeAll(data, nil), nil
}

// DecompressZstd decompresses a zstd frame.
func DecompressZstd(data []byte) ([]byte, error) {
	if zstdDecoder == nil {
		return nil, fmt.Errorf("zstd decompress: decoder unavailable")
	}
	out, err := zstdDecoder.DecodeAll(data, nil)
	if err != nil {
		return nil, fmt.Errorf("zstd decompress: %w", err)
	}
	return out, nil
}
