// Package compress frames blobs with an optional LZ4 or ZSTD block codec.
//
// Frame format: [Codec uint8][UncompressedSize uint64][CompressedSize uint64][Data...].
// A CompressedSize of 0 means Data is stored uncompressed, which happens when
// the codec is None or compression does not pay off. Frames are
// self-describing, so a reader never needs to know the writer's codec.
package compress

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec defines the compression algorithm used.
type Codec uint8

const (
	// None stores blobs uncompressed.
	None Codec = 0
	// LZ4 is fast block compression, good for hot data.
	LZ4 Codec = 1
	// ZSTD has a better ratio, good for cold data.
	ZSTD Codec = 2
)

const headerSize = 17

var (
	// ErrCorrupt is returned for frames that cannot be decoded.
	ErrCorrupt = errors.New("compress: corrupt frame")

	zstdEncoderPool sync.Pool
	zstdDecoderPool sync.Pool
)

func (c Codec) String() string {
	switch c {
	case None:
		return "none"
	case LZ4:
		return "lz4"
	case ZSTD:
		return "zstd"
	default:
		return fmt.Sprintf("Codec(%d)", uint8(c))
	}
}

// ParseCodec parses "none", "lz4" or "zstd".
func ParseCodec(s string) (Codec, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "":
		return None, nil
	case "lz4":
		return LZ4, nil
	case "zstd":
		return ZSTD, nil
	default:
		return None, fmt.Errorf("unknown compression codec %q", s)
	}
}

func getZstdEncoder() *zstd.Encoder {
	if v := zstdEncoderPool.Get(); v != nil {
		return v.(*zstd.Encoder)
	}
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	return enc
}

func getZstdDecoder() *zstd.Decoder {
	if v := zstdDecoderPool.Get(); v != nil {
		return v.(*zstd.Decoder)
	}
	dec, _ := zstd.NewReader(nil)
	return dec
}

// Encode frames data with codec.
func Encode(data []byte, codec Codec) ([]byte, error) {
	var compressed []byte
	switch codec {
	case None:
	case LZ4:
		buf := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, buf, nil)
		if err != nil {
			return nil, err
		}
		compressed = buf[:n] // n == 0 means incompressible
	case ZSTD:
		enc := getZstdEncoder()
		compressed = enc.EncodeAll(data, nil)
		zstdEncoderPool.Put(enc)
	default:
		return nil, fmt.Errorf("unknown compression codec %d", codec)
	}

	// Not worth it below a 10% saving.
	if len(compressed) == 0 || float64(len(compressed)) > float64(len(data))*0.9 {
		out := make([]byte, headerSize+len(data))
		out[0] = byte(codec)
		binary.LittleEndian.PutUint64(out[1:], uint64(len(data)))
		copy(out[headerSize:], data)
		return out, nil
	}

	out := make([]byte, headerSize+len(compressed))
	out[0] = byte(codec)
	binary.LittleEndian.PutUint64(out[1:], uint64(len(data)))
	binary.LittleEndian.PutUint64(out[9:], uint64(len(compressed)))
	copy(out[headerSize:], compressed)
	return out, nil
}

// Decode returns the payload of a frame.
func Decode(frame []byte) ([]byte, error) {
	if len(frame) < headerSize {
		return nil, fmt.Errorf("%w: frame too small for header", ErrCorrupt)
	}

	codec := Codec(frame[0])
	uncompressedSize := binary.LittleEndian.Uint64(frame[1:])
	compressedSize := binary.LittleEndian.Uint64(frame[9:])
	body := frame[headerSize:]

	if compressedSize == 0 {
		if uint64(len(body)) != uncompressedSize {
			return nil, fmt.Errorf("%w: size mismatch", ErrCorrupt)
		}
		return body, nil
	}
	if uint64(len(body)) != compressedSize {
		return nil, fmt.Errorf("%w: compressed size mismatch", ErrCorrupt)
	}

	switch codec {
	case LZ4:
		out := make([]byte, uncompressedSize)
		n, err := lz4.UncompressBlock(body, out)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(n) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	case ZSTD:
		dec := getZstdDecoder()
		defer zstdDecoderPool.Put(dec)
		out, err := dec.DecodeAll(body, make([]byte, 0, uncompressedSize))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		if uint64(len(out)) != uncompressedSize {
			return nil, fmt.Errorf("%w: decompressed size mismatch", ErrCorrupt)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown codec %d", ErrCorrupt, codec)
	}
}
