package manifest

import (
	"encoding/binary"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/hupe1980/vectable/internal/compress"
	"github.com/hupe1980/vectable/internal/hash"
)

const (
	binaryMagic   = 0x5654424C // "VTBL"
	binaryVersion = 1
	headerSize    = 16
)

// Encode serializes m, compressing the payload with codec.
func Encode(m *Manifest, codec compress.Codec) ([]byte, error) {
	raw, err := msgpack.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode manifest: %w", err)
	}
	payload, err := compress.Encode(raw, codec)
	if err != nil {
		return nil, err
	}

	out := make([]byte, headerSize+len(payload))
	binary.LittleEndian.PutUint32(out[0:4], binaryMagic)
	binary.LittleEndian.PutUint32(out[4:8], binaryVersion)
	binary.LittleEndian.PutUint32(out[8:12], hash.CRC32C(payload))
	binary.LittleEndian.PutUint32(out[12:16], uint32(len(payload)))
	copy(out[headerSize:], payload)
	return out, nil
}

// Decode parses a manifest written by Encode.
func Decode(data []byte) (*Manifest, error) {
	if len(data) < headerSize {
		return nil, fmt.Errorf("%w: short header", ErrCorrupt)
	}
	if magic := binary.LittleEndian.Uint32(data[0:4]); magic != binaryMagic {
		return nil, fmt.Errorf("%w: bad magic %#x", ErrCorrupt, magic)
	}
	if v := binary.LittleEndian.Uint32(data[4:8]); v != binaryVersion {
		return nil, fmt.Errorf("%w: %d", ErrIncompatibleVersion, v)
	}
	checksum := binary.LittleEndian.Uint32(data[8:12])
	length := binary.LittleEndian.Uint32(data[12:16])

	payload := data[headerSize:]
	if uint64(len(payload)) != uint64(length) {
		return nil, fmt.Errorf("%w: payload length %d, header says %d", ErrCorrupt, len(payload), length)
	}
	if !hash.Verify(payload, checksum) {
		return nil, fmt.Errorf("%w: checksum mismatch", ErrCorrupt)
	}

	raw, err := compress.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	m := &Manifest{}
	if err := msgpack.Unmarshal(raw, m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return m, nil
}
