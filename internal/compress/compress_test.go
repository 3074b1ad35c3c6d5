package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	compressible := bytes.Repeat([]byte("vectable "), 1000)
	random := []byte{0x8f, 0x01, 0x33, 0xfe, 0x10}

	for _, codec := range []Codec{None, LZ4, ZSTD} {
		for _, data := range [][]byte{compressible, random, {}} {
			frame, err := Encode(data, codec)
			require.NoError(t, err)

			got, err := Decode(frame)
			require.NoError(t, err, codec.String())
			assert.Equal(t, data, got, codec.String())
		}
	}
}

func TestEncodeShrinks(t *testing.T) {
	data := bytes.Repeat([]byte("abcd"), 4096)

	for _, codec := range []Codec{LZ4, ZSTD} {
		frame, err := Encode(data, codec)
		require.NoError(t, err)
		assert.Less(t, len(frame), len(data)/2, codec.String())
	}
}

func TestDecodeCorrupt(t *testing.T) {
	_, err := Decode([]byte{1, 2})
	assert.ErrorIs(t, err, ErrCorrupt)

	frame, err := Encode(bytes.Repeat([]byte("x"), 1024), ZSTD)
	require.NoError(t, err)
	_, err = Decode(frame[:len(frame)-1])
	assert.ErrorIs(t, err, ErrCorrupt)
}

func TestParseCodec(t *testing.T) {
	c, err := ParseCodec("ZSTD")
	require.NoError(t, err)
	assert.Equal(t, ZSTD, c)

	c, err = ParseCodec("")
	require.NoError(t, err)
	assert.Equal(t, None, c)

	_, err = ParseCodec("snappy")
	assert.Error(t, err)
}
