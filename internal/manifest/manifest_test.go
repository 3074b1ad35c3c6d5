package manifest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/internal/compress"
)

func sample() *Manifest {
	m := New([]byte("schema"))
	m.AddFragment(Fragment{Path: "data/a.arrow", PhysicalRows: 10, Size: 100})
	m.AddFragment(Fragment{Path: "data/b.arrow", PhysicalRows: 5, Size: 50, DeletionFile: "_deletions/2-1.bin", NumDeleted: 2})
	m.Indices = append(m.Indices, Index{Name: "vector_idx", Column: "vector", Type: "IVF_PQ", Fragments: []uint64{1, 2}})
	return m
}

func TestManifestHelpers(t *testing.T) {
	m := sample()

	assert.Equal(t, uint64(3), m.NextFragmentID)
	assert.Equal(t, int64(13), m.LiveRows())
	assert.Equal(t, []string{"data/a.arrow", "data/b.arrow", "_deletions/2-1.bin"}, m.Files())

	idx, ok := m.Index("vector_idx")
	require.True(t, ok)
	assert.Equal(t, "vector", idx.Column)
	_, ok = m.Index("missing")
	assert.False(t, ok)
}

func TestNextIsDeepCopy(t *testing.T) {
	m := sample()
	n := m.Next("append")

	assert.Equal(t, uint64(2), n.Version)
	assert.Equal(t, "append", n.Operation)

	n.Fragments[0].NumDeleted = 3
	n.Indices[0].Fragments[0] = 99
	n.Schema[0] = 'X'
	assert.Equal(t, int64(0), m.Fragments[0].NumDeleted)
	assert.Equal(t, uint64(1), m.Indices[0].Fragments[0])
	assert.Equal(t, byte('s'), m.Schema[0])
}

func TestEncodeDecode(t *testing.T) {
	m := sample()
	m.CreatedAt = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	for _, codec := range []compress.Codec{compress.None, compress.LZ4, compress.ZSTD} {
		data, err := Encode(m, codec)
		require.NoError(t, err)

		got, err := Decode(data)
		require.NoError(t, err)
		assert.Equal(t, m.Fragments, got.Fragments)
		assert.Equal(t, m.Indices[0].Name, got.Indices[0].Name)
		assert.True(t, m.CreatedAt.Equal(got.CreatedAt))
	}
}

func TestDecodeRejectsCorruption(t *testing.T) {
	data, err := Encode(sample(), compress.None)
	require.NoError(t, err)

	_, err = Decode(data[:8])
	assert.ErrorIs(t, err, ErrCorrupt)

	flipped := append([]byte(nil), data...)
	flipped[len(flipped)-1] ^= 0xFF
	_, err = Decode(flipped)
	assert.ErrorIs(t, err, ErrCorrupt)

	badVersion := append([]byte(nil), data...)
	badVersion[4] = 9
	_, err = Decode(badVersion)
	assert.ErrorIs(t, err, ErrIncompatibleVersion)
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore(), "db/t.lance")

	_, err := s.Latest(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	m := sample()
	require.NoError(t, s.Commit(ctx, m))
	assert.False(t, m.CreatedAt.IsZero())
	assert.Equal(t, "db/t.lance/_versions/00000000000000000001.manifest", s.Path(1))

	err = s.Commit(ctx, sample())
	require.ErrorIs(t, err, ErrConflict)

	require.NoError(t, s.Commit(ctx, m.Next("delete")))

	versions, err := s.ListVersions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint64{1, 2}, versions)

	latest, err := s.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), latest.Version)
	assert.Equal(t, "delete", latest.Operation)

	require.NoError(t, s.DeleteVersion(ctx, 1))
	_, err = s.Load(ctx, 1)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStoreConcurrentCommit(t *testing.T) {
	ctx := context.Background()
	s := NewStore(blobstore.NewMemoryStore(), "t.lance")
	require.NoError(t, s.Commit(ctx, New(nil)))

	base, err := s.Latest(ctx)
	require.NoError(t, err)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if s.Commit(ctx, base.Next("append")) == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}
