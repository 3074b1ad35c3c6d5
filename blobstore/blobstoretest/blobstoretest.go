// Package blobstoretest checks blobstore.Store implementations against the
// behavior the table engine relies on.
package blobstoretest

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/blobstore"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) blobstore.Store) {
	t.Run("PutOpen", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Put(ctx, "t.lance/data/a.arrow", []byte("hello world")))

		b, err := s.Open(ctx, "t.lance/data/a.arrow")
		require.NoError(t, err)
		defer b.Close()
		assert.Equal(t, int64(11), b.Size())

		buf := make([]byte, 5)
		n, err := b.ReadAt(buf, 6)
		require.NoError(t, err)
		assert.Equal(t, 5, n)
		assert.Equal(t, "world", string(buf))

		data, err := blobstore.ReadAll(ctx, s, "t.lance/data/a.arrow")
		require.NoError(t, err)
		assert.Equal(t, "hello world", string(data))
	})

	t.Run("PutReplaces", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.Put(ctx, "x", []byte("one")))
		require.NoError(t, s.Put(ctx, "x", []byte("two")))

		data, err := blobstore.ReadAll(ctx, s, "x")
		require.NoError(t, err)
		assert.Equal(t, "two", string(data))
	})

	t.Run("NotFound", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		_, err := s.Open(ctx, "missing")
		assert.ErrorIs(t, err, blobstore.ErrNotFound)

		require.NoError(t, s.Delete(ctx, "missing"))
	})

	t.Run("PutIfAbsent", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		require.NoError(t, s.PutIfAbsent(ctx, "_versions/1.manifest", []byte("first")))
		err := s.PutIfAbsent(ctx, "_versions/1.manifest", []byte("second"))
		assert.ErrorIs(t, err, blobstore.ErrAlreadyExists)

		data, err := blobstore.ReadAll(ctx, s, "_versions/1.manifest")
		require.NoError(t, err)
		assert.Equal(t, "first", string(data))
	})

	t.Run("PutIfAbsentRace", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		var (
			wg   sync.WaitGroup
			wins atomic.Int32
		)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				err := s.PutIfAbsent(ctx, "race", []byte(fmt.Sprintf("writer %d", i)))
				if err == nil {
					wins.Add(1)
					return
				}
				assert.ErrorIs(t, err, blobstore.ErrAlreadyExists)
			}(i)
		}
		wg.Wait()
		assert.Equal(t, int32(1), wins.Load())
	})

	t.Run("DeleteList", func(t *testing.T) {
		ctx := context.Background()
		s := newStore(t)

		for _, name := range []string{"b.lance/data/2", "a.lance/data/1", "b.lance/data/1", "b.lance/_versions/1"} {
			require.NoError(t, s.Put(ctx, name, []byte(name)))
		}

		infos, err := s.List(ctx, "b.lance/")
		require.NoError(t, err)
		assert.Equal(t, []string{"b.lance/_versions/1", "b.lance/data/1", "b.lance/data/2"}, blobstore.Names(infos))
		assert.Equal(t, int64(len("b.lance/data/1")), infos[1].Size)
		assert.False(t, infos[1].ModTime.IsZero())

		require.NoError(t, s.Delete(ctx, "b.lance/data/1"))

		infos, err = s.List(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, []string{"a.lance/data/1", "b.lance/_versions/1", "b.lance/data/2"}, blobstore.Names(infos))
	})
}
