package engine

import (
	"bytes"
	"context"
	"fmt"
	"path"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/compress"
	"github.com/hupe1980/vectable/internal/manifest"
)

const (
	dataDir      = "data"
	deletionsDir = "_deletions"

	// maxRowsPerFile bounds the rows of a fragment written by Add.
	maxRowsPerFile = 1024 * 1024
	// defaultRowsPerGroup bounds the rows of one IPC record batch.
	defaultRowsPerGroup = 1024
)

// rowAddress packs a fragment ID and row offset into one identifier.
func rowAddress(fragment uint64, offset int) uint64 {
	return fragment<<32 | uint64(offset)
}

// fragment is a loaded fragment: its rows and deletion vector.
type fragment struct {
	meta    manifest.Fragment
	rec     arrow.Record
	deleted *roaring.Bitmap
}

func (f *fragment) live(i int) bool {
	return !f.deleted.Contains(uint32(i))
}

func (f *fragment) release() {
	if f.rec != nil {
		f.rec.Release()
	}
}

func releaseFragments(frags []*fragment) {
	for _, f := range frags {
		f.release()
	}
}

func (t *Table) blobName(rel string) string {
	return path.Join(t.dir, rel)
}

// writeFragment encodes rec as a new fragment file.
func (t *Table) writeFragment(ctx context.Context, rec arrow.Record, rowsPerGroup int64) (manifest.Fragment, error) {
	if rowsPerGroup <= 0 {
		rowsPerGroup = defaultRowsPerGroup
	}

	var buf bytes.Buffer
	w := ipc.NewWriter(&buf, ipc.WithSchema(rec.Schema()), ipc.WithAllocator(allocator))
	for start := int64(0); start < rec.NumRows(); start += rowsPerGroup {
		end := min(start+rowsPerGroup, rec.NumRows())
		batch := rec.NewSlice(start, end)
		err := w.Write(batch)
		batch.Release()
		if err != nil {
			return manifest.Fragment{}, errs.Wrap(errs.ErrRuntime, err, "encode fragment")
		}
	}
	if err := w.Close(); err != nil {
		return manifest.Fragment{}, errs.Wrap(errs.ErrRuntime, err, "encode fragment")
	}

	data, err := compress.Encode(buf.Bytes(), t.db.opts.codec)
	if err != nil {
		return manifest.Fragment{}, errs.Wrap(errs.ErrRuntime, err, "compress fragment")
	}
	if err := t.db.opts.resources.AcquireIO(ctx, len(data)); err != nil {
		return manifest.Fragment{}, err
	}

	rel := path.Join(dataDir, uuid.NewString()+".arrow")
	if err := t.db.store.Put(ctx, t.blobName(rel), data); err != nil {
		return manifest.Fragment{}, storageError(err, "write fragment %s", rel)
	}
	return manifest.Fragment{
		Path:         rel,
		PhysicalRows: rec.NumRows(),
		Size:         int64(len(data)),
	}, nil
}

func (t *Table) readFragment(ctx context.Context, meta manifest.Fragment, schema *arrow.Schema) (*fragment, error) {
	data, err := blobstore.ReadAll(ctx, t.db.store, t.blobName(meta.Path))
	if err != nil {
		return nil, storageError(err, "read fragment %d", meta.ID)
	}
	raw, err := compress.Decode(data)
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decompress fragment %d", meta.ID)
	}

	r, err := ipc.NewReader(bytes.NewReader(raw), ipc.WithAllocator(allocator))
	if err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decode fragment %d", meta.ID)
	}
	defer r.Release()
	recs, err := drain(r)
	if err != nil {
		return nil, err
	}
	defer releaseAll(recs)

	rec, err := concat(schema, recs)
	if err != nil {
		return nil, err
	}
	if rec.NumRows() != meta.PhysicalRows {
		rec.Release()
		return nil, errs.Runtime("fragment %d has %d rows, manifest says %d", meta.ID, rec.NumRows(), meta.PhysicalRows)
	}

	deleted, err := t.readDeletions(ctx, meta)
	if err != nil {
		rec.Release()
		return nil, err
	}
	return &fragment{meta: meta, rec: rec, deleted: deleted}, nil
}

// loadFragments reads every fragment of m concurrently.
func (t *Table) loadFragments(ctx context.Context, m *manifest.Manifest) ([]*fragment, error) {
	schema, err := decodeSchema(m.Schema)
	if err != nil {
		return nil, err
	}

	frags := make([]*fragment, len(m.Fragments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(scanConcurrency)
	for i, meta := range m.Fragments {
		g.Go(func() error {
			f, err := t.readFragment(gctx, meta, schema)
			if err != nil {
				return err
			}
			frags[i] = f
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range frags {
			if f != nil {
				f.release()
			}
		}
		return nil, err
	}
	return frags, nil
}

func (t *Table) readDeletions(ctx context.Context, meta manifest.Fragment) (*roaring.Bitmap, error) {
	bm := roaring.New()
	if meta.DeletionFile == "" {
		return bm, nil
	}
	data, err := blobstore.ReadAll(ctx, t.db.store, t.blobName(meta.DeletionFile))
	if err != nil {
		return nil, storageError(err, "read deletions of fragment %d", meta.ID)
	}
	if err := bm.UnmarshalBinary(data); err != nil {
		return nil, errs.Wrap(errs.ErrRuntime, err, "decode deletions of fragment %d", meta.ID)
	}
	return bm, nil
}

// writeDeletions stores the deletion vector of a fragment and returns its
// relative path.
func (t *Table) writeDeletions(ctx context.Context, fragmentID uint64, bm *roaring.Bitmap) (string, error) {
	bm.RunOptimize()
	data, err := bm.ToBytes()
	if err != nil {
		return "", errs.Wrap(errs.ErrRuntime, err, "encode deletions")
	}
	rel := path.Join(deletionsDir, fmt.Sprintf("%d-%s.bin", fragmentID, uuid.NewString()))
	if err := t.db.store.Put(ctx, t.blobName(rel), data); err != nil {
		return "", storageError(err, "write deletions %s", rel)
	}
	return rel, nil
}

// discard removes files written by a failed commit. Errors are logged only.
func (t *Table) discard(ctx context.Context, rels []string) {
	for _, rel := range rels {
		if err := t.db.store.Delete(ctx, t.blobName(rel)); err != nil {
			t.logger.WarnContext(ctx, "failed to remove orphaned file", "path", rel, "error", err)
		}
	}
}
