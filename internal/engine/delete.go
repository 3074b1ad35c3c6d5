package engine

import (
	"context"
	"strings"
	"time"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/apache/arrow-go/v18/arrow"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/internal/predicate"
)

// compileFilter parses filter and checks it against schema. An empty filter
// yields nil.
func compileFilter(filter string, schema *arrow.Schema) (*predicate.Predicate, error) {
	if strings.TrimSpace(filter) == "" {
		return nil, nil
	}
	p, err := predicate.Parse(filter)
	if err != nil {
		return nil, err
	}
	if err := p.Validate(schema); err != nil {
		return nil, err
	}
	return p, nil
}

// liveMatches returns the live rows of f satisfying p, or all live rows if p
// is nil.
func liveMatches(f *fragment, p *predicate.Predicate) (*roaring.Bitmap, error) {
	var rows *roaring.Bitmap
	if p == nil {
		rows = roaring.New()
		rows.AddRange(0, uint64(f.rec.NumRows()))
	} else {
		var err error
		if rows, err = p.Evaluate(f.rec); err != nil {
			return nil, err
		}
	}
	rows.AndNot(f.deleted)
	return rows, nil
}

// CountRows counts the live rows matching filter.
func (t *Table) CountRows(ctx context.Context, filter string) (int64, error) {
	m, err := t.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	if strings.TrimSpace(filter) == "" {
		return m.LiveRows(), nil
	}

	schema, err := decodeSchema(m.Schema)
	if err != nil {
		return 0, err
	}
	p, err := compileFilter(filter, schema)
	if err != nil {
		return 0, err
	}

	frags, err := t.loadFragments(ctx, m)
	if err != nil {
		return 0, err
	}
	defer releaseFragments(frags)

	var n int64
	for _, f := range frags {
		rows, err := liveMatches(f, p)
		if err != nil {
			return 0, err
		}
		n += int64(rows.GetCardinality())
	}
	return n, nil
}

// Delete removes the rows matching predicate. A predicate matching nothing
// commits no new version.
func (t *Table) Delete(ctx context.Context, filter string) (err error) {
	start := time.Now()
	var deleted int64
	defer func() {
		t.db.opts.metrics.RecordDelete(deleted, time.Since(start), err)
		t.logger.LogDelete(ctx, filter, deleted, err)
	}()

	if err := t.writable(); err != nil {
		return err
	}
	if strings.TrimSpace(filter) == "" {
		return errs.InvalidInput("delete requires a predicate")
	}
	p, err := predicate.Parse(filter)
	if err != nil {
		return err
	}

	_, err = t.commit(ctx, func(ctx context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		deleted = 0
		if cur == nil {
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		}
		schema, err := decodeSchema(cur.Schema)
		if err != nil {
			return nil, nil, err
		}
		if err := p.Validate(schema); err != nil {
			return nil, nil, err
		}

		frags, err := t.loadFragments(ctx, cur)
		if err != nil {
			return nil, nil, err
		}
		defer releaseFragments(frags)

		removals := make(map[uint64]*roaring.Bitmap)
		for _, f := range frags {
			rows, err := liveMatches(f, p)
			if err != nil {
				return nil, nil, err
			}
			if !rows.IsEmpty() {
				removals[f.meta.ID] = rows
				deleted += int64(rows.GetCardinality())
			}
		}
		if len(removals) == 0 {
			return nil, nil, nil
		}

		next := cur.Next(opDelete)
		written, err := t.applyDeletions(ctx, next, frags, removals)
		return next, written, err
	})
	return err
}

// applyDeletions marks rows deleted in next. Fragments left without live rows
// are dropped from next.
func (t *Table) applyDeletions(ctx context.Context, next *manifest.Manifest, frags []*fragment, removals map[uint64]*roaring.Bitmap) ([]string, error) {
	var written []string
	kept := next.Fragments[:0]
	dropped := make(map[uint64]struct{})
	for i, meta := range next.Fragments {
		rows, ok := removals[meta.ID]
		if !ok {
			kept = append(kept, meta)
			continue
		}
		deleted := roaring.Or(frags[i].deleted, rows)
		if int64(deleted.GetCardinality()) >= meta.PhysicalRows {
			dropped[meta.ID] = struct{}{}
			continue
		}
		rel, err := t.writeDeletions(ctx, meta.ID, deleted)
		if err != nil {
			return written, err
		}
		written = append(written, rel)
		meta.DeletionFile = rel
		meta.NumDeleted = int64(deleted.GetCardinality())
		kept = append(kept, meta)
	}
	next.Fragments = kept
	dropIndexCoverage(next, dropped)
	return written, nil
}

// dropIndexCoverage forgets fragments that no longer exist.
func dropIndexCoverage(m *manifest.Manifest, removed map[uint64]struct{}) {
	if len(removed) == 0 {
		return
	}
	for i := range m.Indices {
		covered := m.Indices[i].Fragments[:0]
		for _, id := range m.Indices[i].Fragments {
			if _, gone := removed[id]; !gone {
				covered = append(covered, id)
			}
		}
		m.Indices[i].Fragments = covered
	}
}
