package engine

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"golang.org/x/sync/errgroup"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/table"
)

// compactionGroup is a run of adjacent fragments rewritten into one.
type compactionGroup struct {
	// positions index the fragments of the planned manifest.
	positions []int
	rows      int64
}

// planCompaction bins adjacent candidate fragments into groups of at most
// TargetRowsPerFragment live rows. A fragment is a candidate if it is
// smaller than the target or, with MaterializeDeletions, if its deleted
// share exceeds the threshold. A group of one fragment without deletions is
// left alone.
func planCompaction(m *manifest.Manifest, opts table.CompactionOptions) []compactionGroup {
	var (
		groups []compactionGroup
		cur    compactionGroup
	)
	flush := func() {
		if len(cur.positions) > 1 || (len(cur.positions) == 1 && m.Fragments[cur.positions[0]].NumDeleted > 0) {
			groups = append(groups, cur)
		}
		cur = compactionGroup{}
	}

	for i, f := range m.Fragments {
		candidate := f.LiveRows() < opts.TargetRowsPerFragment
		if opts.MaterializeDeletions && f.PhysicalRows > 0 &&
			float64(f.NumDeleted)/float64(f.PhysicalRows) > opts.MaterializeDeletionsThreshold {
			candidate = true
		}
		if !candidate {
			flush()
			continue
		}
		if len(cur.positions) > 0 && cur.rows+f.LiveRows() > opts.TargetRowsPerFragment {
			flush()
		}
		cur.positions = append(cur.positions, i)
		cur.rows += f.LiveRows()
	}
	flush()
	return groups
}

// Compact rewrites small and deletion-heavy fragments. Rewritten fragments
// lose index coverage until the index is rebuilt.
func (t *Table) Compact(ctx context.Context, opts table.CompactionOptions) (stats table.CompactionStats, err error) {
	start := time.Now()
	defer func() {
		t.db.opts.metrics.RecordCompaction(stats.FragmentsRemoved, stats.FragmentsAdded, time.Since(start), err)
		t.logger.LogCompaction(ctx, stats.FragmentsRemoved, stats.FragmentsAdded, err)
	}()

	if err := t.writable(); err != nil {
		return stats, err
	}
	opts = opts.Normalize()
	if opts.MaterializeDeletionsThreshold > 1 {
		return stats, errs.InvalidInput("materialize deletions threshold must be at most 1, got %v", opts.MaterializeDeletionsThreshold)
	}

	_, err = t.commit(ctx, func(ctx context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		stats = table.CompactionStats{}
		if cur == nil {
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		}
		groups := planCompaction(cur, opts)
		if len(groups) == 0 {
			return nil, nil, nil
		}
		schema, err := decodeSchema(cur.Schema)
		if err != nil {
			return nil, nil, err
		}

		rewritten := make([][]manifest.Fragment, len(groups))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.NumThreads)
		for gi, group := range groups {
			g.Go(func() error {
				if err := t.db.opts.resources.AcquireWorker(gctx); err != nil {
					return err
				}
				defer t.db.opts.resources.ReleaseWorker()

				frags, err := t.rewriteGroup(gctx, cur, schema, group, opts.MaxRowsPerGroup)
				rewritten[gi] = frags
				return err
			})
		}
		err = g.Wait()

		var written []string
		for _, frags := range rewritten {
			written = append(written, fragmentPaths(frags)...)
		}
		if err != nil {
			return nil, written, err
		}

		next := cur.Next(opCompact)
		replaced := make(map[int]int, len(groups))
		removed := make(map[uint64]struct{})
		for gi, group := range groups {
			for _, pos := range group.positions {
				replaced[pos] = gi
				f := cur.Fragments[pos]
				removed[f.ID] = struct{}{}
				stats.FragmentsRemoved++
				stats.FilesRemoved++
				if f.DeletionFile != "" {
					stats.FilesRemoved++
				}
			}
		}

		next.Fragments = nil
		emitted := make(map[int]bool, len(groups))
		for pos, f := range cur.Fragments {
			gi, ok := replaced[pos]
			if !ok {
				next.Fragments = append(next.Fragments, f)
				continue
			}
			if emitted[gi] {
				continue
			}
			emitted[gi] = true
			for _, nf := range rewritten[gi] {
				next.AddFragment(nf)
				stats.FragmentsAdded++
				stats.FilesAdded++
			}
		}
		dropIndexCoverage(next, removed)
		return next, written, nil
	})
	if err != nil {
		return table.CompactionStats{}, err
	}
	return stats, nil
}

// rewriteGroup copies the live rows of a group into new fragments.
func (t *Table) rewriteGroup(ctx context.Context, m *manifest.Manifest, schema *arrow.Schema, group compactionGroup, rowsPerGroup int64) ([]manifest.Fragment, error) {
	var refs []rowRef
	var loaded []*fragment
	defer func() { releaseFragments(loaded) }()

	for _, pos := range group.positions {
		f, err := t.readFragment(ctx, m.Fragments[pos], schema)
		if err != nil {
			return nil, err
		}
		loaded = append(loaded, f)
		for i := 0; i < int(f.rec.NumRows()); i++ {
			if f.live(i) {
				refs = append(refs, rowRef{rec: f.rec, row: i})
			}
		}
	}
	if len(refs) == 0 {
		return nil, nil
	}

	data, err := gather(schema, allColumns(schema), refs)
	if err != nil {
		return nil, err
	}
	defer data.Release()
	return t.writeFragments(ctx, data, rowsPerGroup)
}
