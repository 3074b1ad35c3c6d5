package engine

import (
	"context"
	"errors"
	"path"
	"strings"
	"time"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/table"
)

// CleanupOlderThan removes versions created before now-olderThan, except the
// latest, and the data and deletion files no remaining version references.
// A file no removed version referenced either may belong to a commit in
// flight; it is only removed once older than table.UnverifiedFileAge, or
// with deleteUnverified.
func (t *Table) CleanupOlderThan(ctx context.Context, olderThan time.Duration, deleteUnverified bool) (stats table.CleanupStats, err error) {
	start := time.Now()
	defer func() {
		t.db.opts.metrics.RecordCleanup(stats.BytesRemoved, time.Since(start), err)
		t.logger.LogCleanup(ctx, stats.OldVersions, stats.BytesRemoved, err)
	}()

	if err := t.writable(); err != nil {
		return stats, err
	}
	if olderThan < 0 {
		return stats, errs.InvalidInput("older than must not be negative, got %s", olderThan)
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	versions, err := t.manifests.ListVersions(ctx)
	if err != nil {
		return stats, storageError(err, "list versions of %s", t.name)
	}
	if len(versions) == 0 {
		return stats, errs.NotFound("table %s was not found", t.name)
	}

	now := t.db.opts.now()
	cutoff := now.Add(-olderThan)
	latest := versions[len(versions)-1]

	var (
		expired    []uint64
		referenced = make(map[string]struct{})
		verified   = make(map[string]struct{})
	)
	for _, v := range versions {
		m, err := t.manifests.Load(ctx, v)
		if err != nil {
			if errors.Is(err, manifest.ErrNotFound) {
				continue
			}
			return stats, storageError(err, "load version %d of %s", v, t.name)
		}
		if v != latest && m.CreatedAt.Before(cutoff) {
			expired = append(expired, v)
			for _, f := range m.Files() {
				verified[f] = struct{}{}
			}
			continue
		}
		for _, f := range m.Files() {
			referenced[f] = struct{}{}
		}
	}

	infos, err := t.db.store.List(ctx, t.dir+"/")
	if err != nil {
		return stats, storageError(err, "list files of %s", t.name)
	}
	files := make(map[string]blobstore.Info, len(infos))
	for _, info := range infos {
		files[strings.TrimPrefix(info.Name, t.dir+"/")] = info
	}

	for _, v := range expired {
		name := t.manifests.Path(v)
		if err := t.db.store.Delete(ctx, name); err != nil {
			return stats, storageError(err, "delete version %d of %s", v, t.name)
		}
		stats.OldVersions++
		stats.BytesRemoved += files[strings.TrimPrefix(name, t.dir+"/")].Size
	}

	for rel, info := range files {
		if !strings.HasPrefix(rel, dataDir+"/") && !strings.HasPrefix(rel, deletionsDir+"/") {
			continue
		}
		if _, ok := referenced[rel]; ok {
			continue
		}
		_, wasReferenced := verified[rel]
		if !wasReferenced && !deleteUnverified && now.Sub(info.ModTime) < table.UnverifiedFileAge {
			continue
		}
		if err := t.db.store.Delete(ctx, path.Join(t.dir, rel)); err != nil {
			return stats, storageError(err, "delete %s of %s", rel, t.name)
		}
		stats.BytesRemoved += info.Size
	}
	return stats, nil
}
