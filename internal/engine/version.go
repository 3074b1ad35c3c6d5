package engine

import (
	"context"
	"errors"
	"time"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/table"
)

// ListVersions returns the retained versions, oldest first. A checked out
// view lists the versions up to its own.
func (t *Table) ListVersions(ctx context.Context) ([]table.VersionInfo, error) {
	versions, err := t.manifests.ListVersions(ctx)
	if err != nil {
		return nil, storageError(err, "list versions of table %s", t.name)
	}
	if len(versions) == 0 {
		return nil, errs.NotFound("table %s was not found", t.name)
	}

	infos := make([]table.VersionInfo, 0, len(versions))
	for _, v := range versions {
		if t.pinned != nil && v > t.pinned.Version {
			break
		}
		m, err := t.manifests.Load(ctx, v)
		if err != nil {
			// Removed by a concurrent cleanup.
			if errors.Is(err, manifest.ErrNotFound) {
				continue
			}
			return nil, storageError(err, "load version %d of table %s", v, t.name)
		}
		infos = append(infos, table.VersionInfo{
			Version:   m.Version,
			Timestamp: m.CreatedAt,
			Operation: m.Operation,
			Rows:      m.LiveRows(),
		})
	}
	return infos, nil
}

// loadVersion loads a retained version. Unknown versions are
// errs.ErrInvalidInput.
func (t *Table) loadVersion(ctx context.Context, version uint64) (*manifest.Manifest, error) {
	if version == 0 {
		return nil, errs.InvalidInput("version must be at least 1")
	}
	m, err := t.manifests.Load(ctx, version)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, errs.InvalidInput("version %d of table %s does not exist", version, t.name)
		}
		return nil, storageError(err, "load version %d of table %s", version, t.name)
	}
	return m, nil
}

// Checkout returns a read-only view of the table pinned to version.
func (t *Table) Checkout(ctx context.Context, version uint64) (table.Table, error) {
	m, err := t.loadVersion(ctx, version)
	if err != nil {
		return nil, err
	}
	return &Table{
		db:        t.db,
		name:      t.name,
		dir:       t.dir,
		manifests: t.manifests,
		logger:    t.logger,
		writeMu:   t.writeMu,
		pinned:    m,
	}, nil
}

// Restore commits a copy of version as the new latest version. Restoring
// the latest version commits nothing.
func (t *Table) Restore(ctx context.Context, version uint64) (err error) {
	var restored uint64
	defer func() {
		t.logger.LogRestore(ctx, version, restored, err)
	}()

	if err := t.writable(); err != nil {
		return err
	}
	old, err := t.loadVersion(ctx, version)
	if err != nil {
		return err
	}

	m, err := t.commit(ctx, func(_ context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		if cur == nil {
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		}
		if version == cur.Version {
			return nil, nil, nil
		}
		next := old.Clone()
		next.Version = cur.Version + 1
		next.Operation = opRestore
		next.CreatedAt = time.Time{}
		next.NextFragmentID = max(cur.NextFragmentID, old.NextFragmentID)
		return next, nil, nil
	})
	if err != nil {
		return err
	}
	restored = m.Version
	return nil
}
