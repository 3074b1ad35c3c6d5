package engine

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"path"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/logging"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/table"
)

// scanConcurrency bounds the fragments read in parallel by one operation.
const scanConcurrency = 8

// Manifest operation names.
const (
	opCreate      = "create"
	opAppend      = "append"
	opOverwrite   = "overwrite"
	opDelete      = "delete"
	opMerge       = "merge_insert"
	opCreateIndex = "create_index"
	opCompact     = "compact"
	opUpdate      = "update"
	opRestore     = "restore"
)

// Table is a table of a Database.
type Table struct {
	db        *Database
	name      string
	dir       string
	manifests *manifest.Store
	logger    *logging.Logger
	writeMu   *sync.Mutex
	// pinned is set on views returned by Checkout.
	pinned *manifest.Manifest

	ftsMu sync.Mutex
	fts   map[string]*ftsEntry
}

var (
	_ table.Table           = (*Table)(nil)
	_ table.LoggingExecutor = (*Table)(nil)
)

func (t *Table) Name() string {
	return t.name
}

// Logger returns the table's logger.
func (t *Table) Logger() *slog.Logger {
	return t.logger.Logger
}

// snapshot loads the latest manifest, or the pinned one of a checked out
// view. A missing table is errs.ErrNotFound.
func (t *Table) snapshot(ctx context.Context) (*manifest.Manifest, error) {
	if t.pinned != nil {
		return t.pinned, nil
	}
	m, err := t.manifests.Latest(ctx)
	if err != nil {
		if errors.Is(err, manifest.ErrNotFound) {
			return nil, errs.NotFound("table %s was not found", t.name)
		}
		return nil, storageError(err, "load table %s", t.name)
	}
	return m, nil
}

func (t *Table) Schema(ctx context.Context) (*arrow.Schema, error) {
	m, err := t.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return decodeSchema(m.Schema)
}

// writable fails for checked out views.
func (t *Table) writable() error {
	if t.pinned != nil {
		return errs.NotSupported("table %s is checked out at version %d and cannot be modified", t.name, t.pinned.Version)
	}
	return nil
}

func (t *Table) Version(ctx context.Context) (uint64, error) {
	m, err := t.snapshot(ctx)
	if err != nil {
		return 0, err
	}
	return m.Version, nil
}

// Add appends rows or, with ModeOverwrite, replaces all rows while keeping
// the schema and index definitions.
func (t *Table) Add(ctx context.Context, rows array.RecordReader, mode table.WriteMode) error {
	if rows == nil {
		return errs.InvalidInput("add requires rows")
	}
	defer rows.Release()
	if err := t.writable(); err != nil {
		return err
	}
	return t.write(ctx, rows, mode, false)
}

// buildFunc derives the next manifest from cur, which is nil when the table
// does not exist, and returns the files it wrote for it. Returning a nil
// manifest commits nothing.
type buildFunc func(ctx context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error)

// commit runs build against the latest snapshot and commits the result,
// retrying on conflicts with a concurrent writer. Files written by a failed
// attempt are removed.
func (t *Table) commit(ctx context.Context, build buildFunc) (*manifest.Manifest, error) {
	if err := t.writable(); err != nil {
		return nil, err
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()

	if locker, ok := t.db.store.(blobstore.Locker); ok {
		unlock, err := locker.Lock(ctx, path.Join(t.dir, "_commit"))
		if err != nil {
			return nil, storageError(err, "lock table %s", t.name)
		}
		defer func() {
			if err := unlock(); err != nil {
				t.logger.WarnContext(ctx, "failed to release commit lock", "error", err)
			}
		}()
	}

	for attempt := 1; ; attempt++ {
		cur, err := t.manifests.Latest(ctx)
		if err != nil && !errors.Is(err, manifest.ErrNotFound) {
			return nil, storageError(err, "load table %s", t.name)
		}

		next, written, err := build(ctx, cur)
		if err != nil {
			t.discard(ctx, written)
			return nil, err
		}
		if next == nil {
			return cur, nil
		}

		err = t.manifests.Commit(ctx, next)
		if err == nil {
			return next, nil
		}
		t.discard(ctx, written)
		if !errors.Is(err, manifest.ErrConflict) || attempt >= t.db.opts.maxRetries {
			return nil, storageError(err, "commit version %d of table %s", next.Version, t.name)
		}
		t.logger.LogCommitConflict(ctx, next.Version, attempt)
	}
}

func (t *Table) write(ctx context.Context, rows array.RecordReader, mode table.WriteMode, creating bool) (err error) {
	start := time.Now()
	var (
		written int64
		version uint64
	)
	defer func() {
		t.db.opts.metrics.RecordAdd(written, time.Since(start), err)
		t.logger.LogAdd(ctx, mode.String(), written, version, err)
	}()

	switch mode {
	case table.ModeCreate, table.ModeAppend, table.ModeOverwrite:
	default:
		return errs.InvalidInput("invalid write mode %s", mode)
	}

	cur, err := t.manifests.Latest(ctx)
	if err != nil && !errors.Is(err, manifest.ErrNotFound) {
		return storageError(err, "load table %s", t.name)
	}
	exists := cur != nil
	switch {
	case !exists && !creating:
		return errs.NotFound("table %s was not found", t.name)
	case exists && mode == table.ModeCreate:
		return errs.New(errs.ErrAlreadyExists, "table %s already exists", t.name)
	}

	// Appends and Add overwrites keep the table schema. A new or recreated
	// table takes the schema of its rows.
	keepSchema := exists && (mode == table.ModeAppend || !creating)
	schema := rows.Schema()
	var schemaBytes []byte
	if keepSchema {
		schemaBytes = cur.Schema
		if schema, err = decodeSchema(schemaBytes); err != nil {
			return err
		}
	} else if schemaBytes, err = encodeSchema(schema); err != nil {
		return err
	}

	recs, err := drain(rows)
	if err != nil {
		return err
	}
	data, err := prepare(schema, recs)
	releaseAll(recs)
	if err != nil {
		return err
	}
	defer data.Release()
	written = data.NumRows()

	frags, err := t.writeFragments(ctx, data, defaultRowsPerGroup)
	if err != nil {
		return err
	}

	m, err := t.commit(ctx, func(_ context.Context, cur *manifest.Manifest) (*manifest.Manifest, []string, error) {
		var next *manifest.Manifest
		switch {
		case cur == nil && !creating:
			return nil, nil, errs.NotFound("table %s was not found", t.name)
		case cur == nil:
			next = manifest.New(schemaBytes)
			next.Operation = opCreate
		case mode == table.ModeCreate:
			return nil, nil, errs.New(errs.ErrAlreadyExists, "table %s already exists", t.name)
		case keepSchema && !bytes.Equal(cur.Schema, schemaBytes):
			return nil, nil, errs.New(errs.ErrConflict, "schema of table %s changed concurrently", t.name)
		case mode == table.ModeOverwrite:
			next = cur.Next(opOverwrite)
			next.Fragments = nil
			if creating {
				next.Schema = schemaBytes
				next.Indices = nil
			}
			for i := range next.Indices {
				next.Indices[i].Fragments = nil
			}
		default:
			next = cur.Next(opAppend)
		}
		for _, f := range frags {
			next.AddFragment(f)
		}
		return next, nil, nil
	})
	if err != nil {
		t.discard(ctx, fragmentPaths(frags))
		return err
	}
	version = m.Version
	return nil
}

// prepare conforms recs to schema and merges them into one record.
func prepare(schema *arrow.Schema, recs []arrow.Record) (arrow.Record, error) {
	conformed := make([]arrow.Record, 0, len(recs))
	defer func() { releaseAll(conformed) }()
	for _, rec := range recs {
		c, err := conform(schema, rec)
		if err != nil {
			return nil, err
		}
		conformed = append(conformed, c)
	}
	return concat(schema, conformed)
}

// writeFragments writes data as fragments of at most maxRowsPerFile rows.
func (t *Table) writeFragments(ctx context.Context, data arrow.Record, rowsPerGroup int64) ([]manifest.Fragment, error) {
	var frags []manifest.Fragment
	for start := int64(0); start < data.NumRows(); start += maxRowsPerFile {
		end := min(start+maxRowsPerFile, data.NumRows())
		part := data.NewSlice(start, end)
		f, err := t.writeFragment(ctx, part, rowsPerGroup)
		part.Release()
		if err != nil {
			t.discard(ctx, fragmentPaths(frags))
			return nil, err
		}
		frags = append(frags, f)
	}
	return frags, nil
}

func fragmentPaths(frags []manifest.Fragment) []string {
	paths := make([]string, 0, len(frags))
	for _, f := range frags {
		paths = append(paths, f.Path)
	}
	return paths
}

// MergeInsert starts a merge insert into this table.
func (t *Table) MergeInsert(on ...string) (*table.MergeInsertBuilder, error) {
	return table.NewMergeInsertBuilder(t, on)
}
