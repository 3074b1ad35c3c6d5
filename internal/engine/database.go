package engine

import (
	"context"
	"errors"
	"path"
	"regexp"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/blobstore"
	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/manifest"
	"github.com/hupe1980/vectable/table"
)

const tableSuffix = ".lance"

var tableNameRE = regexp.MustCompile(`^[A-Za-z0-9_.\-]+$`)

// ErrClosed is returned by operations on a closed Database.
var ErrClosed = errs.Runtime("database is closed")

// Database is a collection of tables stored under one prefix of a blob store.
type Database struct {
	store blobstore.Store
	root  string
	opts  options

	mu     sync.Mutex
	locks  map[string]*sync.Mutex
	closed atomic.Bool
}

var _ table.Connection = (*Database)(nil)

// Open returns the database rooted at root. Nothing is read until a table is
// accessed.
func Open(store blobstore.Store, root string, opts ...Option) *Database {
	return &Database{
		store: store,
		root:  strings.Trim(root, "/"),
		opts:  applyOptions(opts),
		locks: make(map[string]*sync.Mutex),
	}
}

// Store returns the underlying blob store.
func (db *Database) Store() blobstore.Store {
	return db.store
}

func validateTableName(name string) error {
	if !tableNameRE.MatchString(name) {
		return errs.InvalidInput("invalid table name %q: only alphanumerics, underscores, hyphens and periods are allowed", name)
	}
	return nil
}

func (db *Database) tableDir(name string) string {
	return path.Join(db.root, name+tableSuffix)
}

// tableLock returns the in-process writer lock of a table.
func (db *Database) tableLock(name string) *sync.Mutex {
	db.mu.Lock()
	defer db.mu.Unlock()
	l, ok := db.locks[name]
	if !ok {
		l = &sync.Mutex{}
		db.locks[name] = l
	}
	return l
}

func (db *Database) newTable(name string) *Table {
	dir := db.tableDir(name)
	return &Table{
		db:        db,
		name:      name,
		dir:       dir,
		manifests: manifest.NewStore(db.store, dir, manifest.WithCodec(db.opts.codec), manifest.WithClock(db.opts.now)),
		logger:    db.opts.logger.WithTable(name),
		writeMu:   db.tableLock(name),
	}
}

func (db *Database) checkOpen() error {
	if db.closed.Load() {
		return ErrClosed
	}
	return nil
}

// TableNames returns the names of all tables in lexical order.
func (db *Database) TableNames(ctx context.Context) ([]string, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	prefix := ""
	if db.root != "" {
		prefix = db.root + "/"
	}
	infos, err := db.store.List(ctx, prefix)
	if err != nil {
		return nil, storageError(err, "list tables")
	}

	seen := make(map[string]struct{})
	var names []string
	for _, info := range infos {
		rest := strings.TrimPrefix(info.Name, prefix)
		dir, file, ok := strings.Cut(rest, "/")
		if !ok || !strings.HasSuffix(dir, tableSuffix) || !strings.HasPrefix(file, manifest.VersionsDir+"/") {
			continue
		}
		name := strings.TrimSuffix(dir, tableSuffix)
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// CreateTable creates a table from rows according to mode:
//   - ModeCreate fails with errs.ErrAlreadyExists if the table exists
//   - ModeOverwrite replaces an existing table, its schema and its indices
//   - ModeAppend creates the table or appends to it
func (db *Database) CreateTable(ctx context.Context, name string, rows array.RecordReader, mode table.WriteMode) (table.Table, error) {
	if rows == nil {
		return nil, errs.InvalidInput("create table requires rows")
	}
	defer rows.Release()

	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateTableName(name); err != nil {
		return nil, err
	}
	if rows.Schema() == nil || rows.Schema().NumFields() == 0 {
		return nil, errs.InvalidInput("table %q needs at least one column", name)
	}

	t := db.newTable(name)
	if err := t.write(ctx, rows, mode, true); err != nil {
		return nil, err
	}
	return t, nil
}

// OpenTable opens an existing table.
func (db *Database) OpenTable(ctx context.Context, name string) (table.Table, error) {
	if err := db.checkOpen(); err != nil {
		return nil, err
	}
	if err := validateTableName(name); err != nil {
		return nil, err
	}
	t := db.newTable(name)
	if _, err := t.snapshot(ctx); err != nil {
		return nil, err
	}
	return t, nil
}

// DropTable deletes every file of a table.
func (db *Database) DropTable(ctx context.Context, name string) error {
	if err := db.checkOpen(); err != nil {
		return err
	}
	if err := validateTableName(name); err != nil {
		return err
	}

	l := db.tableLock(name)
	l.Lock()
	defer l.Unlock()

	infos, err := db.store.List(ctx, db.tableDir(name)+"/")
	if err != nil {
		return storageError(err, "list table %s", name)
	}
	if len(infos) == 0 {
		return errs.NotFound("table %s was not found", name)
	}
	// Manifests go last so a partially dropped table still lists as present.
	slices.SortStableFunc(infos, func(a, b blobstore.Info) int {
		return boolCmp(isManifest(a.Name), isManifest(b.Name))
	})
	for _, info := range infos {
		if err := db.store.Delete(ctx, info.Name); err != nil && !errors.Is(err, blobstore.ErrNotFound) {
			return storageError(err, "drop table %s", name)
		}
	}
	db.opts.logger.InfoContext(ctx, "table dropped", "table", name, "files", len(infos))
	return nil
}

func isManifest(name string) bool {
	return strings.Contains(name, "/"+manifest.VersionsDir+"/")
}

func boolCmp(a, b bool) int {
	switch {
	case a == b:
		return 0
	case a:
		return 1
	default:
		return -1
	}
}

// Close marks the database closed. Tables opened from it keep working.
func (db *Database) Close() error {
	db.closed.Store(true)
	return nil
}
