package table

import (
	"context"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/index"
)

// Connection is a database holding named tables.
type Connection interface {
	// TableNames returns the table names in lexical order.
	TableNames(ctx context.Context) ([]string, error)

	// CreateTable creates a table from rows. The reader is consumed and
	// released.
	CreateTable(ctx context.Context, name string, rows array.RecordReader, mode WriteMode) (Table, error)

	// OpenTable opens an existing table.
	OpenTable(ctx context.Context, name string) (Table, error)

	// DropTable deletes a table and all its data.
	DropTable(ctx context.Context, name string) error

	Close() error
}

// Table is a versioned collection of rows sharing one schema.
//
// Every mutating call is atomic: it either commits a new version reflecting
// its whole effect or leaves the table unchanged.
type Table interface {
	Name() string

	Schema(ctx context.Context) (*arrow.Schema, error)

	// Version returns the latest committed version.
	Version(ctx context.Context) (uint64, error)

	// Add appends (ModeAppend) or replaces (ModeOverwrite) rows. The reader
	// is consumed and released.
	Add(ctx context.Context, rows array.RecordReader, mode WriteMode) error

	// CountRows counts the rows matching filter, or all rows if filter is "".
	CountRows(ctx context.Context, filter string) (int64, error)

	// Delete removes the rows matching predicate.
	Delete(ctx context.Context, predicate string) error

	// Update sets columns of the rows matching where, or of every row if
	// where is "". Values are SQL expressions evaluated against the row
	// being updated. Vector columns take a literal such as "[1.1, 1.1]".
	Update(ctx context.Context, where string, values map[string]string) error

	// MergeInsert starts a merge insert joined on the given key columns.
	MergeInsert(on ...string) (*MergeInsertBuilder, error)

	// CreateIndex resolves desc and builds an index on column.
	// A nil desc lets the engine choose.
	CreateIndex(ctx context.Context, column string, desc index.Descriptor, opts ...IndexOption) error

	ListIndices(ctx context.Context) ([]index.IndexConfig, error)

	IndexStats(ctx context.Context, name string) (index.Statistics, error)

	// Search runs a query. The caller releases the returned reader.
	Search(ctx context.Context, q Query) (array.RecordReader, error)

	Compact(ctx context.Context, opts CompactionOptions) (CompactionStats, error)

	// ListVersions returns the retained versions, oldest first.
	ListVersions(ctx context.Context) ([]VersionInfo, error)

	// Checkout returns a read-only view of the table as of version. Its
	// mutating methods fail with errs.ErrNotSupported.
	Checkout(ctx context.Context, version uint64) (Table, error)

	// Restore commits the state of version as a new version. Restoring the
	// latest version changes nothing.
	Restore(ctx context.Context, version uint64) error

	// CleanupOlderThan removes versions older than olderThan and the files
	// only they referenced. Unreferenced files younger than seven days are
	// kept unless deleteUnverified is set.
	CleanupOlderThan(ctx context.Context, olderThan time.Duration, deleteUnverified bool) (CleanupStats, error)
}

// IndexOptions configure CreateIndex.
type IndexOptions struct {
	// Name defaults to "<column>_idx".
	Name string
	// Replace an existing index of the same name. Defaults to true.
	Replace bool
}

// IndexOption configures CreateIndex.
type IndexOption func(*IndexOptions)

// WithIndexName sets the index name.
func WithIndexName(name string) IndexOption {
	return func(o *IndexOptions) {
		o.Name = name
	}
}

// WithReplace controls whether an existing index is replaced.
func WithReplace(replace bool) IndexOption {
	return func(o *IndexOptions) {
		o.Replace = replace
	}
}

// ApplyIndexOptions returns the options for an index on column.
func ApplyIndexOptions(column string, optFns []IndexOption) IndexOptions {
	o := IndexOptions{Replace: true}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.Name == "" {
		o.Name = column + "_idx"
	}
	return o
}
