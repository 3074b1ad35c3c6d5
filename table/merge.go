package table

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"

	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/internal/logging"
)

// MergeInsert is the fixed configuration of one merge insert.
type MergeInsert struct {
	// On are the join-key columns. Never empty.
	On                           []string
	WhenMatchedUpdateAll         bool
	WhenNotMatchedInsertAll      bool
	WhenNotMatchedBySourceDelete bool
	// WhenNotMatchedBySourceDeleteFilter restricts deletion of unmatched
	// target rows to those satisfying the SQL predicate. Nil deletes all of
	// them.
	WhenNotMatchedBySourceDeleteFilter *string
}

// IsNoop reports whether the merge can change nothing.
func (m MergeInsert) IsNoop() bool {
	return !m.WhenMatchedUpdateAll && !m.WhenNotMatchedInsertAll && !m.WhenNotMatchedBySourceDelete
}

// MergeExecutor applies a merge insert atomically. Tables implement it.
type MergeExecutor interface {
	// ExecuteMergeInsert joins source against the current rows on m.On and
	// applies m. The source is consumed but not released.
	ExecuteMergeInsert(ctx context.Context, m MergeInsert, source array.RecordReader) error
}

// LoggingExecutor is a MergeExecutor that supplies a logger for reporting
// builder misuse.
type LoggingExecutor interface {
	MergeExecutor
	Logger() *slog.Logger
}

// MergeInsertBuilder configures a merge insert (upsert) of new rows into a
// table. It is single use: Execute consumes it.
//
// The when-* policies are independent. With none of them set, Execute still
// joins the data but changes nothing.
//
// When several existing rows share a key matched by an incoming row, the
// outcome of WhenMatchedUpdateAll is defined by the storage engine; see the
// engine documentation.
//
// Configuring a builder after Execute changes nothing: the call is logged at
// Warn and Err returns errs.ErrBuilderSpent.
type MergeInsertBuilder struct {
	mu     sync.Mutex
	target MergeExecutor
	logger *slog.Logger
	params MergeInsert
	spent  bool
	err    error
}

// NewMergeInsertBuilder returns a builder joining on the given columns.
// Empty, blank or repeated key columns are rejected.
func NewMergeInsertBuilder(target MergeExecutor, on []string) (*MergeInsertBuilder, error) {
	if target == nil {
		return nil, errs.InvalidInput("merge insert requires a target table")
	}
	if len(on) == 0 {
		return nil, errs.InvalidInput("merge insert requires at least one join key column")
	}
	for i, col := range on {
		if strings.TrimSpace(col) == "" {
			return nil, errs.InvalidInput("merge insert join key %d is empty", i)
		}
		if slices.Contains(on[:i], col) {
			return nil, errs.InvalidInput("merge insert join key %q is repeated", col)
		}
	}
	logger := logging.Noop().Logger
	if le, ok := target.(LoggingExecutor); ok && le.Logger() != nil {
		logger = le.Logger()
	}
	return &MergeInsertBuilder{
		target: target,
		logger: logger,
		params: MergeInsert{On: slices.Clone(on)},
	}, nil
}

// WhenMatchedUpdateAll replaces every existing row matched by an incoming row
// with the incoming row. On a spent builder it only records the misuse.
func (b *MergeInsertBuilder) WhenMatchedUpdateAll() *MergeInsertBuilder {
	return b.mutate("WhenMatchedUpdateAll", func(m *MergeInsert) {
		m.WhenMatchedUpdateAll = true
	})
}

// WhenNotMatchedInsertAll inserts every incoming row that matches no
// existing row. On a spent builder it only records the misuse.
func (b *MergeInsertBuilder) WhenNotMatchedInsertAll() *MergeInsertBuilder {
	return b.mutate("WhenNotMatchedInsertAll", func(m *MergeInsert) {
		m.WhenNotMatchedInsertAll = true
	})
}

// WhenNotMatchedBySourceDelete deletes existing rows that match no incoming
// row. A non-empty filter limits deletion to rows satisfying it. On a spent
// builder it only records the misuse.
func (b *MergeInsertBuilder) WhenNotMatchedBySourceDelete(filter string) *MergeInsertBuilder {
	return b.mutate("WhenNotMatchedBySourceDelete", func(m *MergeInsert) {
		m.WhenNotMatchedBySourceDelete = true
		m.WhenNotMatchedBySourceDeleteFilter = nil
		if strings.TrimSpace(filter) != "" {
			m.WhenNotMatchedBySourceDeleteFilter = &filter
		}
	})
}

func (b *MergeInsertBuilder) mutate(method string, fn func(*MergeInsert)) *MergeInsertBuilder {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.spent {
		b.err = errs.ErrBuilderSpent
		b.logger.Warn("merge insert builder already executed; call ignored", "method", method, "on", b.params.On)
		return b
	}
	fn(&b.params)
	return b
}

// Params returns a copy of the current configuration.
func (b *MergeInsertBuilder) Params() MergeInsert {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.params.clone()
}

// Err reports misuse of a spent builder.
func (b *MergeInsertBuilder) Err() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.err
}

// Execute consumes the builder and merges source into the target.
// It takes ownership of source and releases it before returning.
// Calling Execute twice returns errs.ErrBuilderSpent.
func (b *MergeInsertBuilder) Execute(ctx context.Context, source array.RecordReader) error {
	if source != nil {
		defer source.Release()
	}

	b.mu.Lock()
	if b.spent {
		b.mu.Unlock()
		return errs.ErrBuilderSpent
	}
	b.spent = true
	params := b.params.clone()
	b.mu.Unlock()

	if source == nil {
		return errs.InvalidInput("merge insert requires a source")
	}
	return b.target.ExecuteMergeInsert(ctx, params, source)
}

func (m MergeInsert) clone() MergeInsert {
	c := m
	c.On = slices.Clone(m.On)
	if m.WhenNotMatchedBySourceDeleteFilter != nil {
		f := *m.WhenNotMatchedBySourceDeleteFilter
		c.WhenNotMatchedBySourceDeleteFilter = &f
	}
	return c
}
