// Package metrics defines the operational metrics hooks of vectable and a
// few ready-made collectors.
package metrics

import (
	"sync/atomic"
	"time"
)

// Collector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems, or use
// NewPrometheus.
type Collector interface {
	// RecordAdd is called after each Add or CreateTable write.
	RecordAdd(rows int64, duration time.Duration, err error)

	// RecordMergeInsert is called after each merge insert with the number of
	// rows inserted, updated and deleted.
	RecordMergeInsert(inserted, updated, deleted int64, duration time.Duration, err error)

	// RecordDelete is called after each Delete with the rows removed.
	RecordDelete(rows int64, duration time.Duration, err error)

	// RecordSearch is called after each query. kind is "vector",
	// "fts" or "scan".
	RecordSearch(kind string, results int, duration time.Duration, err error)

	// RecordCreateIndex is called after each index build.
	RecordCreateIndex(indexType string, duration time.Duration, err error)

	// RecordCompaction is called after each compaction.
	RecordCompaction(fragmentsRemoved, fragmentsAdded int, duration time.Duration, err error)

	// RecordCleanup is called after each cleanup.
	RecordCleanup(bytesRemoved int64, duration time.Duration, err error)

	// RecordRequest is called after each remote request.
	RecordRequest(method string, status int, duration time.Duration, err error)
}

// Noop is a no-op implementation of Collector.
type Noop struct{}

func (Noop) RecordAdd(int64, time.Duration, error)                       {}
func (Noop) RecordMergeInsert(int64, int64, int64, time.Duration, error) {}
func (Noop) RecordDelete(int64, time.Duration, error)                    {}
func (Noop) RecordSearch(string, int, time.Duration, error)              {}
func (Noop) RecordCreateIndex(string, time.Duration, error)              {}
func (Noop) RecordCompaction(int, int, time.Duration, error)             {}
func (Noop) RecordCleanup(int64, time.Duration, error)                   {}
func (Noop) RecordRequest(string, int, time.Duration, error)             {}

// OrNoop returns c, or Noop when c is nil.
func OrNoop(c Collector) Collector {
	if c == nil {
		return Noop{}
	}
	return c
}

// Basic provides simple in-memory metrics collection.
// Useful for debugging and basic monitoring without external dependencies.
type Basic struct {
	AddCount          atomic.Int64
	AddRows           atomic.Int64
	AddErrors         atomic.Int64
	MergeCount        atomic.Int64
	MergeInserted     atomic.Int64
	MergeUpdated      atomic.Int64
	MergeDeleted      atomic.Int64
	MergeErrors       atomic.Int64
	DeleteCount       atomic.Int64
	DeleteRows        atomic.Int64
	DeleteErrors      atomic.Int64
	SearchCount       atomic.Int64
	SearchErrors      atomic.Int64
	SearchTotalNanos  atomic.Int64
	IndexCount        atomic.Int64
	IndexErrors       atomic.Int64
	CompactionCount   atomic.Int64
	CleanupCount      atomic.Int64
	CleanupBytes      atomic.Int64
	RequestCount      atomic.Int64
	RequestErrors     atomic.Int64
	RequestTotalNanos atomic.Int64
}

// RecordAdd implements Collector.
func (b *Basic) RecordAdd(rows int64, _ time.Duration, err error) {
	b.AddCount.Add(1)
	if err != nil {
		b.AddErrors.Add(1)
		return
	}
	b.AddRows.Add(rows)
}

// RecordMergeInsert implements Collector.
func (b *Basic) RecordMergeInsert(inserted, updated, deleted int64, _ time.Duration, err error) {
	b.MergeCount.Add(1)
	if err != nil {
		b.MergeErrors.Add(1)
		return
	}
	b.MergeInserted.Add(inserted)
	b.MergeUpdated.Add(updated)
	b.MergeDeleted.Add(deleted)
}

// RecordDelete implements Collector.
func (b *Basic) RecordDelete(rows int64, _ time.Duration, err error) {
	b.DeleteCount.Add(1)
	if err != nil {
		b.DeleteErrors.Add(1)
		return
	}
	b.DeleteRows.Add(rows)
}

// RecordSearch implements Collector.
func (b *Basic) RecordSearch(_ string, _ int, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
	}
}

// RecordCreateIndex implements Collector.
func (b *Basic) RecordCreateIndex(_ string, _ time.Duration, err error) {
	b.IndexCount.Add(1)
	if err != nil {
		b.IndexErrors.Add(1)
	}
}

// RecordCompaction implements Collector.
func (b *Basic) RecordCompaction(_, _ int, _ time.Duration, _ error) {
	b.CompactionCount.Add(1)
}

// RecordCleanup implements Collector.
func (b *Basic) RecordCleanup(bytesRemoved int64, _ time.Duration, err error) {
	b.CleanupCount.Add(1)
	if err == nil {
		b.CleanupBytes.Add(bytesRemoved)
	}
}

// RecordRequest implements Collector.
func (b *Basic) RecordRequest(_ string, _ int, duration time.Duration, err error) {
	b.RequestCount.Add(1)
	b.RequestTotalNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.RequestErrors.Add(1)
	}
}

// Stats returns a snapshot of current metrics.
func (b *Basic) Stats() BasicStats {
	return BasicStats{
		AddCount:        b.AddCount.Load(),
		AddRows:         b.AddRows.Load(),
		AddErrors:       b.AddErrors.Load(),
		MergeCount:      b.MergeCount.Load(),
		MergeInserted:   b.MergeInserted.Load(),
		MergeUpdated:    b.MergeUpdated.Load(),
		MergeDeleted:    b.MergeDeleted.Load(),
		MergeErrors:     b.MergeErrors.Load(),
		DeleteCount:     b.DeleteCount.Load(),
		DeleteRows:      b.DeleteRows.Load(),
		DeleteErrors:    b.DeleteErrors.Load(),
		SearchCount:     b.SearchCount.Load(),
		SearchErrors:    b.SearchErrors.Load(),
		SearchAvgNanos:  avg(b.SearchTotalNanos.Load(), b.SearchCount.Load()),
		IndexCount:      b.IndexCount.Load(),
		IndexErrors:     b.IndexErrors.Load(),
		CompactionCount: b.CompactionCount.Load(),
		CleanupCount:    b.CleanupCount.Load(),
		CleanupBytes:    b.CleanupBytes.Load(),
		RequestCount:    b.RequestCount.Load(),
		RequestErrors:   b.RequestErrors.Load(),
		RequestAvgNanos: avg(b.RequestTotalNanos.Load(), b.RequestCount.Load()),
	}
}

func avg(total, count int64) int64 {
	if count == 0 {
		return 0
	}
	return total / count
}

// BasicStats is a snapshot of Basic state.
type BasicStats struct {
	AddCount        int64
	AddRows         int64
	AddErrors       int64
	MergeCount      int64
	MergeInserted   int64
	MergeUpdated    int64
	MergeDeleted    int64
	MergeErrors     int64
	DeleteCount     int64
	DeleteRows      int64
	DeleteErrors    int64
	SearchCount     int64
	SearchErrors    int64
	SearchAvgNanos  int64
	IndexCount      int64
	IndexErrors     int64
	CompactionCount int64
	CleanupCount    int64
	CleanupBytes    int64
	RequestCount    int64
	RequestErrors   int64
	RequestAvgNanos int64
}
