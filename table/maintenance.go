package table

import (
	"runtime"
	"time"
)

// DefaultCleanupAge is the age past which CleanupOlderThan callers usually
// drop versions.
const DefaultCleanupAge = 14 * 24 * time.Hour

// UnverifiedFileAge is the age below which unreferenced files may belong to
// an in-flight commit.
const UnverifiedFileAge = 7 * 24 * time.Hour

// CompactionOptions control fragment compaction.
type CompactionOptions struct {
	// TargetRowsPerFragment is the row count compaction aims for.
	TargetRowsPerFragment int64
	// MaxRowsPerGroup bounds the rows of one record batch in a fragment file.
	MaxRowsPerGroup int64
	// MaterializeDeletions rewrites fragments whose deleted share exceeds
	// MaterializeDeletionsThreshold.
	MaterializeDeletions          bool
	MaterializeDeletionsThreshold float64
	// NumThreads bounds concurrent rewrites. Zero means runtime.NumCPU().
	NumThreads int
}

// DefaultCompactionOptions returns the default compaction options.
func DefaultCompactionOptions() CompactionOptions {
	return CompactionOptions{
		TargetRowsPerFragment:         1024 * 1024,
		MaxRowsPerGroup:               1024,
		MaterializeDeletions:          true,
		MaterializeDeletionsThreshold: 0.1,
	}
}

// Normalize fills zero fields with defaults.
func (o CompactionOptions) Normalize() CompactionOptions {
	def := DefaultCompactionOptions()
	if o.TargetRowsPerFragment <= 0 {
		o.TargetRowsPerFragment = def.TargetRowsPerFragment
	}
	if o.MaxRowsPerGroup <= 0 {
		o.MaxRowsPerGroup = def.MaxRowsPerGroup
	}
	if o.MaterializeDeletionsThreshold <= 0 {
		o.MaterializeDeletionsThreshold = def.MaterializeDeletionsThreshold
	}
	if o.NumThreads <= 0 {
		o.NumThreads = runtime.NumCPU()
	}
	return o
}

// CompactionStats reports what a compaction changed.
type CompactionStats struct {
	FragmentsRemoved int `json:"fragments_removed"`
	FragmentsAdded   int `json:"fragments_added"`
	FilesRemoved     int `json:"files_removed"`
	FilesAdded       int `json:"files_added"`
}

// CleanupStats reports what a cleanup removed.
type CleanupStats struct {
	BytesRemoved int64 `json:"bytes_removed"`
	OldVersions  int   `json:"old_versions"`
}
