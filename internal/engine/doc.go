// Package engine implements the embedded table storage engine.
//
// A Database lives on a blobstore.Store. Each table is a directory
// <name>.lance holding:
//   - _versions: one manifest per committed version
//   - data: immutable fragment files (compressed Arrow IPC streams)
//   - _deletions: roaring bitmaps of deleted row offsets per fragment
//
// Writers never modify files in place. A mutation writes new fragment and
// deletion files, then commits the manifest of the next version with a
// conditional create. Writers in one process are serialized by a per-table
// mutex; writers in different processes race on the conditional create and
// the loser retries against the new snapshot, up to five times.
//
// Indices are recorded in the manifest together with the fragments present
// when they were built. Vector search is an exact scan with the index's
// distance type; full-text search scores rows with BM25 using the index's
// tokenizer.
//
// Merge insert with WhenMatchedUpdateAll replaces every target row whose key
// matches a source row, so several target rows sharing that key each become
// a copy of the source row. A target key matched by several source rows is
// ambiguous and fails with errs.ErrInvalidInput.
package engine
