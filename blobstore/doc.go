// Package blobstore provides the object storage behind vectable tables.
//
// A Store holds immutable, named blobs: fragment files, deletion files and
// manifests. Names are slash-separated paths relative to the store root.
// Implementations must be safe for concurrent use.
//
// # Built-in Implementations
//
//   - MemoryStore: in-process maps, for tests and ephemeral databases
//   - LocalStore: local file system with mmap reads and link-based commits
//   - CachingStore: an LRU read cache in front of any Store
//   - s3.Store, s3.DDBCommitStore: Amazon S3, optionally with DynamoDB commits
//   - minio.Store: MinIO and other S3-compatible services
//   - badger.Store: an embedded badger key-value database
//
// # Commits
//
// PutIfAbsent is the only primitive the engine needs for concurrency
// control: a table version is committed by creating its manifest, and the
// writer that loses the race observes ErrAlreadyExists.
package blobstore
