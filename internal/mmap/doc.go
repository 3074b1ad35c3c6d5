// Package mmap maps immutable files read-only into memory.
//
// The local blob store serves fragment, deletion and manifest files through
// a Mapping so readers share the page cache instead of copying. A Mapping is
// safe for concurrent reads; callers must not touch Bytes after Close.
//
// Unix uses mmap(2) with madvise(2) hints. Windows uses
// CreateFileMapping/MapViewOfFile and ignores hints.
package mmap
