// Package manifest implements versioned table manifests.
//
// # Overview
//
// A manifest is a snapshot of one table version: its Arrow schema, the data
// fragments holding its rows, their deletion files, and the indices built
// over them. Every mutation writes a new manifest, so older versions stay
// readable until cleanup removes them.
//
// # Layout
//
// Manifests live at <table>/_versions/<version>.manifest, where version is
// zero-padded to twenty digits so names sort numerically.
//
// # Binary Format
//
//	Header (16 bytes):
//	  Magic    (4 bytes) - 0x5654424C ("VTBL")
//	  Version  (4 bytes) - Format version (currently 1)
//	  Checksum (4 bytes) - CRC32C of payload
//	  Length   (4 bytes) - Payload length in bytes
//
//	Payload:
//	  A compression frame (see internal/compress) around the msgpack
//	  encoding of Manifest.
//
// # Atomic Protocol
//
// Commit creates the manifest of the next version with PutIfAbsent. Two
// writers racing for the same version cannot both succeed: the loser gets
// ErrConflict and must rebuild its change against the new latest version.
package manifest
