package table

import "time"

// VersionInfo describes one committed version of a table.
type VersionInfo struct {
	Version   uint64    `json:"version"`
	Timestamp time.Time `json:"timestamp"`
	// Operation names the mutation that produced the version, e.g.
	// "append" or "restore".
	Operation string `json:"operation,omitempty"`
	// Rows is the live row count of the version.
	Rows int64 `json:"rows"`
}
