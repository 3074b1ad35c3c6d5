package manifest

import "errors"

var (
	// ErrIncompatibleVersion is returned when the manifest format is not supported.
	ErrIncompatibleVersion = errors.New("incompatible manifest version")

	// ErrNotFound is returned when no manifest exists for the table or version.
	ErrNotFound = errors.New("manifest not found")

	// ErrConflict is returned by Commit when the version was already committed.
	ErrConflict = errors.New("manifest version already committed")

	// ErrCorrupt is returned when a manifest fails its integrity check.
	ErrCorrupt = errors.New("manifest corrupt")
)
