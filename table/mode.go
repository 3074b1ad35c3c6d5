package table

import (
	"fmt"

	"github.com/hupe1980/vectable/errs"
)

// WriteMode controls how rows are written into a table.
type WriteMode int

const (
	// ModeCreate creates a new table and fails if it exists.
	ModeCreate WriteMode = iota
	// ModeAppend appends rows to the table.
	ModeAppend
	// ModeOverwrite replaces the table content.
	ModeOverwrite
)

func (m WriteMode) String() string {
	switch m {
	case ModeCreate:
		return "create"
	case ModeAppend:
		return "append"
	case ModeOverwrite:
		return "overwrite"
	default:
		return fmt.Sprintf("WriteMode(%d)", int(m))
	}
}

// ParseWriteMode parses "create", "append" or "overwrite".
func ParseWriteMode(s string) (WriteMode, error) {
	switch s {
	case "create":
		return ModeCreate, nil
	case "append":
		return ModeAppend, nil
	case "overwrite":
		return ModeOverwrite, nil
	default:
		return 0, errs.InvalidInput("invalid write mode %s", s)
	}
}
