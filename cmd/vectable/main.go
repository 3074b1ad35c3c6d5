// Command vectable manages vectable databases from the shell.
//
// Usage:
//
//	vectable [flags] <command> [args]
//
// Commands:
//
//	tables        - List tables
//	import        - Create or extend a table from an Arrow or JSON lines file
//	merge         - Upsert rows into a table
//	count         - Count rows, optionally filtered
//	delete        - Delete rows matching a predicate
//	drop          - Drop a table
//	search        - Vector, full-text or filtered search
//	index         - Create, list, inspect and resolve indices
//	compact       - Merge small fragments
//	cleanup       - Remove old versions and unreferenced files
//
// Configuration:
//
//	Flags fall back to VECTABLE_URI, VECTABLE_API_KEY and VECTABLE_REGION.
//	A .env file in the working directory is loaded first.
package main

import (
	"fmt"
	"os"

	"github.com/hupe1980/vectable/cmd/vectable/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
