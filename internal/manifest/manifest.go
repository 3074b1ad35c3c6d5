package manifest

import (
	"slices"
	"time"
)

// Manifest describes one version of a table.
type Manifest struct {
	Version   uint64    `msgpack:"version"`
	CreatedAt time.Time `msgpack:"created_at"`
	// Operation names the mutation that produced this version.
	Operation string `msgpack:"operation"`
	// Schema is the Arrow IPC encoding of the table schema.
	Schema         []byte     `msgpack:"schema"`
	Fragments      []Fragment `msgpack:"fragments"`
	Indices        []Index    `msgpack:"indices"`
	NextFragmentID uint64     `msgpack:"next_fragment_id"`
}

// Fragment is an immutable data file plus its deletion vector.
type Fragment struct {
	ID uint64 `msgpack:"id"`
	// Path is relative to the table directory.
	Path         string `msgpack:"path"`
	PhysicalRows int64  `msgpack:"physical_rows"`
	Size         int64  `msgpack:"size"`
	// DeletionFile holds the deleted row offsets, or "" if none.
	DeletionFile string `msgpack:"deletion_file,omitempty"`
	NumDeleted   int64  `msgpack:"num_deleted,omitempty"`
}

// LiveRows returns the number of rows not deleted.
func (f Fragment) LiveRows() int64 {
	return f.PhysicalRows - f.NumDeleted
}

// Index records an index definition and the fragments it covers.
type Index struct {
	Name   string `msgpack:"name"`
	Column string `msgpack:"column"`
	// Type is the index type wire name, e.g. "IVF_PQ".
	Type string `msgpack:"type"`
	// Params is the JSON encoding of the resolved index parameters.
	Params []byte `msgpack:"params,omitempty"`
	// Fragments lists the fragment IDs present when the index was built.
	Fragments []uint64  `msgpack:"fragments"`
	CreatedAt time.Time `msgpack:"created_at"`
}

// New returns the first manifest of a table.
func New(schema []byte) *Manifest {
	return &Manifest{
		Version:        1,
		Schema:         slices.Clone(schema),
		NextFragmentID: 1,
	}
}

// Next returns a copy of m for the following version.
func (m *Manifest) Next(operation string) *Manifest {
	n := m.Clone()
	n.Version = m.Version + 1
	n.Operation = operation
	n.CreatedAt = time.Time{}
	return n
}

// Clone returns a deep copy of m.
func (m *Manifest) Clone() *Manifest {
	c := *m
	c.Schema = slices.Clone(m.Schema)
	c.Fragments = slices.Clone(m.Fragments)
	c.Indices = make([]Index, len(m.Indices))
	for i, idx := range m.Indices {
		idx.Params = slices.Clone(idx.Params)
		idx.Fragments = slices.Clone(idx.Fragments)
		c.Indices[i] = idx
	}
	return &c
}

// LiveRows returns the number of rows across all fragments.
func (m *Manifest) LiveRows() int64 {
	var n int64
	for _, f := range m.Fragments {
		n += f.LiveRows()
	}
	return n
}

// AddFragment assigns the next fragment ID to f and appends it.
func (m *Manifest) AddFragment(f Fragment) Fragment {
	f.ID = m.NextFragmentID
	m.NextFragmentID++
	m.Fragments = append(m.Fragments, f)
	return f
}

// Index returns the index with the given name.
func (m *Manifest) Index(name string) (Index, bool) {
	for _, idx := range m.Indices {
		if idx.Name == name {
			return idx, true
		}
	}
	return Index{}, false
}

// Files returns every file path the manifest references, relative to the
// table directory.
func (m *Manifest) Files() []string {
	files := make([]string, 0, 2*len(m.Fragments))
	for _, f := range m.Fragments {
		files = append(files, f.Path)
		if f.DeletionFile != "" {
			files = append(files, f.DeletionFile)
		}
	}
	return files
}
