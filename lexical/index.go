package lexical

// Index is the interface for a lexical search index over row addresses.
type Index interface {
	// Add indexes the text of a row. Adding an existing row replaces it.
	Add(row uint64, text string) error
	// Delete removes a row from the index.
	Delete(row uint64) error
	// Search scores the rows matching any query term.
	Search(text string) (map[uint64]float32, error)
	// Len returns the number of indexed rows.
	Len() int
	// Close closes the index.
	Close() error
}
