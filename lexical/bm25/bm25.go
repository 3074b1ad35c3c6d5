// Package bm25 provides a BM25-based lexical search index.
//
// Uses standard BM25 parameters: k1=1.2, b=0.75. The index is safe for
// concurrent reads and writes.
package bm25

import (
	"math"
	"sync"

	"github.com/hupe1980/vectable/lexical"
)

const (
	k1 = 1.2
	b  = 0.75
)

type posting struct {
	row   uint64
	count int
}

// MemoryIndex is a simple in-memory BM25 index.
type MemoryIndex struct {
	mu          sync.RWMutex
	tokenizer   *lexical.Tokenizer
	inverted    map[string][]posting
	docLengths  map[uint64]int
	docTerms    map[uint64][]string
	totalLength int64
}

// Ensure MemoryIndex implements lexical.Index
var _ lexical.Index = (*MemoryIndex)(nil)

// New creates a new MemoryIndex using tokenizer for documents and queries.
func New(tokenizer *lexical.Tokenizer) *MemoryIndex {
	return &MemoryIndex{
		tokenizer:  tokenizer,
		inverted:   make(map[string][]posting),
		docLengths: make(map[uint64]int),
		docTerms:   make(map[uint64][]string),
	}
}

func (idx *MemoryIndex) Add(row uint64, text string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if _, ok := idx.docLengths[row]; ok {
		idx.deleteLocked(row)
	}

	terms := idx.tokenizer.Terms(text)
	length := len(terms)

	idx.docLengths[row] = length
	idx.totalLength += int64(length)

	tf := make(map[string]int)
	for _, t := range terms {
		tf[t]++
	}

	unique := make([]string, 0, len(tf))
	for t, count := range tf {
		idx.inverted[t] = append(idx.inverted[t], posting{row: row, count: count})
		unique = append(unique, t)
	}
	idx.docTerms[row] = unique

	return nil
}

func (idx *MemoryIndex) Delete(row uint64) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.deleteLocked(row)
	return nil
}

func (idx *MemoryIndex) deleteLocked(row uint64) {
	length, ok := idx.docLengths[row]
	if !ok {
		return
	}

	for _, t := range idx.docTerms[row] {
		postings := idx.inverted[t]
		for i, p := range postings {
			if p.row == row {
				postings = append(postings[:i], postings[i+1:]...)
				break
			}
		}
		if len(postings) == 0 {
			delete(idx.inverted, t)
		} else {
			idx.inverted[t] = postings
		}
	}

	delete(idx.docTerms, row)
	delete(idx.docLengths, row)
	idx.totalLength -= int64(length)
}

// Search scores every row containing at least one query term.
func (idx *MemoryIndex) Search(text string) (map[uint64]float32, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	scores := make(map[uint64]float32)
	docCount := len(idx.docLengths)
	if docCount == 0 {
		return scores, nil
	}

	avgDL := float64(idx.totalLength) / float64(docCount)
	if avgDL == 0 {
		return scores, nil
	}

	seen := make(map[string]bool)
	for _, t := range idx.tokenizer.Terms(text) {
		if seen[t] {
			continue
		}
		seen[t] = true

		postings, ok := idx.inverted[t]
		if !ok {
			continue
		}

		idf := computeIDF(docCount, len(postings))

		for _, p := range postings {
			tf := float64(p.count)
			docLen := float64(idx.docLengths[p.row])

			num := tf * (k1 + 1)
			denom := tf + k1*(1-b+b*(docLen/avgDL))
			scores[p.row] += float32(idf * (num / denom))
		}
	}

	return scores, nil
}

// IDF = log(1 + (N - n + 0.5) / (n + 0.5))
func computeIDF(docCount, df int) float64 {
	N := float64(docCount)
	n := float64(df)
	return math.Log(1 + (N-n+0.5)/(n+0.5))
}

// Len returns the number of indexed rows.
func (idx *MemoryIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.docLengths)
}

func (idx *MemoryIndex) Close() error {
	return nil
}
