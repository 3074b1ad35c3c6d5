// Package index validates index descriptors and normalizes them into one of
// eight resolved variants: Auto, BTree, Bitmap, LabelList, FTS, IvfPq,
// IvfHnswPq and IvfHnswSq.
//
// Descriptors come either as typed parameter structs or as a RawDescriptor
// carrying a kind tag and JSON parameters:
//
//	idx, err := index.Resolve(index.IvfPqParams{
//	    DistanceType:  index.Ptr("cosine"),
//	    NumPartitions: index.Ptr[uint32](256),
//	})
//
//	idx, err = index.Resolve(index.RawDescriptor{
//	    Type:   "lancedb.index.FTS",
//	    Params: []byte(`{"language": "german", "stem": true}`),
//	})
//
// Resolution is pure. Distance types, tokenizer languages and base tokenizers
// are validated here so configuration errors surface before an index build.
// Partition and sub-vector counts are never defaulted locally; a nil value
// leaves the choice to the storage engine.
package index
