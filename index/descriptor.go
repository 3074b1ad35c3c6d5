package index

// Descriptor is user-supplied index configuration. Kind names the index kind,
// optionally namespace-qualified ("lancedb.index.IvfPq"); only the segment
// after the last '.' is significant.
type Descriptor interface {
	Kind() string
}

// Default parameter values applied to absent descriptor fields.
const (
	DefaultBaseTokenizer   = "simple"
	DefaultLanguage        = "English"
	DefaultMaxTokenLength  = 40
	DefaultDistanceType    = "l2"
	DefaultNumBits         = 8
	DefaultMaxIterations   = 50
	DefaultSampleRate      = 256
	DefaultNumEdges        = 20
	DefaultEfConstruction  = 300
	defaultWithPosition    = true
	defaultLowerCase       = true
	defaultStem            = false
	defaultRemoveStopWords = false
	defaultASCIIFolding    = false
)

// BTreeParams describes a BTree index.
type BTreeParams struct{}

// BitmapParams describes a Bitmap index.
type BitmapParams struct{}

// LabelListParams describes a LabelList index.
type LabelListParams struct{}

// FTSParams describes a full-text index. Nil fields take the defaults.
type FTSParams struct {
	WithPosition  *bool   `json:"with_position,omitempty" yaml:"with_position,omitempty"`
	BaseTokenizer *string `json:"base_tokenizer,omitempty" yaml:"base_tokenizer,omitempty"`
	Language      *string `json:"language,omitempty" yaml:"language,omitempty"`
	// MaxTokenLength caps token length; 0 removes the cap. In raw
	// parameters an explicit null removes it too.
	MaxTokenLength  *int  `json:"max_token_length,omitempty" yaml:"max_token_length,omitempty"`
	LowerCase       *bool `json:"lower_case,omitempty" yaml:"lower_case,omitempty"`
	Stem            *bool `json:"stem,omitempty" yaml:"stem,omitempty"`
	RemoveStopWords *bool `json:"remove_stop_words,omitempty" yaml:"remove_stop_words,omitempty"`
	ASCIIFolding    *bool `json:"ascii_folding,omitempty" yaml:"ascii_folding,omitempty"`
}

// IvfPqParams describes an IVF_PQ index. NumPartitions and NumSubVectors
// are left to the engine when nil.
type IvfPqParams struct {
	DistanceType  *string `json:"distance_type,omitempty" yaml:"distance_type,omitempty"`
	NumPartitions *uint32 `json:"num_partitions,omitempty" yaml:"num_partitions,omitempty"`
	NumSubVectors *uint32 `json:"num_sub_vectors,omitempty" yaml:"num_sub_vectors,omitempty"`
	NumBits       *uint32 `json:"num_bits,omitempty" yaml:"num_bits,omitempty"`
	MaxIterations *uint32 `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	SampleRate    *uint32 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
}

// HnswPqParams describes an IVF_HNSW_PQ index. M is the graph degree.
type HnswPqParams struct {
	DistanceType   *string `json:"distance_type,omitempty" yaml:"distance_type,omitempty"`
	NumPartitions  *uint32 `json:"num_partitions,omitempty" yaml:"num_partitions,omitempty"`
	NumSubVectors  *uint32 `json:"num_sub_vectors,omitempty" yaml:"num_sub_vectors,omitempty"`
	NumBits        *uint32 `json:"num_bits,omitempty" yaml:"num_bits,omitempty"`
	MaxIterations  *uint32 `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	SampleRate     *uint32 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	M              *uint32 `json:"m,omitempty" yaml:"m,omitempty"`
	EfConstruction *uint32 `json:"ef_construction,omitempty" yaml:"ef_construction,omitempty"`
}

// HnswSqParams describes an IVF_HNSW_SQ index.
type HnswSqParams struct {
	DistanceType   *string `json:"distance_type,omitempty" yaml:"distance_type,omitempty"`
	NumPartitions  *uint32 `json:"num_partitions,omitempty" yaml:"num_partitions,omitempty"`
	MaxIterations  *uint32 `json:"max_iterations,omitempty" yaml:"max_iterations,omitempty"`
	SampleRate     *uint32 `json:"sample_rate,omitempty" yaml:"sample_rate,omitempty"`
	M              *uint32 `json:"m,omitempty" yaml:"m,omitempty"`
	EfConstruction *uint32 `json:"ef_construction,omitempty" yaml:"ef_construction,omitempty"`
}

func (BTreeParams) Kind() string     { return "BTree" }
func (BitmapParams) Kind() string    { return "Bitmap" }
func (LabelListParams) Kind() string { return "LabelList" }
func (FTSParams) Kind() string       { return "FTS" }
func (IvfPqParams) Kind() string     { return "IvfPq" }
func (HnswPqParams) Kind() string    { return "HnswPq" }
func (HnswSqParams) Kind() string    { return "HnswSq" }

// RawDescriptor carries a kind tag and JSON-encoded parameters, as they
// arrive from descriptor files or foreign callers.
type RawDescriptor struct {
	Type   string `json:"type" yaml:"type"`
	Params []byte `json:"params,omitempty" yaml:"-"`
}

// Kind implements Descriptor.
func (r RawDescriptor) Kind() string { return r.Type }

// Ptr returns a pointer to v. It keeps descriptor literals short.
func Ptr[T any](v T) *T { return &v }

func valueOr[T any](p *T, def T) T {
	if p == nil {
		return def
	}
	return *p
}
