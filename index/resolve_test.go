package index

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/distance"
	"github.com/hupe1980/vectable/errs"
)

func TestResolve_Nil(t *testing.T) {
	idx, err := Resolve(nil)
	require.NoError(t, err)
	assert.Equal(t, Auto{}, idx)

	var p *FTSParams
	idx, err = Resolve(p)
	require.NoError(t, err)
	assert.Equal(t, TypeAuto, idx.Type())
}

func TestResolve_Scalar(t *testing.T) {
	tests := []struct {
		desc Descriptor
		want Index
	}{
		{BTreeParams{}, BTree{}},
		{&BitmapParams{}, Bitmap{}},
		{LabelListParams{}, LabelList{}},
		{RawDescriptor{Type: "lancedb.index.BTree"}, BTree{}},
		{RawDescriptor{Type: "Bitmap", Params: []byte("{}")}, Bitmap{}},
	}
	for _, tt := range tests {
		got, err := Resolve(tt.desc)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestResolve_FTS(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		got, err := Resolve(FTSParams{})
		require.NoError(t, err)
		assert.Equal(t, FTS{
			WithPosition:   true,
			BaseTokenizer:  "simple",
			Language:       "English",
			MaxTokenLength: Ptr(40),
			LowerCase:      true,
		}, got)
	})

	t.Run("FieldsPreserved", func(t *testing.T) {
		got, err := Resolve(FTSParams{
			WithPosition:    Ptr(false),
			BaseTokenizer:   Ptr(" Whitespace "),
			Language:        Ptr("german"),
			MaxTokenLength:  Ptr(12),
			LowerCase:       Ptr(false),
			Stem:            Ptr(true),
			RemoveStopWords: Ptr(true),
			ASCIIFolding:    Ptr(true),
		})
		require.NoError(t, err)
		assert.Equal(t, FTS{
			WithPosition:    false,
			BaseTokenizer:   "whitespace",
			Language:        "German",
			MaxTokenLength:  Ptr(12),
			LowerCase:       false,
			Stem:            true,
			RemoveStopWords: true,
			ASCIIFolding:    true,
		}, got)
	})

	t.Run("UnlimitedTokenLength", func(t *testing.T) {
		got, err := Resolve(FTSParams{MaxTokenLength: Ptr(0)})
		require.NoError(t, err)
		assert.Nil(t, got.(FTS).MaxTokenLength)
	})

	t.Run("SupportedLanguage", func(t *testing.T) {
		got, err := Resolve(FTSParams{Language: Ptr("english")})
		require.NoError(t, err)
		assert.Equal(t, "English", got.(FTS).Language)
	})

	t.Run("UnsupportedLanguage", func(t *testing.T) {
		_, err := Resolve(FTSParams{Language: Ptr("klingon")})
		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
		assert.Contains(t, err.Error(), `unsupported language: "klingon"`)
	})

	t.Run("UnsupportedTokenizer", func(t *testing.T) {
		for _, name := range []string{"icu", "ngram", "simpel"} {
			_, err := Resolve(FTSParams{BaseTokenizer: Ptr(name)})
			assert.ErrorIs(t, err, errs.ErrInvalidInput, name)
		}

		got, err := Resolve(FTSParams{BaseTokenizer: Ptr(" Whitespace ")})
		require.NoError(t, err)
		assert.Equal(t, TokenizerWhitespace, got.(FTS).BaseTokenizer)
	})

	t.Run("Raw", func(t *testing.T) {
		got, err := Resolve(RawDescriptor{
			Type:   "FTS",
			Params: []byte(`{"language":"French","stem":true,"max_token_length":20}`),
		})
		require.NoError(t, err)
		fts := got.(FTS)
		assert.Equal(t, "French", fts.Language)
		assert.True(t, fts.Stem)
		assert.Equal(t, 20, *fts.MaxTokenLength)
	})

	t.Run("RawNullTokenLengthIsUnlimited", func(t *testing.T) {
		got, err := Resolve(RawDescriptor{Type: "FTS", Params: []byte(`{"max_token_length":null}`)})
		require.NoError(t, err)
		assert.Nil(t, got.(FTS).MaxTokenLength)

		got, err = Resolve(RawDescriptor{Type: "FTS", Params: []byte(`{"stem":true}`)})
		require.NoError(t, err)
		assert.Equal(t, Ptr(40), got.(FTS).MaxTokenLength)
	})

	t.Run("RoundTripThroughRaw", func(t *testing.T) {
		for _, want := range []FTS{
			{BaseTokenizer: "simple", Language: "English", LowerCase: true},
			{WithPosition: true, BaseTokenizer: "raw", Language: "Dutch", MaxTokenLength: Ptr(8), Stem: true},
		} {
			params, err := Marshal(want)
			require.NoError(t, err)
			got, err := Resolve(RawDescriptor{Type: "FTS", Params: params})
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	})
}

func TestResolve_IvfPq(t *testing.T) {
	t.Run("PartitionsLeftUnset", func(t *testing.T) {
		got, err := Resolve(IvfPqParams{})
		require.NoError(t, err)
		assert.Equal(t, IvfPq{
			DistanceType:  distance.L2,
			NumBits:       8,
			MaxIterations: 50,
			SampleRate:    256,
		}, got)
	})

	t.Run("FieldsPreserved", func(t *testing.T) {
		got, err := Resolve(IvfPqParams{
			DistanceType:  Ptr("Cosine"),
			NumPartitions: Ptr[uint32](256),
			NumSubVectors: Ptr[uint32](16),
			NumBits:       Ptr[uint32](4),
			MaxIterations: Ptr[uint32](10),
			SampleRate:    Ptr[uint32](128),
		})
		require.NoError(t, err)
		assert.Equal(t, IvfPq{
			DistanceType:  distance.Cosine,
			NumPartitions: Ptr[uint32](256),
			NumSubVectors: Ptr[uint32](16),
			NumBits:       4,
			MaxIterations: 10,
			SampleRate:    128,
		}, got)
	})

	t.Run("BadDistance", func(t *testing.T) {
		_, err := Resolve(IvfPqParams{DistanceType: Ptr("manhattan")})
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("RawUnknownField", func(t *testing.T) {
		_, err := Resolve(RawDescriptor{Type: "IvfPq", Params: []byte(`{"num_partitionz": 4}`)})
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	})

	t.Run("RawWrongType", func(t *testing.T) {
		_, err := Resolve(RawDescriptor{Type: "IvfPq", Params: []byte(`{"num_bits": "eight"}`)})
		assert.ErrorIs(t, err, errs.ErrInvalidInput)
	})
}

func TestResolve_HnswPq(t *testing.T) {
	got, err := Resolve(RawDescriptor{
		Type:   "lancedb.index.HnswPq",
		Params: []byte(`{"distance_type":"dot","m":32,"ef_construction":150}`),
	})
	require.NoError(t, err)
	assert.Equal(t, IvfHnswPq{
		DistanceType:   distance.Dot,
		NumBits:        8,
		MaxIterations:  50,
		SampleRate:     256,
		NumEdges:       32,
		EfConstruction: 150,
	}, got)
	assert.Nil(t, got.(IvfHnswPq).NumPartitions)
	assert.Nil(t, got.(IvfHnswPq).NumSubVectors)
}

func TestResolve_HnswSq(t *testing.T) {
	got, err := Resolve(HnswSqParams{NumPartitions: Ptr[uint32](8)})
	require.NoError(t, err)
	assert.Equal(t, IvfHnswSq{
		DistanceType:   distance.L2,
		NumPartitions:  Ptr[uint32](8),
		MaxIterations:  50,
		SampleRate:     256,
		NumEdges:       20,
		EfConstruction: 300,
	}, got)

	_, err = Resolve(RawDescriptor{Type: "HnswSq", Params: []byte(`{"num_bits": 8}`)})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestResolve_UnknownKind(t *testing.T) {
	_, err := Resolve(RawDescriptor{Type: "Foo"})
	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
	for _, kind := range []string{"'Foo'", "BTree", "Bitmap", "LabelList", "FTS", "IvfPq", "HnswPq", "HnswSq"} {
		assert.Contains(t, err.Error(), kind)
	}
}

type foreignDescriptor struct{}

func (foreignDescriptor) Kind() string { return "pkg.IvfPq" }

func TestResolve_ForeignType(t *testing.T) {
	_, err := Resolve(foreignDescriptor{})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestForColumn(t *testing.T) {
	vec := arrow.FixedSizeListOf(4, arrow.PrimitiveTypes.Float32)
	bits := arrow.FixedSizeListOf(16, arrow.PrimitiveTypes.Uint8)

	idx, err := ForColumn(Auto{}, vec)
	require.NoError(t, err)
	assert.Equal(t, TypeIvfPq, idx.Type())
	dt, _ := DistanceOf(idx)
	assert.Equal(t, distance.L2, dt)

	idx, err = ForColumn(Auto{}, bits)
	require.NoError(t, err)
	dt, _ = DistanceOf(idx)
	assert.Equal(t, distance.Hamming, dt)

	idx, err = ForColumn(Auto{}, arrow.BinaryTypes.String)
	require.NoError(t, err)
	assert.Equal(t, BTree{}, idx)

	idx, err = ForColumn(Bitmap{}, vec)
	require.NoError(t, err)
	assert.Equal(t, Bitmap{}, idx)
}
