package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/index"
)

func tokenizer(t *testing.T, p index.FTSParams) *Tokenizer {
	t.Helper()
	idx, err := index.Resolve(p)
	require.NoError(t, err)
	tok, err := NewTokenizer(idx.(index.FTS))
	require.NoError(t, err)
	return tok
}

func TestTokenizeDefaults(t *testing.T) {
	tok := tokenizer(t, index.FTSParams{})

	got := tok.Tokenize("Hello, World! 42x")
	assert.Equal(t, []Token{{"hello", 0}, {"world", 1}, {"42x", 2}}, got)
}

func TestTokenizeBaseTokenizers(t *testing.T) {
	ws := tokenizer(t, index.FTSParams{BaseTokenizer: index.Ptr("whitespace"), LowerCase: index.Ptr(false)})
	assert.Equal(t, []string{"Hello,", "World!"}, ws.Terms("Hello, World!"))

	raw := tokenizer(t, index.FTSParams{BaseTokenizer: index.Ptr("raw")})
	assert.Equal(t, []string{"hello, world!"}, raw.Terms("Hello, World!"))
	assert.Empty(t, raw.Terms(""))
}

func TestTokenizeFilters(t *testing.T) {
	tok := tokenizer(t, index.FTSParams{
		MaxTokenLength:  index.Ptr(7),
		Stem:            index.Ptr(true),
		RemoveStopWords: index.Ptr(true),
		ASCIIFolding:    index.Ptr(true),
	})

	got := tok.Tokenize("The café owners are extraordinarily running")
	assert.Equal(t, []Token{{"cafe", 1}, {"owner", 2}, {"run", 5}}, got)
}

func TestTokenizeGermanStemming(t *testing.T) {
	tok := tokenizer(t, index.FTSParams{Language: index.Ptr("german"), Stem: index.Ptr(true), RemoveStopWords: index.Ptr(true)})

	assert.Equal(t, []string{"katz"}, tok.Terms("die Katzen"))
}

func TestNewTokenizerRejectsUnknownLanguage(t *testing.T) {
	_, err := NewTokenizer(index.FTS{BaseTokenizer: "simple", Language: "Klingon"})
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestFold(t *testing.T) {
	assert.Equal(t, "creme brulee", fold("crème brûlée"))
}
