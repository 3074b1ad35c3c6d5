package index

import (
	"strings"

	"github.com/hupe1980/vectable/errs"
)

// Base tokenizers of full-text indexes.
const (
	TokenizerSimple     = "simple"
	TokenizerWhitespace = "whitespace"
	TokenizerRaw        = "raw"
)

// Languages lists the tokenizer languages, in canonical spelling.
// Each has a snowball stemmer and a stop-word list.
var Languages = []string{
	"Danish",
	"Dutch",
	"English",
	"Finnish",
	"French",
	"German",
	"Hungarian",
	"Italian",
	"Norwegian",
	"Portuguese",
	"Romanian",
	"Russian",
	"Spanish",
	"Swedish",
	"Turkish",
}

// LookupLanguage resolves a language name case-insensitively to its
// canonical spelling.
func LookupLanguage(name string) (string, bool) {
	name = strings.TrimSpace(name)
	for _, l := range Languages {
		if strings.EqualFold(l, name) {
			return l, true
		}
	}
	return "", false
}

func resolveFTS(p FTSParams) (FTS, error) {
	lang := valueOr(p.Language, DefaultLanguage)
	canonical, ok := LookupLanguage(lang)
	if !ok {
		return FTS{}, errs.InvalidInput("unsupported language: %q", lang)
	}

	tokenizer := strings.ToLower(strings.TrimSpace(valueOr(p.BaseTokenizer, DefaultBaseTokenizer)))
	switch tokenizer {
	case TokenizerSimple, TokenizerWhitespace, TokenizerRaw:
	default:
		return FTS{}, errs.InvalidInput("unsupported base tokenizer: %q", valueOr(p.BaseTokenizer, ""))
	}

	var maxLen *int
	switch n := valueOr(p.MaxTokenLength, DefaultMaxTokenLength); {
	case n < 0:
		return FTS{}, errs.InvalidInput("max_token_length must not be negative, got %d", n)
	case n > 0:
		maxLen = &n
	}

	return FTS{
		WithPosition:    valueOr(p.WithPosition, defaultWithPosition),
		BaseTokenizer:   tokenizer,
		Language:        canonical,
		MaxTokenLength:  maxLen,
		LowerCase:       valueOr(p.LowerCase, defaultLowerCase),
		Stem:            valueOr(p.Stem, defaultStem),
		RemoveStopWords: valueOr(p.RemoveStopWords, defaultRemoveStopWords),
		ASCIIFolding:    valueOr(p.ASCIIFolding, defaultASCIIFolding),
	}, nil
}
