// Package lexical turns text into index terms for full-text search.
//
// A Tokenizer is configured from an index.FTS variant: a base tokenizer splits
// the text, then tokens are filtered by length, lower-cased, stripped of stop
// words, stemmed and ASCII-folded, in that order, as enabled.
package lexical

import (
	"strings"
	"unicode"

	"github.com/blevesearch/snowballstem"
	"github.com/blevesearch/snowballstem/danish"
	"github.com/blevesearch/snowballstem/dutch"
	"github.com/blevesearch/snowballstem/english"
	"github.com/blevesearch/snowballstem/finnish"
	"github.com/blevesearch/snowballstem/french"
	"github.com/blevesearch/snowballstem/german"
	"github.com/blevesearch/snowballstem/hungarian"
	"github.com/blevesearch/snowballstem/italian"
	"github.com/blevesearch/snowballstem/norwegian"
	"github.com/blevesearch/snowballstem/portuguese"
	"github.com/blevesearch/snowballstem/romanian"
	"github.com/blevesearch/snowballstem/russian"
	"github.com/blevesearch/snowballstem/spanish"
	"github.com/blevesearch/snowballstem/swedish"
	"github.com/blevesearch/snowballstem/turkish"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/hupe1980/vectable/errs"
	"github.com/hupe1980/vectable/index"
)

var stemmers = map[string]func(*snowballstem.Env) bool{
	"Danish":     danish.Stem,
	"Dutch":      dutch.Stem,
	"English":    english.Stem,
	"Finnish":    finnish.Stem,
	"French":     french.Stem,
	"German":     german.Stem,
	"Hungarian":  hungarian.Stem,
	"Italian":    italian.Stem,
	"Norwegian":  norwegian.Stem,
	"Portuguese": portuguese.Stem,
	"Romanian":   romanian.Stem,
	"Russian":    russian.Stem,
	"Spanish":    spanish.Stem,
	"Swedish":    swedish.Stem,
	"Turkish":    turkish.Stem,
}

// Token is one term and its position in the token stream.
type Token struct {
	Text     string
	Position int
}

// Tokenizer splits and normalizes text. It is safe for concurrent use.
type Tokenizer struct {
	cfg       index.FTS
	maxLen    int
	stem      func(*snowballstem.Env) bool
	stopWords map[string]struct{}
}

// NewTokenizer builds the tokenizer described by cfg.
func NewTokenizer(cfg index.FTS) (*Tokenizer, error) {
	lang, ok := index.LookupLanguage(cfg.Language)
	if !ok {
		return nil, errs.InvalidInput("unsupported language: %q", cfg.Language)
	}
	switch cfg.BaseTokenizer {
	case index.TokenizerSimple, index.TokenizerWhitespace, index.TokenizerRaw:
	default:
		return nil, errs.InvalidInput("unsupported base tokenizer: %q", cfg.BaseTokenizer)
	}

	t := &Tokenizer{cfg: cfg}
	if cfg.MaxTokenLength != nil {
		t.maxLen = *cfg.MaxTokenLength
	}
	if cfg.Stem {
		t.stem = stemmers[lang]
	}
	if cfg.RemoveStopWords {
		t.stopWords = stopWords[lang]
	}
	return t, nil
}

// Tokenize returns the terms of text.
func (t *Tokenizer) Tokenize(text string) []Token {
	var out []Token
	for pos, word := range t.split(text) {
		if t.maxLen > 0 && len(word) > t.maxLen {
			continue
		}
		if t.cfg.LowerCase {
			word = strings.ToLower(word)
		}
		if _, stop := t.stopWords[strings.ToLower(word)]; stop {
			continue
		}
		if t.stem != nil {
			env := snowballstem.NewEnv(word)
			t.stem(env)
			word = env.Current()
		}
		if t.cfg.ASCIIFolding {
			word = fold(word)
		}
		if word == "" {
			continue
		}
		out = append(out, Token{Text: word, Position: pos})
	}
	return out
}

// Terms returns the term texts of text.
func (t *Tokenizer) Terms(text string) []string {
	tokens := t.Tokenize(text)
	terms := make([]string, len(tokens))
	for i, tok := range tokens {
		terms[i] = tok.Text
	}
	return terms
}

func (t *Tokenizer) split(text string) []string {
	switch t.cfg.BaseTokenizer {
	case index.TokenizerRaw:
		if text == "" {
			return nil
		}
		return []string{text}
	case index.TokenizerWhitespace:
		return strings.Fields(text)
	default:
		return strings.FieldsFunc(text, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
	}
}

// fold strips diacritics: "café" becomes "cafe".
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
