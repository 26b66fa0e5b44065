// Package normalize turns raw Indonesian news text into the canonical token
// stream used for both training and inference.
package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Normalizer lower-cases, tokenizes, removes stop words and stems.
// It is immutable after construction and safe for concurrent use.
type Normalizer struct {
	stopwords map[string]struct{}
	stemmer   *Stemmer
}

type Option func(*options)

type options struct {
	stopwords []string
	roots     []string
}

// WithStopwords adds words to the embedded stop-word list.
func WithStopwords(words ...string) Option {
	return func(o *options) { o.stopwords = append(o.stopwords, words...) }
}

// WithRoots adds words to the embedded root lexicon.
func WithRoots(words ...string) Option {
	return func(o *options) { o.roots = append(o.roots, words...) }
}

func New(opts ...Option) *Normalizer {
	o := options{
		stopwords: DefaultStopwords(),
		roots:     DefaultRoots(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	stops := make(map[string]struct{}, len(o.stopwords))
	for _, w := range o.stopwords {
		stops[strings.ToLower(w)] = struct{}{}
	}
	return &Normalizer{stopwords: stops, stemmer: NewStemmer(o.roots)}
}

// JoinText is the single place a document's title and body become one text.
// Training and inference both go through it.
func JoinText(title, body string) string {
	return title + " " + body
}

// Normalize returns the canonical form of text: stemmed content tokens
// joined by single spaces. Normalize(Normalize(x)) == Normalize(x).
func (n *Normalizer) Normalize(text string) string {
	return strings.Join(n.Tokens(text), " ")
}

// Tokens returns the canonical tokens of text in order.
func (n *Normalizer) Tokens(text string) []string {
	var tokens []string
	var current strings.Builder

	flush := func() {
		if current.Len() == 0 {
			return
		}
		if word := n.processToken(current.String()); word != "" {
			tokens = append(tokens, word)
		}
		current.Reset()
	}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func (n *Normalizer) processToken(word string) string {
	if utf8.RuneCountInString(word) < 2 || isNumericOnly(word) || n.IsStopword(word) {
		return ""
	}
	stem := n.stemmer.Stem(word)
	if utf8.RuneCountInString(stem) < 2 || n.IsStopword(stem) {
		return ""
	}
	return stem
}

func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

// Stem exposes the underlying stemmer.
func (n *Normalizer) Stem(word string) string {
	return n.stemmer.Stem(word)
}

func isNumericOnly(s string) bool {
	for _, r := range s {
		if !unicode.IsNumber(r) {
			return false
		}
	}
	return true
}
