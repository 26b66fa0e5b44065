package normalize

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// Words shorter than this are never stemmed.
	minStemmable = 4
	// No affix is removed if it would leave fewer runes than this.
	minRoot = 3
	// Maximum number of stacked prefixes (e.g. di-per-, me-per-, ke-ber-).
	maxPrefixes = 3
)

var (
	particles    = []string{"lah", "kah", "tah", "pun"}
	possessives  = []string{"nya", "ku", "mu"}
	derivational = []string{"kan", "an", "i"}
)

// Stemmer reduces Indonesian words to their root by removing inflectional
// and derivational affixes. Derivational stripping is only accepted when it
// lands on a word in the root lexicon; otherwise only particles and
// possessive pronouns are removed.
type Stemmer struct {
	roots map[string]struct{}
}

func NewStemmer(roots []string) *Stemmer {
	m := make(map[string]struct{}, len(roots))
	for _, r := range roots {
		m[strings.ToLower(r)] = struct{}{}
	}
	return &Stemmer{roots: m}
}

// IsRoot reports whether w is in the root lexicon.
func (s *Stemmer) IsRoot(w string) bool {
	_, ok := s.roots[w]
	return ok
}

// Stem returns the root of a lower-cased word. The result is a fixpoint:
// Stem(Stem(w)) == Stem(w).
func (s *Stemmer) Stem(word string) string {
	for {
		next := s.step(word)
		if next == word {
			return word
		}
		word = next
	}
}

func (s *Stemmer) step(w string) string {
	if utf8.RuneCountInString(w) < minStemmable || s.IsRoot(w) || hasDigit(w) {
		return w
	}
	if root, ok := s.derive(w); ok {
		return root
	}
	if b, ok := trimAny(w, particles); ok {
		return b
	}
	if b, ok := trimAny(w, possessives); ok {
		return b
	}
	return w
}

// derive tries every suffix-stripped base, then prefix chains on each base,
// and returns the first candidate found in the root lexicon.
func (s *Stemmer) derive(w string) (string, bool) {
	for _, base := range suffixBases(w) {
		if s.IsRoot(base) {
			return base, true
		}
		if root, ok := s.stripPrefixes(base, 0); ok {
			return root, true
		}
	}
	return "", false
}

func suffixBases(w string) []string {
	bases := []string{w}
	cur := w
	if b, ok := trimAny(cur, particles); ok {
		bases = append(bases, b)
		cur = b
	}
	if b, ok := trimAny(cur, possessives); ok {
		bases = append(bases, b)
		cur = b
	}
	for _, suf := range derivational {
		if b, ok := trimSuffix(cur, suf); ok {
			bases = append(bases, b)
		}
	}
	return bases
}

func (s *Stemmer) stripPrefixes(w string, depth int) (string, bool) {
	if depth >= maxPrefixes {
		return "", false
	}
	for _, cand := range prefixCandidates(w) {
		if s.IsRoot(cand) {
			return cand, true
		}
		if root, ok := s.stripPrefixes(cand, depth+1); ok {
			return root, true
		}
	}
	return "", false
}

// prefixCandidates lists the possible remainders after removing one prefix,
// including nasal recodings such as mem+V -> p+V and meny+V -> s+V.
func prefixCandidates(w string) []string {
	var out []string
	add := func(c string) {
		if utf8.RuneCountInString(c) < minRoot {
			return
		}
		for _, seen := range out {
			if seen == c {
				return
			}
		}
		out = append(out, c)
	}

	for _, p := range []string{"di", "ke", "se"} {
		if rest, ok := strings.CutPrefix(w, p); ok {
			add(rest)
		}
	}

	for _, p := range []string{"ber", "bel", "be", "ter", "te", "per", "pel"} {
		if rest, ok := strings.CutPrefix(w, p); ok {
			add(rest)
		}
	}

	for _, p := range []string{"me", "pe"} {
		rest, ok := strings.CutPrefix(w, p)
		if !ok {
			continue
		}
		switch {
		case strings.HasPrefix(rest, "nge"):
			// menge-/penge- before monosyllabic roots: mengebom -> bom.
			add(rest[3:])
			add(rest[2:])
			if startsWithVowel(rest[2:]) {
				add("k" + rest[2:])
			}
		case strings.HasPrefix(rest, "ng"):
			add(rest[2:])
			if startsWithVowel(rest[2:]) {
				add("k" + rest[2:])
			}
		case strings.HasPrefix(rest, "ny"):
			if startsWithVowel(rest[2:]) {
				add("s" + rest[2:])
			}
			add(rest)
		case strings.HasPrefix(rest, "m"):
			add(rest[1:])
			if startsWithVowel(rest[1:]) {
				add("p" + rest[1:])
				add(rest)
			}
		case strings.HasPrefix(rest, "n"):
			add(rest[1:])
			if startsWithVowel(rest[1:]) {
				add("t" + rest[1:])
				add(rest)
			}
		default:
			add(rest)
		}
	}
	return out
}

func trimAny(w string, suffixes []string) (string, bool) {
	for _, suf := range suffixes {
		if b, ok := trimSuffix(w, suf); ok {
			return b, true
		}
	}
	return w, false
}

func trimSuffix(w, suf string) (string, bool) {
	b, ok := strings.CutSuffix(w, suf)
	if !ok || utf8.RuneCountInString(b) < minRoot {
		return w, false
	}
	return b, true
}

func startsWithVowel(s string) bool {
	if s == "" {
		return false
	}
	switch s[0] {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}

func hasDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
