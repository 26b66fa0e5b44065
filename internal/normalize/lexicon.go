package normalize

import (
	"embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon/*.yaml
var lexiconFS embed.FS

// TermList is the YAML shape shared by the stop-word and root lexicons.
type TermList struct {
	Terms []string `yaml:"terms"`
}

func parseTerms(data []byte) ([]string, error) {
	var tl TermList
	if err := yaml.Unmarshal(data, &tl); err != nil {
		return nil, err
	}
	terms := make([]string, 0, len(tl.Terms))
	for _, t := range tl.Terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			terms = append(terms, t)
		}
	}
	return terms, nil
}

func embeddedTerms(name string) ([]string, error) {
	data, err := lexiconFS.ReadFile("lexicon/" + name)
	if err != nil {
		return nil, fmt.Errorf("reading lexicon %s: %w", name, err)
	}
	terms, err := parseTerms(data)
	if err != nil {
		return nil, fmt.Errorf("parsing lexicon %s: %w", name, err)
	}
	return terms, nil
}

// LoadTermsFile reads a `terms:` YAML file, e.g. a user stop-word extension.
func LoadTermsFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	terms, err := parseTerms(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return terms, nil
}

// DefaultStopwords returns the embedded Indonesian stop-word list.
func DefaultStopwords() []string {
	terms, err := embeddedTerms("stopwords.yaml")
	if err != nil {
		panic(err)
	}
	return terms
}

// DefaultRoots returns the embedded Indonesian root lexicon.
func DefaultRoots() []string {
	terms, err := embeddedTerms("roots.yaml")
	if err != nil {
		panic(err)
	}
	return terms
}
