package corpus

import (
	"embed"
	"errors"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

//go:embed seed/news.yaml
var seedFS embed.FS

// LabeledInput is a document with a caller-supplied category, as accepted by
// AddLabeled and Import and as read from YAML import files.
type LabeledInput struct {
	Title string `yaml:"title" json:"title"`
	Body  string `yaml:"body" json:"body"`
	Label string `yaml:"category" json:"category"`
}

// LoadLabeled parses a YAML sequence of {title, body, category} entries.
func LoadLabeled(r io.Reader) ([]LabeledInput, error) {
	var items []LabeledInput
	if err := yaml.NewDecoder(r).Decode(&items); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		return nil, fmt.Errorf("decoding labeled documents: %w", err)
	}
	return items, nil
}

// SeedDocuments returns the embedded seed corpus.
func SeedDocuments() ([]LabeledInput, error) {
	f, err := seedFS.Open("seed/news.yaml")
	if err != nil {
		return nil, fmt.Errorf("opening seed corpus: %w", err)
	}
	defer f.Close()
	return LoadLabeled(f)
}
