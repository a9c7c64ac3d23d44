package nlu

import (
	"fmt"
	"os"

	"github.com/room4-2/dinedialog/catalog"
	"github.com/room4-2/dinedialog/dialog"
)

// NewCatalogClassifier returns the built-in keyword classifier with every
// catalog value and secondary keyword registered as an inform cue. rulesPath,
// when set, names a file of extra "act utterance" lines.
func NewCatalogClassifier(cat *catalog.Catalog, rulesPath string) (*KeywordClassifier, error) {
	c := NewKeywordClassifier()
	if rulesPath != "" {
		f, err := os.Open(rulesPath)
		if err != nil {
			return nil, fmt.Errorf("open classifier rules: %w", err)
		}
		defer f.Close()
		if err := c.Train(f); err != nil {
			return nil, fmt.Errorf("classifier rules %s: %w", rulesPath, err)
		}
	}

	c.WithInformCues(VocabularyOf(cat).Values()...)
	for _, attr := range dialog.SecondaryPriority {
		c.WithInformCues(string(attr))
	}
	return c, nil
}

// NewCatalogExtractor returns an extractor over the catalog's vocabulary.
func NewCatalogExtractor(cat *catalog.Catalog) *Extractor {
	return NewExtractor(VocabularyOf(cat))
}
