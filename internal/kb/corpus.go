package kb

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/quaestio/internal/extract"
	"github.com/ppiankov/quaestio/internal/facts"
	"github.com/ppiankov/quaestio/internal/model"
)

// Corpus is an in-memory knowledge base loaded from YAML
type Corpus struct {
	Epoch   int64            `yaml:"epoch"`
	Entries []model.KBResult `yaml:"entries"`
}

// LoadCorpus reads a corpus file. Entry text is stripped of markup and
// entries without explicit entities get them from fact extraction.
func LoadCorpus(path string) (*Corpus, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read corpus: %w", err)
	}
	return ParseCorpus(data)
}

// ParseCorpus decodes corpus YAML
func ParseCorpus(data []byte) (*Corpus, error) {
	var c Corpus
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse corpus: %w", err)
	}

	seen := make(map[string]bool, len(c.Entries))
	for i := range c.Entries {
		e := &c.Entries[i]
		if e.ID == "" {
			return nil, fmt.Errorf("corpus entry %d has no id", i)
		}
		if seen[e.ID] {
			return nil, fmt.Errorf("duplicate corpus entry id %q", e.ID)
		}
		seen[e.ID] = true

		e.Text = extract.StripHTML(e.Text)
		if len(e.Entities) == 0 {
			e.Entities = entityKeys(facts.Parse(e.Text))
		}
	}

	return &c, nil
}

// NewCorpus wraps entries in a corpus, deriving missing entities
func NewCorpus(epoch int64, entries []model.KBResult) *Corpus {
	c := &Corpus{Epoch: epoch, Entries: make([]model.KBResult, len(entries))}
	copy(c.Entries, entries)
	for i := range c.Entries {
		if len(c.Entries[i].Entities) == 0 {
			c.Entries[i].Entities = entityKeys(facts.Parse(c.Entries[i].Text))
		}
	}
	return c
}

// entityKeys renders facts as "kind=value" keys
func entityKeys(fs []model.AtomicFact) []string {
	keys := make([]string, 0, len(fs))
	seen := make(map[string]bool, len(fs))
	for _, f := range fs {
		k := string(f.Kind) + "=" + f.Value
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	return keys
}

func normalizeEntity(e string) string {
	return strings.ToLower(strings.TrimSpace(e))
}
