package golden

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/quaestio/internal/model"
)

// answerFile is the YAML layout of a curated answer import
type answerFile struct {
	Answers []model.CuratedAnswer `yaml:"answers"`
}

// LoadAnswers reads curated answers from a YAML file
func LoadAnswers(path string) ([]model.CuratedAnswer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curated answers: %w", err)
	}
	return ParseAnswers(data)
}

// ParseAnswers decodes curated answer YAML. Every answer needs an id, a
// question and an answer text; ids must be unique within the file.
func ParseAnswers(data []byte) ([]model.CuratedAnswer, error) {
	var f answerFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse curated answers: %w", err)
	}

	seen := make(map[string]bool, len(f.Answers))
	for i, a := range f.Answers {
		switch {
		case a.ID == "":
			return nil, fmt.Errorf("curated answer %d has no id", i)
		case a.Question == "" || a.Answer == "":
			return nil, fmt.Errorf("curated answer %q needs a question and an answer", a.ID)
		case seen[a.ID]:
			return nil, fmt.Errorf("duplicate curated answer id %q", a.ID)
		}
		seen[a.ID] = true
	}
	return f.Answers, nil
}

// ImportStats counts what an import changed
type ImportStats struct {
	Total     int
	Published int
	Unchanged int
}

// Import upserts answers in file order. Answers whose content is unchanged
// keep their epoch and count as unchanged.
func Import(ctx context.Context, s *SQLiteStore, answers []model.CuratedAnswer) (ImportStats, error) {
	stats := ImportStats{Total: len(answers)}
	for _, a := range answers {
		before, err := s.Epoch(ctx)
		if err != nil {
			return stats, err
		}
		epoch, err := s.Upsert(ctx, a)
		if err != nil {
			return stats, err
		}
		if epoch > before {
			stats.Published++
		} else {
			stats.Unchanged++
		}
	}
	return stats, nil
}
