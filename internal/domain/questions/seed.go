package questions

import (
	"context"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/okian/codevoice/pkg/logger"
)

// File is the on-disk question bank layout.
type File struct {
	Questions []AddRequest `yaml:"questions"`
}

// LoadFile reads a question bank file.
func LoadFile(path string) ([]AddRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read question file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse question file %s: %w", path, err)
	}
	return f.Questions, nil
}

// Seed adds every question in path when the bank is empty.
// It returns the number of questions added.
func (b *Bank) Seed(ctx context.Context, path string) (int, error) {
	n, err := b.repo.CountQuestions(ctx)
	if err != nil {
		return 0, fmt.Errorf("seed: %w", err)
	}
	if n > 0 {
		return 0, nil
	}
	entries, err := LoadFile(path)
	if err != nil {
		return 0, err
	}
	for i, e := range entries {
		if _, err := b.Add(ctx, e); err != nil {
			return i, fmt.Errorf("seed entry %d: %w", i, err)
		}
	}
	b.log.Info(ctx, "question bank seeded", logger.Int("count", len(entries)), logger.String("file", path))
	return len(entries), nil
}
