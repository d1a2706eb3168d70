// Package catalog loads the question catalog from YAML and stores it in the database.
package catalog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	_ "embed"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed questions.yaml
var defaultCatalog []byte

var ErrInvalidCatalog = errors.Wrap(errors.ErrValidation, "invalid question catalog")

type file struct {
	Categories []category `yaml:"categories"`
}

type category struct {
	ID        string     `yaml:"id"`
	Name      string     `yaml:"name"`
	Questions []question `yaml:"questions"`
}

type question struct {
	ID             string  `yaml:"id"`
	Prompt         string  `yaml:"prompt"`
	AttributePath  string  `yaml:"attributePath"`
	AttributeValue *string `yaml:"attributeValue,omitempty"`
}

// flagAttributes answer with their own value, so their questions don't need an attribute value.
var flagAttributes = []string{"gameParticipation"}

// unaskable attributes never answer "yes".
var unaskable = []string{"lastActiveAt"}

// Default returns the catalog embedded in the binary.
func Default() ([]models.QuestionCategory, error) {
	return Parse(defaultCatalog)
}

// Parse decodes and validates a YAML catalog. Positions follow the order in the document.
func Parse(data []byte) ([]models.QuestionCategory, error) {
	var f file
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&f); err != nil {
		return nil, errors.Wrap(fmt.Errorf("%w: %w", ErrInvalidCatalog, err), "decode YAML")
	}

	var (
		categories  = make([]models.QuestionCategory, 0, len(f.Categories))
		categoryIDs = map[string]bool{}
		questionIDs = map[string]bool{}
	)
	for ci, c := range f.Categories {
		if c.ID == "" || c.Name == "" {
			return nil, errors.Wrap(ErrInvalidCatalog, "category needs id and name", slog.Int("index", ci))
		}
		if categoryIDs[c.ID] {
			return nil, errors.Wrap(ErrInvalidCatalog, "duplicate category", slog.String("category_id", c.ID))
		}
		categoryIDs[c.ID] = true

		mc := models.QuestionCategory{ID: c.ID, Name: c.Name, Position: ci, Questions: nil}
		for qi, q := range c.Questions {
			if questionIDs[q.ID] {
				return nil, errors.Wrap(ErrInvalidCatalog, "duplicate question", slog.String("question_id", q.ID))
			}
			questionIDs[q.ID] = true
			mq := models.Question{
				ID:             q.ID,
				CategoryID:     c.ID,
				Prompt:         strings.TrimSpace(q.Prompt),
				AttributePath:  q.AttributePath,
				AttributeValue: q.AttributeValue,
				Position:       qi,
			}
			if err := Validate(mq); err != nil {
				return nil, err
			}
			mc.Questions = append(mc.Questions, mq)
		}
		categories = append(categories, mc)
	}
	return categories, nil
}

// Validate checks that the question can be answered for members.
func Validate(q models.Question) error {
	attrs := []slog.Attr{slog.String("question_id", q.ID)}
	if q.ID == "" {
		return errors.Wrap(ErrInvalidCatalog, "missing question id")
	}
	if strings.TrimSpace(q.Prompt) == "" {
		return errors.Wrap(ErrInvalidCatalog, "missing prompt", attrs...)
	}
	root, _, _ := strings.Cut(q.AttributePath, ".")
	if !slices.Contains(models.AttributeNames, root) {
		return errors.Wrap(ErrInvalidCatalog, "unknown attribute",
			append(attrs, slog.String("attribute_path", q.AttributePath))...)
	}
	if slices.Contains(unaskable, root) {
		return errors.Wrap(ErrInvalidCatalog, "attribute can't be asked about",
			append(attrs, slog.String("attribute_path", q.AttributePath))...)
	}
	if !slices.Contains(flagAttributes, root) && (q.AttributeValue == nil || *q.AttributeValue == "") {
		return errors.Wrap(ErrInvalidCatalog, "missing attribute value", attrs...)
	}
	return nil
}

// Marshal renders categories in the catalog YAML format.
func Marshal(categories []models.QuestionCategory) ([]byte, error) {
	f := file{Categories: make([]category, 0, len(categories))}
	for _, c := range categories {
		fc := category{ID: c.ID, Name: c.Name, Questions: make([]question, 0, len(c.Questions))}
		for _, q := range c.Questions {
			fc.Questions = append(fc.Questions, question{
				ID:             q.ID,
				Prompt:         q.Prompt,
				AttributePath:  q.AttributePath,
				AttributeValue: q.AttributeValue,
			})
		}
		f.Categories = append(f.Categories, fc)
	}
	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2) //nolint:mnd // matches questions.yaml
	if err := encoder.Encode(f); err != nil {
		return nil, errors.Wrap(err, "encode YAML")
	}
	if err := encoder.Close(); err != nil {
		return nil, errors.Wrap(err, "close YAML encoder")
	}
	return buf.Bytes(), nil
}

// Store persists catalog entries.
type Store interface {
	UpsertCategory(ctx context.Context, c models.QuestionCategory) error
	UpsertQuestion(ctx context.Context, q models.Question) error
}

// Import upserts the categories and their questions. Entries missing from categories are kept because past moves
// refer to them.
func Import(ctx context.Context, store Store, categories []models.QuestionCategory) (int, error) {
	imported := 0
	for _, c := range categories {
		if err := store.UpsertCategory(ctx, c); err != nil {
			return imported, errors.Wrap(err, "upsert category", slog.String("category_id", c.ID))
		}
		for _, q := range c.Questions {
			if err := store.UpsertQuestion(ctx, q); err != nil {
				return imported, errors.Wrap(err, "upsert question", slog.String("question_id", q.ID))
			}
			imported++
		}
	}
	return imported, nil
}
