package repositories

import (
	"context"
	"log/slog"

	"github.com/myrjola/guesswho/internal/models"
	"github.com/myrjola/guesswho/internal/sqlite"
)

type QuestionRepository struct {
	db     *sqlite.Database
	logger *slog.Logger
}

func NewQuestionRepository(db *sqlite.Database, logger *slog.Logger) *QuestionRepository {
	return &QuestionRepository{
		db:     db,
		logger: logger.With("source", "QuestionRepository"),
	}
}

const questionColumns = `id, category_id, prompt, attribute_path, attribute_value, position`

// ListCatalog returns all categories with their questions in catalog order.
func (r *QuestionRepository) ListCatalog(ctx context.Context) ([]models.QuestionCategory, error) {
	var categories []models.QuestionCategory
	if err := r.db.ReadOnly.SelectContext(ctx, &categories,
		`SELECT id, name, position FROM question_categories ORDER BY position, id`); err != nil {
		return nil, classify(err, "list categories")
	}
	var questions []models.Question
	if err := r.db.ReadOnly.SelectContext(ctx, &questions,
		`SELECT `+questionColumns+` FROM questions ORDER BY category_id, position, id`); err != nil {
		return nil, classify(err, "list questions")
	}

	byCategory := make(map[string][]models.Question, len(categories))
	for _, q := range questions {
		byCategory[q.CategoryID] = append(byCategory[q.CategoryID], q)
	}
	for i := range categories {
		categories[i].Questions = byCategory[categories[i].ID]
	}
	return categories, nil
}

func (r *QuestionRepository) Get(ctx context.Context, id string) (models.Question, error) {
	var q models.Question
	if err := r.db.ReadOnly.GetContext(ctx, &q, `SELECT `+questionColumns+` FROM questions WHERE id = ?`, id); err != nil {
		return models.Question{}, classify(err, "get question", slog.String("question_id", id))
	}
	return q, nil
}

func (r *QuestionRepository) UpsertCategory(ctx context.Context, c models.QuestionCategory) error {
	stmt := `INSERT INTO question_categories (id, name, position)
VALUES (:id, :name, :position)
ON CONFLICT (id) DO UPDATE SET name = excluded.name, position = excluded.position`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, c); err != nil {
		return classify(err, "upsert category", slog.String("category_id", c.ID))
	}
	return nil
}

func (r *QuestionRepository) UpsertQuestion(ctx context.Context, q models.Question) error {
	stmt := `INSERT INTO questions (` + questionColumns + `)
VALUES (:id, :category_id, :prompt, :attribute_path, :attribute_value, :position)
ON CONFLICT (id) DO UPDATE SET category_id     = excluded.category_id,
                               prompt          = excluded.prompt,
                               attribute_path  = excluded.attribute_path,
                               attribute_value = excluded.attribute_value,
                               position        = excluded.position`
	if _, err := r.db.ReadWrite.NamedExecContext(ctx, stmt, q); err != nil {
		return classify(err, "upsert question", slog.String("question_id", q.ID))
	}
	return nil
}
