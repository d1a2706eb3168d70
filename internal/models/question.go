package models

// Question asks whether a member's attribute matches.
//
// AttributePath is a dot-separated path into [Member.Attributes]. AttributeValue is the value that answers "yes"
// for text and sequence attributes; boolean attributes answer with their own value. A nil AttributeValue means
// the catalog entry has no value.
type Question struct {
	ID             string  `db:"id"`
	CategoryID     string  `db:"category_id"`
	Prompt         string  `db:"prompt"`
	AttributePath  string  `db:"attribute_path"`
	AttributeValue *string `db:"attribute_value"`
	Position       int     `db:"position"`
}

// QuestionCategory groups questions. Questions keep their catalog order.
type QuestionCategory struct {
	ID        string     `db:"id"`
	Name      string     `db:"name"`
	Position  int        `db:"position"`
	Questions []Question `db:"-"`
}
