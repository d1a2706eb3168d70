package game

import "github.com/myrjola/guesswho/internal/models"

// A question is only offered when its yes-fraction over the board lies within these bounds (inclusive), so that
// every offered question rules out between a quarter and three quarters of the board.
const (
	MinYesFraction = 0.25
	MaxYesFraction = 0.75
)

// CategoryQuestions is a category together with the questions worth asking about the current board.
type CategoryQuestions struct {
	Category  models.QuestionCategory
	Questions []models.Question
}

// yesFraction is the share of the board, given as attribute trees, for which question resolves to "yes". An empty
// board has fraction 0.
func yesFraction(question models.Question, board []map[string]any) float64 {
	if len(board) == 0 {
		return 0
	}
	yes := 0
	for _, attrs := range board {
		if resolveAttributes(question, attrs) {
			yes++
		}
	}
	return float64(yes) / float64(len(board))
}

func attributeTrees(board []models.Member) []map[string]any {
	trees := make([]map[string]any, len(board))
	for i, member := range board {
		trees[i] = member.Attributes()
	}
	return trees
}

// RelevantQuestions filters the catalog down to the questions that split board into a balanced yes/no partition.
//
// Categories without any relevant question are left out. The order of categories and questions is kept. An empty
// board has no relevant questions.
func RelevantQuestions(categories []models.QuestionCategory, board []models.Member) []CategoryQuestions {
	if len(board) == 0 {
		return nil
	}

	// Attribute trees are built once per member instead of once per question.
	attributes := attributeTrees(board)

	var relevant []CategoryQuestions
	for _, category := range categories {
		var questions []models.Question
		for _, question := range category.Questions {
			if fraction := yesFraction(question, attributes); fraction >= MinYesFraction && fraction <= MaxYesFraction {
				questions = append(questions, question)
			}
		}
		if len(questions) > 0 {
			relevant = append(relevant, CategoryQuestions{Category: category, Questions: questions})
		}
	}
	return relevant
}
