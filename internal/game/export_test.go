package game

import "github.com/myrjola/guesswho/internal/models"

func YesFraction(question models.Question, board []models.Member) float64 {
	return yesFraction(question, attributeTrees(board))
}
