package gameplay

import (
	"context"
	"log/slog"

	"github.com/myrjola/guesswho/internal/errors"
	"github.com/myrjola/guesswho/internal/game"
	"github.com/myrjola/guesswho/internal/models"
)

// Card is a board member as shown to a player.
type Card struct {
	Member models.Member
	// Eliminated is set when the player has ruled the member out.
	Eliminated bool
}

// View is a game as seen by one of its players. The opponent's target stays hidden until the game is over.
type View struct {
	Game     *game.Game
	Me       models.Member
	Opponent models.Member
	// MyTarget is the member the opponent has to find. Nil until picked.
	MyTarget *models.Member
	// OpponentTarget is revealed once the game is over.
	OpponentTarget *models.Member
	// Board is the player's board. Eliminations refer to the search for the opponent's target.
	Board             []Card
	Remaining         int
	OpponentRemaining int
	// Questions are the catalog questions that split the player's remaining board evenly enough.
	Questions []game.CategoryQuestions
	Moves     []models.Move
	Chat      []models.ChatMessage
	// Names maps the players and board members to their display names.
	Names map[string]string
}

// MyTurn reports whether the player may ask or guess now.
func (v View) MyTurn() bool {
	return v.Game.Status == game.StatusActive && v.Game.CurrentTurn == v.Me.ID
}

// NeedsTarget reports whether the player still has to pick a target.
func (v View) NeedsTarget() bool {
	return v.Game.Status == game.StatusWaiting && v.MyTarget == nil
}

// Won reports whether the player won the game.
func (v View) Won() bool {
	return v.Game.Status == game.StatusCompleted && v.Game.Winner == v.Me.ID
}

// Lost reports whether the opponent won the game.
func (v View) Lost() bool {
	return v.Game.Status == game.StatusCompleted && v.Game.Winner == v.Opponent.ID
}

// View assembles the game as seen by memberID. Members not playing in the game get a not found error.
func (s *Service) View(ctx context.Context, memberID, gameID string) (View, error) {
	g, err := s.loadAsPlayer(ctx, memberID, gameID)
	if err != nil {
		return View{}, err
	}
	opponentID, err := g.Opponent(memberID)
	if err != nil {
		return View{}, err
	}

	profileIDs := append([]string{memberID, opponentID}, g.Board...)
	members, err := s.members.ListByIDs(ctx, profileIDs)
	if err != nil {
		return View{}, errors.Wrap(err, "load members", slog.String("game_id", gameID))
	}
	moves, err := s.games.ListMoves(ctx, gameID)
	if err != nil {
		return View{}, errors.Wrap(err, "load moves", slog.String("game_id", gameID))
	}
	chat, err := s.chat.List(ctx, gameID)
	if err != nil {
		return View{}, errors.Wrap(err, "load chat", slog.String("game_id", gameID))
	}

	v := View{
		Game:              g,
		Me:                members[memberID],
		Opponent:          members[opponentID],
		MyTarget:          nil,
		OpponentTarget:    nil,
		Board:             make([]Card, 0, len(g.Board)),
		Remaining:         0,
		OpponentRemaining: len(g.Remaining(memberID)),
		Questions:         nil,
		Moves:             moves,
		Chat:              chat,
		Names:             make(map[string]string, len(members)),
	}
	for id, m := range members {
		v.Names[id] = m.DisplayName
	}
	if targetID, ok := g.Targets[memberID]; ok {
		target := members[targetID]
		v.MyTarget = &target
	}
	if targetID, ok := g.Targets[opponentID]; ok && g.Status.Terminal() {
		target := members[targetID]
		v.OpponentTarget = &target
	}

	var remaining []models.Member
	for _, id := range g.Board {
		card := Card{Member: members[id], Eliminated: g.IsEliminated(opponentID, id)}
		v.Board = append(v.Board, card)
		if !card.Eliminated {
			remaining = append(remaining, card.Member)
		}
	}
	v.Remaining = len(remaining)

	if g.Status == game.StatusActive {
		categories, err := s.questions.ListCatalog(ctx)
		if err != nil {
			return View{}, errors.Wrap(err, "load catalog")
		}
		v.Questions = game.RelevantQuestions(categories, remaining)
	}
	return v, nil
}
