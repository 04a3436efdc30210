package entity

import "time"

// GameResult is a finished game as kept in the ledger.
type GameResult struct {
	SessionID         string          `json:"session_id"`
	Winner            Player          `json:"winner"`
	FirstPlayer       Player          `json:"first_player"`
	Difficulty        DifficultyLevel `json:"difficulty"`
	PebblesCount      uint32          `json:"pebbles_count"`
	MaxPebblesPerTurn uint32          `json:"max_pebbles_per_turn"`
	PebblesRemaining  uint32          `json:"pebbles_remaining"`
	FinishedAt        time.Time       `json:"finished_at"`
}

// NewGameResult returns nil for a game that is still in progress.
func NewGameResult(sessionID string, game *GameState, finishedAt time.Time) *GameResult {
	if !game.IsFinished() {
		return nil
	}

	return &GameResult{
		SessionID:         sessionID,
		Winner:            *game.Winner,
		FirstPlayer:       game.FirstPlayer,
		Difficulty:        game.Difficulty,
		PebblesCount:      game.PebblesCount,
		MaxPebblesPerTurn: game.MaxPebblesPerTurn,
		PebblesRemaining:  game.PebblesRemaining,
		FinishedAt:        finishedAt,
	}
}

// Stats is the win/loss tally.
type Stats struct {
	UserWins    int64 `json:"user_wins"`
	ProgramWins int64 `json:"program_wins"`
}

func (that Stats) Total() int64 {
	return that.UserWins + that.ProgramWins
}
