package entity

import (
	"fmt"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
)

// DifficultyLevel selects the Program's move strategy.
type DifficultyLevel string

const (
	DifficultyEasy DifficultyLevel = "easy"
	DifficultyHard DifficultyLevel = "hard"
)

func (that DifficultyLevel) IsValid() bool {
	return that == DifficultyEasy || that == DifficultyHard
}

// InitParams holds everything needed to start (or restart) a game.
type InitParams struct {
	PebblesCount      uint32          `json:"pebbles_count"`
	MaxPebblesPerTurn uint32          `json:"max_pebbles_per_turn"`
	Difficulty        DifficultyLevel `json:"difficulty"`
}

func (that InitParams) Validate() error {
	switch {
	case that.PebblesCount == 0:
		return fmt.Errorf("%w: pebbles count must be greater than 0", apperror.ErrInvalidGameParams)
	case that.MaxPebblesPerTurn == 0:
		return fmt.Errorf("%w: max pebbles per turn must be greater than 0", apperror.ErrInvalidGameParams)
	case that.MaxPebblesPerTurn > that.PebblesCount:
		return fmt.Errorf("%w: max pebbles per turn %d exceeds pebbles count %d",
			apperror.ErrInvalidGameParams, that.MaxPebblesPerTurn, that.PebblesCount)
	case !that.Difficulty.IsValid():
		return fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, that.Difficulty)
	}

	return nil
}

type GameState struct {
	PebblesCount      uint32          `json:"pebbles_count"`
	MaxPebblesPerTurn uint32          `json:"max_pebbles_per_turn"`
	PebblesRemaining  uint32          `json:"pebbles_remaining"`
	Difficulty        DifficultyLevel `json:"difficulty"`
	FirstPlayer       Player          `json:"first_player"`
	Winner            *Player         `json:"winner"`
}

// NewGameState builds a fresh game. The params must already be validated.
func NewGameState(params InitParams, firstPlayer Player) *GameState {
	return &GameState{
		PebblesCount:      params.PebblesCount,
		MaxPebblesPerTurn: params.MaxPebblesPerTurn,
		PebblesRemaining:  params.PebblesCount,
		Difficulty:        params.Difficulty,
		FirstPlayer:       firstPlayer,
	}
}

func (that *GameState) Params() InitParams {
	return InitParams{
		PebblesCount:      that.PebblesCount,
		MaxPebblesPerTurn: that.MaxPebblesPerTurn,
		Difficulty:        that.Difficulty,
	}
}

func (that *GameState) IsFinished() bool {
	return that.Winner != nil
}

// Take removes pebbles from the pile and declares the taker the winner when the pile is empty.
// It reports whether the game is over.
func (that *GameState) Take(player Player, pebbles uint32) bool {
	that.PebblesRemaining -= pebbles

	if that.PebblesRemaining == 0 {
		that.Winner = PlayerPtr(player)
		return true
	}

	return false
}

// Concede ends the game in favour of the opponent of the conceding player.
func (that *GameState) Concede(player Player) {
	if player == PlayerUser {
		that.Winner = PlayerPtr(PlayerProgram)
		return
	}
	that.Winner = PlayerPtr(PlayerUser)
}

func (that *GameState) Clone() *GameState {
	clone := *that
	if that.Winner != nil {
		clone.Winner = PlayerPtr(*that.Winner)
	}
	return &clone
}

// Validate checks the invariants of a state loaded from outside the engine.
func (that *GameState) Validate() error {
	if err := that.Params().Validate(); err != nil {
		return fmt.Errorf("%w: %v", apperror.ErrCorruptedState, err)
	}

	if that.PebblesRemaining > that.PebblesCount {
		return fmt.Errorf("%w: %d pebbles remaining out of %d", apperror.ErrCorruptedState, that.PebblesRemaining, that.PebblesCount)
	}

	if !that.FirstPlayer.IsValid() {
		return fmt.Errorf("%w: unknown first player %q", apperror.ErrCorruptedState, that.FirstPlayer)
	}

	if that.Winner != nil && !that.Winner.IsValid() {
		return fmt.Errorf("%w: unknown winner %q", apperror.ErrCorruptedState, *that.Winner)
	}

	// only the Program can win before the pile is empty, when the User gives up
	if that.Winner != nil && *that.Winner == PlayerUser && that.PebblesRemaining > 0 {
		return fmt.Errorf("%w: user won with %d pebbles left", apperror.ErrCorruptedState, that.PebblesRemaining)
	}

	// an empty pile always has a winner
	if that.PebblesRemaining == 0 && that.Winner == nil {
		return fmt.Errorf("%w: empty pile without a winner", apperror.ErrCorruptedState)
	}

	return nil
}
