package service

import (
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/pkg/random"
)

type ProgramService interface {
	Move(game *entity.GameState) uint32
}

type programService struct {
	random random.Source
}

func NewProgramService(source random.Source) ProgramService {
	return &programService{
		random: source,
	}
}

// Move returns how many pebbles the Program removes from the pile.
// The result is never more than the pebbles left.
func (that *programService) Move(game *entity.GameState) uint32 {
	var pebbles uint32

	switch game.Difficulty {
	case entity.DifficultyHard:
		pebbles = hardMove(game.PebblesRemaining, game.MaxPebblesPerTurn)
	default:
		pebbles = that.easyMove(game.MaxPebblesPerTurn)
	}

	return min(pebbles, game.PebblesRemaining)
}

func (that *programService) easyMove(maxPerTurn uint32) uint32 {
	return that.random.Uint32()%maxPerTurn + 1
}

// hardMove leaves the pile at a multiple of max+1, which is a losing position for the opponent.
// From a losing position it takes the maximum.
func hardMove(remaining, maxPerTurn uint32) uint32 {
	target := maxPerTurn + 1

	if remainder := remaining % target; remainder != 0 {
		return remainder
	}

	return maxPerTurn
}
