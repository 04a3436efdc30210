package apperror

import "errors"

var (
	ErrGameNotInitialized = errors.New("game is not initialized")
	ErrGameFinished       = errors.New("game is already finished")
	ErrInvalidPebbles     = errors.New("invalid number of pebbles")
	ErrNotEnoughPebbles   = errors.New("not enough pebbles in the pile")
	ErrInvalidGameParams  = errors.New("invalid game parameters")
	ErrInvalidDifficulty  = errors.New("unknown difficulty level")
	ErrUnknownAction      = errors.New("unknown action")
	ErrCorruptedState     = errors.New("game state is corrupted")
)
