// Package pebbles holds the game engine: a single game slot driven by the User's actions,
// with the Program answering every turn.
package pebbles

import (
	"fmt"
	"sync"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/service"
	"github.com/rocketscienceinc/pebbles-backend/pkg/random"
)

type Engine struct {
	mu sync.Mutex

	random  random.Source
	program service.ProgramService

	game *entity.GameState
}

func NewEngine(source random.Source) *Engine {
	return &Engine{
		random:  source,
		program: service.NewProgramService(source),
	}
}

// Initialize starts a new game, replacing the current one.
// The returned event is nil when the User moves first.
func (that *Engine) Initialize(params entity.InitParams) (*entity.Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	game, event, err := that.newGame(params)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize game: %w", err)
	}

	that.game = game

	return event, nil
}

// Apply runs one User action against the current game.
// On error the stored game is left untouched.
func (that *Engine) Apply(action entity.Action) (*entity.Event, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return nil, apperror.ErrGameNotInitialized
	}

	if err := action.Validate(); err != nil {
		return nil, fmt.Errorf("invalid action: %w", err)
	}

	var (
		game  *entity.GameState
		event *entity.Event
		err   error
	)

	switch action.Type {
	case entity.ActionTurn:
		game = that.game.Clone()
		event, err = that.turn(game, action.Pebbles)
	case entity.ActionGiveUp:
		game = that.game.Clone()
		event, err = giveUp(game)
	case entity.ActionRestart:
		game, event, err = that.newGame(action.InitParams)
		if err == nil && event == nil {
			event = entity.CounterTurnEvent(game.PebblesRemaining)
		}
	}

	if err != nil {
		return nil, fmt.Errorf("failed to apply %s: %w", action.Type, err)
	}

	that.game = game

	return event, nil
}

// State returns a copy of the current game.
func (that *Engine) State() (entity.GameState, error) {
	that.mu.Lock()
	defer that.mu.Unlock()

	if that.game == nil {
		return entity.GameState{}, apperror.ErrGameNotInitialized
	}

	return *that.game.Clone(), nil
}

// Restore puts a previously saved game into the slot.
func (that *Engine) Restore(game *entity.GameState) error {
	if game == nil {
		return apperror.ErrGameNotInitialized
	}

	if err := game.Validate(); err != nil {
		return fmt.Errorf("failed to restore game: %w", err)
	}

	that.mu.Lock()
	defer that.mu.Unlock()

	that.game = game.Clone()

	return nil
}

// newGame - builds a game and plays the Program's opening move when it goes first.
func (that *Engine) newGame(params entity.InitParams) (*entity.GameState, *entity.Event, error) {
	if err := params.Validate(); err != nil {
		return nil, nil, err
	}

	firstPlayer := entity.PlayerUser
	if that.random.Uint32()%2 != 0 {
		firstPlayer = entity.PlayerProgram
	}

	game := entity.NewGameState(params, firstPlayer)

	if firstPlayer == entity.PlayerUser {
		return game, nil, nil
	}

	return game, that.counterTurn(game), nil
}

// turn - the User's move followed by the Program's answer.
func (that *Engine) turn(game *entity.GameState, pebbles uint32) (*entity.Event, error) {
	if pebbles == 0 || pebbles > game.MaxPebblesPerTurn {
		return nil, fmt.Errorf("%w: %d, allowed 1..%d", apperror.ErrInvalidPebbles, pebbles, game.MaxPebblesPerTurn)
	}

	if game.IsFinished() {
		return nil, apperror.ErrGameFinished
	}

	if pebbles > game.PebblesRemaining {
		return nil, fmt.Errorf("%w: %d requested, %d left", apperror.ErrNotEnoughPebbles, pebbles, game.PebblesRemaining)
	}

	if game.Take(entity.PlayerUser, pebbles) {
		return entity.WonEvent(entity.PlayerUser), nil
	}

	return that.counterTurn(game), nil
}

func (that *Engine) counterTurn(game *entity.GameState) *entity.Event {
	if game.Take(entity.PlayerProgram, that.program.Move(game)) {
		return entity.WonEvent(entity.PlayerProgram)
	}

	return entity.CounterTurnEvent(game.PebblesRemaining)
}

func giveUp(game *entity.GameState) (*entity.Event, error) {
	if game.IsFinished() {
		return nil, apperror.ErrGameFinished
	}

	game.Concede(entity.PlayerUser)

	return entity.WonEvent(entity.PlayerProgram), nil
}
