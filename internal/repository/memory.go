package repository

import (
	"context"
	"sync"

	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
)

type memoryGame struct {
	mu    sync.RWMutex
	games map[string]*entity.GameState
}

// NewMemoryGameRepository keeps games in process memory. Games are lost on restart.
func NewMemoryGameRepository() GameRepository {
	return &memoryGame{
		games: make(map[string]*entity.GameState),
	}
}

func (that *memoryGame) CreateOrUpdate(_ context.Context, sessionID string, game *entity.GameState) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	that.games[sessionID] = game.Clone()

	return nil
}

func (that *memoryGame) GetBySessionID(_ context.Context, sessionID string) (*entity.GameState, error) {
	that.mu.RLock()
	defer that.mu.RUnlock()

	game, ok := that.games[sessionID]
	if !ok {
		return nil, ErrGameNotFound
	}

	return game.Clone(), nil
}

func (that *memoryGame) DeleteBySessionID(_ context.Context, sessionID string) error {
	that.mu.Lock()
	defer that.mu.Unlock()

	if _, ok := that.games[sessionID]; !ok {
		return ErrGameNotFound
	}

	delete(that.games, sessionID)

	return nil
}
