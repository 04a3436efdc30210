package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/repository"
	"github.com/rocketscienceinc/pebbles-backend/internal/telemetry"
	"github.com/rocketscienceinc/pebbles-backend/pkg/random"
)

var (
	errRedisDown    = errors.New("redis down")
	errPostgresDown = errors.New("postgres down")
)

// userFirst gives the User the first move and makes Easy Program moves take 3 out of max 3.
const userFirst = random.Fixed(2)

var easyTen = entity.InitParams{PebblesCount: 10, MaxPebblesPerTurn: 3, Difficulty: entity.DifficultyEasy}

type mockGameRepo struct {
	mock.Mock
}

func newMockGameRepo(t *testing.T) *mockGameRepo {
	m := &mockGameRepo{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (that *mockGameRepo) CreateOrUpdate(ctx context.Context, sessionID string, game *entity.GameState) error {
	args := that.Called(ctx, sessionID, game)
	return args.Error(0)
}

func (that *mockGameRepo) GetBySessionID(ctx context.Context, sessionID string) (*entity.GameState, error) {
	args := that.Called(ctx, sessionID)
	game, _ := args.Get(0).(*entity.GameState)
	return game, args.Error(1)
}

func (that *mockGameRepo) DeleteBySessionID(ctx context.Context, sessionID string) error {
	args := that.Called(ctx, sessionID)
	return args.Error(0)
}

type mockResultRepo struct {
	mock.Mock
}

func newMockResultRepo(t *testing.T) *mockResultRepo {
	m := &mockResultRepo{}
	m.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (that *mockResultRepo) Record(ctx context.Context, result *entity.GameResult) error {
	args := that.Called(ctx, result)
	return args.Error(0)
}

func (that *mockResultRepo) Tally(ctx context.Context, difficulty entity.DifficultyLevel) (*entity.Stats, error) {
	args := that.Called(ctx, difficulty)
	stats, _ := args.Get(0).(*entity.Stats)
	return stats, args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newManager(source random.Source, games gameRepo, results resultRepo) *GameManager {
	return NewGameManager(newTestLogger(), telemetry.NoopTracer(), source, games, results)
}

func TestGameManager_StartGame(t *testing.T) {
	ctx := context.Background()

	t.Run("Saves a fresh game when the User goes first", func(t *testing.T) {
		// Given: a repository expecting the untouched pile
		games := newMockGameRepo(t)
		results := newMockResultRepo(t)
		manager := newManager(userFirst, games, results)

		games.On("CreateOrUpdate", mock.Anything, "s1", mock.MatchedBy(func(game *entity.GameState) bool {
			return game.PebblesRemaining == 10 && game.Winner == nil && game.FirstPlayer == entity.PlayerUser
		})).Return(nil).Once()

		// When: starting a game
		view, err := manager.StartGame(ctx, "s1", easyTen)

		// Then: the view carries the game and no event
		require.NoError(t, err)
		assert.Equal(t, "s1", view.SessionID)
		assert.Nil(t, view.Event)
		assert.Equal(t, uint32(10), view.Game.PebblesRemaining)
	})

	t.Run("Records a game the Program wins with its opening move", func(t *testing.T) {
		games := newMockGameRepo(t)
		results := newMockResultRepo(t)
		manager := newManager(random.Fixed(1), games, results)

		games.On("CreateOrUpdate", mock.Anything, "s1", mock.AnythingOfType("*entity.GameState")).Return(nil).Once()
		results.On("Record", mock.Anything, mock.MatchedBy(func(result *entity.GameResult) bool {
			return result.SessionID == "s1" && result.Winner == entity.PlayerProgram
		})).Return(nil).Once()

		view, err := manager.StartGame(ctx, "s1", entity.InitParams{PebblesCount: 3, MaxPebblesPerTurn: 3, Difficulty: entity.DifficultyHard})

		require.NoError(t, err)
		assert.Equal(t, entity.WonEvent(entity.PlayerProgram), view.Event)
	})

	t.Run("Rejects invalid params without saving", func(t *testing.T) {
		games := newMockGameRepo(t)
		manager := newManager(userFirst, games, nil)

		view, err := manager.StartGame(ctx, "s1", entity.InitParams{PebblesCount: 2, MaxPebblesPerTurn: 3, Difficulty: entity.DifficultyEasy})

		require.ErrorIs(t, err, apperror.ErrInvalidGameParams)
		assert.Nil(t, view)
	})

	t.Run("Requires a session id", func(t *testing.T) {
		manager := newManager(userFirst, newMockGameRepo(t), nil)

		_, err := manager.StartGame(ctx, "", easyTen)

		assert.ErrorIs(t, err, ErrEmptySessionID)
	})

	t.Run("Returns storage errors", func(t *testing.T) {
		games := newMockGameRepo(t)
		manager := newManager(userFirst, games, nil)

		games.On("CreateOrUpdate", mock.Anything, "s1", mock.Anything).Return(errRedisDown).Once()

		_, err := manager.StartGame(ctx, "s1", easyTen)

		assert.ErrorIs(t, err, errRedisDown)
	})
}

func TestGameManager_Act(t *testing.T) {
	ctx := context.Background()

	t.Run("Fails when the session has no game", func(t *testing.T) {
		// Given: no stored game
		games := newMockGameRepo(t)
		manager := newManager(userFirst, games, nil)

		games.On("GetBySessionID", mock.Anything, "s1").Return(nil, repository.ErrGameNotFound).Once()

		// When: the User plays
		_, err := manager.Act(ctx, "s1", entity.TurnAction(1))

		// Then: the game is reported as not initialized
		assert.ErrorIs(t, err, apperror.ErrGameNotInitialized)
	})

	t.Run("Records the User's win once", func(t *testing.T) {
		// Given: 3 pebbles left
		games := newMockGameRepo(t)
		results := newMockResultRepo(t)
		manager := newManager(userFirst, games, results)

		games.On("GetBySessionID", mock.Anything, "s1").Return(&entity.GameState{
			PebblesCount: 10, MaxPebblesPerTurn: 3, PebblesRemaining: 3,
			Difficulty: entity.DifficultyEasy, FirstPlayer: entity.PlayerUser,
		}, nil).Once()
		games.On("CreateOrUpdate", mock.Anything, "s1", mock.AnythingOfType("*entity.GameState")).Return(nil).Once()
		results.On("Record", mock.Anything, mock.MatchedBy(func(result *entity.GameResult) bool {
			return result.Winner == entity.PlayerUser && result.PebblesRemaining == 0
		})).Return(nil).Once()

		// When: the User takes them all
		view, err := manager.Act(ctx, "s1", entity.TurnAction(3))

		// Then: the User has won
		require.NoError(t, err)
		assert.Equal(t, entity.WonEvent(entity.PlayerUser), view.Event)
	})

	t.Run("Ledger failures do not fail the turn", func(t *testing.T) {
		games := newMockGameRepo(t)
		results := newMockResultRepo(t)
		manager := newManager(userFirst, games, results)

		games.On("GetBySessionID", mock.Anything, "s1").Return(&entity.GameState{
			PebblesCount: 10, MaxPebblesPerTurn: 3, PebblesRemaining: 6,
			Difficulty: entity.DifficultyEasy, FirstPlayer: entity.PlayerUser,
		}, nil).Once()
		games.On("CreateOrUpdate", mock.Anything, "s1", mock.Anything).Return(nil).Once()
		results.On("Record", mock.Anything, mock.Anything).Return(errPostgresDown).Once()

		view, err := manager.Act(ctx, "s1", entity.GiveUpAction())

		require.NoError(t, err)
		assert.Equal(t, entity.WonEvent(entity.PlayerProgram), view.Event)
		assert.Equal(t, uint32(6), view.Game.PebblesRemaining)
	})

	t.Run("Invalid turn is not saved", func(t *testing.T) {
		games := newMockGameRepo(t)
		manager := newManager(userFirst, games, nil)

		games.On("GetBySessionID", mock.Anything, "s1").Return(&entity.GameState{
			PebblesCount: 10, MaxPebblesPerTurn: 3, PebblesRemaining: 10,
			Difficulty: entity.DifficultyEasy, FirstPlayer: entity.PlayerUser,
		}, nil).Once()

		_, err := manager.Act(ctx, "s1", entity.TurnAction(4))

		assert.ErrorIs(t, err, apperror.ErrInvalidPebbles)
	})

	t.Run("Corrupted stored game is rejected", func(t *testing.T) {
		games := newMockGameRepo(t)
		manager := newManager(userFirst, games, nil)

		games.On("GetBySessionID", mock.Anything, "s1").Return(&entity.GameState{
			PebblesCount: 10, MaxPebblesPerTurn: 30, PebblesRemaining: 10,
			Difficulty: entity.DifficultyEasy, FirstPlayer: entity.PlayerUser,
		}, nil).Once()

		_, err := manager.Act(ctx, "s1", entity.TurnAction(1))

		assert.ErrorIs(t, err, apperror.ErrCorruptedState)
	})

	t.Run("Storage read errors are returned", func(t *testing.T) {
		games := newMockGameRepo(t)
		manager := newManager(userFirst, games, nil)

		games.On("GetBySessionID", mock.Anything, "s1").Return(nil, errRedisDown).Once()

		_, err := manager.Act(ctx, "s1", entity.TurnAction(1))

		require.ErrorIs(t, err, errRedisDown)
		assert.NotErrorIs(t, err, apperror.ErrGameNotInitialized)
	})
}

func TestGameManager_Scenarios(t *testing.T) {
	ctx := context.Background()

	t.Run("Initialize, turn and restart", func(t *testing.T) {
		// Given: an in-memory store and randomness that lets the User open
		games := repository.NewMemoryGameRepository()
		manager := newManager(userFirst, games, nil)
		sessionID := manager.NewSessionID()

		// When: the game starts
		view, err := manager.StartGame(ctx, sessionID, easyTen)
		require.NoError(t, err)

		// Then: the full pile is waiting
		assert.Equal(t, uint32(10), view.Game.PebblesRemaining)
		assert.Nil(t, view.Game.Winner)

		// When: the User takes 3
		view, err = manager.Act(ctx, sessionID, entity.TurnAction(3))
		require.NoError(t, err)

		// Then: the Program answered with 3
		assert.Equal(t, entity.CounterTurnEvent(4), view.Event)

		stored, err := manager.GetState(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, uint32(4), stored.PebblesRemaining)

		// When: the game is restarted
		view, err = manager.Act(ctx, sessionID, entity.RestartAction(easyTen))
		require.NoError(t, err)

		// Then: the pile is full again
		assert.Equal(t, entity.CounterTurnEvent(10), view.Event)
		assert.Nil(t, view.Game.Winner)
	})

	t.Run("End game drops the live game", func(t *testing.T) {
		games := repository.NewMemoryGameRepository()
		manager := newManager(userFirst, games, nil)

		_, err := manager.StartGame(ctx, "s1", easyTen)
		require.NoError(t, err)

		require.NoError(t, manager.EndGame(ctx, "s1"))

		_, err = manager.GetState(ctx, "s1")
		require.ErrorIs(t, err, apperror.ErrGameNotInitialized)

		assert.ErrorIs(t, manager.EndGame(ctx, "s1"), apperror.ErrGameNotInitialized)
	})

	t.Run("Concurrent turns on one session are serialised", func(t *testing.T) {
		// Given: a big pile; each exchange removes 1 + 3 pebbles
		games := repository.NewMemoryGameRepository()
		manager := newManager(userFirst, games, nil)

		_, err := manager.StartGame(ctx, "s1", entity.InitParams{PebblesCount: 1000, MaxPebblesPerTurn: 3, Difficulty: entity.DifficultyEasy})
		require.NoError(t, err)

		// When: 25 turns arrive at once
		var wg sync.WaitGroup
		for i := 0; i < 25; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = manager.Act(ctx, "s1", entity.TurnAction(1))
			}()
		}
		wg.Wait()

		// Then: none of them was lost
		game, err := manager.GetState(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, uint32(900), game.PebblesRemaining)
	})
}

func TestGameManager_Stats(t *testing.T) {
	ctx := context.Background()

	t.Run("Ledger disabled", func(t *testing.T) {
		manager := newManager(userFirst, repository.NewMemoryGameRepository(), nil)

		_, err := manager.Stats(ctx, "")

		assert.ErrorIs(t, err, ErrLedgerDisabled)
	})

	t.Run("Unknown difficulty", func(t *testing.T) {
		manager := newManager(userFirst, repository.NewMemoryGameRepository(), newMockResultRepo(t))

		_, err := manager.Stats(ctx, "nightmare")

		assert.ErrorIs(t, err, apperror.ErrInvalidDifficulty)
	})

	t.Run("Returns the tally", func(t *testing.T) {
		results := newMockResultRepo(t)
		manager := newManager(userFirst, repository.NewMemoryGameRepository(), results)

		results.On("Tally", mock.Anything, entity.DifficultyHard).Return(&entity.Stats{UserWins: 2, ProgramWins: 5}, nil).Once()

		stats, err := manager.Stats(ctx, entity.DifficultyHard)

		require.NoError(t, err)
		assert.Equal(t, int64(7), stats.Total())
	})
}

func TestGameManager_SessionLocksAreReleased(t *testing.T) {
	ctx := context.Background()

	t.Run("Ended sessions leave no lock behind", func(t *testing.T) {
		// Given: many sessions that each start, get read and end a game
		manager := newManager(userFirst, repository.NewMemoryGameRepository(), nil)

		for i := 0; i < 1000; i++ {
			sessionID := manager.NewSessionID()

			_, err := manager.StartGame(ctx, sessionID, easyTen)
			require.NoError(t, err)

			_, err = manager.GetState(ctx, sessionID)
			require.NoError(t, err)

			require.NoError(t, manager.EndGame(ctx, sessionID))
		}

		// Then: no session lock is kept
		assert.Equal(t, 0, manager.sessions.count())
	})

	t.Run("Concurrent turns on one session release their lock", func(t *testing.T) {
		// Given: a large pile so that every turn keeps the game going
		manager := newManager(userFirst, repository.NewMemoryGameRepository(), nil)
		hard := entity.InitParams{PebblesCount: 1000, MaxPebblesPerTurn: 1, Difficulty: entity.DifficultyHard}

		_, err := manager.StartGame(ctx, "s1", hard)
		require.NoError(t, err)

		// When: 50 turns of 1 pebble race each other
		var wg sync.WaitGroup
		for i := 0; i < 50; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = manager.Act(ctx, "s1", entity.TurnAction(1))
			}()
		}
		wg.Wait()

		// Then: every turn and answer was applied once and the lock is gone
		game, err := manager.GetState(ctx, "s1")
		require.NoError(t, err)
		assert.Equal(t, uint32(900), game.PebblesRemaining)
		assert.Equal(t, 0, manager.sessions.count())
	})
}
