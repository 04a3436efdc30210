package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/rocketscienceinc/pebbles-backend/internal/apperror"
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
	"github.com/rocketscienceinc/pebbles-backend/internal/pebbles"
	"github.com/rocketscienceinc/pebbles-backend/internal/repository"
	"github.com/rocketscienceinc/pebbles-backend/pkg/random"
)

var (
	ErrEmptySessionID = errors.New("session id is empty")
	ErrLedgerDisabled = errors.New("result ledger is disabled")
)

type gameRepo interface {
	CreateOrUpdate(ctx context.Context, sessionID string, game *entity.GameState) error
	GetBySessionID(ctx context.Context, sessionID string) (*entity.GameState, error)
	DeleteBySessionID(ctx context.Context, sessionID string) error
}

type resultRepo interface {
	Record(ctx context.Context, result *entity.GameResult) error
	Tally(ctx context.Context, difficulty entity.DifficultyLevel) (*entity.Stats, error)
}

// GameView is what transports send back after every call.
type GameView struct {
	SessionID string            `json:"session_id"`
	Game      *entity.GameState `json:"game,omitempty"`
	Event     *entity.Event     `json:"event,omitempty"`
}

type GameManager struct {
	logger *slog.Logger
	tracer trace.Tracer
	random random.Source

	gameRepo   gameRepo
	resultRepo resultRepo

	// two calls never play on the same game at once
	sessions sessionLocks
}

// NewGameManager - resultRepo may be nil, in which case finished games are not recorded.
func NewGameManager(logger *slog.Logger, tracer trace.Tracer, source random.Source, gameRepo gameRepo, resultRepo resultRepo) *GameManager {
	return &GameManager{
		logger: logger,
		tracer: tracer,
		random: source,

		gameRepo:   gameRepo,
		resultRepo: resultRepo,
	}
}

func (that *GameManager) NewSessionID() string {
	return uuid.NewString()
}

// StartGame begins a new game for the session, replacing any game it had.
func (that *GameManager) StartGame(ctx context.Context, sessionID string, params entity.InitParams) (view *GameView, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.StartGame", sessionID)
	defer func() { endSpan(span, err) }()

	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	unlock := that.lockSession(sessionID)
	defer unlock()

	engine := pebbles.NewEngine(that.random)

	event, err := engine.Initialize(params)
	if err != nil {
		return nil, fmt.Errorf("failed to start game: %w", err)
	}

	return that.commit(ctx, sessionID, engine, event)
}

// Act applies the User's action to the session's game.
func (that *GameManager) Act(ctx context.Context, sessionID string, action entity.Action) (view *GameView, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.Act", sessionID)
	span.SetAttributes(attribute.String("game.action", action.Type))
	defer func() { endSpan(span, err) }()

	if sessionID == "" {
		return nil, ErrEmptySessionID
	}

	unlock := that.lockSession(sessionID)
	defer unlock()

	game, err := that.getGame(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	engine := pebbles.NewEngine(that.random)
	if err = engine.Restore(game); err != nil {
		return nil, fmt.Errorf("failed to restore game: %w", err)
	}

	event, err := engine.Apply(action)
	if err != nil {
		return nil, fmt.Errorf("failed to apply action: %w", err)
	}

	return that.commit(ctx, sessionID, engine, event)
}

func (that *GameManager) GetState(ctx context.Context, sessionID string) (game *entity.GameState, err error) {
	ctx, span := that.startSpan(ctx, "GameManager.GetState", sessionID)
	defer func() { endSpan(span, err) }()

	return that.getGame(ctx, sessionID)
}

// EndGame drops the session's live game. Finished games stay in the ledger.
func (that *GameManager) EndGame(ctx context.Context, sessionID string) (err error) {
	ctx, span := that.startSpan(ctx, "GameManager.EndGame", sessionID)
	defer func() { endSpan(span, err) }()

	unlock := that.lockSession(sessionID)
	defer unlock()

	if err = that.gameRepo.DeleteBySessionID(ctx, sessionID); err != nil {
		if errors.Is(err, repository.ErrGameNotFound) {
			return apperror.ErrGameNotInitialized
		}
		return fmt.Errorf("failed to delete game: %w", err)
	}

	that.logger.Info("game ended", "method", "EndGame", "sessionID", sessionID)

	return nil
}

// Stats tallies recorded wins. An empty difficulty counts all games.
func (that *GameManager) Stats(ctx context.Context, difficulty entity.DifficultyLevel) (stats *entity.Stats, err error) {
	ctx, span := that.tracer.Start(ctx, "GameManager.Stats")
	defer func() { endSpan(span, err) }()

	if that.resultRepo == nil {
		return nil, ErrLedgerDisabled
	}

	if difficulty != "" && !difficulty.IsValid() {
		return nil, fmt.Errorf("%w: %q", apperror.ErrInvalidDifficulty, difficulty)
	}

	stats, err = that.resultRepo.Tally(ctx, difficulty)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %w", err)
	}

	return stats, nil
}

// commit saves the engine's game and records it when the event ended it.
func (that *GameManager) commit(ctx context.Context, sessionID string, engine *pebbles.Engine, event *entity.Event) (*GameView, error) {
	game, err := engine.State()
	if err != nil {
		return nil, fmt.Errorf("failed to read game state: %w", err)
	}

	if err = that.gameRepo.CreateOrUpdate(ctx, sessionID, &game); err != nil {
		return nil, fmt.Errorf("failed to save game: %w", err)
	}

	if event.IsWon() {
		that.recordResult(ctx, sessionID, &game)
	}

	return &GameView{
		SessionID: sessionID,
		Game:      &game,
		Event:     event,
	}, nil
}

func (that *GameManager) recordResult(ctx context.Context, sessionID string, game *entity.GameState) {
	log := that.logger.With("method", "recordResult", "sessionID", sessionID)

	result := entity.NewGameResult(sessionID, game, time.Now().UTC())
	if result == nil {
		return
	}

	log.Info("game finished", "winner", result.Winner, "difficulty", result.Difficulty)

	if that.resultRepo == nil {
		return
	}

	if err := that.resultRepo.Record(ctx, result); err != nil {
		log.Error("failed to record game result", "error", err)
	}
}

func (that *GameManager) getGame(ctx context.Context, sessionID string) (*entity.GameState, error) {
	game, err := that.gameRepo.GetBySessionID(ctx, sessionID)
	if errors.Is(err, repository.ErrGameNotFound) {
		return nil, apperror.ErrGameNotInitialized
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}

	return game, nil
}

func (that *GameManager) lockSession(sessionID string) func() {
	return that.sessions.lock(sessionID)
}

func (that *GameManager) startSpan(ctx context.Context, name, sessionID string) (context.Context, trace.Span) {
	ctx, span := that.tracer.Start(ctx, name)
	span.SetAttributes(attribute.String("session.id", sessionID))

	return ctx, span
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
