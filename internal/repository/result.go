package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rocketscienceinc/pebbles-backend/internal/entity"
)

type ResultRepository interface {
	Record(ctx context.Context, result *entity.GameResult) error
	Tally(ctx context.Context, difficulty entity.DifficultyLevel) (*entity.Stats, error)
}

type dbResult struct {
	pool *pgxpool.Pool
}

func NewResultRepository(pool *pgxpool.Pool) ResultRepository {
	return &dbResult{
		pool: pool,
	}
}

func (that *dbResult) Record(ctx context.Context, result *entity.GameResult) error {
	_, err := that.pool.Exec(ctx, `
		INSERT INTO game_results
			(session_id, winner, first_player, difficulty, pebbles_count, max_pebbles_per_turn, pebbles_remaining, finished_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		result.SessionID,
		string(result.Winner),
		string(result.FirstPlayer),
		string(result.Difficulty),
		int64(result.PebblesCount),
		int64(result.MaxPebblesPerTurn),
		int64(result.PebblesRemaining),
		result.FinishedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record game result: %w", err)
	}

	return nil
}

// Tally counts wins per player. An empty difficulty counts every game.
func (that *dbResult) Tally(ctx context.Context, difficulty entity.DifficultyLevel) (*entity.Stats, error) {
	var stats entity.Stats

	err := that.pool.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE winner = $1),
			COUNT(*) FILTER (WHERE winner = $2)
		FROM game_results
		WHERE $3::text = '' OR difficulty = $3::text
	`, string(entity.PlayerUser), string(entity.PlayerProgram), string(difficulty)).Scan(&stats.UserWins, &stats.ProgramWins)
	if err != nil {
		return nil, fmt.Errorf("failed to tally game results: %w", err)
	}

	return &stats, nil
}
