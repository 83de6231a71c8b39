package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"relay-quiz-service/internal/domain"
)

// ResultSink persists finished game scoreboards as JSONB rows.
type ResultSink struct {
	pool *pgxpool.Pool
}

func NewResultSink(pool *pgxpool.Pool) *ResultSink {
	return &ResultSink{pool: pool}
}

func (s *ResultSink) SaveResult(ctx context.Context, result domain.GameResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO game_results (room_id, topic, finished_at, data) VALUES ($1, $2, $3, $4::jsonb)`,
		result.RoomID, result.Topic, result.FinishedAt, data)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}
