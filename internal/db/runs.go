package db

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/householdpro/backend/internal/models"
)

func (s *Store) CreateRun(ctx context.Context, status string) (string, error) {
	id := uuid.NewString()
	_, err := s.Pool.Exec(ctx, `INSERT INTO runs (id, status, started_at) VALUES ($1, $2, NOW())`, id, status)
	return id, err
}

func (s *Store) FinishRun(ctx context.Context, runID string, status string, summary []byte) error {
	_, err := s.Pool.Exec(ctx, `UPDATE runs SET status = $1, summary = $2, finished_at = NOW() WHERE id = $3`, status, summary, runID)
	return err
}

func (s *Store) GetLatestRun(ctx context.Context) (models.Run, error) {
	row := s.Pool.QueryRow(ctx, `SELECT id::text, started_at, finished_at, status, summary FROM runs ORDER BY started_at DESC LIMIT 1`)
	var (
		run     models.Run
		summary []byte
	)
	if err := row.Scan(&run.ID, &run.StartedAt, &run.FinishedAt, &run.Status, &summary); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Run{}, models.ErrNotFound
		}
		return models.Run{}, err
	}
	run.Summary = summary
	return run, nil
}
