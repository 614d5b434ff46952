package db

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/householdpro/backend/internal/models"
)

func insertAudit(ctx context.Context, tx pgx.Tx, e models.AuditEntry) error {
	query, args, err := psql.Insert("assignment_audit").
		Columns("id", "booking_id", "employee_id", "previous_employee_id", "action", "strategy", "score", "reason", "actor", "created_at").
		Values(e.ID, e.BookingID, e.EmployeeID, e.PreviousEmployeeID, string(e.Action), e.Strategy, e.Score, e.Reason, e.Actor, e.CreatedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build audit insert: %w", err)
	}
	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}
	return nil
}

// ListAudit returns a booking's audit trail, oldest first.
func (s *Store) ListAudit(ctx context.Context, bookingID string) ([]models.AuditEntry, error) {
	query, args, err := psql.Select("id::text", "booking_id", "employee_id", "previous_employee_id", "action", "strategy", "score", "reason", "actor", "created_at").
		From("assignment_audit").
		Where(sq.Eq{"booking_id": bookingID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit query: %w", err)
	}
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list audit: %w", err)
	}
	defer rows.Close()

	var out []models.AuditEntry
	for rows.Next() {
		var (
			e      models.AuditEntry
			action string
		)
		if err := rows.Scan(&e.ID, &e.BookingID, &e.EmployeeID, &e.PreviousEmployeeID, &action, &e.Strategy, &e.Score, &e.Reason, &e.Actor, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Action = models.AuditAction(action)
		out = append(out, e)
	}
	return out, rows.Err()
}
