package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/householdpro/backend/internal/models"
	"github.com/householdpro/backend/internal/utils"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

var bookingColumns = []string{
	"id", "customer_id", "service_id", "service_name", "category_name", "subcategory_name",
	"scheduled_date", "start_time", "end_time", "address_line", "city", "status",
	"assigned_employee_id", "created_at", "updated_at",
}

func scanBooking(row pgx.Row) (models.Booking, error) {
	var (
		b      models.Booking
		status string
	)
	err := row.Scan(&b.ID, &b.CustomerID, &b.ServiceID, &b.ServiceName, &b.CategoryName, &b.SubcategoryName,
		&b.ScheduledDate, &b.StartTime, &b.EndTime, &b.AddressLine, &b.City, &status,
		&b.AssignedEmployeeID, &b.CreatedAt, &b.UpdatedAt)
	b.Status = models.BookingStatus(status)
	return b, err
}

func collectBookings(rows pgx.Rows) ([]models.Booking, error) {
	defer rows.Close()
	var out []models.Booking
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) GetBooking(ctx context.Context, id string) (models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).From("bookings").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.Booking{}, fmt.Errorf("build booking query: %w", err)
	}
	b, err := scanBooking(s.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Booking{}, models.ErrNotFound
	}
	if err != nil {
		return models.Booking{}, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

// ListBookings returns bookings in schedule order.
func (s *Store) ListBookings(ctx context.Context, filter models.BookingFilter) ([]models.Booking, error) {
	limit := filter.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	q := psql.Select(bookingColumns...).From("bookings")
	if filter.Status != "" {
		q = q.Where(sq.Eq{"status": string(filter.Status)})
	}
	if filter.Date != nil {
		q = q.Where(sq.Eq{"scheduled_date": *filter.Date})
	}
	if filter.Unassigned {
		q = q.Where(sq.Eq{"assigned_employee_id": nil})
	}
	q = q.OrderBy("scheduled_date ASC", "start_time ASC", "id ASC").
		Limit(uint64(limit)).
		Offset(uint64(offset))

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bookings query: %w", err)
	}
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	return collectBookings(rows)
}

func (s *Store) ListEmployeeAgenda(ctx context.Context, employeeID string, date time.Time, statuses []models.BookingStatus) ([]models.Booking, error) {
	query, args, err := psql.Select(bookingColumns...).
		From("bookings").
		Where(sq.Eq{
			"assigned_employee_id": employeeID,
			"scheduled_date":       date,
			"status":               statusStrings(statuses),
		}).
		OrderBy("start_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build agenda query: %w", err)
	}
	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list agenda for %s: %w", employeeID, err)
	}
	return collectBookings(rows)
}

// ApplyAssignment writes the booking's new employee and status together with
// its audit entry. When an employee is set, the employee's advisory lock is
// held for the transaction and the same-day workload must not exceed
// change.ExpectedWorkload (unless negative), or models.ErrWorkloadChanged is returned.
func (s *Store) ApplyAssignment(ctx context.Context, change models.AssignmentChange) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		var status string
		err := tx.QueryRow(ctx, `SELECT status FROM bookings WHERE id = $1 FOR UPDATE`, change.BookingID).Scan(&status)
		if errors.Is(err, pgx.ErrNoRows) {
			return models.ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock booking: %w", err)
		}
		if !models.BookingStatus(status).Assignable() {
			return fmt.Errorf("booking %s moved to %s", change.BookingID, status)
		}

		if change.EmployeeID != nil {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, utils.LockKey("employee", *change.EmployeeID)); err != nil {
				return fmt.Errorf("lock employee: %w", err)
			}
			if change.ExpectedWorkload >= 0 {
				var load int
				err := tx.QueryRow(ctx, `
					SELECT COUNT(*) FROM bookings
					WHERE assigned_employee_id = $1 AND scheduled_date = $2 AND status = ANY($3) AND id <> $4
				`, *change.EmployeeID, change.ScheduledDate, statusStrings(models.ActiveStatuses), change.BookingID).Scan(&load)
				if err != nil {
					return fmt.Errorf("count workload: %w", err)
				}
				if load > change.ExpectedWorkload {
					return models.ErrWorkloadChanged
				}
			}
		}

		if _, err := tx.Exec(ctx, `
			UPDATE bookings SET assigned_employee_id = $1, status = $2, updated_at = NOW() WHERE id = $3
		`, change.EmployeeID, string(change.Status), change.BookingID); err != nil {
			return fmt.Errorf("update booking: %w", err)
		}
		return insertAudit(ctx, tx, change.Audit)
	})
}

// UpsertBookings loads bookings through a staging table so re-imports update in place.
// A booking that already has an employee keeps its employee and status: those
// only change through ApplyAssignment, which writes the audit entry.
func (s *Store) UpsertBookings(ctx context.Context, bookings []models.Booking) (int64, error) {
	rows := make([][]any, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, []any{
			b.ID, b.CustomerID, b.ServiceID, b.ServiceName, b.CategoryName, b.SubcategoryName,
			b.ScheduledDate, b.StartTime, b.EndTime, b.AddressLine, b.City, string(b.Status),
			b.AssignedEmployeeID, b.CreatedAt, b.UpdatedAt,
		})
	}
	var count int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `CREATE TEMP TABLE bookings_stage (LIKE bookings INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
			return err
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"bookings_stage"}, bookingColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy bookings: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO bookings SELECT * FROM bookings_stage
			ON CONFLICT (id) DO UPDATE SET
				customer_id = EXCLUDED.customer_id,
				service_id = EXCLUDED.service_id,
				service_name = EXCLUDED.service_name,
				category_name = EXCLUDED.category_name,
				subcategory_name = EXCLUDED.subcategory_name,
				scheduled_date = EXCLUDED.scheduled_date,
				start_time = EXCLUDED.start_time,
				end_time = EXCLUDED.end_time,
				address_line = EXCLUDED.address_line,
				city = EXCLUDED.city,
				status = CASE WHEN bookings.assigned_employee_id IS NULL
					THEN EXCLUDED.status ELSE bookings.status END,
				assigned_employee_id = COALESCE(bookings.assigned_employee_id, EXCLUDED.assigned_employee_id),
				updated_at = NOW()
		`)
		if err != nil {
			return fmt.Errorf("merge bookings: %w", err)
		}
		count = tag.RowsAffected()
		return nil
	})
	return count, err
}

func statusStrings(statuses []models.BookingStatus) []string {
	out := make([]string, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, string(s))
	}
	return out
}
