package db

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/householdpro/backend/internal/models"
)

var employeeColumns = []string{
	"id", "name", "phone", "email", "location", "expertise_areas", "skills",
	"rating", "is_active", "is_available", "customer_satisfaction_score", "updated_at",
}

func scanEmployee(row pgx.Row) (models.Employee, error) {
	var e models.Employee
	err := row.Scan(&e.ID, &e.Name, &e.Phone, &e.Email, &e.Location, &e.ExpertiseAreas, &e.Skills,
		&e.Rating, &e.IsActive, &e.IsAvailable, &e.CustomerSatisfactionScore, &e.UpdatedAt)
	return e, err
}

// ListEmployees returns employees ordered by id. The expertise filter matches
// tags containing the value or contained in it, case-insensitively.
func (s *Store) ListEmployees(ctx context.Context, filter models.EmployeeFilter) ([]models.Employee, error) {
	q := psql.Select(employeeColumns...).From("employees")
	if filter.ActiveOnly {
		q = q.Where(sq.Eq{"is_active": true})
	}
	if filter.AvailableOnly {
		q = q.Where(sq.Eq{"is_available": true})
	}
	if filter.Expertise != "" {
		// Same whole-word match as assignment.MatchesCategory.
		q = q.Where(sq.Expr(`EXISTS (
			SELECT 1 FROM unnest(expertise_areas) AS area,
				LATERAL (SELECT ' ' || trim(regexp_replace(lower(area), '[^[:alnum:]]+', ' ', 'g')) || ' ' AS words) a,
				LATERAL (SELECT ' ' || trim(regexp_replace(lower(?::text), '[^[:alnum:]]+', ' ', 'g')) || ' ' AS words) f
			WHERE a.words <> '  ' AND f.words <> '  '
				AND (strpos(a.words, f.words) > 0 OR strpos(f.words, a.words) > 0)
		)`, filter.Expertise))
	}
	query, args, err := q.OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build employees query: %w", err)
	}

	rows, err := s.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}
	defer rows.Close()

	var out []models.Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) GetEmployee(ctx context.Context, id string) (models.Employee, error) {
	query, args, err := psql.Select(employeeColumns...).From("employees").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return models.Employee{}, fmt.Errorf("build employee query: %w", err)
	}
	e, err := scanEmployee(s.Pool.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Employee{}, models.ErrNotFound
	}
	if err != nil {
		return models.Employee{}, fmt.Errorf("get employee %s: %w", id, err)
	}
	return e, nil
}

// UpsertEmployees loads employees through a staging table so re-imports update in place.
func (s *Store) UpsertEmployees(ctx context.Context, employees []models.Employee) (int64, error) {
	rows := make([][]any, 0, len(employees))
	for _, e := range employees {
		rows = append(rows, []any{
			e.ID, e.Name, e.Phone, e.Email, e.Location, e.ExpertiseAreas, e.Skills,
			e.Rating, e.IsActive, e.IsAvailable, e.CustomerSatisfactionScore, e.UpdatedAt,
		})
	}
	var count int64
	err := s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `CREATE TEMP TABLE employees_stage (LIKE employees INCLUDING DEFAULTS) ON COMMIT DROP`); err != nil {
			return err
		}
		if _, err := tx.CopyFrom(ctx, pgx.Identifier{"employees_stage"}, employeeColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copy employees: %w", err)
		}
		tag, err := tx.Exec(ctx, `
			INSERT INTO employees SELECT * FROM employees_stage
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				phone = EXCLUDED.phone,
				email = EXCLUDED.email,
				location = EXCLUDED.location,
				expertise_areas = EXCLUDED.expertise_areas,
				skills = EXCLUDED.skills,
				rating = EXCLUDED.rating,
				is_active = EXCLUDED.is_active,
				is_available = EXCLUDED.is_available,
				customer_satisfaction_score = EXCLUDED.customer_satisfaction_score,
				updated_at = EXCLUDED.updated_at
		`)
		if err != nil {
			return fmt.Errorf("merge employees: %w", err)
		}
		count = tag.RowsAffected()
		return nil
	})
	return count, err
}
