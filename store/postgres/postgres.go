/*
Package postgres provides a PostgreSQL-backed implementation of
engine.RecordSource over a pgx connection pool.

Filter semantics are identical to store/sqlite: full enrollment history per
operator (the resolver needs windows starting before the period), claims
restricted to the competence range and the billable-event marker, and
organization/plan/kind filters applied to claims through an EXISTS subquery
on enrollments.

Schema is managed externally (migration tooling); see schema.sql next to
this file for the expected tables.
*/
package postgres

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/plansaude/sinistro-engine/engine"
)

// Store implements engine.RecordSource over PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

// New connects a pool for the given DSN.
func New(ctx context.Context, dsn string) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping: %w", err)
	}
	return &Store{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}, nil
}

// Close releases the pool.
func (s *Store) Close() { s.pool.Close() }

// Enrollments returns the full enrollment history matching the filter.
func (s *Store) Enrollments(ctx context.Context, f engine.Filter) ([]engine.EnrollmentRecord, error) {
	q := s.sb.Select("id", "cpf", "organization", "plan", "kind", "age",
		"status", "start_date", "exclusion_date", "adjustment_month").
		From("enrollments").
		Where(sq.Expr("lower(operator) = lower(?)", f.Operator)).
		OrderBy("cpf", "start_date", "id")

	if f.Organization != "" {
		q = q.Where(sq.Eq{"organization": f.Organization})
	}
	if f.Plan != "" {
		q = q.Where(sq.Eq{"plan": f.Plan})
	}
	if f.Kind != "" {
		q = q.Where(sq.Expr("lower(kind) = lower(?)", f.Kind))
	}
	if f.CPF != "" {
		q = q.Where(sq.Eq{"cpf": string(f.CPF)})
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build enrollments query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var out []engine.EnrollmentRecord
	for rows.Next() {
		var (
			rec        engine.EnrollmentRecord
			cpf        string
			age        *int
			status     string
			start      time.Time
			exclusion  *time.Time
			adjustment int
		)
		if err := rows.Scan(&rec.ID, &cpf, &rec.Organization, &rec.Plan, &rec.Kind,
			&age, &status, &start, &exclusion, &adjustment); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		rec.CPF = engine.CPF(cpf)
		rec.Operator = f.Operator
		rec.Age = age
		rec.Status = engine.NormalizeEnrollmentStatus(status)
		rec.StartDate = truncateDay(start)
		if exclusion != nil {
			d := truncateDay(*exclusion)
			rec.Exclusion = &d
		}
		rec.Adjustment = time.Month(adjustment)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Claims returns billable claim rows in the filter's competence range.
func (s *Store) Claims(ctx context.Context, f engine.Filter) ([]engine.ClaimRecord, error) {
	q := s.sb.Select("c.cpf", "c.competence", "c.amount::text", "c.revenue::text", "c.event").
		From("claims c").
		Where(sq.Expr("lower(c.operator) = lower(?)", f.Operator)).
		Where(sq.GtOrEq{"c.competence": f.From.String()}).
		Where(sq.LtOrEq{"c.competence": f.To.String()}).
		Where("c.event IS NOT NULL AND btrim(c.event) <> ''").
		OrderBy("c.competence", "c.cpf", "c.id")

	if f.CPF != "" {
		q = q.Where(sq.Eq{"c.cpf": string(f.CPF)})
	}
	if f.Organization != "" || f.Plan != "" || f.Kind != "" {
		sub := "SELECT 1 FROM enrollments e WHERE e.cpf = c.cpf AND lower(e.operator) = lower(c.operator)"
		var subArgs []any
		if f.Organization != "" {
			sub += " AND e.organization = ?"
			subArgs = append(subArgs, f.Organization)
		}
		if f.Plan != "" {
			sub += " AND e.plan = ?"
			subArgs = append(subArgs, f.Plan)
		}
		if f.Kind != "" {
			sub += " AND lower(e.kind) = lower(?)"
			subArgs = append(subArgs, f.Kind)
		}
		q = q.Where(sq.Expr("EXISTS ("+sub+")", subArgs...))
	}

	sqlStr, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build claims query: %w", err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query claims: %w", err)
	}
	defer rows.Close()

	var out []engine.ClaimRecord
	for rows.Next() {
		var (
			rec        engine.ClaimRecord
			cpf        string
			competence string
			amount     string
			revenue    string
			event      *string
		)
		if err := rows.Scan(&cpf, &competence, &amount, &revenue, &event); err != nil {
			return nil, fmt.Errorf("scan claim: %w", err)
		}
		rec.CPF = engine.CPF(cpf)
		rec.Operator = f.Operator
		rec.Competence, err = engine.ParseMonth(competence)
		if err != nil {
			return nil, fmt.Errorf("claim for %s: %w", cpf, err)
		}
		rec.Amount, err = decimal.NewFromString(amount)
		if err != nil {
			return nil, fmt.Errorf("claim for %s: bad amount %q: %w", cpf, amount, err)
		}
		rec.Revenue, err = decimal.NewFromString(revenue)
		if err != nil {
			return nil, fmt.Errorf("claim for %s: bad revenue %q: %w", cpf, revenue, err)
		}
		if event != nil {
			rec.Event = *event
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Organizations returns the distinct organizations under an operator.
func (s *Store) Organizations(ctx context.Context, operator string) ([]string, error) {
	return s.distinct(ctx, "organization", operator)
}

// Plans returns the distinct plans under an operator.
func (s *Store) Plans(ctx context.Context, operator string) ([]string, error) {
	return s.distinct(ctx, "plan", operator)
}

func (s *Store) distinct(ctx context.Context, column, operator string) ([]string, error) {
	sqlStr, args, err := s.sb.Select("DISTINCT " + column).
		From("enrollments").
		Where(sq.Expr("lower(operator) = lower(?)", operator)).
		OrderBy(column).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s options query: %w", column, err)
	}
	rows, err := s.pool.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s options: %w", column, err)
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
