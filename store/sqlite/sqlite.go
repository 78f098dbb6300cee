/*
Package sqlite provides a SQLite-backed implementation of engine.RecordSource.

PURPOSE:
  Serves the two input feeds - enrollment records and claim records - from a
  SQLite database. In production the same patterns apply to PostgreSQL (see
  store/postgres); only SQL dialect details differ.

KEY TABLES:
  enrollments: Validity windows (vigencias), append-only upstream
  claims:      Claim rows keyed by competence month, append-only upstream

FILTER PUSHDOWN:
  The engine's Filter is translated to WHERE clauses:
  - operator match on both feeds (case-insensitive via COLLATE NOCASE)
  - competence range on claims only; enrollments keep full history so the
    resolver can see windows that started before the period
  - organization/plan/kind restrict claims through an EXISTS subquery on
    enrollments, since claim rows carry no dimensions of their own
  - the billable-event pre-filter (event marker non-empty) is applied here,
    upstream of the reconciler

WAL MODE:
  Opened with WAL for better read concurrency; the report path is read-only.

SEE ALSO:
  - engine/types.go: RecordSource and Filter definitions
  - store/postgres: pgx-backed implementation
  - engine/store: in-memory implementation for tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/plansaude/sinistro-engine/engine"
)

// Store implements engine.RecordSource over SQLite.
type Store struct {
	db *sql.DB
}

// New opens (and migrates) a SQLite store. Use ":memory:" for an in-memory
// database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) migrate() error {
	schema := `
	-- Enrollment validity windows (vigencias)
	CREATE TABLE IF NOT EXISTS enrollments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cpf TEXT NOT NULL,
		operator TEXT NOT NULL COLLATE NOCASE,
		organization TEXT NOT NULL,
		plan TEXT NOT NULL,
		kind TEXT NOT NULL DEFAULT '',
		age INTEGER,
		status TEXT NOT NULL,
		start_date TEXT NOT NULL,
		exclusion_date TEXT,
		adjustment_month INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_enrollments_cpf
		ON enrollments(cpf, start_date);
	CREATE INDEX IF NOT EXISTS idx_enrollments_operator
		ON enrollments(operator);
	CREATE INDEX IF NOT EXISTS idx_enrollments_dimensions
		ON enrollments(operator, organization, plan);

	-- Claim rows, one per claim, attributed to a competence month
	CREATE TABLE IF NOT EXISTS claims (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		cpf TEXT NOT NULL,
		operator TEXT NOT NULL COLLATE NOCASE,
		competence TEXT NOT NULL,
		amount TEXT NOT NULL,
		revenue TEXT NOT NULL DEFAULT '0',
		event TEXT,
		created_at TEXT NOT NULL DEFAULT (datetime('now'))
	);

	CREATE INDEX IF NOT EXISTS idx_claims_competence
		ON claims(operator, competence);
	CREATE INDEX IF NOT EXISTS idx_claims_cpf
		ON claims(cpf, competence);
	`
	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// RECORD SOURCE
// =============================================================================

// Enrollments returns the full enrollment history matching the filter.
// The competence range is deliberately NOT applied: the resolver needs
// windows that started before the reference period.
func (s *Store) Enrollments(ctx context.Context, f engine.Filter) ([]engine.EnrollmentRecord, error) {
	query := `
		SELECT id, cpf, organization, plan, kind, age, status,
		       start_date, exclusion_date, adjustment_month
		FROM enrollments
		WHERE operator = ?`
	args := []any{f.Operator}

	if f.Organization != "" {
		query += " AND organization = ?"
		args = append(args, f.Organization)
	}
	if f.Plan != "" {
		query += " AND plan = ?"
		args = append(args, f.Plan)
	}
	if f.Kind != "" {
		query += " AND kind = ? COLLATE NOCASE"
		args = append(args, f.Kind)
	}
	if f.CPF != "" {
		query += " AND cpf = ?"
		args = append(args, string(f.CPF))
	}
	query += " ORDER BY cpf, start_date, id"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query enrollments: %w", err)
	}
	defer rows.Close()

	var out []engine.EnrollmentRecord
	for rows.Next() {
		var (
			rec        engine.EnrollmentRecord
			cpf        string
			age        sql.NullInt64
			status     string
			start      string
			exclusion  sql.NullString
			adjustment int
		)
		if err := rows.Scan(&rec.ID, &cpf, &rec.Organization, &rec.Plan, &rec.Kind,
			&age, &status, &start, &exclusion, &adjustment); err != nil {
			return nil, fmt.Errorf("scan enrollment: %w", err)
		}
		rec.CPF = engine.CPF(cpf)
		rec.Operator = f.Operator
		if age.Valid {
			a := int(age.Int64)
			rec.Age = &a
		}
		rec.Status = engine.NormalizeEnrollmentStatus(status)
		rec.StartDate, err = parseDate(start)
		if err != nil {
			return nil, fmt.Errorf("enrollment %d: %w", rec.ID, err)
		}
		if exclusion.Valid && exclusion.String != "" {
			d, err := parseDate(exclusion.String)
			if err != nil {
				return nil, fmt.Errorf("enrollment %d: %w", rec.ID, err)
			}
			rec.Exclusion = &d
		}
		rec.Adjustment = time.Month(adjustment)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Claims returns billable claim rows in the filter's competence range.
func (s *Store) Claims(ctx context.Context, f engine.Filter) ([]engine.ClaimRecord, error) {
	query := `
		SELECT c.cpf, c.competence, c.amount, c.revenue, c.event
		FROM claims c
		WHERE c.operator = ?
		  AND c.competence >= ? AND c.competence <= ?
		  AND c.event IS NOT NULL AND TRIM(c.event) != ''`
	args := []any{f.Operator, f.From.String(), f.To.String()}

	if f.CPF != "" {
		query += " AND c.cpf = ?"
		args = append(args, string(f.CPF))
	}
	if f.Organization != "" || f.Plan != "" || f.Kind != "" {
		query += ` AND EXISTS (
			SELECT 1 FROM enrollments e
			WHERE e.cpf = c.cpf AND e.operator = c.operator`
		if f.Organization != "" {
			query += " AND e.organization = ?"
			args = append(args, f.Organization)
		}
		if f.Plan != "" {
			query += " AND e.plan = ?"
			args = append(args, f.Plan)
		}
		if f.Kind != "" {
			query += " AND e.kind = ? COLLATE NOCASE"
			args = append(args, f.Kind)
		}
		query += ")"
	}
	query += " ORDER BY c.competence, c.cpf, c.id"

	rows, err := s.db.QueryContext(ctx, query, args...)
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
			event      sql.NullString
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
		rec.Event = event.String
		out = append(out, rec)
	}
	return out, rows.Err()
}

// =============================================================================
// FILTER OPTIONS - Distinct values for dropdowns
// =============================================================================

// Organizations returns the distinct organizations under an operator.
func (s *Store) Organizations(ctx context.Context, operator string) ([]string, error) {
	return s.distinct(ctx, "organization", operator)
}

// Plans returns the distinct plans under an operator.
func (s *Store) Plans(ctx context.Context, operator string) ([]string, error) {
	return s.distinct(ctx, "plan", operator)
}

func (s *Store) distinct(ctx context.Context, column, operator string) ([]string, error) {
	// column is one of two compile-time constants, never caller input.
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT "+column+" FROM enrollments WHERE operator = ? ORDER BY 1", operator)
	if err != nil {
		return nil, fmt.Errorf("query %s options: %w", column, err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}

// =============================================================================
// INGESTION HELPERS - Used by seeding and tests
// =============================================================================

// SaveEnrollment inserts one enrollment feed row and returns its id.
// rawStatus is stored as received; normalization happens on read.
func (s *Store) SaveEnrollment(ctx context.Context, rec engine.EnrollmentRecord, rawStatus string) (int64, error) {
	var exclusion any
	if rec.Exclusion != nil {
		exclusion = rec.Exclusion.Format("2006-01-02")
	}
	var age any
	if rec.Age != nil {
		age = *rec.Age
	}
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO enrollments (cpf, operator, organization, plan, kind, age,
			status, start_date, exclusion_date, adjustment_month)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		string(rec.CPF), rec.Operator, rec.Organization, rec.Plan, rec.Kind, age,
		rawStatus, rec.StartDate.Format("2006-01-02"), exclusion, int(rec.Adjustment))
	if err != nil {
		return 0, fmt.Errorf("save enrollment: %w", err)
	}
	return res.LastInsertId()
}

// SaveClaim inserts one claim feed row.
func (s *Store) SaveClaim(ctx context.Context, rec engine.ClaimRecord) error {
	var event any
	if rec.Event != "" {
		event = rec.Event
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO claims (cpf, operator, competence, amount, revenue, event)
		VALUES (?, ?, ?, ?, ?, ?)`,
		string(rec.CPF), rec.Operator, rec.Competence.String(),
		rec.Amount.String(), rec.Revenue.String(), event)
	if err != nil {
		return fmt.Errorf("save claim: %w", err)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	// Dates arrive as YYYY-MM-DD, sometimes with a time suffix from older
	// ingestion jobs.
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
