package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// schemaStatements create the tables the engine reads and writes.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS students (
		id            UUID PRIMARY KEY,
		branch_id     TEXT NOT NULL DEFAULT '',
		student_code  TEXT NOT NULL DEFAULT '',
		first_name    TEXT NOT NULL DEFAULT '',
		last_name     TEXT NOT NULL DEFAULT '',
		grade_level   TEXT NOT NULL DEFAULT '',
		active        BOOLEAN NOT NULL DEFAULT TRUE,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS students_branch_active_idx ON students (branch_id, active)`,
	`CREATE TABLE IF NOT EXISTS payment_ledger (
		id             UUID PRIMARY KEY,
		student_id     UUID NOT NULL REFERENCES students (id),
		branch_id      TEXT NOT NULL DEFAULT '',
		payment_cycle  TEXT NOT NULL,
		academic_year  TEXT NOT NULL DEFAULT '',
		amount_paid    NUMERIC(14, 2) NOT NULL DEFAULT 0,
		status         TEXT NOT NULL DEFAULT 'pending',
		payment_date   DATE,
		notes          TEXT,
		created_at     TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at     TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS payment_ledger_lookup_idx
		ON payment_ledger (student_id, payment_cycle, academic_year)`,
}

// EnsureSchema creates the tables if they do not exist.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	for _, stmt := range schemaStatements {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}
