// Package store implements the student directory and payment ledger.
package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/feerecon/internal/core"
)

// Postgres is a StudentDirectory and Ledger backed by a pgx pool.
type Postgres struct {
	pool *pgxpool.Pool
	now  func() time.Time
}

var (
	_ core.StudentDirectory = (*Postgres)(nil)
	_ core.Ledger           = (*Postgres)(nil)
)

// NewPostgres wraps a pool.
func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{pool: pool, now: time.Now}
}

// ListActiveStudents returns active students, optionally for one branch, in
// a stable order so tie-breaks between equal matches are repeatable.
func (p *Postgres) ListActiveStudents(ctx context.Context, branchID string) ([]core.StudentIdentity, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, student_code, first_name, last_name, grade_level
		FROM students
		WHERE active AND ($1 = '' OR branch_id = $1)
		ORDER BY created_at, id`, branchID)
	if err != nil {
		return nil, fmt.Errorf("query students: %w", err)
	}

	students, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.StudentIdentity, error) {
		var (
			id pgtype.UUID
			s  core.StudentIdentity
		)
		if err := row.Scan(&id, &s.ExternalStudentCode, &s.FirstName, &s.LastName, &s.GradeLevel); err != nil {
			return s, err
		}
		s.InternalID = uuidString(id)
		return s, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan students: %w", err)
	}
	return students, nil
}

// ListEntries returns the ledger snapshot, optionally for one branch.
func (p *Postgres) ListEntries(ctx context.Context, branchID string) ([]core.LedgerEntry, error) {
	rows, err := p.pool.Query(ctx, `
		SELECT id, student_id, payment_cycle, academic_year, status, amount_paid
		FROM payment_ledger
		WHERE ($1 = '' OR branch_id = $1)
		ORDER BY created_at, id`, branchID)
	if err != nil {
		return nil, fmt.Errorf("query ledger: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (core.LedgerEntry, error) {
		var (
			id, studentID pgtype.UUID
			status        string
			amount        pgtype.Numeric
			e             core.LedgerEntry
		)
		if err := row.Scan(&id, &studentID, &e.PaymentCycle, &e.AcademicYear, &status, &amount); err != nil {
			return e, err
		}
		e.ID = uuidString(id)
		e.StudentInternalID = uuidString(studentID)
		e.Status = core.PaymentStatus(status)
		e.AmountPaid = numericToDecimal(amount)
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan ledger: %w", err)
	}
	return entries, nil
}

var ledgerColumns = []string{
	"id", "student_id", "branch_id", "payment_cycle", "academic_year",
	"amount_paid", "status", "payment_date", "notes", "created_at", "updated_at",
}

// BulkInsert copies rows into the ledger in one transaction. Either every
// row is written or none is.
func (p *Postgres) BulkInsert(ctx context.Context, rows []core.LedgerRow) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx) // no-op after commit

	now := p.now()
	src := pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
		r := rows[i]
		studentID := toPgUUID(r.StudentInternalID)
		if !studentID.Valid {
			return nil, fmt.Errorf("row %d: invalid student id %q", i, r.StudentInternalID)
		}
		return []any{
			pgtype.UUID{Bytes: uuid.New(), Valid: true},
			studentID,
			r.BranchID,
			r.PaymentCycle,
			r.AcademicYear,
			toPgNumeric(r.AmountPaid),
			string(r.Status),
			toPgDate(r.PaymentDate),
			toPgText(r.Notes),
			now,
			now,
		}, nil
	})

	if _, err := tx.CopyFrom(ctx, pgx.Identifier{"payment_ledger"}, ledgerColumns, src); err != nil {
		return fmt.Errorf("copy ledger rows: %w", err)
	}
	return tx.Commit(ctx)
}

// UpdateByID overwrites amount, status, date and notes of one entry.
func (p *Postgres) UpdateByID(ctx context.Context, id string, row core.LedgerRow) error {
	pgID := toPgUUID(id)
	if !pgID.Valid {
		return fmt.Errorf("invalid ledger id %q", id)
	}

	tag, err := p.pool.Exec(ctx, `
		UPDATE payment_ledger
		SET amount_paid = $2,
		    status = $3,
		    payment_date = COALESCE($4, payment_date),
		    notes = COALESCE($5, notes),
		    updated_at = $6
		WHERE id = $1`,
		pgID, toPgNumeric(row.AmountPaid), string(row.Status), toPgDate(row.PaymentDate), toPgText(row.Notes), p.now())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("ledger entry %s no longer exists", id)
	}
	return nil
}
