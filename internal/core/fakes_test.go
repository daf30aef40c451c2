package core

import (
	"context"
	"fmt"
	"sync"
)

type fakeDirectory struct {
	students []StudentIdentity
	err      error
}

func (d *fakeDirectory) ListActiveStudents(ctx context.Context, branchID string) ([]StudentIdentity, error) {
	if d.err != nil {
		return nil, d.err
	}
	return d.students, nil
}

// fakeLedger is an in-memory Ledger that records every call.
type fakeLedger struct {
	mu      sync.Mutex
	entries []LedgerEntry
	nextID  int

	insertCalls [][]LedgerRow
	updateCalls []string

	listErr   error
	insertErr error
	updateErr map[string]error

	// afterInsert runs after every successful BulkInsert.
	afterInsert func()
}

func (l *fakeLedger) ListEntries(ctx context.Context, branchID string) ([]LedgerEntry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.listErr != nil {
		return nil, l.listErr
	}
	return append([]LedgerEntry(nil), l.entries...), nil
}

func (l *fakeLedger) BulkInsert(ctx context.Context, rows []LedgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.insertCalls = append(l.insertCalls, rows)
	if err := ctx.Err(); err != nil {
		return err
	}
	if l.insertErr != nil {
		return l.insertErr
	}
	if l.afterInsert != nil {
		defer l.afterInsert()
	}
	for _, r := range rows {
		l.nextID++
		l.entries = append(l.entries, LedgerEntry{
			ID:                fmt.Sprintf("L-%d", l.nextID),
			StudentInternalID: r.StudentInternalID,
			PaymentCycle:      r.PaymentCycle,
			AcademicYear:      r.AcademicYear,
			Status:            r.Status,
			AmountPaid:        r.AmountPaid,
		})
	}
	return nil
}

func (l *fakeLedger) UpdateByID(ctx context.Context, id string, row LedgerRow) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.updateCalls = append(l.updateCalls, id)
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := l.updateErr[id]; err != nil {
		return err
	}
	for i := range l.entries {
		if l.entries[i].ID == id {
			l.entries[i].Status = row.Status
			l.entries[i].AmountPaid = row.AmountPaid
			return nil
		}
	}
	return fmt.Errorf("no ledger entry %s", id)
}

func (l *fakeLedger) calls() (inserts, updates int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.insertCalls), len(l.updateCalls)
}

func testStudents() []StudentIdentity {
	return []StudentIdentity{
		{InternalID: "s-1", ExternalStudentCode: "STU001", FirstName: "Juan", LastName: "Cruz", GradeLevel: "Grade 1"},
		{InternalID: "s-2", ExternalStudentCode: "STU002", FirstName: "Maria", LastName: "Santos", GradeLevel: "Grade 2"},
		{InternalID: "s-3", ExternalStudentCode: "STU003", FirstName: "Juan", LastName: "Cruz", GradeLevel: "Grade 5"},
	}
}
