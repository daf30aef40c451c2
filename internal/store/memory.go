package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/feerecon/internal/core"
)

// Memory is an in-process StudentDirectory and Ledger.
type Memory struct {
	mu       sync.RWMutex
	students []memStudent
	entries  []memEntry
}

type memStudent struct {
	core.StudentIdentity
	BranchID string
	Active   bool
}

type memEntry struct {
	core.LedgerEntry
	Row core.LedgerRow
}

var (
	_ core.StudentDirectory = (*Memory)(nil)
	_ core.Ledger           = (*Memory)(nil)
)

// NewMemory creates an empty store.
func NewMemory() *Memory {
	return &Memory{}
}

// AddStudent registers an active student. An empty InternalID is generated.
func (m *Memory) AddStudent(branchID string, s core.StudentIdentity) core.StudentIdentity {
	if s.InternalID == "" {
		s.InternalID = uuid.NewString()
	}
	m.mu.Lock()
	m.students = append(m.students, memStudent{StudentIdentity: s, BranchID: branchID, Active: true})
	m.mu.Unlock()
	return s
}

// Deactivate hides a student from ListActiveStudents.
func (m *Memory) Deactivate(internalID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.students {
		if m.students[i].InternalID == internalID {
			m.students[i].Active = false
		}
	}
}

// AddEntry seeds an existing ledger entry. An empty ID is generated.
func (m *Memory) AddEntry(branchID string, e core.LedgerEntry) core.LedgerEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	m.mu.Lock()
	m.entries = append(m.entries, memEntry{LedgerEntry: e, Row: core.LedgerRow{BranchID: branchID}})
	m.mu.Unlock()
	return e
}

func (m *Memory) ListActiveStudents(ctx context.Context, branchID string) ([]core.StudentIdentity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.StudentIdentity
	for _, s := range m.students {
		if s.Active && (branchID == "" || s.BranchID == branchID) {
			out = append(out, s.StudentIdentity)
		}
	}
	return out, nil
}

func (m *Memory) ListEntries(ctx context.Context, branchID string) ([]core.LedgerEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []core.LedgerEntry
	for _, e := range m.entries {
		if branchID == "" || e.Row.BranchID == branchID {
			out = append(out, e.LedgerEntry)
		}
	}
	return out, nil
}

func (m *Memory) BulkInsert(ctx context.Context, rows []core.LedgerRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range rows {
		m.entries = append(m.entries, memEntry{
			LedgerEntry: core.LedgerEntry{
				ID:                uuid.NewString(),
				StudentInternalID: r.StudentInternalID,
				PaymentCycle:      r.PaymentCycle,
				AcademicYear:      r.AcademicYear,
				Status:            r.Status,
				AmountPaid:        r.AmountPaid,
			},
			Row: r,
		})
	}
	return nil
}

func (m *Memory) UpdateByID(ctx context.Context, id string, row core.LedgerRow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := range m.entries {
		if m.entries[i].ID != id {
			continue
		}
		m.entries[i].Status = row.Status
		m.entries[i].AmountPaid = row.AmountPaid
		branch := m.entries[i].Row.BranchID
		m.entries[i].Row = row
		if row.BranchID == "" {
			m.entries[i].Row.BranchID = branch
		}
		return nil
	}
	return fmt.Errorf("ledger entry %s no longer exists", id)
}

// Entries returns a copy of every ledger entry.
func (m *Memory) Entries() []core.LedgerEntry {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]core.LedgerEntry, len(m.entries))
	for i, e := range m.entries {
		out[i] = e.LedgerEntry
	}
	return out
}
