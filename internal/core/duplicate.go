package core

// ReasonAlreadyPaid is the skip reason for drafts whose ledger entry is paid.
const ReasonAlreadyPaid = "already paid"

type ledgerKey struct {
	student string
	cycle   string
	year    string
}

// LedgerIndex answers duplicate lookups against the snapshot loaded at job
// start. It never re-queries, so writes by other jobs are invisible to it.
type LedgerIndex struct {
	entries map[ledgerKey]LedgerEntry
}

// NewLedgerIndex indexes entries by (student, cycle, academic year).
// The first entry for a key wins.
func NewLedgerIndex(entries []LedgerEntry) *LedgerIndex {
	idx := &LedgerIndex{entries: make(map[ledgerKey]LedgerEntry, len(entries))}
	for _, e := range entries {
		k := ledgerKey{e.StudentInternalID, e.PaymentCycle, e.AcademicYear}
		if _, ok := idx.entries[k]; !ok {
			idx.entries[k] = e
		}
	}
	return idx
}

// Lookup returns the snapshot entry for a student, cycle and year.
func (x *LedgerIndex) Lookup(studentID, cycle, year string) (LedgerEntry, bool) {
	e, ok := x.entries[ledgerKey{studentID, cycle, year}]
	return e, ok
}

// Len returns the number of indexed keys.
func (x *LedgerIndex) Len() int { return len(x.entries) }

// Classify decides what to do with a resolved draft: skip a paid entry,
// update an unpaid one, or insert when none exists.
func (x *LedgerIndex) Classify(student StudentIdentity, d PaymentDraft) ResolvedOperation {
	existing, ok := x.Lookup(student.InternalID, d.PaymentCycle, d.AcademicYear)
	switch {
	case !ok:
		return InsertOp(d, student)
	case existing.Status == StatusPaid:
		return SkipOp(d, student, ReasonAlreadyPaid)
	default:
		return UpdateOp(d, student, existing)
	}
}
