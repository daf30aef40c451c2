package core

import "errors"

// OpKind tags a ResolvedOperation.
type OpKind int

const (
	OpInsert OpKind = iota
	OpUpdate
	OpSkip
	OpError
)

func (k OpKind) String() string {
	switch k {
	case OpInsert:
		return "insert"
	case OpUpdate:
		return "update"
	case OpSkip:
		return "skip"
	case OpError:
		return "error"
	default:
		return "unknown"
	}
}

// ResolvedOperation is the classification of one draft. Exactly one is
// produced per draft and it is consumed once by the BatchExecutor.
type ResolvedOperation struct {
	Kind    OpKind
	Draft   PaymentDraft
	Student StudentIdentity // zero for OpError
	// Existing is the snapshot entry an OpUpdate targets.
	Existing *LedgerEntry
	Reason   string
	Err      error
}

// InsertOp creates a new ledger entry for the draft.
func InsertOp(d PaymentDraft, s StudentIdentity) ResolvedOperation {
	return ResolvedOperation{Kind: OpInsert, Draft: d, Student: s}
}

// UpdateOp overwrites an existing unpaid entry.
func UpdateOp(d PaymentDraft, s StudentIdentity, existing LedgerEntry) ResolvedOperation {
	return ResolvedOperation{Kind: OpUpdate, Draft: d, Student: s, Existing: &existing}
}

// SkipOp records a draft that needs no write.
func SkipOp(d PaymentDraft, s StudentIdentity, reason string) ResolvedOperation {
	return ResolvedOperation{Kind: OpSkip, Draft: d, Student: s, Reason: reason}
}

// ErrorOp records a draft that cannot be committed.
func ErrorOp(d PaymentDraft, err error) ResolvedOperation {
	return ResolvedOperation{Kind: OpError, Draft: d, Reason: err.Error(), Err: err}
}

// EntryID is the ledger identity targeted by an update.
func (op ResolvedOperation) EntryID() string {
	if op.Existing == nil {
		return ""
	}
	return op.Existing.ID
}

// Actionable reports whether the operation writes to the ledger.
func (op ResolvedOperation) Actionable() bool {
	return op.Kind == OpInsert || op.Kind == OpUpdate
}

// NotFound reports whether the draft failed student resolution.
func (op ResolvedOperation) NotFound() bool {
	return op.Kind == OpError && errors.Is(op.Err, ErrStudentNotFound)
}

// RowOutcome is the terminal state of one draft after the commit phase.
type RowOutcome struct {
	Op ResolvedOperation
	// Committed is true when an actionable op was written (or would have
	// been, in a dry run).
	Committed bool
	// Failure holds the commit error message for actionable ops that failed.
	Failure string
}
