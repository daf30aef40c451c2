package core

// batch.go commits classified operations.
//
// Actionable operations (inserts and updates) are cut into fixed-size batches
// in file order and committed one batch at a time:
//
//  1. all inserts of the batch go out as a single BulkInsert call
//  2. each update goes out as its own UpdateByID call
//
// A failed call turns every operation in that call into a row error and the
// executor moves on. Skips and resolution errors never reach the ledger.

import (
	"context"
	"fmt"
	"log/slog"
)

// DefaultBatchSize is the number of actionable rows committed per batch.
const DefaultBatchSize = 50

// BatchProgress is reported after every batch.
type BatchProgress struct {
	Batch     int // 1-based
	Batches   int
	Committed int // actionable rows handled so far, successful or not
	Total     int // actionable rows overall
}

// BatchExecutor writes operations to the ledger.
type BatchExecutor struct {
	Ledger    LedgerWriter
	BatchSize int
	BranchID  string
	// DryRun classifies and reports without calling the ledger.
	DryRun bool
	Logger *slog.Logger
}

// Execute commits ops strictly sequentially and returns one outcome per op,
// in the same order. onBatch may be nil.
func (e *BatchExecutor) Execute(ctx context.Context, ops []ResolvedOperation, onBatch func(BatchProgress)) []RowOutcome {
	size := e.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}
	logger := e.Logger
	if logger == nil {
		logger = slog.Default()
	}

	outcomes := make([]RowOutcome, len(ops))
	var pending []int
	for i, op := range ops {
		outcomes[i] = RowOutcome{Op: op}
		if op.Actionable() {
			pending = append(pending, i)
		}
	}

	batches := (len(pending) + size - 1) / size
	seen := make(map[ledgerKey]int)

	for b := 0; b < batches; b++ {
		start := b * size
		end := min(start+size, len(pending))
		batch := pending[start:end]

		for _, i := range batch {
			op := ops[i]
			if op.Kind != OpInsert {
				continue
			}
			k := ledgerKey{op.Student.InternalID, op.Draft.PaymentCycle, op.Draft.AcademicYear}
			if prev, dup := seen[k]; dup {
				logger.Warn("file contains a repeated insert for the same student and cycle",
					"row", op.Draft.RowIndex,
					"first_row", prev,
					"student_id", op.Student.InternalID,
					"cycle", op.Draft.PaymentCycle,
				)
				continue
			}
			seen[k] = op.Draft.RowIndex
		}

		e.commitBatch(ctx, ops, outcomes, batch, logger)

		if onBatch != nil {
			onBatch(BatchProgress{Batch: b + 1, Batches: batches, Committed: end, Total: len(pending)})
		}
	}

	return outcomes
}

func (e *BatchExecutor) commitBatch(ctx context.Context, ops []ResolvedOperation, outcomes []RowOutcome, batch []int, logger *slog.Logger) {
	var inserts []int
	var rows []LedgerRow
	for _, i := range batch {
		if ops[i].Kind == OpInsert {
			inserts = append(inserts, i)
			rows = append(rows, e.ledgerRow(ops[i]))
		}
	}

	if len(inserts) > 0 {
		var err error
		if !e.DryRun {
			err = e.Ledger.BulkInsert(ctx, rows)
		}
		for _, i := range inserts {
			if err != nil {
				outcomes[i].Failure = fmt.Sprintf("bulk insert: %v", err)
			} else {
				outcomes[i].Committed = true
			}
		}
		if err != nil {
			logger.Error("bulk insert failed", "rows", len(inserts), "error", err)
		}
	}

	for _, i := range batch {
		op := ops[i]
		if op.Kind != OpUpdate {
			continue
		}
		if !e.DryRun {
			if err := e.Ledger.UpdateByID(ctx, op.EntryID(), e.ledgerRow(op)); err != nil {
				outcomes[i].Failure = fmt.Sprintf("update %s: %v", op.EntryID(), err)
				logger.Error("ledger update failed", "row", op.Draft.RowIndex, "entry_id", op.EntryID(), "error", err)
				continue
			}
		}
		outcomes[i].Committed = true
	}
}

func (e *BatchExecutor) ledgerRow(op ResolvedOperation) LedgerRow {
	return LedgerRow{
		StudentInternalID: op.Student.InternalID,
		BranchID:          e.BranchID,
		PaymentCycle:      op.Draft.PaymentCycle,
		AcademicYear:      op.Draft.AcademicYear,
		AmountPaid:        op.Draft.AmountPaid,
		Status:            StatusPaid,
		PaymentDate:       op.Draft.PaymentDate,
		Notes:             op.Draft.Notes,
	}
}
