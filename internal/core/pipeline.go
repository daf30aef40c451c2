package core

// pipeline.go runs one file through the whole engine:
//
//	bytes -> ParseTable -> Normalize -> Resolve -> Classify -> Execute -> foldResult
//
// Everything runs on the caller's goroutine. The only suspension points are
// the collaborator calls.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
)

// Progress milestones.
const (
	percentFileRead   = 10
	percentLoaded     = 30
	percentClassified = 40
	percentDone       = 100
)

// Recorder receives engine metrics. See internal/metrics.
type Recorder interface {
	ImportFinished(result ImportResult, elapsed time.Duration)
	JobStarted()
	JobFinished(status JobStatus)
}

type nopRecorder struct{}

func (nopRecorder) ImportFinished(ImportResult, time.Duration) {}
func (nopRecorder) JobStarted()                                {}
func (nopRecorder) JobFinished(JobStatus)                      {}

// Pipeline holds the collaborators and configuration shared by all runs.
// A run never mutates the Pipeline.
type Pipeline struct {
	Directory  StudentDirectory
	Ledger     Ledger
	Normalizer *Normalizer
	Matchers   []NamedMatcher
	BatchSize  int
	Logger     *slog.Logger
	Recorder   Recorder
}

// NewPipeline creates a Pipeline with the default alias tables and matchers.
func NewPipeline(dir StudentDirectory, ledger Ledger) *Pipeline {
	return &Pipeline{
		Directory:  dir,
		Ledger:     ledger,
		Normalizer: NewNormalizer(DefaultAliases()),
		Matchers:   DefaultMatchers(),
		BatchSize:  DefaultBatchSize,
		Logger:     slog.Default(),
		Recorder:   nopRecorder{},
	}
}

// Run processes a file synchronously. The returned error is non-nil only for
// fatal failures (unreadable file, collaborator load failure); the result is
// populated in every case.
func (p *Pipeline) Run(ctx context.Context, file FileInput, opts ImportOptions, onProgress ProgressCallback) (ImportResult, error) {
	start := time.Now()
	logger := p.logger().With("file", file.Name, "validate_only", opts.ValidateOnly)
	report := func(pr Progress) {
		if onProgress != nil {
			onProgress(pr)
		}
	}

	finish := func(r ImportResult) ImportResult {
		r.ValidateOnly = opts.ValidateOnly
		r.ProcessingTimeMs = time.Since(start).Milliseconds()
		p.recorder().ImportFinished(r, time.Since(start))
		return r
	}

	table, err := ParseTable(file.Data, DetectMediaType(file.Name, file.ContentType))
	if err != nil {
		logger.Warn("file rejected", "error", err)
		return finish(fatalResult(err, 0)), err
	}

	normalizer := p.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer(DefaultAliases())
	}
	drafts := normalizer.Normalize(table, opts.AcademicYear)
	logger.Debug("file parsed", "rows", len(table.Rows), "drafts", len(drafts))
	report(Progress{Percent: percentFileRead, Phase: "file read", Total: len(drafts)})

	students, err := p.Directory.ListActiveStudents(ctx, opts.BranchID)
	if err != nil {
		err = fmt.Errorf("load students: %w", err)
		logger.Error("import aborted", "error", err)
		return finish(fatalResult(err, len(drafts))), err
	}
	entries, err := p.Ledger.ListEntries(ctx, opts.BranchID)
	if err != nil {
		err = fmt.Errorf("load ledger entries: %w", err)
		logger.Error("import aborted", "error", err)
		return finish(fatalResult(err, len(drafts))), err
	}
	report(Progress{Percent: percentLoaded, Phase: "students and ledger loaded", Total: len(drafts)})

	ops := Classify(drafts, NewResolver(students, p.Matchers), NewLedgerIndex(entries))
	settled := 0
	for _, op := range ops {
		if !op.Actionable() {
			settled++
		}
	}
	report(Progress{Percent: percentClassified, Phase: "rows classified", Processed: settled, Total: len(drafts)})

	exec := &BatchExecutor{
		Ledger:    p.Ledger,
		BatchSize: p.BatchSize,
		BranchID:  opts.BranchID,
		DryRun:    opts.ValidateOnly,
		Logger:    logger,
	}
	outcomes := exec.Execute(ctx, ops, func(b BatchProgress) {
		report(Progress{
			Percent:   percentClassified + (percentDone-percentClassified)*b.Committed/b.Total,
			Phase:     fmt.Sprintf("batch %d of %d committed", b.Batch, b.Batches),
			Processed: settled + b.Committed,
			Total:     len(drafts),
		})
	})

	result := finish(foldResult(outcomes))
	report(Progress{Percent: percentDone, Phase: "complete", Processed: len(drafts), Total: len(drafts)})

	logger.Info("import finished",
		"total", result.TotalRecords,
		"success", result.SuccessCount,
		"duplicates", result.DuplicateCount,
		"not_found", result.NotFoundCount,
		"errors", result.ErrorCount,
		"duration_ms", result.ProcessingTimeMs,
	)
	return result, nil
}

// Classify resolves and classifies every draft, one operation per draft.
func Classify(drafts []PaymentDraft, resolver *Resolver, index *LedgerIndex) []ResolvedOperation {
	ops := make([]ResolvedOperation, 0, len(drafts))
	for _, d := range drafts {
		student, _, err := resolver.Resolve(d)
		if err != nil {
			ops = append(ops, ErrorOp(d, err))
			continue
		}
		ops = append(ops, index.Classify(student, d))
	}
	return ops
}

// foldResult builds the result from row outcomes without side effects.
func foldResult(outcomes []RowOutcome) ImportResult {
	r := ImportResult{
		TotalRecords: len(outcomes),
		Errors:       []ImportError{},
		Operations:   []OperationAudit{},
		Summary: ImportSummary{
			TotalAmountProcessed: decimal.Zero,
			CyclesProcessed:      []string{},
		},
	}
	cycles := make(map[string]bool)

	for _, o := range outcomes {
		op := o.Op
		switch {
		case op.Kind == OpSkip:
			r.DuplicateCount++

		case op.Kind == OpError:
			r.ErrorCount++
			if op.NotFound() {
				r.NotFoundCount++
			}
			r.Errors = append(r.Errors, rowError(op, op.Reason))

		case !o.Committed:
			r.ErrorCount++
			r.Errors = append(r.Errors, rowError(op, o.Failure))

		default:
			r.SuccessCount++
			r.Operations = append(r.Operations, auditEntry(op))
			r.Summary.StudentsUpdated++
			r.Summary.TotalAmountProcessed = r.Summary.TotalAmountProcessed.Add(op.Draft.AmountPaid)
			if !cycles[op.Draft.PaymentCycle] {
				cycles[op.Draft.PaymentCycle] = true
				r.Summary.CyclesProcessed = append(r.Summary.CyclesProcessed, op.Draft.PaymentCycle)
			}
		}
	}

	switch {
	case r.TotalRecords > 0 && r.ErrorCount == r.TotalRecords:
		r.Status = ResultError
	case r.ErrorCount > 0:
		r.Status = ResultPartial
	default:
		r.Status = ResultSuccess
	}
	return r
}

func rowError(op ResolvedOperation, msg string) ImportError {
	return ImportError{
		RowIndex:    op.Draft.RowIndex,
		StudentCode: op.Draft.StudentID,
		StudentName: op.Draft.StudentName,
		Message:     msg,
		Severity:    SeverityError,
	}
}

func auditEntry(op ResolvedOperation) OperationAudit {
	a := OperationAudit{
		RowIndex:       op.Draft.RowIndex,
		Type:           "update",
		StudentID:      op.Student.InternalID,
		StudentName:    op.Student.FullName(),
		PaymentCycle:   op.Draft.PaymentCycle,
		NewStatus:      StatusPaid,
		PreviousAmount: decimal.Zero,
		NewAmount:      op.Draft.AmountPaid,
	}
	if op.Existing != nil {
		a.PreviousStatus = op.Existing.Status
		a.PreviousAmount = op.Existing.AmountPaid
	}
	return a
}

// fatalResult is the result of a job that failed before any commit.
func fatalResult(err error, total int) ImportResult {
	return ImportResult{
		Status:       ResultError,
		TotalRecords: total,
		Errors: []ImportError{{
			Message:  err.Error(),
			Severity: SeverityError,
		}},
		Operations: []OperationAudit{},
		Summary: ImportSummary{
			TotalAmountProcessed: decimal.Zero,
			CyclesProcessed:      []string{},
		},
	}
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.Default()
	}
	return p.Logger
}

func (p *Pipeline) recorder() Recorder {
	if p.Recorder == nil {
		return nopRecorder{}
	}
	return p.Recorder
}
