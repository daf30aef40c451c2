// Package core provides the reconciliation engine for bulk fee-payment imports.
// This package has no transport dependencies and can be used by any frontend.
package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PaymentStatus is the status of a ledger entry.
type PaymentStatus string

const (
	StatusPending PaymentStatus = "pending"
	StatusPartial PaymentStatus = "partial"
	StatusPaid    PaymentStatus = "paid"
	StatusOverdue PaymentStatus = "overdue"
)

// PaymentDraft is one normalized row of an uploaded payment file.
// It is not yet matched to a student.
type PaymentDraft struct {
	RowIndex     int // 1-based position among the file's data rows
	StudentID    string
	StudentName  string
	GradeLevel   string
	PaymentCycle string
	AmountPaid   decimal.Decimal
	AcademicYear string
	PaymentDate  string
	Notes        string
}

// StudentIdentity is a read-only view of a student from the directory.
type StudentIdentity struct {
	InternalID          string `json:"internalId"`
	ExternalStudentCode string `json:"externalStudentCode"`
	FirstName           string `json:"firstName"`
	LastName            string `json:"lastName"`
	GradeLevel          string `json:"gradeLevel"`
}

// FullName returns "first last".
func (s StudentIdentity) FullName() string {
	switch {
	case s.FirstName == "":
		return s.LastName
	case s.LastName == "":
		return s.FirstName
	}
	return s.FirstName + " " + s.LastName
}

// LedgerEntry is a snapshot of an existing payment record, loaded once per job.
type LedgerEntry struct {
	ID                string          `json:"id"`
	StudentInternalID string          `json:"studentInternalId"`
	PaymentCycle      string          `json:"paymentCycle"`
	AcademicYear      string          `json:"academicYear"`
	Status            PaymentStatus   `json:"status"`
	AmountPaid        decimal.Decimal `json:"amountPaid"`
}

// LedgerRow is the payload written to the ledger for an insert or update.
type LedgerRow struct {
	StudentInternalID string
	BranchID          string
	PaymentCycle      string
	AcademicYear      string
	AmountPaid        decimal.Decimal
	Status            PaymentStatus
	PaymentDate       string
	Notes             string
}

// StudentDirectory lists the students a job may match against.
type StudentDirectory interface {
	ListActiveStudents(ctx context.Context, branchID string) ([]StudentIdentity, error)
}

// LedgerReader loads the ledger snapshot used for duplicate detection.
type LedgerReader interface {
	ListEntries(ctx context.Context, branchID string) ([]LedgerEntry, error)
}

// LedgerWriter commits classified rows.
type LedgerWriter interface {
	BulkInsert(ctx context.Context, rows []LedgerRow) error
	UpdateByID(ctx context.Context, id string, row LedgerRow) error
}

// Ledger is the full ledger collaborator.
type Ledger interface {
	LedgerReader
	LedgerWriter
}

// Severity classifies an ImportError.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// ImportError describes a row that did not commit, or a fatal job failure.
// RowIndex is 0 for file-level errors.
type ImportError struct {
	RowIndex    int      `json:"rowIndex"`
	StudentCode string   `json:"studentCode,omitempty"`
	StudentName string   `json:"studentName,omitempty"`
	Message     string   `json:"message"`
	Severity    Severity `json:"severity"`
}

// OperationAudit records one committed row.
type OperationAudit struct {
	RowIndex       int             `json:"rowIndex"`
	Type           string          `json:"type"`
	StudentID      string          `json:"studentId"`
	StudentName    string          `json:"studentName"`
	PaymentCycle   string          `json:"paymentCycle"`
	PreviousStatus PaymentStatus   `json:"previousStatus,omitempty"`
	NewStatus      PaymentStatus   `json:"newStatus"`
	PreviousAmount decimal.Decimal `json:"previousAmount"`
	NewAmount      decimal.Decimal `json:"newAmount"`
}

// ImportSummary aggregates committed rows.
type ImportSummary struct {
	StudentsUpdated      int             `json:"studentsUpdated"`
	TotalAmountProcessed decimal.Decimal `json:"totalAmountProcessed"`
	CyclesProcessed      []string        `json:"cyclesProcessed"`
}

// ResultStatus is the overall outcome of a processed file.
type ResultStatus string

const (
	ResultSuccess ResultStatus = "success"
	ResultPartial ResultStatus = "partial"
	ResultError   ResultStatus = "error"
)

// ImportResult is the complete row-level accounting of one processed file.
type ImportResult struct {
	Status           ResultStatus     `json:"status"`
	ValidateOnly     bool             `json:"validateOnly"`
	TotalRecords     int              `json:"totalRecords"`
	SuccessCount     int              `json:"successCount"`
	ErrorCount       int              `json:"errorCount"`
	NotFoundCount    int              `json:"notFoundCount"`
	DuplicateCount   int              `json:"duplicateCount"`
	ProcessingTimeMs int64            `json:"processingTimeMs"`
	Errors           []ImportError    `json:"errors"`
	Operations       []OperationAudit `json:"operations"`
	Summary          ImportSummary    `json:"summary"`
}

// Accounted returns the number of rows with a terminal classification.
// NotFoundCount is a subset of ErrorCount and is not added again.
func (r ImportResult) Accounted() int {
	return r.SuccessCount + r.DuplicateCount + r.ErrorCount
}

// ImportOptions are supplied with each uploaded file.
type ImportOptions struct {
	ValidateOnly bool   `json:"validateOnly"`
	BranchID     string `json:"branchId,omitempty"`
	AcademicYear string `json:"academicYear,omitempty"`
}

// FileInput is an uploaded file.
type FileInput struct {
	Name        string
	ContentType string
	Data        []byte
}

// JobStatus is the lifecycle state of an asynchronous import.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ImportJob is the pollable state of an asynchronous import.
type ImportJob struct {
	ID                string        `json:"id"`
	FileName          string        `json:"fileName"`
	Status            JobStatus     `json:"status"`
	TotalRecords      int           `json:"totalRecords"`
	ProcessedRecords  int           `json:"processedRecords"`
	SuccessfulImports int           `json:"successfulImports"`
	FailedImports     int           `json:"failedImports"`
	ErrorSummary      []ImportError `json:"errorSummary"`
	Result            *ImportResult `json:"result,omitempty"`
	CreatedAt         time.Time     `json:"createdAt"`
	UpdatedAt         time.Time     `json:"updatedAt"`
	CompletedAt       *time.Time    `json:"completedAt,omitempty"`
}

// Progress is reported at fixed milestones while a file is processed.
type Progress struct {
	Percent int
	Phase   string
	// Processed counts classified rows whose batch has finished.
	Processed int
	Total     int
}

// ProgressCallback is called at each milestone.
type ProgressCallback func(Progress)
