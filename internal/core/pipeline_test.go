package core

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/smartystreets/goconvey/convey"
)

func newTestPipeline(dir StudentDirectory, ledger Ledger) *Pipeline {
	p := NewPipeline(dir, ledger)
	p.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	return p
}

func csvFile(body string) FileInput {
	return FileInput{Name: "payments.csv", ContentType: "text/csv", Data: []byte(body)}
}

func TestPipelineScenarios(t *testing.T) {
	ctx := context.Background()
	opts := ImportOptions{AcademicYear: "2024"}

	convey.Convey("Given a directory with one active student STU001", t, func() {
		dir := &fakeDirectory{students: []StudentIdentity{
			{InternalID: "s-1", ExternalStudentCode: "STU001", FirstName: "Juan", LastName: "Cruz"},
		}}
		ledger := &fakeLedger{}
		p := newTestPipeline(dir, ledger)

		convey.Convey("When the file has a valid row and a negative amount row", func() {
			file := csvFile("Student ID,Payment Cycle,Amount\nSTU001,Tuition,1000\nSTU002,Lab Fee,-5\n")
			result, err := p.Run(ctx, file, opts, nil)

			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the negative row is pre-filtered and the valid row inserted", func() {
				convey.So(result.TotalRecords, convey.ShouldEqual, 1)
				convey.So(result.SuccessCount, convey.ShouldEqual, 1)
				convey.So(result.Status, convey.ShouldEqual, ResultSuccess)
				convey.So(ledger.insertCalls, convey.ShouldHaveLength, 1)
				convey.So(ledger.insertCalls[0][0].StudentInternalID, convey.ShouldEqual, "s-1")
				convey.So(ledger.insertCalls[0][0].AmountPaid.Equal(decimal.NewFromInt(1000)), convey.ShouldBeTrue)
			})

			convey.Convey("And the audit trail and summary describe the commit", func() {
				convey.So(result.Operations, convey.ShouldHaveLength, 1)
				op := result.Operations[0]
				convey.So(op.Type, convey.ShouldEqual, "update")
				convey.So(op.RowIndex, convey.ShouldEqual, 1)
				convey.So(op.NewStatus, convey.ShouldEqual, StatusPaid)
				convey.So(op.PreviousStatus, convey.ShouldEqual, PaymentStatus(""))
				convey.So(result.Summary.StudentsUpdated, convey.ShouldEqual, 1)
				convey.So(result.Summary.CyclesProcessed, convey.ShouldResemble, []string{"tuition"})
				convey.So(result.Summary.TotalAmountProcessed.Equal(decimal.NewFromInt(1000)), convey.ShouldBeTrue)
			})

			convey.Convey("And running the same file again only finds duplicates", func() {
				again, err := p.Run(ctx, file, opts, nil)
				convey.So(err, convey.ShouldBeNil)
				convey.So(again.DuplicateCount, convey.ShouldEqual, again.TotalRecords)
				convey.So(again.SuccessCount, convey.ShouldEqual, 0)
				convey.So(ledger.insertCalls, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the file names a student code not in the directory", func() {
			result, err := p.Run(ctx, csvFile("Student ID,Payment Cycle,Amount\nSTU404,Annual,500\n"), opts, nil)

			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the row is an error counted as not found", func() {
				convey.So(result.NotFoundCount, convey.ShouldEqual, 1)
				convey.So(result.ErrorCount, convey.ShouldEqual, 1)
				convey.So(result.SuccessCount, convey.ShouldEqual, 0)
				convey.So(result.Status, convey.ShouldEqual, ResultError)
				convey.So(result.Errors, convey.ShouldHaveLength, 1)
				convey.So(result.Errors[0].Severity, convey.ShouldEqual, SeverityError)
				convey.So(result.Errors[0].RowIndex, convey.ShouldEqual, 1)
				convey.So(result.Errors[0].StudentCode, convey.ShouldEqual, "STU404")
			})
		})

		convey.Convey("When the ledger already holds a paid entry for the same student, cycle and year", func() {
			ledger.entries = []LedgerEntry{
				{ID: "e-1", StudentInternalID: "s-1", PaymentCycle: "annual", AcademicYear: "2024", Status: StatusPaid},
			}
			result, err := p.Run(ctx, csvFile("Student ID,Payment Cycle,Amount\nSTU001,Annual,500\n"), opts, nil)

			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then the row is skipped and no commit call is issued", func() {
				convey.So(result.DuplicateCount, convey.ShouldEqual, 1)
				convey.So(result.Status, convey.ShouldEqual, ResultSuccess)
				inserts, updates := ledger.calls()
				convey.So(inserts, convey.ShouldEqual, 0)
				convey.So(updates, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the ledger holds a partial entry", func() {
			ledger.entries = []LedgerEntry{
				{ID: "e-9", StudentInternalID: "s-1", PaymentCycle: "1st_quarter", AcademicYear: "2024", Status: StatusPartial, AmountPaid: decimal.NewFromInt(200)},
			}
			result, _ := p.Run(ctx, csvFile("Student Code,Cycle,Amount Paid\nSTU001,Q1,\"$1,000.00\"\n"), opts, nil)

			convey.Convey("Then the entry is updated and the audit keeps the previous state", func() {
				convey.So(ledger.updateCalls, convey.ShouldResemble, []string{"e-9"})
				convey.So(result.SuccessCount, convey.ShouldEqual, 1)
				op := result.Operations[0]
				convey.So(op.PreviousStatus, convey.ShouldEqual, StatusPartial)
				convey.So(op.PreviousAmount.Equal(decimal.NewFromInt(200)), convey.ShouldBeTrue)
				convey.So(op.NewAmount.Equal(decimal.NewFromInt(1000)), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When validateOnly is set", func() {
			dry := opts
			dry.ValidateOnly = true
			result, err := p.Run(ctx, csvFile("Student ID,Payment Cycle,Amount\nSTU001,Annual,500\n"), dry, nil)

			convey.Convey("Then rows are classified but the ledger is untouched", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.ValidateOnly, convey.ShouldBeTrue)
				convey.So(result.SuccessCount, convey.ShouldEqual, 1)
				inserts, updates := ledger.calls()
				convey.So(inserts+updates, convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When one batch insert fails", func() {
			ledger.insertErr = errors.New("connection reset by peer")
			result, err := p.Run(ctx, csvFile("Student ID,Payment Cycle,Amount\nSTU001,Annual,500\nSTU404,Annual,10\n"), opts, nil)

			convey.Convey("Then the job still completes with row errors", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(result.ErrorCount, convey.ShouldEqual, 2)
				convey.So(result.NotFoundCount, convey.ShouldEqual, 1)
				convey.So(result.Accounted(), convey.ShouldEqual, result.TotalRecords)
			})
		})
	})
}

func TestPipelineFatalErrors(t *testing.T) {
	ctx := context.Background()

	convey.Convey("Given a pipeline", t, func() {
		convey.Convey("When the file type is unsupported", func() {
			p := newTestPipeline(&fakeDirectory{}, &fakeLedger{})
			result, err := p.Run(ctx, FileInput{Name: "scan.pdf", Data: []byte("%PDF")}, ImportOptions{}, nil)

			convey.So(err, convey.ShouldNotBeNil)
			var pe *ParseError
			convey.So(errors.As(err, &pe), convey.ShouldBeTrue)
			convey.So(result.Status, convey.ShouldEqual, ResultError)
			convey.So(result.Errors, convey.ShouldHaveLength, 1)
		})

		convey.Convey("When the student directory is down", func() {
			p := newTestPipeline(&fakeDirectory{err: errors.New("connection refused")}, &fakeLedger{})
			result, err := p.Run(ctx, csvFile("Student ID,Payment Cycle,Amount\nSTU001,Annual,500\n"), ImportOptions{}, nil)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load students")
			convey.So(result.TotalRecords, convey.ShouldEqual, 1)
			convey.So(result.Status, convey.ShouldEqual, ResultError)
		})

		convey.Convey("When the ledger cannot be read", func() {
			p := newTestPipeline(&fakeDirectory{students: testStudents()}, &fakeLedger{listErr: errors.New("timeout")})
			_, err := p.Run(ctx, csvFile("Student ID,Payment Cycle,Amount\nSTU001,Annual,500\n"), ImportOptions{}, nil)

			convey.So(err, convey.ShouldNotBeNil)
			convey.So(err.Error(), convey.ShouldContainSubstring, "load ledger entries")
		})
	})
}

func TestPipelineProgress(t *testing.T) {
	p := newTestPipeline(&fakeDirectory{students: testStudents()}, &fakeLedger{})
	p.BatchSize = 1

	var seen []Progress
	_, err := p.Run(context.Background(),
		csvFile("Student ID,Payment Cycle,Amount\nSTU001,Annual,1\nSTU002,Annual,2\nSTU999,Annual,3\n"),
		ImportOptions{}, func(pr Progress) { seen = append(seen, pr) })
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []int{10, 30, 40, 70, 100, 100}
	if len(seen) != len(want) {
		t.Fatalf("progress = %+v", seen)
	}
	for i, pct := range want {
		if seen[i].Percent != pct {
			t.Errorf("milestone %d = %d%%, want %d%%", i, seen[i].Percent, pct)
		}
		if i > 0 && seen[i].Processed < seen[i-1].Processed {
			t.Errorf("processed went backwards at milestone %d", i)
		}
	}
	if seen[2].Processed != 1 {
		t.Errorf("classified milestone should count the not-found row, got %d", seen[2].Processed)
	}
}

func TestFoldResult_Partition(t *testing.T) {
	d := PaymentDraft{PaymentCycle: "annual", AmountPaid: decimal.NewFromInt(10)}
	s := StudentIdentity{InternalID: "s-1"}
	outcomes := []RowOutcome{
		{Op: InsertOp(d, s), Committed: true},
		{Op: InsertOp(d, s), Failure: "bulk insert: boom"},
		{Op: SkipOp(d, s, ReasonAlreadyPaid)},
		{Op: ErrorOp(d, ErrStudentNotFound)},
	}

	r := foldResult(outcomes)

	if r.TotalRecords != 4 || r.SuccessCount != 1 || r.DuplicateCount != 1 || r.ErrorCount != 2 || r.NotFoundCount != 1 {
		t.Errorf("counts = %+v", r)
	}
	if r.Accounted() != r.TotalRecords {
		t.Errorf("Accounted = %d, want %d", r.Accounted(), r.TotalRecords)
	}
	if r.Status != ResultPartial {
		t.Errorf("Status = %s, want partial", r.Status)
	}
}

func TestFoldResult_Empty(t *testing.T) {
	r := foldResult(nil)
	if r.Status != ResultSuccess || r.TotalRecords != 0 {
		t.Errorf("empty fold = %+v", r)
	}
	if r.Errors == nil || r.Operations == nil || r.Summary.CyclesProcessed == nil {
		t.Error("slices should be non-nil so they encode as []")
	}
}
