package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/JonMunkholm/feerecon/internal/core"
)

func renderString(t *testing.T, job core.ImportJob) string {
	t.Helper()
	var buf bytes.Buffer
	if err := JobStatusCard(job).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	return buf.String()
}

// =============================================================================
// JobStatusCard
// =============================================================================

func TestJobStatusCard_Polling(t *testing.T) {
	tests := []struct {
		name     string
		status   core.JobStatus
		wantPoll bool
	}{
		{"pending polls", core.JobPending, true},
		{"processing polls", core.JobProcessing, true},
		{"completed stops", core.JobCompleted, false},
		{"failed stops", core.JobFailed, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			html := renderString(t, core.ImportJob{ID: "job-1", Status: tt.status, FileName: "payments.csv"})

			if got := strings.Contains(html, `hx-trigger="every 2s"`); got != tt.wantPoll {
				t.Errorf("polling = %v, want %v: %s", got, tt.wantPoll, html)
			}
			if tt.wantPoll && !strings.Contains(html, `hx-get="/imports/job-1"`) {
				t.Errorf("missing poll url: %s", html)
			}
			if !strings.Contains(html, `data-status="`+string(tt.status)+`"`) {
				t.Errorf("missing status attribute: %s", html)
			}
		})
	}
}

func TestJobStatusCard_CompletedCounts(t *testing.T) {
	job := core.ImportJob{
		ID:                "job-2",
		Status:            core.JobCompleted,
		FileName:          "payments.csv",
		TotalRecords:      3,
		ProcessedRecords:  3,
		SuccessfulImports: 1,
		FailedImports:     1,
		Result:            &core.ImportResult{DuplicateCount: 1, NotFoundCount: 1},
		ErrorSummary: []core.ImportError{
			{RowIndex: 3, StudentCode: "STU404", Message: "student not found", Severity: core.SeverityError},
		},
	}

	html := renderString(t, job)
	for _, want := range []string{
		`value="100"`,
		"Imported: 1",
		"Failed: 1",
		"Already paid: 1",
		"Student not found: 1",
		"<td>3</td><td>STU404</td>",
		core.RowErrorCode(job.ErrorSummary[0]),
	} {
		if !strings.Contains(html, want) {
			t.Errorf("fragment missing %q: %s", want, html)
		}
	}
}

func TestJobStatusCard_EscapesCells(t *testing.T) {
	job := core.ImportJob{
		ID:       "job-3",
		Status:   core.JobFailed,
		FileName: "<b>evil</b>.csv",
		ErrorSummary: []core.ImportError{
			{Message: `<script>alert("x")</script>`, Severity: core.SeverityError},
		},
	}

	html := renderString(t, job)
	if strings.Contains(html, "<script>") || strings.Contains(html, "<b>evil") {
		t.Errorf("unescaped markup in fragment: %s", html)
	}
	if !strings.Contains(html, "<td>-</td>") {
		t.Errorf("file-level error should show '-' as its row: %s", html)
	}
}

// =============================================================================
// ErrorAlert
// =============================================================================

func TestErrorAlert(t *testing.T) {
	var buf bytes.Buffer
	if err := ErrorAlert("Job not found", "", "IMP002").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()

	if !strings.Contains(html, `role="alert"`) || !strings.Contains(html, "Code: IMP002") {
		t.Errorf("alert = %s", html)
	}
	if strings.Count(html, "<p>") != 1 {
		t.Errorf("empty action should not render a paragraph: %s", html)
	}
}

// =============================================================================
// Helpers
// =============================================================================

func TestProgressPercent(t *testing.T) {
	tests := []struct {
		name string
		job  core.ImportJob
		want int
	}{
		{"no rows yet", core.ImportJob{Status: core.JobProcessing}, 0},
		{"halfway", core.ImportJob{Status: core.JobProcessing, TotalRecords: 4, ProcessedRecords: 2}, 50},
		{"completed is full", core.ImportJob{Status: core.JobCompleted}, 100},
		{"clamped", core.ImportJob{Status: core.JobProcessing, TotalRecords: 1, ProcessedRecords: 3}, 100},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := progressPercent(tt.job); got != tt.want {
				t.Errorf("progressPercent() = %d, want %d", got, tt.want)
			}
		})
	}
}
