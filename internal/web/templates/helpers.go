package templates

import (
	"strconv"

	"github.com/JonMunkholm/feerecon/internal/core"
)

// progressPercent is the bar value for a job; completed jobs always show full.
func progressPercent(job core.ImportJob) int {
	if job.Status == core.JobCompleted {
		return 100
	}
	if job.TotalRecords <= 0 {
		return 0
	}
	return min(job.ProcessedRecords*100/job.TotalRecords, 100)
}

// errorRow is the 1-based source row, or "-" for file-level errors.
func errorRow(e core.ImportError) string {
	if e.RowIndex <= 0 {
		return "-"
	}
	return strconv.Itoa(e.RowIndex)
}

// errorStudent prefers the student code and falls back to the name.
func errorStudent(e core.ImportError) string {
	if e.StudentCode != "" {
		return e.StudentCode
	}
	return e.StudentName
}
