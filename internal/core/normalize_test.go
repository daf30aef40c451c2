package core

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
)

// =============================================================================
// Column resolution
// =============================================================================

func TestResolveColumns(t *testing.T) {
	n := NewNormalizer(DefaultAliases())

	tests := []struct {
		name    string
		headers []string
		want    ColumnMap
	}{
		{
			name:    "canonical headers",
			headers: []string{"Student ID", "Student Name", "Payment Cycle", "Amount Paid"},
			want: ColumnMap{
				FieldStudentID:    "Student ID",
				FieldStudentName:  "Student Name",
				FieldPaymentCycle: "Payment Cycle",
				FieldAmountPaid:   "Amount Paid",
			},
		},
		{
			name:    "header case is ignored",
			headers: []string{"STUDENT ID", "student name", "Amount"},
			want: ColumnMap{
				FieldStudentID:   "STUDENT ID",
				FieldStudentName: "student name",
				FieldAmountPaid:  "Amount",
			},
		},
		{
			name:    "paid is not an id column",
			headers: []string{"Name", "Paid"},
			want: ColumnMap{
				FieldStudentName: "Name",
				FieldAmountPaid:  "Paid",
			},
		},
		{
			name:    "date paid belongs to the date field",
			headers: []string{"ID", "Date Paid", "Amount Paid"},
			want: ColumnMap{
				FieldStudentID:   "ID",
				FieldPaymentDate: "Date Paid",
				FieldAmountPaid:  "Amount Paid",
			},
		},
		{
			name:    "school year and grade",
			headers: []string{"School Year", "Grade Level", "Remarks"},
			want: ColumnMap{
				FieldAcademicYear: "School Year",
				FieldGradeLevel:   "Grade Level",
				FieldNotes:        "Remarks",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.ResolveColumns(tt.headers)
			if len(got) != len(tt.want) {
				t.Fatalf("ResolveColumns = %v, want %v", got, tt.want)
			}
			for f, h := range tt.want {
				if got[f] != h {
					t.Errorf("%s -> %q, want %q", f, got[f], h)
				}
			}
		})
	}
}

// =============================================================================
// Cycles
// =============================================================================

func TestNormalizeCycle(t *testing.T) {
	n := NewNormalizer(DefaultAliases())

	tests := []struct {
		in   string
		want string
	}{
		{"Q1", "1st_quarter"},
		{" first quarter ", "1st_quarter"},
		{"Quarter 4", "4th_quarter"},
		{"2nd Semester", "2nd_semester"},
		{"Reg Fee", "registration_fee"},
		{"Yearly", "annual"},
		{"Summer Camp", "summer camp"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := n.NormalizeCycle(tt.in); got != tt.want {
			t.Errorf("NormalizeCycle(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// =============================================================================
// Drafts
// =============================================================================

func TestNormalize(t *testing.T) {
	table := &Table{
		Headers: []string{"Student ID", "Student Name", "Payment Cycle", "Amount Paid", "Academic Year"},
		Rows: []RawRow{
			{"Student ID": "STU001", "Student Name": "  Juan   Cruz ", "Payment Cycle": "Q1", "Amount Paid": "$1,000.00", "Academic Year": ""},
			{"Student ID": "STU002", "Student Name": "Maria Santos", "Payment Cycle": "Q1", "Amount Paid": "-500", "Academic Year": "2024-2025"},
			{"Student ID": "STU003", "Student Name": "Ana Reyes", "Payment Cycle": "", "Amount Paid": "100", "Academic Year": ""},
			{"Student ID": "STU004", "Student Name": "Leo Diaz", "Payment Cycle": "Annual", "Amount Paid": "n/a", "Academic Year": ""},
			{"Student ID": "STU005", "Student Name": "Rosa Lim", "Payment Cycle": "Annual", "Amount Paid": "2500", "Academic Year": "2023-2024"},
		},
	}

	drafts := NewNormalizer(DefaultAliases()).Normalize(table, "2024-2025")

	if len(drafts) != 2 {
		t.Fatalf("drafts = %d, want 2 (negative, missing cycle and zero amount dropped)", len(drafts))
	}

	first := drafts[0]
	if first.RowIndex != 1 {
		t.Errorf("RowIndex = %d, want 1", first.RowIndex)
	}
	if first.StudentName != "Juan Cruz" {
		t.Errorf("StudentName = %q, want whitespace collapsed", first.StudentName)
	}
	if first.PaymentCycle != "1st_quarter" {
		t.Errorf("PaymentCycle = %q", first.PaymentCycle)
	}
	if !first.AmountPaid.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("AmountPaid = %s, want 1000", first.AmountPaid)
	}
	if first.AcademicYear != "2024-2025" {
		t.Errorf("AcademicYear = %q, want default year", first.AcademicYear)
	}

	last := drafts[1]
	if last.RowIndex != 5 {
		t.Errorf("RowIndex = %d, want 5 (position in file is kept)", last.RowIndex)
	}
	if last.AcademicYear != "2023-2024" {
		t.Errorf("AcademicYear = %q, file value should win", last.AcademicYear)
	}
}

func TestNormalize_NilTable(t *testing.T) {
	if drafts := NewNormalizer(DefaultAliases()).Normalize(nil, ""); drafts != nil {
		t.Errorf("Normalize(nil) = %v", drafts)
	}
}

// =============================================================================
// Alias overrides
// =============================================================================

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := `headers:
  studentId: ["learner no"]
cycles:
  "term one": 1st_term
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	aliases, err := LoadAliases(path)
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}

	n := NewNormalizer(aliases)
	cols := n.ResolveColumns([]string{"Learner No", "Student ID"})
	if cols[FieldStudentID] != "Learner No" {
		t.Errorf("studentId -> %q, override should replace the built-in list", cols[FieldStudentID])
	}
	if got := n.NormalizeCycle("Term One"); got != "1st_term" {
		t.Errorf("NormalizeCycle(Term One) = %q", got)
	}
	if got := n.NormalizeCycle("Q2"); got != "2nd_quarter" {
		t.Errorf("built-in cycles should survive a merge, got %q", got)
	}
}

func TestLoadAliases_Errors(t *testing.T) {
	if _, err := LoadAliases(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("headers:\n  shoeSize: [\"size\"]\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadAliases(path); err == nil {
		t.Error("expected error for unknown field")
	}
}

func TestLoadAliases_EmptyPath(t *testing.T) {
	aliases, err := LoadAliases("")
	if err != nil {
		t.Fatalf("LoadAliases: %v", err)
	}
	if len(aliases.Headers) != len(fieldOrder) {
		t.Errorf("expected defaults, got %d header fields", len(aliases.Headers))
	}
}
