package core

import (
	"strings"
)

// Normalizer maps parsed rows onto PaymentDrafts using an alias configuration.
type Normalizer struct {
	aliases Aliases
}

// NewNormalizer creates a Normalizer. The aliases are copied.
func NewNormalizer(aliases Aliases) *Normalizer {
	return &Normalizer{aliases: aliases.Clone()}
}

// ColumnMap is the resolved header for each canonical field.
type ColumnMap map[Field]string

// ResolveColumns assigns each field the first unclaimed header matching one
// of its aliases. Fields are resolved in fieldOrder and aliases in list order,
// so "Amount Paid" is tried before a bare "paid".
func (n *Normalizer) ResolveColumns(headers []string) ColumnMap {
	cols := make(ColumnMap)
	claimed := make(map[string]bool, len(headers))

	for _, field := range fieldOrder {
		for _, alias := range n.aliases.Headers[field] {
			if h, ok := findHeader(headers, alias, claimed); ok {
				cols[field] = h
				claimed[h] = true
				break
			}
		}
	}
	return cols
}

func findHeader(headers []string, alias string, claimed map[string]bool) (string, bool) {
	for _, h := range headers {
		if h == "" || claimed[h] {
			continue
		}
		if headerMatches(strings.ToLower(h), alias) {
			return h, true
		}
	}
	return "", false
}

// headerMatches reports whether header contains alias. Aliases of two
// characters or fewer ("id") must match a whole word, otherwise "Paid"
// would be taken as a student id column.
func headerMatches(header, alias string) bool {
	if len(alias) > 2 {
		return strings.Contains(header, alias)
	}
	for _, word := range strings.FieldsFunc(header, func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	}) {
		if word == alias {
			return true
		}
	}
	return false
}

// NormalizeCycle lower-cases and trims v and maps it through the cycle
// aliases. Unknown values pass through lower-cased.
func (n *Normalizer) NormalizeCycle(v string) string {
	key := normalizeKey(v)
	if canonical, ok := n.aliases.Cycles[key]; ok {
		return canonical
	}
	return key
}

// Normalize converts rows into drafts. Rows with an empty cycle or an amount
// that is not positive are dropped without being reported. defaultYear fills
// AcademicYear when the file has none.
func (n *Normalizer) Normalize(table *Table, defaultYear string) []PaymentDraft {
	if table == nil {
		return nil
	}
	cols := n.ResolveColumns(table.Headers)

	drafts := make([]PaymentDraft, 0, len(table.Rows))
	for i, row := range table.Rows {
		get := func(f Field) string {
			h, ok := cols[f]
			if !ok {
				return ""
			}
			return strings.TrimSpace(row[h])
		}

		d := PaymentDraft{
			RowIndex:     i + 1,
			StudentID:    get(FieldStudentID),
			StudentName:  strings.Join(strings.Fields(get(FieldStudentName)), " "),
			GradeLevel:   get(FieldGradeLevel),
			PaymentCycle: n.NormalizeCycle(get(FieldPaymentCycle)),
			AmountPaid:   ParseAmount(get(FieldAmountPaid)),
			AcademicYear: get(FieldAcademicYear),
			PaymentDate:  get(FieldPaymentDate),
			Notes:        get(FieldNotes),
		}
		if d.AcademicYear == "" {
			d.AcademicYear = defaultYear
		}

		if d.PaymentCycle == "" || !d.AmountPaid.IsPositive() {
			continue
		}
		drafts = append(drafts, d)
	}
	return drafts
}
