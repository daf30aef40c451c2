package core

// aliases.go holds the header and payment-cycle alias tables.
//
// The tables are configuration data. DefaultAliases returns the built-in
// set; LoadAliases layers a YAML override file on top of it:
//
//	headers:
//	  studentId: ["learner no", "student id"]
//	cycles:
//	  "term one": 1st_term
//
// A field listed under headers replaces that field's built-in alias list.
// Cycle entries are merged key by key.

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Field is a canonical PaymentDraft field.
type Field string

const (
	FieldStudentID    Field = "studentId"
	FieldStudentName  Field = "studentName"
	FieldGradeLevel   Field = "gradeLevel"
	FieldPaymentCycle Field = "paymentCycle"
	FieldAmountPaid   Field = "amountPaid"
	FieldAcademicYear Field = "academicYear"
	FieldPaymentDate  Field = "paymentDate"
	FieldNotes        Field = "notes"
)

// fieldOrder is the order in which fields claim headers. Fields whose
// aliases are substrings of other headers ("paid" in "date paid") come later.
var fieldOrder = []Field{
	FieldStudentID,
	FieldStudentName,
	FieldAcademicYear,
	FieldPaymentDate,
	FieldPaymentCycle,
	FieldAmountPaid,
	FieldGradeLevel,
	FieldNotes,
}

// Aliases is the immutable alias configuration of a Normalizer.
type Aliases struct {
	// Headers lists accepted header substrings per field, most specific first.
	Headers map[Field][]string
	// Cycles maps a lower-cased cycle value to its canonical identifier.
	Cycles map[string]string
}

// DefaultAliases returns the built-in alias tables.
func DefaultAliases() Aliases {
	return Aliases{
		Headers: map[Field][]string{
			FieldStudentID:    {"student id", "studentid", "student code", "student no", "id"},
			FieldStudentName:  {"student name", "full name", "name"},
			FieldGradeLevel:   {"grade level", "grade", "class", "level"},
			FieldPaymentCycle: {"payment cycle", "cycle", "fee type", "period", "term"},
			FieldAmountPaid:   {"amount paid", "payment amount", "amount", "paid"},
			FieldAcademicYear: {"academic year", "school year", "year"},
			FieldPaymentDate:  {"payment date", "date paid", "date"},
			FieldNotes:        {"notes", "note", "remarks", "comment"},
		},
		Cycles: map[string]string{
			"q1":               "1st_quarter",
			"first quarter":    "1st_quarter",
			"1st quarter":      "1st_quarter",
			"quarter 1":        "1st_quarter",
			"q2":               "2nd_quarter",
			"second quarter":   "2nd_quarter",
			"2nd quarter":      "2nd_quarter",
			"quarter 2":        "2nd_quarter",
			"q3":               "3rd_quarter",
			"third quarter":    "3rd_quarter",
			"3rd quarter":      "3rd_quarter",
			"quarter 3":        "3rd_quarter",
			"q4":               "4th_quarter",
			"fourth quarter":   "4th_quarter",
			"4th quarter":      "4th_quarter",
			"quarter 4":        "4th_quarter",
			"first semester":   "1st_semester",
			"1st semester":     "1st_semester",
			"sem 1":            "1st_semester",
			"second semester":  "2nd_semester",
			"2nd semester":     "2nd_semester",
			"sem 2":            "2nd_semester",
			"annual":           "annual",
			"annually":         "annual",
			"yearly":           "annual",
			"full year":        "annual",
			"monthly":          "monthly",
			"registration":     "registration_fee",
			"registration fee": "registration_fee",
			"reg fee":          "registration_fee",
			"enrollment fee":   "registration_fee",
		},
	}
}

// Clone returns a deep copy, so a Normalizer never shares maps with its caller.
func (a Aliases) Clone() Aliases {
	out := Aliases{
		Headers: make(map[Field][]string, len(a.Headers)),
		Cycles:  make(map[string]string, len(a.Cycles)),
	}
	for f, list := range a.Headers {
		lowered := make([]string, 0, len(list))
		for _, alias := range list {
			if alias = normalizeKey(alias); alias != "" {
				lowered = append(lowered, alias)
			}
		}
		out.Headers[f] = lowered
	}
	for k, v := range a.Cycles {
		out.Cycles[normalizeKey(k)] = v
	}
	return out
}

// aliasFile is the YAML shape accepted by LoadAliases.
type aliasFile struct {
	Headers map[string][]string `koanf:"headers"`
	Cycles  map[string]string   `koanf:"cycles"`
}

// LoadAliases reads path and merges it onto DefaultAliases.
// An empty path returns the defaults.
func LoadAliases(path string) (Aliases, error) {
	base := DefaultAliases()
	if path == "" {
		return base, nil
	}

	k := koanf.New("::")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return Aliases{}, fmt.Errorf("load aliases %s: %w", path, err)
	}

	var overrides aliasFile
	if err := k.UnmarshalWithConf("", &overrides, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return Aliases{}, fmt.Errorf("decode aliases %s: %w", path, err)
	}

	known := make(map[string]Field, len(fieldOrder))
	for _, f := range fieldOrder {
		known[strings.ToLower(string(f))] = f
	}
	for name, list := range overrides.Headers {
		f, ok := known[strings.ToLower(name)]
		if !ok {
			return Aliases{}, fmt.Errorf("aliases %s: unknown field %q", path, name)
		}
		base.Headers[f] = list
	}
	for k, v := range overrides.Cycles {
		base.Cycles[normalizeKey(k)] = v
	}
	return base, nil
}
