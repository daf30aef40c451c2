package core

// resolve.go matches drafts to students.
//
// Matching is an ordered list of pure strategies. The first strategy that
// returns a candidate wins and later strategies are not consulted. Within a
// strategy the first candidate in directory order wins; there is no scoring.

import (
	"errors"
	"strings"
)

// ErrStudentNotFound is returned when no strategy matches a draft.
var ErrStudentNotFound = errors.New("student not found")

// Matcher picks at most one candidate for a draft.
type Matcher func(d PaymentDraft, candidates []StudentIdentity) (StudentIdentity, bool)

// NamedMatcher pairs a strategy with the name recorded when it matches.
type NamedMatcher struct {
	Name  string
	Match Matcher
}

// DefaultMatchers returns the strategies in priority order.
func DefaultMatchers() []NamedMatcher {
	return []NamedMatcher{
		{Name: "student_code", Match: MatchByCode},
		{Name: "full_name", Match: MatchByFullName},
		{Name: "name_grade", Match: MatchByNameAndGrade},
	}
}

// MatchByCode matches the draft's student id against the external student
// code exactly. Drafts without a student id never match.
func MatchByCode(d PaymentDraft, candidates []StudentIdentity) (StudentIdentity, bool) {
	if d.StudentID == "" {
		return StudentIdentity{}, false
	}
	for _, c := range candidates {
		if c.ExternalStudentCode == d.StudentID {
			return c, true
		}
	}
	return StudentIdentity{}, false
}

// MatchByFullName requires a name of at least two words and matches a
// candidate whose lower-cased "first last" contains both the first and the
// last word.
func MatchByFullName(d PaymentDraft, candidates []StudentIdentity) (StudentIdentity, bool) {
	first, last, ok := nameTokens(d.StudentName)
	if !ok {
		return StudentIdentity{}, false
	}
	for _, c := range candidates {
		if nameContains(c, first, last) {
			return c, true
		}
	}
	return StudentIdentity{}, false
}

// MatchByNameAndGrade is MatchByFullName restricted to candidates whose grade
// level contains, or is contained by, the draft's grade level.
func MatchByNameAndGrade(d PaymentDraft, candidates []StudentIdentity) (StudentIdentity, bool) {
	first, last, ok := nameTokens(d.StudentName)
	grade := normalizeKey(d.GradeLevel)
	if !ok || grade == "" {
		return StudentIdentity{}, false
	}
	for _, c := range candidates {
		cg := normalizeKey(c.GradeLevel)
		if cg == "" || !(strings.Contains(cg, grade) || strings.Contains(grade, cg)) {
			continue
		}
		if nameContains(c, first, last) {
			return c, true
		}
	}
	return StudentIdentity{}, false
}

func nameTokens(name string) (first, last string, ok bool) {
	parts := strings.Fields(strings.ToLower(name))
	if len(parts) < 2 {
		return "", "", false
	}
	return parts[0], parts[len(parts)-1], true
}

func nameContains(c StudentIdentity, first, last string) bool {
	full := strings.ToLower(c.FirstName + " " + c.LastName)
	return strings.Contains(full, first) && strings.Contains(full, last)
}

// Resolver applies matchers to a fixed student snapshot.
type Resolver struct {
	students []StudentIdentity
	matchers []NamedMatcher
}

// NewResolver creates a Resolver over students. A nil matcher list uses
// DefaultMatchers.
func NewResolver(students []StudentIdentity, matchers []NamedMatcher) *Resolver {
	if matchers == nil {
		matchers = DefaultMatchers()
	}
	return &Resolver{students: students, matchers: matchers}
}

// Resolve returns the matched student and the name of the strategy that
// matched, or ErrStudentNotFound.
func (r *Resolver) Resolve(d PaymentDraft) (StudentIdentity, string, error) {
	for _, m := range r.matchers {
		if s, ok := m.Match(d, r.students); ok {
			return s, m.Name, nil
		}
	}
	return StudentIdentity{}, "", ErrStudentNotFound
}
