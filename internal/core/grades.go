package core

import (
	"strconv"
	"strings"
)

// ParseGrade converts an NCES grade code to a number. PK and KG map to 0.
func ParseGrade(code string) (int, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	switch code {
	case "":
		return 0, false
	case "PK", "KG", "K":
		return 0, true
	}
	n, err := strconv.Atoi(code)
	if err != nil || n < 0 || n > 13 {
		return 0, false
	}
	return n, true
}

// ClassifySchoolKind derives a school kind from its grade span.
// K-6 counts as elementary and 5-8 as middle. A span with no readable
// upper grade is Other.
func ClassifySchoolKind(gradesLow, gradesHigh string) SchoolKind {
	high, ok := ParseGrade(gradesHigh)
	if !ok {
		return KindOther
	}
	low, _ := ParseGrade(gradesLow)

	switch {
	case high <= 5:
		return KindElementary
	case low >= 6 && high <= 8:
		return KindMiddle
	case low >= 9:
		return KindHigh
	case high == 6:
		return KindElementary
	case low >= 5 && high == 8:
		return KindMiddle
	}
	return KindOther
}

// ResolveKind keeps a provider-supplied kind unless it is missing or Other,
// in which case the grade span decides.
func ResolveKind(stored string, gradesLow, gradesHigh *string) SchoolKind {
	if k, ok := ParseSchoolKind(stored); ok && k != KindOther {
		return k
	}
	return ClassifySchoolKind(deref(gradesLow), deref(gradesHigh))
}
