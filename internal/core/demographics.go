package core

// FRL interpretation bands shown next to the free/reduced lunch share.
const (
	FRLVeryAffluent = "Very affluent area"
	FRLMixedIncome  = "Mixed-income community"
	FRLLowerIncome  = "Higher proportion of lower-income families"
)

// FRLBand interprets a free/reduced lunch percentage.
func FRLBand(pct float64) string {
	switch {
	case pct < 10:
		return FRLVeryAffluent
	case pct < 25:
		return FRLMixedIncome
	}
	return FRLLowerIncome
}

// DiversityPct sums the Black, Hispanic and Other shares of enrollment.
// It reports false when none of the shares is known.
func (e Enrollment) DiversityPct() (float64, bool) {
	var total float64
	known := false
	for _, p := range []*float64{e.PctBlack, e.PctHispanic, e.PctOther} {
		if p != nil {
			total += *p
			known = true
		}
	}
	return total, known
}

// KindCounts tallies schools per kind. The "All" total is len(schools).
func KindCounts(schools []SchoolWithEnrollment) map[SchoolKind]int {
	counts := make(map[SchoolKind]int, len(Kinds))
	for _, s := range schools {
		counts[s.Kind]++
	}
	return counts
}

// FilterByKind keeps schools of the given kind. An empty kind keeps all.
func FilterByKind(schools []SchoolWithEnrollment, kind SchoolKind) []SchoolWithEnrollment {
	if kind == "" {
		return schools
	}
	out := make([]SchoolWithEnrollment, 0, len(schools))
	for _, s := range schools {
		if s.Kind == kind {
			out = append(out, s)
		}
	}
	return out
}
