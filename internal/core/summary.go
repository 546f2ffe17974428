package core

// SavingsHorizonYears is the number of years a household is assumed to keep
// a child in the district (K-12 plus some slack).
const SavingsHorizonYears = 18

// SchoolFigure pairs a selected school with its resolved annual tax figure.
type SchoolFigure struct {
	School SchoolRef
	Annual Money
}

// SavingsSummary compares annual tax figures across selected schools.
type SavingsSummary struct {
	Figures        []SchoolFigure
	MinAnnual      Money
	MaxAnnual      Money
	AnnualDelta    Money
	HorizonYears   int
	ProjectedDelta Money
	// Lowest holds the ids of every school at the minimum figure.
	Lowest []string
	// Unresolved holds ids whose figure could not be estimated.
	Unresolved []string
}

// HasSavings reports whether picking the cheapest option saves anything.
func (s SavingsSummary) HasSavings() bool {
	return s.AnnualDelta.Cents > 0
}

// IsLowest reports whether id is among the cheapest schools.
func (s SavingsSummary) IsLowest(id string) bool {
	for _, l := range s.Lowest {
		if l == id {
			return true
		}
	}
	return false
}
