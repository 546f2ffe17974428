// Package savings projects the property-tax difference between selected schools.
package savings

import (
	"schoolcompare/internal/core"
	"schoolcompare/internal/tax"
)

// Resolver returns the annual tax figure for a school.
type Resolver func(core.SchoolRef) (core.Money, error)

// FromEstimator resolves schools through their district's tax bucket.
func FromEstimator(e *tax.Estimator) Resolver {
	return func(s core.SchoolRef) (core.Money, error) {
		b, err := e.Estimate(s.DistrictID, s.MunicipalitySignal)
		if err != nil {
			return core.Money{}, err
		}
		return b.Representative, nil
	}
}

// Static resolves by school id from a fixed map. Ids not in the map are
// reported as unknown districts.
func Static(figures map[string]core.Money) Resolver {
	return func(s core.SchoolRef) (core.Money, error) {
		m, ok := figures[s.ID]
		if !ok {
			return core.Money{}, core.ErrUnknownDistrict
		}
		return m, nil
	}
}

// Summarize compares the schools' annual figures. Schools whose figure cannot
// be resolved are listed in Unresolved and left out of the min/max. The
// second result is false when fewer than two figures resolve.
func Summarize(schools []core.SchoolRef, resolve Resolver) (core.SavingsSummary, bool) {
	sum := core.SavingsSummary{HorizonYears: core.SavingsHorizonYears}

	for _, s := range schools {
		m, err := resolve(s)
		if err != nil {
			sum.Unresolved = append(sum.Unresolved, s.ID)
			continue
		}
		sum.Figures = append(sum.Figures, core.SchoolFigure{School: s, Annual: m})
	}
	if len(sum.Figures) < 2 {
		return sum, false
	}

	sum.MinAnnual = sum.Figures[0].Annual
	sum.MaxAnnual = sum.Figures[0].Annual
	for _, f := range sum.Figures[1:] {
		if f.Annual.Cents < sum.MinAnnual.Cents {
			sum.MinAnnual = f.Annual
		}
		if f.Annual.Cents > sum.MaxAnnual.Cents {
			sum.MaxAnnual = f.Annual
		}
	}
	for _, f := range sum.Figures {
		if f.Annual == sum.MinAnnual {
			sum.Lowest = append(sum.Lowest, f.School.ID)
		}
	}

	sum.AnnualDelta = sum.MaxAnnual.Sub(sum.MinAnnual)
	sum.ProjectedDelta = sum.AnnualDelta.Times(int64(sum.HorizonYears))
	return sum, true
}
