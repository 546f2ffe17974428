package storage

import (
	"database/sql"

	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

func toDistrict(d District) core.District {
	return core.District{
		LEAID:               d.Leaid,
		IRN:                 strPtr(d.Irn),
		Name:                d.Name,
		Location:            strPtr(d.Location),
		Phone:               strPtr(d.Phone),
		Website:             strPtr(d.Website),
		TotalSchools:        intPtr(d.TotalSchools),
		PerPupilExpenditure: centsPtr(d.PerPupilExpenditureCents),
		PctFromLocalTax:     floatPtr(d.PctFromLocalTax),
		TotalRevenue:        centsPtr(d.TotalRevenueCents),
		LocalRevenue:        centsPtr(d.LocalRevenueCents),
		OverallRating:       strPtr(d.OverallRating),
		GraduationRate4yr:   floatPtr(d.GraduationRate4yr),
	}
}

// toSchool re-derives the kind when the stored one is blank or Other.
func toSchool(s School) core.School {
	lo, hi := strPtr(s.GradesLow), strPtr(s.GradesHigh)
	return core.School{
		NCESSCH:    s.Ncessch,
		LEAID:      s.Leaid,
		IRN:        strPtr(s.Irn),
		Name:       s.Name,
		Kind:       core.ResolveKind(s.SchoolType, lo, hi),
		GradesLow:  lo,
		GradesHigh: hi,
		Address:    s.Address,
		City:       s.City,
		State:      s.State,
		Zip:        s.Zip,
		Latitude:   floatPtr(s.Latitude),
		Longitude:  floatPtr(s.Longitude),
	}
}

// toEnrollment returns nil when the left join found no enrollment row.
func toEnrollment(r SchoolWithEnrollmentRow) *core.Enrollment {
	if !r.EnrollmentYear.Valid {
		return nil
	}
	return &core.Enrollment{
		NCESSCH:             r.School.Ncessch,
		SchoolYear:          r.EnrollmentYear.String,
		TotalStudents:       intPtr(r.TotalStudents),
		StudentTeacherRatio: floatPtr(r.StudentTeacherRatio),
		PctFRL:              floatPtr(r.PctFrl),
		PctWhite:            floatPtr(r.PctWhite),
		PctBlack:            floatPtr(r.PctBlack),
		PctHispanic:         floatPtr(r.PctHispanic),
		PctAsian:            floatPtr(r.PctAsian),
		PctOther:            floatPtr(r.PctOther),
	}
}

func fromDistrict(d core.District) District {
	return District{
		Leaid:                    d.LEAID,
		Irn:                      nullStr(d.IRN),
		Name:                     d.Name,
		Location:                 nullStr(d.Location),
		Phone:                    nullStr(d.Phone),
		Website:                  nullStr(d.Website),
		TotalSchools:             nullInt(d.TotalSchools),
		PerPupilExpenditureCents: nullCents(d.PerPupilExpenditure),
		PctFromLocalTax:          nullFloat(d.PctFromLocalTax),
		TotalRevenueCents:        nullCents(d.TotalRevenue),
		LocalRevenueCents:        nullCents(d.LocalRevenue),
		OverallRating:            nullStr(d.OverallRating),
		GraduationRate4yr:        nullFloat(d.GraduationRate4yr),
	}
}

// fromSchoolRecord keeps the record's own school_type so a blank one is
// classified again on read.
func fromSchoolRecord(s provider.SchoolRecord) School {
	return School{
		Ncessch:    s.NCESSCH,
		Leaid:      s.LEAID,
		Irn:        nullStr(s.IRN),
		Name:       s.Name,
		SchoolType: s.SchoolType,
		GradesLow:  nullStr(s.GradesLow),
		GradesHigh: nullStr(s.GradesHigh),
		Address:    s.Address,
		City:       s.City,
		State:      s.State,
		Zip:        s.Zip,
		Latitude:   nullFloat(s.Latitude),
		Longitude:  nullFloat(s.Longitude),
	}
}

func fromEnrollment(e core.Enrollment) SchoolEnrollment {
	return SchoolEnrollment{
		Ncessch:             e.NCESSCH,
		SchoolYear:          e.SchoolYear,
		TotalStudents:       nullInt(e.TotalStudents),
		StudentTeacherRatio: nullFloat(e.StudentTeacherRatio),
		PctFrl:              nullFloat(e.PctFRL),
		PctWhite:            nullFloat(e.PctWhite),
		PctBlack:            nullFloat(e.PctBlack),
		PctHispanic:         nullFloat(e.PctHispanic),
		PctAsian:            nullFloat(e.PctAsian),
		PctOther:            nullFloat(e.PctOther),
	}
}

func strPtr(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	s := v.String
	return &s
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func centsPtr(v sql.NullInt64) *core.Money {
	if !v.Valid {
		return nil
	}
	return &core.Money{Cents: v.Int64}
}

func nullStr(p *string) sql.NullString {
	if p == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

func nullInt(p *int) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*p), Valid: true}
}

func nullFloat(p *float64) sql.NullFloat64 {
	if p == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *p, Valid: true}
}

func nullCents(p *core.Money) sql.NullInt64 {
	if p == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: p.Cents, Valid: true}
}
