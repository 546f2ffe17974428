package http

import (
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"schoolcompare/internal/core"
)

// NotAvailable replaces any value the data source does not have.
const NotAvailable = "Data not available"

var printer = message.NewPrinter(language.AmericanEnglish)

type (
	// TaxBucketView is a tax estimate ready for display.
	TaxBucketView struct {
		Known          bool
		Range          string
		Representative string
		Label          string
		Matched        string
	}

	DistrictView struct {
		LEAID         string
		Name          string
		Location      string
		Phone         string
		Website       string
		TotalSchools  string
		PerPupil      string
		LocalTaxShare string
		Rating        string
		GradRate      string
		Tax           TaxBucketView
	}

	// SchoolCardView backs one school card on the district page and the
	// compare page.
	SchoolCardView struct {
		ID           string
		Name         string
		Kind         string
		GradeSpan    string
		Address      string
		DistrictID   string
		DistrictName string
		SchoolYear   string
		Students     string
		Ratio        string
		FRL          string
		FRLBand      string
		Diversity    string
		White        string
		Black        string
		Hispanic     string
		Asian        string
		Other        string
		PerPupil     string
		Tax          TaxBucketView
		Toggle       ToggleView
		// Missing is set when a pinned school no longer exists in the data.
		Missing bool
	}

	// ToggleView is the add/remove button on a school card.
	ToggleView struct {
		SchoolID string
		Pinned   bool
		Full     bool
	}

	KindFilterView struct {
		Label  string
		Value  string
		Count  int
		Active bool
	}

	SavingsView struct {
		MinAnnual   string
		MaxAnnual   string
		AnnualDelta string
		Projected   string
		Horizon     int
		HasSavings  bool
		Lowest      []string
		Unresolved  []string
	}

	BadgeView struct {
		Count    int
		Capacity int
	}

	PopularView struct {
		Rows []PopularRow
	}

	PopularRow struct {
		ID           string
		Name         string
		DistrictID   string
		DistrictName string
		Added        int64
	}
)

func formatMoney(m *core.Money) string {
	if m == nil {
		return NotAvailable
	}
	return m.FormatUSD()
}

func formatCount(n *int) string {
	if n == nil {
		return NotAvailable
	}
	return printer.Sprintf("%d", *n)
}

func formatPct(p *float64) string {
	if p == nil {
		return NotAvailable
	}
	return printer.Sprintf("%.1f%%", *p)
}

func formatRatio(r *float64) string {
	if r == nil {
		return NotAvailable
	}
	return printer.Sprintf("%.1f:1", *r)
}

func formatText(s *string) string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return NotAvailable
	}
	return *s
}

func nonEmpty(s string) string {
	if strings.TrimSpace(s) == "" {
		return NotAvailable
	}
	return s
}

func newTaxBucketView(b core.TaxBucket, err error) TaxBucketView {
	if err != nil {
		return TaxBucketView{
			Range:          NotAvailable,
			Representative: NotAvailable,
			Label:          "No tax estimate for this district",
		}
	}
	return TaxBucketView{
		Known:          true,
		Range:          b.Low.FormatUSD() + " - " + b.High.FormatUSD(),
		Representative: b.Representative.FormatUSD(),
		Label:          b.Label,
		Matched:        b.Matched,
	}
}

func newDistrictView(d core.District, tax TaxBucketView) DistrictView {
	return DistrictView{
		LEAID:         d.LEAID,
		Name:          d.Name,
		Location:      formatText(d.Location),
		Phone:         formatText(d.Phone),
		Website:       formatText(d.Website),
		TotalSchools:  formatCount(d.TotalSchools),
		PerPupil:      formatMoney(d.PerPupilExpenditure),
		LocalTaxShare: formatPct(d.PctFromLocalTax),
		Rating:        formatText(d.OverallRating),
		GradRate:      formatPct(d.GraduationRate4yr),
		Tax:           tax,
	}
}

func addressLine(street, city, state, zip string) string {
	var parts []string
	if street != "" {
		parts = append(parts, street)
	}
	locality := strings.TrimSpace(strings.TrimSpace(city+", "+state) + " " + zip)
	locality = strings.Trim(locality, ", ")
	if locality != "" {
		parts = append(parts, locality)
	}
	if len(parts) == 0 {
		return NotAvailable
	}
	return strings.Join(parts, ", ")
}

// newSchoolCardView fills enrollment facts, leaving every unknown metric as
// NotAvailable rather than zero.
func newSchoolCardView(s core.School, e *core.Enrollment, districtName string, tax TaxBucketView) SchoolCardView {
	v := SchoolCardView{
		ID:           s.NCESSCH,
		Name:         s.Name,
		Kind:         string(s.Kind),
		GradeSpan:    nonEmpty(s.GradeSpan()),
		Address:      addressLine(s.Address, s.City, s.State, s.Zip),
		DistrictID:   s.LEAID,
		DistrictName: nonEmpty(districtName),
		SchoolYear:   NotAvailable,
		Students:     NotAvailable,
		Ratio:        NotAvailable,
		FRL:          NotAvailable,
		Diversity:    NotAvailable,
		White:        NotAvailable,
		Black:        NotAvailable,
		Hispanic:     NotAvailable,
		Asian:        NotAvailable,
		Other:        NotAvailable,
		PerPupil:     NotAvailable,
		Tax:          tax,
	}
	if e == nil {
		return v
	}
	v.SchoolYear = nonEmpty(e.SchoolYear)
	v.Students = formatCount(e.TotalStudents)
	v.Ratio = formatRatio(e.StudentTeacherRatio)
	v.FRL = formatPct(e.PctFRL)
	if e.PctFRL != nil {
		v.FRLBand = core.FRLBand(*e.PctFRL)
	}
	if d, ok := e.DiversityPct(); ok {
		v.Diversity = formatPct(&d)
	}
	v.White = formatPct(e.PctWhite)
	v.Black = formatPct(e.PctBlack)
	v.Hispanic = formatPct(e.PctHispanic)
	v.Asian = formatPct(e.PctAsian)
	v.Other = formatPct(e.PctOther)
	return v
}

// missingSchoolCardView renders a pinned reference whose school is gone.
func missingSchoolCardView(ref core.SchoolRef, tax TaxBucketView) SchoolCardView {
	s := core.School{
		NCESSCH: ref.ID,
		LEAID:   ref.DistrictID,
		Name:    ref.Name,
		Kind:    ref.Kind,
		Address: ref.Address,
		City:    ref.City,
		State:   ref.State,
		Zip:     ref.Zip,
	}
	if ref.GradesLow != "" {
		s.GradesLow = &ref.GradesLow
	}
	if ref.GradesHigh != "" {
		s.GradesHigh = &ref.GradesHigh
	}
	v := newSchoolCardView(s, nil, ref.DistrictName, tax)
	v.Missing = true
	return v
}

func newKindFilters(schools []core.SchoolWithEnrollment, active core.SchoolKind) []KindFilterView {
	counts := core.KindCounts(schools)
	filters := []KindFilterView{{Label: "All", Value: "All", Count: len(schools), Active: active == ""}}
	for _, k := range core.Kinds {
		if k == core.KindOther && counts[k] == 0 {
			continue
		}
		filters = append(filters, KindFilterView{
			Label:  string(k),
			Value:  string(k),
			Count:  counts[k],
			Active: active == k,
		})
	}
	return filters
}

func newSavingsView(sum core.SavingsSummary, names map[string]string) *SavingsView {
	v := &SavingsView{
		MinAnnual:   sum.MinAnnual.FormatUSD(),
		MaxAnnual:   sum.MaxAnnual.FormatUSD(),
		AnnualDelta: sum.AnnualDelta.FormatUSD(),
		Projected:   sum.ProjectedDelta.FormatUSD(),
		Horizon:     sum.HorizonYears,
		HasSavings:  sum.HasSavings(),
	}
	for _, id := range sum.Lowest {
		v.Lowest = append(v.Lowest, names[id])
	}
	for _, id := range sum.Unresolved {
		v.Unresolved = append(v.Unresolved, names[id])
	}
	return v
}

// mixedDistricts reports whether the pinned schools span more than one district.
func mixedDistricts(refs []core.SchoolRef) bool {
	for _, r := range refs[min(1, len(refs)):] {
		if r.DistrictID != refs[0].DistrictID {
			return true
		}
	}
	return false
}

func pluralize(n int, singular, plural string) string {
	if n == 1 {
		return singular
	}
	return plural
}
