package provider

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"schoolcompare/internal/core"
)

//go:embed sample.json
var sampleDataset []byte

// SeedFileName is the dataset file looked up in a seed directory.
const SeedFileName = "seed.json"

// Dataset is the on-disk fixture format for districts, schools and enrollment.
// Absent numbers stay nil.
type Dataset struct {
	Districts  []DistrictRecord   `json:"districts"`
	Schools    []SchoolRecord     `json:"schools"`
	Enrollment []EnrollmentRecord `json:"enrollment"`
}

type DistrictRecord struct {
	LEAID               string   `json:"leaid"`
	IRN                 *string  `json:"irn"`
	Name                string   `json:"name"`
	Location            *string  `json:"location"`
	Phone               *string  `json:"phone"`
	Website             *string  `json:"website"`
	PerPupilExpenditure *Amount  `json:"per_pupil_expenditure"`
	PctFromLocalTax     *float64 `json:"pct_from_local_tax"`
	TotalRevenue        *Amount  `json:"total_revenue"`
	LocalRevenue        *Amount  `json:"local_revenue"`
	OverallRating       *string  `json:"overall_rating"`
	GraduationRate4yr   *float64 `json:"graduation_rate_4yr"`
}

type SchoolRecord struct {
	NCESSCH    string   `json:"ncessch"`
	LEAID      string   `json:"leaid"`
	IRN        *string  `json:"irn"`
	Name       string   `json:"name"`
	SchoolType string   `json:"school_type"`
	GradesLow  *string  `json:"grades_low"`
	GradesHigh *string  `json:"grades_high"`
	Address    string   `json:"address"`
	City       string   `json:"city"`
	State      string   `json:"state"`
	Zip        string   `json:"zip"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
}

type EnrollmentRecord struct {
	NCESSCH             string   `json:"ncessch"`
	SchoolYear          string   `json:"school_year"`
	TotalStudents       *int     `json:"total_students"`
	StudentTeacherRatio *float64 `json:"student_teacher_ratio"`
	PctFRL              *float64 `json:"pct_frl"`
	PctWhite            *float64 `json:"pct_white"`
	PctBlack            *float64 `json:"pct_black"`
	PctHispanic         *float64 `json:"pct_hispanic"`
	PctAsian            *float64 `json:"pct_asian"`
	PctOther            *float64 `json:"pct_other"`
}

// ParseDataset decodes a dataset and checks its references line up.
func ParseDataset(raw []byte) (Dataset, error) {
	var ds Dataset
	if err := json.Unmarshal(raw, &ds); err != nil {
		return Dataset{}, fmt.Errorf("decode dataset: %w", err)
	}
	if err := ds.Validate(); err != nil {
		return Dataset{}, err
	}
	return ds, nil
}

// LoadDatasetDir reads <dir>/seed.json. A missing file returns fs.ErrNotExist.
func LoadDatasetDir(dir string) (Dataset, error) {
	raw, err := os.ReadFile(filepath.Join(dir, SeedFileName))
	if err != nil {
		return Dataset{}, err
	}
	return ParseDataset(raw)
}

// SampleDataset returns the built-in illustrative dataset for the two
// districts. Its figures are placeholders, not published statistics.
func SampleDataset() (Dataset, error) {
	ds, err := ParseDataset(sampleDataset)
	if err != nil {
		return Dataset{}, fmt.Errorf("sample dataset: %w", err)
	}
	return ds, nil
}

// IsMissing reports whether err means there was no dataset file.
func IsMissing(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// Validate rejects blank keys, duplicates and dangling references.
func (ds Dataset) Validate() error {
	var errs []error
	leas := map[string]bool{}
	for i, d := range ds.Districts {
		if d.LEAID == "" || d.Name == "" {
			errs = append(errs, fmt.Errorf("district %d: leaid and name are required", i))
			continue
		}
		if leas[d.LEAID] {
			errs = append(errs, fmt.Errorf("district %s: duplicate leaid", d.LEAID))
		}
		leas[d.LEAID] = true
	}
	schools := map[string]bool{}
	for i, s := range ds.Schools {
		if s.NCESSCH == "" || s.Name == "" {
			errs = append(errs, fmt.Errorf("school %d: ncessch and name are required", i))
			continue
		}
		if schools[s.NCESSCH] {
			errs = append(errs, fmt.Errorf("school %s: duplicate ncessch", s.NCESSCH))
		}
		schools[s.NCESSCH] = true
		if !leas[s.LEAID] {
			errs = append(errs, fmt.Errorf("school %s: unknown district %q", s.NCESSCH, s.LEAID))
		}
	}
	for _, e := range ds.Enrollment {
		if !schools[e.NCESSCH] {
			errs = append(errs, fmt.Errorf("enrollment %s: unknown school", e.NCESSCH))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid dataset: %w", errors.Join(errs...))
	}
	return nil
}

// District converts the record to the domain type.
func (r DistrictRecord) District() core.District {
	return core.District{
		LEAID:               r.LEAID,
		IRN:                 r.IRN,
		Name:                r.Name,
		Location:            r.Location,
		Phone:               r.Phone,
		Website:             r.Website,
		PerPupilExpenditure: dollarsPtr(r.PerPupilExpenditure),
		PctFromLocalTax:     r.PctFromLocalTax,
		TotalRevenue:        dollarsPtr(r.TotalRevenue),
		LocalRevenue:        dollarsPtr(r.LocalRevenue),
		OverallRating:       r.OverallRating,
		GraduationRate4yr:   r.GraduationRate4yr,
	}
}

// School converts the record, deriving the kind from grades when the
// record carries none.
func (r SchoolRecord) School() core.School {
	return core.School{
		NCESSCH:    r.NCESSCH,
		LEAID:      r.LEAID,
		IRN:        r.IRN,
		Name:       r.Name,
		Kind:       core.ResolveKind(r.SchoolType, r.GradesLow, r.GradesHigh),
		GradesLow:  r.GradesLow,
		GradesHigh: r.GradesHigh,
		Address:    r.Address,
		City:       r.City,
		State:      r.State,
		Zip:        r.Zip,
		Latitude:   r.Latitude,
		Longitude:  r.Longitude,
	}
}

func (r EnrollmentRecord) Enrollment() core.Enrollment {
	return core.Enrollment{
		NCESSCH:             r.NCESSCH,
		SchoolYear:          r.SchoolYear,
		TotalStudents:       r.TotalStudents,
		StudentTeacherRatio: r.StudentTeacherRatio,
		PctFRL:              r.PctFRL,
		PctWhite:            r.PctWhite,
		PctBlack:            r.PctBlack,
		PctHispanic:         r.PctHispanic,
		PctAsian:            r.PctAsian,
		PctOther:            r.PctOther,
	}
}

func dollarsPtr(v *Amount) *core.Money {
	if v == nil {
		return nil
	}
	m := core.Money{Cents: int64(*v)}
	return &m
}

// Amount is a dollar figure in cents. In JSON it is either a number
// (13241, 13241.5) or a string as published ("$13,241.50").
type Amount int64

func (a *Amount) UnmarshalJSON(b []byte) error {
	raw := string(b)
	if raw == "null" {
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		if err := json.Unmarshal(b, &raw); err != nil {
			return err
		}
	}
	cents, err := core.ParseDollarsToCents(raw)
	if err != nil {
		return fmt.Errorf("amount %s: %w", b, err)
	}
	*a = Amount(cents)
	return nil
}
