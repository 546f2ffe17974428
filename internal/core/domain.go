package core

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

// SchoolKind groups schools by grade band.
type SchoolKind string

const (
	KindElementary SchoolKind = "Elementary"
	KindMiddle     SchoolKind = "Middle"
	KindHigh       SchoolKind = "High"
	KindOther      SchoolKind = "Other"
)

// Kinds lists the school kinds in display order.
var Kinds = []SchoolKind{KindElementary, KindMiddle, KindHigh, KindOther}

type (
	// District is a public school district as returned by the data provider.
	// Pointer fields are nil when the source has no value.
	District struct {
		LEAID               string
		IRN                 *string
		Name                string
		Location            *string
		Phone               *string
		Website             *string
		TotalSchools        *int
		PerPupilExpenditure *Money
		PctFromLocalTax     *float64
		TotalRevenue        *Money
		LocalRevenue        *Money
		OverallRating       *string
		GraduationRate4yr   *float64
	}

	School struct {
		NCESSCH    string
		LEAID      string
		IRN        *string
		Name       string
		Kind       SchoolKind
		GradesLow  *string
		GradesHigh *string
		Address    string
		City       string
		State      string
		Zip        string
		Latitude   *float64
		Longitude  *float64
	}

	Enrollment struct {
		NCESSCH             string
		SchoolYear          string
		TotalStudents       *int
		StudentTeacherRatio *float64
		PctFRL              *float64
		PctWhite            *float64
		PctBlack            *float64
		PctHispanic         *float64
		PctAsian            *float64
		PctOther            *float64
	}

	// SchoolWithEnrollment is a school row left-joined with its latest enrollment.
	SchoolWithEnrollment struct {
		School
		Enrollment *Enrollment
	}

	// SchoolDetail is a school with enrollment and the owning district's spend.
	SchoolDetail struct {
		School
		Enrollment          *Enrollment
		DistrictName        string
		PerPupilExpenditure *Money
	}

	// SchoolRef is the minimal record a comparison list holds about a school.
	SchoolRef struct {
		ID                 string     `json:"id" validate:"required,max=32"`
		Name               string     `json:"name" validate:"required,max=200"`
		DistrictID         string     `json:"districtId" validate:"required,max=32"`
		DistrictName       string     `json:"districtName" validate:"max=200"`
		Kind               SchoolKind `json:"schoolKind" validate:"required,oneof=Elementary Middle High Other"`
		MunicipalitySignal string     `json:"municipalitySignal" validate:"max=100"`
		Address            string     `json:"address,omitempty"`
		City               string     `json:"city,omitempty"`
		State              string     `json:"state,omitempty"`
		Zip                string     `json:"zip,omitempty"`
		GradesLow          string     `json:"gradesLow,omitempty"`
		GradesHigh         string     `json:"gradesHigh,omitempty"`
	}

	// TaxBucket is an estimated annual property-tax range for a reference home.
	TaxBucket struct {
		DistrictID     string
		Low            Money
		High           Money
		Representative Money
		Label          string
		Matched        string
	}
)

var (
	ErrCapacityExceeded = errors.New("comparison list is full")
	ErrUnknownDistrict  = errors.New("unknown district")
	ErrPersistence      = errors.New("comparison persistence failed")
	ErrInvalidSchool    = errors.New("invalid school reference")
)

var validate = validator.New()

// Validate checks the reference carries what a comparison list needs.
func (r SchoolRef) Validate() error {
	if err := validate.Struct(r); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				fields = append(fields, fmt.Sprintf("%s(%s)", fe.Field(), fe.Tag()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSchool, strings.Join(fields, ", "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSchool, err)
	}
	return nil
}

// Ref builds the comparison reference for a school. signal is the value the
// tax estimator keys on for the school's district.
func (s School) Ref(districtName, signal string) SchoolRef {
	return SchoolRef{
		ID:                 s.NCESSCH,
		Name:               s.Name,
		DistrictID:         s.LEAID,
		DistrictName:       districtName,
		Kind:               s.Kind,
		MunicipalitySignal: signal,
		Address:            s.Address,
		City:               s.City,
		State:              s.State,
		Zip:                s.Zip,
		GradesLow:          deref(s.GradesLow),
		GradesHigh:         deref(s.GradesHigh),
	}
}

// GradeSpan renders the grade range, e.g. "KG-05".
func (s School) GradeSpan() string {
	lo, hi := deref(s.GradesLow), deref(s.GradesHigh)
	switch {
	case lo == "" && hi == "":
		return ""
	case lo == "":
		return hi
	case hi == "":
		return lo
	}
	return lo + "-" + hi
}

// ParseSchoolKind maps user input to a kind, case-insensitively.
func ParseSchoolKind(s string) (SchoolKind, bool) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, true
		}
	}
	return "", false
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
