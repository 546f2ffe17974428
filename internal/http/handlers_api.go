package http

import (
	"errors"
	"net/http"
	"strings"

	"schoolcompare/internal/core"
	"schoolcompare/internal/log"
	"schoolcompare/internal/provider"
)

// schoolDTO is the JSON shape of a school; unknown values are null.
type schoolDTO struct {
	NCESSCH             string   `json:"ncessch"`
	LEAID               string   `json:"leaid"`
	Name                string   `json:"name"`
	Kind                string   `json:"kind"`
	GradesLow           *string  `json:"grades_low"`
	GradesHigh          *string  `json:"grades_high"`
	Address             string   `json:"address"`
	City                string   `json:"city"`
	State               string   `json:"state"`
	Zip                 string   `json:"zip"`
	DistrictName        string   `json:"district_name"`
	SchoolYear          *string  `json:"school_year"`
	TotalStudents       *int     `json:"total_students"`
	StudentTeacherRatio *float64 `json:"student_teacher_ratio"`
	PctFRL              *float64 `json:"pct_frl"`
	PctWhite            *float64 `json:"pct_white"`
	PctBlack            *float64 `json:"pct_black"`
	PctHispanic         *float64 `json:"pct_hispanic"`
	PctAsian            *float64 `json:"pct_asian"`
	PctOther            *float64 `json:"pct_other"`
	PerPupilExpenditure *float64 `json:"per_pupil_expenditure"`
}

type taxDTO struct {
	DistrictID     string  `json:"district_id"`
	Low            float64 `json:"low"`
	High           float64 `json:"high"`
	Representative float64 `json:"representative"`
	Label          string  `json:"label"`
	Matched        string  `json:"matched,omitempty"`
}

func newSchoolDTO(d core.SchoolDetail) schoolDTO {
	dto := schoolDTO{
		NCESSCH:      d.NCESSCH,
		LEAID:        d.LEAID,
		Name:         d.Name,
		Kind:         string(d.Kind),
		GradesLow:    d.GradesLow,
		GradesHigh:   d.GradesHigh,
		Address:      d.Address,
		City:         d.City,
		State:        d.State,
		Zip:          d.Zip,
		DistrictName: d.DistrictName,
	}
	if e := d.Enrollment; e != nil {
		if e.SchoolYear != "" {
			year := e.SchoolYear
			dto.SchoolYear = &year
		}
		dto.TotalStudents = e.TotalStudents
		dto.StudentTeacherRatio = e.StudentTeacherRatio
		dto.PctFRL = e.PctFRL
		dto.PctWhite = e.PctWhite
		dto.PctBlack = e.PctBlack
		dto.PctHispanic = e.PctHispanic
		dto.PctAsian = e.PctAsian
		dto.PctOther = e.PctOther
	}
	if d.PerPupilExpenditure != nil {
		v := d.PerPupilExpenditure.Dollars()
		dto.PerPupilExpenditure = &v
	}
	return dto
}

func (s *Server) handleAPISchool(w http.ResponseWriter, r *http.Request) {
	id, err := ParseSchoolID(r.PathValue("ncessch"))
	if err != nil {
		writeJSONError(w, r, http.StatusBadRequest, "InvalidSchoolId", err.Error())
		return
	}

	ctx, cancel := s.readContext(r.Context())
	defer cancel()

	detail, err := s.provider.GetSchoolDetail(ctx, id)
	if errors.Is(err, provider.ErrNotFound) {
		writeJSONError(w, r, http.StatusNotFound, "NotFound", "no school with id "+id)
		return
	}
	if err != nil {
		s.requestLogger(r).ErrorContext(r.Context(), "Failed to load school",
			log.FieldError, err,
			log.FieldSchoolID, id)
		writeJSONError(w, r, http.StatusInternalServerError, "Internal", "school data is unavailable")
		return
	}
	writeJSON(w, r, http.StatusOK, newSchoolDTO(detail))
}

func (s *Server) handleAPITax(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	district := strings.TrimSpace(q.Get("district"))
	if district == "" {
		writeJSONError(w, r, http.StatusBadRequest, "MissingDistrict", "district is required")
		return
	}

	b, err := s.estimator.Estimate(district, sanitizeInput(q.Get("signal")))
	if errors.Is(err, core.ErrUnknownDistrict) {
		writeJSONError(w, r, http.StatusNotFound, "UnknownDistrict", "no tax table for district "+district)
		return
	}
	if err != nil {
		writeJSONError(w, r, http.StatusInternalServerError, "Internal", err.Error())
		return
	}
	writeJSON(w, r, http.StatusOK, taxDTO{
		DistrictID:     b.DistrictID,
		Low:            b.Low.Dollars(),
		High:           b.High.Dollars(),
		Representative: b.Representative.Dollars(),
		Label:          b.Label,
		Matched:        b.Matched,
	})
}
