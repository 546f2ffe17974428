package storage

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

type District struct {
	Leaid                    string
	Irn                      sql.NullString
	Name                     string
	Location                 sql.NullString
	Phone                    sql.NullString
	Website                  sql.NullString
	TotalSchools             sql.NullInt64
	PerPupilExpenditureCents sql.NullInt64
	PctFromLocalTax          sql.NullFloat64
	TotalRevenueCents        sql.NullInt64
	LocalRevenueCents        sql.NullInt64
	OverallRating            sql.NullString
	GraduationRate4yr        sql.NullFloat64
}

type School struct {
	Ncessch    string
	Leaid      string
	Irn        sql.NullString
	Name       string
	SchoolType string
	GradesLow  sql.NullString
	GradesHigh sql.NullString
	Address    string
	City       string
	State      string
	Zip        string
	Latitude   sql.NullFloat64
	Longitude  sql.NullFloat64
}

type SchoolEnrollment struct {
	Ncessch             string
	SchoolYear          string
	TotalStudents       sql.NullInt64
	StudentTeacherRatio sql.NullFloat64
	PctFrl              sql.NullFloat64
	PctWhite            sql.NullFloat64
	PctBlack            sql.NullFloat64
	PctHispanic         sql.NullFloat64
	PctAsian            sql.NullFloat64
	PctOther            sql.NullFloat64
}

type SchoolCompareCount struct {
	Ncessch     string
	DistrictID  string
	Added       int64
	Removed     int64
	LastEventAt time.Time
}

const districtColumns = `d.leaid, d.irn, d.name, d.location, d.phone, d.website,
    COALESCE(d.total_schools, (SELECT COUNT(*) FROM schools s WHERE s.leaid = d.leaid)),
    d.per_pupil_expenditure_cents, d.pct_from_local_tax, d.total_revenue_cents,
    d.local_revenue_cents, d.overall_rating, d.graduation_rate_4yr`

func scanDistrict(row interface{ Scan(...interface{}) error }) (District, error) {
	var i District
	err := row.Scan(
		&i.Leaid, &i.Irn, &i.Name, &i.Location, &i.Phone, &i.Website,
		&i.TotalSchools, &i.PerPupilExpenditureCents, &i.PctFromLocalTax,
		&i.TotalRevenueCents, &i.LocalRevenueCents, &i.OverallRating, &i.GraduationRate4yr,
	)
	return i, err
}

const listDistricts = `-- name: ListDistricts :many
SELECT ` + districtColumns + `
FROM districts d
ORDER BY d.name`

func (q *Queries) ListDistricts(ctx context.Context) ([]District, error) {
	rows, err := q.db.QueryContext(ctx, listDistricts)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []District
	for rows.Next() {
		i, err := scanDistrict(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getDistrict = `-- name: GetDistrict :one
SELECT ` + districtColumns + `
FROM districts d
WHERE d.leaid = ?`

func (q *Queries) GetDistrict(ctx context.Context, leaid string) (District, error) {
	return scanDistrict(q.db.QueryRowContext(ctx, getDistrict, leaid))
}

type SchoolWithEnrollmentRow struct {
	School
	EnrollmentYear sql.NullString
	SchoolEnrollment
}

const latestEnrollmentJoin = `LEFT JOIN school_enrollment e
    ON e.ncessch = s.ncessch
    AND e.school_year = (SELECT MAX(school_year) FROM school_enrollment WHERE ncessch = s.ncessch)`

const schoolColumns = `s.ncessch, s.leaid, s.irn, s.name, s.school_type, s.grades_low, s.grades_high,
    s.address, s.city, s.state, s.zip, s.latitude, s.longitude,
    e.school_year, e.total_students, e.student_teacher_ratio, e.pct_frl,
    e.pct_white, e.pct_black, e.pct_hispanic, e.pct_asian, e.pct_other`

func scanSchoolWithEnrollment(row interface{ Scan(...interface{}) error }) (SchoolWithEnrollmentRow, error) {
	var i SchoolWithEnrollmentRow
	err := row.Scan(
		&i.School.Ncessch, &i.Leaid, &i.Irn, &i.School.Name, &i.SchoolType, &i.GradesLow, &i.GradesHigh,
		&i.Address, &i.City, &i.State, &i.Zip, &i.Latitude, &i.Longitude,
		&i.EnrollmentYear, &i.TotalStudents, &i.StudentTeacherRatio, &i.PctFrl,
		&i.PctWhite, &i.PctBlack, &i.PctHispanic, &i.PctAsian, &i.PctOther,
	)
	i.SchoolEnrollment.Ncessch = i.School.Ncessch
	i.SchoolEnrollment.SchoolYear = i.EnrollmentYear.String
	return i, err
}

const listSchoolsWithEnrollment = `-- name: ListSchoolsWithEnrollment :many
SELECT ` + schoolColumns + `
FROM schools s
` + latestEnrollmentJoin + `
WHERE s.leaid = ?
ORDER BY s.name COLLATE NOCASE`

func (q *Queries) ListSchoolsWithEnrollment(ctx context.Context, leaid string) ([]SchoolWithEnrollmentRow, error) {
	rows, err := q.db.QueryContext(ctx, listSchoolsWithEnrollment, leaid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SchoolWithEnrollmentRow
	for rows.Next() {
		i, err := scanSchoolWithEnrollment(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

type GetSchoolDetailRow struct {
	SchoolWithEnrollmentRow
	DistrictName             sql.NullString
	PerPupilExpenditureCents sql.NullInt64
}

const getSchoolDetail = `-- name: GetSchoolDetail :one
SELECT ` + schoolColumns + `, d.name, d.per_pupil_expenditure_cents
FROM schools s
` + latestEnrollmentJoin + `
LEFT JOIN districts d ON d.leaid = s.leaid
WHERE s.ncessch = ?`

func (q *Queries) GetSchoolDetail(ctx context.Context, ncessch string) (GetSchoolDetailRow, error) {
	var i GetSchoolDetailRow
	r := &i.SchoolWithEnrollmentRow
	err := q.db.QueryRowContext(ctx, getSchoolDetail, ncessch).Scan(
		&r.School.Ncessch, &r.Leaid, &r.Irn, &r.School.Name, &r.SchoolType, &r.GradesLow, &r.GradesHigh,
		&r.Address, &r.City, &r.State, &r.Zip, &r.Latitude, &r.Longitude,
		&r.EnrollmentYear, &r.TotalStudents, &r.StudentTeacherRatio, &r.PctFrl,
		&r.PctWhite, &r.PctBlack, &r.PctHispanic, &r.PctAsian, &r.PctOther,
		&i.DistrictName, &i.PerPupilExpenditureCents,
	)
	r.SchoolEnrollment.Ncessch = r.School.Ncessch
	r.SchoolEnrollment.SchoolYear = r.EnrollmentYear.String
	return i, err
}

const upsertDistrict = `-- name: UpsertDistrict :exec
INSERT INTO districts (
    leaid, irn, name, location, phone, website, total_schools,
    per_pupil_expenditure_cents, pct_from_local_tax, total_revenue_cents,
    local_revenue_cents, overall_rating, graduation_rate_4yr
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(leaid) DO UPDATE SET
    irn = excluded.irn, name = excluded.name, location = excluded.location,
    phone = excluded.phone, website = excluded.website, total_schools = excluded.total_schools,
    per_pupil_expenditure_cents = excluded.per_pupil_expenditure_cents,
    pct_from_local_tax = excluded.pct_from_local_tax,
    total_revenue_cents = excluded.total_revenue_cents,
    local_revenue_cents = excluded.local_revenue_cents,
    overall_rating = excluded.overall_rating,
    graduation_rate_4yr = excluded.graduation_rate_4yr`

func (q *Queries) UpsertDistrict(ctx context.Context, arg District) error {
	_, err := q.db.ExecContext(ctx, upsertDistrict,
		arg.Leaid, arg.Irn, arg.Name, arg.Location, arg.Phone, arg.Website, arg.TotalSchools,
		arg.PerPupilExpenditureCents, arg.PctFromLocalTax, arg.TotalRevenueCents,
		arg.LocalRevenueCents, arg.OverallRating, arg.GraduationRate4yr,
	)
	return err
}

const upsertSchool = `-- name: UpsertSchool :exec
INSERT INTO schools (
    ncessch, leaid, irn, name, school_type, grades_low, grades_high,
    address, city, state, zip, latitude, longitude
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ncessch) DO UPDATE SET
    leaid = excluded.leaid, irn = excluded.irn, name = excluded.name,
    school_type = excluded.school_type, grades_low = excluded.grades_low,
    grades_high = excluded.grades_high, address = excluded.address, city = excluded.city,
    state = excluded.state, zip = excluded.zip, latitude = excluded.latitude,
    longitude = excluded.longitude`

func (q *Queries) UpsertSchool(ctx context.Context, arg School) error {
	_, err := q.db.ExecContext(ctx, upsertSchool,
		arg.Ncessch, arg.Leaid, arg.Irn, arg.Name, arg.SchoolType, arg.GradesLow, arg.GradesHigh,
		arg.Address, arg.City, arg.State, arg.Zip, arg.Latitude, arg.Longitude,
	)
	return err
}

const upsertEnrollment = `-- name: UpsertEnrollment :exec
INSERT INTO school_enrollment (
    ncessch, school_year, total_students, student_teacher_ratio, pct_frl,
    pct_white, pct_black, pct_hispanic, pct_asian, pct_other
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ncessch, school_year) DO UPDATE SET
    total_students = excluded.total_students,
    student_teacher_ratio = excluded.student_teacher_ratio,
    pct_frl = excluded.pct_frl, pct_white = excluded.pct_white,
    pct_black = excluded.pct_black, pct_hispanic = excluded.pct_hispanic,
    pct_asian = excluded.pct_asian, pct_other = excluded.pct_other`

func (q *Queries) UpsertEnrollment(ctx context.Context, arg SchoolEnrollment) error {
	_, err := q.db.ExecContext(ctx, upsertEnrollment,
		arg.Ncessch, arg.SchoolYear, arg.TotalStudents, arg.StudentTeacherRatio, arg.PctFrl,
		arg.PctWhite, arg.PctBlack, arg.PctHispanic, arg.PctAsian, arg.PctOther,
	)
	return err
}

const getComparisonState = `-- name: GetComparisonState :one
SELECT value FROM comparison_state WHERE key = ?`

func (q *Queries) GetComparisonState(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := q.db.QueryRowContext(ctx, getComparisonState, key).Scan(&value)
	return value, err
}

const setComparisonState = `-- name: SetComparisonState :exec
INSERT INTO comparison_state (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`

func (q *Queries) SetComparisonState(ctx context.Context, key string, value []byte) error {
	_, err := q.db.ExecContext(ctx, setComparisonState, key, value)
	return err
}

const deleteComparisonState = `-- name: DeleteComparisonState :exec
DELETE FROM comparison_state WHERE key = ?`

func (q *Queries) DeleteComparisonState(ctx context.Context, key string) error {
	_, err := q.db.ExecContext(ctx, deleteComparisonState, key)
	return err
}

type BumpCompareCountParams struct {
	Ncessch    string
	DistrictID string
	Added      int64
	Removed    int64
	At         time.Time
}

const bumpCompareCount = `-- name: BumpCompareCount :exec
INSERT INTO school_compare_counts (ncessch, district_id, added, removed, last_event_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(ncessch) DO UPDATE SET
    district_id = CASE WHEN excluded.district_id <> '' THEN excluded.district_id ELSE school_compare_counts.district_id END,
    added = school_compare_counts.added + excluded.added,
    removed = school_compare_counts.removed + excluded.removed,
    last_event_at = excluded.last_event_at`

func (q *Queries) BumpCompareCount(ctx context.Context, arg BumpCompareCountParams) error {
	_, err := q.db.ExecContext(ctx, bumpCompareCount,
		arg.Ncessch, arg.DistrictID, arg.Added, arg.Removed, arg.At,
	)
	return err
}

type TopComparedRow struct {
	SchoolCompareCount
	Name sql.NullString
}

const topCompared = `-- name: TopCompared :many
SELECT c.ncessch, COALESCE(NULLIF(c.district_id, ''), s.leaid, ''), c.added, c.removed, c.last_event_at, s.name
FROM school_compare_counts c
LEFT JOIN schools s ON s.ncessch = c.ncessch
WHERE c.added > 0
ORDER BY c.added DESC, c.ncessch
LIMIT ?`

func (q *Queries) TopCompared(ctx context.Context, limit int64) ([]TopComparedRow, error) {
	rows, err := q.db.QueryContext(ctx, topCompared, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TopComparedRow
	for rows.Next() {
		var i TopComparedRow
		if err := rows.Scan(
			&i.Ncessch, &i.DistrictID, &i.Added, &i.Removed, &i.LastEventAt, &i.Name,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
