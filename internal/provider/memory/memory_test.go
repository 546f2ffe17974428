package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

func sample(t *testing.T) *Store {
	t.Helper()
	s, err := NewSample()
	if err != nil {
		t.Fatalf("NewSample: %v", err)
	}
	return s
}

func TestSampleHasBothDistricts(t *testing.T) {
	s := sample(t)
	ds, err := s.ListDistricts(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 {
		t.Fatalf("want 2 districts, got %d", len(ds))
	}
	if ds[0].Name != "Dublin City" || ds[1].Name != "Olentangy Local" {
		t.Fatalf("unexpected order: %s, %s", ds[0].Name, ds[1].Name)
	}
	if ds[1].TotalSchools == nil || *ds[1].TotalSchools != 6 {
		t.Fatalf("Olentangy school count = %v", ds[1].TotalSchools)
	}
}

func TestListSchoolsSortedWithEnrollment(t *testing.T) {
	s := sample(t)
	rows, err := s.ListSchoolsWithEnrollment(context.Background(), "3904676")
	if err != nil {
		t.Fatal(err)
	}
	for i := 1; i < len(rows); i++ {
		if rows[i-1].Name > rows[i].Name {
			t.Fatalf("not sorted: %q before %q", rows[i-1].Name, rows[i].Name)
		}
	}
	var galena *core.SchoolWithEnrollment
	for i := range rows {
		if rows[i].NCESSCH == "390467601006" {
			galena = &rows[i]
		}
	}
	if galena == nil {
		t.Fatal("Johnnycake Corners missing")
	}
	if galena.Enrollment != nil {
		t.Fatalf("expected no enrollment, got %+v", galena.Enrollment)
	}
	if galena.Kind != core.KindElementary {
		t.Fatalf("kind from grades = %s", galena.Kind)
	}
}

func TestUnknownIDsAreNotFound(t *testing.T) {
	s := sample(t)
	ctx := context.Background()
	if _, err := s.GetDistrict(ctx, "nope"); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("district: %v", err)
	}
	if _, err := s.GetSchoolDetail(ctx, "nope"); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("school: %v", err)
	}
	if _, err := s.ListSchoolsWithEnrollment(ctx, "nope"); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("list: %v", err)
	}
}

func TestSchoolDetailJoinsDistrict(t *testing.T) {
	s := sample(t)
	d, err := s.GetSchoolDetail(context.Background(), "390470201001")
	if err != nil {
		t.Fatal(err)
	}
	if d.DistrictName != "Dublin City" {
		t.Fatalf("district name = %q", d.DistrictName)
	}
	if d.PerPupilExpenditure == nil || d.PerPupilExpenditure.FormatUSD() != "$15,982" {
		t.Fatalf("per pupil = %v", d.PerPupilExpenditure)
	}
	if d.Enrollment == nil || *d.Enrollment.TotalStudents != 1701 {
		t.Fatalf("enrollment = %+v", d.Enrollment)
	}
}

func TestLatestEnrollmentWins(t *testing.T) {
	ten, twenty := 10, 20
	s := New(provider.Dataset{
		Districts: []provider.DistrictRecord{{LEAID: "d", Name: "D"}},
		Schools:   []provider.SchoolRecord{{NCESSCH: "s", LEAID: "d", Name: "S"}},
		Enrollment: []provider.EnrollmentRecord{
			{NCESSCH: "s", SchoolYear: "2023-24", TotalStudents: &twenty},
			{NCESSCH: "s", SchoolYear: "2021-22", TotalStudents: &ten},
		},
	})
	d, err := s.GetSchoolDetail(context.Background(), "s")
	if err != nil {
		t.Fatal(err)
	}
	if *d.Enrollment.TotalStudents != 20 {
		t.Fatalf("got %d", *d.Enrollment.TotalStudents)
	}
}

func TestPopularityCounts(t *testing.T) {
	s := sample(t)
	ctx := context.Background()
	events := []core.ComparisonEvent{
		{Action: core.ActionAdded, SchoolID: "390470201001"},
		{Action: core.ActionAdded, SchoolID: "390467601001"},
		{Action: core.ActionAdded, SchoolID: "390470201001"},
		{Action: core.ActionRemoved, SchoolID: "390470201001"},
		{Action: core.ActionCleared, SchoolIDs: []string{"390467601001"}},
	}
	for _, ev := range events {
		if err := s.RecordComparisonEvent(ctx, ev); err != nil {
			t.Fatal(err)
		}
	}
	top, err := s.TopCompared(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("want 2, got %d", len(top))
	}
	if top[0].SchoolID != "390470201001" || top[0].Added != 2 || top[0].Removed != 1 {
		t.Fatalf("first = %+v", top[0])
	}
	if top[0].Name != "Dublin Jerome High School" || top[0].DistrictID != "3904702" {
		t.Fatalf("names not joined: %+v", top[0])
	}
	if top[1].Removed != 1 {
		t.Fatalf("clear not counted: %+v", top[1])
	}

	top, _ = s.TopCompared(ctx, 1)
	if len(top) != 1 {
		t.Fatalf("limit ignored: %d", len(top))
	}
	if err := s.RecordComparisonEvent(ctx, core.ComparisonEvent{Action: "poked"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
}

func TestNewFromFiles(t *testing.T) {
	dir := t.TempDir()

	s, err := NewFromFiles(dir)
	if err != nil {
		t.Fatalf("missing seed should fall back: %v", err)
	}
	if ds, _ := s.ListDistricts(context.Background()); len(ds) != 2 {
		t.Fatalf("fallback not sample: %d", len(ds))
	}

	seed := `{"districts":[{"leaid":"1","name":"Only"}],"schools":[],"enrollment":[]}`
	if err := os.WriteFile(filepath.Join(dir, provider.SeedFileName), []byte(seed), 0o644); err != nil {
		t.Fatal(err)
	}
	s, err = NewFromFiles(dir)
	if err != nil {
		t.Fatal(err)
	}
	if ds, _ := s.ListDistricts(context.Background()); len(ds) != 1 || ds[0].Name != "Only" {
		t.Fatalf("seed not used: %+v", ds)
	}

	bad := `{"districts":[],"schools":[{"ncessch":"x","leaid":"missing","name":"X"}]}`
	if err := os.WriteFile(filepath.Join(dir, provider.SeedFileName), []byte(bad), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewFromFiles(dir); err == nil {
		t.Fatal("expected dangling reference error")
	}
}
