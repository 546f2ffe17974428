package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"schoolcompare/internal/comparison"
	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

func newTestRepo(t *testing.T) (*SQLiteRepository, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "nested", "schools.db")
	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo, path
}

func seededRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, _ := newTestRepo(t)
	ds, err := provider.SampleDataset()
	if err != nil {
		t.Fatal(err)
	}
	if err := repo.ImportDataset(context.Background(), ds); err != nil {
		t.Fatalf("ImportDataset: %v", err)
	}
	return repo
}

func TestMigrationsApplied(t *testing.T) {
	_, path := newTestRepo(t)
	v, dirty, err := MigrationVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if v != 1 || dirty {
		t.Fatalf("version=%d dirty=%v", v, dirty)
	}
	// Running again is a no-op.
	if err := RunMigrations(path); err != nil {
		t.Fatalf("second run: %v", err)
	}
}

func TestDistricts(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()

	ds, err := repo.ListDistricts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(ds) != 2 || ds[0].Name != "Dublin City" {
		t.Fatalf("districts = %+v", ds)
	}

	d, err := repo.GetDistrict(ctx, "3904676")
	if err != nil {
		t.Fatal(err)
	}
	if d.TotalSchools == nil || *d.TotalSchools != 6 {
		t.Fatalf("total schools = %v", d.TotalSchools)
	}
	if d.PerPupilExpenditure == nil || d.PerPupilExpenditure.FormatUSD() != "$13,241" {
		t.Fatalf("per pupil = %v", d.PerPupilExpenditure)
	}
	if d.Phone != nil {
		t.Fatalf("phone should be nil, got %q", *d.Phone)
	}

	if _, err := repo.GetDistrict(ctx, "0000000"); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestListSchoolsWithEnrollment(t *testing.T) {
	repo := seededRepo(t)
	rows, err := repo.ListSchoolsWithEnrollment(context.Background(), "3904676")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Fatalf("want 6 schools, got %d", len(rows))
	}
	if rows[0].Name != "Arrowhead Elementary School" {
		t.Fatalf("first = %q", rows[0].Name)
	}
	byID := map[string]core.SchoolWithEnrollment{}
	for _, r := range rows {
		byID[r.NCESSCH] = r
	}
	if e := byID["390467601006"].Enrollment; e != nil {
		t.Fatalf("Johnnycake should have no enrollment, got %+v", e)
	}
	hyatts := byID["390467601003"]
	if hyatts.Kind != core.KindMiddle {
		t.Fatalf("Hyatts kind = %s", hyatts.Kind)
	}
	if hyatts.Enrollment == nil || hyatts.Enrollment.PctWhite != nil || *hyatts.Enrollment.TotalStudents != 912 {
		t.Fatalf("Hyatts enrollment = %+v", hyatts.Enrollment)
	}

	if _, err := repo.ListSchoolsWithEnrollment(context.Background(), "nope"); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestSchoolDetailUsesLatestYear(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()
	old := 1500
	err := repo.ImportDataset(ctx, provider.Dataset{
		Districts:  []provider.DistrictRecord{{LEAID: "3904702", Name: "Dublin City"}},
		Schools:    []provider.SchoolRecord{{NCESSCH: "390470201001", LEAID: "3904702", Name: "Dublin Jerome High School", SchoolType: "High"}},
		Enrollment: []provider.EnrollmentRecord{{NCESSCH: "390470201001", SchoolYear: "2019-20", TotalStudents: &old}},
	})
	if err != nil {
		t.Fatal(err)
	}

	d, err := repo.GetSchoolDetail(ctx, "390470201001")
	if err != nil {
		t.Fatal(err)
	}
	if d.Enrollment == nil || d.Enrollment.SchoolYear != "2023-24" || *d.Enrollment.TotalStudents != 1701 {
		t.Fatalf("enrollment = %+v", d.Enrollment)
	}
	if d.DistrictName != "Dublin City" {
		t.Fatalf("district = %q", d.DistrictName)
	}

	if _, err := repo.GetSchoolDetail(ctx, "nope"); !errors.Is(err, provider.ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestComparisonStateBacksStore(t *testing.T) {
	repo, _ := newTestRepo(t)
	ctx := context.Background()

	if _, found, err := repo.Get(ctx, "missing"); err != nil || found {
		t.Fatalf("found=%v err=%v", found, err)
	}

	s := comparison.New(ctx, repo)
	ref := core.SchoolRef{ID: "390467601001", Name: "Liberty High School", DistrictID: "3904676", Kind: core.KindHigh}
	if _, err := s.Add(ctx, ref); err != nil {
		t.Fatal(err)
	}
	if err := s.LastPersistError(); err != nil {
		t.Fatal(err)
	}

	restored := comparison.New(ctx, repo)
	if got := restored.List(); len(got) != 1 || got[0].ID != ref.ID {
		t.Fatalf("restored = %+v", got)
	}

	if err := repo.Remove(ctx, comparison.StorageKey); err != nil {
		t.Fatal(err)
	}
	if _, found, _ := repo.Get(ctx, comparison.StorageKey); found {
		t.Fatal("key should be gone")
	}
}

func TestPopularity(t *testing.T) {
	repo := seededRepo(t)
	ctx := context.Background()
	now := time.Date(2024, 9, 1, 12, 0, 0, 0, time.UTC)

	events := []core.ComparisonEvent{
		{Action: core.ActionAdded, SchoolID: "390470201001", DistrictID: "3904702", Timestamp: now},
		{Action: core.ActionAdded, SchoolID: "390470201001", DistrictID: "3904702", Timestamp: now},
		{Action: core.ActionAdded, SchoolID: "390467601001", DistrictID: "3904676", Timestamp: now},
		{Action: core.ActionRemoved, SchoolID: "390470201001", DistrictID: "3904702", Timestamp: now},
		{Action: core.ActionCleared, SchoolIDs: []string{"390467601001"}, Timestamp: now},
		{Action: core.ActionRemoved, SchoolID: "390467601004"},
	}
	for _, ev := range events {
		if err := repo.RecordComparisonEvent(ctx, ev); err != nil {
			t.Fatalf("record %+v: %v", ev, err)
		}
	}

	top, err := repo.TopCompared(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(top) != 2 {
		t.Fatalf("want 2 (removal-only rows excluded), got %+v", top)
	}
	want := core.SchoolPopularity{SchoolID: "390470201001", Name: "Dublin Jerome High School", DistrictID: "3904702", Added: 2, Removed: 1}
	if top[0] != want {
		t.Fatalf("top[0] = %+v", top[0])
	}
	if top[1].Removed != 1 || top[1].DistrictID != "3904676" {
		t.Fatalf("top[1] = %+v", top[1])
	}

	top, _ = repo.TopCompared(ctx, 1)
	if len(top) != 1 {
		t.Fatalf("limit ignored: %d", len(top))
	}

	if err := repo.RecordComparisonEvent(ctx, core.ComparisonEvent{Action: "poked", SchoolID: "x"}); err == nil {
		t.Fatal("expected error for unknown action")
	}
	if err := repo.RecordComparisonEvent(ctx, core.ComparisonEvent{Action: core.ActionAdded}); err == nil {
		t.Fatal("expected error for missing school id")
	}
}

func TestImportRejectsInvalidDataset(t *testing.T) {
	repo, _ := newTestRepo(t)
	err := repo.ImportDataset(context.Background(), provider.Dataset{
		Schools: []provider.SchoolRecord{{NCESSCH: "s", LEAID: "nope", Name: "S"}},
	})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestMigrateDown(t *testing.T) {
	repo, path := newTestRepo(t)
	repo.Close()
	if err := MigrateDown(path, 0); err != nil {
		t.Fatal(err)
	}
	v, _, err := MigrationVersion(path)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0 {
		t.Fatalf("version after down = %d", v)
	}
}
