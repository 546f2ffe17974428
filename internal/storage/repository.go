package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"

	_ "modernc.org/sqlite"
)

// SQLiteRepository serves school data, comparison state and popularity counts
// from a single SQLite file.
type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Concurrent sessions write comparison state; wait on locks instead of failing.
	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// ListDistricts implements provider.DistrictReader
func (r *SQLiteRepository) ListDistricts(ctx context.Context) ([]core.District, error) {
	rows, err := r.queries.ListDistricts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list districts: %w", err)
	}
	out := make([]core.District, 0, len(rows))
	for _, row := range rows {
		out = append(out, toDistrict(row))
	}
	return out, nil
}

// GetDistrict implements provider.DistrictReader
func (r *SQLiteRepository) GetDistrict(ctx context.Context, leaid string) (core.District, error) {
	row, err := r.queries.GetDistrict(ctx, leaid)
	if errors.Is(err, sql.ErrNoRows) {
		return core.District{}, fmt.Errorf("district %s: %w", leaid, provider.ErrNotFound)
	}
	if err != nil {
		return core.District{}, fmt.Errorf("get district %s: %w", leaid, err)
	}
	return toDistrict(row), nil
}

// ListSchoolsWithEnrollment implements provider.SchoolLister
func (r *SQLiteRepository) ListSchoolsWithEnrollment(ctx context.Context, leaid string) ([]core.SchoolWithEnrollment, error) {
	if _, err := r.GetDistrict(ctx, leaid); err != nil {
		return nil, err
	}
	rows, err := r.queries.ListSchoolsWithEnrollment(ctx, leaid)
	if err != nil {
		return nil, fmt.Errorf("list schools for %s: %w", leaid, err)
	}
	out := make([]core.SchoolWithEnrollment, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.SchoolWithEnrollment{
			School:     toSchool(row.School),
			Enrollment: toEnrollment(row),
		})
	}
	return out, nil
}

// GetSchoolDetail implements provider.SchoolDetailReader
func (r *SQLiteRepository) GetSchoolDetail(ctx context.Context, ncessch string) (core.SchoolDetail, error) {
	row, err := r.queries.GetSchoolDetail(ctx, ncessch)
	if errors.Is(err, sql.ErrNoRows) {
		return core.SchoolDetail{}, fmt.Errorf("school %s: %w", ncessch, provider.ErrNotFound)
	}
	if err != nil {
		return core.SchoolDetail{}, fmt.Errorf("get school %s: %w", ncessch, err)
	}
	return core.SchoolDetail{
		School:              toSchool(row.School),
		Enrollment:          toEnrollment(row.SchoolWithEnrollmentRow),
		DistrictName:        row.DistrictName.String,
		PerPupilExpenditure: centsPtr(row.PerPupilExpenditureCents),
	}, nil
}

// Get implements comparison.KeyValueStore
func (r *SQLiteRepository) Get(ctx context.Context, key string) ([]byte, bool, error) {
	v, err := r.queries.GetComparisonState(ctx, key)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get comparison state: %w", err)
	}
	return v, true, nil
}

// Set implements comparison.KeyValueStore
func (r *SQLiteRepository) Set(ctx context.Context, key string, value []byte) error {
	if err := r.queries.SetComparisonState(ctx, key, value); err != nil {
		return fmt.Errorf("set comparison state: %w", err)
	}
	return nil
}

// Remove implements comparison.KeyValueStore
func (r *SQLiteRepository) Remove(ctx context.Context, key string) error {
	if err := r.queries.DeleteComparisonState(ctx, key); err != nil {
		return fmt.Errorf("delete comparison state: %w", err)
	}
	return nil
}

// RecordComparisonEvent implements provider.EventRecorder
func (r *SQLiteRepository) RecordComparisonEvent(ctx context.Context, ev core.ComparisonEvent) error {
	at := ev.Timestamp
	if at.IsZero() {
		at = time.Now()
	}
	at = at.UTC()

	switch ev.Action {
	case core.ActionAdded:
		return r.bump(ctx, r.queries, BumpCompareCountParams{Ncessch: ev.SchoolID, DistrictID: ev.DistrictID, Added: 1, At: at})
	case core.ActionRemoved:
		return r.bump(ctx, r.queries, BumpCompareCountParams{Ncessch: ev.SchoolID, DistrictID: ev.DistrictID, Removed: 1, At: at})
	case core.ActionCleared:
		return r.inTx(ctx, func(q *Queries) error {
			for _, id := range ev.SchoolIDs {
				if err := r.bump(ctx, q, BumpCompareCountParams{Ncessch: id, Removed: 1, At: at}); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return fmt.Errorf("unknown comparison action %q", ev.Action)
}

func (r *SQLiteRepository) bump(ctx context.Context, q *Queries, arg BumpCompareCountParams) error {
	if arg.Ncessch == "" {
		return fmt.Errorf("comparison event without school id")
	}
	if err := q.BumpCompareCount(ctx, arg); err != nil {
		return fmt.Errorf("bump compare count for %s: %w", arg.Ncessch, err)
	}
	return nil
}

// TopCompared implements provider.PopularityReader
func (r *SQLiteRepository) TopCompared(ctx context.Context, limit int) ([]core.SchoolPopularity, error) {
	l := int64(limit)
	if l <= 0 {
		l = -1
	}
	rows, err := r.queries.TopCompared(ctx, l)
	if err != nil {
		return nil, fmt.Errorf("top compared: %w", err)
	}
	out := make([]core.SchoolPopularity, 0, len(rows))
	for _, row := range rows {
		out = append(out, core.SchoolPopularity{
			SchoolID:   row.Ncessch,
			Name:       row.Name.String,
			DistrictID: row.DistrictID,
			Added:      row.Added,
			Removed:    row.Removed,
		})
	}
	return out, nil
}

// ImportDataset upserts a fixture dataset in one transaction.
func (r *SQLiteRepository) ImportDataset(ctx context.Context, ds provider.Dataset) error {
	if err := ds.Validate(); err != nil {
		return err
	}
	return r.inTx(ctx, func(q *Queries) error {
		for _, d := range ds.Districts {
			if err := q.UpsertDistrict(ctx, fromDistrict(d.District())); err != nil {
				return fmt.Errorf("upsert district %s: %w", d.LEAID, err)
			}
		}
		for _, s := range ds.Schools {
			if err := q.UpsertSchool(ctx, fromSchoolRecord(s)); err != nil {
				return fmt.Errorf("upsert school %s: %w", s.NCESSCH, err)
			}
		}
		for _, e := range ds.Enrollment {
			if err := q.UpsertEnrollment(ctx, fromEnrollment(e.Enrollment())); err != nil {
				return fmt.Errorf("upsert enrollment %s/%s: %w", e.NCESSCH, e.SchoolYear, err)
			}
		}
		return nil
	})
}

func (r *SQLiteRepository) inTx(ctx context.Context, fn func(*Queries) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	if err := fn(r.queries.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

var (
	_ provider.Provider         = (*SQLiteRepository)(nil)
	_ provider.PopularityReader = (*SQLiteRepository)(nil)
	_ provider.EventRecorder    = (*SQLiteRepository)(nil)
)
