// Package memory is an in-process data provider backed by a JSON dataset.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

// Store serves districts and schools from memory and counts comparison events.
type Store struct {
	mu         sync.RWMutex
	districts  map[string]core.District
	schools    map[string]core.School
	enrollment map[string]core.Enrollment
	counts     map[string]*core.SchoolPopularity
}

// New indexes ds. Only the latest school year of enrollment is kept per school.
func New(ds provider.Dataset) *Store {
	s := &Store{
		districts:  make(map[string]core.District, len(ds.Districts)),
		schools:    make(map[string]core.School, len(ds.Schools)),
		enrollment: make(map[string]core.Enrollment, len(ds.Enrollment)),
		counts:     map[string]*core.SchoolPopularity{},
	}
	for _, d := range ds.Districts {
		s.districts[d.LEAID] = d.District()
	}
	for _, sc := range ds.Schools {
		s.schools[sc.NCESSCH] = sc.School()
	}
	for _, e := range ds.Enrollment {
		if prev, ok := s.enrollment[e.NCESSCH]; ok && prev.SchoolYear > e.SchoolYear {
			continue
		}
		s.enrollment[e.NCESSCH] = e.Enrollment()
	}
	return s
}

// NewFromFiles loads <base>/seed.json, falling back to the built-in sample
// when the file does not exist.
func NewFromFiles(base string) (*Store, error) {
	ds, err := provider.LoadDatasetDir(base)
	if err == nil {
		return New(ds), nil
	}
	if !provider.IsMissing(err) {
		return nil, err
	}
	return NewSample()
}

// NewSample returns a store over the built-in illustrative dataset.
func NewSample() (*Store, error) {
	ds, err := provider.SampleDataset()
	if err != nil {
		return nil, err
	}
	return New(ds), nil
}

func (s *Store) ListDistricts(_ context.Context) ([]core.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.District, 0, len(s.districts))
	for _, d := range s.districts {
		out = append(out, s.withSchoolCount(d))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) GetDistrict(_ context.Context, leaid string) (core.District, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.districts[leaid]
	if !ok {
		return core.District{}, fmt.Errorf("district %s: %w", leaid, provider.ErrNotFound)
	}
	return s.withSchoolCount(d), nil
}

// withSchoolCount fills TotalSchools when the dataset left it blank; callers hold s.mu.
func (s *Store) withSchoolCount(d core.District) core.District {
	if d.TotalSchools != nil {
		return d
	}
	n := 0
	for _, sc := range s.schools {
		if sc.LEAID == d.LEAID {
			n++
		}
	}
	d.TotalSchools = &n
	return d
}

func (s *Store) ListSchoolsWithEnrollment(_ context.Context, leaid string) ([]core.SchoolWithEnrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.districts[leaid]; !ok {
		return nil, fmt.Errorf("district %s: %w", leaid, provider.ErrNotFound)
	}
	var out []core.SchoolWithEnrollment
	for _, sc := range s.schools {
		if sc.LEAID != leaid {
			continue
		}
		row := core.SchoolWithEnrollment{School: sc}
		if e, ok := s.enrollment[sc.NCESSCH]; ok {
			row.Enrollment = &e
		}
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}

func (s *Store) GetSchoolDetail(_ context.Context, ncessch string) (core.SchoolDetail, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sc, ok := s.schools[ncessch]
	if !ok {
		return core.SchoolDetail{}, fmt.Errorf("school %s: %w", ncessch, provider.ErrNotFound)
	}
	detail := core.SchoolDetail{School: sc}
	if e, ok := s.enrollment[ncessch]; ok {
		detail.Enrollment = &e
	}
	if d, ok := s.districts[sc.LEAID]; ok {
		detail.DistrictName = d.Name
		detail.PerPupilExpenditure = d.PerPupilExpenditure
	}
	return detail, nil
}

// RecordComparisonEvent bumps the added/removed counters. A clear counts as
// a removal of every listed school.
func (s *Store) RecordComparisonEvent(_ context.Context, ev core.ComparisonEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch ev.Action {
	case core.ActionAdded:
		s.counter(ev.SchoolID, ev.DistrictID).Added++
	case core.ActionRemoved:
		s.counter(ev.SchoolID, ev.DistrictID).Removed++
	case core.ActionCleared:
		for _, id := range ev.SchoolIDs {
			s.counter(id, "").Removed++
		}
	default:
		return fmt.Errorf("unknown comparison action %q", ev.Action)
	}
	return nil
}

func (s *Store) counter(schoolID, districtID string) *core.SchoolPopularity {
	c, ok := s.counts[schoolID]
	if !ok {
		c = &core.SchoolPopularity{SchoolID: schoolID, DistrictID: districtID}
		if sc, ok := s.schools[schoolID]; ok {
			c.Name = sc.Name
			c.DistrictID = sc.LEAID
		}
		s.counts[schoolID] = c
	}
	return c
}

// TopCompared returns schools ordered by times added, most first.
func (s *Store) TopCompared(_ context.Context, limit int) ([]core.SchoolPopularity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.SchoolPopularity, 0, len(s.counts))
	for _, c := range s.counts {
		if c.Added > 0 {
			out = append(out, *c)
		}
	}
	sortPopularity(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func sortPopularity(p []core.SchoolPopularity) {
	sort.Slice(p, func(i, j int) bool {
		if p[i].Added != p[j].Added {
			return p[i].Added > p[j].Added
		}
		return p[i].SchoolID < p[j].SchoolID
	})
}

var (
	_ provider.Provider         = (*Store)(nil)
	_ provider.PopularityReader = (*Store)(nil)
	_ provider.EventRecorder    = (*Store)(nil)
)
