// Package provider declares the read-only data ports the web layer renders from.
package provider

import (
	"context"
	"errors"

	"schoolcompare/internal/core"
)

// ErrNotFound is returned when a district or school does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	DistrictReader interface {
		ListDistricts(ctx context.Context) ([]core.District, error)
		GetDistrict(ctx context.Context, leaid string) (core.District, error)
	}

	// SchoolLister returns a district's schools joined with enrollment, sorted by name.
	SchoolLister interface {
		ListSchoolsWithEnrollment(ctx context.Context, leaid string) ([]core.SchoolWithEnrollment, error)
	}

	// SchoolDetailReader returns one school with enrollment and district spend.
	SchoolDetailReader interface {
		GetSchoolDetail(ctx context.Context, ncessch string) (core.SchoolDetail, error)
	}

	// PopularityReader returns the most-pinned schools.
	PopularityReader interface {
		TopCompared(ctx context.Context, limit int) ([]core.SchoolPopularity, error)
	}

	// EventRecorder folds comparison events into popularity counters.
	EventRecorder interface {
		RecordComparisonEvent(ctx context.Context, ev core.ComparisonEvent) error
	}

	// Provider is everything the pages read.
	Provider interface {
		DistrictReader
		SchoolLister
		SchoolDetailReader
	}
)
