package adapters

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"schoolcompare/internal/cache"
	"schoolcompare/internal/core"
	"schoolcompare/internal/provider"
)

type countingProvider struct {
	calls map[string]int
	delay time.Duration
}

func newCounting() *countingProvider {
	return &countingProvider{calls: map[string]int{}}
}

func (c *countingProvider) ListDistricts(ctx context.Context) ([]core.District, error) {
	c.calls["list"]++
	return []core.District{{LEAID: "3904676", Name: "Olentangy Local"}}, nil
}

func (c *countingProvider) GetDistrict(ctx context.Context, leaid string) (core.District, error) {
	c.calls["district:"+leaid]++
	if leaid != "3904676" {
		return core.District{}, fmt.Errorf("district %s: %w", leaid, provider.ErrNotFound)
	}
	return core.District{LEAID: leaid, Name: "Olentangy Local"}, nil
}

func (c *countingProvider) ListSchoolsWithEnrollment(ctx context.Context, leaid string) ([]core.SchoolWithEnrollment, error) {
	c.calls["schools:"+leaid]++
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return []core.SchoolWithEnrollment{{School: core.School{NCESSCH: "1", LEAID: leaid}}}, nil
}

func (c *countingProvider) GetSchoolDetail(ctx context.Context, ncessch string) (core.SchoolDetail, error) {
	c.calls["detail:"+ncessch]++
	return core.SchoolDetail{School: core.School{NCESSCH: ncessch}}, nil
}

func TestCachedProviderServesRepeatsFromCache(t *testing.T) {
	next := newCounting()
	p := NewCachedProvider(next, 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := p.ListDistricts(ctx); err != nil {
			t.Fatal(err)
		}
		if _, err := p.GetDistrict(ctx, "3904676"); err != nil {
			t.Fatal(err)
		}
		if _, err := p.ListSchoolsWithEnrollment(ctx, "3904676"); err != nil {
			t.Fatal(err)
		}
		if _, err := p.GetSchoolDetail(ctx, "1"); err != nil {
			t.Fatal(err)
		}
	}
	for key, n := range next.calls {
		if n != 1 {
			t.Errorf("%s called %d times, want 1", key, n)
		}
	}
	st := p.Stats()["districts"]
	if st.Hits != 2 || st.Misses != 1 || st.Entries != 1 {
		t.Fatalf("stats = %+v", st)
	}
}

func TestCachedProviderDoesNotCacheErrors(t *testing.T) {
	next := newCounting()
	p := NewCachedProvider(next, 10, time.Minute)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := p.GetDistrict(ctx, "nope")
		if !errors.Is(err, provider.ErrNotFound) {
			t.Fatalf("want ErrNotFound, got %v", err)
		}
	}
	if next.calls["district:nope"] != 2 {
		t.Fatalf("errors were cached: %d calls", next.calls["district:nope"])
	}
}

func TestCachedProviderTimeout(t *testing.T) {
	next := newCounting()
	next.delay = time.Second
	p := NewCachedProvider(next, 10, time.Minute).WithTimeout(10 * time.Millisecond)

	_, err := p.ListSchoolsWithEnrollment(context.Background(), "3904676")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("want deadline exceeded, got %v", err)
	}
}

func TestCachedProviderInvalidateAndRegister(t *testing.T) {
	next := newCounting()
	p := NewCachedProvider(next, 10, time.Minute)
	ctx := context.Background()
	_, _ = p.ListDistricts(ctx)
	p.Invalidate()
	_, _ = p.ListDistricts(ctx)
	if next.calls["list"] != 2 {
		t.Fatalf("invalidate ignored: %d calls", next.calls["list"])
	}

	m := cache.NewManager(nil)
	p.Register(m)
	removed := m.CleanNow()
	if len(removed) != 4 {
		t.Fatalf("registered %d caches, want 4", len(removed))
	}
}
