package tax

import (
	"fmt"
	"sync"

	"schoolcompare/internal/core"
)

// Estimator resolves (district, municipality signal) pairs to tax buckets.
// It is safe for concurrent use; Replace swaps the table atomically.
type Estimator struct {
	mu        sync.RWMutex
	table     *Table
	districts map[string]*compiled
}

type compiled struct {
	rules     DistrictRules
	overrides map[string]Override
}

// NewEstimator builds an estimator over a validated table.
func NewEstimator(t *Table) *Estimator {
	e := &Estimator{}
	e.Replace(t)
	return e
}

// NewEmbeddedEstimator builds an estimator over the table compiled into the binary.
func NewEmbeddedEstimator() (*Estimator, error) {
	t, err := EmbeddedTable()
	if err != nil {
		return nil, err
	}
	return NewEstimator(t), nil
}

// Replace installs a new table.
func (e *Estimator) Replace(t *Table) {
	districts := make(map[string]*compiled, len(t.Districts))
	for _, d := range t.Districts {
		c := &compiled{rules: d, overrides: make(map[string]Override)}
		for _, o := range d.Overrides {
			for _, m := range o.Match {
				c.overrides[normalize(m)] = o
			}
		}
		districts[d.ID] = c
	}

	e.mu.Lock()
	e.table = t
	e.districts = districts
	e.mu.Unlock()
}

// Estimate returns the override bucket whose match equals signal (case and
// whitespace insensitive), or the district default when none matches.
func (e *Estimator) Estimate(districtID, signal string) (core.TaxBucket, error) {
	e.mu.RLock()
	c, ok := e.districts[districtID]
	e.mu.RUnlock()
	if !ok {
		return core.TaxBucket{}, fmt.Errorf("%w: %s", core.ErrUnknownDistrict, districtID)
	}

	if o, hit := c.overrides[normalize(signal)]; hit && signal != "" {
		return toBucket(districtID, o.Bucket, o.Name), nil
	}
	return toBucket(districtID, *c.rules.Default, "default"), nil
}

// DefaultBucket is the district-wide figure used when no municipality is known.
func (e *Estimator) DefaultBucket(districtID string) (core.TaxBucket, error) {
	return e.Estimate(districtID, "")
}

// SignalFor picks the school attribute the district keys its overrides on.
// Unknown districts fall back to the city.
func (e *Estimator) SignalFor(districtID, city, zip string) string {
	e.mu.RLock()
	c, ok := e.districts[districtID]
	e.mu.RUnlock()
	if ok && c.rules.Signal == SignalZip {
		return zip
	}
	return city
}

// Knows reports whether the table has rules for the district.
func (e *Estimator) Knows(districtID string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	_, ok := e.districts[districtID]
	return ok
}

// ReferenceHomeValue is the home price the figures assume.
func (e *Estimator) ReferenceHomeValue() core.Money {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return core.Dollars(e.table.ReferenceHomeValue)
}

// Table returns the active table. Callers must not modify it.
func (e *Estimator) Table() *Table {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.table
}

func toBucket(districtID string, b Bucket, matched string) core.TaxBucket {
	return core.TaxBucket{
		DistrictID:     districtID,
		Low:            core.Dollars(b.Low),
		High:           core.Dollars(b.High),
		Representative: core.Dollars(b.Representative),
		Label:          b.Label,
		Matched:        matched,
	}
}
