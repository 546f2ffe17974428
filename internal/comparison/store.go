// Package comparison keeps the bounded, ordered list of schools a user has
// pinned for side-by-side comparison and persists it write-through.
package comparison

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"schoolcompare/internal/core"
	"schoolcompare/internal/log"
)

const (
	// StorageKey is the key the list is persisted under.
	StorageKey = "comparison_schools"
	// Capacity is the most schools a list can hold.
	Capacity = 4
)

// Store is a bounded, duplicate-free, insertion-ordered set of SchoolRef.
// Every mutation is persisted to the KeyValueStore; persistence failures are
// logged and never fail the mutation. Store is safe for concurrent use.
type Store struct {
	mu      sync.Mutex
	kv      KeyValueStore
	items   []core.SchoolRef
	logger  *log.Logger
	timeout time.Duration

	lastPersistErr error
	// unsaved mirrors lastPersistErr != nil for lock-free reads.
	unsaved atomic.Bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger persistence warnings go to.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentComparison) }
}

// WithTimeout bounds each storage call.
func WithTimeout(d time.Duration) Option {
	return func(s *Store) { s.timeout = d }
}

// New builds a store and restores any persisted list. A record that cannot be
// read or fails validation leaves the store empty.
func New(ctx context.Context, kv KeyValueStore, opts ...Option) *Store {
	s := &Store{
		kv:      kv,
		logger:  log.Discard(),
		timeout: 3 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	if err := s.Restore(ctx); err != nil {
		s.logger.WarnContext(ctx, "Discarding persisted comparison list",
			log.FieldError, err, log.FieldOperation, log.OpRestore)
	}
	return s
}

// Add appends ref unless it is already present. It returns added=false with
// no error for a duplicate, ErrCapacityExceeded when full and ErrInvalidSchool
// when ref is incomplete.
func (s *Store) Add(ctx context.Context, ref core.SchoolRef) (bool, error) {
	if err := ref.Validate(); err != nil {
		return false, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.indexOf(ref.ID) >= 0 {
		return false, nil
	}
	if len(s.items) >= Capacity {
		return false, fmt.Errorf("%w: %d of %d", core.ErrCapacityExceeded, len(s.items), Capacity)
	}
	s.items = append(s.items, ref)
	s.persist(ctx)
	return true, nil
}

// Remove drops the school with id, reporting whether it was present.
func (s *Store) Remove(ctx context.Context, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexOf(id)
	if i < 0 {
		return false
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	s.persist(ctx)
	return true
}

// Clear empties the list.
func (s *Store) Clear(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.persist(ctx)
}

// Contains reports whether a school with id is in the list.
func (s *Store) Contains(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.indexOf(id) >= 0
}

// List returns a copy of the schools in insertion order.
func (s *Store) List() []core.SchoolRef {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.SchoolRef, len(s.items))
	copy(out, s.items)
	return out
}

// Len returns how many schools are selected.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

// Remaining returns how many more schools fit.
func (s *Store) Remaining() int {
	return Capacity - s.Len()
}

// LastPersistError returns the most recent write failure, or nil once a
// later write succeeds.
func (s *Store) LastPersistError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastPersistErr
}

// Unsaved reports whether the list holds changes storage does not have.
func (s *Store) Unsaved() bool {
	return s.unsaved.Load()
}

// Flush writes the list again if the last write failed and returns the
// outcome. A clean store is left alone.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastPersistErr == nil {
		return nil
	}
	s.persist(ctx)
	return s.lastPersistErr
}

// Restore replaces the in-memory list with the persisted one. A missing record
// yields an empty list. Unreadable, schema-invalid, duplicated or oversized
// records also yield an empty list and an error wrapping ErrPersistence.
func (s *Store) Restore(ctx context.Context) error {
	ctx, cancel := s.storageContext(ctx)
	defer cancel()

	raw, found, err := s.kv.Get(ctx, StorageKey)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil

	if err != nil {
		return fmt.Errorf("%w: read: %v", core.ErrPersistence, err)
	}
	if !found || len(raw) == 0 {
		return nil
	}

	items, err := decodeRecord(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", core.ErrPersistence, err)
	}
	s.items = items
	return nil
}

func decodeRecord(raw []byte) ([]core.SchoolRef, error) {
	if err := validateRecord(raw); err != nil {
		return nil, err
	}
	var items []core.SchoolRef
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	if len(items) > Capacity {
		return nil, fmt.Errorf("record holds %d schools, limit is %d", len(items), Capacity)
	}
	seen := make(map[string]bool, len(items))
	for _, it := range items {
		if seen[it.ID] {
			return nil, fmt.Errorf("record repeats school %s", it.ID)
		}
		seen[it.ID] = true
		if err := it.Validate(); err != nil {
			return nil, err
		}
	}
	return items, nil
}

// persist writes the list; callers hold s.mu.
func (s *Store) persist(ctx context.Context) {
	items := s.items
	if items == nil {
		items = []core.SchoolRef{}
	}
	raw, err := json.Marshal(items)
	if err == nil {
		sctx, cancel := s.storageContext(ctx)
		err = s.kv.Set(sctx, StorageKey, raw)
		cancel()
	}
	if err != nil {
		s.lastPersistErr = fmt.Errorf("%w: write: %v", core.ErrPersistence, err)
		s.unsaved.Store(true)
		s.logger.WarnContext(ctx, "Failed to persist comparison list",
			log.FieldError, err,
			log.FieldOperation, log.OpPersist,
			log.FieldListSize, len(s.items))
		return
	}
	s.lastPersistErr = nil
	s.unsaved.Store(false)
}

func (s *Store) storageContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	// Persisting should outlive a cancelled request.
	ctx = context.WithoutCancel(ctx)
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

func (s *Store) indexOf(id string) int {
	for i, it := range s.items {
		if it.ID == id {
			return i
		}
	}
	return -1
}

// IsCapacityError reports whether err means the list is full.
func IsCapacityError(err error) bool {
	return errors.Is(err, core.ErrCapacityExceeded)
}
