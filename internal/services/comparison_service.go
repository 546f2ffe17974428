package services

import (
	"context"
	"time"

	"schoolcompare/internal/comparison"
	"schoolcompare/internal/core"
	"schoolcompare/internal/log"
	"schoolcompare/internal/provider"
)

// eventTimeout bounds how long a mutation waits on the event sink.
const eventTimeout = 2 * time.Second

// ComparisonService orchestrates per-session comparison lists and emits an
// event for every change. Emitting is best effort: a failing sink is logged
// and never fails the user's action.
type ComparisonService struct {
	registry *comparison.Registry
	sink     provider.EventRecorder
	logger   *log.StructuredLogger
	now      func() time.Time
}

// NewComparisonService wires a registry to an optional event sink.
func NewComparisonService(registry *comparison.Registry, sink provider.EventRecorder, logger *log.Logger) *ComparisonService {
	if logger == nil {
		logger = log.Discard()
	}
	return &ComparisonService{
		registry: registry,
		sink:     sink,
		logger:   log.NewStructuredLogger(logger.WithComponent(log.ComponentComparison)),
		now:      time.Now,
	}
}

// Add pins ref for the session. A duplicate returns added=false and no event.
func (s *ComparisonService) Add(ctx context.Context, sessionID string, ref core.SchoolRef) (bool, error) {
	store := s.registry.Store(ctx, sessionID)
	added, err := store.Add(ctx, ref)
	if err != nil {
		return false, err
	}
	if !added {
		return false, nil
	}
	s.logger.LogComparisonChange(ctx, log.OpAdd, sessionID, ref.ID, ref.DistrictID, store.Len())
	s.emit(ctx, core.ComparisonEvent{
		SessionID:  sessionID,
		Action:     core.ActionAdded,
		SchoolID:   ref.ID,
		DistrictID: ref.DistrictID,
	})
	return true, nil
}

// Remove unpins id for the session, reporting whether it was pinned.
func (s *ComparisonService) Remove(ctx context.Context, sessionID, id string) bool {
	store := s.registry.Store(ctx, sessionID)
	var districtID string
	for _, r := range store.List() {
		if r.ID == id {
			districtID = r.DistrictID
		}
	}
	if !store.Remove(ctx, id) {
		return false
	}
	s.logger.LogComparisonChange(ctx, log.OpRemove, sessionID, id, districtID, store.Len())
	s.emit(ctx, core.ComparisonEvent{
		SessionID:  sessionID,
		Action:     core.ActionRemoved,
		SchoolID:   id,
		DistrictID: districtID,
	})
	return true
}

// Clear empties the session's list and returns the ids that were removed.
func (s *ComparisonService) Clear(ctx context.Context, sessionID string) []string {
	store := s.registry.Store(ctx, sessionID)
	before := store.List()
	store.Clear(ctx)
	if len(before) == 0 {
		return nil
	}
	ids := make([]string, len(before))
	for i, r := range before {
		ids[i] = r.ID
	}
	s.logger.LogComparisonChange(ctx, log.OpClear, sessionID, "", "", 0)
	s.emit(ctx, core.ComparisonEvent{
		SessionID: sessionID,
		Action:    core.ActionCleared,
		SchoolIDs: ids,
	})
	return ids
}

// List returns the session's schools in the order they were added.
func (s *ComparisonService) List(ctx context.Context, sessionID string) []core.SchoolRef {
	return s.registry.Store(ctx, sessionID).List()
}

// Contains reports whether the session has pinned id.
func (s *ComparisonService) Contains(ctx context.Context, sessionID, id string) bool {
	return s.registry.Store(ctx, sessionID).Contains(id)
}

// Remaining returns how many more schools the session can pin.
func (s *ComparisonService) Remaining(ctx context.Context, sessionID string) int {
	return s.registry.Store(ctx, sessionID).Remaining()
}

func (s *ComparisonService) emit(ctx context.Context, ev core.ComparisonEvent) {
	if s.sink == nil {
		return
	}
	ev.Timestamp = s.now()
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventTimeout)
	defer cancel()
	if err := s.sink.RecordComparisonEvent(ctx, ev); err != nil {
		s.logger.LogError(ctx, "Failed to emit comparison event", err, log.OpPublish,
			log.NewFields().WithSession(ev.SessionID).WithSchool(ev.SchoolID, ev.DistrictID))
	}
}

// ActiveSessions returns how many session lists are held in memory.
func (s *ComparisonService) ActiveSessions() int {
	return s.registry.Cache().Size()
}
