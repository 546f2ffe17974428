package comparison

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"schoolcompare/internal/cache"
	"schoolcompare/internal/log"
)

// Registry hands out one Store per browser session. Live stores are kept in
// an LRU; an evicted session is rebuilt from storage on its next request.
//
// A store whose last write failed holds the only correct copy of its list,
// so eviction parks it in dirty instead of dropping it. It comes back on the
// session's next request and is written again then.
type Registry struct {
	kv     KeyValueStore
	stores *cache.LRUCache[*Store]
	logger *log.Logger
	loads  singleflight.Group

	mu    sync.Mutex
	dirty map[string]*Store
}

// NewRegistry keeps up to size live stores, each for at most ttl since last use.
func NewRegistry(kv KeyValueStore, size int, ttl time.Duration, logger *log.Logger) *Registry {
	if logger == nil {
		logger = log.Discard()
	}
	r := &Registry{
		kv:     kv,
		stores: cache.NewLRUCache[*Store](size, ttl),
		logger: logger.WithComponent(log.ComponentComparison),
		dirty:  make(map[string]*Store),
	}
	r.stores.OnEvict(r.evicted)
	return r
}

// Store returns the session's store, restoring it from storage when needed.
// Concurrent first requests for one session share a single restore.
func (r *Registry) Store(ctx context.Context, sessionID string) *Store {
	if s, ok := r.stores.Get(sessionID); ok {
		r.stores.Set(sessionID, s)
		return s
	}

	v, _, _ := r.loads.Do(sessionID, func() (any, error) {
		if s, ok := r.stores.Get(sessionID); ok {
			return s, nil
		}
		s := r.takeDirty(sessionID)
		if s != nil {
			if err := s.Flush(ctx); err != nil {
				r.logger.WarnContext(ctx, "Comparison list still unsaved",
					log.FieldSessionID, sessionID,
					log.FieldError, err)
			}
		} else {
			s = New(ctx, Scoped(r.kv, "session:"+sessionID), WithLogger(r.logger.With(log.FieldSessionID, sessionID)))
		}
		r.stores.Set(sessionID, s)
		return s, nil
	})
	return v.(*Store)
}

// evicted runs under the LRU lock.
func (r *Registry) evicted(sessionID string, s *Store) {
	if !s.Unsaved() {
		return
	}
	r.mu.Lock()
	r.dirty[sessionID] = s
	r.mu.Unlock()
}

func (r *Registry) takeDirty(sessionID string) *Store {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.dirty[sessionID]
	if ok {
		delete(r.dirty, sessionID)
	}
	return s
}

// Unsaved returns how many evicted sessions are waiting for a successful write.
func (r *Registry) Unsaved() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirty)
}

// Forget drops the live store, including changes that were never written.
// The persisted list is kept.
func (r *Registry) Forget(sessionID string) {
	r.stores.Delete(sessionID)
	r.takeDirty(sessionID)
}

// Cache exposes the live-store cache for cleanup and metrics.
func (r *Registry) Cache() *cache.LRUCache[*Store] {
	return r.stores
}
