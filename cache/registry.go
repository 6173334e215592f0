// ABOUTME: Registry is the process-wide map of infrastructure id to InfraCache with per-entry locking.
// ABOUTME: Read guards share an entry, write guards own it; first loads are collapsed with singleflight.
package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"

	"github.com/2389-research/infracache/logging"
)

type registryEntry struct {
	mu    sync.RWMutex
	cache *InfraCache
}

// Registry holds one cache per infrastructure. Different infrastructures
// never contend with each other.
type Registry struct {
	mu      sync.Mutex
	entries map[ulid.ULID]*registryEntry
	loads   singleflight.Group
	log     *logrus.Entry
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entries: make(map[ulid.ULID]*registryEntry),
		log:     logging.Component("cache.registry"),
	}
}

// ReadGuard grants shared access to a cache until Release.
type ReadGuard struct {
	entry *registryEntry
	once  sync.Once
}

// Cache returns the guarded cache. It must not be mutated.
func (g *ReadGuard) Cache() *InfraCache {
	return g.entry.cache
}

// Release gives the entry back. Further calls are no-ops.
func (g *ReadGuard) Release() {
	g.once.Do(g.entry.mu.RUnlock)
}

// WriteGuard grants exclusive access to a cache until Release.
type WriteGuard struct {
	entry *registryEntry
	once  sync.Once
}

// Cache returns the guarded cache.
func (g *WriteGuard) Cache() *InfraCache {
	return g.entry.cache
}

// Replace swaps the guarded cache for c.
func (g *WriteGuard) Replace(c *InfraCache) {
	g.entry.cache = c
}

// Release gives the entry back. Further calls are no-ops.
func (g *WriteGuard) Release() {
	g.once.Do(g.entry.mu.Unlock)
}

// GetOrLoad returns a shared guard on the cache of infraID, loading it
// from src on first access.
func (r *Registry) GetOrLoad(ctx context.Context, src ObjectSource, infraID ulid.ULID) (*ReadGuard, error) {
	e, err := r.entry(ctx, src, infraID)
	if err != nil {
		return nil, err
	}
	e.mu.RLock()
	return &ReadGuard{entry: e}, nil
}

// GetOrLoadMut returns an exclusive guard on the cache of infraID, loading
// it from src on first access.
func (r *Registry) GetOrLoadMut(ctx context.Context, src ObjectSource, infraID ulid.ULID) (*WriteGuard, error) {
	e, err := r.entry(ctx, src, infraID)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	return &WriteGuard{entry: e}, nil
}

func (r *Registry) lookup(infraID ulid.ULID) (*registryEntry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[infraID]
	return e, ok
}

func (r *Registry) entry(ctx context.Context, src ObjectSource, infraID ulid.ULID) (*registryEntry, error) {
	if e, ok := r.lookup(infraID); ok {
		return e, nil
	}

	// The shared load outlives any single caller; each caller stops waiting
	// when its own context ends.
	loadCtx := context.WithoutCancel(ctx)
	ch := r.loads.DoChan(infraID.String(), func() (any, error) {
		if e, ok := r.lookup(infraID); ok {
			return e, nil
		}
		c, err := Load(loadCtx, src, infraID)
		if err != nil {
			return nil, err
		}
		e := &registryEntry{cache: c}
		r.mu.Lock()
		r.entries[infraID] = e
		r.mu.Unlock()
		return e, nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	v, err, shared := res.Val, res.Err, res.Shared
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"action":   "load_failed",
			"infra_id": infraID.String(),
		}).WithError(err).Warn("infra cache load failed")
		return nil, err
	}
	if shared {
		r.log.WithFields(logrus.Fields{"action": "load_shared", "infra_id": infraID.String()}).Debug("joined in-flight load")
	}
	return v.(*registryEntry), nil
}

// Insert stores c for infraID, replacing any previous entry.
func (r *Registry) Insert(infraID ulid.ULID, c *InfraCache) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[infraID] = &registryEntry{cache: c}
}

// Invalidate drops the entry of infraID. Guards already handed out keep the
// dropped cache; the next access reloads.
func (r *Registry) Invalidate(infraID ulid.ULID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.entries[infraID]; !ok {
		return false
	}
	delete(r.entries, infraID)
	r.log.WithFields(logrus.Fields{"action": "invalidate", "infra_id": infraID.String()}).Info("infra cache dropped")
	return true
}

// Len returns the number of loaded infrastructures.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IDs returns the loaded infrastructure ids in ascending order.
func (r *Registry) IDs() []ulid.ULID {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]ulid.ULID, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].Compare(ids[j]) < 0 })
	return ids
}
