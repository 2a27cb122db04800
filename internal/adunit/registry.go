package adunit

import (
	"sort"
	"sync"

	"github.com/patrickwarner/admediator/internal/backend"
	"github.com/patrickwarner/admediator/internal/models"
	"github.com/patrickwarner/admediator/internal/observability"

	"go.uber.org/zap"
)

// Registry owns the mapping from ad unit id to its record and backend handle.
type Registry struct {
	mu      sync.RWMutex
	units   map[models.AdUnitID]*AdUnit
	backend backend.Backend
	logger  *zap.Logger
	metrics observability.MetricsRegistry
}

// NewRegistry creates an empty registry whose records use b for their handles.
func NewRegistry(b backend.Backend, logger *zap.Logger, metrics observability.MetricsRegistry) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = observability.NewNoOpRegistry()
	}
	return &Registry{
		units:   make(map[models.AdUnitID]*AdUnit),
		backend: b,
		logger:  logger,
		metrics: metrics,
	}
}

// InitUnits (re)creates an Uninitialized record with a fresh backend handle
// for every id. A record already present is replaced; if it was still live
// its backend object is torn down first. Ids the backend cannot serve are
// skipped. It returns the ids that were initialized.
func (r *Registry) InitUnits(format models.AdFormat, ids ...models.AdUnitID) []models.AdUnitID {
	r.mu.Lock()
	defer r.mu.Unlock()

	initialized := make([]models.AdUnitID, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			r.logger.Error("skipping empty ad unit id", zap.Stringer("format", format))
			continue
		}
		unit, err := r.backend.NewUnit(id, format)
		if err != nil {
			r.logger.Error("backend cannot create ad unit",
				zap.String("ad_unit_id", string(id)),
				zap.Stringer("format", format),
				zap.Error(err))
			continue
		}
		if old, ok := r.units[id]; ok {
			if old.state.IsLive() {
				old.Destroy()
			}
			if old.format != format {
				r.metrics.SetAdUnits(old.format.String(), r.countLocked(old.format)-1)
			}
		}
		r.units[id] = newAdUnit(id, format, r.backend, unit, r.logger, r.metrics)
		initialized = append(initialized, id)
	}

	r.metrics.SetAdUnits(format.String(), r.countLocked(format))
	r.logger.Info("ad units initialized",
		zap.Stringer("format", format),
		zap.Int("count", len(initialized)),
		zap.Any("ad_unit_ids", initialized))
	return initialized
}

func (r *Registry) countLocked(format models.AdFormat) int {
	n := 0
	for _, u := range r.units {
		if u.format == format {
			n++
		}
	}
	return n
}

// Get returns the record for id or, with a warning, a null record whose
// operations are all no-ops. It never returns nil.
func (r *Registry) Get(id models.AdUnitID) *AdUnit {
	if u, ok := r.Lookup(id); ok {
		return u
	}
	r.logger.Warn("ad unit not found", zap.String("ad_unit_id", string(id)))
	r.metrics.IncrementRejectedOps("get", "not_found")
	return newNullAdUnit(id)
}

// Lookup returns the record for id without logging when it is absent.
func (r *Registry) Lookup(id models.AdUnitID) (*AdUnit, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.units[id]
	return u, ok
}

// Len returns the number of registered records.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.units)
}

// Snapshots copies every record, ordered by id.
func (r *Registry) Snapshots() []models.AdUnitSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]models.AdUnitSnapshot, 0, len(r.units))
	for _, u := range r.units {
		out = append(out, u.Snapshot())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
