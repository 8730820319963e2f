// Package proximity turns location fixes into one-shot "stop entered" triggers.
package proximity

import (
	"sync"

	"github.com/soundwalk/service-tour/internal/domain/tour"
)

// TriggerFunc receives a stop the first time the walker enters its radius.
type TriggerFunc func(stop tour.Stop)

// Monitor watches location fixes for a set of stops.
//
// A stop triggers at most once between Setup and Teardown. Implementations
// never call the TriggerFunc while holding internal locks.
type Monitor interface {
	// Setup registers stops. It returns false, and does nothing, when location
	// permission is missing.
	Setup(stops []tour.Stop, onTrigger TriggerFunc) bool
	// OnLocationUpdate evaluates a fix against every unprocessed stop.
	OnLocationUpdate(pos tour.Position)
	// Suppress marks a stop processed without triggering it.
	Suppress(stopID string)
	// Teardown clears all regions and processed state. Safe to call repeatedly.
	Teardown()
}

// registry is the processed-set bookkeeping shared by both backends.
type registry struct {
	mu        sync.Mutex
	stops     map[string]tour.Stop
	polled    []tour.Stop
	processed map[string]struct{}
	onTrigger TriggerFunc
	active    bool
}

func (r *registry) begin(all, polled []tour.Stop, onTrigger TriggerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stops = make(map[string]tour.Stop, len(all))
	for _, s := range all {
		r.stops[s.ID] = s
	}
	r.polled = tour.SortedByOrder(polled)
	r.processed = make(map[string]struct{}, len(all))
	r.onTrigger = onTrigger
	r.active = true
}

// evaluate returns the polled stops newly entered at pos.
func (r *registry) evaluate(pos tour.Position) ([]tour.Stop, TriggerFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return nil, nil
	}

	var fired []tour.Stop
	for _, s := range tour.NearbyStops(r.polled, pos) {
		// Ticks near a boundary are no-ops once a stop is processed.
		if _, done := r.processed[s.ID]; done {
			continue
		}
		r.processed[s.ID] = struct{}{}
		fired = append(fired, s)
	}
	return fired, r.onTrigger
}

// claim marks a stop processed and reports whether this call did so.
func (r *registry) claim(stopID string) (tour.Stop, TriggerFunc, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.active {
		return tour.Stop{}, nil, false
	}
	stop, known := r.stops[stopID]
	if !known {
		return tour.Stop{}, nil, false
	}
	if _, done := r.processed[stopID]; done {
		return tour.Stop{}, nil, false
	}
	r.processed[stopID] = struct{}{}
	return stop, r.onTrigger, true
}

func (r *registry) end() bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	wasActive := r.active
	r.active = false
	r.stops = nil
	r.polled = nil
	r.processed = nil
	r.onTrigger = nil
	return wasActive
}

func (r *registry) isActive() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active
}

func emit(onTrigger TriggerFunc, stops []tour.Stop) {
	if onTrigger == nil {
		return
	}
	for _, s := range stops {
		onTrigger(s)
	}
}
