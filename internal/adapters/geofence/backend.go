package geofence

import (
	"fmt"
	"sync"

	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/ports"
)

// DefaultMaxRegions mirrors the ceiling mobile platforms impose on geofences.
const DefaultMaxRegions = 100

// Backend is an in-process region monitor. It reports an entry each time a
// fix moves from outside a region to inside it, as platform geofencing does.
type Backend struct {
	mu         sync.Mutex
	maxRegions int
	regions    []ports.Region
	inside     map[string]bool
	onEnter    func(string)
}

// NewBackend creates a Backend with the given region ceiling.
func NewBackend(maxRegions int) *Backend {
	if maxRegions <= 0 {
		maxRegions = DefaultMaxRegions
	}
	return &Backend{maxRegions: maxRegions}
}

// MaxRegions returns the region ceiling.
func (b *Backend) MaxRegions() int { return b.maxRegions }

// StartMonitoring replaces the monitored region set.
func (b *Backend) StartMonitoring(regions []ports.Region, onEnter func(string)) error {
	if len(regions) > b.maxRegions {
		return fmt.Errorf("geofence: %d regions exceed ceiling of %d", len(regions), b.maxRegions)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	b.regions = append([]ports.Region(nil), regions...)
	b.inside = make(map[string]bool, len(regions))
	b.onEnter = onEnter
	return nil
}

// StopMonitoring removes every region.
func (b *Backend) StopMonitoring() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.regions = nil
	b.inside = nil
	b.onEnter = nil
}

// Observe evaluates a fix and reports region entries.
func (b *Backend) Observe(pos tour.Position) {
	b.mu.Lock()
	var entered []string
	for _, r := range b.regions {
		in := tour.DistanceMeters(r.Center, pos) <= r.RadiusMeters
		if in && !b.inside[r.ID] {
			entered = append(entered, r.ID)
		}
		b.inside[r.ID] = in
	}
	onEnter := b.onEnter
	b.mu.Unlock()

	if onEnter == nil {
		return
	}
	for _, id := range entered {
		onEnter(id)
	}
}

// RegionCount returns the number of monitored regions.
func (b *Backend) RegionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.regions)
}
