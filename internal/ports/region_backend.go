package ports

import "github.com/soundwalk/service-tour/internal/domain/tour"

// Region is a circular area registered with a region-monitoring backend.
type Region struct {
	ID           string
	Center       tour.Position
	RadiusMeters float64
}

// RegionBackend is a platform geofencing service.
type RegionBackend interface {
	// Return the maximum number of regions monitored at once (0 means unlimited).
	MaxRegions() int
	// Begin monitoring regions; onEnter is called with the region id on entry.
	StartMonitoring(regions []Region, onEnter func(regionID string)) error
	// Remove all regions. Safe to call repeatedly.
	StopMonitoring()
}

// PositionSink is implemented by region backends that evaluate fixes in-process
// instead of receiving entry events from the operating system.
type PositionSink interface {
	Observe(pos tour.Position)
}
