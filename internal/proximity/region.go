package proximity

import (
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/ports"
	"go.uber.org/zap"
)

// RegionMonitor registers stops with a region-monitoring backend.
//
// Stops beyond the backend's region ceiling are polled on each fix, so
// correctness never depends on the ceiling.
type RegionMonitor struct {
	reg     registry
	backend ports.RegionBackend
	perms   ports.PermissionChecker
	logger  *zap.Logger
}

// NewRegionMonitor creates a RegionMonitor. perms may be nil.
func NewRegionMonitor(backend ports.RegionBackend, perms ports.PermissionChecker, logger *zap.Logger) *RegionMonitor {
	return &RegionMonitor{backend: backend, perms: perms, logger: logger}
}

// Setup registers up to MaxRegions stops and polls the remainder.
func (m *RegionMonitor) Setup(stops []tour.Stop, onTrigger TriggerFunc) bool {
	if m.perms != nil && !m.perms.HasPermission() {
		m.logger.Warn("location permission missing, proximity monitoring disabled")
		return false
	}

	sorted := tour.SortedByOrder(stops)
	limit := m.backend.MaxRegions()
	if limit <= 0 || limit > len(sorted) {
		limit = len(sorted)
	}

	regions := make([]ports.Region, 0, limit)
	for _, s := range sorted[:limit] {
		regions = append(regions, ports.Region{ID: s.ID, Center: s.Position, RadiusMeters: s.Radius()})
	}
	polled := sorted[limit:]

	// Registry must be live before the backend can report an entry.
	m.reg.begin(sorted, polled, onTrigger)

	if err := m.backend.StartMonitoring(regions, m.onRegionEntered); err != nil {
		m.logger.Warn("region registration failed, polling every stop", zap.Error(err))
		m.reg.begin(sorted, sorted, onTrigger)
		return true
	}

	if len(polled) > 0 {
		m.logger.Info("region ceiling reached, polling remaining stops",
			zap.Int("registered", len(regions)),
			zap.Int("polled", len(polled)),
		)
	}
	return true
}

func (m *RegionMonitor) onRegionEntered(regionID string) {
	stop, onTrigger, ok := m.reg.claim(regionID)
	if !ok {
		return
	}
	emit(onTrigger, []tour.Stop{stop})
}

// OnLocationUpdate forwards the fix to in-process backends and polls the
// stops that did not fit in the backend.
func (m *RegionMonitor) OnLocationUpdate(pos tour.Position) {
	if !m.reg.isActive() {
		return
	}
	if sink, ok := m.backend.(ports.PositionSink); ok {
		sink.Observe(pos)
	}
	fired, onTrigger := m.reg.evaluate(pos)
	emit(onTrigger, fired)
}

// Suppress marks a stop processed without triggering it.
func (m *RegionMonitor) Suppress(stopID string) {
	m.reg.claim(stopID)
}

// Teardown releases every registered region and clears processed state.
func (m *RegionMonitor) Teardown() {
	if m.reg.end() {
		m.backend.StopMonitoring()
		m.logger.Debug("region monitor torn down")
	}
}

// Active reports whether the monitor is set up.
func (m *RegionMonitor) Active() bool { return m.reg.isActive() }
