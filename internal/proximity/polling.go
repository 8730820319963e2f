package proximity

import (
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/ports"
	"go.uber.org/zap"
)

// PollingMonitor checks every stop's distance on each location fix.
// It is the portable backend and the default off mobile platforms.
type PollingMonitor struct {
	reg    registry
	perms  ports.PermissionChecker
	logger *zap.Logger
}

// NewPollingMonitor creates a PollingMonitor. perms may be nil.
func NewPollingMonitor(perms ports.PermissionChecker, logger *zap.Logger) *PollingMonitor {
	return &PollingMonitor{perms: perms, logger: logger}
}

// Setup registers stops for polling.
func (m *PollingMonitor) Setup(stops []tour.Stop, onTrigger TriggerFunc) bool {
	if m.perms != nil && !m.perms.HasPermission() {
		m.logger.Warn("location permission missing, proximity monitoring disabled")
		return false
	}
	m.reg.begin(stops, stops, onTrigger)
	m.logger.Debug("polling monitor set up", zap.Int("stops", len(stops)))
	return true
}

// OnLocationUpdate triggers every stop newly within radius of pos.
func (m *PollingMonitor) OnLocationUpdate(pos tour.Position) {
	fired, onTrigger := m.reg.evaluate(pos)
	emit(onTrigger, fired)
}

// Suppress marks a stop processed without triggering it.
func (m *PollingMonitor) Suppress(stopID string) {
	m.reg.claim(stopID)
}

// Teardown clears all state.
func (m *PollingMonitor) Teardown() {
	if m.reg.end() {
		m.logger.Debug("polling monitor torn down")
	}
}

// Active reports whether the monitor is set up.
func (m *PollingMonitor) Active() bool { return m.reg.isActive() }
