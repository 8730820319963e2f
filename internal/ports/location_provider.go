package ports

import (
	"context"

	"github.com/soundwalk/service-tour/internal/domain/tour"
)

// PermissionChecker reports whether location access is granted.
type PermissionChecker interface {
	HasPermission() bool
}

// LocationProvider is the source of location fixes for one walker.
type LocationProvider interface {
	PermissionChecker
	// Start tracking; fixes flow on the channel returned by Updates.
	StartTracking(ctx context.Context) error
	StopTracking()
	// Return a stream of fixes that is closed when ctx is done or tracking stops.
	Updates(ctx context.Context) <-chan tour.Position
	// Return the most recent fix, if any.
	LastKnown() (tour.Position, bool)
}
