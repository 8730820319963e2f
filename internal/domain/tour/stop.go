package tour

import (
	"fmt"
	"time"
)

// DefaultTriggerRadiusMeters is applied to stops that do not declare a radius.
const DefaultTriggerRadiusMeters = 30.0

// Stop is an immutable point of interest on a route.
// Visited status is session-scoped and never stored here.
type Stop struct {
	ID                  string        `json:"id"`
	Order               int           `json:"order"`
	Name                string        `json:"name"`
	Position            Position      `json:"position"`
	TriggerRadiusMeters float64       `json:"trigger_radius_m"`
	Narration           string        `json:"narration"`
	Duration            time.Duration `json:"duration"`
}

// Radius returns the effective trigger radius in meters.
func (s Stop) Radius() float64 {
	if s.TriggerRadiusMeters <= 0 {
		return DefaultTriggerRadiusMeters
	}
	return s.TriggerRadiusMeters
}

// Contains reports whether pos is within the stop's trigger radius.
func (s Stop) Contains(pos Position) bool {
	return DistanceMeters(s.Position, pos) <= s.Radius()
}

// ValidateStops checks that stops form a usable route: non-empty, unique ids,
// unique orders, valid coordinates.
func ValidateStops(stops []Stop) error {
	if len(stops) == 0 {
		return ErrEmptyRoute
	}

	ids := make(map[string]struct{}, len(stops))
	orders := make(map[int]struct{}, len(stops))
	for _, s := range stops {
		if s.ID == "" {
			return NewValidationError("stop id is required")
		}
		if _, dup := ids[s.ID]; dup {
			return NewValidationError(fmt.Sprintf("duplicate stop id: %s", s.ID))
		}
		ids[s.ID] = struct{}{}

		if s.Order < 1 {
			return NewValidationError(fmt.Sprintf("stop %s: order must be >= 1", s.ID))
		}
		if _, dup := orders[s.Order]; dup {
			return NewValidationError(fmt.Sprintf("duplicate stop order: %d", s.Order))
		}
		orders[s.Order] = struct{}{}

		if !s.Position.Valid() {
			return NewValidationError(fmt.Sprintf("stop %s: invalid position %s", s.ID, s.Position))
		}
	}
	return nil
}
