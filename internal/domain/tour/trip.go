package tour

import (
	"time"

	"github.com/google/uuid"
)

// Trip is the durable record of one finished walking session.
type Trip struct {
	id             uuid.UUID
	sessionID      uuid.UUID
	routeID        uuid.UUID
	walker         string
	visitedStopIDs []string
	totalStops     int
	startedAt      time.Time
	endedAt        time.Time
	createdAt      time.Time
}

// NewTrip creates a Trip from the final state of a session.
func NewTrip(
	sessionID uuid.UUID,
	routeID uuid.UUID,
	walker string,
	visitedStopIDs []string,
	totalStops int,
	startedAt time.Time,
	endedAt time.Time,
) (*Trip, error) {
	if sessionID == uuid.Nil {
		return nil, NewValidationError("session ID is required")
	}
	if routeID == uuid.Nil {
		return nil, NewValidationError("route ID is required")
	}
	if totalStops < 0 || len(visitedStopIDs) > totalStops {
		return nil, NewValidationError("visited stops exceed route size")
	}
	if endedAt.Before(startedAt) {
		return nil, NewValidationError("trip cannot end before it starts")
	}

	visited := make([]string, len(visitedStopIDs))
	copy(visited, visitedStopIDs)

	return &Trip{
		id:             uuid.New(),
		sessionID:      sessionID,
		routeID:        routeID,
		walker:         walker,
		visitedStopIDs: visited,
		totalStops:     totalStops,
		startedAt:      startedAt.UTC(),
		endedAt:        endedAt.UTC(),
		createdAt:      time.Now().UTC(),
	}, nil
}

// ReconstructTrip rebuilds a Trip from persistence data (no validation).
func ReconstructTrip(
	id uuid.UUID,
	sessionID uuid.UUID,
	routeID uuid.UUID,
	walker string,
	visitedStopIDs []string,
	totalStops int,
	startedAt time.Time,
	endedAt time.Time,
	createdAt time.Time,
) *Trip {
	return &Trip{
		id:             id,
		sessionID:      sessionID,
		routeID:        routeID,
		walker:         walker,
		visitedStopIDs: visitedStopIDs,
		totalStops:     totalStops,
		startedAt:      startedAt,
		endedAt:        endedAt,
		createdAt:      createdAt,
	}
}

func (t *Trip) ID() uuid.UUID            { return t.id }
func (t *Trip) SessionID() uuid.UUID     { return t.sessionID }
func (t *Trip) RouteID() uuid.UUID       { return t.routeID }
func (t *Trip) Walker() string           { return t.walker }
func (t *Trip) VisitedStopIDs() []string { return t.visitedStopIDs }
func (t *Trip) TotalStops() int          { return t.totalStops }
func (t *Trip) StartedAt() time.Time     { return t.startedAt }
func (t *Trip) EndedAt() time.Time       { return t.endedAt }
func (t *Trip) CreatedAt() time.Time     { return t.createdAt }

// VisitedCount returns the number of stops reached.
func (t *Trip) VisitedCount() int { return len(t.visitedStopIDs) }

// Completed reports whether every stop was reached.
func (t *Trip) Completed() bool {
	return t.totalStops > 0 && len(t.visitedStopIDs) == t.totalStops
}

// Duration returns the wall-clock length of the walk.
func (t *Trip) Duration() time.Duration {
	return t.endedAt.Sub(t.startedAt)
}
