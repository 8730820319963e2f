package session

import (
	"time"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
)

// Snapshot is an immutable view of a session published after every change.
type Snapshot struct {
	SessionID         uuid.UUID          `json:"session_id"`
	RouteName         string             `json:"route_name"`
	Status            tour.SessionStatus `json:"status"`
	VisitedStopIDs    []string           `json:"visited_stop_ids"`
	VisitedCount      int                `json:"visited_count"`
	TotalStops        int                `json:"total_stops"`
	Progress          float64            `json:"progress"`
	NextStop          *tour.Stop         `json:"next_stop,omitempty"`
	LocationPermitted bool               `json:"location_permitted"`
	StartedAt         *time.Time         `json:"started_at,omitempty"`
	EndedAt           *time.Time         `json:"ended_at,omitempty"`
}

// progress returns visited/total, or 0 for an empty route.
func progress(visited, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(visited) / float64(total)
}
