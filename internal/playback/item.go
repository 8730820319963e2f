package playback

import (
	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
)

// Item is one unit of narration work derived from a stop.
type Item struct {
	ID        uuid.UUID `json:"id"`
	StopID    string    `json:"stop_id"`
	Name      string    `json:"name"`
	Narration string    `json:"narration"`
	SortKey   int       `json:"sort_key"`
}

// ItemFromStop builds a queue item keyed by the stop's order.
func ItemFromStop(stop tour.Stop) Item {
	return Item{
		ID:        uuid.New(),
		StopID:    stop.ID,
		Name:      stop.Name,
		Narration: stop.Narration,
		SortKey:   stop.Order,
	}
}

// Snapshot is an immutable view of the queue.
type Snapshot struct {
	State    tour.PlaybackState `json:"state"`
	Current  *Item              `json:"current,omitempty"`
	Pending  []Item             `json:"pending"`
	Degraded bool               `json:"degraded"`
	// Played counts items handed to the narration engine this session.
	Played int `json:"played"`
}
