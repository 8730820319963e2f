// Package events carries tour traffic over Kafka: inbound location fixes
// and outbound stop/trip events, all as CloudEvents.
package events

import (
	"time"

	"github.com/google/uuid"
)

// Default topics.
const (
	TopicLocations  = "tour.locations"
	TopicTourEvents = "tour.events"
)

// Event types.
const (
	LocationFixReported = "tour.location.reported"
	StopArrived         = "tour.stop.arrived"
	TripCompleted       = "tour.trip.completed"
)

// EventSource is the CloudEvents source of everything this service publishes.
const EventSource = "service-tour"

// LocationFixEvent is one fix reported by a walker's device.
type LocationFixEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	Latitude   float64   `json:"latitude"`
	Longitude  float64   `json:"longitude"`
	AccuracyM  float64   `json:"accuracy_m,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// StopArrivedEvent is published when a walker reaches a stop.
type StopArrivedEvent struct {
	SessionID  uuid.UUID `json:"session_id"`
	RouteID    uuid.UUID `json:"route_id"`
	Walker     string    `json:"walker,omitempty"`
	StopID     string    `json:"stop_id"`
	StopName   string    `json:"stop_name"`
	StopOrder  int       `json:"stop_order"`
	OccurredAt time.Time `json:"occurred_at"`
}

// TripCompletedEvent is published once a finished walk has been recorded.
type TripCompletedEvent struct {
	TripID       uuid.UUID `json:"trip_id"`
	SessionID    uuid.UUID `json:"session_id"`
	RouteID      uuid.UUID `json:"route_id"`
	Walker       string    `json:"walker,omitempty"`
	VisitedCount int       `json:"visited_count"`
	TotalStops   int       `json:"total_stops"`
	Completed    bool      `json:"completed"`
	DurationSec  int64     `json:"duration_seconds"`
	OccurredAt   time.Time `json:"occurred_at"`
}
