package application

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/playback"
	"github.com/soundwalk/service-tour/internal/session"
)

// PaginatedResult wraps one page of a listing.
type PaginatedResult[T any] struct {
	Data       []T   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
	TotalPages int   `json:"total_pages"`
}

// NewPaginatedResult builds a PaginatedResult.
func NewPaginatedResult[T any](data []T, total int64, page, limit int) *PaginatedResult[T] {
	pages := 0
	if limit > 0 {
		pages = int((total + int64(limit) - 1) / int64(limit))
	}
	if data == nil {
		data = []T{}
	}
	return &PaginatedResult[T]{Data: data, Total: total, Page: page, Limit: limit, TotalPages: pages}
}

// RouteSummaryDTO is a route without its stops.
type RouteSummaryDTO struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	City        string    `json:"city,omitempty"`
	Description string    `json:"description,omitempty"`
	Locale      string    `json:"locale,omitempty"`
}

// RouteDTO is a route with its stops.
type RouteDTO struct {
	RouteSummaryDTO
	Stops           []tour.Stop             `json:"stops"`
	DurationMinutes float64                 `json:"duration_minutes"`
	Specification   tour.RouteSpecification `json:"specification"`
}

// ReorderDTO is the advisory result of NearestStopReorder.
type ReorderDTO struct {
	RouteID       uuid.UUID               `json:"route_id"`
	Changed       bool                    `json:"changed"`
	Stops         []tour.Stop             `json:"stops"`
	Specification tour.RouteSpecification `json:"specification"`
}

// PlaybackDTO is the narration queue view of a tour.
type PlaybackDTO struct {
	State    string   `json:"state"`
	Current  string   `json:"current_stop_id,omitempty"`
	Pending  []string `json:"pending_stop_ids"`
	Degraded bool     `json:"degraded"`
	Played   int      `json:"played"`
}

// TourDTO is the API representation of a live or just-ended tour.
type TourDTO struct {
	ID                uuid.UUID   `json:"id"`
	RouteID           uuid.UUID   `json:"route_id"`
	RouteName         string      `json:"route_name"`
	Walker            string      `json:"walker,omitempty"`
	Status            string      `json:"status"`
	Reordered         bool        `json:"reordered"`
	VisitedStopIDs    []string    `json:"visited_stop_ids"`
	VisitedCount      int         `json:"visited_count"`
	TotalStops        int         `json:"total_stops"`
	Progress          float64     `json:"progress"`
	NextStop          *tour.Stop  `json:"next_stop,omitempty"`
	LocationPermitted bool        `json:"location_permitted"`
	Playback          PlaybackDTO `json:"playback"`
	StartedAt         *time.Time  `json:"started_at,omitempty"`
	EndedAt           *time.Time  `json:"ended_at,omitempty"`
}

// TripDTO is the API representation of a recorded trip.
type TripDTO struct {
	ID             uuid.UUID `json:"id"`
	SessionID      uuid.UUID `json:"session_id"`
	RouteID        uuid.UUID `json:"route_id"`
	Walker         string    `json:"walker,omitempty"`
	VisitedStopIDs []string  `json:"visited_stop_ids"`
	VisitedCount   int       `json:"visited_count"`
	TotalStops     int       `json:"total_stops"`
	Completed      bool      `json:"completed"`
	DurationSec    int64     `json:"duration_seconds"`
	StartedAt      time.Time `json:"started_at"`
	EndedAt        time.Time `json:"ended_at"`
}

func toRouteSummaryDTO(r *tour.Route) RouteSummaryDTO {
	return RouteSummaryDTO{
		ID:          r.ID,
		Slug:        r.Slug,
		Name:        r.Name,
		City:        r.City,
		Description: r.Description,
		Locale:      r.Locale,
	}
}

func toRouteDTO(r *tour.Route) RouteDTO {
	return RouteDTO{
		RouteSummaryDTO: toRouteSummaryDTO(r),
		Stops:           r.Stops,
		DurationMinutes: r.TotalDuration().Minutes(),
		Specification:   r.Specification(),
	}
}

func toPlaybackDTO(q playback.Snapshot) PlaybackDTO {
	dto := PlaybackDTO{
		State:    q.State.String(),
		Pending:  lo.Map(q.Pending, func(it playback.Item, _ int) string { return it.StopID }),
		Degraded: q.Degraded,
		Played:   q.Played,
	}
	if q.Current != nil {
		dto.Current = q.Current.StopID
	}
	return dto
}

func toTourDTO(t *activeTour, snap session.Snapshot, queue playback.Snapshot) TourDTO {
	return TourDTO{
		ID:                snap.SessionID,
		RouteID:           t.route.ID,
		RouteName:         snap.RouteName,
		Walker:            t.walker,
		Status:            snap.Status.String(),
		Reordered:         t.reordered,
		VisitedStopIDs:    snap.VisitedStopIDs,
		VisitedCount:      snap.VisitedCount,
		TotalStops:        snap.TotalStops,
		Progress:          snap.Progress,
		NextStop:          snap.NextStop,
		LocationPermitted: snap.LocationPermitted,
		Playback:          toPlaybackDTO(queue),
		StartedAt:         snap.StartedAt,
		EndedAt:           snap.EndedAt,
	}
}

func toTripDTO(t *tour.Trip) TripDTO {
	return TripDTO{
		ID:             t.ID(),
		SessionID:      t.SessionID(),
		RouteID:        t.RouteID(),
		Walker:         t.Walker(),
		VisitedStopIDs: t.VisitedStopIDs(),
		VisitedCount:   t.VisitedCount(),
		TotalStops:     t.TotalStops(),
		Completed:      t.Completed(),
		DurationSec:    int64(t.Duration().Seconds()),
		StartedAt:      t.StartedAt(),
		EndedAt:        t.EndedAt(),
	}
}
