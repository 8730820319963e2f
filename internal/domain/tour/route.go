package tour

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// Route is a named, fixed sequence of stops.
type Route struct {
	ID          uuid.UUID `json:"id"`
	Slug        string    `json:"slug"`
	Name        string    `json:"name"`
	City        string    `json:"city"`
	Description string    `json:"description"`
	Locale      string    `json:"locale"`
	Stops       []Stop    `json:"stops"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewRoute validates stops and returns a new Route with sorted stops.
func NewRoute(slug, name, city, description, locale string, stops []Stop) (*Route, error) {
	if slug == "" {
		return nil, NewValidationError("route slug is required")
	}
	if name == "" {
		return nil, NewValidationError("route name is required")
	}
	if err := ValidateStops(stops); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &Route{
		ID:          uuid.New(),
		Slug:        slug,
		Name:        name,
		City:        city,
		Description: description,
		Locale:      locale,
		Stops:       SortedByOrder(stops),
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// TotalDuration sums the narration duration estimates of all stops.
func (r *Route) TotalDuration() time.Duration {
	var total time.Duration
	for _, s := range r.Stops {
		total += s.Duration
	}
	return total
}

// SortedByOrder returns a copy of stops sorted by ascending order.
func SortedByOrder(stops []Stop) []Stop {
	out := make([]Stop, len(stops))
	copy(out, stops)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Order < out[j].Order })
	return out
}
