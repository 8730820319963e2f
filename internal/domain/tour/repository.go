package tour

import (
	"context"

	"github.com/google/uuid"
)

// RouteRepository defines the persistence contract for routes and their stops.
type RouteRepository interface {
	// FindByID retrieves a route with its stops.
	FindByID(ctx context.Context, id uuid.UUID) (*Route, error)

	// FindBySlug retrieves a route by its human-readable slug.
	FindBySlug(ctx context.Context, slug string) (*Route, error)

	// List retrieves routes without stops, with pagination.
	List(ctx context.Context, page, limit int) ([]*Route, int64, error)

	// Upsert creates or replaces a route (matched by slug) and its stops.
	Upsert(ctx context.Context, route *Route) error
}

// TripRepository defines the persistence contract for finished trips.
type TripRepository interface {
	// Save persists a new trip.
	Save(ctx context.Context, trip *Trip) error

	// FindByID retrieves a trip by its unique identifier.
	FindByID(ctx context.Context, id uuid.UUID) (*Trip, error)

	// ListAll retrieves all trips with pagination, newest first.
	ListAll(ctx context.Context, page, limit int) ([]*Trip, int64, error)

	// ListByWalker retrieves trips for a walker with pagination.
	ListByWalker(ctx context.Context, walker string, page, limit int) ([]*Trip, int64, error)
}
