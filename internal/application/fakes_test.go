package application

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
)

type memRouteRepo struct {
	mu     sync.Mutex
	routes map[uuid.UUID]*tour.Route
}

func newMemRouteRepo(routes ...*tour.Route) *memRouteRepo {
	r := &memRouteRepo{routes: make(map[uuid.UUID]*tour.Route)}
	for _, rt := range routes {
		r.routes[rt.ID] = rt
	}
	return r
}

func (r *memRouteRepo) FindByID(_ context.Context, id uuid.UUID) (*tour.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rt, ok := r.routes[id]
	if !ok {
		return nil, tour.NewNotFoundError("Route", id.String())
	}
	return rt, nil
}

func (r *memRouteRepo) FindBySlug(_ context.Context, slug string) (*tour.Route, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rt := range r.routes {
		if rt.Slug == slug {
			return rt, nil
		}
	}
	return nil, tour.NewNotFoundError("Route", slug)
}

func (r *memRouteRepo) List(_ context.Context, page, limit int) ([]*tour.Route, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tour.Route
	for _, rt := range r.routes {
		out = append(out, rt)
	}
	return out, int64(len(out)), nil
}

func (r *memRouteRepo) Upsert(_ context.Context, route *tour.Route) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, rt := range r.routes {
		if rt.Slug == route.Slug {
			route.ID = id
		}
	}
	r.routes[route.ID] = route
	return nil
}

type memTripRepo struct {
	mu    sync.Mutex
	trips []*tour.Trip
}

func (r *memTripRepo) Save(_ context.Context, trip *tour.Trip) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trips = append(r.trips, trip)
	return nil
}

func (r *memTripRepo) FindByID(_ context.Context, id uuid.UUID) (*tour.Trip, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.trips {
		if t.ID() == id {
			return t, nil
		}
	}
	return nil, tour.NewNotFoundError("Trip", id.String())
}

func (r *memTripRepo) ListAll(_ context.Context, _, _ int) ([]*tour.Trip, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*tour.Trip(nil), r.trips...), int64(len(r.trips)), nil
}

func (r *memTripRepo) ListByWalker(_ context.Context, walker string, _, _ int) ([]*tour.Trip, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*tour.Trip
	for _, t := range r.trips {
		if t.Walker() == walker {
			out = append(out, t)
		}
	}
	return out, int64(len(out)), nil
}

func (r *memTripRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.trips)
}

type recordingPublisher struct {
	mu      sync.Mutex
	arrived []string
	trips   []uuid.UUID
}

func (p *recordingPublisher) PublishStopArrived(_ context.Context, _, _ uuid.UUID, _ string, stop tour.Stop) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.arrived = append(p.arrived, stop.ID)
	return nil
}

func (p *recordingPublisher) PublishTripCompleted(_ context.Context, trip *tour.Trip) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.trips = append(p.trips, trip.SessionID())
	return nil
}

func (p *recordingPublisher) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.arrived), len(p.trips)
}
