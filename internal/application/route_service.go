package application

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"go.uber.org/zap"
)

// RouteService implements use cases for the route catalogue.
type RouteService struct {
	repo   tour.RouteRepository
	logger *zap.Logger
}

// NewRouteService creates a new RouteService.
func NewRouteService(repo tour.RouteRepository, logger *zap.Logger) *RouteService {
	return &RouteService{repo: repo, logger: logger}
}

// ListRoutes returns one page of routes.
func (s *RouteService) ListRoutes(ctx context.Context, page, limit int) (*PaginatedResult[RouteSummaryDTO], error) {
	routes, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, err
	}
	dtos := lo.Map(routes, func(r *tour.Route, _ int) RouteSummaryDTO { return toRouteSummaryDTO(r) })
	return NewPaginatedResult(dtos, total, page, limit), nil
}

// GetRoute returns a route with its stops.
func (s *RouteService) GetRoute(ctx context.Context, id uuid.UUID) (*RouteDTO, error) {
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toRouteDTO(route)
	return &dto, nil
}

// GetRouteBySlug returns a route with its stops.
func (s *RouteService) GetRouteBySlug(ctx context.Context, slug string) (*RouteDTO, error) {
	route, err := s.repo.FindBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	dto := toRouteDTO(route)
	return &dto, nil
}

// SuggestOrder rotates the route to start at the stop nearest pos. The stored
// route is not modified.
func (s *RouteService) SuggestOrder(ctx context.Context, id uuid.UUID, pos tour.Position) (*ReorderDTO, error) {
	if !pos.Valid() {
		return nil, tour.NewValidationError(fmt.Sprintf("invalid position %s", pos))
	}
	route, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	stops, changed := tour.NearestStopReorder(route.Stops, pos)
	return &ReorderDTO{
		RouteID:       route.ID,
		Changed:       changed,
		Stops:         stops,
		Specification: tour.Specify(stops, tour.DefaultWalkingSpeedKmh),
	}, nil
}

// Seed upserts routes by slug. It stops at the first failure.
func (s *RouteService) Seed(ctx context.Context, routes []*tour.Route) error {
	for _, r := range routes {
		if err := s.repo.Upsert(ctx, r); err != nil {
			return fmt.Errorf("seed route %s: %w", r.Slug, err)
		}
		s.logger.Info("route seeded",
			zap.String("slug", r.Slug),
			zap.String("route_id", r.ID.String()),
			zap.Int("stops", len(r.Stops)),
		)
	}
	return nil
}
