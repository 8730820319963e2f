package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"gorm.io/gorm"
)

// RouteModel is the GORM model for the routes table.
type RouteModel struct {
	ID          uuid.UUID   `gorm:"type:uuid;primaryKey"`
	Slug        string      `gorm:"type:varchar(100);uniqueIndex;not null"`
	Name        string      `gorm:"type:varchar(200);not null"`
	City        string      `gorm:"type:varchar(100);index"`
	Description string      `gorm:"type:text"`
	Locale      string      `gorm:"type:varchar(16)"`
	Stops       []StopModel `gorm:"foreignKey:RouteID;constraint:OnDelete:CASCADE"`
	CreatedAt   time.Time   `gorm:"type:timestamptz;not null"`
	UpdatedAt   time.Time   `gorm:"type:timestamptz;not null"`
}

func (RouteModel) TableName() string { return "routes" }

// StopModel is the GORM model for the route_stops table.
type StopModel struct {
	RouteID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	StopID          string    `gorm:"type:varchar(100);primaryKey"`
	Position        int       `gorm:"not null"`
	Name            string    `gorm:"type:varchar(200);not null"`
	Latitude        float64   `gorm:"not null"`
	Longitude       float64   `gorm:"not null"`
	TriggerRadiusM  float64   `gorm:"not null"`
	Narration       string    `gorm:"type:text"`
	DurationSeconds int       `gorm:"not null;default:0"`
}

func (StopModel) TableName() string { return "route_stops" }

// GormRouteRepository implements tour.RouteRepository using GORM.
type GormRouteRepository struct {
	db *gorm.DB
}

func NewGormRouteRepository(db *gorm.DB) *GormRouteRepository {
	return &GormRouteRepository{db: db}
}

func (r *GormRouteRepository) FindByID(ctx context.Context, id uuid.UUID) (*tour.Route, error) {
	return r.findOne(ctx, "id = ?", id, id.String())
}

func (r *GormRouteRepository) FindBySlug(ctx context.Context, slug string) (*tour.Route, error) {
	return r.findOne(ctx, "slug = ?", slug, slug)
}

func (r *GormRouteRepository) findOne(ctx context.Context, where string, arg any, key string) (*tour.Route, error) {
	var model RouteModel
	err := r.db.WithContext(ctx).
		Preload("Stops", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Where(where, arg).
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tour.NewNotFoundError("Route", key)
		}
		return nil, fmt.Errorf("failed to find route: %w", err)
	}
	return toRouteDomain(&model), nil
}

// List returns routes without their stops, ordered by name.
func (r *GormRouteRepository) List(ctx context.Context, page, limit int) ([]*tour.Route, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&RouteModel{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count routes: %w", err)
	}

	var models []RouteModel
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list routes: %w", err)
	}

	routes := make([]*tour.Route, len(models))
	for i := range models {
		routes[i] = toRouteDomain(&models[i])
	}
	return routes, total, nil
}

// Upsert replaces the route with the same slug, keeping its id, or creates it.
// On return route.ID and CreatedAt reflect the stored row.
func (r *GormRouteRepository) Upsert(ctx context.Context, route *tour.Route) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing RouteModel
		err := tx.Where("slug = ?", route.Slug).First(&existing).Error
		switch {
		case err == nil:
			route.ID = existing.ID
			route.CreatedAt = existing.CreatedAt
			if err := tx.Where("route_id = ?", existing.ID).Delete(&StopModel{}).Error; err != nil {
				return fmt.Errorf("failed to clear stops: %w", err)
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to look up route: %w", err)
		}

		route.UpdatedAt = time.Now().UTC()
		model := toRouteModel(route)
		if err := tx.Omit("Stops").Save(model).Error; err != nil {
			return fmt.Errorf("failed to save route: %w", err)
		}
		if len(model.Stops) > 0 {
			if err := tx.Create(&model.Stops).Error; err != nil {
				return fmt.Errorf("failed to save stops: %w", err)
			}
		}
		return nil
	})
}

func toRouteModel(rt *tour.Route) *RouteModel {
	stops := make([]StopModel, len(rt.Stops))
	for i, s := range rt.Stops {
		stops[i] = StopModel{
			RouteID:         rt.ID,
			StopID:          s.ID,
			Position:        s.Order,
			Name:            s.Name,
			Latitude:        s.Position.Lat,
			Longitude:       s.Position.Lon,
			TriggerRadiusM:  s.Radius(),
			Narration:       s.Narration,
			DurationSeconds: int(s.Duration / time.Second),
		}
	}
	return &RouteModel{
		ID:          rt.ID,
		Slug:        rt.Slug,
		Name:        rt.Name,
		City:        rt.City,
		Description: rt.Description,
		Locale:      rt.Locale,
		Stops:       stops,
		CreatedAt:   rt.CreatedAt,
		UpdatedAt:   rt.UpdatedAt,
	}
}

func toRouteDomain(m *RouteModel) *tour.Route {
	stops := make([]tour.Stop, len(m.Stops))
	for i, s := range m.Stops {
		stops[i] = tour.Stop{
			ID:                  s.StopID,
			Order:               s.Position,
			Name:                s.Name,
			Position:            tour.Position{Lat: s.Latitude, Lon: s.Longitude},
			TriggerRadiusMeters: s.TriggerRadiusM,
			Narration:           s.Narration,
			Duration:            time.Duration(s.DurationSeconds) * time.Second,
		}
	}
	return &tour.Route{
		ID:          m.ID,
		Slug:        m.Slug,
		Name:        m.Name,
		City:        m.City,
		Description: m.Description,
		Locale:      m.Locale,
		Stops:       tour.SortedByOrder(stops),
		CreatedAt:   m.CreatedAt,
		UpdatedAt:   m.UpdatedAt,
	}
}
