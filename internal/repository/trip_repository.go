package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"gorm.io/gorm"
)

// TripModel is the GORM model for the trips table.
type TripModel struct {
	ID             uuid.UUID       `gorm:"type:uuid;primaryKey"`
	SessionID      uuid.UUID       `gorm:"type:uuid;uniqueIndex;not null"`
	RouteID        uuid.UUID       `gorm:"type:uuid;index;not null"`
	Walker         string          `gorm:"size:100;index"`
	VisitedStopIDs json.RawMessage `gorm:"type:jsonb;not null"`
	VisitedCount   int             `gorm:"not null"`
	TotalStops     int             `gorm:"not null"`
	StartedAt      time.Time       `gorm:"not null"`
	EndedAt        time.Time       `gorm:"not null"`
	CreatedAt      time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for the GORM model.
func (TripModel) TableName() string {
	return "trips"
}

// GormTripRepository is the GORM-based implementation of tour.TripRepository.
type GormTripRepository struct {
	db *gorm.DB
}

// NewGormTripRepository creates a new GormTripRepository.
func NewGormTripRepository(db *gorm.DB) *GormTripRepository {
	return &GormTripRepository{db: db}
}

// Save persists a new trip.
func (r *GormTripRepository) Save(ctx context.Context, trip *tour.Trip) error {
	model, err := toTripModel(trip)
	if err != nil {
		return fmt.Errorf("failed to convert trip to model: %w", err)
	}
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return fmt.Errorf("failed to save trip: %w", err)
	}
	return nil
}

// FindByID retrieves a trip by its unique identifier.
func (r *GormTripRepository) FindByID(ctx context.Context, id uuid.UUID) (*tour.Trip, error) {
	var model TripModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, tour.NewNotFoundError("Trip", id.String())
		}
		return nil, fmt.Errorf("failed to find trip by ID: %w", err)
	}
	return toDomainTrip(&model)
}

// ListAll retrieves all trips with pagination, newest first.
func (r *GormTripRepository) ListAll(ctx context.Context, page, limit int) ([]*tour.Trip, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&TripModel{}), page, limit)
}

// ListByWalker retrieves trips for a walker with pagination, newest first.
func (r *GormTripRepository) ListByWalker(ctx context.Context, walker string, page, limit int) ([]*tour.Trip, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&TripModel{}).Where("walker = ?", walker), page, limit)
}

func (r *GormTripRepository) list(_ context.Context, q *gorm.DB, page, limit int) ([]*tour.Trip, int64, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count trips: %w", err)
	}

	var models []TripModel
	if err := q.Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list trips: %w", err)
	}

	trips := make([]*tour.Trip, len(models))
	for i := range models {
		trip, err := toDomainTrip(&models[i])
		if err != nil {
			return nil, 0, err
		}
		trips[i] = trip
	}
	return trips, total, nil
}

func toTripModel(t *tour.Trip) (*TripModel, error) {
	visited, err := json.Marshal(t.VisitedStopIDs())
	if err != nil {
		return nil, err
	}
	return &TripModel{
		ID:             t.ID(),
		SessionID:      t.SessionID(),
		RouteID:        t.RouteID(),
		Walker:         t.Walker(),
		VisitedStopIDs: visited,
		VisitedCount:   t.VisitedCount(),
		TotalStops:     t.TotalStops(),
		StartedAt:      t.StartedAt(),
		EndedAt:        t.EndedAt(),
		CreatedAt:      t.CreatedAt(),
	}, nil
}

func toDomainTrip(m *TripModel) (*tour.Trip, error) {
	var visited []string
	if err := json.Unmarshal(m.VisitedStopIDs, &visited); err != nil {
		return nil, fmt.Errorf("failed to unmarshal visited stops of trip %s: %w", m.ID, err)
	}
	return tour.ReconstructTrip(
		m.ID,
		m.SessionID,
		m.RouteID,
		m.Walker,
		visited,
		m.TotalStops,
		m.StartedAt,
		m.EndedAt,
		m.CreatedAt,
	), nil
}
