package application

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestRouteServiceLookups(t *testing.T) {
	route := harbourRoute(t)
	svc := NewRouteService(newMemRouteRepo(route), zap.NewNop())

	page, err := svc.ListRoutes(context.Background(), 1, 20)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.TotalPages)
	assert.Equal(t, "harbour", page.Data[0].Slug)

	got, err := svc.GetRoute(context.Background(), route.ID)
	require.NoError(t, err)
	assert.Len(t, got.Stops, 3)

	got, err = svc.GetRouteBySlug(context.Background(), "harbour")
	require.NoError(t, err)
	assert.Equal(t, route.ID, got.ID)

	_, err = svc.GetRoute(context.Background(), uuid.New())
	assert.True(t, tour.IsNotFound(err))
}

func TestSuggestOrderIsAdvisory(t *testing.T) {
	route := harbourRoute(t)
	svc := NewRouteService(newMemRouteRepo(route), zap.NewNop())

	res, err := svc.SuggestOrder(context.Background(), route.ID, tour.Position{Lat: 0, Lon: 0.0102})
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.Equal(t, []string{"s2", "s3", "s1"}, []string{res.Stops[0].ID, res.Stops[1].ID, res.Stops[2].ID})
	assert.Equal(t, 1, res.Stops[0].Order)
	assert.Equal(t, 3, res.Specification.StopCount)

	assert.Equal(t, "s1", route.Stops[0].ID)

	_, err = svc.SuggestOrder(context.Background(), route.ID, tour.Position{Lat: -100})
	assert.True(t, tour.IsValidation(err))
}

func TestSeedUpsertsBySlug(t *testing.T) {
	repo := newMemRouteRepo()
	svc := NewRouteService(repo, zap.NewNop())

	first := harbourRoute(t)
	require.NoError(t, svc.Seed(context.Background(), []*tour.Route{first}))
	second := harbourRoute(t)
	require.NoError(t, svc.Seed(context.Background(), []*tour.Route{second}))

	assert.Equal(t, first.ID, second.ID)
	page, err := svc.ListRoutes(context.Background(), 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
}

func TestNewPaginatedResult(t *testing.T) {
	p := NewPaginatedResult[int](nil, 41, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.NotNil(t, p.Data)
}
