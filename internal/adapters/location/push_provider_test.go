package location

import (
	"context"
	"testing"

	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushProviderDeliversFixes(t *testing.T) {
	p := NewPushProvider(true, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	assert.ErrorIs(t, p.Push(tour.Position{Lat: 1, Lon: 1}), ErrNotTracking)

	require.NoError(t, p.StartTracking(ctx))
	updates := p.Updates(ctx)

	require.NoError(t, p.Push(tour.Position{Lat: 1, Lon: 2}))
	assert.Equal(t, tour.Position{Lat: 1, Lon: 2}, <-updates)

	last, ok := p.LastKnown()
	require.True(t, ok)
	assert.Equal(t, 2.0, last.Lon)

	assert.ErrorIs(t, p.Push(tour.Position{Lat: 95}), ErrInvalidPosition)
}

func TestPushProviderDropsOldestWhenFull(t *testing.T) {
	p := NewPushProvider(true, 2)
	ctx := context.Background()
	require.NoError(t, p.StartTracking(ctx))
	updates := p.Updates(ctx)

	for i := 1; i <= 3; i++ {
		require.NoError(t, p.Push(tour.Position{Lat: float64(i)}))
	}
	assert.Equal(t, 2.0, (<-updates).Lat)
	assert.Equal(t, 3.0, (<-updates).Lat)
}

func TestPushProviderStopTrackingClosesStreams(t *testing.T) {
	p := NewPushProvider(false, 0)
	assert.False(t, p.HasPermission())
	p.SetPermission(true)
	assert.True(t, p.HasPermission())

	require.NoError(t, p.StartTracking(context.Background()))
	updates := p.Updates(context.Background())
	p.StopTracking()
	p.StopTracking()

	_, open := <-updates
	assert.False(t, open)
	assert.False(t, p.Tracking())

	closed := p.Updates(context.Background())
	_, open = <-closed
	assert.False(t, open)
}

func TestPushProviderClosesStreamOnContextCancel(t *testing.T) {
	p := NewPushProvider(true, 0)
	require.NoError(t, p.StartTracking(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	updates := p.Updates(ctx)
	cancel()

	_, open := <-updates
	assert.False(t, open)
}
