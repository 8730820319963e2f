package session

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/soundwalk/service-tour/internal/adapters/location"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/proximity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type harness struct {
	ctrl      *Controller
	loc       *location.PushProvider
	narrator  *fakeNarrator
	lifecycle *fakeLifecycle
	notifier  *fakeNotifier
}

func newHarness(t *testing.T, permitted bool, startDelay time.Duration) *harness {
	t.Helper()
	h := &harness{
		loc:       location.NewPushProvider(permitted, 0),
		narrator:  &fakeNarrator{},
		lifecycle: &fakeLifecycle{},
		notifier:  &fakeNotifier{},
	}
	logger := zap.NewNop()
	h.ctrl = NewController(Deps{
		Location:  h.loc,
		Monitor:   proximity.NewPollingMonitor(h.loc, logger),
		Narrator:  h.narrator,
		Lifecycle: h.lifecycle,
		Notifier:  h.notifier,
		Logger:    logger,
	}, Options{RouteName: "Harbour Walk", Locale: "en", QueueStartDelay: startDelay})
	t.Cleanup(h.ctrl.Close)
	return h
}

func routeStops() []tour.Stop {
	return []tour.Stop{
		{ID: "s1", Order: 1, Name: "Lighthouse", Position: tour.Position{Lat: 0, Lon: 0.00}, Narration: "one"},
		{ID: "s2", Order: 2, Name: "Fish Market", Position: tour.Position{Lat: 0, Lon: 0.01}, Narration: "two"},
		{ID: "s3", Order: 3, Name: "Old Pier", Position: tour.Position{Lat: 0, Lon: 0.02}, Narration: "three"},
	}
}

func at(lon float64) tour.Position { return tour.Position{Lat: 0, Lon: lon} }

func (h *harness) push(t *testing.T, pos tour.Position) {
	t.Helper()
	require.NoError(t, h.loc.Push(pos))
}

func (h *harness) waitVisited(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return h.ctrl.VisitedCount() == n },
		time.Second, 5*time.Millisecond, "expected %d visited stops", n)
}

func (h *harness) waitSpoken(t *testing.T, n int) {
	t.Helper()
	require.Eventually(t, func() bool { return len(h.narrator.spokenTexts()) == n },
		time.Second, 5*time.Millisecond, "expected %d utterances", n)
}

func TestTriggerOrderDiffersFromPlaybackOrder(t *testing.T) {
	h := newHarness(t, true, 200*time.Millisecond)
	require.NoError(t, h.ctrl.StartSession(routeStops()))

	h.push(t, at(0.01))
	h.push(t, at(0.0))
	h.push(t, at(0.02))
	h.waitVisited(t, 3)

	assert.Equal(t, []string{"s2", "s1", "s3"}, h.ctrl.Snapshot().VisitedStopIDs)

	for i := 1; i <= 3; i++ {
		h.waitSpoken(t, i)
		h.narrator.finish(nil)
	}
	assert.Equal(t, []string{"one", "two", "three"}, h.narrator.spokenTexts())
	assert.Equal(t, 3, h.ctrl.VisitedCount())
	assert.Equal(t, 1.0, h.ctrl.Progress())
	require.Eventually(t, func() bool { return h.notifier.count() == 3 }, time.Second, 5*time.Millisecond)
}

func TestOscillationAroundStopCountsOnce(t *testing.T) {
	h := newHarness(t, true, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))

	for i := 0; i < 8; i++ {
		h.push(t, at(0.0101))
		h.push(t, at(0.0106))
	}
	h.waitVisited(t, 1)
	time.Sleep(30 * time.Millisecond)

	assert.Equal(t, 1, h.ctrl.VisitedCount())
	assert.Equal(t, []string{"two"}, h.narrator.spokenTexts())
}

func TestMarkVisitedSharesDedupWithProximity(t *testing.T) {
	h := newHarness(t, true, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))

	assert.True(t, h.ctrl.MarkVisited("s1"))
	assert.False(t, h.ctrl.MarkVisited("s1"))
	assert.False(t, h.ctrl.MarkVisited("nope"))

	h.push(t, at(0.0))
	h.push(t, at(0.01))
	h.waitVisited(t, 2)

	assert.Equal(t, []string{"s1", "s2"}, h.ctrl.Snapshot().VisitedStopIDs)
	assert.Equal(t, []string{"one"}, h.narrator.spokenTexts())
	assert.Equal(t, 1, h.ctrl.Queue().Len())
}

func TestProgressIsMonotonic(t *testing.T) {
	h := newHarness(t, true, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))
	assert.Equal(t, 0.0, h.ctrl.Progress())

	last := 0.0
	for _, id := range []string{"s3", "s3", "s1", "s2", "s1"} {
		h.ctrl.MarkVisited(id)
		p := h.ctrl.Progress()
		assert.GreaterOrEqual(t, p, last)
		assert.LessOrEqual(t, h.ctrl.VisitedCount(), 3)
		last = p
	}
	assert.Equal(t, 1.0, last)
}

func TestNextUnvisitedStop(t *testing.T) {
	h := newHarness(t, true, 0)
	_, ok := h.ctrl.NextUnvisitedStop()
	assert.False(t, ok)

	require.NoError(t, h.ctrl.StartSession(routeStops()))
	next, ok := h.ctrl.NextUnvisitedStop()
	require.True(t, ok)
	assert.Equal(t, "s1", next.ID)

	h.ctrl.MarkVisited("s1")
	h.ctrl.MarkVisited("s3")
	next, ok = h.ctrl.NextUnvisitedStop()
	require.True(t, ok)
	assert.Equal(t, "s2", next.ID)

	h.ctrl.MarkVisited("s2")
	_, ok = h.ctrl.NextUnvisitedStop()
	assert.False(t, ok)
}

func TestNothingChangesAfterEndSession(t *testing.T) {
	h := newHarness(t, true, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))
	h.ctrl.MarkVisited("s1")

	h.ctrl.EndSession()
	ended := h.ctrl.Snapshot()
	assert.Equal(t, tour.SessionEnded, ended.Status)
	assert.Equal(t, 1, ended.VisitedCount)

	assert.False(t, h.ctrl.MarkVisited("s2"))
	assert.ErrorIs(t, h.loc.Push(at(0.02)), location.ErrNotTracking)
	assert.False(t, h.ctrl.Pause())
	assert.False(t, h.ctrl.SkipToNext())

	assert.Equal(t, ended, h.ctrl.Snapshot())
	assert.Equal(t, 0, h.ctrl.Queue().Len())
	assert.Nil(t, h.ctrl.Queue().Snapshot().Current)
}

func TestEndSessionIsIdempotent(t *testing.T) {
	h := newHarness(t, true, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))

	h.ctrl.EndSession()
	first := h.ctrl.Snapshot()
	h.ctrl.EndSession()

	assert.Equal(t, first, h.ctrl.Snapshot())
	begins, ends := h.lifecycle.counts()
	assert.Equal(t, 1, begins)
	assert.Equal(t, 1, ends)
	assert.False(t, h.loc.Tracking())

	select {
	case <-h.ctrl.Done():
	case <-time.After(time.Second):
		t.Fatal("session loop did not exit")
	}
}

func TestStartSessionValidation(t *testing.T) {
	h := newHarness(t, true, 0)
	err := h.ctrl.StartSession(nil)
	require.Error(t, err)
	assert.True(t, tour.IsValidation(err))
	assert.Equal(t, tour.SessionNotStarted, h.ctrl.Status())

	require.NoError(t, h.ctrl.StartSession(routeStops()))
	err = h.ctrl.StartSession(routeStops())
	assert.True(t, tour.IsConflict(err))
	assert.ErrorIs(t, err, tour.ErrSessionStarted)

	h.ctrl.EndSession()
	err = h.ctrl.StartSession(routeStops())
	assert.True(t, tour.IsConflict(err))
	assert.ErrorIs(t, err, tour.ErrSessionEnded)
}

func TestMarkVisitedBeforeStartIsNoop(t *testing.T) {
	h := newHarness(t, true, 0)
	assert.False(t, h.ctrl.MarkVisited("s1"))
	assert.Equal(t, 0, h.ctrl.VisitedCount())
	assert.Equal(t, 0.0, h.ctrl.Progress())
}

func TestPermissionDeniedStillStartsSession(t *testing.T) {
	h := newHarness(t, false, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))

	assert.Equal(t, tour.SessionActive, h.ctrl.Status())
	assert.False(t, h.ctrl.LocationPermitted())
	assert.False(t, h.ctrl.Snapshot().LocationPermitted)

	h.push(t, at(0.0))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, h.ctrl.VisitedCount())

	assert.True(t, h.ctrl.MarkVisited("s1"))
}

func TestRevokedPermissionIgnoresFixes(t *testing.T) {
	h := newHarness(t, true, 0)
	require.NoError(t, h.ctrl.StartSession(routeStops()))
	require.True(t, h.ctrl.Snapshot().LocationPermitted)

	h.loc.SetPermission(false)
	h.ctrl.RefreshCapabilities()
	assert.False(t, h.ctrl.LocationPermitted())
	assert.False(t, h.ctrl.Snapshot().LocationPermitted)

	h.push(t, at(0.0))
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, 0, h.ctrl.VisitedCount())

	h.loc.SetPermission(true)
	h.ctrl.RefreshCapabilities()
	assert.True(t, h.ctrl.Snapshot().LocationPermitted)
	h.push(t, at(0.0))
	h.waitVisited(t, 1)
}

func TestPauseResumeThroughController(t *testing.T) {
	h := newHarness(t, true, 0)
	assert.False(t, h.ctrl.Pause())

	require.NoError(t, h.ctrl.StartSession(routeStops()))
	h.ctrl.MarkVisited("s1")
	h.ctrl.MarkVisited("s2")
	h.narrator.finish(nil)
	h.waitSpoken(t, 2)

	require.True(t, h.ctrl.Pause())
	assert.Equal(t, tour.PlaybackPaused, h.ctrl.Queue().State())
	require.True(t, h.ctrl.Resume())
	assert.Equal(t, tour.PlaybackPlaying, h.ctrl.Queue().State())
	assert.Equal(t, "s2", h.ctrl.Queue().Snapshot().Current.StopID)
	assert.Equal(t, []string{"one", "two", "two"}, h.narrator.spokenTexts())

	assert.True(t, h.ctrl.Stop())
	assert.Equal(t, tour.PlaybackIdle, h.ctrl.Queue().State())
	assert.True(t, h.ctrl.ClearQueue())
}

func TestSubscribeSeesProgress(t *testing.T) {
	h := newHarness(t, true, 0)
	updates, cancel := h.ctrl.Subscribe()
	defer cancel()
	assert.Equal(t, tour.SessionNotStarted, (<-updates).Status)

	require.NoError(t, h.ctrl.StartSession(routeStops()))
	assert.Equal(t, tour.SessionActive, (<-updates).Status)

	h.ctrl.MarkVisited("s2")
	snap := <-updates
	assert.InDelta(t, 1.0/3.0, snap.Progress, 1e-9)

	h.ctrl.EndSession()
	var last Snapshot
	for s := range updates {
		last = s
	}
	assert.Equal(t, tour.SessionEnded, last.Status)
}

func TestConcurrentManualAndAutomaticArrivals(t *testing.T) {
	h := newHarness(t, true, 0)
	h.narrator.autoComplete = true

	stops := make([]tour.Stop, 20)
	for i := range stops {
		stops[i] = tour.Stop{
			ID:        fmt.Sprintf("s%02d", i+1),
			Order:     i + 1,
			Position:  tour.Position{Lat: 0, Lon: float64(i) * 0.01},
			Narration: fmt.Sprintf("n%02d", i+1),
		}
	}
	require.NoError(t, h.ctrl.StartSession(stops))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for _, s := range stops {
				h.ctrl.MarkVisited(s.ID)
			}
		}()
	}
	for _, s := range stops {
		_ = h.loc.Push(s.Position)
	}
	wg.Wait()

	h.waitVisited(t, len(stops))
	h.waitSpoken(t, len(stops))
	time.Sleep(30 * time.Millisecond)

	spoken := h.narrator.spokenTexts()
	seen := make(map[string]int)
	for _, s := range spoken {
		seen[s]++
	}
	assert.Len(t, seen, len(stops))
	for text, n := range seen {
		assert.Equal(t, 1, n, "narration %s played more than once", text)
	}
	assert.Equal(t, 1.0, h.ctrl.Progress())
}
