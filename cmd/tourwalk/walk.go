package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/samber/lo"
	"github.com/soundwalk/service-tour/internal/adapters/geofence"
	"github.com/soundwalk/service-tour/internal/adapters/location"
	"github.com/soundwalk/service-tour/internal/adapters/narration"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/playback"
	"github.com/soundwalk/service-tour/internal/proximity"
	"github.com/soundwalk/service-tour/internal/routeseed"
	"github.com/soundwalk/service-tour/internal/session"
	"go.uber.org/zap"
)

// Params configure a replay.
type Params struct {
	RoutePath      string
	TrackPath      string
	Slug           string
	Speed          float64
	WordsPerMinute int
	MaxRegions     int
	Settle         time.Duration
	Drain          time.Duration
	Reorder        bool
	Verbose        bool
}

func defaultParams() *Params {
	return &Params{
		Speed:          60,
		WordsPerMinute: narration.DefaultWordsPerMinute,
		Settle:         time.Second,
		Drain:          time.Minute,
	}
}

// Run replays the track and returns a process exit code.
func Run(ctx context.Context, p *Params, stdout, stderr io.Writer) int {
	if ctx == nil {
		ctx = context.Background()
	}
	if p.Speed <= 0 {
		fmt.Fprintln(stderr, "tourwalk: --speed must be positive")
		return 2
	}

	routes, err := routeseed.LoadFile(p.RoutePath, tour.DefaultTriggerRadiusMeters)
	if err != nil {
		fmt.Fprintf(stderr, "tourwalk: %v\n", err)
		return 1
	}
	route, ok := pickRoute(routes, p.Slug)
	if !ok {
		fmt.Fprintf(stderr, "tourwalk: route %q not in catalogue\n", p.Slug)
		return 1
	}
	fixes, err := routeseed.LoadTrackFile(p.TrackPath)
	if err != nil {
		fmt.Fprintf(stderr, "tourwalk: %v\n", err)
		return 1
	}

	logger := zap.NewNop()
	if p.Verbose {
		logger, _ = zap.NewDevelopment()
	}
	return replay(ctx, p, route, fixes, logger, stdout)
}

func pickRoute(routes []*tour.Route, slug string) (*tour.Route, bool) {
	if slug == "" {
		return lo.First(routes)
	}
	return lo.Find(routes, func(r *tour.Route) bool { return r.Slug == slug })
}

func replay(ctx context.Context, p *Params, route *tour.Route, fixes []routeseed.TimedFix, logger *zap.Logger, out io.Writer) int {
	stops := route.Stops
	if p.Reorder && len(fixes) > 0 {
		var changed bool
		if stops, changed = tour.NearestStopReorder(stops, fixes[0].Position); changed {
			fmt.Fprintf(out, "starting at %s (nearest stop)\n", stops[0].Name)
		}
	}

	provider := location.NewPushProvider(true, len(fixes)+1)
	var monitor proximity.Monitor = proximity.NewPollingMonitor(provider, logger)
	if p.MaxRegions > 0 {
		monitor = proximity.NewRegionMonitor(geofence.NewBackend(p.MaxRegions), provider, logger)
	}
	narrator := narration.NewTimedNarrator(int(float64(p.WordsPerMinute)*p.Speed), logger)

	ctrl := session.NewController(session.Deps{
		Location: provider,
		Monitor:  monitor,
		Narrator: narrator,
		Logger:   logger,
	}, session.Options{
		RouteName:       route.Name,
		Locale:          route.Locale,
		QueueStartDelay: p.Settle,
	})
	defer ctrl.Close()

	printed := make(chan struct{})
	go report(ctrl, stops, out, printed)

	if err := ctrl.StartSession(stops); err != nil {
		fmt.Fprintf(out, "cannot start: %v\n", err)
		return 1
	}

	var last time.Duration
	for _, fix := range fixes {
		wait := time.Duration(float64(fix.At-last) / p.Speed)
		last = fix.At
		select {
		case <-ctx.Done():
			ctrl.EndSession()
			<-printed
			return 130
		case <-time.After(wait):
		}
		_ = provider.Push(fix.Position)
	}

	drainQueue(ctx, ctrl.Queue(), p.Settle+p.Drain)
	ctrl.EndSession()
	<-printed

	snap := ctrl.Snapshot()
	fmt.Fprintf(out, "visited %d/%d stops (%.0f%%)\n", snap.VisitedCount, snap.TotalStops, snap.Progress*100)
	return 0
}

// drainQueue waits until narration is idle with nothing pending.
func drainQueue(ctx context.Context, q *playback.Queue, limit time.Duration) {
	deadline := time.After(limit)
	tick := time.NewTicker(20 * time.Millisecond)
	defer tick.Stop()
	// Let the settle window open before checking for idleness.
	idleSince := time.Time{}
	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			return
		case <-tick.C:
			if q.State() != tour.PlaybackIdle || q.Len() > 0 {
				idleSince = time.Time{}
				continue
			}
			if idleSince.IsZero() {
				idleSince = time.Now()
			}
			if time.Since(idleSince) > 100*time.Millisecond {
				return
			}
		}
	}
}

// report prints arrivals and narration changes until the session ends.
func report(ctrl *session.Controller, stops []tour.Stop, out io.Writer, done chan<- struct{}) {
	defer close(done)
	names := lo.SliceToMap(stops, func(s tour.Stop) (string, string) { return s.ID, s.Name })

	sessions, cancelSessions := ctrl.Subscribe()
	defer cancelSessions()
	queue, cancelQueue := ctrl.Queue().Subscribe()
	defer cancelQueue()

	seen := 0
	current := ""
	for sessions != nil || queue != nil {
		select {
		case snap, ok := <-sessions:
			if !ok {
				sessions = nil
				continue
			}
			for _, id := range snap.VisitedStopIDs[min(seen, len(snap.VisitedStopIDs)):] {
				fmt.Fprintf(out, "arrived  %s\n", names[id])
			}
			seen = max(seen, len(snap.VisitedStopIDs))
		case snap, ok := <-queue:
			if !ok {
				queue = nil
				continue
			}
			if snap.Current != nil && snap.Current.StopID != current {
				current = snap.Current.StopID
				fmt.Fprintf(out, "playing  %s\n", snap.Current.Name)
			}
			if snap.Current == nil {
				current = ""
			}
		}
	}
}
