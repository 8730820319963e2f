// Package session coordinates one walking session: proximity triggers,
// the visited set, and the narration queue.
package session

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/platform/broadcast"
	"github.com/soundwalk/service-tour/internal/playback"
	"github.com/soundwalk/service-tour/internal/ports"
	"github.com/soundwalk/service-tour/internal/proximity"
	"go.uber.org/zap"
)

// Deps are the collaborators of a Controller. Lifecycle and Notifier are optional.
type Deps struct {
	Location  ports.LocationProvider
	Monitor   proximity.Monitor
	Narrator  ports.NarrationEngine
	Lifecycle ports.ForegroundTrackingLifecycle
	Notifier  ports.NotificationService
	Logger    *zap.Logger
}

// Options tune a Controller.
type Options struct {
	// SessionID names the session; a random id is used when zero.
	SessionID uuid.UUID
	RouteName string
	Locale    string
	// QueueStartDelay is forwarded to the narration queue.
	QueueStartDelay time.Duration
}

// Controller owns one RouteSession.
//
// Every state change (session status, visited set, queue commands and
// narration completions) runs on a single goroutine. Readers observe
// published snapshots. Ended is terminal: start a new walk with a new
// Controller.
type Controller struct {
	id   uuid.UUID
	opts Options
	deps Deps

	cmds     chan func()
	stopped  chan struct{}
	arrivals chan tour.Stop // owned by the loop; nil until started

	// loop-owned state
	status         tour.SessionStatus
	stops          []tour.Stop
	stopsByID      map[string]tour.Stop
	visited        map[string]struct{}
	visitOrder     []string
	permitted      bool
	startedAt      *time.Time
	endedAt        *time.Time
	cancelTracking context.CancelFunc
	lifecycleBegun bool
	exit           bool

	queue     *playback.Queue
	snapshots *broadcast.Broadcaster[Snapshot]
	logger    *zap.Logger
}

// NewController creates a Controller in the NotStarted state and starts its loop.
func NewController(deps Deps, opts Options) *Controller {
	id := opts.SessionID
	if id == uuid.Nil {
		id = uuid.New()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.Named("session").With(zap.String("session_id", id.String()))

	c := &Controller{
		id:      id,
		opts:    opts,
		deps:    deps,
		cmds:    make(chan func()),
		stopped: make(chan struct{}),
		status:  tour.SessionNotStarted,
		visited: make(map[string]struct{}),
		logger:  logger,
	}
	c.queue = playback.NewQueue(deps.Narrator, opts.Locale, logger.Named("queue"),
		playback.WithStartDelay(opts.QueueStartDelay),
		playback.WithDispatcher(c.post),
	)
	c.snapshots = broadcast.New(c.snapshot())

	go c.loop()
	return c
}

func (c *Controller) loop() {
	defer close(c.stopped)
	for !c.exit {
		select {
		case fn := <-c.cmds:
			fn()
		case stop := <-c.arrivals:
			c.arrive(stop, false)
		}
	}
}

// do runs fn on the loop and waits for it. It returns false once the loop has exited.
func (c *Controller) do(fn func()) bool {
	done := make(chan struct{})
	select {
	case c.cmds <- func() { fn(); close(done) }:
		<-done
		return true
	case <-c.stopped:
		return false
	}
}

// post runs fn on the loop without waiting. Work posted after the loop
// exits is dropped.
func (c *Controller) post(fn func()) {
	go func() {
		select {
		case c.cmds <- fn:
		case <-c.stopped:
		}
	}()
}

// ID returns the session id.
func (c *Controller) ID() uuid.UUID { return c.id }

// Queue exposes the narration queue for observation.
func (c *Controller) Queue() *playback.Queue { return c.queue }

// StartSession activates the session for stops.
//
// Missing location permission does not fail the start: the session runs but
// proximity never fires, and LocationPermitted reports false.
func (c *Controller) StartSession(stops []tour.Stop) error {
	if err := tour.ValidateStops(stops); err != nil {
		return err
	}

	var err error
	ran := c.do(func() {
		switch {
		case c.status == tour.SessionEnded:
			err = tour.Conflict(tour.ErrSessionEnded)
		case !c.status.CanTransitionTo(tour.SessionActive):
			err = tour.Conflict(tour.ErrSessionStarted)
		default:
			c.start(stops)
		}
	})
	if !ran {
		return tour.Conflict(tour.ErrSessionEnded)
	}
	return err
}

func (c *Controller) start(stops []tour.Stop) {
	now := time.Now().UTC()
	c.status = tour.SessionActive
	c.startedAt = &now
	c.stops = tour.SortedByOrder(stops)
	c.stopsByID = make(map[string]tour.Stop, len(stops))
	for _, s := range c.stops {
		c.stopsByID[s.ID] = s
	}
	c.visited = make(map[string]struct{}, len(stops))
	c.visitOrder = nil

	// Each stop triggers at most once, so this buffer never fills.
	arrivals := make(chan tour.Stop, len(c.stops))
	c.arrivals = arrivals
	c.permitted = c.deps.Monitor.Setup(c.stops, func(s tour.Stop) {
		select {
		case arrivals <- s:
		default:
			c.logger.Warn("arrival dropped", zap.String("stop_id", s.ID))
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	c.cancelTracking = cancel
	if c.deps.Location != nil {
		if err := c.deps.Location.StartTracking(ctx); err != nil {
			c.logger.Warn("location tracking failed to start", zap.Error(err))
		}
		go c.pump(ctx, c.deps.Location.Updates(ctx))
	}

	if c.deps.Lifecycle != nil {
		c.deps.Lifecycle.Begin(c.opts.RouteName)
		c.lifecycleBegun = true
	}

	c.logger.Info("session started",
		zap.String("route", c.opts.RouteName),
		zap.Int("stops", len(c.stops)),
		zap.Bool("location_permitted", c.permitted),
	)
	c.publish()
}

// pump feeds location fixes to the proximity monitor until ctx is cancelled.
func (c *Controller) pump(ctx context.Context, updates <-chan tour.Position) {
	if updates == nil {
		return
	}
	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-updates:
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			if !pos.Valid() {
				c.logger.Debug("ignoring invalid fix", zap.Stringer("position", pos))
				continue
			}
			if !c.deps.Location.HasPermission() {
				c.logger.Debug("ignoring fix, location permission revoked")
				continue
			}
			c.deps.Monitor.OnLocationUpdate(pos)
		}
	}
}

// arrive records a visit and enqueues its narration. Manual and automatic
// arrivals share this path so neither can double count.
func (c *Controller) arrive(stop tour.Stop, manual bool) bool {
	if c.status != tour.SessionActive {
		return false
	}
	if _, seen := c.visited[stop.ID]; seen {
		return false
	}

	c.visited[stop.ID] = struct{}{}
	c.visitOrder = append(c.visitOrder, stop.ID)
	if manual {
		c.deps.Monitor.Suppress(stop.ID)
	}

	c.queue.Enqueue(playback.ItemFromStop(stop))

	if c.deps.Notifier != nil {
		go c.deps.Notifier.NotifyStopArrived(stop)
	}

	c.logger.Info("stop visited",
		zap.String("stop_id", stop.ID),
		zap.Int("order", stop.Order),
		zap.Bool("manual", manual),
		zap.Int("visited", len(c.visited)),
		zap.Int("total", len(c.stops)),
	)
	c.publish()
	return true
}

// MarkVisited records a stop as reached without proximity, e.g. when the
// walker taps play on a map. It returns false if the session is not active,
// the stop is unknown, or it was already visited.
func (c *Controller) MarkVisited(stopID string) bool {
	var ok bool
	c.do(func() {
		stop, known := c.stopsByID[stopID]
		if !known {
			return
		}
		ok = c.arrive(stop, true)
	})
	return ok
}

// EndSession stops tracking, tears down proximity and clears the queue.
// Calling it again is a no-op.
func (c *Controller) EndSession() {
	c.do(func() {
		if c.status == tour.SessionEnded {
			return
		}
		c.end()
	})
}

func (c *Controller) end() {
	now := time.Now().UTC()
	c.status = tour.SessionEnded
	c.endedAt = &now

	if c.cancelTracking != nil {
		c.cancelTracking()
	}
	if c.deps.Location != nil {
		c.deps.Location.StopTracking()
	}
	c.deps.Monitor.Teardown()
	c.queue.Close()
	if c.lifecycleBegun {
		c.deps.Lifecycle.End()
		c.lifecycleBegun = false
	}

	c.logger.Info("session ended",
		zap.Int("visited", len(c.visited)),
		zap.Int("total", len(c.stops)),
	)
	c.publish()
	c.snapshots.Close()
	c.exit = true
}

// Close ends the session if it is still running.
func (c *Controller) Close() {
	c.EndSession()
}

// Done is closed once the session has ended and its loop has exited.
func (c *Controller) Done() <-chan struct{} { return c.stopped }

// Pause pauses narration. It is a no-op unless the session is active.
func (c *Controller) Pause() bool {
	return c.queueCommand(c.queue.Pause)
}

// Resume restarts the paused item from its beginning.
func (c *Controller) Resume() bool {
	return c.queueCommand(c.queue.Resume)
}

// Stop halts narration, keeping pending items.
func (c *Controller) Stop() bool {
	return c.queueCommand(func() bool { c.queue.Stop(); return true })
}

// SkipToNext stops the current item and plays the next.
func (c *Controller) SkipToNext() bool {
	return c.queueCommand(func() bool { c.queue.SkipToNext(); return true })
}

// ClearQueue empties the narration queue.
func (c *Controller) ClearQueue() bool {
	return c.queueCommand(func() bool { c.queue.Clear(); return true })
}

// RefreshCapabilities re-reads location permission and narrator availability
// after the device reports a change, and publishes a snapshot.
func (c *Controller) RefreshCapabilities() {
	c.do(func() {
		if c.status != tour.SessionActive {
			return
		}
		c.queue.Refresh()
		c.publish()
	})
}

func (c *Controller) queueCommand(fn func() bool) bool {
	var ok bool
	c.do(func() {
		if c.status != tour.SessionActive {
			return
		}
		ok = fn()
		c.publish()
	})
	return ok
}

// Snapshot returns the latest published session state.
func (c *Controller) Snapshot() Snapshot { return c.snapshots.Latest() }

// Subscribe streams session snapshots until cancel is called or the session ends.
func (c *Controller) Subscribe() (<-chan Snapshot, func()) {
	return c.snapshots.Subscribe()
}

// Status returns the session lifecycle state.
func (c *Controller) Status() tour.SessionStatus { return c.Snapshot().Status }

// Progress returns visitedCount/totalStops in [0,1].
func (c *Controller) Progress() float64 { return c.Snapshot().Progress }

// VisitedCount returns the number of stops reached.
func (c *Controller) VisitedCount() int { return c.Snapshot().VisitedCount }

// NextUnvisitedStop returns the lowest-order stop not yet visited.
func (c *Controller) NextUnvisitedStop() (tour.Stop, bool) {
	next := c.Snapshot().NextStop
	if next == nil {
		return tour.Stop{}, false
	}
	return *next, true
}

// LocationPermitted reports whether location access is granted right now.
func (c *Controller) LocationPermitted() bool {
	if c.deps.Location == nil {
		return false
	}
	return c.deps.Location.HasPermission()
}

func (c *Controller) publish() {
	c.snapshots.Publish(c.snapshot())
}

func (c *Controller) snapshot() Snapshot {
	s := Snapshot{
		SessionID:         c.id,
		RouteName:         c.opts.RouteName,
		Status:            c.status,
		VisitedStopIDs:    append([]string{}, c.visitOrder...),
		VisitedCount:      len(c.visited),
		TotalStops:        len(c.stops),
		Progress:          progress(len(c.visited), len(c.stops)),
		LocationPermitted: c.permitted && c.LocationPermitted(),
		StartedAt:         c.startedAt,
		EndedAt:           c.endedAt,
	}
	for _, stop := range c.stops {
		if _, seen := c.visited[stop.ID]; !seen {
			next := stop
			s.NextStop = &next
			break
		}
	}
	return s
}
