package application

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/soundwalk/service-tour/internal/adapters/geofence"
	"github.com/soundwalk/service-tour/internal/adapters/lifecycle"
	"github.com/soundwalk/service-tour/internal/adapters/location"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/playback"
	"github.com/soundwalk/service-tour/internal/ports"
	"github.com/soundwalk/service-tour/internal/proximity"
	"github.com/soundwalk/service-tour/internal/session"
	"go.uber.org/zap"
)

// ErrShuttingDown rejects new tours once Shutdown has begun.
var ErrShuttingDown = errors.New("tour service is shutting down")

// EventPublisher announces tour events to other services. Implementations
// must not block for long; errors are logged and dropped.
type EventPublisher interface {
	PublishStopArrived(ctx context.Context, sessionID, routeID uuid.UUID, walker string, stop tour.Stop) error
	PublishTripCompleted(ctx context.Context, trip *tour.Trip) error
}

// NarratorFactory creates the narration engine for one tour. Returning nil
// runs the tour without narration.
type NarratorFactory func() ports.NarrationEngine

// EngineSettings tune every tour started by a TourService.
type EngineSettings struct {
	Locale string
	// MaxRegions > 0 uses region monitoring with that ceiling; 0 polls.
	MaxRegions      int
	QueueStartDelay time.Duration
}

// StartTourRequest holds the data needed to start a tour.
type StartTourRequest struct {
	RouteID uuid.UUID `json:"route_id" binding:"required"`
	Walker  string    `json:"walker"`
	// LocationPermitted defaults to true.
	LocationPermitted *bool `json:"location_permitted"`
	// StartFrom rotates the route to begin at the nearest stop.
	StartFrom *tour.Position `json:"start_from"`
}

// DeviceStateRequest reports capability changes from the walker's device.
// Nil fields are left unchanged.
type DeviceStateRequest struct {
	LocationPermitted  *bool `json:"location_permitted"`
	NarrationAvailable *bool `json:"narration_available"`
}

// availabilitySwitch is implemented by narrators whose availability can change at runtime.
type availabilitySwitch interface {
	SetAvailable(available bool)
}

// PlaybackAction names a narration queue command.
type PlaybackAction string

const (
	PlaybackPause  PlaybackAction = "pause"
	PlaybackResume PlaybackAction = "resume"
	PlaybackStop   PlaybackAction = "stop"
	PlaybackSkip   PlaybackAction = "skip"
	PlaybackClear  PlaybackAction = "clear"
)

// TourWatch streams the state of one tour.
type TourWatch struct {
	Session <-chan session.Snapshot
	Queue   <-chan playback.Snapshot
	Cancel  func()
}

type activeTour struct {
	ctrl      *session.Controller
	location  *location.PushProvider
	narrator  ports.NarrationEngine
	route     *tour.Route
	walker    string
	reordered bool
}

// TourService owns the live tours: one session controller per walk.
type TourService struct {
	routes      tour.RouteRepository
	trips       tour.TripRepository
	publisher   EventPublisher
	leases      *lifecycle.Registry
	newNarrator NarratorFactory
	settings    EngineSettings
	logger      *zap.Logger

	mu       sync.RWMutex
	tours    map[uuid.UUID]*activeTour
	closing  bool // no new tours
	draining bool // trips are written inline, wg is being waited on

	// background trip writes and event publishes
	wg sync.WaitGroup
}

// NewTourService creates a new TourService. publisher and newNarrator may be nil.
func NewTourService(
	routes tour.RouteRepository,
	trips tour.TripRepository,
	publisher EventPublisher,
	leases *lifecycle.Registry,
	newNarrator NarratorFactory,
	settings EngineSettings,
	logger *zap.Logger,
) *TourService {
	if newNarrator == nil {
		newNarrator = func() ports.NarrationEngine { return nil }
	}
	return &TourService{
		routes:      routes,
		trips:       trips,
		publisher:   publisher,
		leases:      leases,
		newNarrator: newNarrator,
		settings:    settings,
		logger:      logger,
		tours:       make(map[uuid.UUID]*activeTour),
	}
}

// StartTour starts a new walking session on a stored route.
func (s *TourService) StartTour(ctx context.Context, req StartTourRequest) (*TourDTO, error) {
	if s.isClosing() {
		return nil, tour.Conflict(ErrShuttingDown)
	}
	route, err := s.routes.FindByID(ctx, req.RouteID)
	if err != nil {
		return nil, err
	}

	stops := route.Stops
	reordered := false
	if req.StartFrom != nil {
		if !req.StartFrom.Valid() {
			return nil, tour.NewValidationError(fmt.Sprintf("invalid start position %s", *req.StartFrom))
		}
		stops, reordered = tour.NearestStopReorder(stops, *req.StartFrom)
	}

	id := uuid.New()
	permitted := req.LocationPermitted == nil || *req.LocationPermitted
	provider := location.NewPushProvider(permitted, 0)

	deps := session.Deps{
		Location: provider,
		Monitor:  s.newMonitor(provider),
		Narrator: s.newNarrator(),
		Notifier: &stopNotifier{svc: s, sessionID: id, routeID: route.ID, walker: req.Walker},
		Logger:   s.logger,
	}
	if s.leases != nil {
		deps.Lifecycle = s.leases.For(id.String())
	}
	ctrl := session.NewController(deps, session.Options{
		SessionID:       id,
		RouteName:       route.Name,
		Locale:          lo.CoalesceOrEmpty(route.Locale, s.settings.Locale),
		QueueStartDelay: s.settings.QueueStartDelay,
	})

	if err := ctrl.StartSession(stops); err != nil {
		ctrl.Close()
		return nil, err
	}

	t := &activeTour{ctrl: ctrl, location: provider, narrator: deps.Narrator, route: route, walker: req.Walker, reordered: reordered}
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		// Shutdown has already collected its tour ids and would never end this one.
		ctrl.EndSession()
		ctrl.Close()
		return nil, tour.Conflict(ErrShuttingDown)
	}
	s.tours[ctrl.ID()] = t
	s.mu.Unlock()

	s.logger.Info("tour started",
		zap.String("session_id", ctrl.ID().String()),
		zap.String("route", route.Slug),
		zap.String("walker", req.Walker),
		zap.Bool("reordered", reordered),
	)
	dto := toTourDTO(t, ctrl.Snapshot(), ctrl.Queue().Snapshot())
	return &dto, nil
}

func (s *TourService) isClosing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closing
}

func (s *TourService) newMonitor(provider *location.PushProvider) proximity.Monitor {
	logger := s.logger.Named("proximity")
	if s.settings.MaxRegions > 0 {
		return proximity.NewRegionMonitor(geofence.NewBackend(s.settings.MaxRegions), provider, logger)
	}
	return proximity.NewPollingMonitor(provider, logger)
}

func (s *TourService) get(id uuid.UUID) (*activeTour, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tours[id]
	if !ok {
		return nil, tour.NewNotFoundError("Tour", id.String())
	}
	return t, nil
}

// GetTour returns the live state of a tour.
func (s *TourService) GetTour(id uuid.UUID) (*TourDTO, error) {
	t, err := s.get(id)
	if err != nil {
		return nil, err
	}
	dto := toTourDTO(t, t.ctrl.Snapshot(), t.ctrl.Queue().Snapshot())
	return &dto, nil
}

// ActiveTours lists live tours.
func (s *TourService) ActiveTours() []TourDTO {
	s.mu.RLock()
	tours := lo.Values(s.tours)
	s.mu.RUnlock()

	return lo.Map(tours, func(t *activeTour, _ int) TourDTO {
		return toTourDTO(t, t.ctrl.Snapshot(), t.ctrl.Queue().Snapshot())
	})
}

// ActiveLeases lists held foreground tracking leases.
func (s *TourService) ActiveLeases() []lifecycle.Lease {
	if s.leases == nil {
		return nil
	}
	return s.leases.Active()
}

// PushLocation feeds a location fix to a tour.
func (s *TourService) PushLocation(id uuid.UUID, pos tour.Position) error {
	t, err := s.get(id)
	if err != nil {
		return err
	}
	if pos.RecordedAt.IsZero() {
		pos.RecordedAt = time.Now().UTC()
	}
	switch err := t.location.Push(pos); {
	case err == nil:
		return nil
	case errors.Is(err, location.ErrInvalidPosition):
		return tour.NewValidationError(fmt.Sprintf("invalid position %s", pos))
	case errors.Is(err, location.ErrNotTracking):
		return tour.NewConflictError("location tracking is not running for this tour")
	default:
		return err
	}
}

// MarkVisited records a stop as reached without proximity. It reports
// whether the visit was new.
func (s *TourService) MarkVisited(id uuid.UUID, stopID string) (bool, error) {
	t, err := s.get(id)
	if err != nil {
		return false, err
	}
	if _, known := lo.Find(t.route.Stops, func(st tour.Stop) bool { return st.ID == stopID }); !known {
		return false, tour.NewNotFoundError("Stop", stopID)
	}
	return t.ctrl.MarkVisited(stopID), nil
}

// UpdateDevice applies a permission or narration availability change reported
// by the device. A revoked permission stops proximity triggering; a narrator
// that goes away puts the queue in degraded mode until it returns.
func (s *TourService) UpdateDevice(id uuid.UUID, req DeviceStateRequest) (*TourDTO, error) {
	t, err := s.get(id)
	if err != nil {
		return nil, err
	}
	var narrator availabilitySwitch
	if req.NarrationAvailable != nil {
		sw, ok := t.narrator.(availabilitySwitch)
		if !ok {
			return nil, tour.NewValidationError("narration availability cannot be changed for this tour")
		}
		narrator = sw
	}

	if req.LocationPermitted != nil {
		t.location.SetPermission(*req.LocationPermitted)
	}
	if narrator != nil {
		narrator.SetAvailable(*req.NarrationAvailable)
	}
	t.ctrl.RefreshCapabilities()

	s.logger.Info("device state updated",
		zap.String("session_id", id.String()),
		zap.Bool("location_permitted", t.ctrl.LocationPermitted()),
		zap.Bool("narration_degraded", t.ctrl.Queue().Degraded()),
	)
	dto := toTourDTO(t, t.ctrl.Snapshot(), t.ctrl.Queue().Snapshot())
	return &dto, nil
}

// Playback applies a narration queue command. It reports whether the
// command changed anything.
func (s *TourService) Playback(id uuid.UUID, action PlaybackAction) (bool, error) {
	t, err := s.get(id)
	if err != nil {
		return false, err
	}
	switch action {
	case PlaybackPause:
		return t.ctrl.Pause(), nil
	case PlaybackResume:
		return t.ctrl.Resume(), nil
	case PlaybackStop:
		return t.ctrl.Stop(), nil
	case PlaybackSkip:
		return t.ctrl.SkipToNext(), nil
	case PlaybackClear:
		return t.ctrl.ClearQueue(), nil
	default:
		return false, tour.NewValidationError(fmt.Sprintf("unknown playback action: %s", action))
	}
}

// Watch subscribes to a tour's session and queue snapshots. Both streams
// close when the tour ends.
func (s *TourService) Watch(id uuid.UUID) (*TourWatch, error) {
	t, err := s.get(id)
	if err != nil {
		return nil, err
	}
	sessions, cancelSession := t.ctrl.Subscribe()
	queue, cancelQueue := t.ctrl.Queue().Subscribe()
	return &TourWatch{
		Session: sessions,
		Queue:   queue,
		Cancel: func() {
			cancelSession()
			cancelQueue()
		},
	}, nil
}

// EndTour ends a tour and records its trip in the background.
func (s *TourService) EndTour(id uuid.UUID) (*TourDTO, error) {
	s.mu.Lock()
	t, ok := s.tours[id]
	delete(s.tours, id)
	s.mu.Unlock()
	if !ok {
		return nil, tour.NewNotFoundError("Tour", id.String())
	}

	t.ctrl.EndSession()
	snap := t.ctrl.Snapshot()
	s.recordTrip(t, snap)

	s.logger.Info("tour ended",
		zap.String("session_id", id.String()),
		zap.Int("visited", snap.VisitedCount),
		zap.Int("total", snap.TotalStops),
	)
	dto := toTourDTO(t, snap, t.ctrl.Queue().Snapshot())
	return &dto, nil
}

func (s *TourService) recordTrip(t *activeTour, snap session.Snapshot) {
	if snap.StartedAt == nil || snap.EndedAt == nil {
		return
	}
	trip, err := tour.NewTrip(snap.SessionID, t.route.ID, t.walker, snap.VisitedStopIDs, snap.TotalStops, *snap.StartedAt, *snap.EndedAt)
	if err != nil {
		s.logger.Error("failed to build trip", zap.String("session_id", snap.SessionID.String()), zap.Error(err))
		return
	}

	// wg.Add must not race with the Wait in Shutdown, so once draining has
	// started the trip is written on the caller's goroutine.
	s.mu.Lock()
	inline := s.draining
	if !inline {
		s.wg.Add(1)
	}
	s.mu.Unlock()

	if inline {
		s.saveTrip(trip)
		return
	}
	go func() {
		defer s.wg.Done()
		s.saveTrip(trip)
	}()
}

func (s *TourService) saveTrip(trip *tour.Trip) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.trips.Save(ctx, trip); err != nil {
		s.logger.Error("failed to save trip", zap.String("trip_id", trip.ID().String()), zap.Error(err))
		return
	}
	if s.publisher != nil {
		if err := s.publisher.PublishTripCompleted(ctx, trip); err != nil {
			s.logger.Warn("failed to publish trip completed", zap.Error(err))
		}
	}
}

// ListTrips returns one page of recorded trips, optionally for one walker.
func (s *TourService) ListTrips(ctx context.Context, walker string, page, limit int) (*PaginatedResult[TripDTO], error) {
	var (
		trips []*tour.Trip
		total int64
		err   error
	)
	if walker != "" {
		trips, total, err = s.trips.ListByWalker(ctx, walker, page, limit)
	} else {
		trips, total, err = s.trips.ListAll(ctx, page, limit)
	}
	if err != nil {
		return nil, err
	}
	return NewPaginatedResult(lo.Map(trips, func(t *tour.Trip, _ int) TripDTO { return toTripDTO(t) }), total, page, limit), nil
}

// GetTrip returns one recorded trip.
func (s *TourService) GetTrip(ctx context.Context, id uuid.UUID) (*TripDTO, error) {
	trip, err := s.trips.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	dto := toTripDTO(trip)
	return &dto, nil
}

// Shutdown stops accepting tours, ends every live tour and waits for
// background writes or ctx.
func (s *TourService) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	s.closing = true
	ids := lo.Keys(s.tours)
	s.mu.Unlock()

	for _, id := range ids {
		if _, err := s.EndTour(id); err != nil && !tour.IsNotFound(err) {
			s.logger.Warn("failed to end tour on shutdown", zap.Error(err))
		}
	}

	s.mu.Lock()
	s.draining = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// stopNotifier forwards arrivals of one session to the EventPublisher.
type stopNotifier struct {
	svc       *TourService
	sessionID uuid.UUID
	routeID   uuid.UUID
	walker    string
}

// NotifyStopArrived runs on its own goroutine per arrival.
func (n *stopNotifier) NotifyStopArrived(stop tour.Stop) {
	if n.svc.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := n.svc.publisher.PublishStopArrived(ctx, n.sessionID, n.routeID, n.walker, stop); err != nil {
		n.svc.logger.Warn("failed to publish stop arrived",
			zap.String("session_id", n.sessionID.String()),
			zap.String("stop_id", stop.ID),
			zap.Error(err),
		)
	}
}
