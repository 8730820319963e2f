package events

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/platform/kafka"
)

// EventProducer is the subset of kafka.Producer the publisher needs.
type EventProducer interface {
	PublishEvent(ctx context.Context, topic string, evt kafka.CloudEvent) error
}

// TourEventPublisher publishes stop and trip events to the tour topic.
type TourEventPublisher struct {
	producer EventProducer
	topic    string
}

// NewTourEventPublisher creates a TourEventPublisher. An empty topic means TopicTourEvents.
func NewTourEventPublisher(producer EventProducer, topic string) *TourEventPublisher {
	if topic == "" {
		topic = TopicTourEvents
	}
	return &TourEventPublisher{producer: producer, topic: topic}
}

// PublishStopArrived publishes a StopArrivedEvent keyed by session.
func (p *TourEventPublisher) PublishStopArrived(ctx context.Context, sessionID, routeID uuid.UUID, walker string, stop tour.Stop) error {
	return p.publish(ctx, StopArrived, sessionID, StopArrivedEvent{
		SessionID:  sessionID,
		RouteID:    routeID,
		Walker:     walker,
		StopID:     stop.ID,
		StopName:   stop.Name,
		StopOrder:  stop.Order,
		OccurredAt: time.Now().UTC(),
	})
}

// PublishTripCompleted publishes a TripCompletedEvent keyed by session.
func (p *TourEventPublisher) PublishTripCompleted(ctx context.Context, trip *tour.Trip) error {
	return p.publish(ctx, TripCompleted, trip.SessionID(), TripCompletedEvent{
		TripID:       trip.ID(),
		SessionID:    trip.SessionID(),
		RouteID:      trip.RouteID(),
		Walker:       trip.Walker(),
		VisitedCount: trip.VisitedCount(),
		TotalStops:   trip.TotalStops(),
		Completed:    trip.Completed(),
		DurationSec:  int64(trip.Duration().Seconds()),
		OccurredAt:   time.Now().UTC(),
	})
}

func (p *TourEventPublisher) publish(ctx context.Context, eventType string, sessionID uuid.UUID, data any) error {
	evt, err := kafka.NewCloudEvent(EventSource, eventType, data)
	if err != nil {
		return err
	}
	evt.Subject = sessionID.String()
	return p.producer.PublishEvent(ctx, p.topic, evt)
}
