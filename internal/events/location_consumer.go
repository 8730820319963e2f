package events

import (
	"context"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	"github.com/soundwalk/service-tour/internal/platform/kafka"
	"go.uber.org/zap"
)

// LocationSink receives fixes for a live tour.
type LocationSink interface {
	PushLocation(id uuid.UUID, pos tour.Position) error
}

// LocationConsumer feeds device location fixes from Kafka into live tours.
type LocationConsumer struct {
	consumer *kafka.Consumer
	sink     LocationSink
	logger   *zap.Logger
}

// NewLocationConsumer creates a new LocationConsumer.
func NewLocationConsumer(
	brokers []string,
	groupID string,
	topic string,
	sink LocationSink,
	logger *zap.Logger,
) *LocationConsumer {
	if topic == "" {
		topic = TopicLocations
	}
	return &LocationConsumer{
		consumer: kafka.NewConsumer(brokers, groupID, topic, logger),
		sink:     sink,
		logger:   logger,
	}
}

// Start consumes fixes until ctx is cancelled.
func (c *LocationConsumer) Start(ctx context.Context) error {
	return c.consumer.Consume(ctx, c.handleMessage)
}

// Close closes the underlying Kafka consumer.
func (c *LocationConsumer) Close() error {
	return c.consumer.Close()
}

func (c *LocationConsumer) handleMessage(_ context.Context, msg kafkago.Message) error {
	cloudEvent, err := kafka.ParseCloudEvent(msg.Value)
	if err != nil {
		c.logger.Error("failed to parse cloud event from location topic",
			zap.Error(err),
			zap.String("raw", string(msg.Value)),
		)
		return nil // Don't retry malformed messages
	}

	switch cloudEvent.Type {
	case LocationFixReported:
		return c.handleLocationFix(cloudEvent)
	default:
		c.logger.Debug("ignoring unhandled location event type",
			zap.String("type", cloudEvent.Type),
		)
		return nil
	}
}

func (c *LocationConsumer) handleLocationFix(cloudEvent kafka.CloudEvent) error {
	var evt LocationFixEvent
	if err := cloudEvent.ParseData(&evt); err != nil {
		c.logger.Error("failed to parse LocationFixEvent data", zap.Error(err))
		return nil
	}

	pos := tour.Position{
		Lat:        evt.Latitude,
		Lon:        evt.Longitude,
		AccuracyM:  evt.AccuracyM,
		RecordedAt: evt.RecordedAt,
	}
	// Fixes for tours that ended or live on another instance are dropped;
	// a location stream is worthless once replayed late.
	if err := c.sink.PushLocation(evt.SessionID, pos); err != nil {
		level := c.logger.Debug
		if !tour.IsNotFound(err) {
			level = c.logger.Warn
		}
		level("location fix not applied",
			zap.String("session_id", evt.SessionID.String()),
			zap.Error(err),
		)
	}
	return nil
}
