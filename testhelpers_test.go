//go:build integration

package main_test

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/soundwalk/service-tour/internal/adapters/lifecycle"
	"github.com/soundwalk/service-tour/internal/application"
	"github.com/soundwalk/service-tour/internal/domain/tour"
	tourEvents "github.com/soundwalk/service-tour/internal/events"
	"github.com/soundwalk/service-tour/internal/platform/kafka"
	"github.com/soundwalk/service-tour/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	kafkamodule "github.com/testcontainers/testcontainers-go/modules/kafka"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// stack is the tour service wired against real containers.
type stack struct {
	DB      *gorm.DB
	Brokers []string
	Routes  *application.RouteService
	Tours   *application.TourService
	Logger  *zap.Logger
}

// startPostgres runs a throwaway PostgreSQL container and returns a migrated GORM handle.
func startPostgres(t *testing.T) *gorm.DB {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "tour",
				"POSTGRES_PASSWORD": "tour",
				"POSTGRES_DB":       "tour_it",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err, "postgres container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate postgres: %v", err)
		}
	})

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)
	dsn := fmt.Sprintf("host=%s port=%s user=tour password=tour dbname=tour_it sslmode=disable", host, port.Port())

	var db *gorm.DB
	require.Eventually(t, func() bool {
		db, err = gorm.Open(postgres.Open(dsn), &gorm.Config{})
		if err != nil {
			return false
		}
		sqlDB, err := db.DB()
		return err == nil && sqlDB.Ping() == nil
	}, 30*time.Second, time.Second, "postgres never accepted connections")

	require.NoError(t, db.AutoMigrate(&repository.RouteModel{}, &repository.StopModel{}, &repository.TripModel{}))
	return db
}

// startKafka runs a single-node KRaft broker with the tour topics created.
func startKafka(t *testing.T) []string {
	t.Helper()
	ctx := context.Background()

	container, err := kafkamodule.Run(ctx, "confluentinc/confluent-local:7.5.0")
	require.NoError(t, err, "kafka container")
	t.Cleanup(func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("terminate kafka: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	ensureTopics(t, brokers[0], tourEvents.TopicLocations, tourEvents.TopicTourEvents)
	return brokers
}

// ensureTopics creates single-partition topics through the cluster controller.
func ensureTopics(t *testing.T, broker string, topics ...string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	ctrl, err := conn.Controller()
	require.NoError(t, err)
	ctrlConn, err := kafkago.Dial("tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	require.NoError(t, err)
	defer ctrlConn.Close()

	configs := make([]kafkago.TopicConfig, 0, len(topics))
	for _, topic := range topics {
		configs = append(configs, kafkago.TopicConfig{Topic: topic, NumPartitions: 1, ReplicationFactor: 1})
	}
	require.NoError(t, ctrlConn.CreateTopics(configs...))

	// Metadata propagation is asynchronous even on one broker.
	time.Sleep(time.Second)
}

// newStack wires repositories, the event publisher and the tour service the
// way cmd/server does, minus HTTP and narration.
func newStack(t *testing.T) *stack {
	t.Helper()
	db := startPostgres(t)
	brokers := startKafka(t)
	logger, _ := zap.NewDevelopment()

	producer := kafka.NewProducer(brokers, logger)
	t.Cleanup(func() { _ = producer.Close() })

	routeRepo := repository.NewGormRouteRepository(db)
	tours := application.NewTourService(
		routeRepo,
		repository.NewGormTripRepository(db),
		tourEvents.NewTourEventPublisher(producer, tourEvents.TopicTourEvents),
		lifecycle.NewRegistry(logger),
		nil,
		application.EngineSettings{Locale: "en"},
		logger,
	)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = tours.Shutdown(ctx)
	})

	return &stack{
		DB:      db,
		Brokers: brokers,
		Routes:  application.NewRouteService(routeRepo, logger),
		Tours:   tours,
		Logger:  logger,
	}
}

// runLocationConsumer starts the tour.locations consumer and stops it at test end.
func (s *stack) runLocationConsumer(t *testing.T) {
	t.Helper()
	groupID := "it-locations-" + uuid.NewString()[:8]
	consumer := tourEvents.NewLocationConsumer(s.Brokers, groupID, tourEvents.TopicLocations, s.Tours, s.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = consumer.Start(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
		_ = consumer.Close()
	})

	// Group join and partition assignment.
	time.Sleep(3 * time.Second)
}

// equatorRoute stores three stops about 1.1 km apart along the equator.
func (s *stack) equatorRoute(t *testing.T, slug string) *tour.Route {
	t.Helper()
	route, err := tour.NewRoute(slug, "Equator Walk", "Nowhere", "", "en", []tour.Stop{
		{ID: "s1", Order: 1, Name: "First", Position: tour.Position{Lat: 0, Lon: 0.00}, Narration: "one"},
		{ID: "s2", Order: 2, Name: "Second", Position: tour.Position{Lat: 0, Lon: 0.01}, Narration: "two"},
		{ID: "s3", Order: 3, Name: "Third", Position: tour.Position{Lat: 0, Lon: 0.02}, Narration: "three"},
	})
	require.NoError(t, err)
	require.NoError(t, s.Routes.Seed(context.Background(), []*tour.Route{route}))
	return route
}

// reportFix publishes a device fix for sessionID the way a mobile client would.
func (s *stack) reportFix(t *testing.T, sessionID uuid.UUID, pos tour.Position) {
	t.Helper()
	producer := kafka.NewProducer(s.Brokers, s.Logger)
	defer func() { _ = producer.Close() }()

	evt, err := kafka.NewCloudEvent("device", tourEvents.LocationFixReported, tourEvents.LocationFixEvent{
		SessionID:  sessionID,
		Latitude:   pos.Lat,
		Longitude:  pos.Lon,
		RecordedAt: time.Now().UTC(),
	})
	require.NoError(t, err)
	evt.Subject = sessionID.String()
	require.NoError(t, producer.PublishEvent(context.Background(), tourEvents.TopicLocations, evt))
}

// awaitTrip polls until the trip row for sessionID exists.
func (s *stack) awaitTrip(t *testing.T, sessionID uuid.UUID) repository.TripModel {
	t.Helper()
	var row repository.TripModel
	require.Eventually(t, func() bool {
		return s.DB.Where("session_id = ?", sessionID).First(&row).Error == nil
	}, 15*time.Second, 200*time.Millisecond, "no trip recorded for session %s", sessionID)
	return row
}

// collect reads tour.events from the beginning with a fresh group until n
// events of eventType have been seen.
func (s *stack) collect(t *testing.T, eventType string, n int) []kafka.CloudEvent {
	t.Helper()
	consumer := kafka.NewConsumer(s.Brokers, "it-assert-"+uuid.NewString()[:8], tourEvents.TopicTourEvents, s.Logger)
	defer func() { _ = consumer.Close() }()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	var found []kafka.CloudEvent
	err := consumer.Consume(ctx, func(_ context.Context, msg kafkago.Message) error {
		evt, err := kafka.ParseCloudEvent(msg.Value)
		if err != nil || evt.Type != eventType {
			return nil
		}
		found = append(found, evt)
		if len(found) == n {
			cancel()
		}
		return nil
	})
	if len(found) < n {
		t.Fatalf("saw %d of %d %q events: %v", len(found), n, eventType, err)
	}
	return found
}
