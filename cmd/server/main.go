package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/soundwalk/service-tour/internal/adapters/lifecycle"
	"github.com/soundwalk/service-tour/internal/adapters/narration"
	"github.com/soundwalk/service-tour/internal/application"
	"github.com/soundwalk/service-tour/internal/config"
	"github.com/soundwalk/service-tour/internal/events"
	"github.com/soundwalk/service-tour/internal/handler"
	"github.com/soundwalk/service-tour/internal/platform/kafka"
	"github.com/soundwalk/service-tour/internal/platform/logger"
	"github.com/soundwalk/service-tour/internal/platform/middleware"
	"github.com/soundwalk/service-tour/internal/ports"
	"github.com/soundwalk/service-tour/internal/repository"
	"github.com/soundwalk/service-tour/internal/routeseed"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const serviceName = "service-tour"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.NewNamed(cfg.AppEnv, serviceName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting "+serviceName,
		zap.String("port", cfg.Port),
		zap.String("env", cfg.AppEnv),
	)

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DBConfig.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("failed to get database handle", zap.Error(err))
	}
	sqlDB.SetMaxOpenConns(20)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	// Run database migrations
	if err := db.AutoMigrate(&repository.RouteModel{}, &repository.StopModel{}, &repository.TripModel{}); err != nil {
		log.Fatal("failed to run auto-migration", zap.Error(err))
	}
	log.Info("database migration completed")

	// Initialize repositories
	routeRepo := repository.NewGormRouteRepository(db)
	tripRepo := repository.NewGormTripRepository(db)

	// Seed the route catalogue
	routeService := application.NewRouteService(routeRepo, log)
	if path := cfg.Engine.RouteSeedPath; path != "" {
		routes, err := routeseed.LoadFile(path, cfg.Engine.DefaultTriggerRadiusM)
		if err != nil {
			log.Fatal("failed to load route catalogue", zap.String("path", path), zap.Error(err))
		}
		if err := routeService.Seed(context.Background(), routes); err != nil {
			log.Fatal("failed to seed routes", zap.Error(err))
		}
	}

	// Initialize Kafka producer
	var publisher application.EventPublisher
	var kafkaProducer *kafka.Producer
	if cfg.KafkaConfig.Enabled {
		kafkaProducer = kafka.NewProducer(cfg.KafkaConfig.Brokers, log)
		defer func() { _ = kafkaProducer.Close() }()
		publisher = events.NewTourEventPublisher(kafkaProducer, cfg.KafkaConfig.TourTopic)
	}

	// Initialize application service
	leases := lifecycle.NewRegistry(log)
	tourService := application.NewTourService(
		routeRepo,
		tripRepo,
		publisher,
		leases,
		func() ports.NarrationEngine { return narration.NewTimedNarrator(cfg.Engine.SpeechWPM, log) },
		application.EngineSettings{
			Locale:          cfg.Engine.NarrationLocale,
			MaxRegions:      cfg.Engine.MaxRegions,
			QueueStartDelay: cfg.Engine.QueueSettleDelay,
		},
		log,
	)

	// Initialize and start location consumer in a goroutine
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.KafkaConfig.Enabled {
		groupID := cfg.KafkaConfig.GroupPrefix + "tour-service"
		locationConsumer := events.NewLocationConsumer(
			cfg.KafkaConfig.Brokers,
			groupID,
			cfg.KafkaConfig.LocationTopic,
			tourService,
			log,
		)
		defer func() { _ = locationConsumer.Close() }()

		go func() {
			log.Info("starting location consumer")
			if err := locationConsumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("location consumer error", zap.Error(err))
			}
		}()
	}

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	// Apply global middleware
	router.Use(middleware.RecoveryMiddleware(log))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggerMiddleware(log))

	// Register health check routes
	handler.NewHealthHandler(serviceName, map[string]handler.Pinger{
		"postgres": sqlDB.PingContext,
	}).RegisterRoutes(router)

	// Register routes
	handler.NewRouteHandler(routeService).RegisterRoutes(&router.RouterGroup)
	handler.NewTourHandler(tourService).RegisterRoutes(&router.RouterGroup)
	handler.NewAdminHandler(tourService).RegisterRoutes(&router.RouterGroup)

	// Create HTTP server. No write timeout: event streams stay open for a whole walk.
	srv := &http.Server{
		Addr:        cfg.Port,
		Handler:     router,
		ReadTimeout: 15 * time.Second,
		IdleTimeout: 60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("HTTP server starting", zap.String("addr", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down " + serviceName + "...")

	// Cancel the consumer context
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	// End live tours first so event streams close and trips get recorded.
	if err := tourService.Shutdown(shutdownCtx); err != nil {
		log.Error("tours did not finish recording", zap.Error(err))
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server forced shutdown", zap.Error(err))
	}

	log.Info(serviceName + " stopped")
}
