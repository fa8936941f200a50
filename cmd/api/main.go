package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/wms-platform/transfer-service/docs"
	"github.com/wms-platform/transfer-service/internal/application"
	"github.com/wms-platform/transfer-service/internal/config"
	kafkaInfra "github.com/wms-platform/transfer-service/internal/infrastructure/kafka"
	"github.com/wms-platform/transfer-service/internal/infrastructure/memory"
	mongoRepo "github.com/wms-platform/transfer-service/internal/infrastructure/mongodb"
	redisRepo "github.com/wms-platform/transfer-service/internal/infrastructure/redis"
	"github.com/wms-platform/transfer-service/pkg/cloudevents"
	"github.com/wms-platform/transfer-service/pkg/contracts/openapi"
	"github.com/wms-platform/transfer-service/pkg/kafka"
	"github.com/wms-platform/transfer-service/pkg/logging"
	"github.com/wms-platform/transfer-service/pkg/metrics"
	"github.com/wms-platform/transfer-service/pkg/middleware"
	"github.com/wms-platform/transfer-service/pkg/mongodb"
	"github.com/wms-platform/transfer-service/pkg/resilience"
	"github.com/wms-platform/transfer-service/pkg/tracing"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New(logging.DefaultConfig("transfer-service")).WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	logConfig := logging.DefaultConfig(cfg.ServiceName)
	logConfig.Level = logging.ParseLevel(cfg.LogLevel)
	logConfig.Environment = cfg.Environment
	logger := logging.New(logConfig)
	logger.SetDefault()

	logger.Info("Starting transfer-service API",
		"storage", cfg.StorageBackend,
		"sessions", cfg.SessionBackend,
		"kafka", cfg.KafkaEnabled,
	)

	ctx := context.Background()

	// Initialize OpenTelemetry tracing
	tracingConfig := tracing.DefaultConfig(cfg.ServiceName)
	tracingConfig.OTLPEndpoint = cfg.OTELEndpoint
	tracingConfig.Environment = cfg.Environment
	tracingConfig.Enabled = cfg.TracingEnabled

	tracerProvider, err := tracing.Initialize(ctx, tracingConfig)
	if err != nil {
		logger.WithError(err).Error("Failed to initialize tracing")
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
				logger.WithError(err).Error("Failed to shutdown tracer")
			}
		}()
	}

	m := metrics.New(metrics.DefaultConfig(cfg.ServiceName))

	directory := memory.NewDirectory()
	deps := application.Dependencies{
		Orders:          directory,
		Containers:      directory,
		Metrics:         m,
		Logger:          logger,
		OverTransferCap: cfg.OverTransferCap,
	}
	var readiness []func(ctx context.Context) error

	switch cfg.StorageBackend {
	case config.BackendMongoDB:
		mongoConfig := mongodb.DefaultConfig()
		mongoConfig.URI = cfg.MongoURI
		mongoConfig.Database = cfg.MongoDatabase

		mongoClient, err := resilience.RetryWithResult(ctx, resilience.DefaultRetryConfig(), func() (*mongodb.Client, error) {
			return mongodb.NewClient(ctx, mongoConfig)
		})
		if err != nil {
			logger.WithError(err).Error("Failed to connect to MongoDB")
			os.Exit(1)
		}
		defer mongoClient.Close(context.Background())
		logger.Info("Connected to MongoDB", "database", mongoConfig.Database)

		deps.Slots = mongoRepo.NewSlotRepository(mongoClient.Database(), m, logger)
		deps.Designated = mongoRepo.NewDesignatedTransferRepository(mongoClient.Database(), m, logger)
		deps.Residual = mongoRepo.NewResidualTransferRepository(mongoClient.Database(), m, logger)
		readiness = append(readiness, mongoClient.HealthCheck)
	default:
		deps.Slots = memory.NewSlotRepository()
		deps.Designated = memory.NewDesignatedTransferRepository()
		deps.Residual = memory.NewResidualTransferRepository()
	}

	switch cfg.SessionBackend {
	case config.BackendRedis:
		redisClient, err := resilience.RetryWithResult(ctx, resilience.DefaultRetryConfig(), func() (*goredis.Client, error) {
			return redisRepo.Connect(ctx, cfg.RedisURL)
		})
		if err != nil {
			logger.WithError(err).Error("Failed to connect to Redis")
			os.Exit(1)
		}
		defer redisClient.Close()
		logger.Info("Connected to Redis", "ttl", cfg.SessionTTL)

		deps.Sessions = redisRepo.NewPackingSessionRepository(redisClient, cfg.SessionTTL)
		readiness = append(readiness, func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		})
	default:
		deps.Sessions = memory.NewPackingSessionRepository()
	}

	seed, err := memory.LoadSeed(cfg.SeedFile)
	if err != nil {
		logger.WithError(err).Error("Failed to load seed")
		os.Exit(1)
	}
	if err := seed.Apply(ctx, directory, deps.Slots); err != nil {
		logger.WithError(err).Error("Failed to apply seed")
		os.Exit(1)
	}
	logger.Info("Directory seeded", "zones", len(seed.Zones), "orders", len(seed.Orders), "containers", len(seed.Containers))

	if cfg.KafkaEnabled {
		kafkaConfig := kafka.DefaultConfig()
		kafkaConfig.Brokers = cfg.KafkaBrokers
		kafkaConfig.ClientID = cfg.ServiceName

		producer := kafka.NewProducer(kafkaConfig)
		defer producer.Close()
		instrumented := kafka.NewInstrumentedProducer(producer, m, logger)
		eventFactory := cloudevents.NewEventFactory(cloudevents.SourceTransfer)

		breaker := resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("amr-dispatch"), logger.Logger, m)
		deps.Publisher = kafkaInfra.NewEventPublisher(instrumented, eventFactory, kafka.Topics.TransferEvents)
		deps.Dispatcher = kafkaInfra.NewRobotDispatcher(instrumented, eventFactory, kafka.Topics.AMRCommands, breaker)
		logger.Info("Kafka producer initialized", "brokers", kafkaConfig.Brokers)
	} else {
		deps.Publisher = kafkaInfra.NewLogPublisher(logger)
		deps.Dispatcher = kafkaInfra.NewLogDispatcher(logger)
	}

	service := application.NewTransferService(deps)

	var contract middleware.RequestValidator
	if cfg.OpenAPIValidation {
		validator, err := openapi.NewValidator(ctx, docs.OpenAPI)
		if err != nil {
			logger.WithError(err).Error("Failed to load API document")
			os.Exit(1)
		}
		contract = validator
	}

	router := newRouter(cfg.ServiceName, service, m, logger, readiness, contract)

	srv := &http.Server{
		Addr:         cfg.ServerAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server error", "error", err)
		}
	}()
	logger.Info("Server started", "addr", cfg.ServerAddr)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server stopped")
}

// newRouter builds the gin engine with the standard middleware chain and the transfer routes.
// With a contract validator, requests are checked against the API document first.
func newRouter(
	serviceName string,
	service *application.TransferService,
	m *metrics.Metrics,
	logger *logging.Logger,
	readiness []func(ctx context.Context) error,
	contract middleware.RequestValidator,
) *gin.Engine {
	router := gin.New()

	middleware.Setup(router, middleware.DefaultConfig(serviceName, logger.Logger))
	router.Use(middleware.MetricsMiddleware(m))
	router.Use(middleware.TracingMiddleware(serviceName))
	if contract != nil {
		router.Use(middleware.ContractValidation(contract, logger.Logger))
	}

	router.GET("/health", middleware.HealthCheck(serviceName))
	router.GET("/ready", middleware.ReadinessCheck(serviceName, 2*time.Second, readiness...))
	router.GET("/metrics", middleware.MetricsEndpoint(m))
	router.GET("/api/v1/openapi.yaml", func(c *gin.Context) {
		c.Data(http.StatusOK, "application/yaml", docs.OpenAPI)
	})

	registerRoutes(router, service, logger)
	return router
}
