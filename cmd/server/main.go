package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/yourorg/strategy-config/internal/config"
	"github.com/yourorg/strategy-config/internal/events"
	"github.com/yourorg/strategy-config/internal/handler"
	"github.com/yourorg/strategy-config/internal/metrics"
	"github.com/yourorg/strategy-config/internal/middleware"
	"github.com/yourorg/strategy-config/internal/repository"
	"github.com/yourorg/strategy-config/internal/repository/memory"
	"github.com/yourorg/strategy-config/internal/response"
	"github.com/yourorg/strategy-config/internal/secret"
	"github.com/yourorg/strategy-config/internal/service"
	"github.com/yourorg/strategy-config/internal/validator"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v4/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// storage is the transactional backend selected by database.driver
type storage interface {
	service.Transactor
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	// Load configuration
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Set up logger
	logger, err := createLogger(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Open storage
	db, stores, logs, err := openStorage(cfg.Database, logger)
	if err != nil {
		logger.Fatal("Failed to open storage", zap.Error(err))
	}
	defer db.Close()

	box, err := secret.NewBox(cfg.Secrets.Passphrase)
	if err != nil {
		logger.Fatal("Failed to create secret box", zap.Error(err))
	}

	// Initialize event publisher
	var publisher service.Publisher = events.Discard{}
	if cfg.Kafka.Enabled {
		producer := events.NewProducer(
			cfg.Kafka.BrokerList(),
			cfg.Kafka.ClientID,
			cfg.Kafka.Topics.StrategyEvents,
			cfg.Kafka.Retries,
			logger,
		)
		defer producer.Close()
		publisher = producer
	}

	// Initialize services
	v := validator.New()
	processor := service.NewBatchProcessor(db, publisher, metrics.NewBatch(prometheus.DefaultRegisterer), logger)
	resources := service.NewResources(processor, stores, response.NewAssembler(v, logger), box, logger)

	if cfg.Retention.Enabled {
		retention := service.NewRetention(db, logs, cfg.Retention.MaxAge, cfg.Retention.Timeout, logger)
		if err := retention.Schedule(cfg.Retention.Schedule); err != nil {
			logger.Fatal("Invalid retention schedule", zap.String("schedule", cfg.Retention.Schedule), zap.Error(err))
		}
		retention.Start()
		defer retention.Stop()
	}

	// Set up Redis for the response cache and the write limit
	var redisClient *redis.Client
	if cfg.Cache.Enabled || cfg.RateLimit.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(context.Background()).Err(); err != nil {
			logger.Warn("Redis not reachable yet", zap.String("addr", cfg.Redis.Addr()), zap.Error(err))
		}
		defer redisClient.Close()
	}

	// Set up HTTP server with Gin
	gin.SetMode(cfg.Server.Mode)
	router := setupRouter(cfg, db, resources, v, redisClient, logger)

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start the server in a goroutine
	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port), zap.String("driver", cfg.Database.Driver))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited properly")
}

func createLogger(level, format string) (*zap.Logger, error) {
	// Parse log level
	var zapLevel zap.AtomicLevel
	switch level {
	case "debug":
		zapLevel = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "warn":
		zapLevel = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		zapLevel = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		zapLevel = zap.NewAtomicLevelAt(zap.InfoLevel)
	}

	if format != "console" {
		format = "json"
	}

	config := zap.Config{
		Level:            zapLevel,
		Development:      false,
		Encoding:         format,
		EncoderConfig:    zap.NewProductionEncoderConfig(),
		OutputPaths:      []string{"stdout"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

// openStorage connects the configured backend and returns its stores
func openStorage(cfg config.DatabaseConfig, logger *zap.Logger) (storage, service.Stores, service.Pruner, error) {
	if cfg.Driver == "memory" {
		logger.Warn("Using in-memory storage, data is lost on restart")
		b := memory.NewBackend(logger)
		return b.DB, service.Stores{
			Strategies:      b.Strategies,
			StrategySymbols: b.StrategySymbols,
			Symbols:         b.Symbols,
			Schemes:         b.Schemes,
			SchemeSymbols:   b.SchemeSymbols,
			Orders:          b.Orders,
			Positions:       b.Positions,
			StrategyLogs:    b.StrategyLogs,
			StrategyValues:  b.StrategyValues,
		}, b.StrategyLogs, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	db, err := repository.Connect(ctx, cfg, logger)
	if err != nil {
		return nil, service.Stores{}, nil, err
	}

	logs := repository.NewStrategyLogRepository(logger)
	return db, service.Stores{
		Strategies:      repository.NewStrategyRepository(logger),
		StrategySymbols: repository.NewStrategySymbols(logger),
		Symbols:         repository.NewSymbolRepository(logger),
		Schemes:         repository.NewSchemeRepository(logger),
		SchemeSymbols:   repository.NewSchemeSymbols(logger),
		Orders:          repository.NewOrderRepository(logger),
		Positions:       repository.NewPositionRepository(logger),
		StrategyLogs:    logs,
		StrategyValues:  repository.NewStrategyValueRepository(logger),
	}, logs, nil
}

func setupRouter(
	cfg *config.Config,
	db storage,
	resources *service.Resources,
	v *validator.Validator,
	redisClient *redis.Client,
	logger *zap.Logger,
) *gin.Engine {
	router := gin.New()

	// Use middlewares
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	// Health check
	router.GET("/health", func(c *gin.Context) {
		if err := db.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "message": "database unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")

	var mutate []gin.HandlerFunc
	if cfg.Auth.Enabled {
		mutate = append(mutate, middleware.AuthMiddleware(cfg.Auth.JWTSecret, logger))
	}
	if cfg.RateLimit.Enabled {
		mutate = append(mutate, middleware.RateLimit(redisClient, middleware.RateLimitConfig{
			WritesPerMinute: cfg.RateLimit.WritesPerMinute,
			Prefix:          cfg.Cache.Prefix + "-ratelimit",
		}, logger))
	}
	if cfg.Cache.Enabled {
		v1.Use(middleware.RedisCache(redisClient, middleware.CacheConfig{TTL: cfg.Cache.TTL, Prefix: cfg.Cache.Prefix}, logger))
		mutate = append(mutate, middleware.InvalidateCache(redisClient, cfg.Cache.Prefix, logger))
	}

	handler.RegisterRoutes(v1, resources, v, logger, mutate...)

	if cfg.Auth.ServiceKey != "" {
		internal := router.Group("/api/v1/internal", middleware.ServiceAuthMiddleware(cfg.Auth.ServiceKey, logger))
		internal.GET("/sea-dog-discount-schemes/:id/credentials",
			handler.NewCredentialsHandler(resources.Credentials, logger).GetCredentials)
	}

	return router
}
