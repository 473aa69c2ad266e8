// internal/app/server.go
package app

import (
	"context"
	"fmt"
	"net/http"

	"duka-service/internal/cache"
	"duka-service/internal/config"
	"duka-service/internal/db"
	cacheH "duka-service/internal/handlers/cache"
	notifyH "duka-service/internal/handlers/notification"
	"duka-service/internal/middleware"
	"duka-service/internal/repository/postgres"
	notifyEngine "duka-service/internal/service/notification"
	"duka-service/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	httpServer *http.Server
	ttlCache   *cache.TTLCache
	redis      *redis.Client
	cancelBg   context.CancelFunc
}

func NewServer() *Server {
	cfg := config.Load()
	engine := gin.New()
	return &Server{cfg: cfg, engine: engine}
}

func (s *Server) Start() error {
	ctx := context.Background()
	bgCtx, cancel := context.WithCancel(ctx)
	s.cancelBg = cancel

	// ----- Logger -----
	logger, err := zap.NewProduction()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	s.logger = logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, s.cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}

	// ----- TTL cache -----
	ttlCache := cache.NewTTLCache()
	s.ttlCache = ttlCache

	// ----- Redis (optional invalidation bus) -----
	var bus *cache.Bus
	if s.cfg.RedisAddr != "" {
		redisClient, err := db.NewRedisClient(db.RedisConfig{
			Addr:     s.cfg.RedisAddr,
			Password: s.cfg.RedisPass,
			PoolSize: 10,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to Redis: %w", err)
		}
		s.redis = redisClient
		bus = cache.NewBus(redisClient, ttlCache, logger)
		go bus.Listen(bgCtx)
		logger.Info("cache invalidation bus enabled", zap.String("addr", s.cfg.RedisAddr))
	}

	// ----- WebSocket Hub -----
	hub := ws.NewHub(logger)
	go hub.Run(bgCtx)

	// ----- Repositories -----
	pgdb := postgres.NewDB(pool)
	notifyRepo := postgres.NewNotificationRepository(pgdb)
	orderRepo := postgres.NewOrderRepository(pgdb)
	productRepo := postgres.NewProductRepository(pgdb)

	// ----- Engine -----
	engine := notifyEngine.NewEngine(notifyRepo, orderRepo, productRepo, ttlCache, bus, hub, logger)

	// ----- Handlers -----
	notifHandler := notifyH.NewNotificationHandler(engine)
	cacheHandler := cacheH.NewCacheHandler(ttlCache, bus)

	// ----- Middlewares -----
	s.engine.Use(
		middleware.RecoveryMiddleware(logger),
		middleware.LoggingMiddleware(logger),
		middleware.CORSMiddleware(),
	)

	// ----- Router -----
	SetupRouter(s.engine, logger, &Handlers{
		NotifHandler: notifHandler,
		CacheHandler: cacheHandler,
		Hub:          hub,
		CacheAPIKey:  s.cfg.CacheAPIKey,
	})

	// ----- Start HTTP -----
	s.httpServer = &http.Server{
		Addr:    s.cfg.HTTPAddr,
		Handler: s.engine,
	}

	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains the HTTP server and releases owned resources: background
// goroutines, cache timers, redis.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.cancelBg != nil {
		s.cancelBg()
	}
	if s.ttlCache != nil {
		s.ttlCache.Close()
	}
	if s.redis != nil {
		s.redis.Close()
	}
	if s.logger != nil {
		s.logger.Sync()
	}
	return err
}
