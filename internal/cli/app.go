package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/estivenmendezr98/TAREAS/internal/cache"
	"github.com/estivenmendezr98/TAREAS/internal/config"
	"github.com/estivenmendezr98/TAREAS/internal/database"
	"github.com/estivenmendezr98/TAREAS/internal/handlers"
	"github.com/estivenmendezr98/TAREAS/internal/lifecycle"
	"github.com/estivenmendezr98/TAREAS/internal/logger"
	"github.com/estivenmendezr98/TAREAS/internal/middleware"
	"github.com/estivenmendezr98/TAREAS/internal/monitoring"
	"github.com/estivenmendezr98/TAREAS/internal/services"
	"github.com/estivenmendezr98/TAREAS/internal/storage"
	"github.com/estivenmendezr98/TAREAS/internal/sweeper"
	"github.com/estivenmendezr98/TAREAS/internal/worker"

	"github.com/gin-gonic/gin"
)

// categoryL1TTL bounds how stale another replica's category list can be.
const categoryL1TTL = time.Minute

// App holds every long-lived component of a running instance.
type App struct {
	Config   *config.Config
	Log      *logger.Logger
	Pool     *database.DatabasePool
	Redis    *cache.RedisCache
	Store    *storage.DiskStore
	Engine   *lifecycle.Engine
	Worker   *worker.Worker
	Sweeper  *sweeper.Sweeper
	Registry *monitoring.Registry
	Limiter  *middleware.RateLimiter
	Router   *gin.Engine

	stopLimiter chan struct{}
	started     bool
}

// openDatabase connects, migrates and seeds the administrator account.
func openDatabase(cfg *config.Config, log *logger.Logger) (*database.DatabasePool, error) {
	pool, err := database.NewDatabasePool(database.PoolConfigFrom(cfg))
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(pool.DB); err != nil {
		pool.Close()
		return nil, err
	}
	seeded, err := database.SeedAdmin(pool.DB, cfg.Admin.Username, cfg.Admin.Password, cfg.Auth.BCryptCost)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to seed admin user: %w", err)
	}
	if seeded {
		log.Info("admin user created", logger.F("username", cfg.Admin.Username))
	}
	return pool, nil
}

// connectRedis returns nil when Redis is not configured. An unreachable
// server is only a warning: the breaker and the inline fallbacks cover it.
func connectRedis(ctx context.Context, cfg *config.Config, log *logger.Logger) *cache.RedisCache {
	if !cfg.RedisEnabled() {
		log.Info("redis not configured, running single-instance mode")
		return nil
	}
	rc := cache.NewRedisCache(cache.CacheConfigFrom(cfg))
	if err := rc.Ping(ctx); err != nil {
		log.Warn("redis unreachable at startup", logger.Err(err), logger.F("addr", cfg.GetRedisAddr()))
	}
	return rc
}

// NewApp builds the full component graph without starting anything.
func NewApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	if log == nil {
		log = logger.Default()
	}

	pool, err := openDatabase(cfg, log)
	if err != nil {
		return nil, err
	}

	store, err := storage.NewDiskStoreFrom(cfg)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open upload directory: %w", err)
	}

	app := &App{
		Config:   cfg,
		Log:      log,
		Pool:     pool,
		Redis:    connectRedis(ctx, cfg, log),
		Store:    store,
		Registry: monitoring.NewRegistry(),
	}

	var remover lifecycle.FileRemover = store
	if app.Redis != nil {
		client := app.Redis.Client()
		queue := worker.NewJobQueue(client, cfg.Worker.Queue, cfg.Worker.MaxTries)
		remover = worker.NewQueueRemover(queue, store, log.With(logger.F("component", "cleanup")))

		wcfg := worker.WorkerConfigFrom(cfg, client)
		wcfg.Logger = log
		app.Worker = worker.NewWorker(wcfg)
		app.Worker.RegisterHandler(worker.JobTypeEvidenceCleanup, worker.EvidenceCleanupHandler(store))
	}

	app.Engine = lifecycle.NewEngine(pool.DB,
		lifecycle.WithFileRemover(remover),
		lifecycle.WithLogger(log.With(logger.F("component", "lifecycle"))),
	)

	sweepOpts := []sweeper.Option{
		sweeper.WithReporter(app.Registry),
		sweeper.WithLogger(log),
	}
	if app.Redis != nil {
		sweepOpts = append(sweepOpts, sweeper.WithLocker(app.Redis))
	}
	app.Sweeper = sweeper.New(app.Engine, sweeper.ConfigFrom(cfg), sweepOpts...)

	app.Registry.RegisterHealthCheck("database", pool)
	app.Registry.RegisterStats("database", func() interface{} { return pool.Stats() })
	if app.Redis != nil {
		app.Registry.RegisterHealthCheck("redis", app.Redis)
		app.Registry.RegisterStats("redis", func() interface{} { return app.Redis.Stats() })
	}
	if app.Worker != nil {
		app.Registry.RegisterStats("worker", app.Worker.Stats)
	}

	categoryCache := cache.NewMultiLevelCache(app.Redis, categoryL1TTL)
	app.Registry.RegisterStats("cache", func() interface{} { return categoryCache.Stats() })

	if cfg.RateLimit.Enabled {
		app.Limiter = middleware.NewRateLimiter(cfg.RateLimit)
	}

	app.Router = handlers.NewRouter(handlers.Dependencies{
		Config:      cfg,
		DB:          pool.DB,
		Engine:      app.Engine,
		Auth:        services.NewAuthService(cfg.Auth),
		Users:       services.NewUserService(cfg.Auth.BCryptCost),
		Projects:    services.NewProjectService(),
		Tasks:       services.NewTaskService(),
		Categories:  services.NewCachedCategoryService(services.NewCategoryService(), categoryCache),
		Evidence:    services.NewEvidenceService(store, log.With(logger.F("component", "evidence"))),
		Registry:    app.Registry,
		RateLimiter: app.Limiter,
	})

	return app, nil
}

// Start launches the background loops: limiter cleanup, cleanup worker and
// expiration sweeper.
func (a *App) Start(ctx context.Context) {
	if a.started {
		return
	}
	a.started = true

	if a.Limiter != nil {
		a.stopLimiter = make(chan struct{})
		go a.Limiter.Run(a.stopLimiter)
	}
	if a.Worker != nil {
		a.Worker.Start(a.Config.Worker.Concurrency)
	}
	a.Sweeper.Start(ctx)
}

// Close stops the background loops and releases connections. A sweep in
// progress is allowed to finish first.
func (a *App) Close() error {
	if a.started {
		a.Sweeper.Stop()
		if a.Worker != nil {
			a.Worker.Stop()
		}
		if a.stopLimiter != nil {
			close(a.stopLimiter)
		}
		a.started = false
	}

	var errs []error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close redis: %w", err))
		}
	}
	if err := a.Pool.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	return errors.Join(errs...)
}
