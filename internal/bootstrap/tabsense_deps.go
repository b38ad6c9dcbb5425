package bootstrap

import (
	"context"
	"time"

	"tabsense_server/adapter/out/persistence"
	"tabsense_server/config"
	"tabsense_server/core/port/out"
	"tabsense_server/core/service/ingest"
	"tabsense_server/core/service/insight"
	"tabsense_server/core/service/routine"
	"tabsense_server/infra/database"
	"tabsense_server/pkg/cache"
	"tabsense_server/pkg/logger"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *config.Config
	DB     *pgxpool.Pool
	SQLDB  *sqlx.DB
	Redis  *redis.Client
	Cache  *cache.RedisCache

	// Repositories
	VisitRepo     out.VisitRepository
	ClosureRepo   out.TabClosureRepository
	WhitelistRepo out.WhitelistRepository

	// Services
	WhitelistService *routine.WhitelistService
	RoutineDetector  *routine.Detector
	VisitService     *ingest.VisitService
	InsightService   *insight.Service
}

func NewDependencies(cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{Config: cfg}
	var cleanups []func()

	// Database (pgxpool, health checks only)
	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	deps.DB = db
	cleanups = append(cleanups, func() { db.Close() })

	// Database (sqlx for the adapters)
	logger.Debug("Connecting to database via sqlx...")
	sqlDB, err := database.NewSQLX(cfg.DatabaseURL)
	if err != nil {
		logger.Error("sqlx connection failed: %v", err)
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
		return nil, nil, err
	}
	deps.SQLDB = sqlDB
	cleanups = append(cleanups, func() { sqlDB.Close() })
	logger.Info("sqlx database connection successful")

	// Redis. The server degrades gracefully without it: whitelist lookups
	// fall through to Postgres and the refresh lock is skipped.
	redisClient, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		logger.Warn("Redis connection failed: %v", err)
	} else {
		deps.Redis = redisClient
		cleanups = append(cleanups, func() { redisClient.Close() })
		deps.Cache = cache.NewRedisCache(redisClient)
		logger.Info("Redis cache initialized")
	}

	// Repositories
	deps.VisitRepo = persistence.NewVisitRepository(sqlDB)
	deps.ClosureRepo = persistence.NewClosureRepository(sqlDB)
	deps.WhitelistRepo = persistence.NewWhitelistRepository(sqlDB)

	// Services
	deps.WhitelistService = routine.NewWhitelistService(deps.WhitelistRepo, deps.Cache, cfg.WhitelistCacheTTL)
	deps.RoutineDetector = routine.NewDetector(cfg.RoutineScoreThreshold)
	deps.VisitService = ingest.NewVisitService(deps.VisitRepo, deps.ClosureRepo)
	deps.InsightService = insight.NewService(
		deps.VisitRepo,
		deps.ClosureRepo,
		deps.WhitelistService,
		insight.Config{
			HoarderThreshold:    cfg.HoarderScoreThreshold,
			RoutineThreshold:    cfg.RoutineScoreThreshold,
			DefaultLookbackDays: int(cfg.DefaultLookbackDays),
			RoutineLookbackDays: cfg.RoutineLookbackDays,
			SessionMinTabs:      cfg.SessionMinTabs,
			SessionTimeWindow:   time.Duration(cfg.SessionWindowMinutes) * time.Minute,
			SessionMinDuration:  time.Duration(cfg.SessionMinDurationMins) * time.Minute,
		},
	)

	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}

	return deps, cleanup, nil
}

func (d *Dependencies) HealthCheck(ctx context.Context) error {
	if err := d.DB.Ping(ctx); err != nil {
		return err
	}

	if d.Redis != nil {
		if err := d.Redis.Ping(ctx).Err(); err != nil {
			return err
		}
	}

	return nil
}
