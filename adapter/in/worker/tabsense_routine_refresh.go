package worker

import (
	"context"
	"time"

	"tabsense_server/core/port/out"
	"tabsense_server/pkg/cache"
	"tabsense_server/pkg/logger"
)

const refreshLockKey = "routine:refresh:lock"

// RoutineRefreshScheduler periodically walks recently active users and
// submits whitelist refresh jobs to the pool. A Redis lock keeps the sweep
// single-flight when multiple instances run against the same database.
type RoutineRefreshScheduler struct {
	visits        out.VisitRepository
	pool          *RefreshPool
	cache         *cache.RedisCache
	checkInterval time.Duration
	lockTTL       time.Duration
	activeDays    int
	ctx           context.Context
	cancel        context.CancelFunc
}

func NewRoutineRefreshScheduler(
	visits out.VisitRepository,
	pool *RefreshPool,
	redisCache *cache.RedisCache,
	checkInterval time.Duration,
	lockTTL time.Duration,
	activeDays int,
) *RoutineRefreshScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RoutineRefreshScheduler{
		visits:        visits,
		pool:          pool,
		cache:         redisCache,
		checkInterval: checkInterval,
		lockTTL:       lockTTL,
		activeDays:    activeDays,
		ctx:           ctx,
		cancel:        cancel,
	}
}

// Start starts the scheduler.
func (s *RoutineRefreshScheduler) Start() {
	logger.Info("[RoutineRefreshScheduler] Starting...")
	go s.run()
}

// Stop stops the scheduler.
func (s *RoutineRefreshScheduler) Stop() {
	logger.Info("[RoutineRefreshScheduler] Stopping...")
	s.cancel()
}

func (s *RoutineRefreshScheduler) run() {
	// Let the server settle before the first sweep
	time.Sleep(30 * time.Second)

	ticker := time.NewTicker(s.checkInterval)
	defer ticker.Stop()

	s.sweep()

	for {
		select {
		case <-s.ctx.Done():
			logger.Info("[RoutineRefreshScheduler] Stopped")
			return
		case <-ticker.C:
			s.sweep()
		}
	}
}

// sweep lists recently active users and enqueues one refresh job each.
func (s *RoutineRefreshScheduler) sweep() {
	ctx, cancel := context.WithTimeout(s.ctx, 5*time.Minute)
	defer cancel()

	if s.cache != nil {
		acquired, err := s.cache.AcquireLock(ctx, refreshLockKey, s.lockTTL)
		if err != nil {
			logger.Error("[RoutineRefreshScheduler] Lock acquisition failed: %v", err)
			return
		}
		if !acquired {
			logger.Debug("[RoutineRefreshScheduler] Another instance holds the refresh lock, skipping sweep")
			return
		}
		defer func() {
			if err := s.cache.ReleaseLock(ctx, refreshLockKey); err != nil {
				logger.Warn("[RoutineRefreshScheduler] Lock release failed: %v", err)
			}
		}()
	}

	since := time.Now().UTC().AddDate(0, 0, -s.activeDays)
	users, err := s.visits.ListActiveUsers(ctx, since)
	if err != nil {
		logger.Error("[RoutineRefreshScheduler] Failed to list active users: %v", err)
		return
	}

	if len(users) == 0 {
		return
	}

	logger.Info("[RoutineRefreshScheduler] Sweeping %d active users", len(users))

	submitted := 0
	for _, userID := range users {
		if s.pool.Submit(&RefreshJob{UserID: userID}) {
			submitted++
		}
	}

	logger.Info("[RoutineRefreshScheduler] Submitted %d refresh jobs", submitted)
}

// SetCheckInterval sets the check interval (for testing).
func (s *RoutineRefreshScheduler) SetCheckInterval(interval time.Duration) {
	s.checkInterval = interval
}
