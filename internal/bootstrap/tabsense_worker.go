package bootstrap

import (
	"context"
	"os"
	"sync"

	"tabsense_server/adapter/in/worker"
	"tabsense_server/config"
	"tabsense_server/pkg/logger"

	"github.com/rs/zerolog"
)

// Worker hosts the background side of the server: the refresh pool and the
// scheduler that feeds it.
type Worker struct {
	pool      *worker.RefreshPool
	scheduler *worker.RoutineRefreshScheduler
	deps      *Dependencies
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	zlog      zerolog.Logger
}

func NewWorker(cfg *config.Config) (*Worker, func(), error) {
	deps, cleanup, err := NewDependencies(cfg)
	if err != nil {
		return nil, nil, err
	}

	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	pool := worker.NewRefreshPool(
		deps.WhitelistService,
		deps.RoutineDetector,
		deps.VisitRepo,
		cfg.RoutineLookbackDays,
		worker.DefaultPoolConfig(),
		zlog,
	)

	var scheduler *worker.RoutineRefreshScheduler
	if cfg.SchedulerEnabled {
		scheduler = worker.NewRoutineRefreshScheduler(
			deps.VisitRepo,
			pool,
			deps.Cache,
			cfg.RefreshInterval,
			cfg.RefreshLockTTL,
			cfg.RefreshActiveDays,
		)
	} else {
		logger.Warn("Routine refresh scheduler disabled by config")
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Worker{
		pool:      pool,
		scheduler: scheduler,
		deps:      deps,
		ctx:       ctx,
		cancel:    cancel,
		zlog:      zlog,
	}, cleanup, nil
}

func (w *Worker) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.pool.Start()
	}()

	if w.scheduler != nil {
		w.scheduler.Start()
		w.zlog.Info().Msg("Started Routine Refresh Scheduler")
	}

	// Block until context is cancelled
	<-w.ctx.Done()
}

func (w *Worker) Stop() {
	w.cancel()

	if w.scheduler != nil {
		w.scheduler.Stop()
	}

	w.pool.Stop()
	w.wg.Wait()
}

func (w *Worker) Submit(job *worker.RefreshJob) bool {
	return w.pool.Submit(job)
}

func (w *Worker) GetMetrics() worker.PoolMetrics {
	return w.pool.GetMetrics()
}

func (w *Worker) Dependencies() *Dependencies {
	return w.deps
}
