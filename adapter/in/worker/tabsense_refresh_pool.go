package worker

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"tabsense_server/core/port/out"
	"tabsense_server/core/service/routine"

	"github.com/go-pkgz/pool"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// RefreshJob is one unit of whitelist reconciliation work: re-run routine
// detection over a single user's recent history.
type RefreshJob struct {
	UserID  uuid.UUID
	Retries int
}

// PoolConfig holds refresh pool configuration.
type PoolConfig struct {
	MaxWorkers     int
	BatchSize      int
	WorkerChanSize int
	JobTimeout     time.Duration
	MaxRetries     int
}

func DefaultPoolConfig() *PoolConfig {
	return &PoolConfig{
		MaxWorkers:     4,
		BatchSize:      8,
		WorkerChanSize: 32,
		JobTimeout:     2 * time.Minute,
		MaxRetries:     3,
	}
}

// PoolMetrics holds refresh pool counters.
type PoolMetrics struct {
	JobsProcessed int64
	JobsFailed    int64
	JobsRetried   int64
	Upserts       int64
	Deactivations int64
	AvgProcessMs  int64
}

// RefreshPool runs per-user whitelist refreshes concurrently. Jobs are
// idempotent and regenerated every scheduler cycle, so jobs that exhaust
// their retries are dropped rather than parked in a dead letter queue.
type RefreshPool struct {
	whitelist    *routine.WhitelistService
	detector     *routine.Detector
	visits       out.VisitRepository
	lookbackDays int

	config *PoolConfig
	pool   *pool.WorkerGroup[*RefreshJob]

	ctx    context.Context
	cancel context.CancelFunc

	metrics *PoolMetrics
	log     zerolog.Logger

	started bool
	mu      sync.Mutex
}

type refreshWorker struct {
	pool *RefreshPool
}

// Do implements pool.Worker.
func (w *refreshWorker) Do(ctx context.Context, job *RefreshJob) error {
	return w.pool.processJob(ctx, job)
}

func NewRefreshPool(
	whitelist *routine.WhitelistService,
	detector *routine.Detector,
	visits out.VisitRepository,
	lookbackDays int,
	config *PoolConfig,
	log zerolog.Logger,
) *RefreshPool {
	if config == nil {
		config = DefaultPoolConfig()
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &RefreshPool{
		whitelist:    whitelist,
		detector:     detector,
		visits:       visits,
		lookbackDays: lookbackDays,
		config:       config,
		ctx:          ctx,
		cancel:       cancel,
		metrics:      &PoolMetrics{},
		log:          log.With().Str("component", "refresh_pool").Logger(),
	}
}

// Start starts the worker pool.
func (p *RefreshPool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return
	}

	worker := &refreshWorker{pool: p}
	p.pool = pool.New[*RefreshJob](p.config.MaxWorkers, worker).
		WithBatchSize(p.config.BatchSize).
		WithWorkerChanSize(p.config.WorkerChanSize).
		WithContinueOnError()

	if err := p.pool.Go(p.ctx); err != nil {
		p.log.Error().Err(err).Msg("failed to start refresh pool")
		return
	}

	p.started = true

	go p.metricsReporter()

	p.log.Info().
		Int("max_workers", p.config.MaxWorkers).
		Int("batch_size", p.config.BatchSize).
		Msg("refresh pool started")
}

// Stop gracefully stops the worker pool.
func (p *RefreshPool) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer closeCancel()

	if p.pool != nil {
		if err := p.pool.Close(closeCtx); err != nil {
			p.log.Warn().Err(err).Msg("error closing refresh pool")
		}
	}

	p.cancel()

	p.log.Info().
		Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
		Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
		Msg("refresh pool stopped")
}

// Submit submits a refresh job to the pool.
func (p *RefreshPool) Submit(job *RefreshJob) bool {
	p.mu.Lock()
	if !p.started || p.pool == nil {
		p.mu.Unlock()
		return false
	}
	p.mu.Unlock()

	p.pool.Submit(job)
	return true
}

func (p *RefreshPool) processJob(ctx context.Context, job *RefreshJob) error {
	start := time.Now()

	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	upserts, deactivations, err := p.whitelist.RefreshDomains(
		jobCtx, job.UserID, p.detector, p.visits, p.lookbackDays, time.Now().UTC())

	elapsed := time.Since(start).Milliseconds()
	p.updateAvgProcessTime(elapsed)

	if err != nil {
		p.log.Error().
			Err(err).
			Str("user_id", job.UserID.String()).
			Int("retries", job.Retries).
			Msg("whitelist refresh failed")

		if job.Retries < p.config.MaxRetries {
			job.Retries++
			atomic.AddInt64(&p.metrics.JobsRetried, 1)

			// Exponential backoff with jitter, prevents thundering herd
			base := time.Duration(1<<job.Retries) * time.Second
			jitter := time.Duration(rand.Intn(500)) * time.Millisecond

			time.AfterFunc(base+jitter, func() {
				p.Submit(job)
			})
		} else {
			atomic.AddInt64(&p.metrics.JobsFailed, 1)
			p.log.Warn().
				Str("user_id", job.UserID.String()).
				Msg("whitelist refresh dropped after max retries")
		}
		return err
	}

	atomic.AddInt64(&p.metrics.JobsProcessed, 1)
	atomic.AddInt64(&p.metrics.Upserts, int64(upserts))
	atomic.AddInt64(&p.metrics.Deactivations, int64(deactivations))

	p.log.Debug().
		Str("user_id", job.UserID.String()).
		Int("upserts", upserts).
		Int("deactivations", deactivations).
		Int64("elapsed_ms", elapsed).
		Msg("whitelist refresh completed")

	return nil
}

func (p *RefreshPool) updateAvgProcessTime(elapsed int64) {
	// Simple moving average
	current := atomic.LoadInt64(&p.metrics.AvgProcessMs)
	if current == 0 {
		atomic.StoreInt64(&p.metrics.AvgProcessMs, elapsed)
	} else {
		newAvg := (current*9 + elapsed) / 10
		atomic.StoreInt64(&p.metrics.AvgProcessMs, newAvg)
	}
}

func (p *RefreshPool) metricsReporter() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-p.ctx.Done():
			return
		case <-ticker.C:
			p.log.Info().
				Int64("processed", atomic.LoadInt64(&p.metrics.JobsProcessed)).
				Int64("failed", atomic.LoadInt64(&p.metrics.JobsFailed)).
				Int64("retried", atomic.LoadInt64(&p.metrics.JobsRetried)).
				Int64("upserts", atomic.LoadInt64(&p.metrics.Upserts)).
				Int64("deactivations", atomic.LoadInt64(&p.metrics.Deactivations)).
				Int64("avg_process_ms", atomic.LoadInt64(&p.metrics.AvgProcessMs)).
				Msg("refresh pool metrics")
		}
	}
}

// GetMetrics returns current pool counters.
func (p *RefreshPool) GetMetrics() PoolMetrics {
	return PoolMetrics{
		JobsProcessed: atomic.LoadInt64(&p.metrics.JobsProcessed),
		JobsFailed:    atomic.LoadInt64(&p.metrics.JobsFailed),
		JobsRetried:   atomic.LoadInt64(&p.metrics.JobsRetried),
		Upserts:       atomic.LoadInt64(&p.metrics.Upserts),
		Deactivations: atomic.LoadInt64(&p.metrics.Deactivations),
		AvgProcessMs:  atomic.LoadInt64(&p.metrics.AvgProcessMs),
	}
}

// Wait waits for all submitted jobs to complete.
func (p *RefreshPool) Wait() error {
	p.mu.Lock()
	pl := p.pool
	p.mu.Unlock()

	if pl != nil {
		return pl.Wait(p.ctx)
	}
	return nil
}
