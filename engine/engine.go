// Package engine runs the posting loop: it picks up due jobs, publishes them through the
// connector registry and drives each job through pending, posting, completed and failed.
package engine

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"content-clock-publisher/config"
	"content-clock-publisher/connectors"
	"content-clock-publisher/errs"
	"content-clock-publisher/models"
	"content-clock-publisher/rules"
	"content-clock-publisher/store"
)

// Dispatcher is the part of the connector registry the engine drives.
type Dispatcher interface {
	Resolve(account *models.SocialMediaAccount) (connectors.Connector, error)
	DispatchPublish(ctx context.Context, account *models.SocialMediaAccount, content string, mediaRefs []string) models.PostingResult
	TestConnection(ctx context.Context, account *models.SocialMediaAccount) bool
}

// Engine polls the store for due jobs and publishes them.
type Engine struct {
	store      store.Store
	dispatcher Dispatcher
	cfg        config.EngineSettings
	logger     *slog.Logger
	metrics    *Metrics
	sink       OutcomeSink
	lease      Lease
	now        func() time.Time
	newID      func() string
	// persist retries the write that records a published job.
	persist retrypolicy.RetryPolicy[any]

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	done    chan struct{}
}

// Option customises an Engine.
type Option func(*Engine)

func WithLogger(l *slog.Logger) Option { return func(e *Engine) { e.logger = l } }

func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

func WithSink(s OutcomeSink) Option { return func(e *Engine) { e.sink = s } }

// WithLease makes every cycle run only while holding l.
func WithLease(l Lease) Option { return func(e *Engine) { e.lease = l } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

// New builds an engine. Unset settings fall back to config.Default.
func New(st store.Store, d Dispatcher, cfg config.EngineSettings, opts ...Option) *Engine {
	def := config.Default().Engine
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.DefaultMaxRetries <= 0 {
		cfg.DefaultMaxRetries = def.DefaultMaxRetries
	}
	if len(cfg.BackoffLadder) == 0 {
		cfg.BackoffLadder = def.BackoffLadder
	}
	if cfg.InteractionLimit <= 0 {
		cfg.InteractionLimit = def.InteractionLimit
	}
	e := &Engine{
		store:      st,
		dispatcher: d,
		cfg:        cfg,
		logger:     slog.Default(),
		sink:       NoopSink(),
		now:        time.Now,
		newID:      uuid.NewString,
		persist:    newPersistRetry(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = NewMetrics(nil)
	}
	return e
}

func newPersistRetry() retrypolicy.RetryPolicy[any] {
	return retrypolicy.NewBuilder[any]().
		WithMaxRetries(4).
		WithBackoff(50*time.Millisecond, time.Second).
		AbortIf(func(_ any, err error) bool {
			return errs.CodeOf(err) == errs.CodeNotFound
		}).
		ReturnLastFailure().
		Build()
}

// Start reconciles jobs stranded in posting and launches the poll loop. Calling Start on a running
// engine does nothing.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return
	}
	e.running = true
	e.stop = make(chan struct{})
	e.done = make(chan struct{})

	if n, err := e.store.ReconcilePosting(ctx); err != nil {
		e.logger.Error("reconcile posting jobs failed", "error", err)
	} else if n > 0 {
		e.logger.Warn("reset stranded posting jobs", "count", n)
	}

	go e.loop(ctx, e.stop, e.done)
	e.logger.Info("posting engine started", "interval", e.cfg.PollInterval.String(), "concurrency", e.cfg.Concurrency)
}

// Stop prevents further polls and waits for the cycle in flight.
func (e *Engine) Stop() {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return
	}
	e.running = false
	close(e.stop)
	done := e.done
	e.mu.Unlock()

	<-done
	e.logger.Info("posting engine stopped")
}

func (e *Engine) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if _, err := e.RunOnce(ctx); err != nil {
			e.logger.Error("poll cycle failed", "error", err)
		}
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce processes every job due now and returns how many were picked up.
func (e *Engine) RunOnce(ctx context.Context) (int, error) {
	if e.lease != nil {
		ok, err := e.lease.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		if !ok {
			e.logger.Debug("lease held elsewhere, skipping cycle")
			return 0, nil
		}
		defer func() {
			if err := e.lease.Release(context.WithoutCancel(ctx)); err != nil {
				e.logger.Warn("lease release failed", "error", err)
			}
		}()
	}

	jobs, err := e.store.GetPendingJobs(ctx, e.now())
	if err != nil {
		return 0, err
	}
	e.metrics.CycleJobs.Set(float64(len(jobs)))
	if len(jobs) == 0 {
		return 0, nil
	}

	if e.cfg.Concurrency <= 1 {
		for _, job := range jobs {
			if ctx.Err() != nil {
				break
			}
			e.processJob(ctx, job)
		}
		return len(jobs), nil
	}

	p := pool.New().WithMaxGoroutines(e.cfg.Concurrency)
	for _, group := range groupByAccount(jobs) {
		p.Go(func() {
			for _, job := range group {
				if ctx.Err() != nil {
					return
				}
				e.processJob(ctx, job)
			}
		})
	}
	p.Wait()
	return len(jobs), nil
}

// groupByAccount splits jobs per account keeping schedule order inside each group and the order
// of first appearance across groups.
func groupByAccount(jobs []*models.PostingJob) [][]*models.PostingJob {
	index := map[string]int{}
	var groups [][]*models.PostingJob
	for _, job := range jobs {
		i, ok := index[job.AccountID]
		if !ok {
			i = len(groups)
			index[job.AccountID] = i
			groups = append(groups, nil)
		}
		groups[i] = append(groups[i], job)
	}
	return groups
}

func (e *Engine) processJob(ctx context.Context, job *models.PostingJob) {
	// Re-read: the job may have been cancelled since the poll.
	current, err := e.store.GetJob(ctx, job.ID)
	if err != nil {
		e.logger.Error("reload job failed", "job", job.ID, "error", err)
		return
	}
	if !current.Due(e.now()) {
		return
	}
	job = current

	log := e.logger.With("job", job.ID, "platform", job.Platform, "account", job.AccountID)
	job.Status = models.JobPosting
	if err := e.store.UpdateJob(ctx, job); err != nil {
		log.Error("mark job posting failed", "error", err)
		return
	}

	account, err := e.store.GetAccount(ctx, job.AccountID)
	if err == nil && !account.IsActive {
		err = errs.NotFound(string(job.Platform), "active account "+job.AccountID)
	}
	if err != nil {
		e.fail(ctx, log, job, models.PostingResult{Error: err.Error(), Permanent: !errs.IsRetryable(err), PostedAt: e.now()})
		return
	}
	if account.Platform != job.Platform {
		e.fail(ctx, log, job, models.PostingResult{Error: "account " + account.ID + " is not a " + string(job.Platform) + " account", Permanent: true, PostedAt: e.now()})
		return
	}

	content := rules.Format(job.Content, job.Platform)

	start := time.Now()
	result := e.dispatcher.DispatchPublish(ctx, account, content, job.MediaReferences)
	e.metrics.PublishLatency.WithLabelValues(string(job.Platform)).Observe(time.Since(start).Seconds())

	if !result.Success {
		e.fail(ctx, log, job, result)
		return
	}

	now := e.now()
	if result.PostedAt.IsZero() {
		result.PostedAt = now
	}
	result.RetryCount = job.RetryCount
	job.Status = models.JobCompleted
	job.LastError = ""
	job.Result = &result
	job.PostedAt = &now
	// The post is live: record it even if shutdown cancelled ctx, and retry transient store
	// errors so the job is not reconciled back to pending and published twice.
	persistCtx := context.WithoutCancel(ctx)
	err = failsafe.With(e.persist).WithContext(persistCtx).Run(func() error {
		return e.store.UpdateJob(persistCtx, job)
	})
	if err != nil {
		log.Error("persist completed job failed, job left in posting", "error", err,
			"remote_post_id", result.RemotePostID, "remote_account", result.RemoteAccountRef)
		if err := e.sink.Emit(persistCtx, models.NewPostingLog(e.newID(), job)); err != nil {
			log.Warn("emit outcome failed", "error", err)
		}
		return
	}
	log.Info("job published", "remote_post_id", result.RemotePostID, "retry_count", job.RetryCount)
	e.finish(ctx, log, job, "completed")
}

// backoff returns the delay before the retry that follows failure number retryCount.
func (e *Engine) backoff(retryCount int) time.Duration {
	i := retryCount - 1
	if i < 0 {
		i = 0
	}
	if i >= len(e.cfg.BackoffLadder) {
		i = len(e.cfg.BackoffLadder) - 1
	}
	return e.cfg.BackoffLadder[i]
}

func (e *Engine) fail(ctx context.Context, log *slog.Logger, job *models.PostingJob, result models.PostingResult) {
	job.RetryCount++
	result.RetryCount = job.RetryCount
	job.LastError = result.Error
	job.Result = &result

	if !result.Permanent && job.RetryCount <= job.MaxRetries {
		delay := e.backoff(job.RetryCount)
		job.Status = models.JobPending
		job.ScheduledTime = e.now().Add(delay)
		if err := e.store.UpdateJob(ctx, job); err != nil {
			log.Error("reschedule job failed", "error", err)
			return
		}
		e.metrics.JobRetries.WithLabelValues(string(job.Platform)).Inc()
		log.Warn("publish failed, retry scheduled", "error", result.Error, "retry_count", job.RetryCount, "delay", delay.String())
		return
	}

	job.Status = models.JobFailed
	if err := e.store.UpdateJob(ctx, job); err != nil {
		log.Error("persist failed job failed", "error", err)
		return
	}
	log.Error("publish failed permanently", "error", result.Error, "retry_count", job.RetryCount, "permanent", result.Permanent)
	e.finish(ctx, log, job, "failed")
}

// finish appends the terminal audit record and emits it.
func (e *Engine) finish(ctx context.Context, log *slog.Logger, job *models.PostingJob, outcome string) {
	e.metrics.JobsProcessed.WithLabelValues(string(job.Platform), outcome).Inc()
	entry := models.NewPostingLog(e.newID(), job)
	if err := e.store.CreateLog(ctx, entry); err != nil {
		log.Error("write posting log failed", "error", err)
		return
	}
	if err := e.sink.Emit(ctx, entry); err != nil {
		log.Warn("emit outcome failed", "error", err)
	}
}
