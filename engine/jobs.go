package engine

import (
	"context"
	"strings"
	"time"

	"content-clock-publisher/errs"
	"content-clock-publisher/models"
	"content-clock-publisher/rules"
)

// EnqueueRequest describes a post to schedule. A zero ScheduledTime means now and a nil
// MaxRetries takes the configured default; 0 disables retries.
type EnqueueRequest struct {
	PostID          string          `json:"post_id"`
	Platform        models.Platform `json:"platform"`
	AccountID       string          `json:"account_id"`
	Content         string          `json:"content"`
	MediaReferences []string        `json:"media_references"`
	ScheduledTime   time.Time       `json:"scheduled_time"`
	MaxRetries      *int            `json:"max_retries,omitempty"`
}

// Validate checks content and media against the platform rules.
func (e *Engine) Validate(content string, platform models.Platform, media []string) rules.Result {
	return rules.Validate(content, platform, media)
}

// Enqueue stores a pending job. Violations Format cannot repair reject the request.
func (e *Engine) Enqueue(ctx context.Context, req EnqueueRequest) (string, error) {
	var missing []string
	if strings.TrimSpace(req.PostID) == "" {
		missing = append(missing, "post_id is required")
	}
	if strings.TrimSpace(req.AccountID) == "" {
		missing = append(missing, "account_id is required")
	}
	if req.MaxRetries != nil && *req.MaxRetries < 0 {
		missing = append(missing, "max_retries must not be negative")
	}
	if len(missing) > 0 {
		return "", errs.Validation(string(req.Platform), missing)
	}
	if blocking := rules.Validate(req.Content, req.Platform, req.MediaReferences).Blocking(); len(blocking) > 0 {
		return "", errs.Validation(string(req.Platform), blocking)
	}

	maxRetries := e.cfg.DefaultMaxRetries
	if req.MaxRetries != nil {
		maxRetries = *req.MaxRetries
	}
	scheduled := req.ScheduledTime
	if scheduled.IsZero() {
		scheduled = e.now()
	}
	media := req.MediaReferences
	if media == nil {
		media = []string{}
	}

	job := &models.PostingJob{
		ID:              e.newID(),
		PostID:          req.PostID,
		Platform:        req.Platform,
		AccountID:       req.AccountID,
		Content:         req.Content,
		MediaReferences: media,
		ScheduledTime:   scheduled.UTC(),
		Status:          models.JobPending,
		MaxRetries:      maxRetries,
	}
	if err := e.store.CreateJob(ctx, job); err != nil {
		return "", err
	}
	e.logger.Info("job enqueued", "job", job.ID, "platform", job.Platform, "account", job.AccountID, "scheduled", job.ScheduledTime)
	return job.ID, nil
}

// GetJob returns the job with id.
func (e *Engine) GetJob(ctx context.Context, id string) (*models.PostingJob, error) {
	return e.store.GetJob(ctx, id)
}

// Logs returns the audit records of a job.
func (e *Engine) Logs(ctx context.Context, id string) ([]*models.PostingLog, error) {
	if _, err := e.store.GetJob(ctx, id); err != nil {
		return nil, err
	}
	return e.store.ListLogs(ctx, id)
}

// Cancel fails a pending job with the error "cancelled". It does not interrupt a publish in flight.
func (e *Engine) Cancel(ctx context.Context, id string) (*models.PostingJob, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobPending {
		return nil, errs.New(string(job.Platform), errs.CodeConflict, errs.WithMessage("only pending jobs can be cancelled, job is "+string(job.Status)))
	}
	job.Status = models.JobFailed
	job.LastError = models.CancelledError
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	log := e.logger.With("job", job.ID, "platform", job.Platform, "account", job.AccountID)
	log.Info("job cancelled")
	e.finish(ctx, log, job, "cancelled")
	return job, nil
}

// Retry puts a failed job back in the queue with a fresh retry budget.
func (e *Engine) Retry(ctx context.Context, id string) (*models.PostingJob, error) {
	job, err := e.store.GetJob(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobFailed {
		return nil, errs.New(string(job.Platform), errs.CodeConflict, errs.WithMessage("only failed jobs can be retried, job is "+string(job.Status)))
	}
	job.Status = models.JobPending
	job.RetryCount = 0
	job.LastError = ""
	job.Result = nil
	job.ScheduledTime = e.now().UTC()
	if err := e.store.UpdateJob(ctx, job); err != nil {
		return nil, err
	}
	e.logger.Info("job requeued", "job", job.ID, "platform", job.Platform)
	return job, nil
}
