// Package store persists posting jobs, their audit logs, the accounts they publish with and the
// interactions fetched back from the platforms.
package store

import (
	"context"
	"time"

	"content-clock-publisher/models"
)

// Store is the persistence contract of the posting engine. Lookups of missing records return an
// errs not_found error.
type Store interface {
	// GetPendingJobs returns pending jobs with ScheduledTime <= now in schedule order.
	GetPendingJobs(ctx context.Context, now time.Time) ([]*models.PostingJob, error)
	GetJob(ctx context.Context, id string) (*models.PostingJob, error)
	CreateJob(ctx context.Context, job *models.PostingJob) error
	UpdateJob(ctx context.Context, job *models.PostingJob) error
	// ReconcilePosting moves jobs left in posting by a crashed engine back to pending.
	ReconcilePosting(ctx context.Context) (int64, error)

	CreateLog(ctx context.Context, log *models.PostingLog) error
	ListLogs(ctx context.Context, jobID string) ([]*models.PostingLog, error)

	GetAccount(ctx context.Context, id string) (*models.SocialMediaAccount, error)
	SaveAccount(ctx context.Context, account *models.SocialMediaAccount) error
	UpdateAccount(ctx context.Context, id string, fields map[string]any) error
	ListActiveAccounts(ctx context.Context) ([]*models.SocialMediaAccount, error)

	// CreateInteraction stores i unless one with the same platform and remote id exists. It
	// reports whether a row was created.
	CreateInteraction(ctx context.Context, i *models.EngagementInteraction) (bool, error)
	GetInteraction(ctx context.Context, id string) (*models.EngagementInteraction, error)
	MarkInteractionProcessed(ctx context.Context, id string) error
}
