package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

// GormStore implements Store on PostgreSQL through gorm.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore wraps an open database.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) getDB(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx)
}

func (s *GormStore) GetPendingJobs(ctx context.Context, now time.Time) ([]*models.PostingJob, error) {
	var jobs []*models.PostingJob
	err := s.getDB(ctx).
		Where("status = ? AND scheduled_time <= ?", models.JobPending, now).
		Order("scheduled_time ASC, created_at ASC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get pending jobs: %w", err)
	}
	return jobs, nil
}

func (s *GormStore) GetJob(ctx context.Context, id string) (*models.PostingJob, error) {
	var job models.PostingJob
	err := s.getDB(ctx).Where("id = ?", id).First(&job).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("", "job "+id)
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	return &job, nil
}

func (s *GormStore) CreateJob(ctx context.Context, job *models.PostingJob) error {
	if err := s.getDB(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateJob(ctx context.Context, job *models.PostingJob) error {
	res := s.getDB(ctx).Model(&models.PostingJob{}).Where("id = ?", job.ID).Select("*").Omit("created_at").Updates(job)
	if res.Error != nil {
		return fmt.Errorf("failed to update job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("", "job "+job.ID)
	}
	return nil
}

func (s *GormStore) ReconcilePosting(ctx context.Context) (int64, error) {
	res := s.getDB(ctx).Model(&models.PostingJob{}).
		Where("status = ?", models.JobPosting).
		Updates(map[string]any{"status": models.JobPending, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reconcile posting jobs: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (s *GormStore) CreateLog(ctx context.Context, log *models.PostingLog) error {
	if err := s.getDB(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to create posting log: %w", err)
	}
	return nil
}

func (s *GormStore) ListLogs(ctx context.Context, jobID string) ([]*models.PostingLog, error) {
	var logs []*models.PostingLog
	if err := s.getDB(ctx).Where("job_id = ?", jobID).Order("created_at ASC").Find(&logs).Error; err != nil {
		return nil, fmt.Errorf("failed to list posting logs: %w", err)
	}
	return logs, nil
}

func (s *GormStore) GetAccount(ctx context.Context, id string) (*models.SocialMediaAccount, error) {
	var account models.SocialMediaAccount
	err := s.getDB(ctx).Where("id = ?", id).First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("", "account "+id)
		}
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &account, nil
}

// SaveAccount inserts account or, when one with the same id exists, replaces its columns.
func (s *GormStore) SaveAccount(ctx context.Context, account *models.SocialMediaAccount) error {
	err := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		UpdateAll: true,
	}).Create(account).Error
	if err != nil {
		return fmt.Errorf("failed to save account: %w", err)
	}
	return nil
}

func (s *GormStore) UpdateAccount(ctx context.Context, id string, fields map[string]any) error {
	updates := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		updates[k] = v
	}
	updates["updated_at"] = time.Now()
	res := s.getDB(ctx).Model(&models.SocialMediaAccount{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update account: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("", "account "+id)
	}
	return nil
}

func (s *GormStore) ListActiveAccounts(ctx context.Context) ([]*models.SocialMediaAccount, error) {
	var accounts []*models.SocialMediaAccount
	if err := s.getDB(ctx).Where("is_active = ?", true).Order("created_at ASC").Find(&accounts).Error; err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

func (s *GormStore) CreateInteraction(ctx context.Context, i *models.EngagementInteraction) (bool, error) {
	res := s.getDB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "platform"}, {Name: "remote_id"}},
		DoNothing: true,
	}).Create(i)
	if res.Error != nil {
		return false, fmt.Errorf("failed to create interaction: %w", res.Error)
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) GetInteraction(ctx context.Context, id string) (*models.EngagementInteraction, error) {
	var i models.EngagementInteraction
	err := s.getDB(ctx).Where("id = ?", id).First(&i).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.NotFound("", "interaction "+id)
		}
		return nil, fmt.Errorf("failed to get interaction: %w", err)
	}
	return &i, nil
}

func (s *GormStore) MarkInteractionProcessed(ctx context.Context, id string) error {
	res := s.getDB(ctx).Model(&models.EngagementInteraction{}).Where("id = ?", id).
		Updates(map[string]any{"processed": true, "updated_at": time.Now()})
	if res.Error != nil {
		return fmt.Errorf("failed to mark interaction processed: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return errs.NotFound("", "interaction "+id)
	}
	return nil
}
