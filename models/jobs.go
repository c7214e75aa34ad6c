package models

import (
	"time"
)

// Platform names a supported social network.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedin  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformThreads   Platform = "threads"
	PlatformMastodon  Platform = "mastodon"
	PlatformPinterest Platform = "pinterest"
)

// Platforms lists every platform with a connector, in display order.
var Platforms = []Platform{
	PlatformFacebook,
	PlatformInstagram,
	PlatformLinkedin,
	PlatformTwitter,
	PlatformThreads,
	PlatformMastodon,
	PlatformPinterest,
}

// JobStatus is the lifecycle state of a posting job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobPosting   JobStatus = "posting"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// Terminal reports whether no automatic transition leaves s.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// CancelledError is the lastError of a job cancelled by its owner.
const CancelledError = "cancelled"

// PostingResult is the outcome of one publish attempt.
type PostingResult struct {
	Success          bool      `json:"success"`
	RemoteAccountRef string    `json:"remote_account_ref,omitempty"`
	RemotePostID     string    `json:"remote_post_id,omitempty"`
	Error            string    `json:"error,omitempty"`
	Permanent        bool      `json:"permanent,omitempty"`
	RetryCount       int       `json:"retry_count"`
	PostedAt         time.Time `json:"posted_at"`
}

// PostingJob is a scheduled, retryable unit of publish work.
type PostingJob struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	PostID          string         `gorm:"column:post_id;not null;size:255;index" json:"post_id"`
	Platform        Platform       `gorm:"column:platform;not null;size:32" json:"platform"`
	AccountID       string         `gorm:"column:account_id;not null;size:36;index" json:"account_id"`
	Content         string         `gorm:"column:content;type:text" json:"content"`
	MediaReferences []string       `gorm:"column:media_references;type:text;serializer:json" json:"media_references"`
	ScheduledTime   time.Time      `gorm:"column:scheduled_time;not null;index:idx_jobs_due,priority:2" json:"scheduled_time"`
	Status          JobStatus      `gorm:"column:status;not null;size:16;index:idx_jobs_due,priority:1" json:"status"`
	RetryCount      int            `gorm:"column:retry_count;not null;default:0" json:"retry_count"`
	MaxRetries      int            `gorm:"column:max_retries;not null;default:3" json:"max_retries"`
	LastError       string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	Result          *PostingResult `gorm:"column:result;type:text;serializer:json" json:"result,omitempty"`
	PostedAt        *time.Time     `gorm:"column:posted_at" json:"posted_at,omitempty"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time      `gorm:"autoCreateTime;autoUpdateTime" json:"updated_at"`
}

// Due reports whether the job may be picked up at now.
func (j *PostingJob) Due(now time.Time) bool {
	return j.Status == JobPending && !j.ScheduledTime.After(now)
}

// PostingLog is the immutable audit record of a job's terminal outcome.
type PostingLog struct {
	ID              string         `gorm:"primaryKey;size:36" json:"id"`
	JobID           string         `gorm:"column:job_id;not null;size:36;index" json:"job_id"`
	PostID          string         `gorm:"column:post_id;not null;size:255;index" json:"post_id"`
	Platform        Platform       `gorm:"column:platform;not null;size:32" json:"platform"`
	AccountID       string         `gorm:"column:account_id;not null;size:36" json:"account_id"`
	Content         string         `gorm:"column:content;type:text" json:"content"`
	MediaReferences []string       `gorm:"column:media_references;type:text;serializer:json" json:"media_references"`
	ScheduledTime   time.Time      `gorm:"column:scheduled_time" json:"scheduled_time"`
	Status          JobStatus      `gorm:"column:status;not null;size:16" json:"status"`
	RetryCount      int            `gorm:"column:retry_count" json:"retry_count"`
	MaxRetries      int            `gorm:"column:max_retries" json:"max_retries"`
	LastError       string         `gorm:"column:last_error;type:text" json:"last_error,omitempty"`
	Result          *PostingResult `gorm:"column:result;type:text;serializer:json" json:"result,omitempty"`
	PostedAt        *time.Time     `gorm:"column:posted_at" json:"posted_at,omitempty"`
	JobCreatedAt    time.Time      `gorm:"column:job_created_at" json:"job_created_at"`
	CreatedAt       time.Time      `gorm:"autoCreateTime" json:"created_at"`
}

// NewPostingLog snapshots job into an audit record.
func NewPostingLog(id string, job *PostingJob) *PostingLog {
	media := make([]string, len(job.MediaReferences))
	copy(media, job.MediaReferences)
	var result *PostingResult
	if job.Result != nil {
		r := *job.Result
		result = &r
	}
	return &PostingLog{
		ID:              id,
		JobID:           job.ID,
		PostID:          job.PostID,
		Platform:        job.Platform,
		AccountID:       job.AccountID,
		Content:         job.Content,
		MediaReferences: media,
		ScheduledTime:   job.ScheduledTime,
		Status:          job.Status,
		RetryCount:      job.RetryCount,
		MaxRetries:      job.MaxRetries,
		LastError:       job.LastError,
		Result:          result,
		PostedAt:        job.PostedAt,
		JobCreatedAt:    job.CreatedAt,
	}
}
