package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestJobDue(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		job  PostingJob
		want bool
	}{
		{"pending in the past", PostingJob{Status: JobPending, ScheduledTime: now.Add(-time.Minute)}, true},
		{"pending exactly now", PostingJob{Status: JobPending, ScheduledTime: now}, true},
		{"pending in the future", PostingJob{Status: JobPending, ScheduledTime: now.Add(time.Second)}, false},
		{"posting", PostingJob{Status: JobPosting, ScheduledTime: now.Add(-time.Minute)}, false},
		{"failed", PostingJob{Status: JobFailed, ScheduledTime: now.Add(-time.Minute)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.job.Due(now))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, JobCompleted.Terminal())
	assert.True(t, JobFailed.Terminal())
	assert.False(t, JobPending.Terminal())
	assert.False(t, JobPosting.Terminal())
}

func TestNewPostingLogSnapshotsJob(t *testing.T) {
	posted := time.Now()
	job := &PostingJob{
		ID:              "job-1",
		PostID:          "post-1",
		Platform:        PlatformMastodon,
		AccountID:       "acc-1",
		Content:         "hello",
		MediaReferences: []string{"a.png"},
		Status:          JobCompleted,
		RetryCount:      1,
		MaxRetries:      3,
		Result:          &PostingResult{Success: true, RemotePostID: "123"},
		PostedAt:        &posted,
	}

	entry := NewPostingLog("log-1", job)
	job.MediaReferences[0] = "changed.png"
	job.Result.RemotePostID = "changed"

	assert.Equal(t, "log-1", entry.ID)
	assert.Equal(t, "job-1", entry.JobID)
	assert.Equal(t, JobCompleted, entry.Status)
	assert.Equal(t, []string{"a.png"}, entry.MediaReferences)
	assert.Equal(t, "123", entry.Result.RemotePostID)
	assert.Equal(t, 1, entry.RetryCount)
}
