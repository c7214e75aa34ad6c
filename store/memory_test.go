package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func job(id, account string, status models.JobStatus, at time.Time) *models.PostingJob {
	return &models.PostingJob{ID: id, PostID: "p-" + id, Platform: models.PlatformFacebook, AccountID: account,
		Content: "x", MediaReferences: []string{"a.png"}, ScheduledTime: at, Status: status, MaxRetries: 3}
}

func TestGetPendingJobsFiltersAndOrders(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateJob(ctx, job("late", "a", models.JobPending, t0.Add(time.Minute))))
	require.NoError(t, s.CreateJob(ctx, job("second", "a", models.JobPending, t0)))
	require.NoError(t, s.CreateJob(ctx, job("first", "a", models.JobPending, t0.Add(-time.Minute))))
	require.NoError(t, s.CreateJob(ctx, job("done", "a", models.JobCompleted, t0.Add(-time.Hour))))
	require.NoError(t, s.CreateJob(ctx, job("busy", "a", models.JobPosting, t0.Add(-time.Hour))))

	jobs, err := s.GetPendingJobs(ctx, t0)
	require.NoError(t, err)

	ids := []string{}
	for _, j := range jobs {
		ids = append(ids, j.ID)
	}
	assert.Equal(t, []string{"first", "second"}, ids)
}

func TestJobsAreCopied(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	j := job("j1", "a", models.JobPending, t0)
	require.NoError(t, s.CreateJob(ctx, j))

	j.MediaReferences[0] = "changed.png"
	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, "a.png", got.MediaReferences[0])

	got.Status = models.JobFailed
	again, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.Equal(t, models.JobPending, again.Status)
}

func TestEmptyMediaStaysEmpty(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	j := job("j1", "a", models.JobPending, t0)
	j.MediaReferences = []string{}
	require.NoError(t, s.CreateJob(ctx, j))

	got, err := s.GetJob(ctx, "j1")
	require.NoError(t, err)
	assert.NotNil(t, got.MediaReferences)
	assert.Empty(t, got.MediaReferences)

	require.NoError(t, s.CreateLog(ctx, models.NewPostingLog("l1", got)))
	logs, err := s.ListLogs(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, []string{}, logs[0].MediaReferences)
}

func TestMissingRecordsAreNotFound(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, err := s.GetJob(ctx, "nope")
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	_, err = s.GetAccount(ctx, "nope")
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(s.UpdateJob(ctx, job("nope", "a", models.JobPending, t0))))
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(s.UpdateAccount(ctx, "nope", nil)))
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(s.MarkInteractionProcessed(ctx, "nope")))
}

func TestReconcilePosting(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateJob(ctx, job("stuck", "a", models.JobPosting, t0)))
	require.NoError(t, s.CreateJob(ctx, job("done", "a", models.JobCompleted, t0)))

	n, err := s.ReconcilePosting(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	stuck, _ := s.GetJob(ctx, "stuck")
	assert.Equal(t, models.JobPending, stuck.Status)
	done, _ := s.GetJob(ctx, "done")
	assert.Equal(t, models.JobCompleted, done.Status)
}

func TestUpdateAccountFields(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.SaveAccount(ctx, &models.SocialMediaAccount{ID: "acc", Platform: models.PlatformLinkedin, AccessToken: "old", IsActive: true}))
	require.NoError(t, s.SaveAccount(ctx, &models.SocialMediaAccount{ID: "off", Platform: models.PlatformLinkedin, AccessToken: "x"}))

	expiry := t0.Add(time.Hour)
	require.NoError(t, s.UpdateAccount(ctx, "acc", map[string]any{
		models.FieldAccessToken:  "new",
		models.FieldRefreshToken: "r2",
		models.FieldExpiresAt:    &expiry,
	}))

	got, err := s.GetAccount(ctx, "acc")
	require.NoError(t, err)
	assert.Equal(t, "new", got.AccessToken)
	assert.Equal(t, "r2", got.RefreshToken)
	require.NotNil(t, got.ExpiresAt)
	assert.True(t, got.ExpiresAt.Equal(expiry))

	active, err := s.ListActiveAccounts(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "acc", active[0].ID)
}

func TestCreateInteractionDedupsByRemoteID(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	first := &models.EngagementInteraction{ID: "i1", Platform: models.PlatformMastodon, RemoteID: "s77", Content: "hi"}
	dup := &models.EngagementInteraction{ID: "i2", Platform: models.PlatformMastodon, RemoteID: "s77", Content: "hi"}
	other := &models.EngagementInteraction{ID: "i3", Platform: models.PlatformThreads, RemoteID: "s77", Content: "hi"}

	created, err := s.CreateInteraction(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = s.CreateInteraction(ctx, dup)
	require.NoError(t, err)
	assert.False(t, created)
	created, err = s.CreateInteraction(ctx, other)
	require.NoError(t, err)
	assert.True(t, created)

	require.NoError(t, s.MarkInteractionProcessed(ctx, "i1"))
	got, err := s.GetInteraction(ctx, "i1")
	require.NoError(t, err)
	assert.True(t, got.Processed)
	_, err = s.GetInteraction(ctx, "i2")
	assert.Equal(t, errs.CodeNotFound, errs.CodeOf(err))
}

func TestLogsAreListedPerJob(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	require.NoError(t, s.CreateLog(ctx, models.NewPostingLog("l1", job("j1", "a", models.JobCompleted, t0))))
	require.NoError(t, s.CreateLog(ctx, models.NewPostingLog("l2", job("j2", "a", models.JobFailed, t0))))

	logs, err := s.ListLogs(ctx, "j1")
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "l1", logs[0].ID)
	assert.Equal(t, models.JobCompleted, logs[0].Status)
}
