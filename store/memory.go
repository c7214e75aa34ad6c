package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

// MemoryStore is a process-local Store used by tests and local runs. Records are copied on the
// way in and out so callers never share state with the store.
type MemoryStore struct {
	mu           sync.RWMutex
	jobs         map[string]*models.PostingJob
	logs         []*models.PostingLog
	accounts     map[string]*models.SocialMediaAccount
	interactions map[string]*models.EngagementInteraction
	now          func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		jobs:         map[string]*models.PostingJob{},
		accounts:     map[string]*models.SocialMediaAccount{},
		interactions: map[string]*models.EngagementInteraction{},
		now:          time.Now,
	}
}

// cloneStrings copies s, keeping an empty non-nil slice empty rather than nil.
func cloneStrings(s []string) []string {
	if s == nil {
		return nil
	}
	c := make([]string, len(s))
	copy(c, s)
	return c
}

func copyJob(j *models.PostingJob) *models.PostingJob {
	c := *j
	c.MediaReferences = cloneStrings(j.MediaReferences)
	if j.Result != nil {
		r := *j.Result
		c.Result = &r
	}
	if j.PostedAt != nil {
		t := *j.PostedAt
		c.PostedAt = &t
	}
	return &c
}

func copyAccount(a *models.SocialMediaAccount) *models.SocialMediaAccount {
	c := *a
	if a.ExpiresAt != nil {
		t := *a.ExpiresAt
		c.ExpiresAt = &t
	}
	return &c
}

func (s *MemoryStore) GetPendingJobs(ctx context.Context, now time.Time) ([]*models.PostingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.PostingJob{}
	for _, j := range s.jobs {
		if j.Due(now) {
			out = append(out, copyJob(j))
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].ScheduledTime.Equal(out[b].ScheduledTime) {
			return out[a].CreatedAt.Before(out[b].CreatedAt)
		}
		return out[a].ScheduledTime.Before(out[b].ScheduledTime)
	})
	return out, nil
}

func (s *MemoryStore) GetJob(ctx context.Context, id string) (*models.PostingJob, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	j, ok := s.jobs[id]
	if !ok {
		return nil, errs.NotFound("", "job "+id)
	}
	return copyJob(j), nil
}

func (s *MemoryStore) CreateJob(ctx context.Context, job *models.PostingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.ID]; ok {
		return errs.New("", errs.CodeConflict, errs.WithMessage("job "+job.ID+" already exists"))
	}
	now := s.now()
	if job.CreatedAt.IsZero() {
		job.CreatedAt = now
	}
	job.UpdatedAt = now
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) UpdateJob(ctx context.Context, job *models.PostingJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, ok := s.jobs[job.ID]
	if !ok {
		return errs.NotFound("", "job "+job.ID)
	}
	job.CreatedAt = old.CreatedAt
	job.UpdatedAt = s.now()
	s.jobs[job.ID] = copyJob(job)
	return nil
}

func (s *MemoryStore) ReconcilePosting(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for _, j := range s.jobs {
		if j.Status == models.JobPosting {
			j.Status = models.JobPending
			j.UpdatedAt = s.now()
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) CreateLog(ctx context.Context, log *models.PostingLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	c := *log
	c.MediaReferences = cloneStrings(log.MediaReferences)
	s.logs = append(s.logs, &c)
	return nil
}

func (s *MemoryStore) ListLogs(ctx context.Context, jobID string) ([]*models.PostingLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.PostingLog{}
	for _, l := range s.logs {
		if l.JobID == jobID {
			c := *l
			c.MediaReferences = cloneStrings(l.MediaReferences)
			out = append(out, &c)
		}
	}
	return out, nil
}

func (s *MemoryStore) GetAccount(ctx context.Context, id string) (*models.SocialMediaAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, errs.NotFound("", "account "+id)
	}
	return copyAccount(a), nil
}

func (s *MemoryStore) SaveAccount(ctx context.Context, account *models.SocialMediaAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	if old, ok := s.accounts[account.ID]; ok {
		account.CreatedAt = old.CreatedAt
	} else if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = now
	s.accounts[account.ID] = copyAccount(account)
	return nil
}

func (s *MemoryStore) UpdateAccount(ctx context.Context, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errs.NotFound("", "account "+id)
	}
	for k, v := range fields {
		switch k {
		case models.FieldAccessToken:
			a.AccessToken, _ = v.(string)
		case models.FieldRefreshToken:
			a.RefreshToken, _ = v.(string)
		case models.FieldPageAccessToken:
			a.PageAccessToken, _ = v.(string)
		case models.FieldIsActive:
			a.IsActive, _ = v.(bool)
		case models.FieldExpiresAt:
			switch t := v.(type) {
			case *time.Time:
				if t == nil {
					a.ExpiresAt = nil
				} else {
					tt := *t
					a.ExpiresAt = &tt
				}
			case time.Time:
				a.ExpiresAt = &t
			case nil:
				a.ExpiresAt = nil
			}
		}
	}
	a.UpdatedAt = s.now()
	return nil
}

func (s *MemoryStore) ListActiveAccounts(ctx context.Context) ([]*models.SocialMediaAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []*models.SocialMediaAccount{}
	for _, a := range s.accounts {
		if a.IsActive {
			out = append(out, copyAccount(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *MemoryStore) CreateInteraction(ctx context.Context, i *models.EngagementInteraction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.interactions {
		if existing.Platform == i.Platform && existing.RemoteID == i.RemoteID {
			return false, nil
		}
	}
	now := s.now()
	i.CreatedAt, i.UpdatedAt = now, now
	c := *i
	s.interactions[i.ID] = &c
	return true, nil
}

func (s *MemoryStore) GetInteraction(ctx context.Context, id string) (*models.EngagementInteraction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.interactions[id]
	if !ok {
		return nil, errs.NotFound("", "interaction "+id)
	}
	c := *i
	return &c, nil
}

func (s *MemoryStore) MarkInteractionProcessed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.interactions[id]
	if !ok {
		return errs.NotFound("", "interaction "+id)
	}
	i.Processed = true
	i.UpdatedAt = s.now()
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*GormStore)(nil)
)
