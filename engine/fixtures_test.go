package engine

import (
	"context"
	"sync"
	"time"

	"content-clock-publisher/config"
	"content-clock-publisher/connectors"
	"content-clock-publisher/errs"
	"content-clock-publisher/models"
	"content-clock-publisher/store"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock {
	return &clock{now: time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type publishCall struct {
	AccountID string
	Content   string
	Media     []string
}

// fakeDispatcher answers publishes from a script, then with success.
type fakeDispatcher struct {
	mu        sync.Mutex
	script    []models.PostingResult
	calls     []publishCall
	conn      *fakeConnector
	connected bool
	delay     time.Duration
}

func (d *fakeDispatcher) Resolve(account *models.SocialMediaAccount) (connectors.Connector, error) {
	if d.conn == nil {
		return nil, errs.New(string(account.Platform), errs.CodeValidation, errs.WithMessage("no connector"))
	}
	return d.conn, nil
}

func (d *fakeDispatcher) DispatchPublish(ctx context.Context, account *models.SocialMediaAccount, content string, mediaRefs []string) models.PostingResult {
	if d.delay > 0 {
		time.Sleep(d.delay)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calls = append(d.calls, publishCall{AccountID: account.ID, Content: content, Media: mediaRefs})
	if len(d.script) > 0 {
		res := d.script[0]
		d.script = d.script[1:]
		return res
	}
	return models.PostingResult{Success: true, RemotePostID: "remote-" + content, PostedAt: time.Now()}
}

func (d *fakeDispatcher) TestConnection(ctx context.Context, account *models.SocialMediaAccount) bool {
	return d.connected
}

func (d *fakeDispatcher) Calls() []publishCall {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]publishCall(nil), d.calls...)
}

type fakeConnector struct {
	platform     models.Platform
	interactions []models.EngagementInteraction
	replies      []string
	replyOK      bool
}

func (c *fakeConnector) Platform() models.Platform             { return c.platform }
func (c *fakeConnector) Authenticate(ctx context.Context) error { return nil }
func (c *fakeConnector) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	return models.PostingResult{Success: true}
}
func (c *fakeConnector) RefreshCredentials(ctx context.Context) (string, error) { return "", nil }
func (c *fakeConnector) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	return &models.AccountInfo{ID: "remote-me", Name: "Me", Platform: c.platform}, nil
}
func (c *fakeConnector) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	out := append([]models.EngagementInteraction(nil), c.interactions...)
	if len(out) > limit {
		out = out[:limit]
	}
	return out
}
func (c *fakeConnector) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	c.replies = append(c.replies, interactionID)
	if !c.replyOK {
		return models.ReplyResult{InteractionID: interactionID, Error: "comment was deleted"}
	}
	return models.ReplyResult{Success: true, InteractionID: interactionID, RemoteReplyID: "reply-" + interactionID}
}

type recordingSink struct {
	mu   sync.Mutex
	logs []*models.PostingLog
}

func (s *recordingSink) Emit(ctx context.Context, log *models.PostingLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logs = append(s.logs, log)
	return nil
}

func (s *recordingSink) Close() error { return nil }

func (s *recordingSink) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}

type staticLease struct{ held bool }

func (l staticLease) Acquire(ctx context.Context) (bool, error) { return !l.held, nil }
func (l staticLease) Release(ctx context.Context) error         { return nil }

type harness struct {
	engine *Engine
	store  *store.MemoryStore
	disp   *fakeDispatcher
	clock  *clock
	sink   *recordingSink
}

func newHarness(cfg config.EngineSettings, opts ...Option) *harness {
	h := &harness{
		store: store.NewMemoryStore(),
		disp:  &fakeDispatcher{},
		clock: newClock(),
		sink:  &recordingSink{},
	}
	opts = append([]Option{WithClock(h.clock.Now), WithSink(h.sink)}, opts...)
	h.engine = New(h.store, h.disp, cfg, opts...)
	return h
}

func (h *harness) account(id string, platform models.Platform, active bool) {
	_ = h.store.SaveAccount(context.Background(), &models.SocialMediaAccount{
		ID: id, Platform: platform, AccountName: id, AccessToken: "tok", IsActive: active,
	})
}

func failure(msg string, permanent bool) models.PostingResult {
	return models.PostingResult{Error: msg, Permanent: permanent}
}
