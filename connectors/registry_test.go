package connectors

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"content-clock-publisher/config"
	"content-clock-publisher/errs"
	"content-clock-publisher/models"
)

type stubConnector struct {
	base
	authErr   error
	published atomic.Int32
}

func (s *stubConnector) Authenticate(ctx context.Context) error { return s.authErr }

func (s *stubConnector) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	s.published.Add(1)
	return s.success("remote-"+content, s.account.PlatformAccountID)
}

func (s *stubConnector) RefreshCredentials(ctx context.Context) (string, error) { return "", nil }

func (s *stubConnector) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	return &models.AccountInfo{ID: s.account.PlatformAccountID, Platform: s.platform}, nil
}

func (s *stubConnector) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	return []models.EngagementInteraction{}
}

func (s *stubConnector) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	return s.replied(interactionID, "r1")
}

// stubFactory registers a stub for the platform and counts the builds.
func stubFactory(authErr error, built *[]*stubConnector) Factory {
	return func(account *models.SocialMediaAccount, opts Options) (Connector, error) {
		s := &stubConnector{base: newBase(account.Platform, account, opts), authErr: authErr}
		*built = append(*built, s)
		return s, nil
	}
}

func stubAccount() *models.SocialMediaAccount {
	return &models.SocialMediaAccount{ID: "acc-1", Platform: models.PlatformMastodon, AccessToken: "tok", PlatformAccountID: "u1", IsActive: true}
}

func TestRegistryDispatchPublish(t *testing.T) {
	var built []*stubConnector
	reg := NewRegistry(config.Default(), nil, nil)
	reg.Register(models.PlatformMastodon, stubFactory(nil, &built))

	res := reg.DispatchPublish(context.Background(), stubAccount(), "hello", nil)

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "remote-hello", res.RemotePostID)
	require.Len(t, built, 1)
	assert.EqualValues(t, 1, built[0].published.Load())
}

func TestRegistryAuthFailureShortCircuits(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		permanent bool
	}{
		{"revoked", errs.New("mastodon", errs.CodeInvalidCredential, errs.WithMessage("revoked")), true},
		{"transient", errs.New("mastodon", errs.CodeAuth, errs.WithHTTP(401)), false},
		{"network", errs.New("mastodon", errs.CodeNetwork), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var built []*stubConnector
			reg := NewRegistry(config.Default(), nil, nil)
			reg.Register(models.PlatformMastodon, stubFactory(tt.err, &built))

			res := reg.DispatchPublish(context.Background(), stubAccount(), "hello", nil)

			assert.False(t, res.Success)
			assert.Equal(t, AuthenticationFailed, res.Error)
			assert.Equal(t, tt.permanent, res.Permanent)
			assert.EqualValues(t, 0, built[0].published.Load())
		})
	}
}

func TestRegistryResolveCachesPerCredential(t *testing.T) {
	var built []*stubConnector
	reg := NewRegistry(config.Default(), nil, nil)
	reg.Register(models.PlatformMastodon, stubFactory(nil, &built))

	account := stubAccount()
	first, err := reg.Resolve(account)
	require.NoError(t, err)
	second, err := reg.Resolve(account)
	require.NoError(t, err)
	assert.Same(t, first, second)

	account.AccessToken = "rotated"
	third, err := reg.Resolve(account)
	require.NoError(t, err)
	assert.NotSame(t, first, third)

	reg.Forget(account.ID)
	fourth, err := reg.Resolve(account)
	require.NoError(t, err)
	assert.NotSame(t, third, fourth)
	assert.Len(t, built, 3)
}

func TestRegistryUnsupportedPlatform(t *testing.T) {
	reg := NewRegistry(config.Default(), nil, nil)
	account := &models.SocialMediaAccount{ID: "acc-x", Platform: "myspace", AccessToken: "tok"}

	_, err := reg.Resolve(account)
	require.Error(t, err)
	assert.Equal(t, errs.CodeValidation, errs.CodeOf(err))
	assert.Equal(t, `unsupported platform: "myspace"`, err.Error())

	res := reg.DispatchPublish(context.Background(), account, "hi", nil)
	assert.False(t, res.Success)
	assert.True(t, res.Permanent)
	assert.False(t, reg.TestConnection(context.Background(), account))
}

func TestRegistryTestConnection(t *testing.T) {
	var ok, bad []*stubConnector
	reg := NewRegistry(config.Default(), nil, nil)
	reg.Register(models.PlatformMastodon, stubFactory(nil, &ok))
	reg.Register(models.PlatformPinterest, stubFactory(errs.New("pinterest", errs.CodeAuth), &bad))

	assert.True(t, reg.TestConnection(context.Background(), stubAccount()))
	assert.False(t, reg.TestConnection(context.Background(), &models.SocialMediaAccount{ID: "acc-2", Platform: models.PlatformPinterest, AccessToken: "x"}))
	assert.EqualValues(t, 0, bad[0].published.Load())
}

func TestRegistrySharesClientPerPlatform(t *testing.T) {
	reg := NewRegistry(config.Default(), nil, nil)
	reg.mu.Lock()
	a := reg.options(models.PlatformFacebook)
	b := reg.options(models.PlatformFacebook)
	c := reg.options(models.PlatformLinkedin)
	reg.mu.Unlock()

	assert.Same(t, a.Client, b.Client)
	assert.NotSame(t, a.Client, c.Client)
	assert.NotNil(t, a.Client.Breaker)
}

func TestRegistrySharedConnectorIsSafeAcrossGoroutines(t *testing.T) {
	var exchanges atomic.Int32
	api := newFakeAPI(t, map[string]http.HandlerFunc{
		"GET /page1": func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Query().Get("fields") == "access_token" {
				exchanges.Add(1)
				writeJSON(w, 200, map[string]string{"access_token": "PAGE", "id": "page1"})
				return
			}
			writeJSON(w, 200, map[string]string{"id": "page1"})
		},
		"POST /page1/feed": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]string{"id": "page1_post"})
		},
		"GET /page1/feed": func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, 200, map[string]any{"data": []any{}})
		},
	})
	cfg := config.Default()
	cfg.Platforms["facebook"] = config.PlatformSettings{BaseURL: api.URL}
	saver := &tokenRecorder{}
	reg := NewRegistry(cfg, saver.save, nil)
	account := facebookAccount()

	conn, err := reg.Resolve(account)
	require.NoError(t, err)

	var wg sync.WaitGroup
	var published atomic.Int32
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func() {
			defer wg.Done()
			if res := reg.DispatchPublish(context.Background(), account, "hello", nil); res.Success {
				published.Add(1)
			}
		}()
		go func() {
			defer wg.Done()
			conn.FetchInteractions(context.Background(), 5)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 4, published.Load())
	assert.EqualValues(t, 1, exchanges.Load())
	assert.Len(t, saver.saved, 1)
}
