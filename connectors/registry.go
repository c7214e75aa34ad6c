package connectors

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"golang.org/x/time/rate"

	"content-clock-publisher/config"
	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

// AuthenticationFailed is the PostingResult error when a connector rejects its credential.
const AuthenticationFailed = "Authentication failed"

type cachedConnector struct {
	conn        Connector
	fingerprint string
}

// Registry binds accounts to connectors. Connectors are built once per account and reused until
// the account's credential changes or the account is forgotten.
type Registry struct {
	cfg    config.Settings
	saver  TokenSaver
	logger *slog.Logger

	mu        sync.Mutex
	factories map[models.Platform]Factory
	cache     map[string]cachedConnector
	clients   map[models.Platform]*helpers.Client
	limiters  map[models.Platform]*rate.Limiter
}

// NewRegistry builds a registry with every built-in connector registered.
func NewRegistry(cfg config.Settings, saver TokenSaver, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{
		cfg:       cfg,
		saver:     saver,
		logger:    logger,
		factories: map[models.Platform]Factory{},
		cache:     map[string]cachedConnector{},
		clients:   map[models.Platform]*helpers.Client{},
		limiters:  map[models.Platform]*rate.Limiter{},
	}
	r.Register(models.PlatformFacebook, NewFacebook)
	r.Register(models.PlatformInstagram, NewInstagram)
	r.Register(models.PlatformLinkedin, NewLinkedin)
	r.Register(models.PlatformTwitter, NewTwitter)
	r.Register(models.PlatformThreads, NewThreads)
	r.Register(models.PlatformMastodon, NewMastodon)
	r.Register(models.PlatformPinterest, NewPinterest)
	return r
}

// Register installs or replaces the factory of a platform and drops cached connectors for it.
func (r *Registry) Register(platform models.Platform, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[platform] = f
	for id, c := range r.cache {
		if c.conn.Platform() == platform {
			delete(r.cache, id)
		}
	}
}

// Forget drops the cached connector of an account.
func (r *Registry) Forget(accountID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.cache, accountID)
}

func fingerprint(a *models.SocialMediaAccount) string {
	expiry := ""
	if a.ExpiresAt != nil {
		expiry = a.ExpiresAt.UTC().Format(time.RFC3339Nano)
	}
	return a.AccessToken + "\x00" + a.RefreshToken + "\x00" + a.PageAccessToken + "\x00" + expiry
}

// Resolve returns the connector bound to account.
func (r *Registry) Resolve(account *models.SocialMediaAccount) (Connector, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	fp := fingerprint(account)
	if c, ok := r.cache[account.ID]; ok && c.fingerprint == fp && c.conn.Platform() == account.Platform {
		return c.conn, nil
	}

	factory, ok := r.factories[account.Platform]
	if !ok {
		return nil, errs.New(string(account.Platform), errs.CodeValidation, errs.WithMessage(fmt.Sprintf("unsupported platform: %q", string(account.Platform))))
	}
	conn, err := factory(account, r.options(account.Platform))
	if err != nil {
		return nil, err
	}
	locked := &lockedConnector{conn: conn}
	r.cache[account.ID] = cachedConnector{conn: locked, fingerprint: fp}
	return locked, nil
}

// lockedConnector serialises calls on a cached connector. The engine loop, the interaction
// sync and the HTTP handlers share one instance per account, and connectors rewrite their
// account tokens while exchanging or refreshing them.
type lockedConnector struct {
	mu   sync.Mutex
	conn Connector
}

func (l *lockedConnector) Platform() models.Platform {
	return l.conn.Platform()
}

func (l *lockedConnector) Authenticate(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Authenticate(ctx)
}

func (l *lockedConnector) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.Publish(ctx, content, mediaRefs)
}

func (l *lockedConnector) RefreshCredentials(ctx context.Context) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.RefreshCredentials(ctx)
}

func (l *lockedConnector) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.FetchAccountInfo(ctx)
}

func (l *lockedConnector) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.FetchInteractions(ctx, limit)
}

func (l *lockedConnector) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.conn.ReplyToInteraction(ctx, interactionID, content)
}

// options assembles the construction options of a platform; r.mu must be held.
func (r *Registry) options(platform models.Platform) Options {
	client, ok := r.clients[platform]
	if !ok {
		name := string(platform)
		var breaker circuitbreaker.CircuitBreaker[*http.Response] = helpers.NewBreaker(name, 30*time.Second, r.logger)
		client = helpers.NewClient(name, r.cfg.HTTPTimeout, breaker, r.logger)
		r.clients[platform] = client
	}
	return Options{
		Settings:  r.cfg.Platform(string(platform)),
		Client:    client,
		MediaBase: r.cfg.MediaBase,
		SaveToken: r.saver,
		Logger:    r.logger,
	}
}

func (r *Registry) limiter(platform models.Platform) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.limiters[platform]
	if !ok {
		perSecond := r.cfg.Platform(string(platform)).RateLimit
		if perSecond <= 0 {
			l = rate.NewLimiter(rate.Inf, 0)
		} else {
			burst := int(perSecond)
			if burst < 1 {
				burst = 1
			}
			l = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
		r.limiters[platform] = l
	}
	return l
}

// DispatchPublish resolves the connector, authenticates and publishes. Authentication failures
// short-circuit with AuthenticationFailed; publish is never attempted.
func (r *Registry) DispatchPublish(ctx context.Context, account *models.SocialMediaAccount, content string, mediaRefs []string) models.PostingResult {
	conn, err := r.Resolve(account)
	if err != nil {
		r.logger.Error("resolve connector failed", "account", account.ID, "platform", account.Platform, "error", err)
		return models.PostingResult{Error: err.Error(), Permanent: !errs.IsRetryable(err), PostedAt: time.Now()}
	}

	if err := conn.Authenticate(ctx); err != nil {
		r.logger.Warn("authentication failed", "account", account.ID, "platform", account.Platform, "error", err)
		return models.PostingResult{
			Error:     AuthenticationFailed,
			Permanent: errs.CodeOf(err) == errs.CodeInvalidCredential,
			PostedAt:  time.Now(),
		}
	}

	if err := r.limiter(account.Platform).Wait(ctx); err != nil {
		return models.PostingResult{Error: "rate limit wait aborted: " + err.Error(), PostedAt: time.Now()}
	}
	return conn.Publish(ctx, content, mediaRefs)
}

// TestConnection resolves the connector and authenticates only.
func (r *Registry) TestConnection(ctx context.Context, account *models.SocialMediaAccount) bool {
	conn, err := r.Resolve(account)
	if err != nil {
		return false
	}
	if err := conn.Authenticate(ctx); err != nil {
		r.logger.Info("connection test failed", "account", account.ID, "platform", account.Platform, "error", err)
		return false
	}
	return true
}
