// Package connectors holds one adapter per social platform and the registry that binds accounts
// to them.
package connectors

import (
	"context"
	"log/slog"
	"time"

	"content-clock-publisher/config"
	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

// Connector publishes to and reads engagement from one platform on behalf of one account.
//
// Publish never returns an error: every failure, including multi-step protocol failures, is
// reported through the PostingResult.
type Connector interface {
	Platform() models.Platform
	// Authenticate checks the account credential, refreshing or exchanging it when needed.
	Authenticate(ctx context.Context) error
	Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult
	// RefreshCredentials returns the new access token, or "" when the platform has no refresh.
	RefreshCredentials(ctx context.Context) (string, error)
	FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error)
	// FetchInteractions is best effort and returns an empty list on failure.
	FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction
	ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult
}

// TokenSaver persists credential fields (models.Field*) of an account.
type TokenSaver func(ctx context.Context, accountID string, fields map[string]any) error

// Options carries what a connector needs besides its account.
type Options struct {
	Settings  config.PlatformSettings
	Client    *helpers.Client
	MediaBase string
	SaveToken TokenSaver
	Logger    *slog.Logger
	Now       func() time.Time

	// MediaPoll is the wait between container status checks for video uploads.
	MediaPoll time.Duration
}

// Factory builds the connector for account.
type Factory func(account *models.SocialMediaAccount, opts Options) (Connector, error)

// base holds what every connector shares. The account is a private copy kept current with the
// tokens the connector saves.
type base struct {
	platform models.Platform
	account  models.SocialMediaAccount
	opts     Options
}

func newBase(platform models.Platform, account *models.SocialMediaAccount, opts Options) base {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Client == nil {
		opts.Client = helpers.NewClient(string(platform), 0, nil, opts.Logger)
	}
	if opts.MediaPoll <= 0 {
		opts.MediaPoll = 3 * time.Second
	}
	return base{platform: platform, account: *account, opts: opts}
}

func (b *base) Platform() models.Platform {
	return b.platform
}

func (b *base) logger() *slog.Logger {
	return b.opts.Logger.With("platform", b.platform, "account", b.account.ID)
}

func (b *base) mediaURL(ref string) string {
	return helpers.ResolveMediaURL(b.opts.MediaBase, ref)
}

// saveTokens writes fields through the TokenSaver and mirrors them on the local copy.
func (b *base) saveTokens(ctx context.Context, fields map[string]any) error {
	if b.opts.SaveToken != nil {
		if err := b.opts.SaveToken(ctx, b.account.ID, fields); err != nil {
			return err
		}
	}
	for k, v := range fields {
		switch k {
		case models.FieldAccessToken:
			b.account.AccessToken, _ = v.(string)
		case models.FieldRefreshToken:
			b.account.RefreshToken, _ = v.(string)
		case models.FieldPageAccessToken:
			b.account.PageAccessToken, _ = v.(string)
		case models.FieldExpiresAt:
			if t, ok := v.(*time.Time); ok {
				b.account.ExpiresAt = t
			}
		}
	}
	return nil
}

func (b *base) expired() bool {
	return b.account.ExpiresAt != nil && !b.account.ExpiresAt.After(b.opts.Now())
}

// refreshIfExpired runs refresh when the stored credential has passed its expiry.
func (b *base) refreshIfExpired(ctx context.Context, refresh func(context.Context) (string, error)) error {
	if !b.expired() {
		return nil
	}
	b.logger().Info("access token expired, refreshing")
	_, err := refresh(ctx)
	return err
}

func (b *base) requireToken() error {
	if b.account.AccessToken == "" {
		return errs.New(string(b.platform), errs.CodeInvalidCredential, errs.WithMessage("account has no access token"))
	}
	return nil
}

func (b *base) expiry(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := b.opts.Now().Add(time.Duration(seconds) * time.Second)
	return &t
}

func (b *base) success(remotePostID, remoteAccountRef string) models.PostingResult {
	b.logger().Info("Successfully posted", "remotePostId", remotePostID)
	return models.PostingResult{
		Success:          true,
		RemoteAccountRef: remoteAccountRef,
		RemotePostID:     remotePostID,
		PostedAt:         b.opts.Now(),
	}
}

func (b *base) failure(err error) models.PostingResult {
	b.logger().Error("Failed to post", "error", err.Error(), "code", errs.CodeOf(err))
	return models.PostingResult{
		Success:   false,
		Error:     err.Error(),
		Permanent: !errs.IsRetryable(err),
		PostedAt:  b.opts.Now(),
	}
}

func (b *base) replied(interactionID, remoteReplyID string) models.ReplyResult {
	return models.ReplyResult{
		Success:       true,
		InteractionID: interactionID,
		RemoteReplyID: remoteReplyID,
		RepliedAt:     b.opts.Now(),
	}
}

func (b *base) replyFailed(interactionID string, err error) models.ReplyResult {
	b.logger().Error("Failed to reply", "interaction", interactionID, "error", err.Error())
	return models.ReplyResult{
		Success:       false,
		InteractionID: interactionID,
		Error:         err.Error(),
		RepliedAt:     b.opts.Now(),
	}
}

func (b *base) validation(format string) *errs.E {
	return errs.New(string(b.platform), errs.CodeValidation, errs.WithMessage(format))
}

// interaction builds a fetched interaction with its sentiment filled in.
func (b *base) interaction(remoteID, remotePostID string, kind models.InteractionType, authorID, authorName, content string, at time.Time) models.EngagementInteraction {
	return models.EngagementInteraction{
		AccountID:    b.account.ID,
		Platform:     b.platform,
		RemoteID:     remoteID,
		RemotePostID: remotePostID,
		Type:         kind,
		AuthorID:     authorID,
		AuthorName:   authorName,
		Content:      content,
		Sentiment:    ClassifySentiment(content),
		OccurredAt:   at,
	}
}

// graphTime parses the timestamp format of the Graph and Threads APIs.
func graphTime(s string) time.Time {
	for _, layout := range []string{"2006-01-02T15:04:05-0700", time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// DefaultInteractionLimit applies when FetchInteractions is called with a non-positive limit.
const DefaultInteractionLimit = 25

func interactionLimit(n int) int {
	if n <= 0 {
		return DefaultInteractionLimit
	}
	return n
}
