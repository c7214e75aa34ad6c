package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"html"
	"mime/multipart"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type mastodonStatus struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Content     string `json:"content"`
	InReplyToID string `json:"in_reply_to_id"`
}

type mastodonAccount struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	Acct        string `json:"acct"`
	DisplayName string `json:"display_name"`
	Avatar      string `json:"avatar"`
}

type mastodonNotification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	CreatedAt time.Time       `json:"created_at"`
	Account   mastodonAccount `json:"account"`
	Status    *mastodonStatus `json:"status"`
}

var htmlTags = regexp.MustCompile(`<[^>]*>`)

// stripHTML turns Mastodon status HTML into plain text.
func stripHTML(s string) string {
	s = strings.NewReplacer("<br>", "\n", "<br/>", "\n", "<br />", "\n", "</p><p>", "\n\n").Replace(s)
	return strings.TrimSpace(html.UnescapeString(htmlTags.ReplaceAllString(s, "")))
}

// Mastodon posts statuses to the configured instance.
type Mastodon struct {
	base
}

// NewMastodon is the mastodon Factory.
func NewMastodon(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	return &Mastodon{base: newBase(models.PlatformMastodon, account, opts)}, nil
}

func (m *Mastodon) endpoint(path string) string {
	return m.opts.Settings.BaseURL + path
}

func (m *Mastodon) Authenticate(ctx context.Context) error {
	if err := m.requireToken(); err != nil {
		return err
	}
	_, err := helpers.MakeHTTPRequest[mastodonAccount](ctx, m.opts.Client, http.MethodGet,
		m.endpoint("/api/v1/accounts/verify_credentials"), helpers.Bearer(m.account.AccessToken), nil, nil)
	return err
}

func (m *Mastodon) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	m.logger().Info("Posting to mastodon", "media", len(mediaRefs))

	mediaIDs := []string{}
	for _, ref := range mediaRefs {
		mediaID, err := m.uploadMedia(ctx, m.mediaURL(ref))
		if err != nil {
			return m.failure(err)
		}
		mediaIDs = append(mediaIDs, mediaID)
	}

	status, err := m.postStatus(ctx, map[string]interface{}{
		"status":     content,
		"media_ids":  mediaIDs,
		"visibility": "public",
	})
	if err != nil {
		return m.failure(err)
	}
	return m.success(status.ID, m.account.PlatformAccountID)
}

func (m *Mastodon) postStatus(ctx context.Context, data map[string]interface{}) (mastodonStatus, error) {
	status, err := helpers.MakeHTTPRequest[mastodonStatus](ctx, m.opts.Client, http.MethodPost,
		m.endpoint("/api/v1/statuses"), helpers.Bearer(m.account.AccessToken), nil, data)
	if err != nil {
		return status, err
	}
	if status.ID == "" {
		return status, errs.New(string(m.platform), errs.CodePlatformAPI, errs.WithMessage("mastodon returned no status id"))
	}
	return status, nil
}

func (m *Mastodon) uploadMedia(ctx context.Context, mediaURL string) (string, error) {
	media, err := helpers.DownloadMedia(ctx, m.opts.Client, mediaURL)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", media.Filename)
	if err != nil {
		return "", err
	}
	if _, err := part.Write(media.Data); err != nil {
		return "", err
	}
	if err := writer.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.endpoint("/api/v1/media"), &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+m.account.AccessToken)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	body, err := m.opts.Client.Do(ctx, req)
	if err != nil {
		return "", err
	}
	var result struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &result); err != nil || result.ID == "" {
		return "", errs.New(string(m.platform), errs.CodePlatformAPI, errs.WithMessage("media upload failed: no id returned"))
	}
	return result.ID, nil
}

// RefreshCredentials is a no-op: Mastodon app tokens do not expire.
func (m *Mastodon) RefreshCredentials(ctx context.Context) (string, error) {
	return "", nil
}

func (m *Mastodon) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	acc, err := helpers.MakeHTTPRequest[mastodonAccount](ctx, m.opts.Client, http.MethodGet,
		m.endpoint("/api/v1/accounts/verify_credentials"), helpers.Bearer(m.account.AccessToken), nil, nil)
	if err != nil {
		return nil, err
	}
	return &models.AccountInfo{ID: acc.ID, Name: acc.DisplayName, Username: acc.Acct, ProfileImage: acc.Avatar, Platform: m.platform}, nil
}

// FetchInteractions returns the latest mentions of the account.
func (m *Mastodon) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	limit = interactionLimit(limit)
	out := []models.EngagementInteraction{}
	notes, err := helpers.MakeHTTPRequest[[]mastodonNotification](ctx, m.opts.Client, http.MethodGet,
		m.endpoint("/api/v1/notifications"), helpers.Bearer(m.account.AccessToken),
		url.Values{"types[]": {"mention"}, "limit": {strconv.Itoa(limit)}}, nil)
	if err != nil {
		m.logger().Warn("fetch interactions failed", "error", err)
		return out
	}
	for _, n := range notes {
		if n.Type != "mention" || n.Status == nil || len(out) >= limit {
			continue
		}
		kind := models.InteractionMention
		if n.Status.InReplyToID != "" {
			kind = models.InteractionReply
		}
		out = append(out, m.interaction(n.Status.ID, n.Status.InReplyToID, kind, n.Account.ID, n.Account.Acct, stripHTML(n.Status.Content), n.CreatedAt))
	}
	return out
}

func (m *Mastodon) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	status, err := m.postStatus(ctx, map[string]interface{}{
		"status":         content,
		"in_reply_to_id": interactionID,
		"visibility":     "public",
	})
	if err != nil {
		return m.replyFailed(interactionID, err)
	}
	return m.replied(interactionID, status.ID)
}
