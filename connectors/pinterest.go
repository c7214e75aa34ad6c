package connectors

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

const pinTitleLimit = 100

type pinterestPin struct {
	ID string `json:"id"`
}

type pinterestUser struct {
	Username     string `json:"username"`
	ProfileImage string `json:"profile_image"`
	BusinessName string `json:"business_name"`
	ID           string `json:"id"`
}

// Pinterest creates pins on the board stored as the account's platform id.
type Pinterest struct {
	base
}

// NewPinterest is the pinterest Factory.
func NewPinterest(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	if account.PlatformAccountID == "" {
		return nil, errs.New(string(models.PlatformPinterest), errs.CodeInvalidCredential, errs.WithMessage("pinterest account has no board id"))
	}
	return &Pinterest{base: newBase(models.PlatformPinterest, account, opts)}, nil
}

func (p *Pinterest) endpoint(path string) string {
	return p.opts.Settings.BaseURL + path
}

func (p *Pinterest) Authenticate(ctx context.Context) error {
	if err := p.requireToken(); err != nil {
		return err
	}
	if err := p.refreshIfExpired(ctx, p.RefreshCredentials); err != nil {
		return err
	}
	_, err := helpers.MakeHTTPRequest[pinterestUser](ctx, p.opts.Client, http.MethodGet, p.endpoint("/user_account"), helpers.Bearer(p.account.AccessToken), nil, nil)
	return err
}

// pinTitle is the first line of content cut to the title limit.
func pinTitle(content string) string {
	title := content
	if i := strings.IndexByte(title, '\n'); i >= 0 {
		title = title[:i]
	}
	title = strings.TrimSpace(title)
	if r := []rune(title); len(r) > pinTitleLimit {
		title = string(r[:pinTitleLimit])
	}
	return title
}

func (p *Pinterest) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	if len(mediaRefs) == 0 {
		return p.failure(p.validation("pinterest requires at least one media attachment"))
	}
	imageURL := p.mediaURL(mediaRefs[0])
	if helpers.IsVideoURL(imageURL) {
		return p.failure(p.validation("pinterest pins accept images only"))
	}

	p.logger().Info("Posting to Pinterest", "board", p.account.PlatformAccountID)

	payload := map[string]any{
		"title":       pinTitle(content),
		"description": content,
		"board_id":    p.account.PlatformAccountID,
		"media_source": map[string]string{
			"source_type": "image_url",
			"url":         imageURL,
		},
	}
	pin, err := helpers.MakeHTTPRequest[pinterestPin](ctx, p.opts.Client, http.MethodPost, p.endpoint("/pins"), helpers.Bearer(p.account.AccessToken), nil, payload)
	if err != nil {
		return p.failure(err)
	}
	if pin.ID == "" {
		return p.failure(errs.New(string(p.platform), errs.CodePlatformAPI, errs.WithMessage("pinterest returned no pin id")))
	}
	return p.success(pin.ID, p.account.PlatformAccountID)
}

// RefreshCredentials runs the OAuth2 refresh-token grant with client credentials in the header.
func (p *Pinterest) RefreshCredentials(ctx context.Context) (string, error) {
	return refreshOAuth2(ctx, &p.base, oauth2.AuthStyleInHeader)
}

func (p *Pinterest) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	u, err := helpers.MakeHTTPRequest[pinterestUser](ctx, p.opts.Client, http.MethodGet, p.endpoint("/user_account"), helpers.Bearer(p.account.AccessToken), nil, nil)
	if err != nil {
		return nil, err
	}
	name := u.BusinessName
	if name == "" {
		name = u.Username
	}
	return &models.AccountInfo{ID: u.ID, Name: name, Username: u.Username, ProfileImage: u.ProfileImage, Platform: p.platform}, nil
}

// FetchInteractions is not offered for Pinterest accounts.
func (p *Pinterest) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	return []models.EngagementInteraction{}
}

// ReplyToInteraction always fails: the Pinterest API has no comment replies.
func (p *Pinterest) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	return p.replyFailed(interactionID, p.validation("pinterest does not support replies"))
}
