package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"golang.org/x/oauth2"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type LinkedinResponse struct {
	ID string `json:"id"`
}

type UploadRegisterResponse struct {
	Value struct {
		UploadMechanism struct {
			MediaUploadHttpRequest struct {
				Headers   map[string]interface{} `json:"headers"`
				UploadUrl string                 `json:"uploadUrl"`
			} `json:"com.linkedin.digitalmedia.uploading.MediaUploadHttpRequest"`
		} `json:"uploadMechanism"`
		Asset string `json:"asset"`
	} `json:"value"`
}

type linkedinText struct {
	Text string `json:"text"`
}

type linkedinMedia struct {
	Status      string       `json:"status"`
	Description linkedinText `json:"description"`
	Media       string       `json:"media"`
	Title       linkedinText `json:"title"`
}

type linkedinShareContent struct {
	ShareCommentary    linkedinText    `json:"shareCommentary"`
	ShareMediaCategory string          `json:"shareMediaCategory"`
	Media              []linkedinMedia `json:"media,omitempty"`
}

type linkedinPost struct {
	Author          string `json:"author"`
	LifecycleState  string `json:"lifecycleState"`
	SpecificContent struct {
		ShareContent linkedinShareContent `json:"com.linkedin.ugc.ShareContent"`
	} `json:"specificContent"`
	Visibility struct {
		MemberNetworkVisibility string `json:"com.linkedin.ugc.MemberNetworkVisibility"`
	} `json:"visibility"`
}

type linkedinUserInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

type linkedinOrganization struct {
	ID            int64  `json:"id"`
	LocalizedName string `json:"localizedName"`
	VanityName    string `json:"vanityName"`
}

// Linkedin shares to a member profile or, when the account carries an organization id, to that
// organization's page.
type Linkedin struct {
	base
}

// NewLinkedin is the linkedin Factory.
func NewLinkedin(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	if account.OrganizationID == "" && account.PlatformAccountID == "" {
		return nil, errs.New(string(models.PlatformLinkedin), errs.CodeInvalidCredential, errs.WithMessage("linkedin account has no member or organization id"))
	}
	return &Linkedin{base: newBase(models.PlatformLinkedin, account, opts)}, nil
}

// AuthorURN is the URN posts are published under.
func (l *Linkedin) AuthorURN() string {
	if l.account.OrganizationID != "" {
		return "urn:li:organization:" + l.account.OrganizationID
	}
	return "urn:li:person:" + l.account.PlatformAccountID
}

func (l *Linkedin) endpoint(path string) string {
	return l.opts.Settings.BaseURL + path
}

func (l *Linkedin) headers() map[string]string {
	h := helpers.Bearer(l.account.AccessToken)
	h["X-Restli-Protocol-Version"] = "2.0.0"
	return h
}

func (l *Linkedin) Authenticate(ctx context.Context) error {
	if err := l.requireToken(); err != nil {
		return err
	}
	if err := l.refreshIfExpired(ctx, l.RefreshCredentials); err != nil {
		return err
	}
	_, err := helpers.MakeHTTPRequest[linkedinUserInfo](ctx, l.opts.Client, http.MethodGet, l.endpoint("/v2/userinfo"), helpers.Bearer(l.account.AccessToken), nil, nil)
	return err
}

func (l *Linkedin) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	l.logger().Info("Posting to Linkedin", "author", l.AuthorURN(), "media", len(mediaRefs))

	var post linkedinPost
	post.Author = l.AuthorURN()
	post.LifecycleState = "PUBLISHED"
	post.Visibility.MemberNetworkVisibility = "PUBLIC"
	share := linkedinShareContent{
		ShareCommentary:    linkedinText{Text: content},
		ShareMediaCategory: "NONE",
	}

	if len(mediaRefs) > 0 {
		category := "IMAGE"
		for _, ref := range mediaRefs {
			if helpers.IsVideoURL(l.mediaURL(ref)) {
				category = "VIDEO"
			}
		}
		if category == "VIDEO" && len(mediaRefs) > 1 {
			return l.failure(l.validation("linkedin accepts a single video without other attachments"))
		}
		for _, ref := range mediaRefs {
			asset, err := l.uploadMedia(ctx, l.mediaURL(ref), category)
			if err != nil {
				return l.failure(err)
			}
			share.Media = append(share.Media, linkedinMedia{
				Status:      "READY",
				Description: linkedinText{Text: "LinkedIn Upload"},
				Media:       asset,
				Title:       linkedinText{Text: "LinkedIn Upload"},
			})
		}
		share.ShareMediaCategory = category
	}
	post.SpecificContent.ShareContent = share

	body, err := json.Marshal(post)
	if err != nil {
		return l.failure(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.endpoint("/v2/ugcPosts"), bytes.NewReader(body))
	if err != nil {
		return l.failure(err)
	}
	for k, v := range l.headers() {
		req.Header.Set(k, v)
	}
	req.Header.Set("Content-Type", "application/json")

	header, respBody, err := l.opts.Client.Send(ctx, req)
	if err != nil {
		return l.failure(err)
	}
	var lresp LinkedinResponse
	_ = json.Unmarshal(respBody, &lresp)
	if lresp.ID == "" {
		lresp.ID = header.Get("X-RestLi-Id")
	}
	if lresp.ID == "" {
		return l.failure(errs.New(string(l.platform), errs.CodePlatformAPI, errs.WithMessage("linkedin returned no post id")))
	}
	return l.success(lresp.ID, l.AuthorURN())
}

// uploadMedia registers an upload for the author, pushes the bytes and returns the asset URN.
func (l *Linkedin) uploadMedia(ctx context.Context, mediaURL, category string) (string, error) {
	recipe := "urn:li:digitalmediaRecipe:feedshare-image"
	if category == "VIDEO" {
		recipe = "urn:li:digitalmediaRecipe:feedshare-video"
	}
	register := map[string]any{
		"registerUploadRequest": map[string]any{
			"recipes": []string{recipe},
			"owner":   l.AuthorURN(),
			"serviceRelationships": []map[string]string{
				{"relationshipType": "OWNER", "identifier": "urn:li:userGeneratedContent"},
			},
		},
	}
	reg, err := helpers.MakeHTTPRequest[UploadRegisterResponse](ctx, l.opts.Client, http.MethodPost,
		l.endpoint("/v2/assets"), helpers.Bearer(l.account.AccessToken), url.Values{"action": {"registerUpload"}}, register)
	if err != nil {
		return "", err
	}
	uploadURL := reg.Value.UploadMechanism.MediaUploadHttpRequest.UploadUrl
	if uploadURL == "" {
		return "", errs.New(string(l.platform), errs.CodePlatformAPI, errs.WithMessage("upload url is empty"))
	}

	media, err := helpers.DownloadMedia(ctx, l.opts.Client, mediaURL)
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, bytes.NewReader(media.Data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+l.account.AccessToken)
	req.Header.Set("Content-Type", media.ContentType)
	if _, err := l.opts.Client.Do(ctx, req); err != nil {
		return "", err
	}
	return reg.Value.Asset, nil
}

// RefreshCredentials runs the OAuth2 refresh-token grant.
func (l *Linkedin) RefreshCredentials(ctx context.Context) (string, error) {
	return refreshOAuth2(ctx, &l.base, oauth2.AuthStyleInParams)
}

func (l *Linkedin) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	if l.account.OrganizationID != "" {
		org, err := helpers.MakeHTTPRequest[linkedinOrganization](ctx, l.opts.Client, http.MethodGet,
			l.endpoint("/v2/organizations/"+l.account.OrganizationID), l.headers(), nil, nil)
		if err != nil {
			return nil, err
		}
		return &models.AccountInfo{
			ID:       l.account.OrganizationID,
			Name:     org.LocalizedName,
			Username: org.VanityName,
			Platform: l.platform,
		}, nil
	}
	me, err := helpers.MakeHTTPRequest[linkedinUserInfo](ctx, l.opts.Client, http.MethodGet, l.endpoint("/v2/userinfo"), helpers.Bearer(l.account.AccessToken), nil, nil)
	if err != nil {
		return nil, err
	}
	return &models.AccountInfo{ID: me.Sub, Name: me.Name, Username: me.Email, ProfileImage: me.Picture, Platform: l.platform}, nil
}

// FetchInteractions is not offered for LinkedIn accounts.
func (l *Linkedin) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	return []models.EngagementInteraction{}
}

// ReplyToInteraction comments on the share or comment identified by the interaction URN.
func (l *Linkedin) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	body := map[string]any{
		"actor":   l.AuthorURN(),
		"message": linkedinText{Text: content},
	}
	resp, err := helpers.MakeHTTPRequest[LinkedinResponse](ctx, l.opts.Client, http.MethodPost,
		l.endpoint("/v2/socialActions/"+url.PathEscape(interactionID)+"/comments"), l.headers(), nil, body)
	if err != nil {
		return l.replyFailed(interactionID, err)
	}
	return l.replied(interactionID, resp.ID)
}
