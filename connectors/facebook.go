package connectors

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type graphID struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type graphToken struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type graphComment struct {
	ID          string `json:"id"`
	Message     string `json:"message"`
	CreatedTime string `json:"created_time"`
	From        struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"from"`
}

type facebookFeed struct {
	Data []struct {
		ID       string `json:"id"`
		Comments struct {
			Data []graphComment `json:"data"`
		} `json:"comments"`
	} `json:"data"`
}

type facebookPage struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Picture  struct {
		Data struct {
			URL string `json:"url"`
		} `json:"data"`
	} `json:"picture"`
}

// Facebook publishes to a Facebook Page through the Graph API with a page-scoped token.
type Facebook struct {
	base
}

// NewFacebook is the facebook Factory.
func NewFacebook(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	if account.PageID == "" {
		return nil, errs.New(string(models.PlatformFacebook), errs.CodeInvalidCredential, errs.WithMessage("facebook account has no page id"))
	}
	return &Facebook{base: newBase(models.PlatformFacebook, account, opts)}, nil
}

func (f *Facebook) endpoint(path string) string {
	return f.opts.Settings.BaseURL + "/" + path
}

// Authenticate makes sure a page token is available and that Graph accepts it.
func (f *Facebook) Authenticate(ctx context.Context) error {
	if err := f.requireToken(); err != nil {
		return err
	}
	if err := f.refreshIfExpired(ctx, f.RefreshCredentials); err != nil {
		return err
	}
	token, err := f.pageToken(ctx)
	if err != nil {
		return err
	}
	_, err = helpers.MakeHTTPRequest[graphID](ctx, f.opts.Client, http.MethodGet, f.endpoint(f.account.PageID), nil,
		url.Values{"fields": {"id"}, "access_token": {token}}, nil)
	return err
}

// pageToken returns the cached page token, exchanging the user token for it on first use.
func (f *Facebook) pageToken(ctx context.Context) (string, error) {
	if f.account.PageAccessToken != "" {
		return f.account.PageAccessToken, nil
	}
	resp, err := helpers.MakeHTTPRequest[graphToken](ctx, f.opts.Client, http.MethodGet, f.endpoint(f.account.PageID), nil,
		url.Values{"fields": {"access_token"}, "access_token": {f.account.AccessToken}}, nil)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errs.New(string(f.platform), errs.CodeInvalidCredential, errs.WithMessage("no page access token granted for page "+f.account.PageID))
	}
	if err := f.saveTokens(ctx, map[string]any{models.FieldPageAccessToken: resp.AccessToken}); err != nil {
		return "", err
	}
	f.logger().Info("exchanged user token for page token", "page", f.account.PageID)
	return resp.AccessToken, nil
}

func (f *Facebook) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	token, err := f.pageToken(ctx)
	if err != nil {
		return f.failure(err)
	}

	f.logger().Info("Posting to Facebook", "page", f.account.PageID, "media", len(mediaRefs))

	var images, videos []string
	for _, ref := range mediaRefs {
		u := f.mediaURL(ref)
		if helpers.IsVideoURL(u) {
			videos = append(videos, u)
		} else {
			images = append(images, u)
		}
	}

	form := map[string]string{"message": content, "published": "true"}
	if len(videos) > 0 {
		if len(videos) > 1 || len(images) > 0 {
			return f.failure(f.validation("facebook accepts a single video without other attachments"))
		}
		resp, err := f.post(ctx, f.account.PageID+"/videos", token, map[string]string{
			"file_url":    videos[0],
			"description": content,
		})
		if err != nil {
			return f.failure(err)
		}
		return f.success(resp.ID, f.account.PageID)
	}

	for i, image := range images {
		resp, err := f.post(ctx, f.account.PageID+"/photos", token, map[string]string{
			"url":       image,
			"published": "false",
		})
		if err != nil {
			return f.failure(err)
		}
		if resp.ID == "" {
			return f.failure(errs.New(string(f.platform), errs.CodePlatformAPI, errs.WithMessage("upload failed: no id returned")))
		}
		form[fmt.Sprintf("attached_media[%d]", i)] = fmt.Sprintf(`{"media_fbid":"%s"}`, resp.ID)
	}

	resp, err := f.post(ctx, f.account.PageID+"/feed", token, form)
	if err != nil {
		return f.failure(err)
	}
	return f.success(resp.ID, f.account.PageID)
}

func (f *Facebook) post(ctx context.Context, path, token string, body map[string]string) (graphID, error) {
	form := url.Values{}
	for key, value := range body {
		form.Set(key, value)
	}
	form.Set("access_token", token)
	headers := map[string]string{"Content-Type": "application/x-www-form-urlencoded"}
	return helpers.MakeHTTPRequest[graphID](ctx, f.opts.Client, http.MethodPost, f.endpoint(path), headers, nil, form)
}

// RefreshCredentials trades the user token for a fresh long-lived one. The page token is derived
// from the user token, so it is dropped and exchanged again on next use.
func (f *Facebook) RefreshCredentials(ctx context.Context) (string, error) {
	secret := f.account.AppSecret
	if secret == "" {
		secret = f.opts.Settings.ClientSecret
	}
	if f.opts.Settings.ClientID == "" || secret == "" {
		return "", nil
	}
	resp, err := helpers.MakeHTTPRequest[graphToken](ctx, f.opts.Client, http.MethodGet, f.endpoint("oauth/access_token"), nil,
		url.Values{
			"grant_type":        {"fb_exchange_token"},
			"client_id":         {f.opts.Settings.ClientID},
			"client_secret":     {secret},
			"fb_exchange_token": {f.account.AccessToken},
		}, nil)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errs.New(string(f.platform), errs.CodeInvalidCredential, errs.WithMessage("token exchange returned no token"))
	}
	fields := map[string]any{
		models.FieldAccessToken:     resp.AccessToken,
		models.FieldPageAccessToken: "",
		models.FieldExpiresAt:       f.expiry(resp.ExpiresIn),
	}
	if err := f.saveTokens(ctx, fields); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (f *Facebook) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	token, err := f.pageToken(ctx)
	if err != nil {
		return nil, err
	}
	page, err := helpers.MakeHTTPRequest[facebookPage](ctx, f.opts.Client, http.MethodGet, f.endpoint(f.account.PageID), nil,
		url.Values{"fields": {"id,name,username,picture"}, "access_token": {token}}, nil)
	if err != nil {
		return nil, err
	}
	return &models.AccountInfo{
		ID:           page.ID,
		Name:         page.Name,
		Username:     page.Username,
		ProfileImage: page.Picture.Data.URL,
		Platform:     f.platform,
	}, nil
}

// FetchInteractions returns the comments on the page's most recent posts.
func (f *Facebook) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	limit = interactionLimit(limit)
	out := []models.EngagementInteraction{}
	token, err := f.pageToken(ctx)
	if err != nil {
		f.logger().Warn("fetch interactions failed", "error", err)
		return out
	}
	fields := "id,comments.limit(" + strconv.Itoa(limit) + "){id,message,from,created_time}"
	feed, err := helpers.MakeHTTPRequest[facebookFeed](ctx, f.opts.Client, http.MethodGet, f.endpoint(f.account.PageID+"/feed"), nil,
		url.Values{"fields": {fields}, "limit": {"10"}, "access_token": {token}}, nil)
	if err != nil {
		f.logger().Warn("fetch interactions failed", "error", err)
		return out
	}
	for _, post := range feed.Data {
		for _, c := range post.Comments.Data {
			if len(out) >= limit {
				return out
			}
			out = append(out, f.interaction(c.ID, post.ID, models.InteractionComment, c.From.ID, c.From.Name, c.Message, graphTime(c.CreatedTime)))
		}
	}
	return out
}

func (f *Facebook) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	token, err := f.pageToken(ctx)
	if err != nil {
		return f.replyFailed(interactionID, err)
	}
	resp, err := f.post(ctx, interactionID+"/comments", token, map[string]string{"message": content})
	if err != nil {
		return f.replyFailed(interactionID, err)
	}
	return f.replied(interactionID, resp.ID)
}
