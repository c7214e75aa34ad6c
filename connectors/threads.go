package connectors

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type ThreadsResponse struct {
	ID string `json:"id"`
}

type threadsProfile struct {
	ID                       string `json:"id"`
	Username                 string `json:"username"`
	Name                     string `json:"name"`
	ThreadsProfilePictureURL string `json:"threads_profile_picture_url"`
}

type threadsList struct {
	Data []struct {
		ID        string `json:"id"`
		Text      string `json:"text"`
		Username  string `json:"username"`
		Timestamp string `json:"timestamp"`
	} `json:"data"`
}

// Threads publishes with the Threads container/publish protocol.
type Threads struct {
	base
}

// NewThreads is the threads Factory.
func NewThreads(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	if account.PlatformAccountID == "" {
		return nil, errs.New(string(models.PlatformThreads), errs.CodeInvalidCredential, errs.WithMessage("threads account has no user id"))
	}
	return &Threads{base: newBase(models.PlatformThreads, account, opts)}, nil
}

func (th *Threads) endpoint(path string) string {
	return th.opts.Settings.BaseURL + "/" + path
}

func (th *Threads) params(kv ...string) url.Values {
	params := url.Values{}
	for i := 0; i+1 < len(kv); i += 2 {
		params.Add(kv[i], kv[i+1])
	}
	params.Add("access_token", th.account.AccessToken)
	return params
}

func (th *Threads) Authenticate(ctx context.Context) error {
	if err := th.requireToken(); err != nil {
		return err
	}
	if err := th.refreshIfExpired(ctx, th.RefreshCredentials); err != nil {
		return err
	}
	_, err := helpers.MakeHTTPRequest[threadsProfile](ctx, th.opts.Client, http.MethodGet, th.endpoint("me"), nil, th.params("fields", "id,username"), nil)
	return err
}

func (th *Threads) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	th.logger().Info("Posting to threads", "user", th.account.PlatformAccountID, "media", len(mediaRefs))

	var creationID string
	var err error
	switch {
	case len(mediaRefs) == 0:
		creationID, err = th.createContainer(ctx, th.params("media_type", "TEXT", "text", content))
	case len(mediaRefs) == 1:
		creationID, err = th.createContainer(ctx, th.mediaParams(th.mediaURL(mediaRefs[0]), false, "text", content))
	default:
		children := make([]string, 0, len(mediaRefs))
		for _, ref := range mediaRefs {
			id, err := th.createContainer(ctx, th.mediaParams(th.mediaURL(ref), true))
			if err != nil {
				return th.failure(err)
			}
			children = append(children, id)
		}
		creationID, err = th.createContainer(ctx, th.params("media_type", "CAROUSEL", "children", strings.Join(children, ","), "text", content))
	}
	if err != nil {
		return th.failure(err)
	}

	postID, err := th.publishContainer(ctx, creationID)
	if err != nil {
		return th.failure(err)
	}
	return th.success(postID, th.account.PlatformAccountID)
}

func (th *Threads) mediaParams(mediaURL string, carouselItem bool, extra ...string) url.Values {
	kv := []string{"is_carousel_item", strconv.FormatBool(carouselItem)}
	if helpers.IsVideoURL(mediaURL) {
		kv = append(kv, "media_type", "VIDEO", "video_url", mediaURL)
	} else {
		kv = append(kv, "media_type", "IMAGE", "image_url", mediaURL)
	}
	return th.params(append(kv, extra...)...)
}

func (th *Threads) createContainer(ctx context.Context, params url.Values) (string, error) {
	resp, err := helpers.MakeHTTPRequest[ThreadsResponse](ctx, th.opts.Client, http.MethodPost, th.endpoint(th.account.PlatformAccountID+"/threads"), nil, params, nil)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errs.New(string(th.platform), errs.CodePlatformAPI, errs.WithMessage("threads returned no container id"))
	}
	if params.Get("media_type") == "VIDEO" {
		if err := waitForContainer(ctx, &th.base, th.endpoint(resp.ID), th.params()); err != nil {
			return "", err
		}
	}
	return resp.ID, nil
}

func (th *Threads) publishContainer(ctx context.Context, creationID string) (string, error) {
	resp, err := helpers.MakeHTTPRequest[ThreadsResponse](ctx, th.opts.Client, http.MethodPost,
		th.endpoint(th.account.PlatformAccountID+"/threads_publish"), nil, th.params("creation_id", creationID), nil)
	if err != nil {
		return "", err
	}
	return resp.ID, nil
}

// RefreshCredentials extends the long-lived token with th_refresh_token.
func (th *Threads) RefreshCredentials(ctx context.Context) (string, error) {
	resp, err := helpers.MakeHTTPRequest[graphToken](ctx, th.opts.Client, http.MethodGet, th.endpoint("refresh_access_token"), nil,
		th.params("grant_type", "th_refresh_token"), nil)
	if err != nil {
		return "", err
	}
	if resp.AccessToken == "" {
		return "", errs.New(string(th.platform), errs.CodeInvalidCredential, errs.WithMessage("token refresh returned no token"))
	}
	if err := th.saveTokens(ctx, map[string]any{
		models.FieldAccessToken: resp.AccessToken,
		models.FieldExpiresAt:   th.expiry(resp.ExpiresIn),
	}); err != nil {
		return "", err
	}
	return resp.AccessToken, nil
}

func (th *Threads) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	p, err := helpers.MakeHTTPRequest[threadsProfile](ctx, th.opts.Client, http.MethodGet, th.endpoint("me"), nil,
		th.params("fields", "id,username,name,threads_profile_picture_url"), nil)
	if err != nil {
		return nil, err
	}
	return &models.AccountInfo{ID: p.ID, Name: p.Name, Username: p.Username, ProfileImage: p.ThreadsProfilePictureURL, Platform: th.platform}, nil
}

// FetchInteractions returns the replies to the account's latest threads.
func (th *Threads) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	limit = interactionLimit(limit)
	out := []models.EngagementInteraction{}
	posts, err := helpers.MakeHTTPRequest[threadsList](ctx, th.opts.Client, http.MethodGet, th.endpoint(th.account.PlatformAccountID+"/threads"), nil,
		th.params("fields", "id", "limit", "5"), nil)
	if err != nil {
		th.logger().Warn("fetch interactions failed", "error", err)
		return out
	}
	for _, post := range posts.Data {
		replies, err := helpers.MakeHTTPRequest[threadsList](ctx, th.opts.Client, http.MethodGet, th.endpoint(post.ID+"/replies"), nil,
			th.params("fields", "id,text,username,timestamp", "limit", strconv.Itoa(limit)), nil)
		if err != nil {
			th.logger().Warn("fetch replies failed", "post", post.ID, "error", err)
			continue
		}
		for _, r := range replies.Data {
			if len(out) >= limit {
				return out
			}
			out = append(out, th.interaction(r.ID, post.ID, models.InteractionReply, r.Username, r.Username, r.Text, graphTime(r.Timestamp)))
		}
	}
	return out
}

func (th *Threads) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	creationID, err := th.createContainer(ctx, th.params("media_type", "TEXT", "text", content, "reply_to_id", interactionID))
	if err != nil {
		return th.replyFailed(interactionID, err)
	}
	id, err := th.publishContainer(ctx, creationID)
	if err != nil {
		return th.replyFailed(interactionID, err)
	}
	return th.replied(interactionID, id)
}
