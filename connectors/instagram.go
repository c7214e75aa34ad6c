package connectors

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type containerStatus struct {
	ID         string `json:"id"`
	StatusCode string `json:"status_code"`
	Status     string `json:"status"`
}

type instagramMedia struct {
	Data []struct {
		ID       string `json:"id"`
		Comments struct {
			Data []struct {
				ID        string `json:"id"`
				Text      string `json:"text"`
				Username  string `json:"username"`
				Timestamp string `json:"timestamp"`
			} `json:"data"`
		} `json:"comments"`
	} `json:"data"`
}

type instagramProfile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	Name              string `json:"name"`
	ProfilePictureURL string `json:"profile_picture_url"`
}

// Instagram publishes to an Instagram professional account with the container/publish protocol.
type Instagram struct {
	base
	userID string
}

// NewInstagram is the instagram Factory.
func NewInstagram(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	userID := account.BusinessAccountID
	if userID == "" {
		userID = account.PlatformAccountID
	}
	if userID == "" {
		return nil, errs.New(string(models.PlatformInstagram), errs.CodeInvalidCredential, errs.WithMessage("instagram account has no business account id"))
	}
	return &Instagram{base: newBase(models.PlatformInstagram, account, opts), userID: userID}, nil
}

func (i *Instagram) endpoint(path string) string {
	return i.opts.Settings.BaseURL + "/" + path
}

func (i *Instagram) token() url.Values {
	return url.Values{"access_token": {i.account.AccessToken}}
}

func (i *Instagram) Authenticate(ctx context.Context) error {
	if err := i.requireToken(); err != nil {
		return err
	}
	q := i.token()
	q.Set("fields", "id,username")
	_, err := helpers.MakeHTTPRequest[instagramProfile](ctx, i.opts.Client, http.MethodGet, i.endpoint(i.userID), nil, q, nil)
	return err
}

func (i *Instagram) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	count := len(mediaRefs)
	if count == 0 {
		return i.failure(i.validation("instagram requires at least one media attachment"))
	}
	if count > 10 {
		return i.failure(i.validation(fmt.Sprintf("carousel posts require 2 to 10 images. Got: %d", count)))
	}

	i.logger().Info("Posting to Instagram", "user", i.userID, "media", count)

	var creationID string
	if count == 1 {
		id, err := i.createContainer(ctx, i.mediaURL(mediaRefs[0]), content, false)
		if err != nil {
			return i.failure(err)
		}
		creationID = id
	} else {
		children := make([]string, 0, count)
		for _, ref := range mediaRefs {
			id, err := i.createContainer(ctx, i.mediaURL(ref), "", true)
			if err != nil {
				return i.failure(err)
			}
			children = append(children, id)
		}
		carousel, err := helpers.MakeHTTPRequest[graphID](ctx, i.opts.Client, http.MethodPost, i.endpoint(i.userID+"/media"), nil, i.token(),
			map[string]any{
				"caption":    content,
				"children":   strings.Join(children, ","),
				"media_type": "CAROUSEL",
			})
		if err != nil {
			return i.failure(err)
		}
		if carousel.ID == "" {
			return i.failure(errs.New(string(i.platform), errs.CodePlatformAPI, errs.WithMessage("Failed to create carousel container")))
		}
		creationID = carousel.ID
	}

	postID, err := i.publishMedia(ctx, creationID)
	if err != nil {
		return i.failure(err)
	}
	return i.success(postID, i.userID)
}

// createContainer registers one media item. Videos are polled until the platform finished
// processing them.
func (i *Instagram) createContainer(ctx context.Context, mediaURL, caption string, carouselItem bool) (string, error) {
	body := map[string]any{}
	video := helpers.IsVideoURL(mediaURL)
	if video {
		body["video_url"] = mediaURL
		if carouselItem {
			body["media_type"] = "VIDEO"
		} else {
			body["media_type"] = "REELS"
		}
	} else {
		body["image_url"] = mediaURL
	}
	if carouselItem {
		body["is_carousel_item"] = true
	} else {
		body["caption"] = caption
	}

	resp, err := helpers.MakeHTTPRequest[graphID](ctx, i.opts.Client, http.MethodPost, i.endpoint(i.userID+"/media"), nil, i.token(), body)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return "", errs.New(string(i.platform), errs.CodePlatformAPI, errs.WithMessage("Failed to get media container ID"))
	}
	if video {
		if err := waitForContainer(ctx, &i.base, i.endpoint(resp.ID), i.token()); err != nil {
			return "", err
		}
	}
	return resp.ID, nil
}

// waitForContainer polls a Graph or Threads container until it reports FINISHED.
func waitForContainer(ctx context.Context, b *base, containerURL string, q url.Values) error {
	q.Set("fields", "status_code,status")
	for attempt := 0; attempt < 20; attempt++ {
		st, err := helpers.MakeHTTPRequest[containerStatus](ctx, b.opts.Client, http.MethodGet, containerURL, nil, q, nil)
		if err != nil {
			return err
		}
		switch st.StatusCode {
		case "FINISHED", "PUBLISHED":
			return nil
		case "ERROR", "EXPIRED":
			msg := "media processing failed"
			if st.Status != "" {
				msg += ": " + st.Status
			}
			return errs.New(string(b.platform), errs.CodePlatformAPI, errs.WithMessage(msg), errs.WithHTTP(http.StatusBadRequest))
		}
		select {
		case <-ctx.Done():
			return errs.Timeout(string(b.platform), ctx.Err())
		case <-time.After(b.opts.MediaPoll):
		}
	}
	return errs.Timeout(string(b.platform), nil)
}

func (i *Instagram) publishMedia(ctx context.Context, creationID string) (string, error) {
	q := i.token()
	q.Set("creation_id", creationID)
	resp, err := helpers.MakeHTTPRequest[graphID](ctx, i.opts.Client, http.MethodPost, i.endpoint(i.userID+"/media_publish"), nil, q, nil)
	if err != nil {
		return "", err
	}
	if resp.ID == "" {
		return creationID, nil
	}
	return resp.ID, nil
}

// RefreshCredentials is a no-op: Instagram publishing rides on the long-lived Facebook login.
func (i *Instagram) RefreshCredentials(ctx context.Context) (string, error) {
	return "", nil
}

func (i *Instagram) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	q := i.token()
	q.Set("fields", "id,username,name,profile_picture_url")
	p, err := helpers.MakeHTTPRequest[instagramProfile](ctx, i.opts.Client, http.MethodGet, i.endpoint(i.userID), nil, q, nil)
	if err != nil {
		return nil, err
	}
	name := p.Name
	if name == "" {
		name = p.Username
	}
	return &models.AccountInfo{ID: p.ID, Name: name, Username: p.Username, ProfileImage: p.ProfilePictureURL, Platform: i.platform}, nil
}

// FetchInteractions returns comments on the account's most recent media.
func (i *Instagram) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	limit = interactionLimit(limit)
	out := []models.EngagementInteraction{}
	q := i.token()
	q.Set("fields", "id,comments.limit("+strconv.Itoa(limit)+"){id,text,username,timestamp}")
	q.Set("limit", "10")
	media, err := helpers.MakeHTTPRequest[instagramMedia](ctx, i.opts.Client, http.MethodGet, i.endpoint(i.userID+"/media"), nil, q, nil)
	if err != nil {
		i.logger().Warn("fetch interactions failed", "error", err)
		return out
	}
	for _, m := range media.Data {
		for _, c := range m.Comments.Data {
			if len(out) >= limit {
				return out
			}
			out = append(out, i.interaction(c.ID, m.ID, models.InteractionComment, c.Username, c.Username, c.Text, graphTime(c.Timestamp)))
		}
	}
	return out
}

func (i *Instagram) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	q := i.token()
	q.Set("message", content)
	resp, err := helpers.MakeHTTPRequest[graphID](ctx, i.opts.Client, http.MethodPost, i.endpoint(interactionID+"/replies"), nil, q, nil)
	if err != nil {
		return i.replyFailed(interactionID, err)
	}
	return i.replied(interactionID, resp.ID)
}
