package connectors

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/dghubble/oauth1"
	"github.com/michimani/gotwi"
	"github.com/michimani/gotwi/tweet/managetweet"
	tweettypes "github.com/michimani/gotwi/tweet/managetweet/types"
	"github.com/michimani/gotwi/user/userlookup"
	usertypes "github.com/michimani/gotwi/user/userlookup/types"

	"content-clock-publisher/errs"
	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

type MediaUpload struct {
	MediaId       int64  `json:"media_id"`
	MediaIdString string `json:"media_id_string"`
}

// Twitter posts tweets with OAuth 1.0a user context. The account token is stored as
// "<token> <secret>".
type Twitter struct {
	base
	token  string
	secret string
}

// NewTwitter is the twitter Factory.
func NewTwitter(account *models.SocialMediaAccount, opts Options) (Connector, error) {
	t := &Twitter{base: newBase(models.PlatformTwitter, account, opts)}
	tokens := strings.Fields(account.AccessToken)
	if len(tokens) == 2 {
		t.token, t.secret = tokens[0], tokens[1]
	}
	return t, nil
}

func (t *Twitter) credentialError() error {
	if t.token == "" || t.secret == "" {
		return errs.New(string(t.platform), errs.CodeInvalidCredential, errs.WithMessage("twitter token must be stored as \"token secret\""))
	}
	return nil
}

func (t *Twitter) client() (*gotwi.Client, error) {
	if err := t.credentialError(); err != nil {
		return nil, err
	}
	in := &gotwi.NewClientInput{
		AuthenticationMethod: gotwi.AuthenMethodOAuth1UserContext,
		OAuthToken:           t.token,
		OAuthTokenSecret:     t.secret,
	}
	c, err := gotwi.NewClient(in)
	if err != nil {
		return nil, errs.New(string(t.platform), errs.CodeAuth, errs.WithMessage(err.Error()), errs.WithCause(err))
	}
	return c, nil
}

func (t *Twitter) apiError(err error) error {
	if err == nil {
		return nil
	}
	if errs.CodeOf(err) != "" {
		return err
	}
	return errs.New(string(t.platform), errs.CodePlatformAPI, errs.WithMessage(err.Error()), errs.WithCause(err))
}

func (t *Twitter) Authenticate(ctx context.Context) error {
	c, err := t.client()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(ctx, t.opts.Client.Timeout)
	defer cancel()
	_, err = userlookup.GetMe(ctx, c, &usertypes.GetMeInput{})
	return t.apiError(err)
}

func (t *Twitter) Publish(ctx context.Context, content string, mediaRefs []string) models.PostingResult {
	c, err := t.client()
	if err != nil {
		return t.failure(err)
	}

	t.logger().Info("Posting to Twitter", "media", len(mediaRefs))

	var post tweettypes.CreateInput
	post.Text = gotwi.String(content)

	if len(mediaRefs) > 0 {
		mediaIds := []string{}
		for _, ref := range mediaRefs {
			mediaId, err := t.uploadMedia(ctx, t.mediaURL(ref))
			if err != nil {
				return t.failure(err)
			}
			mediaIds = append(mediaIds, mediaId)
		}
		post.Media = &tweettypes.CreateInputMedia{MediaIDs: mediaIds}
	}

	callCtx, cancel := context.WithTimeout(ctx, t.opts.Client.Timeout)
	defer cancel()
	res, err := managetweet.Create(callCtx, c, &post)
	if err != nil {
		if callCtx.Err() != nil {
			return t.failure(errs.Timeout(string(t.platform), err))
		}
		return t.failure(t.apiError(err))
	}
	return t.success(gotwi.StringValue(res.Data.ID), t.token)
}

// uploadMedia pushes one image through the v1.1 upload endpoint, signed with OAuth1.
func (t *Twitter) uploadMedia(ctx context.Context, mediaURL string) (string, error) {
	media, err := helpers.DownloadMedia(ctx, t.opts.Client, mediaURL)
	if err != nil {
		return "", err
	}
	if media.IsVideo() {
		return "", t.validation("twitter video upload is not supported")
	}

	config := oauth1.NewConfig(t.opts.Settings.ClientID, t.opts.Settings.ClientSecret)
	token := oauth1.NewToken(t.token, t.secret)
	signed := *t.opts.Client
	signed.HTTP = config.Client(ctx, token)

	b := &bytes.Buffer{}
	form := multipart.NewWriter(b)
	fw, err := form.CreateFormFile("media", media.Filename)
	if err != nil {
		return "", err
	}
	if _, err := fw.Write(media.Data); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.Settings.UploadURL+"?media_category=tweet_image", b)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	body, err := signed.Do(ctx, req)
	if err != nil {
		return "", err
	}
	m := &MediaUpload{}
	if err := json.Unmarshal(body, m); err != nil {
		return "", errs.New(string(t.platform), errs.CodePlatformAPI, errs.WithMessage("unexpected media upload response"), errs.WithCause(err))
	}
	if m.MediaIdString != "" {
		return m.MediaIdString, nil
	}
	return strconv.FormatInt(m.MediaId, 10), nil
}

// RefreshCredentials is a no-op: OAuth1 user tokens do not expire.
func (t *Twitter) RefreshCredentials(ctx context.Context) (string, error) {
	return "", nil
}

func (t *Twitter) FetchAccountInfo(ctx context.Context) (*models.AccountInfo, error) {
	c, err := t.client()
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithTimeout(ctx, t.opts.Client.Timeout)
	defer cancel()
	res, err := userlookup.GetMe(ctx, c, &usertypes.GetMeInput{})
	if err != nil {
		return nil, t.apiError(err)
	}
	return &models.AccountInfo{
		ID:           gotwi.StringValue(res.Data.ID),
		Name:         gotwi.StringValue(res.Data.Name),
		Username:     gotwi.StringValue(res.Data.Username),
		ProfileImage: gotwi.StringValue(res.Data.ProfileImageURL),
		Platform:     t.platform,
	}, nil
}

// FetchInteractions is not offered for Twitter accounts.
func (t *Twitter) FetchInteractions(ctx context.Context, limit int) []models.EngagementInteraction {
	return []models.EngagementInteraction{}
}

// ReplyToInteraction answers the tweet whose id is interactionID.
func (t *Twitter) ReplyToInteraction(ctx context.Context, interactionID, content string) models.ReplyResult {
	c, err := t.client()
	if err != nil {
		return t.replyFailed(interactionID, err)
	}
	ctx, cancel := context.WithTimeout(ctx, t.opts.Client.Timeout)
	defer cancel()
	res, err := managetweet.Create(ctx, c, &tweettypes.CreateInput{
		Text:  gotwi.String(content),
		Reply: &tweettypes.CreateInputReply{InReplyToTweetID: interactionID},
	})
	if err != nil {
		return t.replyFailed(interactionID, t.apiError(err))
	}
	return t.replied(interactionID, gotwi.StringValue(res.Data.ID))
}
