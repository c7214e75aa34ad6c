package controllers

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

func SetupThreadsRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/threads/start", func(e *core.RequestEvent) error {
		return BeginThreadsAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/threads/callback", func(e *core.RequestEvent) error {
		return ThreadsOAuthCallback(e, h)
	})
}

func BeginThreadsAuth(e *core.RequestEvent, h *Handlers) error {
	th := h.Config.Platform(string(models.PlatformThreads))
	if th.ClientID == "" || th.ClientSecret == "" {
		return helpers.Error(e, http.StatusInternalServerError, "Threads App ID or Secret is not set")
	}
	userID := e.Request.URL.Query().Get("userId")
	if userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}

	q := url.Values{
		"client_id":     {th.ClientID},
		"redirect_uri":  {h.Config.APIHost + "/api/v1/auth/threads/callback"},
		"response_type": {"code"},
		"scope":         {"threads_basic,threads_content_publish,threads_manage_replies,threads_read_replies"},
		"state":         {userID},
	}
	return e.Redirect(http.StatusTemporaryRedirect, "https://threads.net/oauth/authorize?"+q.Encode())
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	UserId      any    `json:"user_id"`
}

type LongLivedTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
}

type ThreadsProfileResponse struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Image    string `json:"threads_profile_picture_url"`
}

// ThreadsOAuthCallback exchanges the code for a long-lived token and stores the profile.
func ThreadsOAuthCallback(e *core.RequestEvent, h *Handlers) error {
	query := e.Request.URL.Query()
	code, userID := query.Get("code"), query.Get("state")
	if code == "" || userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}

	ctx := e.Request.Context()
	th := h.Config.Platform(string(models.PlatformThreads))
	form := url.Values{
		"client_id":     {th.ClientID},
		"client_secret": {th.ClientSecret},
		"grant_type":    {"authorization_code"},
		"redirect_uri":  {h.Config.APIHost + "/api/v1/auth/threads/callback"},
		"code":          {code},
	}
	short, err := helpers.MakeHTTPRequest[TokenResponse](ctx, h.Client, http.MethodPost, th.TokenURL,
		map[string]string{"Content-Type": "application/x-www-form-urlencoded"}, nil, form)
	if err != nil {
		h.Logger.Error("Error in fetching threads token", "error", err)
		return helpers.Fail(e, err)
	}

	long, err := helpers.MakeHTTPRequest[LongLivedTokenResponse](ctx, h.Client, http.MethodGet, th.BaseURL+"/access_token", nil,
		url.Values{"grant_type": {"th_exchange_token"}, "client_secret": {th.ClientSecret}, "access_token": {short.AccessToken}}, nil)
	if err != nil {
		h.Logger.Error("Error in getting threads long lived token", "error", err)
		return helpers.Fail(e, err)
	}

	profile, err := helpers.MakeHTTPRequest[ThreadsProfileResponse](ctx, h.Client, http.MethodGet, th.BaseURL+"/me", nil,
		url.Values{"fields": {"id,username,threads_profile_picture_url,name"}, "access_token": {long.AccessToken}}, nil)
	if err != nil {
		h.Logger.Error("Error in getting threads profile", "error", err)
		return helpers.Fail(e, err)
	}

	account := &models.SocialMediaAccount{
		UserID:            userID,
		Platform:          models.PlatformThreads,
		AccountName:       profile.Name,
		AccessToken:       long.AccessToken,
		PlatformAccountID: profile.ID,
		ProfileImage:      profile.Image,
		MetaData:          fmt.Sprintf(`{"username":%q}`, profile.Username),
	}
	if long.ExpiresIn > 0 {
		expiry := time.Now().Add(time.Duration(long.ExpiresIn) * time.Second)
		account.ExpiresAt = &expiry
	}
	if err := AddNewConnection(ctx, h, account); err != nil {
		return helpers.Fail(e, err)
	}
	return e.Redirect(http.StatusTemporaryRedirect, h.Config.RedirectURL+"/connect/threads?account="+account.ID)
}
