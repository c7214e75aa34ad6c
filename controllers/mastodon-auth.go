package controllers

import (
	"net/http"
	"net/url"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/mastodon"
	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

func SetupMastodonRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/mastodon/start", func(e *core.RequestEvent) error {
		return BeginMastodonAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/mastodon/callback", func(e *core.RequestEvent) error {
		return MastodonCallback(e, h)
	})
}

// GET /api/v1/auth/mastodon/start?userId=
func BeginMastodonAuth(e *core.RequestEvent, h *Handlers) error {
	md := h.Config.Platform(string(models.PlatformMastodon))
	if md.ClientID == "" || md.ClientSecret == "" {
		return helpers.Error(e, http.StatusInternalServerError, "Mastodon Client Key or Secret is not set")
	}
	userID := e.Request.URL.Query().Get("userId")
	if userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}
	goth.UseProviders(mastodon.NewCustomisedURL(md.ClientID, md.ClientSecret, h.Config.APIHost+"/api/v1/auth/mastodon/callback",
		md.BaseURL+"/oauth/authorize", md.BaseURL+"/oauth/token", md.BaseURL+"/api/v1/accounts/verify_credentials", "read", "write"))
	q := e.Request.URL.Query()
	q.Add("provider", "mastodon")
	q.Set("state", userID)
	e.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(e.Response, e.Request)
	return nil
}

// GET /api/v1/auth/mastodon/callback
func MastodonCallback(e *core.RequestEvent, h *Handlers) error {
	query := e.Request.URL.Query()
	userID := query.Get("state")
	query.Set("provider", "mastodon")
	e.Request.URL.RawQuery = query.Encode()

	user, err := gothic.CompleteUserAuth(e.Response, e.Request)
	if err != nil {
		return helpers.Error(e, http.StatusUnauthorized, "Authentication failed: "+err.Error())
	}

	account := &models.SocialMediaAccount{
		UserID:            userID,
		Platform:          models.PlatformMastodon,
		AccountName:       user.Name,
		AccessToken:       user.AccessToken,
		PlatformAccountID: user.UserID,
		ProfileImage:      user.AvatarURL,
	}
	if account.AccountName == "" {
		account.AccountName = user.NickName
	}
	if err := AddNewConnection(e.Request.Context(), h, account); err != nil {
		return helpers.Fail(e, err)
	}

	q := url.Values{"account": {account.ID}, "username": {user.NickName}}
	return e.Redirect(http.StatusTemporaryRedirect, h.Config.RedirectURL+"/connect/mastodon?"+q.Encode())
}
