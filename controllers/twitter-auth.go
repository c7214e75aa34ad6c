package controllers

import (
	"fmt"
	"net/http"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/twitter"
	"github.com/pocketbase/pocketbase/core"

	"content-clock-publisher/helpers"
	"content-clock-publisher/models"
)

const sessionUserKey = "content_clock_user"

func SetupTwitterRoutes(se *core.ServeEvent, h *Handlers) {
	se.Router.GET("/api/v1/auth/twitter/start", func(e *core.RequestEvent) error {
		return BeginTwitterAuth(e, h)
	})
	se.Router.GET("/api/v1/auth/twitter/callback", func(e *core.RequestEvent) error {
		return TwitterOAuthCallback(e, h)
	})
}

// BeginTwitterAuth starts the OAuth 1.0a flow. The app user id is kept in the gothic session
// since OAuth 1.0a carries no state parameter.
func BeginTwitterAuth(e *core.RequestEvent, h *Handlers) error {
	tw := h.Config.Platform(string(models.PlatformTwitter))
	if tw.ClientID == "" || tw.ClientSecret == "" {
		return helpers.Error(e, http.StatusInternalServerError, "Twitter API Key or Secret is not set")
	}
	userID := e.Request.URL.Query().Get("userId")
	if userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}
	if err := gothic.StoreInSession(sessionUserKey, userID, e.Request, e.Response); err != nil {
		return helpers.Error(e, http.StatusInternalServerError, err.Error())
	}

	goth.UseProviders(twitter.New(tw.ClientID, tw.ClientSecret, h.Config.APIHost+"/api/v1/auth/twitter/callback"))
	q := e.Request.URL.Query()
	q.Add("provider", "twitter")
	e.Request.URL.RawQuery = q.Encode()
	gothic.BeginAuthHandler(e.Response, e.Request)
	return nil
}

// TwitterOAuthCallback stores the user token pair as "token secret".
func TwitterOAuthCallback(e *core.RequestEvent, h *Handlers) error {
	userID, err := gothic.GetFromSession(sessionUserKey, e.Request)
	if err != nil || userID == "" {
		return helpers.Error(e, http.StatusBadRequest, "Missing required parameters")
	}
	q := e.Request.URL.Query()
	q.Set("provider", "twitter")
	e.Request.URL.RawQuery = q.Encode()

	user, err := gothic.CompleteUserAuth(e.Response, e.Request)
	if err != nil {
		return helpers.Error(e, http.StatusUnauthorized, "Authentication failed: "+err.Error())
	}

	account := &models.SocialMediaAccount{
		UserID:            userID,
		Platform:          models.PlatformTwitter,
		AccountName:       user.Name,
		AccessToken:       user.AccessToken + " " + user.AccessTokenSecret,
		PlatformAccountID: user.UserID,
		MetaData:          fmt.Sprintf(`{"user_id":%q,"username":%q}`, user.UserID, user.NickName),
		ProfileImage:      user.AvatarURL,
	}
	if err := AddNewConnection(e.Request.Context(), h, account); err != nil {
		return helpers.Fail(e, err)
	}
	return e.Redirect(http.StatusTemporaryRedirect, h.Config.RedirectURL+"/connect/twitter?account="+account.ID)
}
